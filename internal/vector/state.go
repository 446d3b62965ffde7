package vector

import (
	"sync/atomic"
)

// State guarda a geração publicada do índice. Leitores pegam o
// snapshot inteiro com um load atômico e seguem consultando aquela
// geração mesmo que um publish aconteça no meio: nenhum lock no
// caminho de leitura, nenhuma leitura rasgada.
//
// Readiness é monotônica: uma vez publicada a primeira geração, Ready
// nunca volta a false — rebuilds com falha mantêm a geração anterior.
type State struct {
	current atomic.Pointer[Snapshot]
	gen     atomic.Uint64
}

func NewState() *State {
	return &State{}
}

// Publish troca a geração visível de forma atômica. O número de
// geração é atribuído aqui, antes do snapshot ficar visível.
func (s *State) Publish(snap *Snapshot) {
	snap.Generation = s.gen.Add(1)
	s.current.Store(snap)
}

// Current devolve a última geração publicada, ou nil antes da primeira.
func (s *State) Current() *Snapshot {
	return s.current.Load()
}

func (s *State) Ready() bool {
	return s.current.Load() != nil
}

func (s *State) Size() int {
	return s.current.Load().Size()
}

func (s *State) Generation() uint64 {
	if snap := s.current.Load(); snap != nil {
		return snap.Generation
	}
	return 0
}
