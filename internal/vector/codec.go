package vector

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrMalformedVector indica que o payload de um embedding não pôde ser
// decodificado ou que o tamanho decodificado diverge da dimensão
// declarada na linha.
var ErrMalformedVector = errors.New("malformed vector")

// EncodeFloat32 serializa um vetor como float32 little-endian, o mesmo
// formato binário usado pelo job de ingestão.
func EncodeFloat32(vec []float32) []byte {
	out := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// DecodeVector aceita os dois formatos que produtores reais gravam na
// coluna embedding: BLOB float32 little-endian ou texto JSON no estilo
// "[0.1, 0.2, ...]" (saída típica do pgvector). O formato é detectado
// pelo conteúdo, não pelo tipo da coluna.
func DecodeVector(raw []byte) ([]float32, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedVector)
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		return decodeTextVector(trimmed)
	}

	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("%w: binary payload of %d bytes is not a float32 array", ErrMalformedVector, len(raw))
	}

	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec, nil
}

func decodeTextVector(s string) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal([]byte(s), &vec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVector, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrMalformedVector)
	}
	return vec, nil
}
