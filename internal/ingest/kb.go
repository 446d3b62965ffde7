// Package ingest feeds the shared rag_embeddings table from a curated
// knowledge base of known errors. Em produção quem faz isso é o job de
// ingestão (outro processo); este pacote existe para o comando
// `ingest` do console e para semear ambientes de desenvolvimento.
package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// KnowledgeBase é o arquivo YAML curado com os erros conhecidos.
type KnowledgeBase struct {
	Errors []Entry `yaml:"errors"`
}

type Entry struct {
	ErrorID    string   `yaml:"error_id"`
	Title      string   `yaml:"title"`
	Content    string   `yaml:"content"`
	SourceFile string   `yaml:"source_file"`
	Page       int      `yaml:"page"`
	Sections   []string `yaml:"sections"`
}

func (e Entry) Validate() error {
	if e.ErrorID == "" {
		return fmt.Errorf("entry missing error_id")
	}
	if e.Title == "" && e.Content == "" {
		return fmt.Errorf("entry %s has neither title nor content", e.ErrorID)
	}
	return nil
}

// EmbeddingText monta o texto embedado para um documento. O prefixo
// "search_document: " é exigido pelos modelos nomic; consultas usam
// "search_query: ".
func (e Entry) EmbeddingText() string {
	if e.Content == "" {
		return "search_document: " + e.Title
	}
	return "search_document: " + e.Title + "\n" + e.Content
}

func ParseKnowledgeBase(data []byte) (*KnowledgeBase, error) {
	var kb KnowledgeBase
	if err := yaml.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	if len(kb.Errors) == 0 {
		return nil, fmt.Errorf("knowledge base has no entries")
	}
	for i, e := range kb.Errors {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return &kb, nil
}

func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	return ParseKnowledgeBase(data)
}
