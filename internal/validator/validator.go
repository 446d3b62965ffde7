// Package validator centraliza a validação de entrada da API.
package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func Validate(s any) error {
	return validate.Struct(s)
}

// Limites dos parâmetros de consulta RAG.
const (
	MinTopK = 1
	MaxTopK = 100
	MinTopN = 1
	MaxTopN = 20
)

// ValidateQueryParams checa os limites dos parâmetros já resolvidos
// (depois dos defaults). top_n acima de top_k é contraditório: o corte
// final nunca teria candidatos suficientes.
func ValidateQueryParams(query string, topK, topN int, threshold float64) ValidationResult {
	result := ValidationResult{Valid: true, Errors: []ValidationError{}}

	fail := func(field, message string) {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{Field: field, Message: message})
	}

	if query == "" {
		fail("query", "query é obrigatória")
	}
	if topK < MinTopK || topK > MaxTopK {
		fail("top_k", fmt.Sprintf("top_k deve estar entre %d e %d", MinTopK, MaxTopK))
	}
	if topN < MinTopN || topN > MaxTopN {
		fail("top_n", fmt.Sprintf("top_n deve estar entre %d e %d", MinTopN, MaxTopN))
	}
	if result.Valid && topN > topK {
		fail("top_n", "top_n não pode ser maior que top_k")
	}
	if threshold < 0 || threshold > 1 {
		fail("similarity_threshold", "similarity_threshold deve estar entre 0 e 1")
	}

	return result
}
