package service

import (
	"context"
)

// Generator is a text-generation model: one prompt in, one completion out.
// Implementations classify failures with apperror kinds.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Embedder turns texts into vectors, one per input, in order
type Embedder interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Ensure clients implement the interfaces
var (
	_ Generator = (*GeminiClient)(nil)
	_ Generator = (*OpenAIClient)(nil)
	_ Generator = (*OllamaClient)(nil)
	_ Embedder  = (*OpenAIClient)(nil)
	_ Embedder  = (*OllamaClient)(nil)
)
