package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"listingsearch/internal/apperror"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
)

// OllamaClient generates text and embeddings with a local Ollama server
// through langchaingo
type OllamaClient struct {
	llm         *ollama.LLM
	temperature float64
}

// NewOllamaClient creates a client for model served at serverURL. Every
// request is bounded by timeout seconds.
func NewOllamaClient(serverURL, model string, temperature float64, timeout int) (*OllamaClient, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
		ollama.WithHTTPClient(&http.Client{Timeout: time.Duration(timeout) * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return &OllamaClient{llm: llm, temperature: temperature}, nil
}

// Name identifies the provider in logs
func (c *OllamaClient) Name() string { return "ollama" }

// Generate sends prompt as a single human message
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	content, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(c.temperature))
	if err != nil {
		if apperror.IsTimeout(err) {
			return "", apperror.Timeout("Ollama", err)
		}
		return "", apperror.Generation("Ollama request failed", err)
	}
	if len(content.Choices) == 0 {
		return "", nil
	}
	return content.Choices[0].Content, nil
}

// CreateEmbeddings embeds texts with the configured model
func (c *OllamaClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	embeddings, err := c.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	return embeddings, nil
}
