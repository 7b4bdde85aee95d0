package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"listingsearch/internal/apperror"
	"listingsearch/internal/config"
)

// GeminiClient calls the Gemini generateContent REST endpoint
type GeminiClient struct {
	config     config.GenerationConfig
	httpClient *http.Client
}

// NewGeminiClient creates a Gemini client
func NewGeminiClient(cfg config.GenerationConfig) *GeminiClient {
	return &GeminiClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// Name identifies the provider in logs
func (c *GeminiClient) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *geminiGeneration `json:"generationConfig,omitempty"`
}

type geminiGeneration struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// Generate sends prompt as a single user turn and returns the first
// candidate's text
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.config.APIKey == "" {
		return "", apperror.Configuration("GEMINI_API_KEY not configured")
	}

	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	if c.config.Temperature > 0 {
		t := c.config.Temperature
		req.GenerationConfig = &geminiGeneration{Temperature: &t}
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(c.config.APIBase, "/"), c.config.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if apperror.IsTimeout(err) {
			return "", apperror.Timeout("Gemini API", err)
		}
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if apperror.IsTimeout(err) {
			return "", apperror.Timeout("Gemini API", err)
		}
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperror.Upstream("Gemini API", resp.StatusCode, string(body))
	}

	var result geminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", apperror.Generation("Invalid response from Gemini API", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}
