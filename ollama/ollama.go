// Package ollama is a minimal client for the Ollama generate API, covering
// the two model calls the pipeline makes: text summarization and image
// captioning.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// GenerateRequest is the request body for /api/generate.
type GenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"` // base64 encoded
	Stream bool     `json:"stream"`
}

// GenerateResponse is the non-streaming response from /api/generate.
type GenerateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

// Client calls a single Ollama instance. Concurrency limiting is the
// caller's job; the client itself is safe for concurrent use.
type Client struct {
	baseURL     string
	textModel   string
	visionModel string
	httpClient  *http.Client
}

// NewClient creates a client for the given Ollama base URL. visionModel may
// equal textModel when one model serves both roles.
func NewClient(baseURL, textModel, visionModel string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		textModel:   textModel,
		visionModel: visionModel,
		httpClient: &http.Client{
			Timeout:   120 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Generate sends a raw prompt to the text model and returns the response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, GenerateRequest{
		Model:  c.textModel,
		Prompt: prompt,
		Stream: false,
	})
}

// Summarize asks the text model for a summary of at most maxWords words.
// Models treat the word cap as guidance, not a guarantee.
func (c *Client) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following text in at most %d words. Respond with the summary only, no preamble.\n\n%s",
		maxWords, text)
	return c.Generate(ctx, prompt)
}

// Caption asks the vision model to describe an image.
func (c *Client) Caption(ctx context.Context, imageData []byte) (string, error) {
	return c.generate(ctx, GenerateRequest{
		Model:  c.visionModel,
		Prompt: "Describe this image in one or two sentences for a news article caption.",
		Images: []string{base64.StdEncoding.EncodeToString(imageData)},
		Stream: false,
	})
}

func (c *Client) generate(ctx context.Context, genReq GenerateRequest) (string, error) {
	body, err := json.Marshal(genReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var genResp GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return strings.TrimSpace(genResp.Response), nil
}
