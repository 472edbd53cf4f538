// Package openai implements the provider interface against any
// OpenAI-compatible chat completions API (OpenAI itself, Ollama, vLLM,
// LM Studio and friends).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Cyclone1070/opal/internal/errutil"
	"github.com/Cyclone1070/opal/internal/provider"
)

const defaultTimeout = 120 * time.Second

// HTTPDoer abstracts the HTTP client for testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to an OpenAI-compatible API.
type Client struct {
	baseURL string
	apiKey  string
	http    HTTPDoer
}

// New creates a Client for the given base URL and API key. An empty apiKey
// is allowed for local servers that don't check authentication.
func New(baseURL, apiKey string) *Client {
	return NewWithHTTP(baseURL, apiKey, &http.Client{Timeout: defaultTimeout})
}

// NewWithHTTP creates a Client with a custom HTTP doer (for testing).
func NewWithHTTP(baseURL, apiKey string, doer HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    doer,
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Temperature float32       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type modelListResponse struct {
	Data []struct {
		ID      string `json:"id"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}

// Chat implements provider.Provider.
func (c *Client) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	body := chatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
	}
	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	var parsed chatCompletionResponse
	if err := c.postJSON(ctx, "/v1/chat/completions", body, &parsed); err != nil {
		return provider.ChatResponse{}, err
	}
	if len(parsed.Choices) == 0 {
		return provider.ChatResponse{}, errutil.New(errutil.KindNetwork, "chat completion returned no choices")
	}
	return provider.ChatResponse{Content: parsed.Choices[0].Message.Content}, nil
}

// ListModels implements provider.Provider.
func (c *Client) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	var parsed modelListResponse
	if err := c.getJSON(ctx, "/v1/models", &parsed); err != nil {
		return nil, err
	}
	models := make([]provider.ModelInfo, 0, len(parsed.Data))
	for _, model := range parsed.Data {
		models = append(models, provider.ModelInfo{ID: model.ID, OwnedBy: model.OwnedBy})
	}
	return models, nil
}

// Health implements provider.Provider by timing a model list call.
func (c *Client) Health(ctx context.Context) (provider.Health, error) {
	started := time.Now()
	if _, err := c.ListModels(ctx); err != nil {
		return provider.Health{OK: false, Detail: err.Error()}, nil
	}
	return provider.Health{
		OK:        true,
		LatencyMS: time.Since(started).Milliseconds(),
		Detail:    "models endpoint reachable",
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errutil.Wrap(errutil.KindValidation, err, "encoding provider request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return errutil.Wrap(errutil.KindNetwork, err, "building provider request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errutil.Wrap(errutil.KindNetwork, err, "building provider request")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errutil.Wrapf(errutil.KindNetwork, err, "calling %s", req.URL.Path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return errutil.Wrapf(errutil.KindNetwork, err, "reading response from %s", req.URL.Path)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errutil.Newf(errutil.KindAuth, "provider rejected credentials (%s): %s", resp.Status, apiErrorDetail(raw))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return errutil.Newf(errutil.KindNetwork, "provider returned %s: %s", resp.Status, apiErrorDetail(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errutil.Wrapf(errutil.KindNetwork, err, "decoding response from %s", req.URL.Path)
	}
	return nil
}

// apiErrorDetail pulls the message out of an OpenAI-style error body,
// falling back to a truncated raw body.
func apiErrorDetail(raw []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	if text == "" {
		return "no response body"
	}
	return fmt.Sprintf("%q", text)
}
