// Package gemini implements the provider interface on top of the official
// Gemini SDK.
package gemini

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/Cyclone1070/opal/internal/errutil"
	"github.com/Cyclone1070/opal/internal/provider"
)

// Provider adapts a Gemini client to the provider contract.
type Provider struct {
	client Client
}

// New creates a Provider around an SDK-backed client using the given API key.
func New(ctx context.Context, apiKey string) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errutil.Wrap(errutil.KindAuth, err, "creating gemini client")
	}
	return NewWithClient(NewSDKClient(client)), nil
}

// NewWithClient creates a Provider around any Client (for testing).
func NewWithClient(client Client) *Provider {
	return &Provider{client: client}
}

// Chat implements provider.Provider. System messages become the system
// instruction; user and assistant turns map to the "user" and "model" roles.
func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}

	var contents []*genai.Content
	for _, msg := range req.Messages {
		switch msg.Role {
		case provider.RoleSystem:
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
			}
		case provider.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
			})
		}
	}

	resp, err := p.client.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return provider.ChatResponse{}, errutil.Wrap(errutil.KindNetwork, err, "calling gemini")
	}

	text := responseText(resp)
	if text == "" {
		return provider.ChatResponse{}, errutil.New(errutil.KindNetwork, "gemini returned an empty response")
	}
	return provider.ChatResponse{Content: text}, nil
}

// ListModels implements provider.Provider.
func (p *Provider) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	ids, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindNetwork, err, "listing gemini models")
	}
	models := make([]provider.ModelInfo, 0, len(ids))
	for _, id := range ids {
		models = append(models, provider.ModelInfo{ID: id, OwnedBy: "google"})
	}
	return models, nil
}

// Health implements provider.Provider by timing a model list call.
func (p *Provider) Health(ctx context.Context) (provider.Health, error) {
	started := time.Now()
	if _, err := p.client.ListModels(ctx); err != nil {
		return provider.Health{OK: false, Detail: err.Error()}, nil
	}
	return provider.Health{
		OK:        true,
		LatencyMS: time.Since(started).Milliseconds(),
		Detail:    "models endpoint reachable",
	}, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
