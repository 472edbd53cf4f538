// Package provider defines the chat-completion interface the agent depends
// on. Concrete implementations live in subpackages and are selected from
// config at construction time; the agent only ever sees this interface.
package provider

import "context"

// Role identifies who authored a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Temperature float32   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

// ChatResponse carries the assistant's reply text.
type ChatResponse struct {
	Content string `json:"content"`
}

// ModelInfo describes one model the provider can serve.
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// Health reports provider reachability.
type Health struct {
	OK        bool   `json:"ok"`
	LatencyMS int64  `json:"latency_ms"`
	Detail    string `json:"detail"`
}

// Provider is the LLM backend contract. The agent loop only needs Chat;
// ListModels and Health back the `models` and `health` CLI commands.
type Provider interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	Health(ctx context.Context) (Health, error)
}
