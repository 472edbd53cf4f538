// Package agent drives the multi-turn conversation loop: it replays the
// session log into provider messages, parses tool calls out of replies,
// dispatches them to the executor, and records every step.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Cyclone1070/opal/internal/audit"
	"github.com/Cyclone1070/opal/internal/config"
	"github.com/Cyclone1070/opal/internal/errutil"
	"github.com/Cyclone1070/opal/internal/provider"
	"github.com/Cyclone1070/opal/internal/session"
	"github.com/Cyclone1070/opal/internal/tool"
)

const systemPrompt = `You are the opal CLI agent.
When you need a local tool, respond with EXACT JSON:
{"tool_call":{"name":"read_file|write_file|search_text|run_cmd","args":{...}}}
If no tool is needed, answer directly with plain text.`

// Options configures one Ask call. Not persisted.
type Options struct {
	// SessionID resumes an existing session when set; empty creates one.
	SessionID string
	// Cwd is the workspace root for this call.
	Cwd string
	// Yes pre-approves confirmable tool actions.
	Yes bool
	// Interactive permits blocking terminal prompts.
	Interactive bool
}

// Result is the outcome of one Ask call.
type Result struct {
	SessionID string
	Response  string
	Turns     int
}

// Runner owns the session and audit logs for the duration of an Ask call.
type Runner struct {
	provider provider.Provider
	cfg      *config.Config
	sessions *session.Store
	audits   *audit.Store
	tools    *tool.Executor
	logger   zerolog.Logger
}

// NewRunner creates a Runner with its collaborators injected.
func NewRunner(p provider.Provider, cfg *config.Config, sessions *session.Store, audits *audit.Store, tools *tool.Executor, logger zerolog.Logger) *Runner {
	if p == nil {
		panic("provider is required")
	}
	if cfg == nil {
		panic("cfg is required")
	}
	if sessions == nil {
		panic("sessions is required")
	}
	if audits == nil {
		panic("audits is required")
	}
	if tools == nil {
		panic("tools is required")
	}
	return &Runner{
		provider: p,
		cfg:      cfg,
		sessions: sessions,
		audits:   audits,
		tools:    tools,
		logger:   logger,
	}
}

// Ask runs the turn loop until the model answers in plain text or the turn
// budget is exhausted.
func (r *Runner) Ask(ctx context.Context, prompt string, opts Options) (Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return Result{}, errutil.New(errutil.KindValidation, "prompt cannot be empty")
	}

	if err := r.sessions.EnsureDirs(); err != nil {
		return Result{}, err
	}
	if err := r.audits.EnsureDirs(); err != nil {
		return Result{}, err
	}

	sessionID := opts.SessionID
	if sessionID != "" {
		if !r.sessions.Exists(sessionID) {
			return Result{}, errutil.Newf(errutil.KindValidation, "session '%s' was not found", sessionID)
		}
	} else {
		sessionID = r.sessions.CreateSessionID()
	}

	if err := r.appendEvent(sessionID, session.KindUser, map[string]any{"text": prompt}); err != nil {
		return Result{}, err
	}

	turns := 0
	for {
		turns++
		if turns > r.cfg.Agent.MaxTurns {
			return Result{}, errutil.Newf(errutil.KindValidation,
				"agent exceeded max_turns=%d", r.cfg.Agent.MaxTurns)
		}

		messages, err := r.buildMessages(sessionID)
		if err != nil {
			return Result{}, err
		}
		response, err := r.provider.Chat(ctx, provider.ChatRequest{
			Model:       r.cfg.Provider.Model,
			Temperature: r.cfg.Agent.Temperature,
			Messages:    messages,
		})
		if err != nil {
			return Result{}, err
		}

		if call, ok := parseToolCall(response.Content); ok {
			r.logger.Debug().Str("tool", call.Name).Int("turn", turns).Msg("tool call requested")
			if err := r.handleToolCall(ctx, sessionID, call, opts); err != nil {
				return Result{}, err
			}
			continue
		}

		if err := r.appendEvent(sessionID, session.KindAssistant, map[string]any{"text": response.Content}); err != nil {
			return Result{}, err
		}
		return Result{SessionID: sessionID, Response: response.Content, Turns: turns}, nil
	}
}

// buildMessages replays the session log into a provider message list. Tool
// results come back as synthetic user messages; ToolCall, System and Error
// events contribute nothing.
func (r *Runner) buildMessages(sessionID string) ([]provider.Message, error) {
	messages := []provider.Message{{Role: provider.RoleSystem, Content: systemPrompt}}

	events, err := r.sessions.ReadEvents(sessionID)
	if err != nil {
		return nil, err
	}
	for _, event := range events {
		switch event.Kind {
		case session.KindUser, session.KindAssistant:
			var payload struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.Text == "" {
				continue
			}
			role := provider.RoleUser
			if event.Kind == session.KindAssistant {
				role = provider.RoleAssistant
			}
			messages = append(messages, provider.Message{Role: role, Content: payload.Text})
		case session.KindToolResult:
			var payload struct {
				Name   string          `json:"name"`
				Result json.RawMessage `json:"result"`
			}
			if err := json.Unmarshal(event.Payload, &payload); err != nil {
				continue
			}
			name := payload.Name
			if name == "" {
				name = "unknown_tool"
			}
			result := "{}"
			if len(payload.Result) > 0 {
				result = string(payload.Result)
			}
			messages = append(messages, provider.Message{
				Role:    provider.RoleUser,
				Content: fmt.Sprintf("TOOL_RESULT %s\n%s", name, result),
			})
		}
	}
	return messages, nil
}

func (r *Runner) handleToolCall(ctx context.Context, sessionID string, call parsedToolCall, opts Options) error {
	if !r.cfg.Tools.Enabled {
		return errutil.New(errutil.KindTool, "tools are disabled in the current profile")
	}

	if err := r.appendEvent(sessionID, session.KindToolCall, map[string]any{
		"name": call.Name,
		"args": call.Args,
	}); err != nil {
		return err
	}

	result, err := r.tools.Execute(ctx, call.Name, call.Args, tool.Context{
		Cwd:         opts.Cwd,
		Yes:         opts.Yes,
		Interactive: opts.Interactive,
	})
	if err != nil {
		return err
	}

	// Every executed command is audited, even when its exit code is
	// non-zero. An unauditable execution is a hard error.
	if call.Name == tool.NameRunCommand {
		output, ok := result.(tool.RunCommandOutput)
		if !ok {
			return errutil.New(errutil.KindTool, "run_cmd returned an unexpected result shape")
		}
		entry := audit.NewEntry(sessionID, output.Command, output.Cwd, output.ApprovedBy,
			output.ExitCode, output.Duration())
		if err := r.audits.AppendCommand(entry); err != nil {
			return err
		}
	}

	return r.appendEvent(sessionID, session.KindToolResult, map[string]any{
		"name":   call.Name,
		"result": result,
	})
}

func (r *Runner) appendEvent(sessionID string, kind session.EventKind, payload any) error {
	event, err := session.BuildEvent(sessionID, kind, payload)
	if err != nil {
		return err
	}
	return r.sessions.AppendEvent(event)
}

type parsedToolCall struct {
	Name string
	Args map[string]any
}

// parseToolCall attempts a strict envelope parse. Anything that does not
// deserialize cleanly is treated as plain text, not an error: a model that
// almost formats a tool call gets its raw text returned instead. Both the
// name and args fields must be present for the reply to count as a tool call.
func parseToolCall(content string) (parsedToolCall, bool) {
	body := stripMarkdownJSONFence(strings.TrimSpace(content))

	var envelope struct {
		ToolCall *struct {
			Name string          `json:"name"`
			Args json.RawMessage `json:"args"`
		} `json:"tool_call"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return parsedToolCall{}, false
	}
	if envelope.ToolCall == nil || envelope.ToolCall.Name == "" || len(envelope.ToolCall.Args) == 0 {
		return parsedToolCall{}, false
	}
	var args map[string]any
	if err := json.Unmarshal(envelope.ToolCall.Args, &args); err != nil {
		return parsedToolCall{}, false
	}
	return parsedToolCall{Name: envelope.ToolCall.Name, Args: args}, true
}

func stripMarkdownJSONFence(input string) string {
	if strings.HasPrefix(input, "```json") && strings.HasSuffix(input, "```") {
		body := strings.TrimPrefix(input, "```json")
		body = strings.TrimPrefix(body, "\n")
		body = strings.TrimSuffix(body, "```")
		return strings.TrimSpace(body)
	}
	if strings.HasPrefix(input, "```") && strings.HasSuffix(input, "```") {
		body := strings.TrimPrefix(input, "```")
		body = strings.TrimPrefix(body, "\n")
		body = strings.TrimSuffix(body, "```")
		return strings.TrimSpace(body)
	}
	return input
}
