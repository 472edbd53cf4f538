package agent

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/opal/internal/audit"
	"github.com/Cyclone1070/opal/internal/config"
	"github.com/Cyclone1070/opal/internal/errutil"
	"github.com/Cyclone1070/opal/internal/provider"
	"github.com/Cyclone1070/opal/internal/session"
	"github.com/Cyclone1070/opal/internal/tool"
)

// mockProvider replays queued replies and records every request it saw.
type mockProvider struct {
	replies  []string
	requests []provider.ChatRequest
}

func (m *mockProvider) Chat(_ context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	m.requests = append(m.requests, req)
	if len(m.replies) == 0 {
		return provider.ChatResponse{Content: "done"}, nil
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	return provider.ChatResponse{Content: next}, nil
}

func (m *mockProvider) ListModels(context.Context) ([]provider.ModelInfo, error) {
	return []provider.ModelInfo{{ID: "mock-model"}}, nil
}

func (m *mockProvider) Health(context.Context) (provider.Health, error) {
	return provider.Health{OK: true}, nil
}

type testRig struct {
	runner   *Runner
	provider *mockProvider
	cfg      *config.Config
	dataDir  string
	cwd      string
}

func newTestRig(t *testing.T, replies ...string) *testRig {
	t.Helper()
	t.Setenv("SHELL", "/bin/sh")

	dataDir := t.TempDir()
	cwd, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Provider.Model = "mock-model"

	mock := &mockProvider{replies: replies}
	sessions := session.NewStore(filepath.Join(dataDir, "sessions"))
	auditDir, auditLog := audit.DefaultPaths(dataDir)
	audits := audit.NewStore(auditDir, auditLog)
	tools := tool.NewExecutor(cfg.Tools.GuardMode, nil, strings.NewReader(""), io.Discard, zerolog.Nop())

	return &testRig{
		runner:   NewRunner(mock, cfg, sessions, audits, tools, zerolog.Nop()),
		provider: mock,
		cfg:      cfg,
		dataDir:  dataDir,
		cwd:      cwd,
	}
}

func (r *testRig) ask(t *testing.T, prompt string, opts Options) (Result, error) {
	t.Helper()
	if opts.Cwd == "" {
		opts.Cwd = r.cwd
	}
	return r.runner.Ask(context.Background(), prompt, opts)
}

func TestAskRejectsEmptyPrompt(t *testing.T) {
	rig := newTestRig(t)
	_, err := rig.ask(t, "   ", Options{})
	require.Error(t, err)
	assert.Equal(t, errutil.KindValidation, errutil.KindOf(err))
}

func TestAskRejectsUnknownSession(t *testing.T) {
	rig := newTestRig(t)
	_, err := rig.ask(t, "hello", Options{SessionID: "no-such-session"})
	require.Error(t, err)
	assert.Equal(t, errutil.KindValidation, errutil.KindOf(err))
	assert.Contains(t, err.Error(), "no-such-session")
}

func TestAskPlainTextAnswer(t *testing.T) {
	rig := newTestRig(t, "just an answer")
	result, err := rig.ask(t, "hello", Options{})
	require.NoError(t, err)
	assert.Equal(t, "just an answer", result.Response)
	assert.Equal(t, 1, result.Turns)
	require.NotEmpty(t, result.SessionID)

	events, err := rig.runner.sessions.ReadEvents(result.SessionID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, session.KindUser, events[0].Kind)
	assert.Equal(t, session.KindAssistant, events[1].Kind)
}

func TestAskResumesExistingSession(t *testing.T) {
	rig := newTestRig(t, "first", "second")
	first, err := rig.ask(t, "question one", Options{})
	require.NoError(t, err)

	second, err := rig.ask(t, "question two", Options{SessionID: first.SessionID})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	// The resumed call must replay the prior exchange to the provider.
	lastRequest := rig.provider.requests[len(rig.provider.requests)-1]
	var contents []string
	for _, msg := range lastRequest.Messages {
		contents = append(contents, msg.Content)
	}
	assert.Contains(t, contents, "question one")
	assert.Contains(t, contents, "first")
	assert.Contains(t, contents, "question two")
}

func TestAskFencedToolCallParsesLikePlain(t *testing.T) {
	fenced := "```json\n{\"tool_call\":{\"name\":\"run_cmd\",\"args\":{\"command\":\"pwd\"}}}\n```"
	rig := newTestRig(t, fenced, "done")

	result, err := rig.ask(t, "where am I", Options{})
	require.NoError(t, err)
	assert.Equal(t, "done", result.Response)
	assert.Equal(t, 2, result.Turns)

	// The tool result is fed back as a synthetic user message.
	lastRequest := rig.provider.requests[1]
	found := false
	for _, msg := range lastRequest.Messages {
		if strings.HasPrefix(msg.Content, "TOOL_RESULT run_cmd\n") {
			assert.Equal(t, provider.RoleUser, msg.Role)
			found = true
		}
	}
	assert.True(t, found, "expected a TOOL_RESULT message in the follow-up request")
}

func TestAskAlmostToolCallFallsThroughAsText(t *testing.T) {
	almost := `{"tool_call":{"name":"run_cmd","args":{"command":"pwd"}}` // missing brace
	rig := newTestRig(t, almost)

	result, err := rig.ask(t, "where am I", Options{})
	require.NoError(t, err)
	assert.Equal(t, almost, result.Response)
	assert.Len(t, rig.provider.requests, 1)
}

func TestAskEnvelopeWithoutArgsFallsThroughAsText(t *testing.T) {
	// A reply naming a tool but omitting the args object is not a tool
	// call; it comes back as plain text instead of aborting the turn.
	noArgs := `{"tool_call":{"name":"run_cmd"}}`
	rig := newTestRig(t, noArgs)

	result, err := rig.ask(t, "do something", Options{})
	require.NoError(t, err)
	assert.Equal(t, noArgs, result.Response)
	assert.Len(t, rig.provider.requests, 1)
}

func TestAskRunCommandRequiresConfirmationWithoutYes(t *testing.T) {
	rig := newTestRig(t, `{"tool_call":{"name":"run_cmd","args":{"command":"touch guarded.txt"}}}`)

	_, err := rig.ask(t, "create a file", Options{})
	require.Error(t, err)
	assert.Equal(t, errutil.KindApprovalRequired, errutil.KindOf(err))
	assert.Contains(t, err.Error(), "requires confirmation")
	assert.NoFileExists(t, filepath.Join(rig.cwd, "guarded.txt"))
}

func TestAskRunCommandWithYesExecutesAndAudits(t *testing.T) {
	rig := newTestRig(t,
		`{"tool_call":{"name":"run_cmd","args":{"command":"touch allowed.txt"}}}`,
		"done")

	result, err := rig.ask(t, "create a file", Options{Yes: true})
	require.NoError(t, err)
	assert.Equal(t, "done", result.Response)
	assert.FileExists(t, filepath.Join(rig.cwd, "allowed.txt"))

	raw, err := os.ReadFile(filepath.Join(rig.dataDir, "audit", "commands.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"command":"touch allowed.txt"`)
	assert.Contains(t, string(raw), `"approved_by":"flag_yes"`)
}

func TestAskToolFailureSkipsToolResult(t *testing.T) {
	rig := newTestRig(t, `{"tool_call":{"name":"read_file","args":{"path":"../../etc/passwd"}}}`)

	_, err := rig.ask(t, "read it", Options{})
	require.Error(t, err)
	assert.Equal(t, errutil.KindTool, errutil.KindOf(err))
	assert.Contains(t, err.Error(), "outside workspace")

	summaries, err := rig.runner.sessions.ListSessions()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	events, err := rig.runner.sessions.ReadEvents(summaries[0].SessionID)
	require.NoError(t, err)
	// User + ToolCall, but no ToolResult after the failure.
	require.Len(t, events, 2)
	assert.Equal(t, session.KindToolCall, events[1].Kind)
}

func TestAskTurnBudget(t *testing.T) {
	envelope := `{"tool_call":{"name":"run_cmd","args":{"command":"pwd"}}}`
	rig := newTestRig(t, envelope, envelope, envelope, envelope, envelope)
	rig.cfg.Agent.MaxTurns = 2

	_, err := rig.ask(t, "loop forever", Options{})
	require.Error(t, err)
	assert.Equal(t, errutil.KindValidation, errutil.KindOf(err))
	assert.Contains(t, err.Error(), "max_turns")
	// The budget is checked at the top of each turn, so exactly MaxTurns
	// provider calls are made before the loop gives up.
	assert.Len(t, rig.provider.requests, 2)
}

func TestAskToolsDisabled(t *testing.T) {
	rig := newTestRig(t, `{"tool_call":{"name":"run_cmd","args":{"command":"pwd"}}}`)
	rig.cfg.Tools.Enabled = false

	_, err := rig.ask(t, "do something", Options{})
	require.Error(t, err)
	assert.Equal(t, errutil.KindTool, errutil.KindOf(err))
	assert.Contains(t, err.Error(), "disabled")
}

func TestStripMarkdownJSONFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "json fence", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", input: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "no fence", input: `{"a":1}`, want: `{"a":1}`},
		{name: "unterminated fence", input: "```json\n{\"a\":1}", want: "```json\n{\"a\":1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMarkdownJSONFence(tt.input))
		})
	}
}
