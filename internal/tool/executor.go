package tool

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	"github.com/Cyclone1070/opal/internal/errutil"
	"github.com/Cyclone1070/opal/internal/policy"
	"github.com/Cyclone1070/opal/internal/tool/guard"
	"github.com/Cyclone1070/opal/internal/tool/pathutil"
)

const defaultMaxResults = 50

// Executor runs tool calls on behalf of the agent.
type Executor struct {
	guardMode  guard.Mode
	policies   policy.Loader
	confirmIn  io.Reader
	confirmOut io.Writer
	logger     zerolog.Logger
}

// NewExecutor creates an Executor. policies may be nil, in which case the
// sandbox and approval steps are skipped. confirmIn/confirmOut default to
// stdin/stderr when nil.
func NewExecutor(guardMode guard.Mode, policies policy.Loader, confirmIn io.Reader, confirmOut io.Writer, logger zerolog.Logger) *Executor {
	if confirmIn == nil {
		confirmIn = os.Stdin
	}
	if confirmOut == nil {
		confirmOut = os.Stderr
	}
	return &Executor{
		guardMode:  guardMode,
		policies:   policies,
		confirmIn:  confirmIn,
		confirmOut: confirmOut,
		logger:     logger,
	}
}

// Execute dispatches one tool call by name. Unknown names and malformed
// argument objects fail with a Tool error.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any, tctx Context) (any, error) {
	switch name {
	case NameReadFile:
		var parsed ReadFileArgs
		if err := decodeArgs(name, args, &parsed); err != nil {
			return nil, err
		}
		return e.readFile(parsed, tctx)
	case NameWriteFile:
		var parsed WriteFileArgs
		if err := decodeArgs(name, args, &parsed); err != nil {
			return nil, err
		}
		return e.writeFile(parsed, tctx)
	case NameSearchText:
		var parsed SearchTextArgs
		if err := decodeArgs(name, args, &parsed); err != nil {
			return nil, err
		}
		return e.searchText(parsed, tctx)
	case NameRunCommand:
		var parsed RunCommandArgs
		if err := decodeArgs(name, args, &parsed); err != nil {
			return nil, err
		}
		return e.runCommand(ctx, parsed, tctx)
	default:
		return nil, errutil.Newf(errutil.KindTool, "unknown tool '%s'", name)
	}
}

// decodeArgs maps the argument object onto the tool's typed args. Unknown
// keys are ignored; only type mismatches count as malformed.
func decodeArgs(name string, args map[string]any, out any) error {
	if err := mapstructure.Decode(args, out); err != nil {
		return errutil.Wrapf(errutil.KindTool, err, "malformed arguments for '%s'", name)
	}
	return nil
}

// resolver builds a workspace path resolver rooted at the invocation cwd.
func (e *Executor) resolver(tctx Context) (*pathutil.Resolver, error) {
	root, err := pathutil.CanonicaliseRoot(tctx.Cwd)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindTool, err, "resolving workspace root")
	}
	return pathutil.NewResolver(root), nil
}

func (e *Executor) resolvePath(tctx Context, userPath string) (string, error) {
	resolver, err := e.resolver(tctx)
	if err != nil {
		return "", err
	}
	abs, err := resolver.Resolve(userPath)
	if err != nil {
		if errors.Is(err, pathutil.ErrOutsideWorkspace) {
			return "", errutil.Newf(errutil.KindTool, "path is outside workspace: %s", userPath)
		}
		return "", errutil.Wrapf(errutil.KindTool, err, "resolving path %q", userPath)
	}
	return abs, nil
}

func (e *Executor) readFile(args ReadFileArgs, tctx Context) (any, error) {
	if args.Path == "" {
		return nil, errutil.New(errutil.KindTool, "read_file requires a path")
	}
	abs, err := e.resolvePath(tctx, args.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errutil.Wrapf(errutil.KindIO, err, "reading %s", args.Path)
	}
	return ReadFileOutput{Path: args.Path, Content: string(data)}, nil
}

func (e *Executor) writeFile(args WriteFileArgs, tctx Context) (any, error) {
	if args.Path == "" {
		return nil, errutil.New(errutil.KindTool, "write_file requires a path")
	}
	abs, err := e.resolvePath(tctx, args.Path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, errutil.Wrapf(errutil.KindIO, err, "creating parent directories for %s", args.Path)
	}
	if err := os.WriteFile(abs, []byte(args.Content), 0o644); err != nil {
		return nil, errutil.Wrapf(errutil.KindIO, err, "writing %s", args.Path)
	}
	e.logger.Debug().Str("path", args.Path).Int("bytes", len(args.Content)).Msg("wrote file")
	return WriteFileOutput{Path: args.Path, BytesWritten: len(args.Content)}, nil
}

// runCommand is the safety-critical pipeline. Each step either resolves or
// short-circuits with a terminal error; nothing downgrades a denial.
func (e *Executor) runCommand(ctx context.Context, args RunCommandArgs, tctx Context) (any, error) {
	command := strings.TrimSpace(args.Command)
	if command == "" {
		return nil, errutil.New(errutil.KindTool, "run_cmd requires a command")
	}

	// Step 1: classify. The blocklist wins over everything including --yes.
	decision := guard.Classify(command, e.guardMode)
	if decision.Outcome == guard.Blocked {
		return nil, errutil.Newf(errutil.KindTool,
			"blocked command '%s': %s. suggestion: %s", command, decision.Reason, decision.Suggestion)
	}

	var reasons []string
	if decision.Outcome == guard.NeedsConfirmation {
		reasons = append(reasons, decision.Reason)
	}

	autoApprovedBy := ""
	if e.policies != nil {
		runtime, err := e.policies.Load()
		if err != nil {
			return nil, err
		}

		// Step 2: sandbox. A denial cannot be bypassed.
		if reason := policy.EvaluateSandbox(command, runtime.Sandbox.Profile); reason != "" {
			return nil, errutil.New(errutil.KindSandboxDenied, reason)
		}

		// Step 3: approval policy.
		approval := policy.EvaluateApproval(command, runtime.Approval)
		switch approval.Outcome {
		case policy.ApprovalDenied:
			return nil, errutil.New(errutil.KindApprovalRequired, approval.Reason)
		case policy.ApprovalAuto:
			autoApprovedBy = approval.ApprovedBy
		case policy.ApprovalNeedsConfirmation:
			reasons = append(reasons, approval.Reason)
		}
	}

	// Step 4: resolve confirmation.
	approvedBy, err := e.resolveConfirmation(command, reasons, autoApprovedBy, tctx)
	if err != nil {
		return nil, err
	}

	// Step 5: execute.
	output, err := e.spawn(ctx, command, tctx.Cwd)
	if err != nil {
		return nil, err
	}
	output.ApprovedBy = approvedBy

	e.logger.Debug().
		Str("command", command).
		Str("approved_by", approvedBy).
		Int("exit_code", output.ExitCode).
		Int64("duration_ms", output.DurationMS).
		Msg("command executed")
	return output, nil
}

func (e *Executor) resolveConfirmation(command string, reasons []string, autoApprovedBy string, tctx Context) (string, error) {
	if len(reasons) == 0 {
		if autoApprovedBy != "" {
			return autoApprovedBy, nil
		}
		return "auto_safe", nil
	}

	joined := strings.Join(reasons, "; ")
	if tctx.Yes {
		return "flag_yes", nil
	}
	if tctx.Interactive {
		fmt.Fprintf(e.confirmOut, "Command requires confirmation (%s): `%s`. Continue? [y/N]: ", joined, command)
		answer, err := bufio.NewReader(e.confirmIn).ReadString('\n')
		if err != nil && answer == "" {
			return "", errutil.New(errutil.KindApprovalRequired, "command execution cancelled by user")
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return "user_prompt", nil
		default:
			return "", errutil.New(errutil.KindApprovalRequired, "command execution cancelled by user")
		}
	}
	return "", errutil.Newf(errutil.KindApprovalRequired,
		"command requires confirmation: %s. rerun with --yes", joined)
}

func (e *Executor) spawn(ctx context.Context, command, cwd string) (RunCommandOutput, error) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "zsh"
	}

	cmd := exec.CommandContext(ctx, shell, "-lc", command)
	cmd.Dir = cwd

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	runErr := cmd.Run()
	duration := time.Since(started)

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return RunCommandOutput{}, errutil.Wrapf(errutil.KindTool, runErr, "spawning shell for '%s'", command)
		}
	}

	return RunCommandOutput{
		Command:    command,
		Cwd:        cwd,
		Stdout:     strings.ToValidUTF8(stdout.String(), "�"),
		Stderr:     strings.ToValidUTF8(stderr.String(), "�"),
		ExitCode:   exitCode,
		DurationMS: duration.Milliseconds(),
	}, nil
}
