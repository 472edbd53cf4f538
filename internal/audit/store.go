// Package audit records every executed shell command in an append-only JSONL
// file. A command execution that cannot be recorded is treated as a
// correctness violation, not a logging nicety, so append failures are hard
// errors for the caller.
package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Cyclone1070/opal/internal/errutil"
)

// CommandAudit is one line of the command audit log. Entries are never
// rewritten after append.
type CommandAudit struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"ts"`
	SessionID  string    `json:"session_id"`
	Command    string    `json:"command"`
	Cwd        string    `json:"cwd"`
	ApprovedBy string    `json:"approved_by"`
	ExitCode   int       `json:"exit_code"`
	DurationMS int64     `json:"duration_ms"`
}

// Store appends to and reads back a single shared audit log file.
type Store struct {
	auditDir string
	logPath  string
}

// NewStore creates a Store writing to logPath inside auditDir.
func NewStore(auditDir, logPath string) *Store {
	return &Store{auditDir: auditDir, logPath: logPath}
}

// Path returns the audit log file path.
func (s *Store) Path() string { return s.logPath }

// EnsureDirs creates the audit directory if needed.
func (s *Store) EnsureDirs() error {
	if err := os.MkdirAll(s.auditDir, 0o755); err != nil {
		return errutil.Wrapf(errutil.KindIO, err, "creating audit dir %s", s.auditDir)
	}
	return nil
}

// NewEntry assembles a CommandAudit with a fresh id and timestamp.
func NewEntry(sessionID, command, cwd, approvedBy string, exitCode int, duration time.Duration) CommandAudit {
	return CommandAudit{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		SessionID:  sessionID,
		Command:    command,
		Cwd:        cwd,
		ApprovedBy: approvedBy,
		ExitCode:   exitCode,
		DurationMS: duration.Milliseconds(),
	}
}

// AppendCommand writes one audit entry as a single JSON line.
func (s *Store) AppendCommand(entry CommandAudit) error {
	if err := s.EnsureDirs(); err != nil {
		return err
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return errutil.Wrap(errutil.KindValidation, err, "encoding audit entry")
	}
	file, err := os.OpenFile(s.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errutil.Wrapf(errutil.KindIO, err, "opening audit log %s", s.logPath)
	}
	defer file.Close()
	if _, err := file.Write(append(line, '\n')); err != nil {
		return errutil.Wrapf(errutil.KindIO, err, "appending to audit log %s", s.logPath)
	}
	return nil
}

// Tail returns up to n most recent entries in chronological order.
// A missing log file yields an empty slice.
func (s *Store) Tail(n int) ([]CommandAudit, error) {
	file, err := os.Open(s.logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errutil.Wrapf(errutil.KindIO, err, "opening audit log %s", s.logPath)
	}
	defer file.Close()

	var entries []CommandAudit
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry CommandAudit
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, errutil.Wrapf(errutil.KindValidation, err, "invalid audit entry in %s", s.logPath)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, errutil.Wrapf(errutil.KindIO, err, "reading audit log %s", s.logPath)
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// DefaultPaths returns the conventional audit dir and log path under dataDir.
func DefaultPaths(dataDir string) (string, string) {
	dir := filepath.Join(dataDir, "audit")
	return dir, filepath.Join(dir, "commands.jsonl")
}
