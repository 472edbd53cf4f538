// Package session persists conversation history as append-only JSONL files,
// one file per session. Events are never mutated or reordered after append;
// reading a session replays its file top to bottom.
package session

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Cyclone1070/opal/internal/errutil"
)

// EventKind identifies the type of a session event.
type EventKind string

const (
	KindUser       EventKind = "user"
	KindAssistant  EventKind = "assistant"
	KindToolCall   EventKind = "tool_call"
	KindToolResult EventKind = "tool_result"
	KindSystem     EventKind = "system"
	KindError      EventKind = "error"
)

// Event is one line of a session log.
type Event struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"ts"`
	SessionID string          `json:"session_id"`
	Kind      EventKind       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// Summary describes one session for listings.
type Summary struct {
	SessionID   string     `json:"session_id"`
	EventCount  int        `json:"event_count"`
	LastUpdated *time.Time `json:"last_updated"`
}

// Store reads and writes session logs under a single directory.
// Files are opened create-or-append per write; no handle is held open.
type Store struct {
	sessionsDir string
}

// NewStore creates a Store rooted at sessionsDir.
func NewStore(sessionsDir string) *Store {
	return &Store{sessionsDir: sessionsDir}
}

// Dir returns the sessions directory.
func (s *Store) Dir() string { return s.sessionsDir }

// EnsureDirs creates the sessions directory if needed.
func (s *Store) EnsureDirs() error {
	if err := os.MkdirAll(s.sessionsDir, 0o755); err != nil {
		return errutil.Wrapf(errutil.KindIO, err, "creating sessions dir %s", s.sessionsDir)
	}
	return nil
}

// CreateSessionID returns a fresh opaque session id.
func (s *Store) CreateSessionID() string {
	return uuid.NewString()
}

// Path returns the JSONL file backing the given session.
func (s *Store) Path(sessionID string) string {
	return filepath.Join(s.sessionsDir, sessionID+".jsonl")
}

// Exists reports whether the session has been persisted.
func (s *Store) Exists(sessionID string) bool {
	_, err := os.Stat(s.Path(sessionID))
	return err == nil
}

// BuildEvent assembles an event with a fresh id and timestamp. The payload
// must be JSON-marshalable.
func BuildEvent(sessionID string, kind EventKind, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, errutil.Wrap(errutil.KindValidation, err, "encoding event payload")
	}
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Kind:      kind,
		Payload:   raw,
	}, nil
}

// AppendEvent writes one event as a single JSON line.
func (s *Store) AppendEvent(event Event) error {
	if err := s.EnsureDirs(); err != nil {
		return err
	}
	line, err := json.Marshal(event)
	if err != nil {
		return errutil.Wrap(errutil.KindValidation, err, "encoding session event")
	}
	path := s.Path(event.SessionID)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errutil.Wrapf(errutil.KindIO, err, "opening session file %s", path)
	}
	defer file.Close()
	if _, err := file.Write(append(line, '\n')); err != nil {
		return errutil.Wrapf(errutil.KindIO, err, "appending to session file %s", path)
	}
	return nil
}

// ReadEvents replays a session's events in append order.
func (s *Store) ReadEvents(sessionID string) ([]Event, error) {
	path := s.Path(sessionID)
	if _, err := os.Stat(path); err != nil {
		return nil, errutil.Newf(errutil.KindConfig, "session '%s' was not found", sessionID)
	}
	return readEventsFromPath(path)
}

// ListSessions returns summaries sorted by most-recently-updated first.
func (s *Store) ListSessions() ([]Summary, error) {
	if err := s.EnsureDirs(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return nil, errutil.Wrapf(errutil.KindIO, err, "reading sessions dir %s", s.sessionsDir)
	}
	var summaries []Summary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		sessionID := strings.TrimSuffix(name, ".jsonl")
		events, err := readEventsFromPath(filepath.Join(s.sessionsDir, name))
		if err != nil {
			return nil, err
		}
		summary := Summary{SessionID: sessionID, EventCount: len(events)}
		if len(events) > 0 {
			ts := events[len(events)-1].Timestamp
			summary.LastUpdated = &ts
		}
		summaries = append(summaries, summary)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastUpdated, summaries[j].LastUpdated
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return summaries, nil
}

// LatestSessionID returns the most recently updated session, or "" if none.
func (s *Store) LatestSessionID() (string, error) {
	summaries, err := s.ListSessions()
	if err != nil {
		return "", err
	}
	if len(summaries) == 0 {
		return "", nil
	}
	return summaries[0].SessionID, nil
}

// ClearSession deletes one session's log.
func (s *Store) ClearSession(sessionID string) error {
	path := s.Path(sessionID)
	if _, err := os.Stat(path); err != nil {
		return errutil.Newf(errutil.KindConfig, "session '%s' was not found", sessionID)
	}
	if err := os.Remove(path); err != nil {
		return errutil.Wrapf(errutil.KindIO, err, "removing session file %s", path)
	}
	return nil
}

// ClearAll deletes every session log and returns how many were removed.
func (s *Store) ClearAll() (int, error) {
	if err := s.EnsureDirs(); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return 0, errutil.Wrapf(errutil.KindIO, err, "reading sessions dir %s", s.sessionsDir)
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		if err := os.Remove(filepath.Join(s.sessionsDir, entry.Name())); err != nil {
			return count, errutil.Wrapf(errutil.KindIO, err, "removing session file %s", entry.Name())
		}
		count++
	}
	return count, nil
}

func readEventsFromPath(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errutil.Wrapf(errutil.KindIO, err, "opening session file %s", path)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return nil, errutil.Wrapf(errutil.KindValidation, err, "invalid session event in %s", path)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, errutil.Wrapf(errutil.KindIO, err, "reading session file %s", path)
	}
	return events, nil
}
