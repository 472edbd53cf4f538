package audit

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, logPath := DefaultPaths(t.TempDir())
	return NewStore(dir, logPath)
}

func TestAppendCommandWritesOneLinePerEntry(t *testing.T) {
	store := newTestStore(t)

	first := NewEntry("s1", "touch guarded.txt", "/tmp/ws", "flag_yes", 0, 12*time.Millisecond)
	second := NewEntry("s1", "ls", "/tmp/ws", "auto_safe", 0, 3*time.Millisecond)
	require.NoError(t, store.AppendCommand(first))
	require.NoError(t, store.AppendCommand(second))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "touch guarded.txt", decoded["command"])
	assert.Equal(t, "flag_yes", decoded["approved_by"])
	assert.EqualValues(t, 12, decoded["duration_ms"])
}

func TestTailReturnsMostRecentInOrder(t *testing.T) {
	store := newTestStore(t)
	for i, cmd := range []string{"one", "two", "three"} {
		require.NoError(t, store.AppendCommand(NewEntry("s1", cmd, "/", "auto_safe", i, 0)))
	}

	entries, err := store.Tail(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "two", entries[0].Command)
	assert.Equal(t, "three", entries[1].Command)
}

func TestTailMissingLogIsEmpty(t *testing.T) {
	store := newTestStore(t)
	entries, err := store.Tail(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAuditFailedCommandsStillRecorded(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AppendCommand(NewEntry("s1", "false", "/", "user_prompt", 1, time.Millisecond)))
	entries, err := store.Tail(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].ExitCode)
	assert.NotEmpty(t, entries[0].ApprovedBy)
}
