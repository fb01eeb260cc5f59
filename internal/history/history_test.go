// # internal/history/history_test.go
package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	snaps := []Snapshot{
		{RunID: "run-1", Timestamp: base, ModuleCount: 3, PassCount: 7, ErrorCount: 2, WarningCount: 5, UnusedCount: 1, ConvergedCount: 3},
		{RunID: "run-2", Timestamp: base.Add(time.Hour), ModuleCount: 3, PassCount: 6, ErrorCount: 0, WarningCount: 4, UnusedCount: 1, ConvergedCount: 3},
	}
	for _, s := range snaps {
		require.NoError(t, store.Record(s))
	}

	recent, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "run-2", recent[0].RunID)
	assert.Equal(t, "run-1", recent[1].RunID)
	assert.Equal(t, 2, recent[1].ErrorCount)
	assert.Equal(t, base.Unix(), recent[1].Timestamp.Unix())
}

func TestStoreDuplicateRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	snap := Snapshot{RunID: "run-1", Timestamp: time.Now()}
	require.NoError(t, store.Record(snap))
	assert.Error(t, store.Record(snap))
}

func TestOpenValidation(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)

	_, err = Open(t.TempDir())
	assert.Error(t, err)
}

func TestSchemaReapply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening applies no further migrations and keeps data intact.
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	recent, err := store.Recent(1)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
