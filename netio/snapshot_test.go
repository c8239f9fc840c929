package netio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSnapshotAtomicProducesValidJSONAndNoTempLeftover(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aircraft.pb")

	snap := AircraftSnapshot{
		Now:      1000,
		Messages: 42,
		Aircraft: []AircraftSnapshotItem{{Hex: "4840d6", Flight: "KLM1023", Seen: 1.5}},
	}
	require.NoError(t, WriteSnapshotAtomic(path, snap))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got AircraftSnapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, snap, got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteSnapshotAtomicOverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.pb")

	require.NoError(t, WriteSnapshotAtomic(path, StatsSnapshot{MessagesTotal: 1}))
	require.NoError(t, WriteSnapshotAtomic(path, StatsSnapshot{MessagesTotal: 2}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got StatsSnapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, int64(2), got.MessagesTotal)
}

func TestHistoryPathWrapsModulo120(t *testing.T) {
	assert.Equal(t, HistoryPath("/tmp", 0), HistoryPath("/tmp", 120))
	assert.NotEqual(t, HistoryPath("/tmp", 1), HistoryPath("/tmp", 2))
}
