package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalWriteAndReplay(t *testing.T) {
	dir := t.TempDir()
	walFile := filepath.Join(dir, "test.wal")

	func() {
		wal, err := OpenWal(walFile)
		require.NoError(t, err)
		defer wal.Close()

		require.NoError(t, wal.Append(WalEntry{Kind: EntryInsert, StringID: "v1", Data: []float32{1, 2, 3}}))
		require.NoError(t, wal.Append(WalEntry{Kind: EntryInsert, StringID: "v2", Data: []float32{4, 5, 6}}))
		require.NoError(t, wal.Append(WalEntry{Kind: EntryDelete, StringID: "v1"}))
	}()

	wal, err := OpenWal(walFile)
	require.NoError(t, err)
	defer wal.Close()

	entries, err := wal.Replay()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, EntryInsert, entries[0].Kind)
	assert.Equal(t, "v1", entries[0].StringID)
	assert.Equal(t, EntryInsert, entries[1].Kind)
	assert.Equal(t, "v2", entries[1].StringID)
	assert.Equal(t, EntryDelete, entries[2].Kind)
	assert.Equal(t, "v1", entries[2].StringID)
}

func TestWalTruncatedEntry(t *testing.T) {
	dir := t.TempDir()
	walFile := filepath.Join(dir, "test.wal")

	func() {
		wal, err := OpenWal(walFile)
		require.NoError(t, err)
		defer wal.Close()
		require.NoError(t, wal.Append(WalEntry{Kind: EntryInsert, StringID: "v1", Data: []float32{1}}))
	}()

	f, err := os.OpenFile(walFile, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{0xFF, 0xFF, 0xFF})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	wal, err := OpenWal(walFile)
	require.NoError(t, err)
	defer wal.Close()

	entries, err := wal.Replay()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWalTruncate(t *testing.T) {
	dir := t.TempDir()
	walFile := filepath.Join(dir, "test.wal")

	wal, err := OpenWal(walFile)
	require.NoError(t, err)
	defer wal.Close()

	require.NoError(t, wal.Append(WalEntry{Kind: EntryCheckpoint}))
	entries, err := wal.Replay()
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, wal.Truncate())

	reopened, err := OpenWal(walFile)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err = reopened.Replay()
	require.NoError(t, err)
	assert.Len(t, entries, 0)
}
