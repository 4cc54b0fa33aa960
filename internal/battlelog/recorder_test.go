package battlelog

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenaclash/arenaclash/internal/battle"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestRecorderFlushRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "battle-test.jsonl")
	rec := newRecorder("test", path, quartz.NewMock(t))

	rec.Record(Entry{Kind: KindInitialized, Seed: 42, FeeBPS: 250})
	rec.Record(Entry{Kind: KindSubmission, Caller: "alice", Round: 1, Slot: 0, Stance: "aggressive"})
	rec.Record(Entry{Kind: KindCompleted})
	require.NoError(t, rec.Flush())

	entries, err := ReadLog(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, KindInitialized, entries[0].Kind)
	assert.Equal(t, int64(42), entries[0].Seed)
	assert.Equal(t, "alice", entries[1].Caller)
	assert.Equal(t, "aggressive", entries[1].Stance)
	assert.Equal(t, KindCompleted, entries[2].Kind)
}

func TestRecorderFlushIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "battle-test.jsonl")
	rec := newRecorder("test", path, quartz.NewMock(t))

	rec.Record(Entry{Kind: KindInitialized})
	require.NoError(t, rec.Flush())

	// A second flush with nothing new must not rewrite the file.
	require.NoError(t, rec.Flush())
	entries, err := ReadLog(path)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestManagerShutdownDrainsRecorders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mgr, err := NewManager(dir, time.Minute, quartz.NewMock(t), quietLogger())
	require.NoError(t, err)

	rec := mgr.Recorder("abc")
	rec.Record(Entry{Kind: KindInitialized, Seed: 7})
	rec.Record(Entry{Kind: KindRound, Round: 1, Result: &battle.RoundResult{Round: 1, HP: [2]uint32{480, 490}}})

	mgr.Shutdown()

	entries, err := ReadLog(filepath.Join(dir, "battle-abc.jsonl"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, [2]uint32{480, 490}, entries[1].Result.HP)
}

func TestManagerRecorderReuse(t *testing.T) {
	t.Parallel()

	mgr, err := NewManager(t.TempDir(), time.Minute, quartz.NewMock(t), quietLogger())
	require.NoError(t, err)
	defer mgr.Shutdown()

	assert.Same(t, mgr.Recorder("abc"), mgr.Recorder("abc"))
}

func TestManagerRemoveFlushes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mgr, err := NewManager(dir, time.Minute, quartz.NewMock(t), quietLogger())
	require.NoError(t, err)
	defer mgr.Shutdown()

	mgr.Recorder("gone").Record(Entry{Kind: KindInitialized})
	require.NoError(t, mgr.Remove("gone"))

	entries, err := ReadLog(filepath.Join(dir, "battle-gone.jsonl"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// Removing an unknown session is a no-op.
	require.NoError(t, mgr.Remove("never-existed"))
}
