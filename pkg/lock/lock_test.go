package lock

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "jmdict/pkg/errors"
	"jmdict/pkg/logger"
)

func newTestManager(t *testing.T, staleAfter time.Duration) (*Manager, *logger.TestLogger) {
	t.Helper()
	log := logger.NewTestLogger()
	path := filepath.Join(t.TempDir(), ".JMdict_e-5-3-2024.lock")
	return NewManager(path, staleAfter, log), log
}

func TestAcquireAndRelease(t *testing.T) {
	mgr, _ := newTestManager(t, time.Hour)

	release, err := mgr.Acquire("5-3-2024")
	require.NoError(t, err)
	require.NotNil(t, release)

	info, err := mgr.Load()
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.Equal(t, "5-3-2024", info.DateKey)

	require.NoError(t, release())
	assert.NoFileExists(t, mgr.Path())

	info, err = mgr.Load()
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestAcquireWhileHeld(t *testing.T) {
	mgr, _ := newTestManager(t, time.Hour)

	release, err := mgr.Acquire("5-3-2024")
	require.NoError(t, err)
	defer release()

	second := NewManager(mgr.Path(), time.Hour, logger.NewNopLogger())
	_, err = second.Acquire("5-3-2024")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeLocked))
	assert.Contains(t, err.Error(), mgr.Path())

	// the holder's lock is untouched
	assert.FileExists(t, mgr.Path())
}

func TestAcquireBreaksStaleLock(t *testing.T) {
	mgr, log := newTestManager(t, time.Hour)

	old := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return old }
	_, err := mgr.Acquire("5-3-2024")
	require.NoError(t, err)

	mgr.now = func() time.Time { return old.Add(2 * time.Hour) }
	release, err := mgr.Acquire("5-3-2024")
	require.NoError(t, err)
	defer release()

	assert.True(t, log.HasMessage("Stale lock removed"))

	info, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, old.Add(2*time.Hour), info.AcquiredAt.UTC())
}

func TestAcquireBreaksCorruptStaleLock(t *testing.T) {
	mgr, _ := newTestManager(t, time.Minute)

	require.NoError(t, os.WriteFile(mgr.Path(), []byte("not json"), 0644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(mgr.Path(), past, past))

	release, err := mgr.Acquire("5-3-2024")
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestReleaseAfterTakeover(t *testing.T) {
	mgr, log := newTestManager(t, time.Hour)

	release, err := mgr.Acquire("5-3-2024")
	require.NoError(t, err)

	// another process replaced the lock
	require.NoError(t, os.Remove(mgr.Path()))
	other := NewManager(mgr.Path(), time.Hour, logger.NewNopLogger())
	other.now = func() time.Time { return time.Now().Add(time.Minute) }
	_, err = other.Acquire("5-3-2024")
	require.NoError(t, err)

	require.NoError(t, release())
	assert.FileExists(t, mgr.Path())
	assert.True(t, log.HasMessage("Lock was taken over before release"))
}
