package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	errs "jmdict/pkg/errors"
	"jmdict/pkg/logger"
)

// Info is the content of a lock file
type Info struct {
	PID        int       `json:"pid"`
	Host       string    `json:"host"`
	DateKey    string    `json:"date_key"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Age returns how long the lock has been held at now
func (i *Info) Age(now time.Time) time.Duration {
	return now.Sub(i.AcquiredAt)
}

// Manager handles the advisory lock guarding one dated run
type Manager struct {
	path       string
	staleAfter time.Duration
	logger     logger.Logger
	now        func() time.Time
}

// NewManager creates a lock manager for the lock file at path
func NewManager(path string, staleAfter time.Duration, log logger.Logger) *Manager {
	return &Manager{
		path:       path,
		staleAfter: staleAfter,
		logger:     logger.OrDefault(log),
		now:        time.Now,
	}
}

// Path returns the lock file path
func (m *Manager) Path() string {
	return m.path
}

// Acquire takes the lock for dateKey. A lock held longer than the stale
// threshold is broken once. The returned func releases the lock.
func (m *Manager) Acquire(dateKey string) (func() error, error) {
	info, err := m.create(dateKey)
	if errors.Is(err, fs.ErrExist) {
		if !m.breakStale() {
			holder, _ := m.Load()
			return nil, m.lockedError(holder)
		}
		info, err = m.create(dateKey)
	}
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			holder, _ := m.Load()
			return nil, m.lockedError(holder)
		}
		return nil, errs.New(errs.ErrorTypeWrite, "lock", err).WithPath(m.path)
	}

	m.logger.DebugWithFields("Lock acquired", map[string]interface{}{
		"path":     m.path,
		"date_key": dateKey,
		"pid":      info.PID,
	})

	return func() error {
		return m.release(info)
	}, nil
}

// create writes the lock file, failing with fs.ErrExist if it is already present
func (m *Manager) create(dateKey string) (*Info, error) {
	file, err := os.OpenFile(m.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	host, _ := os.Hostname()
	info := &Info{
		PID:        os.Getpid(),
		Host:       host,
		DateKey:    dateKey,
		AcquiredAt: m.now(),
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(info); err != nil {
		file.Close()
		os.Remove(m.path)
		return nil, fmt.Errorf("failed to encode lock: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(m.path)
		return nil, fmt.Errorf("failed to sync lock file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(m.path)
		return nil, fmt.Errorf("failed to close lock file: %w", err)
	}

	return info, nil
}

// breakStale removes the existing lock if it is older than the stale
// threshold, reporting whether it did. An unreadable lock is aged by its
// modification time.
func (m *Manager) breakStale() bool {
	now := m.now()

	var age time.Duration
	holder, err := m.Load()
	switch {
	case err == nil && holder != nil:
		age = holder.Age(now)
	default:
		stat, statErr := os.Stat(m.path)
		if statErr != nil {
			// vanished in between; let the caller retry the create
			return errors.Is(statErr, fs.ErrNotExist)
		}
		age = now.Sub(stat.ModTime())
	}

	if age < m.staleAfter {
		return false
	}

	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.WithError(err).Warn("Failed to remove stale lock")
		return false
	}

	m.logger.WarnWithFields("Stale lock removed", map[string]interface{}{
		"path": m.path,
		"age":  age,
	})
	return true
}

// release removes the lock file if it still belongs to info
func (m *Manager) release(info *Info) error {
	holder, err := m.Load()
	if err != nil {
		return err
	}
	if holder == nil || holder.PID != info.PID || !holder.AcquiredAt.Equal(info.AcquiredAt) {
		m.logger.Warn("Lock was taken over before release")
		return nil
	}

	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove lock: %w", err)
	}

	m.logger.Debug("Lock released")
	return nil
}

// Load reads the current lock holder, returning nil when no lock exists
func (m *Manager) Load() (*Info, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	defer file.Close()

	var info Info
	if err := json.NewDecoder(file).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode lock: %w", err)
	}

	return &info, nil
}

func (m *Manager) lockedError(holder *Info) error {
	err := fmt.Errorf("another run holds the lock")
	if holder != nil {
		err = fmt.Errorf("another run (pid %d on %s, since %s) holds the lock",
			holder.PID, holder.Host, holder.AcquiredAt.Format(time.RFC3339))
	}
	return errs.New(errs.ErrorTypeLocked, "lock", err).WithPath(m.path)
}
