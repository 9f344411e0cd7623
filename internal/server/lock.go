package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// LockRecord is the on-disk marker for a running review server. It lets a
// later invocation discover an active session and clean up after a crash.
type LockRecord struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	StartedAt time.Time `json:"startedAt"`
}

func writeLockRecord(path string, record LockRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode lock record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write lock record: %w", err)
	}
	return nil
}

func readLockRecord(path string) (LockRecord, error) {
	var record LockRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return record, err
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("decode lock record %s: %w", path, err)
	}
	return record, nil
}

// InspectLock examines an existing lock record at startup. A record naming
// a dead process is stale and removed silently; a record naming a live
// foreign process means another session owns a server, which is surfaced
// as a warning, never terminated.
func InspectLock(path string, logger *slog.Logger) {
	record, err := readLockRecord(path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		logger.Warn("unreadable server lock, removing", slog.String("path", path), slog.String("error", err.Error()))
		_ = os.Remove(path)
		return
	}
	if record.PID == os.Getpid() {
		return
	}
	if processAlive(record.PID) {
		logger.Warn("another review server appears to be running",
			slog.Int("pid", record.PID),
			slog.Int("port", record.Port))
		return
	}
	_ = os.Remove(path)
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return errors.Is(err, unix.EPERM)
}
