// Package audit appends one JSON line per mutation to a local log file.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxTail bounds the number of entries Tail returns.
const MaxTail = 500

// Actions recorded by the service.
const (
	ActionUpsert  = "upsert"
	ActionDelete  = "delete"
	ActionAssign  = "assign"
	ActionRestore = "restore"
)

// Entry is one audit line.
type Entry struct {
	ID     string         `json:"id"`
	Time   time.Time      `json:"ts"`
	Action string         `json:"action"`
	Entity string         `json:"entity"`
	Slug   string         `json:"slug"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Recorder receives audit entries. Implementations must never block the
// caller on failure.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}

// Log is a file-backed Recorder safe for concurrent use.
type Log struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
	now  func() time.Time
}

// Open returns a log appending to path. The file is created on first write.
func Open(path string, log *slog.Logger) *Log {
	return &Log{path: path, log: log, now: time.Now}
}

// Record fills ID and time and appends the entry. Failures are logged as
// warnings.
func (l *Log) Record(ctx context.Context, e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = l.now().UTC()
	}
	if err := l.append(e); err != nil {
		l.log.WarnContext(ctx, "audit append failed", "action", e.Action, "entity", e.Entity, "slug", e.Slug, "error", err)
	}
}

func (l *Log) append(e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Tail returns up to n of the most recent entries, oldest first. n is clamped
// to [1, MaxTail]. Unreadable lines are skipped; a missing file yields none.
func (l *Log) Tail(n int) ([]Entry, error) {
	if n <= 0 {
		n = 1
	}
	if n > MaxTail {
		n = MaxTail
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	defer f.Close()

	ring := make([]Entry, 0, n)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("audit: read: %w", err)
	}
	return ring, nil
}
