package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/diewo77/ownervalue/internal/logger"
)

func TestRecordAndTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	l := Open(path, logger.Discard())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.Record(ctx, Entry{Action: ActionUpsert, Entity: "property", Slug: fmt.Sprintf("p-%d", i)})
	}

	got, err := l.Tail(3)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries got %d", len(got))
	}
	if got[0].Slug != "p-2" || got[2].Slug != "p-4" {
		t.Fatalf("unexpected order %+v", got)
	}
	if got[0].ID == "" || got[0].Time.IsZero() {
		t.Fatalf("expected id and time to be filled: %+v", got[0])
	}
}

func TestTailSkipsGarbageAndMissingFile(t *testing.T) {
	dir := t.TempDir()
	l := Open(filepath.Join(dir, "none.log"), logger.Discard())
	got, err := l.Tail(10)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty tail got %v %v", got, err)
	}

	path := filepath.Join(dir, "mixed.log")
	content := "not json\n{\"id\":\"a\",\"action\":\"delete\",\"entity\":\"prospect\",\"slug\":\"x\"}\n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = Open(path, logger.Discard()).Tail(10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected entries %+v", got)
	}
}

func TestRecordConcurrent(t *testing.T) {
	l := Open(filepath.Join(t.TempDir(), "audit.log"), logger.Discard())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Record(context.Background(), Entry{Action: ActionDelete, Entity: "prospect", Slug: fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()
	got, err := l.Tail(MaxTail + 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("expected 20 entries got %d", len(got))
	}
}

func TestRecordFailureDoesNotPanic(t *testing.T) {
	dir := t.TempDir()
	// a directory in place of the file makes every append fail
	path := filepath.Join(dir, "audit.log")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	Open(path, logger.Discard()).Record(context.Background(), Entry{Action: ActionUpsert})
}
