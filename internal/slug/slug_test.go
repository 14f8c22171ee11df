package slug

import (
	"strings"
	"testing"
	"time"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Via Roma, 12!!", "via-roma-12"},
		{"  Città   Alta  ", "citta-alta"},
		{"Perché no", "perche-no"},
		{"--già--fatto--", "gia-fatto"},
		{"snake_case ok", "snake_case-ok"},
		{"a - b", "a-b"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Fatalf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	inputs := []string{"Via Roma, 12!!", "ÀÉÎÕÜ çà", "  --x--  ", "Piazza del Popolo 3/B", "tab\tand\nnewline"}
	for _, in := range inputs {
		once := Slugify(in)
		if twice := Slugify(once); twice != once {
			t.Fatalf("Slugify not idempotent for %q: %q then %q", in, once, twice)
		}
		for _, r := range once {
			ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
			if !ok {
				t.Fatalf("unexpected rune %q in %q", r, once)
			}
		}
		if strings.HasPrefix(once, "-") || strings.HasSuffix(once, "-") || strings.Contains(once, "--") {
			t.Fatalf("bad hyphenation in %q", once)
		}
	}
}

func TestEnsureUnique(t *testing.T) {
	known := []string{"via-roma-12", "via-roma-12-2", "casa-blu"}

	if got := EnsureUnique("Via Roma 12", known, ""); got != "via-roma-13" {
		t.Fatalf("expected via-roma-13 got %s", got)
	}
	if got := EnsureUnique("Nuova Casa", known, ""); got != "nuova-casa" {
		t.Fatalf("expected free candidate unchanged got %s", got)
	}
	// the entity's own slug is not a collision
	if got := EnsureUnique("casa-blu", known, "casa-blu"); got != "casa-blu" {
		t.Fatalf("expected own slug kept got %s", got)
	}
	if got := EnsureUnique("   ", known, ""); got != "" {
		t.Fatalf("expected empty for blank candidate got %q", got)
	}
}

func TestEnsureUniqueBumpsTrailingCounter(t *testing.T) {
	tests := []struct {
		candidate string
		known     []string
		want      string
	}{
		{"via-roma-1", []string{"via-roma-1"}, "via-roma-2"},
		{"via-roma-1", []string{"via-roma-1", "via-roma-2"}, "via-roma-3"},
		{"casa", []string{"casa"}, "casa-2"},
		{"casa-2", []string{"casa", "casa-2"}, "casa-3"},
		{"casa-0", []string{"casa-0"}, "casa-2"},
		{"2024", []string{"2024"}, "2024-2"},
		{"casa-", []string{"casa"}, "casa-2"},
	}
	for _, tt := range tests {
		if got := EnsureUnique(tt.candidate, tt.known, ""); got != tt.want {
			t.Fatalf("EnsureUnique(%q, %v): expected %s got %s", tt.candidate, tt.known, tt.want, got)
		}
	}
}

func TestEnsureUniqueIdempotentOnOutput(t *testing.T) {
	known := []string{"casa", "casa-2"}
	first := EnsureUnique("Casa", known, "")
	again := EnsureUnique(first, append(known, first), first)
	if again != first {
		t.Fatalf("expected %s to resolve to itself got %s", first, again)
	}
}

func TestResolverTimestampFallback(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	r := Resolver{Attempts: 2, Now: func() time.Time { return now }, Rand: func() uint64 { return 35 }}
	taken := NewTaken([]string{"casa", "casa-2", "casa-3"})

	want := "casa-" + "loyw3v28"
	if got := r.Resolve("casa", taken, ""); got != want {
		t.Fatalf("expected %s got %s", want, got)
	}

	taken[want] = struct{}{}
	if got := r.Resolve("casa", taken, ""); got != want+"-z" {
		t.Fatalf("expected random tail got %s", got)
	}
}
