// Package slug derives URL-safe identifiers from free text and resolves them
// against the set of identifiers already in use.
package slug

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultAttempts is the number of numeric suffixes tried before falling back
// to a timestamp suffix.
const DefaultAttempts = 5

// Slugify lowercases s, strips diacritics and keeps only [a-z0-9_-]; runs of
// whitespace become a single hyphen. An empty result means s carried no usable
// identifier.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	out := strings.Join(strings.Fields(b.String()), "-")
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, "-")
}

// Taken is the set of identifiers already assigned across both record kinds.
type Taken map[string]struct{}

// NewTaken builds a set from slug lists, skipping empty entries.
func NewTaken(lists ...[]string) Taken {
	t := Taken{}
	for _, l := range lists {
		for _, s := range l {
			if s != "" {
				t[s] = struct{}{}
			}
		}
	}
	return t
}

// Has reports whether s is in use.
func (t Taken) Has(s string) bool {
	_, ok := t[s]
	return ok
}

// Resolver picks a free identifier for a candidate.
type Resolver struct {
	Attempts int
	Now      func() time.Time
	Rand     func() uint64
}

var defaultResolver = Resolver{}

// EnsureUnique returns a free identifier for candidate with the default
// resolver.
func EnsureUnique(candidate string, known []string, current string) string {
	return defaultResolver.Resolve(candidate, NewTaken(known), current)
}

// Resolve normalizes candidate and, when it is already taken by another
// entity, bumps its trailing counter: "casa" becomes "casa-2", "casa-2"
// becomes "casa-3". current is the entity's own slug and never
// counts as a collision, so resolving an already unique slug returns it
// unchanged. After Attempts numeric suffixes a base-36 timestamp suffix is
// used, with a random tail if that is taken too.
func (r Resolver) Resolve(candidate string, taken Taken, current string) string {
	base := Slugify(candidate)
	if base == "" {
		return ""
	}
	busy := func(s string) bool { return s != current && taken.Has(s) }
	if !busy(base) {
		return base
	}

	attempts := r.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	root, start := splitCounter(base)
	for n := start; n < start+attempts; n++ {
		c := root + "-" + strconv.Itoa(n)
		if !busy(c) {
			return c
		}
	}

	now := r.Now
	if now == nil {
		now = time.Now
	}
	c := base + "-" + strconv.FormatInt(now().UnixMilli(), 36)
	if !busy(c) {
		return c
	}
	rnd := r.Rand
	if rnd == nil {
		rnd = rand.Uint64
	}
	for {
		next := c + "-" + strconv.FormatUint(rnd()%(36*36*36*36), 36)
		if !busy(next) {
			return next
		}
	}
}

// splitCounter splits a trailing "-N" off s and returns the root with the
// next counter to try. Without a counter the root is s and the next is 2.
func splitCounter(s string) (string, int) {
	i := strings.LastIndexByte(s, '-')
	if i <= 0 || i == len(s)-1 {
		return s, 2
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil || n < 0 {
		return s, 2
	}
	if n < 1 {
		n = 1
	}
	return s[:i], n + 1
}
