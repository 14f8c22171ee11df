package report

import (
	"fmt"
	"strings"
	"time"
)

var months = [...]string{
	"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
	"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre",
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// FormatDate renders iso as an Italian long date ("05 marzo 2025"). Empty or
// unparseable input falls back to now.
func FormatDate(iso string, now time.Time) string {
	t, ok := ParseDate(iso)
	if !ok {
		t = now
	}
	return fmt.Sprintf("%02d %s %d", t.Day(), months[t.Month()-1], t.Year())
}

// ParseDate accepts the date shapes the calculator emits.
func ParseDate(iso string) (time.Time, bool) {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, iso); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
