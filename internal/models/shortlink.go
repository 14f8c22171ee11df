package models

import (
	"strings"
	"time"
)

// ShortLink maps a short code to a redirect target. Targets are absolute
// http(s) URLs or site-relative paths.
type ShortLink struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Target    string    `gorm:"size:2048;not null" json:"target"`
	Note      string    `gorm:"not null;default:''" json:"note"`
	Hits      int64     `gorm:"not null;default:0" json:"hits"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsRelative reports whether the target is a path on this site.
func (l *ShortLink) IsRelative() bool {
	return strings.HasPrefix(l.Target, "/") && !strings.HasPrefix(l.Target, "//")
}
