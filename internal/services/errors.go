package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/ownervalue/validation"
	"gorm.io/gorm"
)

// Error kinds. Callers classify with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation")
)

// Error carries a user-facing message and, for validation failures, the
// offending fields.
type Error struct {
	Kind       error
	Message    string
	Violations validation.Violations
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func notFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func invalid(v validation.Violations, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...), Violations: v}
}

// saveError turns a unique index violation on insert into a conflict. A
// concurrent create of the same slug passes the lookup and fails here.
func saveError(err error, entity, key string) error {
	if isDuplicate(err) {
		return conflict("slug %q is already used by a %s", key, entity)
	}
	return fmt.Errorf("save %s: %w", entity, err)
}

// isDuplicate matches gorm's translated error and the raw driver messages,
// since not every connection is opened with TranslateError.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
