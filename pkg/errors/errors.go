package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedFileType = errors.New("invalid file type, please upload a CSV or Excel (.xlsx) file")
	ErrInvalidFileFormat   = errors.New("invalid file format")
	ErrNoDataRows          = errors.New("file has no data rows")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrUnauthenticated     = errors.New("authentication required")
	ErrRateLimited         = errors.New("too many login attempts, try again later")
	ErrMailNotConfigured   = errors.New("email not configured, please go to Settings and configure your email first")
	ErrNoStudentsSelected  = errors.New("no students selected")
	ErrNotFound            = errors.New("not found")
)

// MissingColumnsError names every required column absent from an upload.
type MissingColumnsError struct {
	Columns []string
}

func (e MissingColumnsError) Error() string {
	return "missing columns: " + strings.Join(e.Columns, ", ")
}

type ValidationError struct {
	Row     int         `json:"row"`
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Message string      `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: validation failed for field '%s' with value '%v': %s",
			e.Row, e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

// RowErrors collects every per-row failure of one import.
type RowErrors []ValidationError

func (e RowErrors) Error() string {
	switch len(e) {
	case 0:
		return "no row errors"
	case 1:
		return e[0].Error()
	}
	return fmt.Sprintf("%d errors in %d rows; first: %s", len(e), e.rowCount(), e[0].Error())
}

func (e RowErrors) rowCount() int {
	rows := make(map[int]struct{}, len(e))
	for _, v := range e {
		rows[v.Row] = struct{}{}
	}
	return len(rows)
}

// IsInputError reports whether err is caused by bad client input rather
// than an internal failure.
func IsInputError(err error) bool {
	var missing MissingColumnsError
	var rows RowErrors
	var single ValidationError
	switch {
	case errors.As(err, &missing), errors.As(err, &rows), errors.As(err, &single):
		return true
	case errors.Is(err, ErrUnsupportedFileType),
		errors.Is(err, ErrInvalidFileFormat),
		errors.Is(err, ErrNoDataRows),
		errors.Is(err, ErrMailNotConfigured),
		errors.Is(err, ErrNoStudentsSelected):
		return true
	}
	return false
}
