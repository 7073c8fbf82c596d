package core

import (
	"fmt"
	"strings"
)

// ImportFormatError aborts a whole import batch: either no header row was
// recognised or required columns are missing.
type ImportFormatError struct {
	Reason  string
	Missing []Field
}

func (e *ImportFormatError) Error() string {
	if len(e.Missing) == 0 {
		return "import format: " + e.Reason
	}
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("import format: %s: %s", e.Reason, strings.Join(names, ", "))
}

func (e *ImportFormatError) Unwrap() error { return ErrImportFormat }

// ImportRowError reports one skipped data row. Rows are numbered from 1 as
// in the source sheet.
type ImportRowError struct {
	Row   int
	Field Field
	Err   error
}

func (e *ImportRowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d: %s: %v", e.Row, e.Field, e.Err)
}

// Unwrap exposes both ErrImportRow and the underlying cause.
func (e *ImportRowError) Unwrap() []error { return []error{ErrImportRow, e.Err} }
