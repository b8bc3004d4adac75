package dataio

import (
	"errors"
	"fmt"
	"strings"
)

// File-level errors abort an import before any record is processed.
var (
	ErrEmptyFile    = errors.New("file is empty")
	ErrFileTooLarge = fmt.Errorf("File size exceeds maximum limit of %dMB", MaxFileSize/(1024*1024))
	ErrEncoding     = errors.New("file is not valid UTF-8")

	// ErrMalformedInput marks structural problems: bad JSON, a JSON value
	// that is not an array of objects, or a CSV body without a usable header.
	ErrMalformedInput = errors.New("malformed input")

	// ErrImportAborted wraps an unexpected storage failure. All mutations
	// from the batch are rolled back when it is returned.
	ErrImportAborted = errors.New("import aborted")
)

// MissingColumnsError reports required columns absent from the file header
// (or first JSON object).
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Missing, ", ")
}
