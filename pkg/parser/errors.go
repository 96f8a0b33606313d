package parser

import (
	"fmt"
	"strings"
)

// MissingColumnError is returned when a statement lacks a required column
// after synonym mapping.
type MissingColumnError struct {
	Column string
	Found  []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q, found columns: [%s]", e.Column, strings.Join(e.Found, ", "))
}

// FileParseError wraps any failure to read the structure of a statement file.
type FileParseError struct {
	Filename string
	Err      error
}

func (e *FileParseError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("failed to parse file: %v", e.Err)
	}
	return fmt.Sprintf("failed to parse %s: %v", e.Filename, e.Err)
}

func (e *FileParseError) Unwrap() error {
	return e.Err
}
