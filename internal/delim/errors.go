package delim

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamClosed is returned by any operation on a closed Importer.
	ErrStreamClosed = errors.New("stream closed")

	// ErrInvalidSeparator is returned when the separator is empty or contains
	// a quote or line terminator character.
	ErrInvalidSeparator = errors.New("invalid separator")

	// ErrHeaderConsumed is returned when Header is called a second time.
	ErrHeaderConsumed = errors.New("header already read")

	// ErrHeaderAfterData is returned when Header is called after NextRow.
	ErrHeaderAfterData = errors.New("header requested after data rows were read")

	// ErrUnterminatedQuote is reported in strict mode when the input ends
	// inside a quoted field.
	ErrUnterminatedQuote = errors.New("unterminated quoted field")

	// ErrTrailingQuote is reported in strict mode when a closing quote is
	// followed by something other than a separator or line terminator.
	ErrTrailingQuote = errors.New("extraneous characters after closing quote")
)

// SourceError reports a failed read from the underlying source.
// Read errors are not retried.
type SourceError struct {
	Op  string
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// ParseError is returned in strict mode for malformed quoting.
type ParseError struct {
	// Line is the 1-based line on which the offending row started.
	Line int
	// Field is the 1-based position of the field within its row.
	Field int
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error on line %d, field %d: %v", e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
