package delim

import (
	"bufio"
	"io"
	"strings"
)

// Writer writes rows as delimited text that an Importer with the same
// separator reads back unchanged.
type Writer struct {
	w       *bufio.Writer
	sep     string
	newline string
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCRLF terminates rows with CRLF instead of LF.
func WithCRLF(useCRLF bool) WriterOption {
	return func(w *Writer) {
		if useCRLF {
			w.newline = "\r\n"
		} else {
			w.newline = "\n"
		}
	}
}

// NewWriter creates a Writer. The separator follows the same rules as for
// reading.
func NewWriter(w io.Writer, sep string, opts ...WriterOption) (*Writer, error) {
	if err := ValidateSeparator(sep); err != nil {
		return nil, err
	}
	dw := &Writer{
		w:       bufio.NewWriter(w),
		sep:     sep,
		newline: "\n",
	}
	for _, opt := range opts {
		opt(dw)
	}
	return dw, nil
}

// Write writes one row followed by a line terminator.
//
// A row with no fields is written as an empty line and so reads back as a
// row with one empty field.
func (w *Writer) Write(row []string) error {
	for i, field := range row {
		if i > 0 {
			if _, err := w.w.WriteString(w.sep); err != nil {
				return err
			}
		}
		if err := w.writeField(field); err != nil {
			return err
		}
	}
	_, err := w.w.WriteString(w.newline)
	return err
}

func (w *Writer) writeField(field string) error {
	if !w.needsQuotes(field) {
		_, err := w.w.WriteString(field)
		return err
	}
	if err := w.w.WriteByte(quote); err != nil {
		return err
	}
	if _, err := w.w.WriteString(strings.ReplaceAll(field, `"`, `""`)); err != nil {
		return err
	}
	return w.w.WriteByte(quote)
}

// needsQuotes reports whether field must be quoted to survive a round trip.
func (w *Writer) needsQuotes(field string) bool {
	if field == "" {
		return false
	}
	if strings.Contains(field, w.sep) || strings.ContainsAny(field, "\"\r\n") {
		return true
	}
	// "a|" followed by "||" would read back as "a" then "|...".
	for k := 1; k < len(w.sep); k++ {
		if strings.HasSuffix(field, w.sep[:k]) {
			return true
		}
	}
	return field[0] == ' ' || field[0] == '\t' || field[len(field)-1] == ' '
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
