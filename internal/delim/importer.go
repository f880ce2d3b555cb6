package delim

import (
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/argius/stew5/internal/stream"
)

// Row is one record: field values in column order.
//
// The zero-length Row marks the end of the stream. A Row holding a single
// empty string is a data row (an empty line).
type Row []string

// IsEnd reports whether r is the end-of-stream sentinel.
func (r Row) IsEnd() bool {
	return len(r) == 0
}

// Option configures an Importer.
type Option func(*options)

type options struct {
	chunkSize int
	strict    bool
}

// WithChunkSize sets how many bytes are requested from the source per
// refill. Parsing results do not depend on it.
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithStrictQuotes reports malformed quoting as a *ParseError instead of
// resolving it leniently.
func WithStrictQuotes() Option {
	return func(o *options) {
		o.strict = true
	}
}

// Importer reads rows from a delimited text source.
//
// An Importer is not safe for concurrent use. To ingest in parallel, open
// one Importer per source.
type Importer struct {
	sc      *scanner
	buf     *buffer
	closer  io.Closer
	counter *stream.Counter

	closed     bool
	headerRead bool
	rowsRead   int
	line       int
}

// New creates an Importer over r. If r is an io.Closer, Close closes it.
func New(r io.Reader, sep string, opts ...Option) (*Importer, error) {
	if err := ValidateSeparator(sep); err != nil {
		return nil, err
	}

	o := options{chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(&o)
	}

	buf := newBuffer(r, o.chunkSize)
	im := &Importer{
		sc:  newScanner(buf, sep, o.strict),
		buf: buf,
	}
	if c, ok := r.(io.Closer); ok {
		im.closer = c
	}
	if c, ok := r.(*stream.Counter); ok {
		im.counter = c
	}
	return im, nil
}

// Open opens the file at path and returns an Importer over it. A leading
// BOM is skipped and invalid UTF-8 is replaced with '?'.
func Open(path, sep string, opts ...Option) (*Importer, error) {
	if err := ValidateSeparator(sep); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Op: "open source", Err: err}
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	im, err := New(stream.Wrap(f, size), sep, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	im.closer = f
	return im, nil
}

// ValidateSeparator rejects separators the parser cannot tell apart from
// quoting or line structure.
func ValidateSeparator(sep string) error {
	if sep == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSeparator)
	}
	if strings.ContainsAny(sep, "\"\r\n") {
		return fmt.Errorf("%w: %q contains a quote or line terminator", ErrInvalidSeparator, sep)
	}
	return nil
}

// NextRow returns the next row. At the end of the input it returns a
// zero-length Row, and keeps returning it on every later call.
func (im *Importer) NextRow() (Row, error) {
	if im.closed {
		return nil, ErrStreamClosed
	}
	row, err := im.next()
	if err != nil {
		return nil, err
	}
	if !row.IsEnd() {
		im.rowsRead++
	}
	return row, nil
}

// Header reads the first row as the header. It must be called at most once
// and before any NextRow.
func (im *Importer) Header() (Row, error) {
	switch {
	case im.closed:
		return nil, ErrStreamClosed
	case im.headerRead:
		return nil, ErrHeaderConsumed
	case im.rowsRead > 0:
		return nil, ErrHeaderAfterData
	}
	im.headerRead = true
	return im.next()
}

func (im *Importer) next() (Row, error) {
	row, err := im.sc.nextRow()
	if err != nil {
		return nil, err
	}
	if !row.IsEnd() {
		im.line = im.sc.rowLine
	}
	return row, nil
}

// Rows returns an iterator over the remaining rows. Iteration stops at the
// end of the input or after yielding an error.
func (im *Importer) Rows() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for {
			row, err := im.NextRow()
			if err != nil {
				yield(nil, err)
				return
			}
			if row.IsEnd() {
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Line returns the 1-based line on which the most recently returned row
// started, or 0 before the first row.
func (im *Importer) Line() int {
	return im.line
}

// RowsRead returns how many data rows NextRow has returned.
func (im *Importer) RowsRead() int {
	return im.rowsRead
}

// BytesRead returns how many source bytes have been read, when the source
// was opened through Open or wrapped with stream.Wrap. Otherwise 0.
func (im *Importer) BytesRead() int64 {
	if im.counter == nil {
		return 0
	}
	return im.counter.BytesRead()
}

// PeakBuffered returns the largest number of bytes held in memory at once.
func (im *Importer) PeakBuffered() int {
	return im.buf.peak
}

// Close releases the source. Closing twice returns ErrStreamClosed.
func (im *Importer) Close() error {
	if im.closed {
		return ErrStreamClosed
	}
	im.closed = true
	im.buf.data = nil

	if im.closer != nil {
		if err := im.closer.Close(); err != nil {
			return &SourceError{Op: "close source", Err: err}
		}
	}
	return nil
}
