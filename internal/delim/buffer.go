package delim

// buffer.go holds the window over the unconsumed tail of the source.
//
// All bytes read from the source but not yet handed out as part of a field
// live in data[start:]. Consuming only moves start forward; the dead prefix
// is compacted away on the next refill, so the arena stays at the size of
// the token being resolved plus one chunk.

import (
	"bytes"
	"io"
)

// DefaultChunkSize is how many bytes are requested from the source per refill.
const DefaultChunkSize = 16 * 1024

// maxEmptyReads bounds consecutive (0, nil) reads before giving up.
const maxEmptyReads = 100

type buffer struct {
	src   io.Reader
	chunk int

	data  []byte
	start int

	eof  bool
	err  error
	peak int
}

func newBuffer(src io.Reader, chunk int) *buffer {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	return &buffer{
		src:   src,
		chunk: chunk,
		data:  make([]byte, 0, chunk),
	}
}

// window returns the unconsumed bytes. The slice is only valid until the
// next fill.
func (b *buffer) window() []byte {
	return b.data[b.start:]
}

// Len returns the number of unconsumed bytes.
func (b *buffer) Len() int {
	return len(b.data) - b.start
}

// exhausted reports whether the buffer is empty and the source has no more data.
func (b *buffer) exhausted() bool {
	return b.Len() == 0 && b.eof
}

// fill reads at most one chunk from the source and appends it to the window.
// It returns false once the source is exhausted.
func (b *buffer) fill() (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	if b.eof {
		return false, nil
	}

	if b.start > 0 {
		n := copy(b.data, b.data[b.start:])
		b.data = b.data[:n]
		b.start = 0
	}

	if cap(b.data)-len(b.data) < b.chunk {
		grown := make([]byte, len(b.data), 2*cap(b.data)+b.chunk)
		copy(grown, b.data)
		b.data = grown
	}

	for empty := 0; empty < maxEmptyReads; empty++ {
		n, err := b.src.Read(b.data[len(b.data) : len(b.data)+b.chunk])
		b.data = b.data[:len(b.data)+n]
		if len(b.data) > b.peak {
			b.peak = len(b.data)
		}

		if err == io.EOF {
			b.eof = true
			return n > 0, nil
		}
		if err != nil {
			b.err = &SourceError{Op: "read source", Err: err}
			// Bytes delivered alongside the error are kept but the error wins.
			return false, b.err
		}
		if n > 0 {
			return true, nil
		}
	}

	b.err = &SourceError{Op: "read source", Err: io.ErrNoProgress}
	return false, b.err
}

// ensure guarantees at least n unconsumed bytes, reading more as needed.
// It returns false only when the source ends first.
func (b *buffer) ensure(n int) (bool, error) {
	for b.Len() < n {
		ok, err := b.fill()
		if err != nil {
			return false, err
		}
		if !ok {
			return b.Len() >= n, nil
		}
	}
	return true, nil
}

// findFrom returns the index (relative to the window) of the first
// occurrence of needle at or after offset. With autoFill it keeps reading
// until the needle shows up or the source is exhausted; -1 means not found.
func (b *buffer) findFrom(needle []byte, offset int, autoFill bool) (int, error) {
	from := offset
	for {
		win := b.window()
		if from < len(win) {
			if i := bytes.Index(win[from:], needle); i >= 0 {
				return from + i, nil
			}
		}
		if !autoFill {
			return -1, nil
		}

		// A match may still begin in the last len(needle)-1 bytes.
		if next := len(win) - len(needle) + 1; next > from {
			from = next
		}

		ok, err := b.fill()
		if err != nil {
			return -1, err
		}
		if !ok {
			return -1, nil
		}
	}
}

// consume drops the first k unconsumed bytes.
func (b *buffer) consume(k int) {
	if k > b.Len() {
		k = b.Len()
	}
	b.start += k
	if b.start == len(b.data) {
		b.data = b.data[:0]
		b.start = 0
	}
}
