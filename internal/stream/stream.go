// Package stream provides io.Reader wrappers applied to import sources
// before they reach the delimited-text parser.
//
//   - BOMSkipper drops a leading UTF-8 byte order mark (Windows exports)
//   - Sanitizer replaces invalid UTF-8 bytes with '?'
//   - Counter tracks bytes handed to the parser for progress reporting
//
// Use Wrap to apply all three in the right order. Every wrapper keeps
// O(1) state regardless of input size.
package stream

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// BOMSkipper wraps an io.Reader and drops a UTF-8 BOM at the very start.
type BOMSkipper struct {
	r       *bufio.Reader
	checked bool
}

// NewBOMSkipper creates a BOM-skipping reader.
func NewBOMSkipper(r io.Reader) *BOMSkipper {
	return &BOMSkipper{r: bufio.NewReaderSize(r, 16)}
}

// Read implements io.Reader.
func (b *BOMSkipper) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(bom))
		if err != nil && err != io.EOF {
			return 0, err
		}
		if bytes.Equal(head, bom) {
			if _, err := b.r.Discard(len(bom)); err != nil {
				return 0, err
			}
		}
	}
	return b.r.Read(p)
}

// Sanitizer replaces invalid UTF-8 bytes with '?' on the fly. A multi-byte
// sequence split across two reads is held back until it is complete.
//
// '?' keeps the output no longer than the input, so the replacement is done
// in place in the sanitizer's own read buffer.
type Sanitizer struct {
	r   io.Reader
	buf []byte

	ready []byte
	tail  []byte // incomplete sequence carried to the next read
	err   error
}

// NewSanitizer creates a streaming UTF-8 sanitizer.
func NewSanitizer(r io.Reader) *Sanitizer {
	return &Sanitizer{
		r:   r,
		buf: make([]byte, 4096),
	}
}

// Read implements io.Reader.
func (s *Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(s.ready) == 0 {
		if s.err != nil {
			return 0, s.err
		}

		held := copy(s.buf, s.tail)
		s.tail = nil

		n, err := s.r.Read(s.buf[held:])
		if n == 0 && err == nil {
			s.tail = s.buf[:held]
			return 0, nil
		}
		s.err = err

		data := s.buf[:held+n]
		if err == nil {
			if t := incompleteTail(data); t > 0 {
				s.tail = data[len(data)-t:]
				data = data[:len(data)-t]
			}
		}
		s.ready = data[:sanitize(data)]
	}

	n := copy(p, s.ready)
	s.ready = s.ready[n:]
	return n, nil
}

// sanitize rewrites data in place and returns the new length.
func sanitize(data []byte) int {
	if isASCII(data) || utf8.Valid(data) {
		return len(data)
	}

	w := 0
	for r := 0; r < len(data); {
		c, size := utf8.DecodeRune(data[r:])
		if c == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			r++
			continue
		}
		copy(data[w:], data[r:r+size])
		w += size
		r += size
	}
	return w
}

func isASCII(p []byte) bool {
	for _, c := range p {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// incompleteTail returns the length of a multi-byte sequence at the end of
// p that has started but not finished, or 0.
func incompleteTail(p []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(p); i++ {
		c := p[len(p)-i]
		if utf8.RuneStart(c) {
			if c >= 0xC0 && seqLen(c) > i {
				return i
			}
			return 0
		}
	}
	return 0
}

// seqLen returns the encoded length announced by a leading byte.
func seqLen(c byte) int {
	switch {
	case c < 0xC0:
		return 1
	case c < 0xE0:
		return 2
	case c < 0xF0:
		return 3
	default:
		return 4
	}
}

// Counter counts bytes read through it.
type Counter struct {
	r     io.Reader
	read  int64
	total int64
}

// NewCounter creates a counting reader; total is the expected size or 0.
func NewCounter(r io.Reader, total int64) *Counter {
	return &Counter{r: r, total: total}
}

// Read implements io.Reader.
func (c *Counter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (c *Counter) BytesRead() int64 {
	return c.read
}

// Total returns the expected size passed to NewCounter.
func (c *Counter) Total() int64 {
	return c.total
}

// Progress returns read progress as a percentage (0-100), or 0 when the
// total is unknown.
func (c *Counter) Progress() int {
	if c.total <= 0 {
		return 0
	}
	pct := int(c.read * 100 / c.total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Wrap applies BOM skipping, UTF-8 sanitizing and byte counting.
//
// The BOM goes first so the sanitizer never sees it; counting wraps the
// result so progress reflects what the parser received.
func Wrap(r io.Reader, size int64) *Counter {
	return NewCounter(NewSanitizer(NewBOMSkipper(r)), size)
}
