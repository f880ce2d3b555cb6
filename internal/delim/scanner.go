package delim

import (
	"bytes"
)

const quote = '"'

var quoteBytes = []byte{quote}

// state is the per-field position of the scanner.
type state int

const (
	stateFieldStart state = iota
	stateQuoted
	stateUnquoted
	stateFieldEnd
)

// boundaryKind says what ended a field.
type boundaryKind int

const (
	boundarySeparator boundaryKind = iota
	boundaryLine
	boundaryEnd
)

// boundary is the position (relative to the window) and width of whatever
// closes the current field. For boundaryEnd the width is zero.
type boundary struct {
	kind  boundaryKind
	pos   int
	width int
}

// scanner turns buffered bytes into fields and fields into rows.
type scanner struct {
	buf    *buffer
	sep    []byte
	strict bool

	lines   int // physical lines fully consumed
	rowLine int // 1-based line the current row started on
	done    bool
	err     error
}

func newScanner(buf *buffer, sep string, strict bool) *scanner {
	return &scanner{
		buf:    buf,
		sep:    []byte(sep),
		strict: strict,
	}
}

// nextRow returns the next row, or a zero-length row once the input is
// exhausted. Errors are sticky.
func (s *scanner) nextRow() (Row, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.done {
		return Row{}, nil
	}

	ok, err := s.buf.ensure(1)
	if err != nil {
		s.err = err
		return nil, err
	}
	if !ok {
		s.done = true
		return Row{}, nil
	}

	s.rowLine = s.lines + 1

	var row Row
	for n := 1; ; n++ {
		value, last, err := s.nextField(n)
		if err != nil {
			s.err = err
			return nil, err
		}
		row = append(row, value)
		if last {
			return row, nil
		}
	}
}

// nextField scans one field. last reports whether the field closed the row.
func (s *scanner) nextField(n int) (value string, last bool, err error) {
	st := stateFieldStart
	quoted := false
	from := 0

	for {
		switch st {
		case stateFieldStart:
			ok, err := s.buf.ensure(1)
			if err != nil {
				return "", false, err
			}
			if !ok {
				// Separator right before end of input: empty trailing field.
				return "", true, nil
			}
			if s.buf.window()[0] == quote {
				st = stateQuoted
				from = 1
			} else {
				st = stateUnquoted
			}

		case stateQuoted:
			quoted = true
			q, err := s.buf.findFrom(quoteBytes, from, true)
			if err != nil {
				return "", false, err
			}
			if q < 0 {
				if s.strict {
					return "", false, &ParseError{Line: s.rowLine, Field: n, Err: ErrUnterminatedQuote}
				}
				win := s.buf.window()
				value = unescapeQuotes(win[1:])
				s.advance(len(win))
				s.done = true
				return value, true, nil
			}

			more, err := s.buf.ensure(q + 2)
			if err != nil {
				return "", false, err
			}
			if more && s.buf.window()[q+1] == quote {
				from = q + 2
				continue
			}

			value = unescapeQuotes(s.buf.window()[1:q])
			from = q + 1
			st = stateFieldEnd

		case stateUnquoted:
			from = 0
			st = stateFieldEnd

		case stateFieldEnd:
			b, err := s.nextBoundary(from)
			if err != nil {
				return "", false, err
			}
			if quoted {
				if s.strict && b.pos != from {
					return "", false, &ParseError{Line: s.rowLine, Field: n, Err: ErrTrailingQuote}
				}
			} else {
				value = unescapeQuotes(s.buf.window()[:b.pos])
			}
			s.advance(b.pos + b.width)
			return value, b.kind != boundarySeparator, nil
		}
	}
}

// nextBoundary finds the nearer of the separator or a line terminator at or
// after from, refilling one chunk at a time. If neither turns up before the
// source ends, the boundary is the end of the window.
func (s *scanner) nextBoundary(from int) (boundary, error) {
	for {
		win := s.buf.window()
		if b, ok := scanBoundary(win, from, s.sep); ok {
			if b.kind == boundaryLine && win[b.pos] == '\r' && b.pos+1 == len(win) {
				// Lone CR at the edge: peek one more byte for CRLF.
				more, err := s.buf.ensure(b.pos + 2)
				if err != nil {
					return boundary{}, err
				}
				if more && s.buf.window()[b.pos+1] == '\n' {
					b.width = 2
				}
			}
			return b, nil
		}

		if next := len(win) - len(s.sep) + 1; next > from {
			from = next
		}

		ok, err := s.buf.fill()
		if err != nil {
			return boundary{}, err
		}
		if !ok {
			return boundary{kind: boundaryEnd, pos: s.buf.Len()}, nil
		}
	}
}

// advance consumes k bytes and keeps the physical line count current.
func (s *scanner) advance(k int) {
	s.lines += countLines(s.buf.window()[:k])
	s.buf.consume(k)
}

// scanBoundary reports the first separator or line terminator in win at or
// after from. A CR in the last byte of win is reported with width 1; the
// caller decides whether more input could turn it into CRLF.
func scanBoundary(win []byte, from int, sep []byte) (boundary, bool) {
	if from > len(win) {
		return boundary{}, false
	}
	rest := win[from:]

	line := bytes.IndexAny(rest, "\r\n")
	head := rest
	if line >= 0 {
		head = rest[:line]
	}
	// The separator never contains CR or LF, so any match before the
	// terminator is complete.
	if i := bytes.Index(head, sep); i >= 0 {
		return boundary{kind: boundarySeparator, pos: from + i, width: len(sep)}, true
	}
	if line < 0 {
		return boundary{}, false
	}

	pos := from + line
	width := 1
	if win[pos] == '\r' && pos+1 < len(win) && win[pos+1] == '\n' {
		width = 2
	}
	return boundary{kind: boundaryLine, pos: pos, width: width}, true
}

// unescapeQuotes collapses every "" pair into a single quote.
func unescapeQuotes(raw []byte) string {
	if bytes.IndexByte(raw, quote) < 0 {
		return string(raw)
	}
	return string(bytes.ReplaceAll(raw, []byte(`""`), quoteBytes))
}

// countLines counts LF, CRLF and lone CR terminators in p.
func countLines(p []byte) int {
	n := 0
	for i, c := range p {
		switch c {
		case '\n':
			n++
		case '\r':
			if i+1 >= len(p) || p[i+1] != '\n' {
				n++
			}
		}
	}
	return n
}
