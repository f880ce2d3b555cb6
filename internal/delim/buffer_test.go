package delim

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// stallReader never makes progress.
type stallReader struct{}

func (stallReader) Read([]byte) (int, error) { return 0, nil }

func TestBuffer_Ensure(t *testing.T) {
	b := newBuffer(strings.NewReader("abcdef"), 2)

	ok, err := b.ensure(3)
	if err != nil {
		t.Fatalf("ensure(3) error = %v", err)
	}
	if !ok {
		t.Fatal("ensure(3) = false, want true")
	}
	if b.Len() < 3 {
		t.Errorf("Len() = %d, want >= 3", b.Len())
	}

	ok, err = b.ensure(6)
	if err != nil || !ok {
		t.Fatalf("ensure(6) = %v, %v; want true, nil", ok, err)
	}
	if got := string(b.window()); got != "abcdef" {
		t.Errorf("window = %q, want %q", got, "abcdef")
	}

	ok, err = b.ensure(7)
	if err != nil {
		t.Fatalf("ensure(7) error = %v", err)
	}
	if ok {
		t.Error("ensure(7) = true past end of source")
	}
	if got := string(b.window()); got != "abcdef" {
		t.Errorf("window after short ensure = %q, want %q", got, "abcdef")
	}
}

func TestBuffer_FindFrom(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		chunk    int
		needle   string
		offset   int
		autoFill bool
		want     int
	}{
		{name: "found in first chunk", input: "ab,cd", chunk: 16, needle: ",", want: 2, autoFill: true},
		{name: "found after refills", input: "abcdefgh,", chunk: 2, needle: ",", want: 8, autoFill: true},
		{name: "multi-char straddles refill", input: "abc||def", chunk: 4, needle: "||", want: 3, autoFill: true},
		{name: "respects offset", input: "a,b,c", chunk: 16, needle: ",", offset: 2, want: 3, autoFill: true},
		{name: "not found", input: "abcdef", chunk: 2, needle: ",", want: -1, autoFill: true},
		{name: "no autofill stops at window", input: "abcdef,", chunk: 2, needle: ",", want: -1},
		{name: "empty source", input: "", chunk: 4, needle: ",", want: -1, autoFill: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuffer(strings.NewReader(tt.input), tt.chunk)
			if _, err := b.ensure(1); err != nil {
				t.Fatalf("ensure error = %v", err)
			}
			got, err := b.findFrom([]byte(tt.needle), tt.offset, tt.autoFill)
			if err != nil {
				t.Fatalf("findFrom error = %v", err)
			}
			if got != tt.want {
				t.Errorf("findFrom(%q, %d) = %d, want %d", tt.needle, tt.offset, got, tt.want)
			}
		})
	}
}

func TestBuffer_ConsumeCompacts(t *testing.T) {
	b := newBuffer(strings.NewReader(strings.Repeat("x", 100)), 10)

	for i := 0; i < 10; i++ {
		if _, err := b.ensure(10); err != nil {
			t.Fatalf("ensure error = %v", err)
		}
		b.consume(10)
	}

	if b.Len() != 0 {
		t.Errorf("Len() = %d after consuming everything, want 0", b.Len())
	}
	if b.peak > 20 {
		t.Errorf("peak = %d, want <= 20 when consuming chunk by chunk", b.peak)
	}
	if ok, _ := b.ensure(1); ok {
		t.Error("ensure(1) = true after source exhausted")
	}
	if !b.exhausted() {
		t.Error("exhausted() = false, want true")
	}
}

func TestBuffer_ConsumeMoreThanBuffered(t *testing.T) {
	b := newBuffer(strings.NewReader("abc"), 8)
	if _, err := b.ensure(3); err != nil {
		t.Fatal(err)
	}
	b.consume(10)
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestBuffer_SourceErrorIsSticky(t *testing.T) {
	boom := errors.New("disk gone")
	b := newBuffer(io.MultiReader(strings.NewReader("ab"), errReader{boom}), 8)

	if _, err := b.ensure(2); err != nil {
		t.Fatalf("ensure(2) error = %v", err)
	}

	for i := 0; i < 2; i++ {
		_, err := b.ensure(3)
		var srcErr *SourceError
		if !errors.As(err, &srcErr) {
			t.Fatalf("ensure(3) error = %v, want *SourceError", err)
		}
		if !errors.Is(err, boom) {
			t.Errorf("error %v does not wrap the read error", err)
		}
	}
}

func TestBuffer_NoProgress(t *testing.T) {
	b := newBuffer(stallReader{}, 4)
	_, err := b.ensure(1)
	if !errors.Is(err, io.ErrNoProgress) {
		t.Fatalf("ensure error = %v, want io.ErrNoProgress", err)
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
