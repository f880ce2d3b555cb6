package stream

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestBOMSkipper(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...),
			expected: "hello,world",
		},
		{
			name:     "file without BOM",
			input:    []byte("hello,world"),
			expected: "hello,world",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
		{
			name:     "BOM in the middle is kept",
			input:    append([]byte("ab"), 0xEF, 0xBB, 0xBF),
			expected: "ab\xEF\xBB\xBF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewBOMSkipper(bytes.NewReader(tt.input))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestSanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "valid ASCII",
			input:    []byte("hello,world"),
			expected: "hello,world",
		},
		{
			name:     "valid UTF-8 with multibyte",
			input:    []byte("grüße,東京"),
			expected: "grüße,東京",
		},
		{
			name:     "invalid single byte replaced",
			input:    []byte{'h', 'e', 0x80, 'l', 'o'},
			expected: "he?lo",
		},
		{
			name:     "truncated sequence at end of input",
			input:    []byte{'a', 0xE6, 0x9D},
			expected: "a??",
		},
		{
			name:     "empty input",
			input:    []byte{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewSanitizer(bytes.NewReader(tt.input))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

// Multi-byte characters split across reads must not be mangled.
func TestSanitizer_SplitSequences(t *testing.T) {
	input := strings.Repeat("東京,ü\n", 50)

	for _, name := range []string{"one byte reader", "one byte buffer"} {
		t.Run(name, func(t *testing.T) {
			var src io.Reader = strings.NewReader(input)
			if name == "one byte reader" {
				src = iotest.OneByteReader(src)
			}
			s := NewSanitizer(src)

			var out bytes.Buffer
			p := make([]byte, 1)
			for {
				n, err := s.Read(p)
				out.Write(p[:n])
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			if out.String() != input {
				t.Errorf("got %q, want input unchanged", out.String())
			}
		})
	}
}

func TestSanitizer_PassesErrors(t *testing.T) {
	boom := io.ErrUnexpectedEOF
	s := NewSanitizer(io.MultiReader(strings.NewReader("ok"), iotest.ErrReader(boom)))
	got, err := io.ReadAll(s)
	if err != boom {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if string(got) != "ok" {
		t.Errorf("got %q before the error, want %q", got, "ok")
	}
}

func TestCounter(t *testing.T) {
	input := strings.Repeat("x", 1000)
	reader := NewCounter(strings.NewReader(input), int64(len(input)))

	buf := make([]byte, 100)
	totalRead := 0
	for {
		n, err := reader.Read(buf)
		totalRead += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if totalRead == 500 && reader.Progress() != 50 {
			t.Errorf("Progress at half = %d, want 50", reader.Progress())
		}
	}

	if totalRead != len(input) {
		t.Errorf("total read = %d, want %d", totalRead, len(input))
	}
	if reader.BytesRead() != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", reader.BytesRead(), len(input))
	}
	if reader.Progress() != 100 {
		t.Errorf("Progress = %d, want 100", reader.Progress())
	}
}

func TestCounter_UnknownTotal(t *testing.T) {
	reader := NewCounter(strings.NewReader("abc"), 0)
	if _, err := io.ReadAll(reader); err != nil {
		t.Fatal(err)
	}
	if reader.Progress() != 0 {
		t.Errorf("Progress = %d, want 0 for unknown total", reader.Progress())
	}
	if reader.Total() != 0 {
		t.Errorf("Total = %d, want 0", reader.Total())
	}
}

func TestWrap(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte{'h', 'e', 0x80, 'l', 'o'}...)

	reader := Wrap(bytes.NewReader(input), int64(len(input)))
	result, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// BOM stripped, invalid byte replaced
	if string(result) != "he?lo" {
		t.Errorf("got %q, want %q", string(result), "he?lo")
	}
	if reader.BytesRead() != 5 {
		t.Errorf("BytesRead = %d, want 5", reader.BytesRead())
	}
}
