package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/argius/stew5/internal/config"
	"github.com/argius/stew5/internal/load"
)

func init() {
	color.NoColor = true
}

func testConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{Separator: ",", ChunkSize: 8},
		Load:   config.LoadConfig{Mode: "copy", MaxConcurrent: 2, MaxWaitTime: time.Second, CheckInterval: 10},
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunPreview(t *testing.T) {
	path := writeFile(t, "p.csv", "id,note\n1,\"two\nlines\"\n2,\n3,x\n")

	var out bytes.Buffer
	err := runPreview(testConfig(), []string{"-header", "-n", "2", path}, &out)
	if err != nil {
		t.Fatalf("runPreview: %v", err)
	}

	got := out.String()
	for _, want := range []string{" id ", " note ", `two\nlines`, "(empty)", "...", "2 rows shown"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "x") {
		t.Errorf("output shows a row past the limit:\n%s", got)
	}
}

func TestRunPreview_Usage(t *testing.T) {
	err := runPreview(testConfig(), nil, &bytes.Buffer{})
	if !errors.Is(err, errUsage) {
		t.Errorf("err = %v, want errUsage", err)
	}
}

func TestRunPreview_StrictQuotes(t *testing.T) {
	path := writeFile(t, "bad.csv", "\"ab\"cd,e\n")

	err := runPreview(testConfig(), []string{"-strict", path}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestRunLoad_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no table", []string{"a.csv"}},
		{"no files", []string{"-table", "t"}},
		{"profile with files", []string{"-profile", "p.yaml", "a.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runLoad(t.Context(), testConfig(), tt.args, &bytes.Buffer{})
			if !errors.Is(err, errUsage) {
				t.Errorf("err = %v, want errUsage", err)
			}
		})
	}
}

func TestRunLoad_BadModeBeforeConnect(t *testing.T) {
	path := writeFile(t, "a.csv", "1\n")
	err := runLoad(t.Context(), testConfig(), []string{"-table", "t", "-mode", "merge", path}, &bytes.Buffer{})
	if !errors.Is(err, load.ErrInvalidMode) {
		t.Errorf("err = %v, want ErrInvalidMode", err)
	}
}

func TestRunLoad_NoDatabase(t *testing.T) {
	path := writeFile(t, "a.csv", "1\n")
	err := runLoad(t.Context(), testConfig(), []string{"-table", "t", "-columns", "n", path}, &bytes.Buffer{})
	if !errors.Is(err, config.ErrNoDatabase) {
		t.Errorf("err = %v, want ErrNoDatabase", err)
	}
}

func TestRunExport_Usage(t *testing.T) {
	err := runExport(t.Context(), testConfig(), nil, &bytes.Buffer{})
	if !errors.Is(err, errUsage) {
		t.Errorf("err = %v, want errUsage", err)
	}
}

func TestPrintResults(t *testing.T) {
	failed := make([]load.FailedRow, maxFailedShown+2)
	for i := range failed {
		failed[i] = load.FailedRow{Line: i + 2, Reason: "expected 2 columns, got 1"}
	}

	var out bytes.Buffer
	printResults(&out, []*load.Result{
		{Table: "t", FileName: "/tmp/a.csv", Inserted: 5, Duration: 1500 * time.Microsecond},
		nil,
		{Table: "t", FileName: "b.csv", Inserted: 1, Skipped: len(failed), FailedRows: failed},
	})

	got := out.String()
	for _, want := range []string{" a.csv ", "5 rows into t in 2ms", "12 skipped", "line 2: expected 2 columns", "... 2 more"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestSplitColumns(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , b,,c ", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		if got := splitColumns(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitColumns(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFieldText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a\tb", `a\tb`},
		{"a\r\nb", `a\r\nb`},
		{`say "hi"`, `say "hi"`},
	}

	for _, tt := range tests {
		if got := fieldText(tt.in); got != tt.want {
			t.Errorf("fieldText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
