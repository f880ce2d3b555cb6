package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/argius/stew5/internal/config"
	"github.com/argius/stew5/internal/delim"
)

func runPreview(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	sep := fs.String("sep", cfg.Import.Separator, `field separator ("tab" or \t for tab)`)
	n := fs.Int("n", 20, "number of rows to print (0 = all)")
	header := fs.Bool("header", false, "treat the first row as a header")
	strict := fs.Bool("strict", cfg.Import.StrictQuotes, "report malformed quoting as an error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("preview takes exactly one file")
	}

	imp, err := delim.Open(fs.Arg(0), config.ParseSeparator(*sep), importOptions(cfg, *strict)...)
	if err != nil {
		return err
	}
	defer imp.Close()

	p := newPrinter(out)
	if *header {
		h, err := imp.Header()
		if err != nil {
			return err
		}
		p.header(h)
	}

	count := 0
	for row, err := range imp.Rows() {
		if err != nil {
			return err
		}
		if *n > 0 && count == *n {
			p.more()
			break
		}
		count++
		p.row(imp.Line(), row)
	}
	p.summary(count, imp.BytesRead())
	return nil
}

// printer renders rows for a terminal. Colors switch off by themselves
// when out is not a terminal or NO_COLOR is set.
type printer struct {
	out     io.Writer
	head    *color.Color
	lineNo  *color.Color
	divider *color.Color
	empty   *color.Color
	dim     *color.Color
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:     out,
		head:    color.New(color.BgBlue, color.FgWhite, color.Bold),
		lineNo:  color.New(color.FgYellow),
		divider: color.New(color.FgHiBlack),
		empty:   color.New(color.FgHiBlack, color.Italic),
		dim:     color.New(color.FgHiBlack),
	}
}

func (p *printer) header(h delim.Row) {
	fmt.Fprint(p.out, "      ")
	for i, f := range h {
		if i > 0 {
			p.divider.Fprint(p.out, " │ ")
		}
		p.head.Fprintf(p.out, " %s ", fieldText(f))
	}
	fmt.Fprintln(p.out)
}

func (p *printer) row(line int, row delim.Row) {
	p.lineNo.Fprintf(p.out, "%5d ", line)
	for i, f := range row {
		if i > 0 {
			p.divider.Fprint(p.out, " │ ")
		}
		if f == "" {
			p.empty.Fprint(p.out, "(empty)")
			continue
		}
		fmt.Fprint(p.out, fieldText(f))
	}
	fmt.Fprintln(p.out)
}

func (p *printer) more() {
	p.dim.Fprintln(p.out, "  ...")
}

func (p *printer) summary(rows int, bytes int64) {
	p.dim.Fprintf(p.out, "%d rows shown, %d bytes read\n", rows, bytes)
}

// fieldText shows control characters escaped so one row stays on one line.
func fieldText(s string) string {
	if strings.ContainsAny(s, "\r\n\t") {
		q := strconv.Quote(s)
		return q[1 : len(q)-1]
	}
	return s
}
