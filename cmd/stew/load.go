package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/argius/stew5/internal/config"
	"github.com/argius/stew5/internal/delim"
	"github.com/argius/stew5/internal/load"
)

// maxFailedShown caps the failed rows printed per file.
const maxFailedShown = 10

// loadJob is one parsed load command: what to load and how to parse it.
type loadJob struct {
	table       string
	sep         string
	header      bool
	columns     []string
	mode        string
	strict      bool
	emptyAsNull bool
	files       []string
}

func runLoad(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	profile := fs.String("profile", "", "read the job from a YAML profile instead of flags")
	table := fs.String("table", "", "target table, optionally schema-qualified")
	sep := fs.String("sep", cfg.Import.Separator, `field separator ("tab" or \t for tab)`)
	header := fs.Bool("header", false, "the first row names the columns")
	columns := fs.String("columns", "", "comma-separated target columns, in field order")
	mode := fs.String("mode", cfg.Load.Mode, "copy or insert")
	strict := fs.Bool("strict", cfg.Import.StrictQuotes, "report malformed quoting as an error")
	emptyAsNull := fs.Bool("null", cfg.Load.EmptyAsNull, "load empty fields as NULL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var job loadJob
	if *profile != "" {
		if fs.NArg() > 0 {
			return usageError("load -profile takes no file arguments")
		}
		p, err := load.LoadProfile(*profile)
		if err != nil {
			return err
		}
		job = loadJob{
			table:       p.Table,
			sep:         p.Separator,
			header:      p.Header,
			columns:     p.Columns,
			mode:        p.Mode,
			strict:      p.StrictQuotes,
			emptyAsNull: p.EmptyAsNull,
			files:       p.Files,
		}
		if job.mode == "" {
			job.mode = cfg.Load.Mode
		}
	} else {
		if *table == "" {
			return usageError("load needs -table or -profile")
		}
		if fs.NArg() == 0 {
			return usageError("load needs at least one file")
		}
		job = loadJob{
			table:       *table,
			sep:         config.ParseSeparator(*sep),
			header:      *header,
			columns:     splitColumns(*columns),
			mode:        *mode,
			strict:      *strict,
			emptyAsNull: *emptyAsNull,
			files:       fs.Args(),
		}
	}

	m, err := load.ParseMode(job.mode)
	if err != nil {
		return err
	}

	reqs := make([]load.Request, 0, len(job.files))
	for _, path := range job.files {
		imp, err := delim.Open(path, job.sep, importOptions(cfg, job.strict)...)
		if err != nil {
			return err
		}
		defer imp.Close()

		reqs = append(reqs, load.Request{
			Table:    job.table,
			Columns:  job.columns,
			Header:   job.header,
			FileName: path,
			Importer: imp,
		})
	}

	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	loader := load.NewLoader(pool, load.NewLimiter(cfg.Load.MaxConcurrent, cfg.Load.MaxWaitTime), load.Options{
		Mode:          m,
		EmptyAsNull:   job.emptyAsNull,
		CheckInterval: cfg.Load.CheckInterval,
		Timeout:       cfg.Load.Timeout,
	})

	results, err := loader.LoadAll(ctx, reqs)
	printResults(out, results)
	return err
}

func printResults(out io.Writer, results []*load.Result) {
	ok := color.New(color.BgGreen, color.FgBlack)
	warn := color.New(color.FgYellow)

	for _, res := range results {
		if res == nil {
			continue
		}
		ok.Fprintf(out, " %s ", filepath.Base(res.FileName))
		fmt.Fprintf(out, " %d rows into %s in %s", res.Inserted, res.Table, res.Duration.Round(time.Millisecond))
		if res.Skipped > 0 {
			warn.Fprintf(out, ", %d skipped", res.Skipped)
		}
		fmt.Fprintln(out)

		for i, fr := range res.FailedRows {
			if i == maxFailedShown {
				warn.Fprintf(out, "    ... %d more\n", len(res.FailedRows)-maxFailedShown)
				break
			}
			warn.Fprintf(out, "    line %d: %s\n", fr.Line, fr.Reason)
		}
	}
}

// splitColumns parses a comma-separated column list, dropping blanks.
func splitColumns(s string) []string {
	var cols []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}
