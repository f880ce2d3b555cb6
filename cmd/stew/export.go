package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/argius/stew5/internal/config"
	"github.com/argius/stew5/internal/delim"
	"github.com/argius/stew5/internal/load"
)

func runExport(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	query := fs.String("query", "", "SQL query whose rows are written")
	sep := fs.String("sep", cfg.Import.Separator, `field separator ("tab" or \t for tab)`)
	header := fs.Bool("header", true, "write the column names first")
	crlf := fs.Bool("crlf", false, "end rows with CRLF instead of LF")
	outPath := fs.String("out", "-", `output file ("-" for stdout)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *query == "" {
		return usageError("export needs -query")
	}

	var (
		w    = stdout
		file *os.File
	)
	if *outPath != "-" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w, file = f, f
	}

	dw, err := delim.NewWriter(w, config.ParseSeparator(*sep), delim.WithCRLF(*crlf))
	if err != nil {
		return err
	}

	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	n, err := load.Export(ctx, pool, *query, dw, *header)
	if err != nil {
		return err
	}
	slog.Info("export finished", "rows", n, "out", *outPath)

	if file != nil {
		return file.Close()
	}
	return nil
}
