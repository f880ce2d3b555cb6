// Command stew loads delimited text files into PostgreSQL and exports query
// results as delimited text.
//
//	stew preview [-sep ,] [-n 20] [-header] FILE
//	stew load -table T [-sep ,] [-header] [-columns a,b] [-mode copy|insert] FILE...
//	stew load -profile load.yaml
//	stew export -query SQL [-sep ,] [-header] [-out FILE]
//	stew serve
//
// Settings not given as flags come from the environment (and .env); see
// internal/config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/argius/stew5/internal/config"
	"github.com/argius/stew5/internal/delim"
	"github.com/argius/stew5/internal/logging"
)

const usage = `usage: stew <command> [flags] [args]

commands:
  preview   print the first rows of a delimited file
  load      load delimited files into a table
  export    write a query result as delimited text
  serve     run the HTTP upload server

Run "stew <command> -h" for the flags of a command.
`

var errc = color.New(color.BgRed, color.FgWhite).FprintfFunc()

// errUsage marks errors caused by bad arguments.
var errUsage = errors.New("usage")

func main() {
	// Overload lets a project .env win over a stale shell export.
	envLoaded := godotenv.Overload() == nil

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Logs go to stderr so rows written to stdout stay clean.
	logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "env_file", envLoaded, "config", cfg.String())

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "preview":
		err = runPreview(cfg, args, os.Stdout)
	case "load":
		err = runLoad(ctx, cfg, args, os.Stdout)
	case "export":
		err = runExport(ctx, cfg, args, os.Stdout)
	case "serve":
		err = runServe(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case errors.Is(err, errUsage):
		errc(os.Stderr, " %s ", err)
		fmt.Fprintln(os.Stderr)
		os.Exit(2)
	default:
		errc(os.Stderr, " %s %s ", cmd, err)
		fmt.Fprintln(os.Stderr)
		stop()
		os.Exit(1)
	}
}

// importOptions builds parser options from config and command flags.
func importOptions(cfg *config.Config, strict bool) []delim.Option {
	opts := []delim.Option{delim.WithChunkSize(cfg.Import.ChunkSize)}
	if strict {
		opts = append(opts, delim.WithStrictQuotes())
	}
	return opts
}

// usageError wraps a message as errUsage.
func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
