// Package load moves rows from delimited-text sources into PostgreSQL tables
// and back out again.
//
// A Loader streams rows from a *delim.Importer straight into a table, either
// through the COPY protocol or with one INSERT per row. Rows never pile up
// in memory: COPY pulls them from the importer one at a time.
package load

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/argius/stew5/internal/delim"
)

// Mode selects how rows reach the table.
type Mode string

const (
	// ModeCopy streams all rows through one COPY FROM STDIN. A rejected
	// value aborts the whole load.
	ModeCopy Mode = "copy"

	// ModeInsert inserts rows one at a time, each under its own savepoint,
	// so rows PostgreSQL rejects are recorded and skipped.
	ModeInsert Mode = "insert"
)

// ParseMode converts a mode name, defaulting to ModeCopy.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeCopy:
		return ModeCopy, nil
	case ModeInsert:
		return ModeInsert, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

var (
	// ErrNoColumns is returned when neither a column list nor a header row
	// names the target columns.
	ErrNoColumns = errors.New("no target columns: pass columns or read a header")

	// ErrNoTable is returned when the request names no table.
	ErrNoTable = errors.New("no target table")

	// ErrInvalidMode is returned for an unknown load mode.
	ErrInvalidMode = errors.New("invalid load mode")

	// ErrEmptySource is returned when a header was expected but the source
	// had no rows at all.
	ErrEmptySource = errors.New("source is empty")
)

// Beginner starts transactions. Satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Querier runs a query. Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// execer is the part of pgx.Tx the insert path needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Request describes one source to load into one table.
type Request struct {
	// Table is the target table, optionally schema-qualified ("public.users").
	Table string

	// Columns are the target columns in field order. When empty, the header
	// row supplies them.
	Columns []string

	// Header consumes the first row as a header. With Columns set, the
	// header is read and discarded.
	Header bool

	// FileName labels failed rows and log lines.
	FileName string

	// Importer supplies the rows. The caller owns it and closes it.
	Importer *delim.Importer
}

// FailedRow records a row that was not loaded.
type FailedRow struct {
	FileName string   `json:"file_name,omitempty"`
	Line     int      `json:"line"`
	Reason   string   `json:"reason"`
	Data     []string `json:"data,omitempty"`
}

// Result summarizes one completed load.
type Result struct {
	LoadID     string        `json:"load_id"`
	Table      string        `json:"table"`
	FileName   string        `json:"file_name,omitempty"`
	Columns    []string      `json:"columns"`
	Inserted   int64         `json:"inserted"`
	Skipped    int           `json:"skipped"`
	FailedRows []FailedRow   `json:"failed_rows,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}
