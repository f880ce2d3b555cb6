package load

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/argius/stew5/internal/delim"
	"github.com/argius/stew5/internal/logging"
)

// DefaultCheckInterval is how many rows pass between cancellation checks.
const DefaultCheckInterval = 100

// progressInterval is how many rows pass between progress log lines.
const progressInterval = 100_000

// Options tune a Loader.
type Options struct {
	Mode Mode

	// EmptyAsNull sends empty fields as NULL instead of ''.
	EmptyAsNull bool

	// CheckInterval is how many rows pass between context checks.
	CheckInterval int

	// Timeout bounds a single load. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// Loader streams rows from importers into PostgreSQL tables.
// It is safe for concurrent use; each Load runs in its own transaction.
type Loader struct {
	db      Beginner
	limiter *Limiter
	opts    Options
}

// NewLoader creates a Loader. limiter may be nil for no concurrency limit.
func NewLoader(db Beginner, limiter *Limiter, opts Options) *Loader {
	if opts.Mode == "" {
		opts.Mode = ModeCopy
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	return &Loader{db: db, limiter: limiter, opts: opts}
}

// Limiter returns the loader's limiter, or nil.
func (l *Loader) Limiter() *Limiter {
	return l.limiter
}

// Load reads every row of req.Importer into req.Table inside one
// transaction. Rows with the wrong number of fields are skipped and
// reported in Result.FailedRows; in insert mode so are rows PostgreSQL
// rejects. Any other failure rolls the whole load back.
func (l *Loader) Load(ctx context.Context, req Request) (*Result, error) {
	if req.Table == "" {
		return nil, ErrNoTable
	}
	if req.Importer == nil {
		return nil, fmt.Errorf("load %s: no importer", req.Table)
	}

	if l.limiter != nil {
		if err := l.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer l.limiter.Release()
	}

	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	result := &Result{
		LoadID:   uuid.NewString(),
		Table:    req.Table,
		FileName: req.FileName,
	}
	log := logging.WithFields(ctx,
		"load_id", result.LoadID,
		"table", req.Table,
		"file", req.FileName,
		"mode", string(l.opts.Mode),
	)

	columns, err := resolveColumns(req)
	if err != nil {
		return nil, err
	}
	result.Columns = columns
	log.Info("load started", "columns", len(columns))

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	src := &rowSource{
		ctx:         ctx,
		imp:         req.Importer,
		fileName:    req.FileName,
		width:       len(columns),
		emptyAsNull: l.opts.EmptyAsNull,
		interval:    l.opts.CheckInterval,
		log:         log,
	}

	switch l.opts.Mode {
	case ModeInsert:
		result.Inserted, err = insertRows(ctx, tx, req.Table, columns, src)
	default:
		result.Inserted, err = tx.CopyFrom(ctx, identifier(req.Table), columns, src)
	}
	if err != nil {
		log.Error("load failed", "error", err, "line", req.Importer.Line())
		return nil, fmt.Errorf("load into %s: %w", req.Table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	result.FailedRows = src.failed
	result.Skipped = len(src.failed)
	result.Duration = time.Since(start)

	log.Info("load completed",
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"bytes", req.Importer.BytesRead(),
		"duration", result.Duration,
	)
	return result, nil
}

// LoadAll runs independent loads in parallel, each on its own importer.
// The first failure cancels the loads still running. Results are in
// request order; entries for loads that did not finish are nil.
func (l *Loader) LoadAll(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	if l.limiter != nil {
		g.SetLimit(l.limiter.MaxConcurrent())
	}

	for i, req := range reqs {
		g.Go(func() error {
			res, err := l.Load(ctx, req)
			if err != nil {
				if req.FileName != "" {
					return fmt.Errorf("%s: %w", req.FileName, err)
				}
				return err
			}
			results[i] = res
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// resolveColumns decides the target columns, consuming the header row when
// the request has one.
func resolveColumns(req Request) ([]string, error) {
	var header delim.Row
	if req.Header {
		h, err := req.Importer.Header()
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		header = h
	}

	if len(req.Columns) > 0 {
		return req.Columns, nil
	}
	if !req.Header {
		return nil, ErrNoColumns
	}
	if header.IsEnd() {
		return nil, ErrEmptySource
	}

	columns := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		columns[i] = name
	}
	return columns, nil
}

// identifier splits an optionally schema-qualified table name.
func identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

// insertStatement builds a parameterized INSERT for the given columns.
func insertStatement(table string, columns []string) string {
	quoted := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		identifier(table).Sanitize(),
		strings.Join(quoted, ", "),
		strings.Join(params, ", "),
	)
}

// insertRows inserts each row under its own savepoint so a rejected row
// does not abort the transaction.
func insertRows(ctx context.Context, tx execer, table string, columns []string, src *rowSource) (int64, error) {
	stmt := insertStatement(table, columns)

	var inserted int64
	for src.Next() {
		values, _ := src.Values()

		savepoint := fmt.Sprintf("sp_%d", src.seen)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
			return inserted, fmt.Errorf("create savepoint: %w", err)
		}

		if _, err := tx.Exec(ctx, stmt, values...); err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return inserted, fmt.Errorf("rollback savepoint: %w", rbErr)
			}
			src.fail(rowReason(err))
			continue
		}

		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return inserted, fmt.Errorf("release savepoint: %w", err)
		}
		inserted++
	}
	return inserted, src.Err()
}

// rowSource adapts an Importer to pgx.CopyFromSource. Rows are pulled one
// at a time as COPY asks for them.
type rowSource struct {
	ctx         context.Context
	imp         *delim.Importer
	fileName    string
	width       int
	emptyAsNull bool
	interval    int
	log         *slog.Logger

	row    delim.Row
	values []any
	seen   int
	failed []FailedRow
	err    error
}

var _ pgx.CopyFromSource = (*rowSource)(nil)

// Next advances to the next row that fits the column list.
func (s *rowSource) Next() bool {
	for {
		if s.seen%s.interval == 0 {
			if err := s.ctx.Err(); err != nil {
				s.err = err
				return false
			}
		}

		row, err := s.imp.NextRow()
		if err != nil {
			s.err = err
			return false
		}
		if row.IsEnd() {
			return false
		}
		s.seen++
		s.row = row

		if s.seen%progressInterval == 0 {
			s.log.Debug("load progress", "rows", s.seen, "bytes", s.imp.BytesRead())
		}

		// Blank lines cannot be rows of a multi-column table.
		if s.width > 1 && len(row) == 1 && row[0] == "" {
			continue
		}
		if len(row) != s.width {
			s.fail(fmt.Sprintf("expected %d columns, got %d", s.width, len(row)))
			continue
		}
		return true
	}
}

// Values returns the current row. The slice is reused by the next call.
func (s *rowSource) Values() ([]any, error) {
	s.values = s.values[:0]
	for _, field := range s.row {
		if field == "" && s.emptyAsNull {
			s.values = append(s.values, nil)
			continue
		}
		s.values = append(s.values, field)
	}
	return s.values, nil
}

// Err returns the error that stopped iteration, if any.
func (s *rowSource) Err() error {
	return s.err
}

// fail records the current row as not loaded.
func (s *rowSource) fail(reason string) {
	s.failed = append(s.failed, FailedRow{
		FileName: s.fileName,
		Line:     s.imp.Line(),
		Reason:   reason,
		Data:     s.row,
	})
}
