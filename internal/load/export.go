package load

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/argius/stew5/internal/delim"
	"github.com/argius/stew5/internal/logging"
)

// Export runs query and writes its result set through w, optionally
// preceded by a header of column names. NULL is written as an empty field.
// It returns the number of data rows written.
func Export(ctx context.Context, q Querier, query string, w *delim.Writer, header bool) (int64, error) {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	record := make([]string, len(fields))

	if header {
		for i, fd := range fields {
			record[i] = fd.Name
		}
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
	}

	var n int64
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return n, fmt.Errorf("read row %d: %w", n+1, err)
		}
		for i, v := range values {
			record[i] = formatValue(v)
		}
		if err := w.Write(record); err != nil {
			return n, fmt.Errorf("write row %d: %w", n+1, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("query: %w", err)
	}

	if err := w.Flush(); err != nil {
		return n, fmt.Errorf("flush: %w", err)
	}

	logging.FromContext(ctx).Info("export completed", "rows", n, "columns", len(fields))
	return n, nil
}

// formatValue renders a decoded column value as text.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case [16]byte:
		return uuid.UUID(v).String()
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		return formatValue(dv)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
