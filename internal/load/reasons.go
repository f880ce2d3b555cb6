package load

// reasons.go turns database errors into short, stable reasons with a code
// support can look up.
//
// Codes are grouped by category:
//
//	DB001-DB099   constraint and connection failures
//	VAL001-VAL099 values PostgreSQL could not convert
//	TBL001-TBL099 missing tables, columns or privileges
//	ERR000        anything unrecognized; check the logs for the raw error
//
// PostgreSQL errors are matched by SQLSTATE. Other errors fall back to
// case-insensitive substring patterns, first match wins.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Reason describes a failure in terms a user can act on.
type Reason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r Reason) String() string {
	return fmt.Sprintf("%s (%s)", r.Message, r.Code)
}

var sqlStateReasons = map[string]Reason{
	"23505": {"DB001", "duplicate key"},
	"23503": {"DB002", "referenced row does not exist"},
	"23502": {"DB003", "missing value for a NOT NULL column"},
	"23514": {"DB004", "check constraint failed"},
	"40P01": {"DB005", "deadlock"},

	"22P02": {"VAL001", "value does not match the column type"},
	"22007": {"VAL002", "invalid date or time"},
	"22008": {"VAL002", "date or time out of range"},
	"22003": {"VAL003", "number out of range"},
	"22001": {"VAL004", "value too long for the column"},
	"22021": {"VAL005", "invalid byte sequence for the encoding"},

	"42P01": {"TBL001", "table does not exist"},
	"42703": {"TBL002", "column does not exist"},
	"42501": {"TBL003", "permission denied"},
}

var patternReasons = []struct {
	pattern string
	reason  Reason
}{
	{"connection refused", Reason{"DB010", "database unreachable"}},
	{"connection reset", Reason{"DB011", "database connection interrupted"}},
	{"timeout", Reason{"DB012", "database timed out"}},
}

var unknownReason = Reason{"ERR000", "unexpected error"}

// Describe maps err to a Reason. It returns the zero Reason for nil.
func Describe(err error) Reason {
	if err == nil {
		return Reason{}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if r, ok := sqlStateReasons[pgErr.Code]; ok {
			return r
		}
	}

	msg := strings.ToLower(err.Error())
	for _, p := range patternReasons {
		if strings.Contains(msg, p.pattern) {
			return p.reason
		}
	}
	return unknownReason
}

// IsKnown reports whether err maps to a specific Reason.
func IsKnown(err error) bool {
	return err != nil && Describe(err) != unknownReason
}

// IsSchemaError reports whether err means the target table or a column is
// missing, which is the caller's mistake rather than the server's.
func IsSchemaError(err error) bool {
	switch Describe(err).Code {
	case "TBL001", "TBL002":
		return true
	}
	return false
}

// rowReason formats a rejected insert for a FailedRow, keeping the column
// PostgreSQL named when there is one.
func rowReason(err error) string {
	r := Describe(err)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.ColumnName != "" {
			return fmt.Sprintf("insert: %s: column %s", r, pgErr.ColumnName)
		}
		if r == unknownReason {
			return fmt.Sprintf("insert: %s", pgErr.Message)
		}
		return fmt.Sprintf("insert: %s", r)
	}
	return fmt.Sprintf("insert: %v", err)
}
