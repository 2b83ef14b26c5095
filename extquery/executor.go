// Package extquery runs caller-supplied SQL against the external relational store and
// returns the rows as column-name keyed maps. Statements are passed through unvalidated.
package extquery

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/viant/metavec/internal/apperrors"
)

var (
	// ErrUpstreamQuery carries the external driver message verbatim.
	ErrUpstreamQuery apperrors.Error = apperrors.New(apperrors.KindUpstreamQuery, "external query failed").SetStatusCode(http.StatusBadGateway)

	// ErrEmptyQuery is returned for a blank statement.
	ErrEmptyQuery apperrors.Error = apperrors.New(apperrors.KindInvalidInput, "query is required")
)

// Supported database/sql driver names.
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// Executor runs raw SQL on one external database handle.
type Executor struct {
	db               *sql.DB
	driver           string
	statementTimeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithStatementTimeout bounds each statement. PostgreSQL drivers also receive it as a
// session statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// Open connects to the external store using driver and dsn.
func Open(driver, dsn string, opts ...Option) (*Executor, error) {
	switch driver {
	case DriverPgx, DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported external driver: %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("external dsn is required")
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, ErrUpstreamQuery.MsgErr("failed to connect to external database", err)
	}
	return New(db, driver, opts...), nil
}

// New wraps an existing handle.
func New(db *sql.DB, driver string, opts ...Option) *Executor {
	e := &Executor{db: db, driver: driver}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query executes query and returns all rows. A statement without a result set returns
// an empty slice.
func (e *Executor) Query(ctx context.Context, query string) ([]Row, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if e.statementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.statementTimeout)
		defer cancel()
	}
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, ErrUpstreamQuery.MsgErr("failed to obtain connection", err)
	}
	defer conn.Close()
	if err := e.prepareSession(ctx, conn); err != nil {
		return nil, err
	}

	started := time.Now()
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, upstream(err)
	}
	defer rows.Close()
	result, err := scanRows(rows)
	if err != nil {
		return nil, upstream(err)
	}
	log.Ctx(ctx).Debug().Str("op", "extquery.query").Str("driver", e.driver).Int("rows", len(result)).
		Dur("elapsed", time.Since(started)).Msg("external query executed")
	return result, nil
}

// Close closes the underlying handle.
func (e *Executor) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}

func (e *Executor) prepareSession(ctx context.Context, conn *sql.Conn) error {
	if e.statementTimeout <= 0 || (e.driver != DriverPgx && e.driver != DriverPostgres) {
		return nil
	}
	stmt := fmt.Sprintf("SET %s = %s", pq.QuoteIdentifier("statement_timeout"),
		pq.QuoteLiteral(fmt.Sprintf("%dms", e.statementTimeout.Milliseconds())))
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return ErrUpstreamQuery.MsgErr("failed to set statement timeout", err)
	}
	return nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, name := range columns {
			row[name] = normalize(values[i])
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func upstream(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return ErrUpstreamQuery.MsgErr(fmt.Sprintf("external query failed (%s)", pqErr.Code), err)
	}
	return ErrUpstreamQuery.MsgErr("external query failed", err)
}
