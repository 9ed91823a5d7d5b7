package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor defines the contract required by repositories for executing SQL queries.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// SQLTransactor is an SQLExecutor that can also run fn inside one transaction.
// fn's executor is bound to the transaction; returning an error rolls back.
type SQLTransactor interface {
	SQLExecutor
	InTx(ctx context.Context, fn func(tx SQLExecutor) error) error
}

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SQLRunner executes marker-tagged queries from the sqlinline package and logs
// each one by its marker.
type SQLRunner struct {
	Pool   *pgxpool.Pool
	Logger zerolog.Logger
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{Pool: pool, Logger: logger}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return runExec(ctx, r.Pool, r.Logger, query, args)
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return runQueryRow(ctx, r.Pool, r.Logger, query, args)
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return runQuery(ctx, r.Pool, r.Logger, query, args)
}

// InTx runs fn in a read-committed transaction.
func (r *SQLRunner) InTx(ctx context.Context, fn func(tx SQLExecutor) error) error {
	return pgx.BeginFunc(ctx, r.Pool, func(tx pgx.Tx) error {
		return fn(&txRunner{tx: tx, logger: r.Logger})
	})
}

// Ping checks database connectivity.
func (r *SQLRunner) Ping(ctx context.Context) error {
	if r.Pool == nil {
		return errors.New("database pool not configured")
	}
	return r.Pool.Ping(ctx)
}

type txRunner struct {
	tx     pgx.Tx
	logger zerolog.Logger
}

func (t *txRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return runExec(ctx, t.tx, t.logger, query, args)
}

func (t *txRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return runQueryRow(ctx, t.tx, t.logger, query, args)
}

func (t *txRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return runQuery(ctx, t.tx, t.logger, query, args)
}

func runExec(ctx context.Context, db pgxQuerier, logger zerolog.Logger, query string, args []any) (pgconn.CommandTag, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	logger.Debug().Msgf("sql[%s] exec", marker)
	tag, err := db.Exec(ctx, trimmed, args...)
	if err != nil {
		logger.Error().Err(err).Msgf("sql[%s] error", marker)
		return tag, err
	}
	logger.Debug().Int64("rows", tag.RowsAffected()).Msgf("sql[%s] ok", marker)
	return tag, nil
}

func runQueryRow(ctx context.Context, db pgxQuerier, logger zerolog.Logger, query string, args []any) pgx.Row {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	logger.Debug().Msgf("sql[%s] query_row", marker)
	row := db.QueryRow(ctx, trimmed, args...)
	return loggingRow{row: row, logger: logger, marker: marker}
}

func runQuery(ctx context.Context, db pgxQuerier, logger zerolog.Logger, query string, args []any) (pgx.Rows, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	logger.Debug().Msgf("sql[%s] query", marker)
	rows, err := db.Query(ctx, trimmed, args...)
	if err != nil {
		logger.Error().Err(err).Msgf("sql[%s] error", marker)
		return nil, err
	}
	return loggingRows{Rows: rows, logger: logger, marker: marker}, nil
}

type loggingRow struct {
	row    pgx.Row
	logger zerolog.Logger
	marker string
}

func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		l.logger.Error().Err(err).Msgf("sql[%s] scan error", l.marker)
	}
	return err
}

type loggingRows struct {
	pgx.Rows
	logger zerolog.Logger
	marker string
}

func (l loggingRows) Close() {
	l.logger.Debug().Msgf("sql[%s] rows close", l.marker)
	l.Rows.Close()
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func extractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	lines := strings.Split(trimmed, "\n")
	if len(lines) == 0 {
		return "", "", errors.New("empty query")
	}
	markerLine := strings.TrimSpace(lines[0])
	if !markerRegexp.MatchString(markerLine) {
		return "", "", errors.New("sql marker missing or invalid")
	}
	return strings.TrimSpace(strings.TrimPrefix(markerLine, "--sql ")), strings.Join(lines[1:], "\n"), nil
}

var (
	_ SQLTransactor = (*SQLRunner)(nil)
	_ SQLExecutor   = (*txRunner)(nil)
)
