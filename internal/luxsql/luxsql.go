// Package luxsql is a thin adaptor over database/sql and
// github.com/go-sql-driver/mysql, giving the reactor-oriented parts of this
// module a place to issue SQL without pulling in the teacher's heavier
// export/dialect machinery (sql/export), which targets a TiDB-parser-backed
// query builder well outside this module's scope. Query execution is
// delegated entirely to database/sql; the only thing this package adds is
// diagnostic query-string reconstruction (via Interpolate, ported from the
// teacher's sql/mysql/interpolate.go) and a thin Logger-aware wrapper
// consistent with sql/log's Logger interface.
package luxsql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/lutianen/lux/internal/reactor"
)

// Logger is a type alias for reactor.Logger: both packages want the same
// logrus.FieldLogger subset, and the teacher's own sql/log.Logger and
// eventloop code share a single logging interface the same way.
type Logger = reactor.Logger

// Config describes how to reach a MySQL server and how queries issued
// through DB are logged.
type Config struct {
	// DSN is a go-sql-driver/mysql data source name, e.g.
	// "user:pass@tcp(127.0.0.1:3306)/dbname?parseTime=true".
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	Logger Logger

	// Interpolate, if non-nil, is used to render a human-readable copy of
	// each query for logging. It never affects the query actually sent to
	// the driver, which always goes through database/sql's own placeholder
	// mechanism.
	Interpolate *InterpolateConfig
}

// DB wraps a *sql.DB, logging each statement issued through Query, Exec and
// QueryRow at Debug level through Config.Logger, and Query/Exec failures at
// Error level. Statements run by Tx's fn on the *sql.Tx are not logged.
type DB struct {
	sql *sql.DB
	cfg Config
}

// Open opens a MySQL connection pool per cfg. The underlying *sql.DB is
// lazily connected, matching database/sql's own semantics: Open does not
// establish any connections, or validate the DSN beyond parsing it.
func Open(cfg Config) (*DB, error) {
	if cfg.Logger == nil {
		cfg.Logger = reactor.NopLogger{}
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("luxsql: open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return &DB{sql: db, cfg: cfg}, nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error { return d.sql.Close() }

// Raw returns the underlying *sql.DB, for callers that need database/sql
// functionality this wrapper doesn't expose directly (transactions, prepared
// statements held across calls, and so on).
func (d *DB) Raw() *sql.DB { return d.sql }

// Ping verifies the connection is alive.
func (d *DB) Ping(ctx context.Context) error { return d.sql.PingContext(ctx) }

// Query runs query and logs it (interpolated, if configured) at Debug level
// before executing, and at Error level on failure.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	d.logQuery(query, args)
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		d.cfg.Logger.WithError(err).Error("luxsql: query failed")
		return nil, err
	}
	return rows, nil
}

// Exec runs a statement that doesn't return rows (INSERT/UPDATE/DELETE/DDL).
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	d.logQuery(query, args)
	res, err := d.sql.ExecContext(ctx, query, args...)
	if err != nil {
		d.cfg.Logger.WithError(err).Error("luxsql: exec failed")
		return nil, err
	}
	return res, nil
}

// QueryRow is the single-row convenience form of Query.
func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	d.logQuery(query, args)
	return d.sql.QueryRowContext(ctx, query, args...)
}

// Tx runs fn inside a transaction, committing if fn returns nil and rolling
// back (logging the rollback error, if any, at Error level) otherwise.
func (d *DB) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("luxsql: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.cfg.Logger.WithError(rbErr).Error("luxsql: rollback failed")
		}
		return err
	}
	return tx.Commit()
}

func (d *DB) logQuery(query string, args []any) {
	if d.cfg.Interpolate == nil {
		d.cfg.Logger.WithField("query", query).Debug("luxsql: executing query")
		return
	}
	dvArgs := make([]driver.Value, len(args))
	for i, a := range args {
		dv, err := driver.DefaultParameterConverter.ConvertValue(a)
		if err != nil {
			d.cfg.Logger.WithField("query", query).Debug("luxsql: executing query")
			return
		}
		dvArgs[i] = dv
	}
	rendered, err := d.cfg.Interpolate.Interpolate(query, dvArgs...)
	if err != nil {
		d.cfg.Logger.WithField("query", query).Debug("luxsql: executing query")
		return
	}
	d.cfg.Logger.WithField("query", rendered).Debug("luxsql: executing query")
}
