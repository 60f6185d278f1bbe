package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"logitrack/workflow"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Tx is one unit of work. Every read-validate-write transition runs inside a
// single Tx so the prerequisite check and the write cannot be separated.
type Tx struct {
	tx *sql.Tx
	db *DB
}

// Update runs fn in a read-write transaction. The transaction is rolled back
// when fn returns an error or panics and committed otherwise.
func (db *DB) Update(ctx context.Context, fn func(tx *Tx) error) (err error) {
	return db.run(ctx, nil, fn)
}

// View runs fn in a read-only transaction.
func (db *DB) View(ctx context.Context, fn func(tx *Tx) error) error {
	var opts *sql.TxOptions
	if db.driver == "postgres" {
		opts = &sql.TxOptions{ReadOnly: true}
	}
	return db.run(ctx, opts, fn)
}

func (db *DB) run(ctx context.Context, opts *sql.TxOptions, fn func(tx *Tx) error) (err error) {
	sqlTx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	tx := &Tx{tx: sqlTx, db: db}
	defer func() {
		if p := recover(); p != nil {
			sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			sqlTx.Rollback()
			return
		}
		if cerr := sqlTx.Commit(); cerr != nil {
			err = fmt.Errorf("commit tx: %w", cerr)
		}
	}()
	return fn(tx)
}

func (t *Tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.db.Q(query), args...)
}

func (t *Tx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.db.Q(query), args...)
}

func (t *Tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.db.Q(query), args...)
}

// insert runs an INSERT ... RETURNING id statement.
func (t *Tx) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := t.queryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Savepoint, RollbackTo and Release scope a best-effort write inside the
// transaction: a failure after Savepoint can be undone without losing the
// statements issued before it.
func (t *Tx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name)
	return err
}

func (t *Tx) RollbackTo(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
	return err
}

func (t *Tx) Release(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

// checkAffected turns a zero-row conditional update into errStale.
func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStale
	}
	return nil
}

// ErrStale is returned by conditional updates whose guard no longer matched:
// another writer changed the row after it was read.
var ErrStale = errors.New("row changed by another writer")

func IsNotFound(err error) bool { return errors.Is(err, sql.ErrNoRows) }

// IsUniqueViolation reports whether err is a unique or primary key violation
// from either backend.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		code := sqErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return strings.Contains(sqErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

// Classify maps driver and guard errors onto the workflow taxonomy. Errors
// that already carry a workflow kind are returned unchanged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case workflow.KindOf(err) != 0:
		return err
	case errors.Is(err, ErrStale):
		return workflow.Conflict("concurrent update, re-read and retry")
	case IsUniqueViolation(err):
		return workflow.Conflict("duplicate: %v", err)
	case IsNotFound(err):
		return workflow.NotFound("record not found")
	}
	return workflow.Persistence(err)
}
