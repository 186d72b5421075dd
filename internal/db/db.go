package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/wesm/github-issue-mirror/internal/models"
)

// Dialect selects the SQL flavour used for the schema and for upserts.
// Its value is also the database/sql driver name.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite3"
)

// StorageError is returned when a connection, query or transaction fails
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DB represents the database connection
type DB struct {
	*sql.DB
	stmts *statements
}

// New creates a new database connection
func New(dialect Dialect, dsn string) (*DB, error) {
	stmts, ok := dialects[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, &StorageError{Op: "open database", Err: err}
	}

	if dialect == SQLite {
		// sqlite serializes writers
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StorageError{Op: "ping database", Err: err}
	}

	return &DB{DB: db, stmts: stmts}, nil
}

// Initialize creates the mirror tables if they don't exist
func (db *DB) Initialize(ctx context.Context) error {
	for _, stmt := range db.stmts.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return &StorageError{Op: "create schema", Err: err}
		}
	}
	return nil
}

// SaveLabel inserts a label or overwrites url, name and color of the existing row with the same id
func (db *DB) SaveLabel(ctx context.Context, label *models.Label) error {
	_, err := db.ExecContext(ctx, db.stmts.upsertLabel, label.ID, label.URL, label.Name, label.Color)
	if err != nil {
		return &StorageError{Op: fmt.Sprintf("save label %d", label.ID), Err: err}
	}
	return nil
}

// Tx is a transaction scope for writing one issue and its label set
type Tx struct {
	tx    *sql.Tx
	stmts *statements
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "begin transaction", Err: err}
	}

	if err := fn(&Tx{tx: sqlTx, stmts: db.stmts}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &StorageError{Op: "commit transaction", Err: err}
	}
	return nil
}

// SaveIssue inserts an issue or overwrites every column of the row with the same number
func (tx *Tx) SaveIssue(ctx context.Context, issue *models.Issue) error {
	_, err := tx.tx.ExecContext(
		ctx,
		tx.stmts.upsertIssue,
		issue.Number,
		issue.Title,
		issue.Open,
		issue.Author,
		issue.AuthorAvatarURL,
		issue.CreatedAt.UTC(),
		issue.UpdatedAt.UTC(),
		nullTime(issue.ClosedAt),
		issue.IsPullRequest,
	)
	if err != nil {
		return &StorageError{Op: fmt.Sprintf("save issue #%d", issue.Number), Err: err}
	}
	return nil
}

// DeleteIssueLabels removes every label association of an issue
func (tx *Tx) DeleteIssueLabels(ctx context.Context, issueNumber int) error {
	if _, err := tx.tx.ExecContext(ctx, deleteIssueLabels, issueNumber); err != nil {
		return &StorageError{Op: fmt.Sprintf("delete labels of issue #%d", issueNumber), Err: err}
	}
	return nil
}

// SaveIssueLabel saves an issue-label relationship. The label id is not checked
// against github_labels.
func (tx *Tx) SaveIssueLabel(ctx context.Context, issueNumber int, labelID int64) error {
	if _, err := tx.tx.ExecContext(ctx, insertIssueLabel, issueNumber, labelID); err != nil {
		return &StorageError{Op: fmt.Sprintf("save label %d of issue #%d", labelID, issueNumber), Err: err}
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
