// Package parsecachesql stores parse progress in PostgreSQL or SQLite
// through sqlx. Each page is one row, so a page is either a success or a
// failure by construction.
package parsecachesql

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsecache"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS parse_states (
		fingerprint TEXT PRIMARY KEY,
		total_pages INTEGER NOT NULL DEFAULT 0,
		created_at  BIGINT NOT NULL,
		updated_at  BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS parse_pages (
		fingerprint   TEXT NOT NULL,
		page_no       INTEGER NOT NULL,
		status        TEXT NOT NULL,
		content       TEXT,
		error_message TEXT,
		retry_count   INTEGER NOT NULL DEFAULT 0,
		failed_at     BIGINT,
		PRIMARY KEY (fingerprint, page_no)
	)`,
}

// Open connects with driver "postgres" or "sqlite". SQLite is limited to a
// single connection.
func Open(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, sqlErrors.NewWithCause(ErrOpen, err).WithDetail("driver", driver)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

type Store struct {
	db *sqlx.DB
}

var _ parsecache.Store = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return sqlErrors.NewWithCause(ErrMigrate, err)
		}
	}
	return nil
}

type stateRow struct {
	Fingerprint string `db:"fingerprint"`
	TotalPages  int    `db:"total_pages"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

type pageRow struct {
	PageNo       int            `db:"page_no"`
	Status       string         `db:"status"`
	Content      sql.NullString `db:"content"`
	ErrorMessage sql.NullString `db:"error_message"`
	RetryCount   int            `db:"retry_count"`
	FailedAt     sql.NullInt64  `db:"failed_at"`
}

func (s *Store) Begin(ctx context.Context, fp string, totalPages int, at time.Time) error {
	query := s.db.Rebind(`
		INSERT INTO parse_states (fingerprint, total_pages, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (fingerprint) DO UPDATE SET
			total_pages = excluded.total_pages,
			updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, query, fp, totalPages, at.UnixNano(), at.UnixNano()); err != nil {
		return sqlErrors.NewWithCause(ErrWrite, err).WithDetail("fingerprint", fp)
	}
	return nil
}

func (s *Store) touch(ctx context.Context, tx *sqlx.Tx, fp string, at time.Time) error {
	query := tx.Rebind(`
		INSERT INTO parse_states (fingerprint, total_pages, created_at, updated_at)
		VALUES (?, 0, ?, ?)
		ON CONFLICT (fingerprint) DO UPDATE SET updated_at = excluded.updated_at`)
	_, err := tx.ExecContext(ctx, query, fp, at.UnixNano(), at.UnixNano())
	return err
}

func (s *Store) SaveSuccess(ctx context.Context, fp string, page ocr.Page, at time.Time) error {
	data, err := json.Marshal(page)
	if err != nil {
		return sqlErrors.NewWithCause(ErrMarshal, err)
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO parse_pages (fingerprint, page_no, status, content, retry_count)
			VALUES (?, ?, ?, ?, 0)
			ON CONFLICT (fingerprint, page_no) DO UPDATE SET
				status = excluded.status,
				content = excluded.content,
				error_message = NULL,
				failed_at = NULL`)
		if _, err := tx.ExecContext(ctx, query, fp, page.PageNo, statusSuccess, string(data)); err != nil {
			return err
		}
		return s.touch(ctx, tx, fp, at)
	})
	if err != nil {
		return sqlErrors.NewWithCause(ErrWrite, err).
			WithDetail("fingerprint", fp).
			WithDetail("page", page.PageNo)
	}
	return nil
}

func (s *Store) SaveFailure(ctx context.Context, fp string, pageNo int, message string, at time.Time) (parsecache.FailureInfo, error) {
	var info parsecache.FailureInfo
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO parse_pages (fingerprint, page_no, status, error_message, retry_count, failed_at)
			VALUES (?, ?, ?, ?, 1, ?)
			ON CONFLICT (fingerprint, page_no) DO UPDATE SET
				error_message = excluded.error_message,
				failed_at = excluded.failed_at,
				retry_count = parse_pages.retry_count + 1
			WHERE parse_pages.status <> ?`)
		if _, err := tx.ExecContext(ctx, query, fp, pageNo, statusFailed, message, at.UnixNano(), statusSuccess); err != nil {
			return err
		}

		var row pageRow
		sel := tx.Rebind(`SELECT page_no, status, content, error_message, retry_count, failed_at
			FROM parse_pages WHERE fingerprint = ? AND page_no = ?`)
		if err := tx.GetContext(ctx, &row, sel, fp, pageNo); err != nil {
			return err
		}
		if row.Status == statusSuccess {
			return nil
		}
		info = parsecache.FailureInfo{Message: message, FailedAt: at, RetryCount: row.RetryCount}
		return s.touch(ctx, tx, fp, at)
	})
	if err != nil {
		return parsecache.FailureInfo{}, sqlErrors.NewWithCause(ErrWrite, err).
			WithDetail("fingerprint", fp).
			WithDetail("page", pageNo)
	}
	return info, nil
}

func (s *Store) Load(ctx context.Context, fp string) (*parsecache.State, error) {
	var st stateRow
	err := s.db.GetContext(ctx, &st, s.db.Rebind(
		`SELECT fingerprint, total_pages, created_at, updated_at FROM parse_states WHERE fingerprint = ?`), fp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, sqlErrors.NewWithCause(ErrRead, err).WithDetail("fingerprint", fp)
	}

	var rows []pageRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT page_no, status, content, error_message, retry_count, failed_at
		 FROM parse_pages WHERE fingerprint = ? ORDER BY page_no`), fp)
	if err != nil {
		return nil, sqlErrors.NewWithCause(ErrRead, err).WithDetail("fingerprint", fp)
	}

	out := parsecache.NewState(fp, st.TotalPages, time.Unix(0, st.CreatedAt).UTC())
	out.UpdatedAt = time.Unix(0, st.UpdatedAt).UTC()
	for _, r := range rows {
		switch r.Status {
		case statusSuccess:
			var page ocr.Page
			if err := json.Unmarshal([]byte(r.Content.String), &page); err != nil {
				return nil, parsecache.ErrRegistry.NewWithCause(parsecache.ErrCorruptState, err).
					WithDetail("fingerprint", fp).
					WithDetail("page", r.PageNo)
			}
			out.Successes[r.PageNo] = page
		case statusFailed:
			out.Failures[r.PageNo] = parsecache.FailureInfo{
				Message:    r.ErrorMessage.String,
				FailedAt:   time.Unix(0, r.FailedAt.Int64).UTC(),
				RetryCount: r.RetryCount,
			}
		}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, fp string) error {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM parse_pages WHERE fingerprint = ?`), fp); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM parse_states WHERE fingerprint = ?`), fp)
		return err
	})
	if err != nil {
		return sqlErrors.NewWithCause(ErrWrite, err).WithDetail("fingerprint", fp)
	}
	return nil
}

func (s *Store) Fingerprints(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.db.SelectContext(ctx, &out, `SELECT fingerprint FROM parse_states ORDER BY fingerprint`); err != nil {
		return nil, sqlErrors.NewWithCause(ErrRead, err)
	}
	return out, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
