package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/cwygoda/jobwatch/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS watch_criteria (
    id          TEXT PRIMARY KEY,
    position    INTEGER NOT NULL,
    keywords    TEXT NOT NULL,
    location    TEXT NOT NULL,
    platforms   TEXT NOT NULL,
    auto_apply  INTEGER NOT NULL DEFAULT 1,
    filters     TEXT NOT NULL DEFAULT '{}',
    enabled     INTEGER NOT NULL DEFAULT 1,
    user_email  TEXT,
    resume_path TEXT,
    created_at  DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS seen_jobs (
    fingerprint TEXT PRIMARY KEY,
    seen_at     DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS applications (
    seq               INTEGER PRIMARY KEY AUTOINCREMENT,
    id                TEXT NOT NULL UNIQUE,
    title             TEXT NOT NULL,
    company           TEXT NOT NULL,
    location          TEXT NOT NULL,
    platform          TEXT NOT NULL,
    url               TEXT NOT NULL,
    status            TEXT NOT NULL,
    message           TEXT,
    applied_at        DATETIME NOT NULL,
    auto_applied      INTEGER NOT NULL DEFAULT 0,
    watch_criteria_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_applications_url ON applications(url);
`

// Repository implements the watch list, seen job and application
// repositories on a single SQLite database.
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository, initializing the schema if needed.
func New(dbPath string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize schema")
	}

	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// LoadWatchList returns all watch items in their stored order.
func (r *Repository) LoadWatchList(ctx context.Context) ([]domain.WatchCriteria, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, keywords, location, platforms, auto_apply, filters, enabled,
		        COALESCE(user_email, ''), COALESCE(resume_path, ''), created_at
		 FROM watch_criteria ORDER BY position ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.WatchCriteria
	for rows.Next() {
		var c domain.WatchCriteria
		var platforms, filters string
		if err := rows.Scan(&c.ID, &c.Keywords, &c.Location, &platforms, &c.AutoApply,
			&filters, &c.Enabled, &c.UserEmail, &c.ResumePath, &c.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(platforms), &c.Platforms); err != nil {
			return nil, errors.Wrapf(err, "decode platforms of %s", c.ID)
		}
		if err := json.Unmarshal([]byte(filters), &c.Filters); err != nil {
			return nil, errors.Wrapf(err, "decode filters of %s", c.ID)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// SaveWatchList replaces the stored watch list in one transaction.
func (r *Repository) SaveWatchList(ctx context.Context, items []domain.WatchCriteria) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM watch_criteria`); err != nil {
		return err
	}
	for i, c := range items {
		platforms, err := json.Marshal(c.Platforms)
		if err != nil {
			return err
		}
		filters, err := json.Marshal(c.Filters)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO watch_criteria
			 (id, position, keywords, location, platforms, auto_apply, filters, enabled, user_email, resume_path, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, i, c.Keywords, c.Location, string(platforms), c.AutoApply, string(filters),
			c.Enabled, c.UserEmail, c.ResumePath, c.CreatedAt,
		); err != nil {
			return errors.Wrapf(err, "insert %s", c.ID)
		}
	}
	return tx.Commit()
}

// LoadSeen returns every stored fingerprint.
func (r *Repository) LoadSeen(ctx context.Context) ([]domain.Fingerprint, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT fingerprint FROM seen_jobs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fps []domain.Fingerprint
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		fps = append(fps, domain.Fingerprint(fp))
	}
	return fps, rows.Err()
}

// SaveSeen stores fingerprints, ignoring ones already present.
func (r *Repository) SaveSeen(ctx context.Context, fps []domain.Fingerprint) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO seen_jobs (fingerprint) VALUES (?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, fp := range fps {
		if _, err := stmt.ExecContext(ctx, string(fp)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadApplications returns the ledger in append order.
func (r *Repository) LoadApplications(ctx context.Context) ([]domain.Application, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, company, location, platform, url, status, COALESCE(message, ''),
		        applied_at, auto_applied, COALESCE(watch_criteria_id, '')
		 FROM applications ORDER BY seq ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []domain.Application
	for rows.Next() {
		var a domain.Application
		var status string
		if err := rows.Scan(&a.ID, &a.Title, &a.Company, &a.Location, &a.Platform, &a.URL,
			&status, &a.Message, &a.Timestamp, &a.AutoApplied, &a.WatchCriteriaID); err != nil {
			return nil, err
		}
		a.Status = domain.ApplicationStatus(status)
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// AppendApplications inserts records. Records whose id is already stored
// are skipped, so a retried batch is written once.
func (r *Repository) AppendApplications(ctx context.Context, apps []domain.Application) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range apps {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO applications
			 (id, title, company, location, platform, url, status, message, applied_at, auto_applied, watch_criteria_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Title, a.Company, a.Location, a.Platform, a.URL, string(a.Status),
			a.Message, a.Timestamp, a.AutoApplied, nullable(a.WatchCriteriaID),
		); err != nil {
			return errors.Wrapf(err, "insert application %s", a.ID)
		}
	}
	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
