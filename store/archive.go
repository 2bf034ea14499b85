package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"mapsreviews/review"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Archive keeps every scrape run of a location in a SQLite file so runs can
// be compared later.
type Archive struct {
	db *sql.DB
}

// Run describes one archived scrape.
type Run struct {
	ID        int64
	Location  string
	URL       string
	ScrapedAt time.Time
	Reviews   int
}

func OpenArchive(path string) (*Archive, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	return openArchive(dsn)
}

func openArchive(dsn string) (*Archive, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Archive{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveRun stores the reviews of one scrape in order and returns the run id.
func (a *Archive) SaveRun(ctx context.Context, location, url string, scrapedAt time.Time, reviews []review.Review) (int64, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (location, url, scraped_at) VALUES (?, ?, ?)`,
		location, url, scrapedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reviews (run_id, position, location, reviewer_name, rating, time_text, resolved_date, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare review insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range reviews {
		if _, err := stmt.ExecContext(ctx,
			runID, i, r.Location, r.Reviewer, r.Rating, r.RelativeTime,
			r.ResolvedDate.Format(dateLayout), r.ScrapedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return 0, fmt.Errorf("insert review %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// Runs lists archived runs, most recent first.
func (a *Archive) Runs(ctx context.Context) ([]Run, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT r.id, r.location, r.url, r.scraped_at, COUNT(v.id)
		FROM runs r LEFT JOIN reviews v ON v.run_id = r.id
		GROUP BY r.id
		ORDER BY r.scraped_at DESC, r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var scrapedAt string
		if err := rows.Scan(&run.ID, &run.Location, &run.URL, &scrapedAt, &run.Reviews); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.ScrapedAt, err = time.Parse(time.RFC3339, scrapedAt); err != nil {
			return nil, fmt.Errorf("parse run %d scraped_at: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunReviews returns the reviews of a run in their scraped order.
func (a *Archive) RunReviews(ctx context.Context, runID int64) ([]review.Review, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT location, reviewer_name, rating, time_text, resolved_date, scraped_at
		FROM reviews WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []review.Review
	for rows.Next() {
		var r review.Review
		var resolved, scrapedAt string
		if err := rows.Scan(&r.Location, &r.Reviewer, &r.Rating, &r.RelativeTime, &resolved, &scrapedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		if r.ResolvedDate, err = time.Parse(dateLayout, resolved); err != nil {
			return nil, fmt.Errorf("parse resolved_date: %w", err)
		}
		if r.ScrapedAt, err = time.Parse(time.RFC3339, scrapedAt); err != nil {
			return nil, fmt.Errorf("parse scraped_at: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
