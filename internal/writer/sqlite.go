package writer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Devon-White/achievement-scraper/internal/extractor"
)

const createTable = `CREATE TABLE IF NOT EXISTS achievements (
	id         INTEGER PRIMARY KEY,
	nickname   TEXT NOT NULL,
	date       TEXT NOT NULL,
	vm_title   TEXT NOT NULL,
	difficulty TEXT NOT NULL,
	rank       TEXT NOT NULL
)`

// SQLiteSink mirrors achievements into an SQLite table keyed by id.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating achievements table: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Write upserts records in a single transaction.
func (s *SQLiteSink) Write(ctx context.Context, records []*extractor.Achievement) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO achievements
		(id, nickname, date, vm_title, difficulty, rank) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Nickname, r.Date, r.VMTitle, r.Difficulty, r.Rank); err != nil {
			return fmt.Errorf("inserting achievement %d: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of stored achievements.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM achievements").Scan(&n)
	return n, err
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
