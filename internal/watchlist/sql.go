package watchlist

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLSource reads the watch-list from a `watchlist` table in SQLite or
// Postgres.
type SQLSource struct {
	db     *sql.DB
	driver string
}

// Open picks the driver from the DSN: postgres:// and postgresql:// URLs
// use lib/pq, anything else is a SQLite path (an optional sqlite: prefix is
// stripped).
func Open(ctx context.Context, dsn string) (*SQLSource, error) {
	driver, source := "sqlite", strings.TrimPrefix(dsn, "sqlite:")
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver, source = "postgres", dsn
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	s := NewSQLSource(db, driver)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("[INFO] watchlist opened (%s)", driver)
	return s, nil
}

// NewSQLSource wraps an open database.
func NewSQLSource(db *sql.DB, driver string) *SQLSource {
	return &SQLSource{db: db, driver: driver}
}

func (s *SQLSource) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS watchlist (
		symbol   TEXT PRIMARY KEY,
		position INTEGER NOT NULL DEFAULT 0,
		enabled  BOOLEAN NOT NULL DEFAULT TRUE
	)`)
	if err != nil {
		return fmt.Errorf("create watchlist table: %w", err)
	}
	return nil
}

func (s *SQLSource) placeholder(n int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// LoadSymbols returns the enabled symbols ordered by position.
func (s *SQLSource) LoadSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT symbol FROM watchlist WHERE enabled ORDER BY position, symbol")
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan watchlist row: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist: %w", err)
	}
	return Normalize(symbols), nil
}

// Seed upserts symbols with positions following their order.
func (s *SQLSource) Seed(ctx context.Context, symbols []string) error {
	query := fmt.Sprintf(
		"INSERT INTO watchlist (symbol, position) VALUES (%s, %s) ON CONFLICT (symbol) DO UPDATE SET position = excluded.position",
		s.placeholder(1), s.placeholder(2))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	for i, sym := range Normalize(symbols) {
		if _, err := tx.ExecContext(ctx, query, sym, i); err != nil {
			tx.Rollback()
			return fmt.Errorf("seed %s: %w", sym, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}
