// Package sqlite reads published content records from the site's SQLite
// content database for the editor's search picker.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"menueditor-backend/internal/search"
)

// Schema creates the content table when it is missing. The service itself only
// reads; tests and local setups use it to seed a database.
const Schema = `
CREATE TABLE IF NOT EXISTS content (
	id          INTEGER PRIMARY KEY,
	contenttype TEXT NOT NULL,
	slug        TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	image       TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'published',
	datepublish TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_content_status ON content(status);
`

const searchQuery = `
SELECT id, contenttype, slug, title, image, body
FROM content
WHERE status = 'published'
  AND (title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' OR slug LIKE ? ESCAPE '\')
ORDER BY datepublish DESC, id DESC`

// ContentIndex implements search.ContentIndex over a SQLite database.
type ContentIndex struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens the database named by dsn, e.g. "file:content.db?mode=ro".
func Open(dsn string, logger *zap.Logger) (*ContentIndex, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open content index: %w", err)
	}
	// In-memory databases are per connection.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	return New(db, logger), nil
}

// New wraps an open database.
func New(db *sql.DB, logger *zap.Logger) *ContentIndex {
	return &ContentIndex{db: db, logger: logger}
}

// EnsureSchema creates the content table.
func (c *ContentIndex) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create content schema: %w", err)
	}
	return nil
}

// SearchContent implements search.ContentIndex. Matching is case-insensitive
// for ASCII, which is what SQLite's LIKE offers.
func (c *ContentIndex) SearchContent(ctx context.Context, query string) ([]search.Record, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := c.db.QueryContext(ctx, searchQuery, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search content: %w", err)
	}
	defer rows.Close()

	var records []search.Record
	for rows.Next() {
		var (
			id  int64
			rec search.Record
		)
		if err := rows.Scan(&id, &rec.ContentType, &rec.Slug, &rec.Title, &rec.Image, &rec.Excerpt); err != nil {
			return nil, fmt.Errorf("scan content row: %w", err)
		}
		rec.ID = fmt.Sprint(id)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content rows: %w", err)
	}

	c.logger.Debug("Content index searched", zap.String("query", query), zap.Int("records", len(records)))
	return records, nil
}

// Close closes the database.
func (c *ContentIndex) Close() error {
	return c.db.Close()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
