// Package catalog records which indexed models reference which asset files,
// so shared materials and textures can be told apart from exclusive ones.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ernie/mdl-tools/internal/assets"
)

// Catalog is a SQLite-backed reference index.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return c, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS refs (
		model  TEXT NOT NULL,
		path   TEXT NOT NULL,
		kind   TEXT NOT NULL,
		size   INTEGER NOT NULL,
		digest TEXT NOT NULL,
		PRIMARY KEY (model, path)
	);
	CREATE INDEX IF NOT EXISTS idx_refs_path ON refs(path);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Record replaces the references stored for man.Model with man's files.
// Paths are stored lower-cased.
func (c *Catalog) Record(ctx context.Context, man *assets.Manifest) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback()

	model := strings.ToLower(man.Model)
	if _, err := tx.ExecContext(ctx, `DELETE FROM refs WHERE model = ?`, model); err != nil {
		return fmt.Errorf("clear %s: %w", man.Model, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO refs (model, path, kind, size, digest) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range man.Files {
		if _, err := stmt.ExecContext(ctx, model, strings.ToLower(f.Path), f.Kind, f.Size, f.Digest); err != nil {
			return fmt.Errorf("insert %s: %w", f.Path, err)
		}
	}
	return tx.Commit()
}

// Models returns every indexed model, sorted.
func (c *Catalog) Models(ctx context.Context) ([]string, error) {
	return c.queryStrings(ctx, `SELECT DISTINCT model FROM refs ORDER BY model`)
}

// Users returns the models that reference path, sorted.
func (c *Catalog) Users(ctx context.Context, path string) ([]string, error) {
	return c.queryStrings(ctx, `SELECT model FROM refs WHERE path = ? ORDER BY model`, strings.ToLower(path))
}

// Exclusive returns the files of model that no other indexed model
// references, sorted.
func (c *Catalog) Exclusive(ctx context.Context, model string) ([]string, error) {
	model = strings.ToLower(model)
	return c.queryStrings(ctx, `
		SELECT path FROM refs
		WHERE model = ?
		  AND path NOT IN (SELECT path FROM refs WHERE model <> ?)
		ORDER BY path`, model, model)
}

func (c *Catalog) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
