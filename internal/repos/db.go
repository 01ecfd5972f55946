package repos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"ppecatalog/internal/seed"
)

// Open returns the SQL store for dsn, or the memory store when dsn is empty.
// Both start from b.
func Open(dsn string, b seed.Bundle, opts ...Option) (Store, error) {
	if dsn == "" {
		return NewMemory(b, opts...), nil
	}
	db, err := OpenDB(dsn, b)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	return NewSQL(db, opts...), nil
}

// OpenDB opens the SQLite database at dsn, creates the schema and loads the
// seed bundle when the catalog is empty.
func OpenDB(dsn string, b seed.Bundle) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err == nil {
		err = ensureSchema(db)
	}
	if err == nil {
		err = seedIfEmpty(db, b)
	}
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	// No foreign keys: deletes follow the store's DeletePolicy, which may
	// deliberately leave products orphaned.
	schema := `
-- Categories
CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  slug TEXT NOT NULL,
  image_url TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_categories_slug ON categories(slug);

-- Subcategories, specification fields kept as a JSON array
CREATE TABLE IF NOT EXISTS subcategories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  category_id TEXT NOT NULL,
  slug TEXT NOT NULL,
  fields_json TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_subcategories_category ON subcategories(category_id);

-- Products
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price REAL NOT NULL DEFAULT 0,
  image_url TEXT NOT NULL DEFAULT '',
  is_new INTEGER NOT NULL DEFAULT 0,
  brand TEXT NOT NULL DEFAULT '',
  reference TEXT NOT NULL DEFAULT '',
  images_json TEXT NOT NULL DEFAULT '[]',
  specs_json TEXT NOT NULL DEFAULT '{}',
  sub_category_id TEXT NOT NULL,
  docs_json TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_products_subcategory ON products(sub_category_id);

-- Quotes
CREATE TABLE IF NOT EXISTS quotes(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  message TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  status TEXT NOT NULL CHECK (status IN ('pending','processing','completed','rejected')),
  created_at TEXT NOT NULL
);

-- Notification outbox
CREATE TABLE IF NOT EXISTS outbox(
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  recipient TEXT NOT NULL,
  reply_to TEXT NOT NULL DEFAULT '',
  subject TEXT NOT NULL,
  body TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('pending','sent','failed')),
  attempts INTEGER NOT NULL DEFAULT 0,
  last_error TEXT NOT NULL DEFAULT '',
  next_attempt_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  sent_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_outbox_due ON outbox(status, next_attempt_at);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB, b seed.Bundle) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	ctx := context.Background()
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range b.Categories {
		if _, err := tx.NamedExecContext(ctx, insertCategorySQL, c); err != nil {
			return fmt.Errorf("seed category %s: %w", c.ID, err)
		}
	}
	for _, s := range b.SubCategories {
		row, err := subToRow(s)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, insertSubCategorySQL, row); err != nil {
			return fmt.Errorf("seed subcategory %s: %w", s.ID, err)
		}
	}
	for _, p := range b.Products {
		row, err := productToRow(normalizeProduct(p))
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, insertProductSQL, row); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
