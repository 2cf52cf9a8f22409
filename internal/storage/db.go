package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"supplymatch/internal"
)

// DB is a local mirror of the supplier catalog. It serves the same two reads
// as the REST catalog so a run can reconcile offline.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS suppliers (
  pos INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL,
  name TEXT NOT NULL UNIQUE,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
  pos INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL,
  supplier TEXT NOT NULL,
  description TEXT NOT NULL,
  price REAL NOT NULL DEFAULT 0,
  rate REAL NOT NULL DEFAULT 0,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_items_supplier ON items(supplier);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// ReplaceSuppliers makes suppliers the full supplier list, in order. Items of
// suppliers that are no longer listed are dropped in the same transaction.
func (d *DB) ReplaceSuppliers(ctx context.Context, suppliers []internal.Supplier) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM suppliers`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO suppliers (id, name, lastSeenAt) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(name) DO NOTHING
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range suppliers {
		if _, err := stmt.ExecContext(ctx, string(s.ID), s.Name); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE supplier NOT IN (SELECT name FROM suppliers)`); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceItems swaps the stored item list of one supplier for items, keeping
// their order. Items are not keyed by id, so rows without one are all kept.
func (d *DB) ReplaceItems(ctx context.Context, supplier string, items []internal.Item) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE supplier = ?`, supplier); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO items (id, supplier, description, price, rate, lastSeenAt)
VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, string(item.ID), supplier, item.Description, item.Price, item.Rate); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListSuppliers(ctx context.Context) ([]internal.Supplier, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT id, name FROM suppliers ORDER BY pos ASC`)
	if err != nil {
		return nil, &internal.CatalogError{Op: "list suppliers", Err: err}
	}
	defer rows.Close()

	var out []internal.Supplier
	for rows.Next() {
		var s internal.Supplier
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, &internal.CatalogError{Op: "list suppliers", Err: err}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &internal.CatalogError{Op: "list suppliers", Err: err}
	}
	return out, nil
}

func (d *DB) ListItems(ctx context.Context, supplier string) ([]internal.Item, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, supplier, description, price, rate
FROM items WHERE supplier = ? ORDER BY pos ASC`, supplier)
	if err != nil {
		return nil, &internal.CatalogError{Op: "list items", Supplier: supplier, Err: err}
	}
	defer rows.Close()

	var out []internal.Item
	for rows.Next() {
		var item internal.Item
		if err := rows.Scan(&item.ID, &item.Supplier, &item.Description, &item.Price, &item.Rate); err != nil {
			return nil, &internal.CatalogError{Op: "list items", Supplier: supplier, Err: err}
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &internal.CatalogError{Op: "list items", Supplier: supplier, Err: err}
	}
	return out, nil
}

func (d *DB) CountItems(ctx context.Context) (int, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n)
	return n, err
}

func (d *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(ctx context.Context, key string) (*string, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
