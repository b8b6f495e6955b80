package product

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/northbynortheast/signmaker/pkg/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	m_number TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	color TEXT NOT NULL,
	size TEXT NOT NULL,
	orientation TEXT NOT NULL DEFAULT 'landscape',
	mounting_type TEXT NOT NULL,
	layout_mode TEXT NOT NULL DEFAULT 'A',
	font TEXT NOT NULL DEFAULT 'arial_heavy',
	icon_files_json TEXT NOT NULL DEFAULT '[]',
	text_lines_json TEXT NOT NULL DEFAULT '[]',
	icon_scale REAL NOT NULL DEFAULT 1.0,
	text_scale REAL NOT NULL DEFAULT 1.0,
	icon_offset_x REAL NOT NULL DEFAULT 0,
	icon_offset_y REAL NOT NULL DEFAULT 0,
	ean TEXT NOT NULL DEFAULT '',
	qa_status TEXT NOT NULL DEFAULT 'pending',
	qa_comment TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_qa_status ON products(qa_status);
`

const productColumns = `id, m_number, description, color, size, orientation, mounting_type,
	layout_mode, font, icon_files_json, text_lines_json, icon_scale, text_scale,
	icon_offset_x, icon_offset_y, ean, qa_status, qa_comment, created_at, updated_at`

// SQLiteStore is a Store backed by a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path. The special
// path ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "create database directory")
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open database %s", path)
	}
	if path == ":memory:" {
		// Each connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "initialize schema")
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]*Product, error) {
	var (
		where []string
		args  []any
	)
	if f.QAStatus != "" {
		where = append(where, "qa_status = ?")
		args = append(args, string(f.QAStatus))
	}
	if len(f.MNumbers) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(f.MNumbers)), ",")
		where = append(where, "m_number IN ("+marks+")")
		for _, m := range f.MNumbers {
			args = append(args, m)
		}
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY m_number"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list products")
	}
	defer rows.Close()

	var out []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list products")
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, mNumber string) (*Product, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE m_number = ?", mNumber)
	p, err := scanProduct(row)
	if errors.Is(err, errors.ErrCodeProductNotFound) {
		return nil, errors.New(errors.ErrCodeProductNotFound, "product %s not found", mNumber)
	}
	return p, err
}

func (s *SQLiteStore) Create(ctx context.Context, p *Product) error {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	icons, lines, err := encodeLists(p)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO products (
		m_number, description, color, size, orientation, mounting_type,
		layout_mode, font, icon_files_json, text_lines_json, icon_scale, text_scale,
		icon_offset_x, icon_offset_y, ean, qa_status, qa_comment, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.MNumber, p.Description, p.Color, p.Size, p.Orientation, p.Mounting,
		p.LayoutMode, p.Font, icons, lines, p.IconScale, p.TextScale,
		p.IconOffsetX, p.IconOffsetY, p.EAN, p.QAStatus, p.QAComment, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.New(errors.ErrCodeConflict, "product %s already exists", p.MNumber)
		}
		return errors.Wrap(errors.ErrCodeStorage, err, "insert product %s", p.MNumber)
	}
	if id, err := res.LastInsertId(); err == nil {
		p.ID = id
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, mNumber string, patch Patch) (*Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "begin update")
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE m_number = ?", mNumber)
	p, err := scanProduct(row)
	if errors.Is(err, errors.ErrCodeProductNotFound) {
		return nil, errors.New(errors.ErrCodeProductNotFound, "product %s not found", mNumber)
	}
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(p); err != nil {
		return nil, err
	}

	icons, lines, err := encodeLists(p)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `UPDATE products SET
		description = ?, color = ?, size = ?, orientation = ?, mounting_type = ?,
		layout_mode = ?, font = ?, icon_files_json = ?, text_lines_json = ?,
		icon_scale = ?, text_scale = ?, icon_offset_x = ?, icon_offset_y = ?,
		ean = ?, qa_status = ?, qa_comment = ?, updated_at = ?
		WHERE m_number = ?`,
		p.Description, p.Color, p.Size, p.Orientation, p.Mounting,
		p.LayoutMode, p.Font, icons, lines,
		p.IconScale, p.TextScale, p.IconOffsetX, p.IconOffsetY,
		p.EAN, p.QAStatus, p.QAComment, p.UpdatedAt, mNumber,
	)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "update product %s", mNumber)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "commit update")
	}
	return p, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, mNumber string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE m_number = ?", mNumber)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete product %s", mNumber)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeProductNotFound, "product %s not found", mNumber)
	}
	return nil
}

// encodeLists encodes the icon and text line slices as JSON arrays.
func encodeLists(p *Product) (icons, lines string, err error) {
	if p.Icons == nil {
		icons = "[]"
	} else {
		b, err := json.Marshal(p.Icons)
		if err != nil {
			return "", "", errors.Wrap(errors.ErrCodeInternal, err, "encode icons")
		}
		icons = string(b)
	}
	b, err := json.Marshal(p.TextLines)
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeInternal, err, "encode text lines")
	}
	return icons, string(b), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var (
		p     Product
		icons string
		lines string
	)
	err := row.Scan(&p.ID, &p.MNumber, &p.Description, &p.Color, &p.Size, &p.Orientation, &p.Mounting,
		&p.LayoutMode, &p.Font, &icons, &lines, &p.IconScale, &p.TextScale,
		&p.IconOffsetX, &p.IconOffsetY, &p.EAN, &p.QAStatus, &p.QAComment, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeProductNotFound, "product not found")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "scan product")
	}
	if err := json.Unmarshal([]byte(icons), &p.Icons); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode icons for %s", p.MNumber)
	}
	if len(p.Icons) == 0 {
		p.Icons = nil
	}
	if err := json.Unmarshal([]byte(lines), &p.TextLines); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode text lines for %s", p.MNumber)
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	if se, ok := err.(sqlite3.Error); ok {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(fmt.Sprint(err), "UNIQUE constraint failed")
}
