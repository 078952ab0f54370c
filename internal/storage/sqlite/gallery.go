// Package sqlite provides a single-file gallery store on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// GalleryRepository is a gallery.Store persisted in one SQLite file.
type GalleryRepository struct {
	db       *sql.DB
	capacity int
	now      func() time.Time
}

// Open opens (creating if needed) the database at path and applies migrations.
// A capacity of zero or less uses gallery.DefaultCapacity.
func Open(path string, capacity int) (*GalleryRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	if capacity <= 0 {
		capacity = gallery.DefaultCapacity
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps the capacity check and insert atomic.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &GalleryRepository{db: db, capacity: capacity, now: time.Now}, nil
}

func applyMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the SQLite handle.
func (r *GalleryRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// List implements gallery.Store.
func (r *GalleryRepository) List(ctx context.Context) ([]gallery.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, profile, image, mime_type, created_at
		FROM gallery_entries ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list gallery entries: %w", err)
	}
	defer rows.Close()

	entries := make([]gallery.Entry, 0)
	for rows.Next() {
		var (
			e       gallery.Entry
			profile string
			created int64
		)
		if err := rows.Scan(&e.ID, &profile, &e.Image, &e.MimeType, &created); err != nil {
			return nil, fmt.Errorf("scan gallery row: %w", err)
		}
		if err := json.Unmarshal([]byte(profile), &e.Profile); err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", e.ID, err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Insert implements gallery.Store.
func (r *GalleryRepository) Insert(ctx context.Context, e gallery.Entry) (gallery.Entry, error) {
	if err := ctx.Err(); err != nil {
		return gallery.Entry{}, err
	}
	prepared, err := gallery.Prepare(e)
	if err != nil {
		return gallery.Entry{}, err
	}
	profile, err := json.Marshal(prepared.Profile)
	if err != nil {
		return gallery.Entry{}, fmt.Errorf("encode profile: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return gallery.Entry{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM gallery_entries`).Scan(&count); err != nil {
		return gallery.Entry{}, fmt.Errorf("count gallery entries: %w", err)
	}
	if count >= r.capacity {
		return gallery.Entry{}, gallery.ErrFull
	}

	prepared.ID = uuid.NewString()
	prepared.CreatedAt = time.UnixMilli(r.now().UnixMilli()).UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO gallery_entries (id, title, species, profile, image, mime_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		prepared.ID, prepared.Profile.Title, prepared.Profile.Species, string(profile),
		prepared.Image, prepared.MimeType, prepared.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return gallery.Entry{}, gallery.ErrDuplicate
		}
		return gallery.Entry{}, fmt.Errorf("insert gallery entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return gallery.Entry{}, fmt.Errorf("commit gallery entry: %w", err)
	}
	return prepared, nil
}

// Delete implements gallery.Store.
func (r *GalleryRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM gallery_entries WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete gallery entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete gallery entry: %w", err)
	}
	if n == 0 {
		return gallery.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ gallery.Store = (*GalleryRepository)(nil)
