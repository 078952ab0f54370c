package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
)

// galleryLockKey serialises capacity checks across concurrent inserts.
const galleryLockKey = 0x6265617374 // "beast"

// GalleryRepository is a gallery.Store backed by the gallery_entries table.
type GalleryRepository struct {
	db       *pgxpool.Pool
	capacity int
}

// NewGalleryRepository creates a GalleryRepository backed by the given pool.
// A capacity of zero or less uses gallery.DefaultCapacity.
//
// Precondition: db must be a valid, open connection pool with migrations applied.
func NewGalleryRepository(db *pgxpool.Pool, capacity int) *GalleryRepository {
	if capacity <= 0 {
		capacity = gallery.DefaultCapacity
	}
	return &GalleryRepository{db: db, capacity: capacity}
}

// List implements gallery.Store.
//
// Postcondition: Returns entries newest first (may be empty) or a non-nil error.
func (r *GalleryRepository) List(ctx context.Context) ([]gallery.Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, profile, image, mime_type, created_at
		FROM gallery_entries ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing gallery entries: %w", err)
	}
	defer rows.Close()

	entries := make([]gallery.Entry, 0)
	for rows.Next() {
		var (
			e   gallery.Entry
			raw []byte
		)
		if err := rows.Scan(&e.ID, &raw, &e.Image, &e.MimeType, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning gallery row: %w", err)
		}
		if err := json.Unmarshal(raw, &e.Profile); err != nil {
			return nil, fmt.Errorf("decoding profile %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Insert implements gallery.Store. The capacity check and the insert run in one
// transaction holding an advisory lock.
//
// Postcondition: Returns the stored entry, or ErrFull / ErrDuplicate with no row written.
func (r *GalleryRepository) Insert(ctx context.Context, e gallery.Entry) (gallery.Entry, error) {
	prepared, err := gallery.Prepare(e)
	if err != nil {
		return gallery.Entry{}, err
	}
	profile, err := json.Marshal(prepared.Profile)
	if err != nil {
		return gallery.Entry{}, fmt.Errorf("encoding profile: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return gallery.Entry{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(galleryLockKey)); err != nil {
		return gallery.Entry{}, fmt.Errorf("locking gallery: %w", err)
	}
	var count int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM gallery_entries`).Scan(&count); err != nil {
		return gallery.Entry{}, fmt.Errorf("counting gallery entries: %w", err)
	}
	if count >= r.capacity {
		return gallery.Entry{}, gallery.ErrFull
	}

	prepared.ID = uuid.NewString()
	err = tx.QueryRow(ctx, `
		INSERT INTO gallery_entries (id, title, species, profile, image, mime_type)
		VALUES ($1::uuid, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		prepared.ID, prepared.Profile.Title, prepared.Profile.Species, profile, prepared.Image, prepared.MimeType,
	).Scan(&prepared.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return gallery.Entry{}, gallery.ErrDuplicate
		}
		return gallery.Entry{}, fmt.Errorf("inserting gallery entry: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return gallery.Entry{}, fmt.Errorf("committing gallery entry: %w", err)
	}
	return prepared, nil
}

// Delete implements gallery.Store.
func (r *GalleryRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return gallery.ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM gallery_entries WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("deleting gallery entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return gallery.ErrNotFound
	}
	return nil
}

func isDuplicateKeyError(err error) bool {
	// SQLSTATE 23505 is unique_violation.
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

var _ gallery.Store = (*GalleryRepository)(nil)
