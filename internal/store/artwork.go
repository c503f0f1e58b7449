package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Artwork is a saved canvas image.
type Artwork struct {
	ID        string
	SessionID string
	Path      string
	Width     int
	Height    int
	CreatedAt time.Time
}

// ArtworkRepository records saved artworks.
type ArtworkRepository struct {
	db *sql.DB
}

// Artworks returns the artwork repository for this store.
func (s *Store) Artworks() *ArtworkRepository {
	return &ArtworkRepository{db: s.db}
}

// Create inserts a, assigning an ID when it has none.
func (r *ArtworkRepository) Create(a *Artwork) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now().UTC()

	var session any
	if a.SessionID != "" {
		session = a.SessionID
	}

	_, err := r.db.Exec(
		`INSERT INTO artworks (id, session_id, path, width, height, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, session, a.Path, a.Width, a.Height, a.CreatedAt,
	)
	return err
}

// GetByID retrieves an artwork by its ID.
func (r *ArtworkRepository) GetByID(id string) (*Artwork, error) {
	a := &Artwork{}
	var session sql.NullString

	err := r.db.QueryRow(
		`SELECT id, session_id, path, width, height, created_at FROM artworks WHERE id = ?`,
		id,
	).Scan(&a.ID, &session, &a.Path, &a.Width, &a.Height, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	a.SessionID = session.String
	return a, nil
}

// List returns all artworks, newest first.
func (r *ArtworkRepository) List() ([]*Artwork, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, path, width, height, created_at FROM artworks ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Artwork
	for rows.Next() {
		a := &Artwork{}
		var session sql.NullString
		if err := rows.Scan(&a.ID, &session, &a.Path, &a.Width, &a.Height, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.SessionID = session.String
		list = append(list, a)
	}
	return list, rows.Err()
}
