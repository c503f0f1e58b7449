package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Effect names the loop a session ran.
type Effect string

const (
	EffectCloak  Effect = "cloak"
	EffectCanvas Effect = "canvas"
)

// Session is one run of an effect loop.
type Session struct {
	ID        string
	Effect    Effect
	StartedAt time.Time
	// EndedAt is zero while the session is running.
	EndedAt time.Time
	Frames  int
}

// SessionRepository records effect sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Start inserts a running session for effect.
func (r *SessionRepository) Start(effect Effect) (*Session, error) {
	sess := &Session{
		ID:        uuid.New().String(),
		Effect:    effect,
		StartedAt: time.Now().UTC(),
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, effect, started_at) VALUES (?, ?, ?)`,
		sess.ID, string(sess.Effect), sess.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// End marks a session finished after frames frames.
func (r *SessionRepository) End(id string, frames int) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ? WHERE id = ?`,
		time.Now().UTC(), frames, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, effect, started_at, ended_at, frames FROM sessions WHERE id = ?`,
		id,
	)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

// List returns all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, effect, started_at, ended_at, frames FROM sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var effect string
	var ended sql.NullTime

	if err := row.Scan(&sess.ID, &effect, &sess.StartedAt, &ended, &sess.Frames); err != nil {
		return nil, err
	}
	sess.Effect = Effect(effect)
	if ended.Valid {
		sess.EndedAt = ended.Time
	}
	return sess, nil
}
