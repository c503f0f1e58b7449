package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ayusman/volverse/internal/events"
)

// GestureEvent is a stored accepted trigger.
type GestureEvent struct {
	ID         int64
	SessionID  string
	Type       events.Type
	Gesture    string
	Confidence float64
	Detail     string
	OccurredAt time.Time
}

// EventRepository stores gesture events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the gesture event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts e and sets its ID.
func (r *EventRepository) Create(ctx context.Context, e *GestureEvent) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO gesture_events (session_id, type, gesture, confidence, detail, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, string(e.Type), e.Gesture, e.Confidence, e.Detail, e.OccurredAt.UTC(),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// ListBySession returns a session's events in the order they happened.
func (r *EventRepository) ListBySession(sessionID string) ([]*GestureEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, type, gesture, confidence, detail, occurred_at
		 FROM gesture_events WHERE session_id = ? ORDER BY occurred_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*GestureEvent
	for rows.Next() {
		e := &GestureEvent{}
		var typ string
		if err := rows.Scan(&e.ID, &e.SessionID, &typ, &e.Gesture, &e.Confidence, &e.Detail, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Type = events.Type(typ)
		list = append(list, e)
	}
	return list, rows.Err()
}

// Publisher returns an events.Publisher that stores every event under
// sessionID.
func (r *EventRepository) Publisher(sessionID string) events.Publisher {
	return events.PublisherFunc(func(ctx context.Context, e events.Event) error {
		return r.Create(ctx, &GestureEvent{
			SessionID:  sessionID,
			Type:       e.Type,
			Gesture:    e.Gesture,
			Confidence: e.Confidence,
			Detail:     e.Detail,
			OccurredAt: e.Timestamp,
		})
	})
}
