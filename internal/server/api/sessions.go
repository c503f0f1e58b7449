package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/volverse/internal/store"
)

// SessionHandler serves /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/events.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a SessionHandler backed by s.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

type sessionResponse struct {
	ID        string `json:"id"`
	Effect    string `json:"effect"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	Frames    int    `json:"frames"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type eventResponse struct {
	ID         int64   `json:"id"`
	Type       string  `json:"type"`
	Gesture    string  `json:"gesture,omitempty"`
	Confidence float64 `json:"confidence"`
	Detail     string  `json:"detail,omitempty"`
	OccurredAt string  `json:"occurred_at"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		Effect:    string(s.Effect),
		StartedAt: formatTime(s.StartedAt),
		EndedAt:   formatTime(s.EndedAt),
		Frames:    s.Frames,
	}
}

// ServeHTTP routes on the path below /api/sessions.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	switch {
	case path == "":
		h.list(w)
	case strings.HasSuffix(path, "/events"):
		h.events(w, strings.TrimSuffix(path, "/events"))
	case !strings.Contains(path, "/"):
		h.get(w, path)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *SessionHandler) list(w http.ResponseWriter) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	resp := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) get(w http.ResponseWriter, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *SessionHandler) events(w http.ResponseWriter, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	list, err := h.store.Events().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	resp := listEventsResponse{Events: make([]eventResponse, 0, len(list))}
	for _, e := range list {
		resp.Events = append(resp.Events, eventResponse{
			ID:         e.ID,
			Type:       string(e.Type),
			Gesture:    e.Gesture,
			Confidence: e.Confidence,
			Detail:     e.Detail,
			OccurredAt: formatTime(e.OccurredAt),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
