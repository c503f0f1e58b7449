package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/volverse/internal/store"
)

// ArtworkHandler serves /api/artworks and /api/artworks/{id}.
type ArtworkHandler struct {
	store *store.Store
}

// NewArtworkHandler creates an ArtworkHandler backed by s.
func NewArtworkHandler(s *store.Store) *ArtworkHandler {
	return &ArtworkHandler{store: s}
}

type artworkResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id,omitempty"`
	Path      string `json:"path"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CreatedAt string `json:"created_at"`
}

type listArtworksResponse struct {
	Artworks []artworkResponse `json:"artworks"`
}

func toArtworkResponse(a *store.Artwork) artworkResponse {
	return artworkResponse{
		ID:        a.ID,
		SessionID: a.SessionID,
		Path:      a.Path,
		Width:     a.Width,
		Height:    a.Height,
		CreatedAt: formatTime(a.CreatedAt),
	}
}

// ServeHTTP routes on the path below /api/artworks.
func (h *ArtworkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/artworks"), "/")
	if id == "" {
		h.list(w)
		return
	}

	a, err := h.store.Artworks().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artwork not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get artwork")
		return
	}
	writeJSON(w, http.StatusOK, toArtworkResponse(a))
}

func (h *ArtworkHandler) list(w http.ResponseWriter) {
	list, err := h.store.Artworks().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list artworks")
		return
	}

	resp := listArtworksResponse{Artworks: make([]artworkResponse, 0, len(list))}
	for _, a := range list {
		resp.Artworks = append(resp.Artworks, toArtworkResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}
