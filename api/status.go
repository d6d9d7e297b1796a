package api

import (
	"context"
	"net/http"

	"github.com/qaforge/casegen/internal/log"
)

// StatusStore is the slice of the vector store the status endpoint needs.
type StatusStore interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	Count(ctx context.Context, name string) (int64, error)
}

// StatusResponse describes the state of the retrieval corpus.
type StatusResponse struct {
	Collection string `json:"collection"`
	Exists     bool   `json:"exists"`
	Points     int64  `json:"points"`
}

// StatusHandler reports on the configured collection.
type StatusHandler struct {
	store      StatusStore
	collection string
	logger     log.Logger
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(store StatusStore, collection string, logger log.Logger) *StatusHandler {
	return &StatusHandler{store: store, collection: collection, logger: logger}
}

// RegisterRoutes registers status routes on the given mux.
func (h *StatusHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", h.status)
}

// status reports whether the collection exists and how many entries it
// holds. A missing collection is a normal pre-ingestion state, not an
// error, so it answers 200 with Exists false.
func (h *StatusHandler) status(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.logger.Error("status handler has no store")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := StatusResponse{Collection: h.collection}

	exists, err := h.store.CollectionExists(r.Context(), h.collection)
	if err != nil {
		h.logger.Error("checking collection", "error", err)
		writeError(w, http.StatusInternalServerError, "status_failed", "could not check collection")
		return
	}
	resp.Exists = exists

	if exists {
		count, err := h.store.Count(r.Context(), h.collection)
		if err != nil {
			h.logger.Error("counting entries", "error", err)
			writeError(w, http.StatusInternalServerError, "status_failed", "could not count entries")
			return
		}
		resp.Points = count
	}

	writeJSON(w, http.StatusOK, resp)
}
