package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/qaforge/casegen/internal/log"
	"github.com/qaforge/casegen/internal/testgen"
)

// MaxStoryLength bounds the accepted user story size.
const MaxStoryLength = 10000

// GenerateRequest is the request body for POST /api/generate.
type GenerateRequest struct {
	Story string `json:"story"`
}

// RetrievedCase identifies one context entry used for generation.
type RetrievedCase struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// GenerateResponse is the response body for POST /api/generate.
type GenerateResponse struct {
	Output    string          `json:"output"`
	Retrieved []RetrievedCase `json:"retrieved"`
}

// GenerateHandler runs the query pipeline over HTTP.
type GenerateHandler struct {
	generator SuiteGenerator
	limiter   *rate.Limiter
	logger    log.Logger
}

// NewGenerateHandler creates a new generate handler.
func NewGenerateHandler(generator SuiteGenerator, limiter *rate.Limiter, logger log.Logger) *GenerateHandler {
	return &GenerateHandler{generator: generator, limiter: limiter, logger: logger}
}

// RegisterRoutes registers generation routes on the given mux.
func (h *GenerateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/generate", h.generate)
}

// generate runs the full pipeline for one user story. Pipeline errors map
// onto status codes by where they occurred: the caller's input (400), the
// retrieval path (503), or the model (502).
func (h *GenerateHandler) generate(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		h.logger.Error("generate handler has no pipeline")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many generation requests")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a story field")
		return
	}
	if len(req.Story) > MaxStoryLength {
		writeError(w, http.StatusBadRequest, "story_too_long", "story exceeds the maximum length")
		return
	}

	suite, err := h.generator.Generate(r.Context(), req.Story)
	if err != nil {
		h.writeGenerateError(w, r, err)
		return
	}

	retrieved := make([]RetrievedCase, 0, len(suite.Retrieved))
	for _, c := range suite.Retrieved {
		retrieved = append(retrieved, RetrievedCase{ID: c.DocID, Score: c.Score})
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Output:    suite.Output,
		Retrieved: retrieved,
	})
}

func (h *GenerateHandler) writeGenerateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, testgen.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "empty_query", "story must not be empty")
	case errors.Is(err, testgen.ErrRetrievalUnavailable):
		h.logger.Error("retrieval unavailable",
			"error", err,
			"request_id", requestIDFrom(r.Context()))
		writeError(w, http.StatusServiceUnavailable, "retrieval_unavailable", "context retrieval failed; try again later")
	case errors.Is(err, testgen.ErrGenerationFailed):
		h.logger.Error("generation failed",
			"error", err,
			"request_id", requestIDFrom(r.Context()))
		writeError(w, http.StatusBadGateway, "generation_failed", "the model did not produce a response")
	default:
		h.logger.Error("generate request failed",
			"error", err,
			"request_id", requestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected failure")
	}
}
