// Package model abstracts the AI backends behind two single-method
// capability interfaces: Embedder (text to vector) and TextGenerator
// (prompt to completion). Pipelines depend only on these interfaces, never
// on a concrete backend, so test doubles slot in without Genkit.
package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
)

var (
	// ErrModelUnavailable indicates the embedding or generation backend is
	// unreachable or not loaded.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrEmptyInput indicates empty text was passed to the embedder.
	// Empty input is always a caller bug, never embedded as a degenerate vector.
	ErrEmptyInput = errors.New("empty embedding input")
)

// Embedder maps text to a fixed-length vector. Two vectors are comparable
// only if produced by the same model; callers must not mix embedders between
// ingestion and query.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TextEmbedder adapts a Genkit ai.Embedder to the Embedder interface.
// The underlying model is loaded once by the Genkit plugin at startup, so
// per-call cost is the embedding request only.
type TextEmbedder struct {
	embedder ai.Embedder
}

// NewTextEmbedder creates a TextEmbedder backed by the given Genkit embedder.
func NewTextEmbedder(embedder ai.Embedder) *TextEmbedder {
	return &TextEmbedder{embedder: embedder}
}

// Embed returns the embedding vector for text.
// Rejects empty or whitespace-only input with ErrEmptyInput before any
// backend call; backend failures surface as ErrModelUnavailable.
func (e *TextEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText(text, nil),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding request failed: %v", ErrModelUnavailable, err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: embedder returned no embedding", ErrModelUnavailable)
	}

	return resp.Embeddings[0].Embedding, nil
}
