// Package testgen implements the retrieval-augmented test case generator:
// embed the user story, retrieve the most similar existing cases, and
// prompt the model with both.
package testgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qaforge/casegen/internal/log"
	"github.com/qaforge/casegen/internal/model"
	"github.com/qaforge/casegen/internal/vectorstore"
)

var (
	// ErrEmptyQuery indicates the user story was empty or whitespace-only.
	ErrEmptyQuery = errors.New("empty query")

	// ErrRetrievalUnavailable indicates the context lookup failed. The
	// pipeline fails closed: it never falls back to generating without
	// retrieved context, since ungrounded output would silently drift from
	// the corpus style.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGenerationFailed indicates retrieval succeeded but the model call
	// did not.
	ErrGenerationFailed = errors.New("generation failed")
)

// Retriever is the slice of the vector store the generator needs.
type Retriever interface {
	Query(ctx context.Context, collection string, vector []float32, k int) ([]vectorstore.Result, error)
}

// Suite is the result of one generation run: the model's raw output plus
// the context entries that grounded it.
type Suite struct {
	Output    string
	Retrieved []vectorstore.Result
}

// Generator runs the full query pipeline against one collection.
type Generator struct {
	store      Retriever
	embedder   model.Embedder
	llm        model.TextGenerator
	collection string
	topK       int
	logger     log.Logger
}

// NewGenerator creates a Generator. topK values below 1 fall back to the
// default of 2 similar cases per query.
func NewGenerator(store Retriever, embedder model.Embedder, llm model.TextGenerator, collection string, topK int, logger log.Logger) *Generator {
	if topK < 1 {
		topK = 2
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Generator{
		store:      store,
		embedder:   embedder,
		llm:        llm,
		collection: collection,
		topK:       topK,
		logger:     logger,
	}
}

// Generate produces a test suite for the given user story.
// The story is validated before any backend call; retrieval-path failures
// (embedding or store) surface as ErrRetrievalUnavailable and never reach
// the model.
func (g *Generator) Generate(ctx context.Context, story string) (*Suite, error) {
	if strings.TrimSpace(story) == "" {
		return nil, ErrEmptyQuery
	}

	vector, err := g.embedder.Embed(ctx, story)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", ErrRetrievalUnavailable, err)
	}

	results, err := g.store.Query(ctx, g.collection, vector, g.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: querying collection %q: %w", ErrRetrievalUnavailable, g.collection, err)
	}

	contents := make([]string, 0, len(results))
	for _, r := range results {
		contents = append(contents, r.Content)
	}
	contextBlock := strings.Join(contents, ContextSeparator)

	g.logger.Debug("context retrieved",
		"collection", g.collection,
		"requested", g.topK,
		"retrieved", len(results))

	prompt := buildPrompt(contextBlock, story)

	output, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	return &Suite{Output: output, Retrieved: results}, nil
}
