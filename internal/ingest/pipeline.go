package ingest

import (
	"context"
	"fmt"
	"io"

	"github.com/qaforge/casegen/internal/log"
	"github.com/qaforge/casegen/internal/model"
	"github.com/qaforge/casegen/internal/vectorstore"
)

// VectorStore is the slice of the store the pipeline needs.
type VectorStore interface {
	CreateCollection(ctx context.Context, name string, dimension int, metric vectorstore.Metric) error
	Upsert(ctx context.Context, collection string, entries []vectorstore.Entry) error
}

// Pipeline ingests a CSV corpus into a vector collection: parse, render
// documents, embed, then upsert everything in one batch. A failure at any
// stage leaves the collection without any of this run's writes, so a rerun
// after a fix starts from a known state.
type Pipeline struct {
	store      VectorStore
	embedder   model.Embedder
	collection string
	dimension  int
	logger     log.Logger
}

// NewPipeline creates an ingestion pipeline targeting the named collection.
// The dimension must match the embedder's output size.
func NewPipeline(store VectorStore, embedder model.Embedder, collection string, dimension int, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		store:      store,
		embedder:   embedder,
		collection: collection,
		dimension:  dimension,
		logger:     logger,
	}
}

// Run ingests the CSV from r and returns the number of records indexed.
// The collection is created (or verified) even when the source holds no
// data rows, so a fresh deployment ends up queryable either way.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (int, error) {
	records, err := ReadRecords(r)
	if err != nil {
		return 0, err
	}

	if err := p.store.CreateCollection(ctx, p.collection, p.dimension, vectorstore.MetricCosine); err != nil {
		return 0, fmt.Errorf("preparing collection %q: %w", p.collection, err)
	}

	if len(records) == 0 {
		p.logger.Info("no records to ingest", "collection", p.collection)
		return 0, nil
	}

	entries := make([]vectorstore.Entry, 0, len(records))
	for _, rec := range records {
		doc := rec.Document()

		vector, err := p.embedder.Embed(ctx, doc)
		if err != nil {
			return 0, fmt.Errorf("embedding record %s: %w", rec.ID, err)
		}

		entries = append(entries, vectorstore.Entry{
			DocID:    rec.ID,
			Vector:   vector,
			Content:  doc,
			Metadata: rec.Metadata(),
		})
	}

	// All entries land in a single upsert; a storage failure writes nothing.
	if err := p.store.Upsert(ctx, p.collection, entries); err != nil {
		return 0, fmt.Errorf("indexing %d records: %w", len(entries), err)
	}

	p.logger.Info("ingestion complete", "collection", p.collection, "records", len(records))
	return len(records), nil
}
