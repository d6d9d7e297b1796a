// Package vectorstore implements a persistent vector index on PostgreSQL
// with pgvector.
//
// Entries live in named collections. A collection fixes its vector
// dimensionality and distance metric at creation; upserts are keyed by
// document ID, and queries return the top-k entries by cosine similarity
// with insertion order as the stable tie-break.
//
// Every operation hits the database directly; there is no in-process cache,
// so concurrent readers always see the durable state.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/qaforge/casegen/internal/log"
)

var (
	// ErrCollectionNotFound indicates the named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch indicates a vector's dimensionality does not match
	// the collection's declared dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrUnsupportedMetric indicates a distance metric other than cosine.
	ErrUnsupportedMetric = errors.New("unsupported metric")

	// ErrInvalidK indicates a non-positive k was passed to Query.
	ErrInvalidK = errors.New("k must be a positive integer")
)

// Metric identifies a collection's distance metric.
type Metric string

// MetricCosine is the only supported metric. Scores returned by Query are
// cosine similarity (1 - cosine distance), in [-1, 1].
const MetricCosine Metric = "cosine"

// Entry is one (vector, payload) pair to be upserted into a collection.
type Entry struct {
	DocID    string
	Vector   []float32
	Content  string
	Metadata map[string]string
}

// Result is a single query hit, ordered by descending similarity.
type Result struct {
	DocID    string
	Content  string
	Metadata map[string]string
	Score    float32
}

// Collection describes a collection's fixed parameters.
type Collection struct {
	Name      string
	Dimension int
	Metric    Metric
}

// Store manages collections and entries on a PostgreSQL pool.
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New creates a Store. A nil logger falls back to a no-op logger.
func New(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// CollectionExists reports whether the named collection exists.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM collections WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking collection %q: %w", name, err)
	}
	return exists, nil
}

// CreateCollection creates the named collection with the given dimension and
// metric. Creating an existing collection with identical parameters is an
// idempotent no-op; a differing dimension fails with ErrDimensionMismatch.
func (s *Store) CreateCollection(ctx context.Context, name string, dimension int, metric Metric) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrDimensionMismatch, dimension)
	}
	if metric != MetricCosine {
		return fmt.Errorf("%w: %q (only %q is supported)", ErrUnsupportedMetric, metric, MetricCosine)
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO collections (name, dimension, metric) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO NOTHING`,
		name, dimension, string(metric))
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", name, err)
	}
	if tag.RowsAffected() == 1 {
		s.logger.Info("created collection", "name", name, "dimension", dimension, "metric", metric)
		return nil
	}

	// Collection already existed: verify its parameters match.
	existing, err := s.getCollection(ctx, name)
	if err != nil {
		return err
	}
	if existing.Dimension != dimension {
		return fmt.Errorf("%w: collection %q has dimension %d, requested %d",
			ErrDimensionMismatch, name, existing.Dimension, dimension)
	}
	if existing.Metric != metric {
		return fmt.Errorf("%w: collection %q uses metric %q, requested %q",
			ErrUnsupportedMetric, name, existing.Metric, metric)
	}
	return nil
}

// Upsert inserts or overwrites entries in the named collection in one batch.
// Entries are keyed by DocID; re-upserting an existing DocID replaces its
// content, metadata, and vector but keeps its original insertion order.
// Every vector is validated against the collection dimension before any
// write is issued.
func (s *Store) Upsert(ctx context.Context, name string, entries []Entry) error {
	coll, err := s.getCollection(ctx, name)
	if err != nil {
		return err
	}

	for i, e := range entries {
		if len(e.Vector) != coll.Dimension {
			return fmt.Errorf("%w: entry %d (doc %q) has %d dimensions, collection %q expects %d",
				ErrDimensionMismatch, i, e.DocID, len(e.Vector), name, coll.Dimension)
		}
	}

	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		metadataJSON, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for doc %q: %w", e.DocID, err)
		}
		vec := pgvector.NewVector(e.Vector)
		batch.Queue(
			`INSERT INTO entries (collection_name, doc_id, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (collection_name, doc_id) DO UPDATE
			 SET content = EXCLUDED.content,
			     metadata = EXCLUDED.metadata,
			     embedding = EXCLUDED.embedding`,
			name, e.DocID, e.Content, metadataJSON, vec)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() {
		if err := results.Close(); err != nil {
			s.logger.Warn("closing upsert batch", "error", err)
		}
	}()

	for i := range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting entry %d (doc %q) into %q: %w",
				i, entries[i].DocID, name, err)
		}
	}

	s.logger.Debug("upserted entries", "collection", name, "count", len(entries))
	return nil
}

// Query returns the k entries most similar to the given vector, ordered by
// descending cosine similarity with ties broken by insertion order. Fewer
// than k entries yields all of them; an empty collection yields an empty
// slice, not an error.
func (s *Store) Query(ctx context.Context, name string, vector []float32, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}

	coll, err := s.getCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != coll.Dimension {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, collection %q expects %d",
			ErrDimensionMismatch, len(vector), name, coll.Dimension)
	}

	vec := pgvector.NewVector(vector)
	rows, err := s.pool.Query(ctx,
		`SELECT doc_id, content, metadata, 1 - (embedding <=> $2) AS similarity
		 FROM entries
		 WHERE collection_name = $1
		 ORDER BY embedding <=> $2, seq
		 LIMIT $3`,
		name, vec, k)
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", name, err)
	}
	defer rows.Close()

	results := make([]Result, 0, k)
	for rows.Next() {
		var (
			r            Result
			metadataJSON []byte
			similarity   float64
		)
		if err := rows.Scan(&r.DocID, &r.Content, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
			s.logger.Warn("parsing entry metadata", "doc_id", r.DocID, "error", err)
			r.Metadata = map[string]string{}
		}
		r.Score = float32(similarity)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading query results: %w", err)
	}

	return results, nil
}

// Count returns the number of entries in the named collection.
func (s *Store) Count(ctx context.Context, name string) (int64, error) {
	if _, err := s.getCollection(ctx, name); err != nil {
		return 0, err
	}

	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM entries WHERE collection_name = $1`, name).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting entries in %q: %w", name, err)
	}
	return count, nil
}

// getCollection loads a collection's fixed parameters.
func (s *Store) getCollection(ctx context.Context, name string) (Collection, error) {
	c := Collection{Name: name}
	var metric string
	err := s.pool.QueryRow(ctx,
		`SELECT dimension, metric FROM collections WHERE name = $1`, name).
		Scan(&c.Dimension, &metric)
	if errors.Is(err, pgx.ErrNoRows) {
		return Collection{}, fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
	}
	if err != nil {
		return Collection{}, fmt.Errorf("loading collection %q: %w", name, err)
	}
	c.Metric = Metric(metric)
	return c, nil
}
