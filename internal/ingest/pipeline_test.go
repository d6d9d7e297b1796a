package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/qaforge/casegen/internal/log"
	"github.com/qaforge/casegen/internal/vectorstore"
)

type fakeStore struct {
	createCalls int
	createdName string
	createdDim  int
	createErr   error

	upsertCalls   int
	upsertEntries []vectorstore.Entry
	upsertErr     error
}

func (s *fakeStore) CreateCollection(_ context.Context, name string, dimension int, _ vectorstore.Metric) error {
	s.createCalls++
	s.createdName = name
	s.createdDim = dimension
	return s.createErr
}

func (s *fakeStore) Upsert(_ context.Context, _ string, entries []vectorstore.Entry) error {
	s.upsertCalls++
	s.upsertEntries = entries
	return s.upsertErr
}

type fakeEmbedder struct {
	calls   int
	failAt  int // 1-based call index that fails, 0 means never
	lastDoc string
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	e.lastDoc = text
	if e.failAt > 0 && e.calls >= e.failAt {
		return nil, errors.New("embedder down")
	}
	return []float32{float32(e.calls), 0, 0}, nil
}

func newTestPipeline(store *fakeStore, embedder *fakeEmbedder) *Pipeline {
	return NewPipeline(store, embedder, "cases", 3, log.NewNop())
}

func TestPipeline_Run(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}
	p := newTestPipeline(store, embedder)

	count, err := p.Run(context.Background(), strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Run() = %d, want 2", count)
	}

	if store.createCalls != 1 || store.createdName != "cases" || store.createdDim != 3 {
		t.Errorf("collection setup: calls=%d name=%q dim=%d", store.createCalls, store.createdName, store.createdDim)
	}
	if store.upsertCalls != 1 {
		t.Fatalf("upsert called %d times, want exactly 1 batch", store.upsertCalls)
	}
	if len(store.upsertEntries) != 2 {
		t.Fatalf("batch holds %d entries, want 2", len(store.upsertEntries))
	}

	entry := store.upsertEntries[0]
	if entry.DocID != "TC_1" {
		t.Errorf("DocID = %q, want TC_1", entry.DocID)
	}
	if !strings.HasPrefix(entry.Content, "Title: Verify login with valid credentials\n") {
		t.Errorf("Content not rendered through the document template: %q", entry.Content)
	}
	if entry.Metadata["module"] != "Authentication" {
		t.Errorf("Metadata = %v", entry.Metadata)
	}
	if embedder.calls != 2 {
		t.Errorf("embedder called %d times, want 2", embedder.calls)
	}
}

func TestPipeline_Run_EmbedsTheRenderedDocument(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}
	p := newTestPipeline(store, embedder)

	if _, err := p.Run(context.Background(), strings.NewReader(sampleCSV)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.HasPrefix(embedder.lastDoc, "Title: Submit a new claim\n") {
		t.Errorf("embedder received %q, want the rendered document", embedder.lastDoc)
	}
}

func TestPipeline_Run_EmptyCorpusStillCreatesCollection(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}
	p := newTestPipeline(store, embedder)

	count, err := p.Run(context.Background(), strings.NewReader("ID,Title,Module,Pre-conditions,Steps,Expected Result\n"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Run() = %d, want 0", count)
	}
	if store.createCalls != 1 {
		t.Errorf("collection not created for empty corpus")
	}
	if store.upsertCalls != 0 {
		t.Errorf("upsert called for empty corpus")
	}
}

func TestPipeline_Run_MalformedCSVTouchesNothing(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}
	p := newTestPipeline(store, embedder)

	_, err := p.Run(context.Background(), strings.NewReader("wrong,header\n"))
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("got %v, want ErrMalformedInput", err)
	}
	if store.createCalls != 0 || store.upsertCalls != 0 || embedder.calls != 0 {
		t.Error("malformed input must fail before any collection or model access")
	}
}

func TestPipeline_Run_EmbeddingFailureSkipsUpsert(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{failAt: 2}
	p := newTestPipeline(store, embedder)

	_, err := p.Run(context.Background(), strings.NewReader(sampleCSV))
	if err == nil {
		t.Fatal("Run() succeeded with a failing embedder")
	}
	if !strings.Contains(err.Error(), "TC_2") {
		t.Errorf("error does not name the failing record: %v", err)
	}
	if store.upsertCalls != 0 {
		t.Error("upsert must not run after an embedding failure")
	}
}

func TestPipeline_Run_StoreFailures(t *testing.T) {
	t.Run("create collection", func(t *testing.T) {
		store := &fakeStore{createErr: errors.New("db down")}
		p := newTestPipeline(store, &fakeEmbedder{})

		if _, err := p.Run(context.Background(), strings.NewReader(sampleCSV)); err == nil {
			t.Fatal("Run() succeeded despite collection failure")
		}
		if store.upsertCalls != 0 {
			t.Error("upsert ran after collection setup failed")
		}
	})

	t.Run("upsert", func(t *testing.T) {
		store := &fakeStore{upsertErr: errors.New("db down")}
		p := newTestPipeline(store, &fakeEmbedder{})

		count, err := p.Run(context.Background(), strings.NewReader(sampleCSV))
		if err == nil {
			t.Fatal("Run() succeeded despite upsert failure")
		}
		if count != 0 {
			t.Errorf("Run() reported %d indexed records on failure", count)
		}
	})
}
