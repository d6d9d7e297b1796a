package testgen

import (
	"context"
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/qaforge/casegen/internal/ingest"
	"github.com/qaforge/casegen/internal/log"
	"github.com/qaforge/casegen/internal/vectorstore"
)

// memIndex is an in-memory stand-in for the vector store that serves both
// the ingestion pipeline and the generator, so the full loop can run
// without Postgres.
type memIndex struct {
	dimension int
	ids       []string
	entries   map[string]vectorstore.Entry
}

func newMemIndex() *memIndex {
	return &memIndex{entries: map[string]vectorstore.Entry{}}
}

func (m *memIndex) CreateCollection(_ context.Context, _ string, dimension int, _ vectorstore.Metric) error {
	m.dimension = dimension
	return nil
}

func (m *memIndex) Upsert(_ context.Context, _ string, entries []vectorstore.Entry) error {
	for _, e := range entries {
		if _, ok := m.entries[e.DocID]; !ok {
			m.ids = append(m.ids, e.DocID)
		}
		m.entries[e.DocID] = e
	}
	return nil
}

func (m *memIndex) Query(_ context.Context, _ string, vector []float32, k int) ([]vectorstore.Result, error) {
	results := make([]vectorstore.Result, 0, len(m.ids))
	for _, id := range m.ids {
		e := m.entries[id]
		results = append(results, vectorstore.Result{
			DocID:    e.DocID,
			Content:  e.Content,
			Metadata: e.Metadata,
			Score:    cosine(vector, e.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// keywordEmbedder maps text onto three topic axes so similar subjects land
// near each other, which is all the loop needs.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := []float32{0.1, 0.1, 0.1}
	for i, words := range [][]string{
		{"login", "password", "credentials"},
		{"claim", "incident"},
		{"payment", "invoice", "card"},
	} {
		for _, w := range words {
			vec[i] += float32(strings.Count(lower, w))
		}
	}
	return vec, nil
}

const e2eCorpus = `ID,Title,Module,Pre-conditions,Steps,Expected Result
TC_1,Login succeeds with valid credentials,Authentication,User account exists,1. Enter valid credentials. 2. Click Login.,User reaches the dashboard
TC_2,Claim is registered for an active policy,Claims,Active policy exists,1. File a claim with an incident date.,Claim status is Pending
TC_3,Invoice is paid by credit card,Payments,Unpaid invoice exists,1. Pay the invoice with a valid card.,Invoice status is Paid
`

func TestIngestThenGenerate_EndToEnd(t *testing.T) {
	ctx := context.Background()
	index := newMemIndex()
	embedder := keywordEmbedder{}

	pipeline := ingest.NewPipeline(index, embedder, "cases", 3, log.NewNop())
	count, err := pipeline.Run(ctx, strings.NewReader(e2eCorpus))
	if err != nil {
		t.Fatalf("ingestion failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("ingested %d records, want 3", count)
	}

	llm := &fakeLLM{output: "| TC_N1 | New login case |"}
	g := NewGenerator(index, embedder, llm, "cases", 2, log.NewNop())

	suite, err := g.Generate(ctx, "Verify login is rejected after three wrong password attempts")
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	if len(suite.Retrieved) != 2 {
		t.Fatalf("retrieved %d cases, want 2", len(suite.Retrieved))
	}
	if suite.Retrieved[0].DocID != "TC_1" {
		t.Errorf("closest case is %s, want the login case TC_1", suite.Retrieved[0].DocID)
	}

	// The ingested document, as rendered by the ingestion template, must
	// reach the model verbatim inside the prompt.
	if !strings.Contains(llm.gotPrompt, "Title: Login succeeds with valid credentials") {
		t.Errorf("prompt does not carry the retrieved document:\n%s", llm.gotPrompt)
	}
	if suite.Output != "| TC_N1 | New login case |" {
		t.Errorf("Output = %q", suite.Output)
	}
}
