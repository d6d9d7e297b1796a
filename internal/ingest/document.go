package ingest

import "fmt"

// Document renders the record as the flat text that gets embedded and
// stored. The layout is fixed: retrieval quality depends on ingestion and
// query embedding the same shape of text, so callers never format records
// themselves.
func (r Record) Document() string {
	return fmt.Sprintf("Title: %s\nModule: %s\nPre-conditions: %s\nSteps: %s\nExpected Result: %s",
		r.Title, r.Module, r.Preconditions, r.Steps, r.ExpectedResult)
}

// Metadata returns the payload stored alongside the document for
// provenance. The vector and document text carry the semantics; metadata
// exists so retrieved entries can be traced back to their source row.
func (r Record) Metadata() map[string]string {
	return map[string]string{
		"id":     r.ID,
		"module": r.Module,
	}
}
