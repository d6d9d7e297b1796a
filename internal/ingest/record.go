// Package ingest loads existing test cases from CSV and indexes them into
// the vector store as the retrieval corpus.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrMalformedInput indicates the CSV source itself is unusable, for
	// example a missing or wrong header row.
	ErrMalformedInput = errors.New("malformed input")

	// ErrMalformedRecord indicates a single data row is invalid. The
	// concrete error is always a *MalformedRecordError carrying position.
	ErrMalformedRecord = errors.New("malformed record")
)

// expectedHeader is the exact, case-sensitive column set an input file
// must declare. Anything else is rejected before any row is read.
var expectedHeader = []string{"ID", "Title", "Module", "Pre-conditions", "Steps", "Expected Result"}

// MalformedRecordError reports an invalid data row. Row is 1-based and
// counts data rows only; the header is row 0.
type MalformedRecordError struct {
	Row   int
	Field string // offending column, empty when the row failed to parse at all
}

func (e *MalformedRecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("row %d: empty field %q", e.Row, e.Field)
	}
	return fmt.Sprintf("row %d: unparsable record", e.Row)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// Record is one existing test case from the source CSV. All fields are
// required; validation happens in ReadRecords.
type Record struct {
	ID             string
	Title          string
	Module         string
	Preconditions  string
	Steps          string
	ExpectedResult string
}

// ReadRecords parses the full CSV source into records.
// The header must match expectedHeader exactly, and every field of every
// row must be non-empty. The first invalid row aborts the read, so a
// partially bad file never yields a partial record set.
func ReadRecords(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrMalformedInput, err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	var records []Record
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, &MalformedRecordError{Row: row}
		}

		for i, value := range fields {
			if value == "" {
				return nil, &MalformedRecordError{Row: row, Field: expectedHeader[i]}
			}
		}

		records = append(records, Record{
			ID:             fields[0],
			Title:          fields[1],
			Module:         fields[2],
			Preconditions:  fields[3],
			Steps:          fields[4],
			ExpectedResult: fields[5],
		})
	}
}

func validateHeader(header []string) error {
	if len(header) != len(expectedHeader) {
		return fmt.Errorf("%w: header has %d columns, want %d", ErrMalformedInput, len(header), len(expectedHeader))
	}
	for i, name := range expectedHeader {
		if header[i] != name {
			return fmt.Errorf("%w: header column %d is %q, want %q", ErrMalformedInput, i, header[i], name)
		}
	}
	return nil
}
