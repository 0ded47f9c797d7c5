package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"backend/models"
)

// fakeIndex serves canned search results keyed by document id.
type fakeIndex struct {
	results map[string][]models.SearchResult
	err     error
	queries []string
}

func (f *fakeIndex) Search(_ context.Context, documentID, query string, _ int) ([]models.SearchResult, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[documentID], nil
}

func fillFromJSON(raw string) func(out interface{}) error {
	return func(out interface{}) error {
		return json.Unmarshal([]byte(raw), out)
	}
}

func TestDiscoverFormStructureEmptyContext(t *testing.T) {
	oracle := &fakeOracle{}
	s := NewFormDiscoveryService(oracle, &fakeIndex{})

	structure := s.DiscoverFormStructure(context.Background(), "   ")
	if !structure.IsEmpty() {
		t.Errorf("blank context must yield the empty structure, got %+v", structure)
	}
	if oracle.calls != 0 {
		t.Errorf("oracle must not be called for a blank context, got %d calls", oracle.calls)
	}
}

func TestDiscoverFormStructureOracleFailure(t *testing.T) {
	s := NewFormDiscoveryService(&fakeOracle{err: ErrOracleUnavailable}, &fakeIndex{})
	structure := s.DiscoverFormStructure(context.Background(), "PROPOSAL SUBMISSION\nItem Description Quantity")
	if !structure.IsEmpty() {
		t.Errorf("oracle failure must degrade to the empty structure, got %+v", structure)
	}
}

func TestDiscoverFormStructureParsesOracleReply(t *testing.T) {
	reply := `{
		"form_title": "Proposal Submission",
		"tables": [{"table_title": "Pricing", "table_type": "pricing", "columns": [
			{"name": "Item", "column_type": "identifier", "is_fixed": true},
			{"name": "Unit Cost", "column_type": "currency", "is_fixed": false}
		], "section_headers": ["EXTERIOR REPAIRS"]}],
		"fixed_columns": ["Item", "Description"],
		"vendor_columns": ["Quantity", "Unit Cost", "Total"],
		"sections": ["EXTERIOR REPAIRS"]
	}`
	s := NewFormDiscoveryService(&fakeOracle{fill: fillFromJSON(reply)}, &fakeIndex{})

	structure := s.DiscoverFormStructure(context.Background(), "PROPOSAL SUBMISSION ...")
	if structure.IsEmpty() {
		t.Fatal("expected a discovered structure")
	}
	if structure.FormTitle != "Proposal Submission" {
		t.Errorf("form title = %q", structure.FormTitle)
	}
	if len(structure.Tables) != 1 || len(structure.Tables[0].Columns) != 2 {
		t.Errorf("tables not parsed: %+v", structure.Tables)
	}
	if structure.Rows == nil {
		t.Error("rows must be non-nil after discovery")
	}
}

func TestExtractFormRowsFailureIsEmptyNotNilish(t *testing.T) {
	s := NewFormDiscoveryService(&fakeOracle{err: errors.New("timeout")}, &fakeIndex{})
	rows := s.ExtractFormRows(context.Background(), "content", models.FormStructure{Sections: []string{"EXTERIOR"}})
	if rows == nil || len(rows) != 0 {
		t.Errorf("extraction failure must yield an empty slice, got %v", rows)
	}
}

func TestBuildFormContextReRanksByTableScore(t *testing.T) {
	table := "Item Description Quantity Unit Cost Total\n1 Wall sheathing repairs 1,200 SF"
	prose := "The contractor shall provide certificates of insurance before mobilization."
	index := &fakeIndex{results: map[string][]models.SearchResult{
		"doc-1": {
			{Text: prose, Page: 1, Score: 2},
			{Text: table, Page: 7, Score: 1},
		},
	}}
	s := NewFormDiscoveryService(&fakeOracle{}, index)

	got, err := s.BuildFormContext(context.Background(), "doc-1", "", 15)
	if err != nil {
		t.Fatal(err)
	}
	// table chunk must come first despite the lower retrieval score
	if len(got) == 0 || got[:4] != "Item" {
		t.Errorf("table chunk should lead the context, got %q", got)
	}
}

func TestBuildFormContextCustomQueryPassThrough(t *testing.T) {
	index := &fakeIndex{results: map[string][]models.SearchResult{
		"doc-1": {{Text: "chunk one", Page: 1}, {Text: "chunk two", Page: 2}},
	}}
	s := NewFormDiscoveryService(&fakeOracle{}, index)

	got, err := s.BuildFormContext(context.Background(), "doc-1", "EXTERIOR REPAIRS", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got != "chunk one\n\nchunk two" {
		t.Errorf("custom-query context = %q", got)
	}
	if index.queries[0] != "EXTERIOR REPAIRS" {
		t.Errorf("custom query not forwarded, got %q", index.queries[0])
	}
}

func TestAnalyzeRfpNoContent(t *testing.T) {
	oracle := &fakeOracle{}
	s := NewFormDiscoveryService(oracle, &fakeIndex{})

	structure, err := s.AnalyzeRfp(context.Background(), "doc-empty")
	if err != nil {
		t.Fatal(err)
	}
	if !structure.IsEmpty() {
		t.Errorf("no ingested content must yield the empty structure, got %+v", structure)
	}
	if oracle.calls != 0 {
		t.Errorf("oracle must not run without context, got %d calls", oracle.calls)
	}
}
