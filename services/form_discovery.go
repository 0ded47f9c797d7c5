package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"backend/models"
)

// Default retrieval query for locating proposal form pages; uses the terms
// that actually appear in bid form tables.
const formContextQuery = "Proposal Submission Description of Work Quantity Unit Unit Cost Total Item SF LF LS Structural Repairs"

// FormDiscoveryService discovers an RFP's proposal form structure and
// extracts its template line items.
type FormDiscoveryService struct {
	oracle StructuredGenerator
	index  SearchIndex
}

// NewFormDiscoveryService wires the discovery service to the oracle and the
// retrieval index.
func NewFormDiscoveryService(oracle StructuredGenerator, index SearchIndex) *FormDiscoveryService {
	return &FormDiscoveryService{oracle: oracle, index: index}
}

// BuildFormContext assembles the text context for one document. With a
// custom query (vendor extraction against RFP section names) the ranked
// results are used directly. Without one, chunks are re-ranked by
// table-likeness so pricing tables beat boilerplate like insurance clauses.
func (s *FormDiscoveryService) BuildFormContext(ctx context.Context, documentID, customQuery string, k int) (string, error) {
	query := customQuery
	if query == "" {
		query = formContextQuery
	}
	if k <= 0 {
		k = 15
	}

	results, err := s.index.Search(ctx, documentID, query, k)
	if err != nil {
		return "", fmt.Errorf("error searching document %s: %v", documentID, err)
	}
	if len(results) == 0 {
		return "", nil
	}

	if customQuery != "" {
		parts := make([]string, 0, len(results))
		for _, r := range results {
			parts = append(parts, r.Text)
		}
		return strings.Join(parts, "\n\n"), nil
	}

	// Re-score by table structure, keep all high scorers plus a few low
	// scorers for surrounding context.
	for i := range results {
		results[i].Score = float64(ScoreTableChunk(results[i].Text))
	}
	ranked := RankResults(results, 0)

	var selected []string
	lowCount := 0
	for _, r := range ranked {
		if r.Score >= 2 {
			selected = append(selected, r.Text)
		} else if lowCount < 10 {
			selected = append(selected, r.Text)
			lowCount++
		}
	}
	return strings.Join(selected, "\n\n"), nil
}

const discoverStructureSystemPrompt = `You are an expert RFP Analyst specializing in construction bid documents.

Your task is to analyze the RFP proposal submission form and discover its structural schema.

ANALYSIS STEPS:
1. Find the "Proposal Submission" or "Bid Form" section
2. Identify the logical tables (e.g., Pricing Sections, Additions)
3. List the EXACT column headers found
4. Classify columns as FIXED (identifiers like Item, Description) vs VENDOR (values like Qty, Unit Cost, Total)
5. Extract section headers

COLUMN CLASSIFICATION RULES:
- FIXED columns: "Item", "Description", "Scope"
- VENDOR columns: "Quantity", "Unit", "Unit Cost", "Total", "%"

Do NOT extract the actual row data values here. Just define the structure (schema).

Respond with a JSON object:
{"form_title": string, "tables": [{"table_title": string, "table_type": string, "columns": [{"name": string, "column_type": string, "is_fixed": bool}], "section_headers": [string]}], "fixed_columns": [string], "vendor_columns": [string], "sections": [string]}

If the document has no proposal form at all, respond with empty arrays.`

// DiscoverFormStructure asks the oracle for the form schema. An oracle
// failure, or a document with no discoverable pricing form, yields the
// sentinel empty structure. Callers must treat "no form" as a valid state.
func (s *FormDiscoveryService) DiscoverFormStructure(ctx context.Context, rfpContext string) models.FormStructure {
	if strings.TrimSpace(rfpContext) == "" {
		return models.EmptyFormStructure()
	}

	var structure models.FormStructure
	userPrompt := fmt.Sprintf("RFP Document Content:\n\n%s\n\nAnalyze this RFP and extract the complete proposal form structure.", rfpContext)
	if err := s.oracle.GenerateJSON(ctx, discoverStructureSystemPrompt, userPrompt, &structure); err != nil {
		log.Printf("Form discovery failed, treating as no form: %v", err)
		return models.EmptyFormStructure()
	}

	if structure.IsEmpty() {
		return models.EmptyFormStructure()
	}
	if structure.Rows == nil {
		structure.Rows = []models.FormRow{}
	}
	return structure
}

const extractRowsSystemPrompt = `You are extracting line items from a proposal or bid form.

CRITICAL: Extract line items that belong ONLY to the following sections:
%s

You must IGNORE any summary tables or general cost overviews that do not belong to these specific sections.

For EACH line item in these sections, extract:
1. section - which of the target sections it belongs to
2. item_id - the item number or name (1, 2, 3...)
3. description - the description of work
4. values - an object of column name to value for every other column present

DATA EXTRACTION RULES:
- Focus ONLY on the rows under the target sections.
- If a value explicitly says "TBD", extract "TBD".
- If a cell is empty or has unreadable encoding (garbage), extract "".
- DO NOT GUESS. Extract exactly what is visible in the column.
- DO NOT SKIP ROWS just because prices are empty or TBD. The full item list matters more than the values.

Respond with a JSON object: {"rows": [{"section": string, "item_id": string, "description": string, "values": {string: string}}]}`

type extractedRows struct {
	Rows []models.FormRow `json:"rows"`
}

// ExtractFormRows extracts the ordered template line items for the
// discovered sections. Extraction failure returns an empty list (logged,
// non-fatal); the caller proceeds with zero template rows.
func (s *FormDiscoveryService) ExtractFormRows(ctx context.Context, rfpContext string, structure models.FormStructure) []models.FormRow {
	targetSections := "All sections found in the document"
	if len(structure.Sections) > 0 {
		targetSections = strings.Join(structure.Sections, ", ")
	}

	systemPrompt := fmt.Sprintf(extractRowsSystemPrompt, targetSections)
	userPrompt := fmt.Sprintf("Document Content:\n\n%s\n\nExtract all line items for the sections: %s", rfpContext, targetSections)

	var result extractedRows
	if err := s.oracle.GenerateJSON(ctx, systemPrompt, userPrompt, &result); err != nil {
		log.Printf("Form row extraction failed: %v", err)
		return []models.FormRow{}
	}
	if result.Rows == nil {
		return []models.FormRow{}
	}
	return result.Rows
}

// AnalyzeRfp runs the full discovery pipeline for one RFP document:
// retrieval context, structure discovery, then row extraction. The returned
// structure replaces any previous one wholesale.
func (s *FormDiscoveryService) AnalyzeRfp(ctx context.Context, documentID string) (models.FormStructure, error) {
	formContext, err := s.BuildFormContext(ctx, documentID, "", 15)
	if err != nil {
		return models.EmptyFormStructure(), err
	}

	structure := s.DiscoverFormStructure(ctx, formContext)
	if structure.IsEmpty() {
		return structure, nil
	}

	structure.Rows = s.ExtractFormRows(ctx, formContext, structure)
	return structure, nil
}
