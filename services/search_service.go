package services

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"backend/models"
)

// SearchIndex is the retrieval boundary: ranked chunk search scoped to one
// ingested document. The engine only queries; indexing mechanics live
// behind this interface.
type SearchIndex interface {
	Search(ctx context.Context, documentID, query string, k int) ([]models.SearchResult, error)
}

// Chunking defaults match the ingestion settings used for proposal PDFs.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// ChunkSearchService stores document chunks in Postgres and ranks them by
// query term overlap.
type ChunkSearchService struct {
	db *sql.DB
}

// NewChunkSearchService returns a search service over the document_chunks
// table.
func NewChunkSearchService(db *sql.DB) *ChunkSearchService {
	return &ChunkSearchService{db: db}
}

// IngestDocument splits the document's pages into overlapping chunks and
// stores them. Existing chunks for the document are replaced so re-uploads
// start fresh.
func (s *ChunkSearchService) IngestDocument(ctx context.Context, documentID string, pages []models.DocumentPage) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting ingest transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return 0, fmt.Errorf("error clearing old chunks: %v", err)
	}

	total := 0
	for _, page := range pages {
		chunks := SplitTextChunks(page.Text, DefaultChunkSize, DefaultChunkOverlap)
		for i, chunk := range chunks {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO document_chunks (document_id, page, chunk_index, content) VALUES ($1, $2, $3, $4)`,
				documentID, page.Page, i, chunk)
			if err != nil {
				return 0, fmt.Errorf("error inserting chunk: %v", err)
			}
			total++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing ingest: %v", err)
	}
	return total, nil
}

// Search returns up to k chunks of the document ranked by how many query
// terms they contain. Ties keep page order so multi-page tables stay
// contiguous.
func (s *ChunkSearchService) Search(ctx context.Context, documentID, query string, k int) ([]models.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT page, chunk_index, content FROM document_chunks WHERE document_id = $1 ORDER BY page, chunk_index`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("error querying chunks: %v", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var page, chunkIndex int
		var content string
		if err := rows.Scan(&page, &chunkIndex, &content); err != nil {
			return nil, fmt.Errorf("error scanning chunk: %v", err)
		}
		results = append(results, models.SearchResult{
			Text:  content,
			Page:  page,
			Score: ScoreQueryMatch(content, query),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return RankResults(results, k), nil
}

// RankResults sorts by score descending, keeping the original (page) order
// for equal scores, and truncates to k.
func RankResults(results []models.SearchResult, k int) []models.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// ScoreQueryMatch counts how many distinct query terms appear in the text.
// Terms shorter than 3 characters are ignored, they match everywhere.
func ScoreQueryMatch(text, query string) float64 {
	lowered := strings.ToLower(text)
	score := 0.0
	seen := map[string]bool{}
	for _, term := range strings.Fields(strings.ToLower(query)) {
		term = strings.Trim(term, ".,;:()\"'")
		if len(term) < 3 || seen[term] {
			continue
		}
		seen[term] = true
		if strings.Contains(lowered, term) {
			score++
		}
	}
	return score
}

// SplitTextChunks splits text into chunks of at most size runes with the
// given overlap between consecutive chunks. Split points prefer whitespace
// so words stay intact.
func SplitTextChunks(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	if overlap >= size {
		overlap = size / 2
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}
		// back up to the nearest whitespace within the last 100 runes
		cut := end
		for cut > start+size-100 && cut > start+1 {
			if runes[cut-1] == ' ' || runes[cut-1] == '\n' || runes[cut-1] == '\t' {
				break
			}
			cut--
		}
		if cut <= start+1 {
			cut = end
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[start:cut])))
		start = cut - overlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}

// Table-likeness patterns: chunks that look like pricing form tables get
// priority when assembling the discovery context.
var tablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(Unit Cost|Unit Price|Total|Quantity|Qty)\b`),
	regexp.MustCompile(`(?i)\b\d+\s*(SF|LF|LS|EA|CY|SY)\b`),
	regexp.MustCompile(`(?m)^[IVX]+\s+\w`),
	regexp.MustCompile(`(?m)^\s*\d+\s+\w{3,}`),
}

// ScoreTableChunk scores a chunk by how many table structure patterns it
// matches: column headers, quantities with units, roman numeral sections,
// numbered line items.
func ScoreTableChunk(text string) int {
	score := 0
	for _, pattern := range tablePatterns {
		if pattern.MatchString(text) {
			score++
		}
	}
	return score
}
