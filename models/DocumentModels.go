package models

import "time"

// Document owner kinds
const (
	DocumentOwnerRfp      = "rfp"
	DocumentOwnerProposal = "proposal"
)

// Document represents the documents table: one uploaded RFP or vendor
// proposal, already reduced to page text by the ingestion boundary.
type Document struct {
	ID        string    `gorm:"primaryKey;column:id" json:"id"`
	OwnerType string    `gorm:"column:owner_type;not null" json:"owner_type"`
	OwnerID   string    `gorm:"column:owner_id;not null;index" json:"owner_id"`
	FileName  string    `gorm:"column:file_name" json:"file_name"`
	PageCount int       `gorm:"column:page_count" json:"page_count"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName specifies the table name for Document
func (Document) TableName() string {
	return "documents"
}

// DocumentPage is one page of extracted text as submitted by the upload
// endpoint.
type DocumentPage struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// DocumentChunk represents the document_chunks table. Chunks are the unit of
// retrieval for discovery and vendor extraction.
type DocumentChunk struct {
	ID         int    `json:"id"`
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
}

// SearchResult is one ranked chunk returned by the retrieval service.
type SearchResult struct {
	Text  string  `json:"text"`
	Page  int     `json:"page_number"`
	Score float64 `json:"-"`
}
