package handlers

import (
	"backend/models"
	"backend/services"
	"backend/storage"
	"backend/utils"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// documentUpload is the ingestion payload: page text extracted upstream
// (OCR and PDF parsing happen before the API boundary).
type documentUpload struct {
	FileName string                `json:"file_name"`
	Pages    []models.DocumentPage `json:"pages" binding:"required"`
}

func (u documentUpload) hasText() bool {
	for _, p := range u.Pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// UploadRFPDocument ingests the RFP's document text.
// @Summary Upload RFP document
// @Description Ingests the RFP document as per-page text, chunks it for retrieval, and attaches it to the RFP. Re-upload replaces the previous chunks. Requires Authorization header.
// @Tags Documents
// @Accept json
// @Produce json
// @Param rfp_id path string true "RFP ID"
// @Param body body handlers.documentUpload true "Document pages"
// @Success 200 {object} models.Document
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id}/document [post]
func UploadRFPDocument(gdb *gorm.DB, db *sql.DB, index *services.ChunkSearchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, err := GetSessionDetails(db, sessionIDFromHeader(c)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		rfp, err := storage.GetRfp(gdb, c.Param("rfp_id"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, storage.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": "RFP not found", "details": err.Error()})
			return
		}

		doc, chunkCount, ok := ingestDocument(c, gdb, db, index, models.DocumentOwnerRfp, rfp.ID, rfp.DocumentID)
		if !ok {
			return
		}

		if err := gdb.Model(&models.Rfp{}).Where("id = ?", rfp.ID).Updates(map[string]interface{}{
			"document_id": doc.ID,
			"status":      models.RfpStatusOpen,
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach document", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"document": doc, "chunks": chunkCount})
	}
}

// UploadProposalDocument ingests a vendor proposal's document text.
// @Summary Upload proposal document
// @Description Ingests the proposal document as per-page text and attaches it to the proposal. Requires Authorization header.
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param body body handlers.documentUpload true "Document pages"
// @Success 200 {object} models.Document
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/proposals/{id}/document [post]
func UploadProposalDocument(gdb *gorm.DB, db *sql.DB, index *services.ChunkSearchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, err := GetSessionDetails(db, sessionIDFromHeader(c)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		proposal, err := storage.GetProposal(gdb, c.Param("id"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, storage.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": "Proposal not found", "details": err.Error()})
			return
		}

		doc, chunkCount, ok := ingestDocument(c, gdb, db, index, models.DocumentOwnerProposal, proposal.ID, proposal.DocumentID)
		if !ok {
			return
		}

		if err := gdb.Model(&models.Proposal{}).Where("id = ?", proposal.ID).Update("document_id", doc.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach document", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"document": doc, "chunks": chunkCount})
	}
}

// ingestDocument binds the upload payload, creates the document record, and
// chunks the pages into the retrieval index. Writes its own error response
// and returns ok=false on failure.
func ingestDocument(c *gin.Context, gdb *gorm.DB, db *sql.DB, index *services.ChunkSearchService, ownerType, ownerID, previousDocID string) (*models.Document, int, bool) {
	var upload documentUpload
	if err := c.ShouldBindJSON(&upload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
		return nil, 0, false
	}
	if !upload.hasText() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Document has no text content"})
		return nil, 0, false
	}

	doc := &models.Document{
		ID:        uuid.NewString(),
		OwnerType: ownerType,
		OwnerID:   ownerID,
		FileName:  upload.FileName,
		PageCount: len(upload.Pages),
	}
	if err := storage.CreateDocument(gdb, doc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save document", "details": err.Error()})
		return nil, 0, false
	}

	ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
	defer cancel()

	chunkCount, err := index.IngestDocument(ctx, doc.ID, upload.Pages)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest document", "details": err.Error()})
		return nil, 0, false
	}

	// stale chunks from a replaced upload are deleted best effort
	if previousDocID != "" && previousDocID != doc.ID {
		if err := storage.DeleteDocumentChunks(db, previousDocID); err != nil {
			log.Printf("Failed to delete chunks for replaced document %s: %v", previousDocID, err)
		}
	}

	return doc, chunkCount, true
}
