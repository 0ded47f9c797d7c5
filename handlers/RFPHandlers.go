package handlers

import (
	"backend/models"
	"backend/repository"
	"backend/services"
	"backend/storage"
	"backend/utils"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateRFP creates a new RFP.
// @Summary Create RFP
// @Description Creates a new RFP. Request body: title, deadline, status. Requires Authorization header.
// @Tags RFPs
// @Accept json
// @Produce json
// @Param body body models.Rfp true "RFP data"
// @Success 201 {object} models.Rfp
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/rfps [post]
func CreateRFP(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, userName, err := GetSessionDetails(db, sessionIDFromHeader(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		var input struct {
			Title    string     `json:"title" binding:"required"`
			Deadline *time.Time `json:"deadline"`
			Status   string     `json:"status"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}

		rfp := models.Rfp{
			ID:            uuid.NewString(),
			Reference:     repository.GenerateRfpReference(),
			Title:         input.Title,
			Status:        input.Status,
			Deadline:      input.Deadline,
			FormStructure: models.EmptyFormStructure(),
			CreatedBy:     userName,
		}
		if err := storage.CreateRfp(gdb, &rfp); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create RFP", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, rfp)
	}
}

// ListRFPs lists all RFPs.
// @Summary List RFPs
// @Description Lists all RFPs ordered by creation date. Requires Authorization header.
// @Tags RFPs
// @Produce json
// @Success 200 {array} models.Rfp
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/rfps [get]
func ListRFPs(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, err := GetSessionDetails(db, sessionIDFromHeader(c)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		rfps, err := storage.ListRfps(gdb)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list RFPs", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rfps)
	}
}

// GetRFP fetches one RFP with its proposals.
// @Summary Get RFP
// @Description Returns the RFP and its proposals. Requires Authorization header.
// @Tags RFPs
// @Produce json
// @Param rfp_id path string true "RFP ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id} [get]
func GetRFP(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
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

		proposals, err := storage.ListProposalsByRfp(gdb, rfp.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load proposals", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"rfp":       rfp,
			"proposals": proposals,
		})
	}
}

// UpdateRFP updates an RFP's metadata.
// @Summary Update RFP
// @Description Updates title, deadline, or status of an RFP. Requires Authorization header.
// @Tags RFPs
// @Accept json
// @Produce json
// @Param rfp_id path string true "RFP ID"
// @Param body body models.Rfp true "RFP data"
// @Success 200 {object} models.Rfp
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id} [put]
func UpdateRFP(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
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

		var input struct {
			Title    *string    `json:"title"`
			Deadline *time.Time `json:"deadline"`
			Status   *string    `json:"status"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}

		if input.Title != nil {
			rfp.Title = *input.Title
		}
		if input.Deadline != nil {
			rfp.Deadline = input.Deadline
		}
		if input.Status != nil {
			rfp.Status = *input.Status
		}

		if err := storage.UpdateRfp(gdb, rfp); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update RFP", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rfp)
	}
}

// DeleteRFP removes an RFP with its proposals and ingested chunks.
// @Summary Delete RFP
// @Description Deletes the RFP, its proposals, saved comparison, and document chunks. Requires Authorization header.
// @Tags RFPs
// @Produce json
// @Param rfp_id path string true "RFP ID"
// @Success 200 {object} utils.Response
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id} [delete]
func DeleteRFP(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, err := GetSessionDetails(db, sessionIDFromHeader(c)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		id := c.Param("rfp_id")
		rfp, err := storage.GetRfp(gdb, id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, storage.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": "RFP not found", "details": err.Error()})
			return
		}

		proposals, _ := storage.ListProposalsByRfp(gdb, id)
		if err := storage.DeleteRfp(gdb, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete RFP", "details": err.Error()})
			return
		}

		// chunk cleanup is best effort, orphans are harmless
		if rfp.DocumentID != "" {
			if err := storage.DeleteDocumentChunks(db, rfp.DocumentID); err != nil {
				log.Printf("Failed to delete chunks for document %s: %v", rfp.DocumentID, err)
			}
		}
		for _, p := range proposals {
			if p.DocumentID != "" {
				if err := storage.DeleteDocumentChunks(db, p.DocumentID); err != nil {
					log.Printf("Failed to delete chunks for document %s: %v", p.DocumentID, err)
				}
			}
		}

		utils.SuccessResponse(c, "RFP deleted", http.StatusOK)
	}
}

// AnalyzeRFP runs form discovery on the RFP's uploaded document.
// @Summary Analyze RFP form
// @Description Discovers the proposal form structure from the RFP document and replaces the stored structure. Requires Authorization header.
// @Tags RFPs
// @Produce json
// @Param rfp_id path string true "RFP ID"
// @Success 200 {object} models.FormStructure
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id}/analyze [post]
func AnalyzeRFP(gdb *gorm.DB, db *sql.DB, discovery *services.FormDiscoveryService) gin.HandlerFunc {
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
		if rfp.DocumentID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "RFP has no uploaded document to analyze"})
			return
		}

		ctx, cancel := utils.GetAnalysisContext(c.Request.Context())
		defer cancel()

		structure, err := discovery.AnalyzeRfp(ctx, rfp.DocumentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed", "details": err.Error()})
			return
		}

		// replace wholesale, never merge with the previous structure
		revision := repository.NextRevisionCode(rfp.FormRevision)
		if err := storage.SaveFormStructure(gdb, rfp.ID, structure, revision); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save form structure", "details": err.Error()})
			return
		}

		if err := gdb.Model(&models.Rfp{}).Where("id = ?", rfp.ID).Update("status", models.RfpStatusAnalyzed).Error; err != nil {
			log.Printf("Failed to update RFP status for %s: %v", rfp.ID, err)
		}

		if structure.IsEmpty() {
			c.JSON(http.StatusOK, gin.H{
				"form_structure": structure,
				"message":        "No proposal form found in this RFP document",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"form_structure": structure})
	}
}
