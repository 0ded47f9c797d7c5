package handlers

import (
	"backend/models"
	"backend/services"
	"backend/storage"
	"backend/utils"
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateProposal registers a vendor proposal against an RFP.
// @Summary Create proposal
// @Description Registers a vendor proposal for an RFP. Request body: vendor_name, vendor_contact, vendor_license. Requires Authorization header.
// @Tags Proposals
// @Accept json
// @Produce json
// @Param rfp_id path string true "RFP ID"
// @Param body body models.Proposal true "Proposal data"
// @Success 201 {object} models.Proposal
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id}/proposals [post]
func CreateProposal(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
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
			VendorName    string `json:"vendor_name" binding:"required"`
			VendorContact string `json:"vendor_contact"`
			VendorLicense string `json:"vendor_license"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}

		proposal := models.Proposal{
			ID:            uuid.NewString(),
			RfpID:         rfp.ID,
			VendorName:    input.VendorName,
			VendorContact: input.VendorContact,
			VendorLicense: input.VendorLicense,
			VendorData:    models.VendorProposalData{VendorName: input.VendorName, FilledRows: []models.FormRow{}},
		}
		if err := storage.CreateProposal(gdb, &proposal); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create proposal", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, proposal)
	}
}

// ListProposals lists the proposals of one RFP.
// @Summary List proposals
// @Description Lists all proposals of an RFP. Requires Authorization header.
// @Tags Proposals
// @Produce json
// @Param rfp_id path string true "RFP ID"
// @Success 200 {array} models.Proposal
// @Failure 401 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id}/proposals [get]
func ListProposals(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, err := GetSessionDetails(db, sessionIDFromHeader(c)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		proposals, err := storage.ListProposalsByRfp(gdb, c.Param("rfp_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list proposals", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, proposals)
	}
}

// GetProposal fetches one proposal.
// @Summary Get proposal
// @Description Returns the proposal with its extracted vendor data. Requires Authorization header.
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} models.Proposal
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/proposals/{id} [get]
func GetProposal(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
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
		c.JSON(http.StatusOK, proposal)
	}
}

// DeleteProposal removes a proposal and its ingested chunks.
// @Summary Delete proposal
// @Description Deletes the proposal and its document chunks. Any cached column classification for the RFP is invalidated by fingerprint. Requires Authorization header.
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} utils.Response
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/proposals/{id} [delete]
func DeleteProposal(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
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

		if err := storage.DeleteProposal(gdb, proposal.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete proposal", "details": err.Error()})
			return
		}
		if proposal.DocumentID != "" {
			if err := storage.DeleteDocumentChunks(db, proposal.DocumentID); err != nil {
				log.Printf("Failed to delete chunks for document %s: %v", proposal.DocumentID, err)
			}
		}

		utils.SuccessResponse(c, "Proposal deleted", http.StatusOK)
	}
}

// ExtractProposal runs vendor extraction for one proposal.
// @Summary Extract proposal data
// @Description Extracts the vendor's filled values from its uploaded proposal document. Requires Authorization header.
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} models.Proposal
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/proposals/{id}/extract [post]
func ExtractProposal(gdb *gorm.DB, db *sql.DB, extractor *services.VendorExtractService) gin.HandlerFunc {
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
		if proposal.DocumentID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Proposal has no uploaded document to extract"})
			return
		}

		rfp, err := storage.GetRfp(gdb, proposal.RfpID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load RFP", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetAnalysisContext(c.Request.Context())
		defer cancel()

		extractOneProposal(ctx, gdb, extractor, rfp.FormStructure, proposal)
		if proposal.Status == models.ProposalStatusExtracted {
			NotifyProposalExtracted(ctx, db, *rfp, proposal.VendorData.VendorName)
		}
		c.JSON(http.StatusOK, proposal)
	}
}

// ExtractAllProposals runs vendor extraction concurrently for every proposal
// of an RFP that has an uploaded document.
// @Summary Extract all proposals
// @Description Runs extraction for every proposal of the RFP concurrently. One vendor failing never aborts the others. Requires Authorization header.
// @Tags Proposals
// @Produce json
// @Param rfp_id path string true "RFP ID"
// @Success 200 {array} models.Proposal
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id}/extract [post]
func ExtractAllProposals(gdb *gorm.DB, db *sql.DB, extractor *services.VendorExtractService) gin.HandlerFunc {
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
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list proposals", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetAnalysisContext(c.Request.Context())
		defer cancel()

		var wg sync.WaitGroup
		for i := range proposals {
			p := &proposals[i]
			if p.DocumentID == "" {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						log.Printf("Panic extracting proposal %s: %v", p.ID, r)
					}
				}()
				extractOneProposal(ctx, gdb, extractor, rfp.FormStructure, p)
			}()
		}
		wg.Wait()

		for i := range proposals {
			if proposals[i].Status == models.ProposalStatusExtracted {
				NotifyProposalExtracted(ctx, db, *rfp, proposals[i].VendorData.VendorName)
			}
		}

		c.JSON(http.StatusOK, proposals)
	}
}

// extractOneProposal runs the extraction for one proposal and persists the
// outcome. Failure marks the proposal extraction_failed with an empty row
// set; it never propagates, so sibling extractions and the matrix build
// continue with whatever succeeded.
func extractOneProposal(ctx context.Context, gdb *gorm.DB, extractor *services.VendorExtractService, structure models.FormStructure, proposal *models.Proposal) {
	proposal.Status = models.ProposalStatusExtracting
	if err := storage.UpdateProposal(gdb, proposal); err != nil {
		log.Printf("Failed to mark proposal %s extracting: %v", proposal.ID, err)
	}

	data, err := extractor.ExtractFromDocument(ctx, proposal.DocumentID, structure, proposal.VendorName)
	if err != nil {
		proposal.Status = models.ProposalStatusExtractionFailed
		proposal.ExtractError = err.Error()
		proposal.VendorData = data
		if saveErr := storage.UpdateProposal(gdb, proposal); saveErr != nil {
			log.Printf("Failed to save failed extraction for %s: %v", proposal.ID, saveErr)
		}
		return
	}

	proposal.Status = models.ProposalStatusExtracted
	proposal.ExtractError = ""
	proposal.VendorData = data

	// only overwrite stored vendor fields when the extraction found
	// something non-trivially new
	changes := services.MergeChangeset(map[string]string{
		"vendor_contact": proposal.VendorContact,
		"vendor_license": proposal.VendorLicense,
	}, map[string]string{
		"vendor_contact": data.VendorContact,
		"vendor_license": data.VendorLicense,
	})
	if v, ok := changes["vendor_contact"]; ok {
		proposal.VendorContact = v
	}
	if v, ok := changes["vendor_license"]; ok {
		proposal.VendorLicense = v
	}

	if err := storage.UpdateProposal(gdb, proposal); err != nil {
		log.Printf("Failed to save extraction for %s: %v", proposal.ID, err)
	}
}
