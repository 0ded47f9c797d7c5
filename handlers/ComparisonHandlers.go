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
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ComparisonEngine bundles the services the matrix endpoint needs.
type ComparisonEngine struct {
	Classifier *services.ColumnClassifier
	Builder    *services.MatrixBuilder
}

// NewComparisonEngine builds the engine with the default thresholds.
func NewComparisonEngine(oracle services.StructuredGenerator) *ComparisonEngine {
	cfg := services.DefaultEngineConfig()
	return &ComparisonEngine{
		Classifier: services.NewColumnClassifier(oracle, cfg),
		Builder:    services.NewMatrixBuilder(cfg),
	}
}

// GetComparisonMatrix builds the multi-vendor comparison matrix for an RFP.
// @Summary Comparison matrix
// @Description Builds the comparison matrix across all (or the selected) proposals of an RFP. Column classification is cached per proposal set. Requires Authorization header.
// @Tags Comparisons
// @Produce json
// @Param rfp_id path string true "RFP ID"
// @Param proposal_ids query string false "Comma-separated proposal ids to compare (default: all)"
// @Success 200 {object} models.ComparisonMatrix
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id}/comparison-matrix [get]
func GetComparisonMatrix(gdb *gorm.DB, db *sql.DB, engine *ComparisonEngine) gin.HandlerFunc {
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
		proposals = filterProposals(proposals, c.Query("proposal_ids"))

		ctx, cancel := utils.GetAnalysisContext(c.Request.Context())
		defer cancel()

		matrix := buildComparisonMatrix(ctx, gdb, engine, rfp, proposals)
		c.JSON(http.StatusOK, matrix)
	}
}

// filterProposals keeps only the requested ids; an empty filter keeps all.
func filterProposals(proposals []models.Proposal, idsParam string) []models.Proposal {
	idsParam = strings.TrimSpace(idsParam)
	if idsParam == "" {
		return proposals
	}
	wanted := map[string]bool{}
	for _, id := range strings.Split(idsParam, ",") {
		if id = strings.TrimSpace(id); id != "" {
			wanted[id] = true
		}
	}
	filtered := make([]models.Proposal, 0, len(proposals))
	for _, p := range proposals {
		if wanted[p.ID] {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// buildComparisonMatrix runs the full comparison pipeline: structure (stored
// or elected from the vendors), column classification (cached per proposal
// set), then the deterministic matrix build.
func buildComparisonMatrix(ctx context.Context, gdb *gorm.DB, engine *ComparisonEngine, rfp *models.Rfp, proposals []models.Proposal) models.ComparisonMatrix {
	proposalRows := make([]services.ProposalRows, 0, len(proposals))
	for _, p := range proposals {
		proposalRows = append(proposalRows, services.ProposalRows{
			ID:         p.ID,
			VendorName: p.VendorName,
			Status:     p.Status,
			Rows:       p.VendorData.FilledRows,
		})
	}
	proposalIDs := extractedProposalIDs(proposals)

	structure := rfp.FormStructure
	if structure.IsEmpty() || !structure.HasRows() {
		elected, ok := services.ElectStructureFromProposals(proposalRows)
		if !ok {
			return models.ComparisonMatrix{
				RfpTitle:      rfp.Title,
				FixedColumns:  []string{},
				VendorColumns: []string{},
				Proposals:     proposalSummaries(proposals),
				Rows:          []models.MatrixRow{},
				Message:       "No form structure discovered and no vendor data to compare",
			}
		}
		structure = elected
	}

	classification := rfp.ComparisonCache
	if !classification.MatchesFingerprint(proposalIDs) {
		candidates := services.CandidateColumns(structure)
		fixed, vendor, err := engine.Classifier.Classify(ctx, candidates, structure.Rows, proposalRows)
		classification = services.BuildClassificationCache(fixed, vendor, proposalIDs)
		if err != nil {
			// usable partition, but computed degraded: recompute next time
			log.Printf("Column classification for RFP %s ran degraded, not caching: %v", rfp.ID, err)
		} else if cacheErr := storage.SaveComparisonCache(gdb, rfp.ID, classification); cacheErr != nil {
			log.Printf("Failed to cache classification for RFP %s: %v", rfp.ID, cacheErr)
		}
	}

	return engine.Builder.Build(rfp.Title, structure, classification, proposalRows)
}

// extractedProposalIDs returns the ids of proposals that carry extracted row
// data. The classification cache fingerprint is built from this set, so a
// proposal that gets extracted after the cache was written changes the set
// and forces a recomputation.
func extractedProposalIDs(proposals []models.Proposal) []string {
	ids := make([]string, 0, len(proposals))
	for _, p := range proposals {
		if p.VendorData.HasRows() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func proposalSummaries(proposals []models.Proposal) []models.ProposalSummary {
	summaries := make([]models.ProposalSummary, 0, len(proposals))
	for _, p := range proposals {
		summaries = append(summaries, models.ProposalSummary{
			ID:         p.ID,
			VendorName: p.VendorName,
			Status:     p.Status,
		})
	}
	return summaries
}

// SaveComparison persists the comparison view settings for an RFP.
// @Summary Save comparison
// @Description Saves the selected proposal ids and dimensions for an RFP's comparison view, replacing any previous save. Requires Authorization header.
// @Tags Comparisons
// @Accept json
// @Produce json
// @Param rfp_id path string true "RFP ID"
// @Param body body models.SavedComparison true "Comparison settings"
// @Success 200 {object} models.SavedComparison
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id}/comparison [post]
func SaveComparison(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
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
			Dimensions  []string `json:"dimensions"`
			ProposalIDs []string `json:"proposal_ids"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}

		saved := models.SavedComparison{
			ID:          uuid.NewString(),
			RfpID:       rfp.ID,
			Dimensions:  input.Dimensions,
			ProposalIDs: input.ProposalIDs,
		}
		if err := storage.UpsertSavedComparison(gdb, &saved); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save comparison", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, saved)
	}
}

// GetSavedComparison returns the saved comparison settings for an RFP.
// @Summary Get saved comparison
// @Description Returns the saved comparison settings of an RFP. Requires Authorization header.
// @Tags Comparisons
// @Produce json
// @Param rfp_id path string true "RFP ID"
// @Success 200 {object} models.SavedComparison
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id}/comparison [get]
func GetSavedComparisonHandler(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, err := GetSessionDetails(db, sessionIDFromHeader(c)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		saved, err := storage.GetSavedComparison(gdb, c.Param("rfp_id"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, storage.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": "No saved comparison", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, saved)
	}
}

// ListSavedComparisons lists all saved comparisons.
// @Summary List saved comparisons
// @Description Lists the saved comparison settings across all RFPs. Requires Authorization header.
// @Tags Comparisons
// @Produce json
// @Success 200 {array} models.SavedComparison
// @Failure 401 {object} models.ErrorResponse
// @Router /api/comparisons [get]
func ListSavedComparisonsHandler(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, err := GetSessionDetails(db, sessionIDFromHeader(c)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		saved, err := storage.ListSavedComparisons(gdb)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list comparisons", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, saved)
	}
}

// DeleteSavedComparison removes the saved comparison of an RFP.
// @Summary Delete saved comparison
// @Description Deletes the saved comparison settings of an RFP. Requires Authorization header.
// @Tags Comparisons
// @Produce json
// @Param rfp_id path string true "RFP ID"
// @Success 200 {object} utils.Response
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id}/comparison [delete]
func DeleteSavedComparisonHandler(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, err := GetSessionDetails(db, sessionIDFromHeader(c)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		if err := storage.DeleteSavedComparison(gdb, c.Param("rfp_id")); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, storage.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": "Failed to delete comparison", "details": err.Error()})
			return
		}
		utils.SuccessResponse(c, "Saved comparison deleted", http.StatusOK)
	}
}
