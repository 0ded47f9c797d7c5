package storage

import (
	"errors"
	"fmt"
	"time"

	"backend/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

func CreateRfp(db *gorm.DB, rfp *models.Rfp) error {
	now := time.Now()
	rfp.CreatedAt = now
	rfp.UpdatedAt = now
	if rfp.Status == "" {
		rfp.Status = models.RfpStatusDraft
	}
	if err := db.Create(rfp).Error; err != nil {
		return fmt.Errorf("failed to create RFP: %v", err)
	}
	return nil
}

func GetRfp(db *gorm.DB, id string) (*models.Rfp, error) {
	var rfp models.Rfp
	if err := db.First(&rfp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rfp, nil
}

func ListRfps(db *gorm.DB) ([]models.Rfp, error) {
	var rfps []models.Rfp
	if err := db.Order("created_at DESC").Find(&rfps).Error; err != nil {
		return nil, err
	}
	return rfps, nil
}

func UpdateRfp(db *gorm.DB, rfp *models.Rfp) error {
	rfp.UpdatedAt = time.Now()
	return db.Save(rfp).Error
}

// DeleteRfp removes the RFP along with its proposals and saved comparison.
func DeleteRfp(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Proposal{}, "rfp_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.SavedComparison{}, "rfp_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Rfp{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SaveFormStructure replaces the RFP's discovered structure wholesale.
// Re-analysis never merges with the previous structure, and the column
// classification cache is dropped because it was computed against the old
// structure.
func SaveFormStructure(db *gorm.DB, rfpID string, structure models.FormStructure, revision string) error {
	updates := map[string]interface{}{
		"form_structure":   structure,
		"comparison_cache": models.ColumnClassification{},
		"updated_at":       time.Now(),
	}
	if revision != "" {
		updates["form_revision"] = revision
	}
	return db.Model(&models.Rfp{}).Where("id = ?", rfpID).Updates(updates).Error
}

// SaveComparisonCache persists a completed column classification. Callers
// only invoke this after a fully successful classification run; a partial
// run must leave the previous cache untouched.
func SaveComparisonCache(db *gorm.DB, rfpID string, cache models.ColumnClassification) error {
	return db.Model(&models.Rfp{}).Where("id = ?", rfpID).Updates(map[string]interface{}{
		"comparison_cache": cache,
		"updated_at":       time.Now(),
	}).Error
}

func CreateProposal(db *gorm.DB, proposal *models.Proposal) error {
	now := time.Now()
	proposal.CreatedAt = now
	proposal.UpdatedAt = now
	if proposal.Status == "" {
		proposal.Status = models.ProposalStatusReceived
	}
	if err := db.Create(proposal).Error; err != nil {
		return fmt.Errorf("failed to create proposal: %v", err)
	}
	return nil
}

func GetProposal(db *gorm.DB, id string) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := db.First(&proposal, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &proposal, nil
}

func ListProposalsByRfp(db *gorm.DB, rfpID string) ([]models.Proposal, error) {
	var proposals []models.Proposal
	if err := db.Where("rfp_id = ?", rfpID).Order("created_at ASC").Find(&proposals).Error; err != nil {
		return nil, err
	}
	return proposals, nil
}

func UpdateProposal(db *gorm.DB, proposal *models.Proposal) error {
	proposal.UpdatedAt = time.Now()
	return db.Save(proposal).Error
}

func DeleteProposal(db *gorm.DB, id string) error {
	result := db.Delete(&models.Proposal{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertSavedComparison saves the comparison view settings for an RFP,
// replacing any previous save (one saved comparison per RFP).
func UpsertSavedComparison(db *gorm.DB, saved *models.SavedComparison) error {
	var existing models.SavedComparison
	err := db.First(&existing, "rfp_id = ?", saved.RfpID).Error
	now := time.Now()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		saved.CreatedAt = now
		saved.UpdatedAt = now
		return db.Create(saved).Error
	}
	if err != nil {
		return err
	}
	existing.Dimensions = saved.Dimensions
	existing.ProposalIDs = saved.ProposalIDs
	existing.UpdatedAt = now
	*saved = existing
	return db.Save(&existing).Error
}

func GetSavedComparison(db *gorm.DB, rfpID string) (*models.SavedComparison, error) {
	var saved models.SavedComparison
	if err := db.First(&saved, "rfp_id = ?", rfpID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &saved, nil
}

func ListSavedComparisons(db *gorm.DB) ([]models.SavedComparison, error) {
	var saved []models.SavedComparison
	if err := db.Order("updated_at DESC").Find(&saved).Error; err != nil {
		return nil, err
	}
	return saved, nil
}

func DeleteSavedComparison(db *gorm.DB, rfpID string) error {
	result := db.Delete(&models.SavedComparison{}, "rfp_id = ?", rfpID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func CreateDocument(db *gorm.DB, doc *models.Document) error {
	doc.CreatedAt = time.Now()
	return db.Create(doc).Error
}

func GetDocument(db *gorm.DB, id string) (*models.Document, error) {
	var doc models.Document
	if err := db.First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// ListExpiredRfps returns active RFPs whose deadline has passed, for the
// daily expiry job.
func ListExpiredRfps(db *gorm.DB, now time.Time) ([]models.Rfp, error) {
	var rfps []models.Rfp
	err := db.Where("status IN ? AND deadline IS NOT NULL AND deadline < ?",
		[]string{models.RfpStatusOpen, models.RfpStatusAnalyzed}, now).Find(&rfps).Error
	return rfps, err
}

// ListRfpsWithDeadlineBetween returns active RFPs whose deadline falls
// inside the window, used for reminder notifications.
func ListRfpsWithDeadlineBetween(db *gorm.DB, from, to time.Time) ([]models.Rfp, error) {
	var rfps []models.Rfp
	err := db.Where("status IN ? AND deadline BETWEEN ? AND ?",
		[]string{models.RfpStatusOpen, models.RfpStatusAnalyzed}, from, to).Find(&rfps).Error
	return rfps, err
}
