package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Proposal status values
const (
	ProposalStatusReceived         = "received"
	ProposalStatusExtracting       = "extracting"
	ProposalStatusExtracted        = "extracted"
	ProposalStatusExtractionFailed = "extraction_failed"
)

// VendorProposalData holds everything extracted from a vendor's proposal
// document. It is recreated in full on every re-extraction.
type VendorProposalData struct {
	VendorName      string    `json:"vendor_name"`
	VendorContact   string    `json:"vendor_contact,omitempty"`
	VendorLicense   string    `json:"vendor_license,omitempty"`
	FilledRows      []FormRow `json:"filled_rows"`
	GrandTotal      string    `json:"grand_total,omitempty"`
	ProjectDuration string    `json:"project_duration,omitempty"`
}

// HasRows reports whether extraction produced any line items for this vendor.
func (d VendorProposalData) HasRows() bool {
	return len(d.FilledRows) > 0
}

func (d VendorProposalData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *VendorProposalData) Scan(value interface{}) error {
	if value == nil {
		*d = VendorProposalData{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("unsupported type for VendorProposalData")
		}
		b = []byte(str)
	}
	if len(b) == 0 {
		*d = VendorProposalData{}
		return nil
	}
	return json.Unmarshal(b, d)
}

// Proposal represents the proposals table. One row per vendor submission
// against an RFP.
type Proposal struct {
	ID            string             `gorm:"primaryKey;column:id" json:"id"`
	RfpID         string             `gorm:"column:rfp_id;not null;index" json:"rfp_id"`
	VendorName    string             `gorm:"column:vendor_name;not null" json:"vendor_name"`
	VendorContact string             `gorm:"column:vendor_contact" json:"vendor_contact,omitempty"`
	VendorLicense string             `gorm:"column:vendor_license" json:"vendor_license,omitempty"`
	Status        string             `gorm:"column:status;not null;default:'received'" json:"status"`
	DocumentID    string             `gorm:"column:document_id" json:"document_id,omitempty"`
	VendorData    VendorProposalData `gorm:"column:vendor_data;type:jsonb" json:"vendor_data"`
	ExtractError  string             `gorm:"column:extract_error" json:"extract_error,omitempty"`
	CreatedAt     time.Time          `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name for Proposal
func (Proposal) TableName() string {
	return "proposals"
}
