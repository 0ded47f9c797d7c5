package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RFP status values
const (
	RfpStatusDraft    = "draft"
	RfpStatusOpen     = "open"
	RfpStatusAnalyzed = "analyzed"
	RfpStatusExpired  = "expired"
)

// FormRow is a single line item of a proposal form. The same shape is used
// for the blank RFP template and for a vendor's filled submission, so row
// alignment always compares like with like.
type FormRow struct {
	Section     string            `json:"section,omitempty"`
	ItemID      string            `json:"item_id,omitempty"`
	Description string            `json:"description,omitempty"`
	Values      map[string]string `json:"values,omitempty"`
}

// GetValue looks up a column value on the row. Column names coming back from
// document extraction rarely agree on casing, so the lookup is
// case-insensitive. Item/Description/Section style columns resolve to the
// dedicated row fields first.
func (r FormRow) GetValue(column string) string {
	key := strings.ToLower(strings.TrimSpace(column))
	switch {
	case key == "item" || key == "item id" || key == "item_id" || key == "item #" || key == "item#":
		if r.ItemID != "" {
			return r.ItemID
		}
	case strings.Contains(key, "description") || key == "scope" || key == "scope of work":
		if r.Description != "" {
			return r.Description
		}
	case key == "section":
		if r.Section != "" {
			return r.Section
		}
	}
	if r.Values == nil {
		return ""
	}
	if v, ok := r.Values[column]; ok {
		return v
	}
	for k, v := range r.Values {
		if strings.EqualFold(k, column) {
			return v
		}
	}
	return ""
}

// DiscoveredColumn is one column header found in a proposal form table.
type DiscoveredColumn struct {
	Name         string   `json:"name"`
	ColumnType   string   `json:"column_type"`
	IsFixed      bool     `json:"is_fixed"`
	SampleValues []string `json:"sample_values,omitempty"`
}

// DiscoveredTable is one logical table found in the RFP proposal form.
type DiscoveredTable struct {
	TableTitle     string             `json:"table_title"`
	TableType      string             `json:"table_type"`
	Columns        []DiscoveredColumn `json:"columns"`
	SectionHeaders []string           `json:"section_headers,omitempty"`
}

// FormStructure is the discovered (or elected) schema of an RFP's proposal
// submission form. It is computed once per document and replaced wholesale
// on re-analysis, never patched field by field.
type FormStructure struct {
	FormTitle     string            `json:"form_title"`
	Tables        []DiscoveredTable `json:"tables"`
	FixedColumns  []string          `json:"fixed_columns"`
	VendorColumns []string          `json:"vendor_columns"`
	Sections      []string          `json:"sections"`
	Rows          []FormRow         `json:"rows"`
}

// IsEmpty reports whether this is the sentinel "no form discovered"
// structure. An empty structure is a normal outcome, not an error.
func (s FormStructure) IsEmpty() bool {
	return len(s.Tables) == 0 && len(s.FixedColumns) == 0 && len(s.VendorColumns) == 0
}

// HasRows reports whether the structure carries usable template rows.
func (s FormStructure) HasRows() bool {
	return len(s.Rows) > 0
}

// EmptyFormStructure returns the sentinel structure used when discovery
// fails or the document has no discoverable pricing form.
func EmptyFormStructure() FormStructure {
	return FormStructure{
		Tables:        []DiscoveredTable{},
		FixedColumns:  []string{},
		VendorColumns: []string{},
		Sections:      []string{},
		Rows:          []FormRow{},
	}
}

func (s FormStructure) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *FormStructure) Scan(value interface{}) error {
	if value == nil {
		*s = FormStructure{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("unsupported type for FormStructure")
		}
		b = []byte(str)
	}
	if len(b) == 0 {
		*s = FormStructure{}
		return nil
	}
	return json.Unmarshal(b, s)
}

// Rfp represents the rfps table.
type Rfp struct {
	ID              string               `gorm:"primaryKey;column:id" json:"id"`
	Reference       string               `gorm:"column:reference;uniqueIndex" json:"reference"`
	Title           string               `gorm:"column:title;not null" json:"title"`
	Status          string               `gorm:"column:status;not null;default:'draft'" json:"status"`
	FormRevision    string               `gorm:"column:form_revision" json:"form_revision,omitempty"`
	Deadline        *time.Time           `gorm:"column:deadline" json:"deadline,omitempty"`
	DocumentID      string               `gorm:"column:document_id" json:"document_id,omitempty"`
	FormStructure   FormStructure        `gorm:"column:form_structure;type:jsonb" json:"form_structure"`
	ComparisonCache ColumnClassification `gorm:"column:comparison_cache;type:jsonb" json:"comparison_cache"`
	CreatedBy       string               `gorm:"column:created_by" json:"created_by"`
	CreatedAt       time.Time            `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name for Rfp
func (Rfp) TableName() string {
	return "rfps"
}

// SavedComparison represents the saved_comparisons table. One saved
// comparison per RFP; saving again overwrites the selection.
type SavedComparison struct {
	ID          string     `gorm:"primaryKey;column:id" json:"id"`
	RfpID       string     `gorm:"column:rfp_id;not null;uniqueIndex" json:"rfp_id"`
	Dimensions  StringList `gorm:"column:dimensions;type:jsonb" json:"dimensions"`
	ProposalIDs StringList `gorm:"column:proposal_ids;type:jsonb" json:"proposal_ids"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name for SavedComparison
func (SavedComparison) TableName() string {
	return "saved_comparisons"
}

// StringList stores a JSON array of strings in a jsonb column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("unsupported type for StringList: %T", value)
		}
		b = []byte(str)
	}
	if len(b) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(b, l)
}
