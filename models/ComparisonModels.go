package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"sort"
)

// ColumnClassification is the cached result of deciding which columns are
// fixed across vendors and which are vendor-specific. ProposalIDs is the
// fingerprint: the sorted set of proposal ids that had extractable data when
// the classification ran. Any difference in set membership invalidates it.
type ColumnClassification struct {
	FixedColumns  []string `json:"fixed_columns"`
	VendorColumns []string `json:"vendor_columns"`
	ProposalIDs   []string `json:"proposal_ids"`
}

// IsZero reports whether no classification has been cached yet.
func (c ColumnClassification) IsZero() bool {
	return len(c.FixedColumns) == 0 && len(c.VendorColumns) == 0 && len(c.ProposalIDs) == 0
}

// MatchesFingerprint reports whether the cached classification was computed
// against exactly this set of proposal ids. Order does not matter, only set
// membership.
func (c ColumnClassification) MatchesFingerprint(proposalIDs []string) bool {
	if c.IsZero() {
		return false
	}
	cached := append([]string(nil), c.ProposalIDs...)
	current := append([]string(nil), proposalIDs...)
	sort.Strings(cached)
	sort.Strings(current)
	if len(cached) != len(current) {
		return false
	}
	for i := range cached {
		if cached[i] != current[i] {
			return false
		}
	}
	return true
}

func (c ColumnClassification) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *ColumnClassification) Scan(value interface{}) error {
	if value == nil {
		*c = ColumnClassification{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("unsupported type for ColumnClassification")
		}
		b = []byte(str)
	}
	if len(b) == 0 {
		*c = ColumnClassification{}
		return nil
	}
	return json.Unmarshal(b, c)
}

// ProposalSummary is the per-vendor header block of the comparison matrix.
type ProposalSummary struct {
	ID         string `json:"id"`
	VendorName string `json:"vendor_name"`
	Status     string `json:"status"`
}

// MatrixRow is one aligned row of the comparison matrix. VendorValues is
// keyed by proposal id, then by vendor column name.
type MatrixRow struct {
	IsGrandTotal bool                         `json:"is_grand_total,omitempty"`
	FixedValues  map[string]string            `json:"fixed_values"`
	VendorValues map[string]map[string]string `json:"vendor_values"`
}

// ComparisonMatrix is the assembled multi-vendor comparison. It is a view,
// recomputed on demand, never the object of record.
type ComparisonMatrix struct {
	RfpTitle      string            `json:"rfp_title"`
	FixedColumns  []string          `json:"fixed_columns"`
	VendorColumns []string          `json:"vendor_columns"`
	Proposals     []ProposalSummary `json:"proposals"`
	Rows          []MatrixRow       `json:"rows"`
	Message       string            `json:"message,omitempty"`
}
