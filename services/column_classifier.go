package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"backend/models"
)

// EngineConfig carries the tunable thresholds of the comparison engine.
// Defaults come from DefaultEngineConfig; they can be overridden per RFP
// domain.
type EngineConfig struct {
	// VoteThreshold is the majority-vote cutoff: match ratio strictly above
	// it classifies a column FIXED, strictly below 1-threshold classifies
	// VENDOR, in between is ambiguous.
	VoteThreshold float64
	// FuzzyMatchThreshold is the minimum description similarity (strictly
	// greater than) for fuzzy row matching in the matrix builder.
	FuzzyMatchThreshold float64
}

// DefaultEngineConfig returns the documented defaults: 0.5 vote threshold,
// 0.6 fuzzy match threshold.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		VoteThreshold:       0.5,
		FuzzyMatchThreshold: 0.6,
	}
}

// emptyValueSentinels are the tokens treated as "no value" everywhere:
// excluded from vote comparisons and skipped (not zeroed) in totals.
var emptyValueSentinels = map[string]bool{
	"":           true,
	"TBD":        true,
	"N/A":        true,
	"-":          true,
	"$-":         true,
	"NOT QUOTED": true,
}

// NormalizeValue normalizes a cell value for comparison. Empty strings and
// the case-insensitive sentinel tokens all map to "".
func NormalizeValue(val string) string {
	s := strings.ToUpper(strings.TrimSpace(val))
	if emptyValueSentinels[s] {
		return ""
	}
	return s
}

// ProposalRows is one vendor's extracted rows plus identity, the unit the
// classifier and matrix builder operate on.
type ProposalRows struct {
	ID         string
	VendorName string
	Status     string
	Rows       []models.FormRow
}

// ColumnClassifier labels columns FIXED or VENDOR by majority voting over
// template-vs-vendor value matches, with an oracle fallback for ambiguous
// columns.
type ColumnClassifier struct {
	oracle StructuredGenerator
	cfg    EngineConfig
}

// NewColumnClassifier builds a classifier with the given oracle and config.
func NewColumnClassifier(oracle StructuredGenerator, cfg EngineConfig) *ColumnClassifier {
	return &ColumnClassifier{oracle: oracle, cfg: cfg}
}

// findVendorRow locates the vendor row with the same item id, trimmed exact
// match.
func findVendorRow(rows []models.FormRow, itemID string) *models.FormRow {
	want := strings.TrimSpace(itemID)
	if want == "" {
		return nil
	}
	for i := range rows {
		if strings.TrimSpace(rows[i].ItemID) == want {
			return &rows[i]
		}
	}
	return nil
}

// ClassifyMajorityVoting partitions the candidate columns into fixed,
// vendor, and ambiguous by comparing template values against item-id
// matched vendor values. It is a pure function of its inputs. Columns with
// zero valid comparisons default to FIXED: an undecidable column is safer
// treated as identifier-like than silently multiplied per vendor.
func (c *ColumnClassifier) ClassifyMajorityVoting(candidates []string, templateRows []models.FormRow, proposals []ProposalRows) (fixed, vendor, ambiguous []string) {
	fixed = []string{}
	vendor = []string{}
	ambiguous = []string{}

	withData := make([]ProposalRows, 0, len(proposals))
	for _, p := range proposals {
		if len(p.Rows) > 0 {
			withData = append(withData, p)
		}
	}
	if len(withData) == 0 {
		// no vendor data at all: show template values only
		fixed = append(fixed, candidates...)
		return fixed, vendor, ambiguous
	}

	for _, col := range candidates {
		totalComparisons := 0
		matchCount := 0

		for _, templateRow := range templateRows {
			templateValue := NormalizeValue(templateRow.GetValue(col))
			if templateValue == "" {
				continue
			}
			for _, p := range withData {
				vendorRow := findVendorRow(p.Rows, templateRow.ItemID)
				if vendorRow == nil {
					continue
				}
				vendorValue := NormalizeValue(vendorRow.GetValue(col))
				if vendorValue == "" {
					continue
				}
				totalComparisons++
				if templateValue == vendorValue {
					matchCount++
				}
			}
		}

		if totalComparisons == 0 {
			fixed = append(fixed, col)
			continue
		}
		ratio := float64(matchCount) / float64(totalComparisons)
		switch {
		case ratio > c.cfg.VoteThreshold:
			fixed = append(fixed, col)
		case ratio < 1-c.cfg.VoteThreshold:
			vendor = append(vendor, col)
		default:
			ambiguous = append(ambiguous, col)
		}
	}
	return fixed, vendor, ambiguous
}

const semanticClassifySystemPrompt = `You are classifying a column in a proposal comparison matrix.

Decide whether the column is:
- FIXED: values are semantically the same across the RFP template and vendors (identifiers, descriptions that should match)
- VENDOR: values represent vendor-specific data (prices, quantities, dates that vary by vendor)

Consider:
1. If values look like minor text variations of the same thing -> FIXED
2. If values are clearly different amounts/prices/quantities -> VENDOR
3. If the column name suggests pricing/cost/quantity -> VENDOR
4. If the column name suggests identifier/description/scope -> FIXED

Respond with a JSON object: {"classification": "FIXED"} or {"classification": "VENDOR"}`

type semanticClassification struct {
	Classification string `json:"classification"`
}

// classifySemantically resolves one ambiguous column with the oracle, using
// up to 5 template samples and up to 10 vendor samples. Oracle failure
// defaults to VENDOR: surfacing divergent data beats silently collapsing
// it.
func (c *ColumnClassifier) classifySemantically(ctx context.Context, column string, templateRows []models.FormRow, proposals []ProposalRows) (string, error) {
	var templateSamples []string
	for _, row := range templateRows {
		if len(templateSamples) >= 5 {
			break
		}
		if v := row.GetValue(column); strings.TrimSpace(v) != "" {
			templateSamples = append(templateSamples, v)
		}
	}
	var vendorSamples []string
	for _, p := range proposals {
		for _, row := range p.Rows {
			if len(vendorSamples) >= 10 {
				break
			}
			if v := row.GetValue(column); strings.TrimSpace(v) != "" {
				vendorSamples = append(vendorSamples, v)
			}
		}
	}

	userPrompt := fmt.Sprintf("Column Name: %s\n\nSample values from RFP template:\n%s\n\nSample values from vendor proposals:\n%s",
		column, strings.Join(templateSamples, "\n"), strings.Join(vendorSamples, "\n"))

	var result semanticClassification
	if err := c.oracle.GenerateJSON(ctx, semanticClassifySystemPrompt, userPrompt, &result); err != nil {
		log.Printf("Semantic classification failed for column %q, defaulting to vendor: %v", column, err)
		return "vendor", err
	}
	if strings.Contains(strings.ToUpper(result.Classification), "FIXED") {
		return "fixed", nil
	}
	return "vendor", nil
}

// Classify runs majority voting and resolves any ambiguous columns through
// the oracle. The returned partition covers every candidate column. The
// error reports oracle failures during ambiguity resolution; the partition
// is still usable (failed columns defaulted to vendor) but must not be
// cached.
func (c *ColumnClassifier) Classify(ctx context.Context, candidates []string, templateRows []models.FormRow, proposals []ProposalRows) (fixed, vendor []string, err error) {
	fixed, vendor, ambiguous := c.ClassifyMajorityVoting(candidates, templateRows, proposals)
	for _, col := range ambiguous {
		verdict, semErr := c.classifySemantically(ctx, col, templateRows, proposals)
		if semErr != nil {
			err = semErr
		}
		if verdict == "fixed" {
			fixed = append(fixed, col)
		} else {
			vendor = append(vendor, col)
		}
	}
	return fixed, vendor, err
}

// BuildClassificationCache packages a completed classification with its
// fingerprint: the sorted proposal-id set it was computed against. Callers
// must only persist it after a fully successful run.
func BuildClassificationCache(fixed, vendor, proposalIDs []string) models.ColumnClassification {
	ids := append([]string(nil), proposalIDs...)
	sort.Strings(ids)
	return models.ColumnClassification{
		FixedColumns:  fixed,
		VendorColumns: vendor,
		ProposalIDs:   ids,
	}
}

// CandidateColumns collects the columns a classification run should
// consider: the structure's declared columns plus any value keys present on
// the template rows, deduplicated, in first-seen order.
func CandidateColumns(structure models.FormStructure) []string {
	seen := map[string]bool{}
	var out []string
	add := func(col string) {
		key := strings.ToLower(strings.TrimSpace(col))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, col)
	}
	for _, col := range structure.FixedColumns {
		add(col)
	}
	for _, col := range structure.VendorColumns {
		add(col)
	}
	for _, row := range structure.Rows {
		keys := make([]string, 0, len(row.Values))
		for k := range row.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			add(k)
		}
	}
	return out
}
