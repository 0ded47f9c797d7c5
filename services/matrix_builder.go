package services

import (
	"fmt"
	"strconv"
	"strings"

	"backend/models"
)

// NotQuoted is rendered for every vendor column of a template row the
// vendor has no matching row for.
const NotQuoted = "Not Quoted"

// MatrixBuilder assembles the multi-vendor comparison matrix. The build is
// deterministic: identical structure, classification, and vendor rows
// always produce the identical matrix.
type MatrixBuilder struct {
	cfg EngineConfig
}

// NewMatrixBuilder returns a builder with the given thresholds.
func NewMatrixBuilder(cfg EngineConfig) *MatrixBuilder {
	return &MatrixBuilder{cfg: cfg}
}

// findBestMatchRow fuzzy-matches the template row's description against
// every candidate vendor row. The best candidate is accepted only when its
// similarity is strictly greater than the fuzzy threshold.
func (b *MatrixBuilder) findBestMatchRow(templateRow models.FormRow, candidates []models.FormRow) *models.FormRow {
	target := templateRow.Description
	if target == "" {
		target = templateRow.GetValue("Description")
	}
	if target == "" {
		return nil
	}

	var best *models.FormRow
	bestScore := 0.0
	for i := range candidates {
		desc := candidates[i].Description
		if desc == "" {
			desc = candidates[i].GetValue("Description")
		}
		if desc == "" {
			continue
		}
		score := SimilarityRatio(target, desc)
		if score > bestScore {
			bestScore = score
			best = &candidates[i]
		}
	}
	if bestScore > b.cfg.FuzzyMatchThreshold {
		return best
	}
	return nil
}

// alignVendorRow resolves which of the vendor's rows answers the given
// template row, in strict priority order: exact item id, fuzzy description,
// positional fallback. Returns nil when nothing lines up.
func (b *MatrixBuilder) alignVendorRow(templateRow models.FormRow, templateIndex int, vendorRows []models.FormRow) *models.FormRow {
	if row := findVendorRow(vendorRows, templateRow.ItemID); row != nil {
		return row
	}
	if row := b.findBestMatchRow(templateRow, vendorRows); row != nil {
		return row
	}
	if templateIndex < len(vendorRows) {
		return &vendorRows[templateIndex]
	}
	return nil
}

// Build assembles the comparison matrix from the structure (discovered or
// elected), the column classification, and every proposal's rows. The
// matrix always has exactly len(template rows)+1 rows, the last being the
// grand-total row.
func (b *MatrixBuilder) Build(rfpTitle string, structure models.FormStructure, classification models.ColumnClassification, proposals []ProposalRows) models.ComparisonMatrix {
	matrix := models.ComparisonMatrix{
		RfpTitle:      rfpTitle,
		FixedColumns:  classification.FixedColumns,
		VendorColumns: classification.VendorColumns,
		Proposals:     make([]models.ProposalSummary, 0, len(proposals)),
		Rows:          make([]models.MatrixRow, 0, len(structure.Rows)+1),
	}
	for _, p := range proposals {
		matrix.Proposals = append(matrix.Proposals, models.ProposalSummary{
			ID:         p.ID,
			VendorName: p.VendorName,
			Status:     p.Status,
		})
	}

	totalColumn := findTotalColumn(classification.VendorColumns)
	grandTotals := make(map[string]float64, len(proposals))
	for _, p := range proposals {
		grandTotals[p.ID] = 0
	}

	for i, templateRow := range structure.Rows {
		fixedValues := make(map[string]string, len(classification.FixedColumns))
		for _, col := range classification.FixedColumns {
			fixedValues[col] = templateRow.GetValue(col)
		}

		vendorValues := make(map[string]map[string]string, len(proposals))
		for _, p := range proposals {
			vendorRow := b.alignVendorRow(templateRow, i, p.Rows)
			values := make(map[string]string, len(classification.VendorColumns))

			for _, col := range classification.VendorColumns {
				if vendorRow == nil {
					values[col] = NotQuoted
					continue
				}
				val := vendorRow.GetValue(col)
				if val == "" {
					// RFP-supplied values (quantities the vendor leaves
					// untouched) fill the gap
					val = templateRow.GetValue(col)
				}
				if val == "" {
					val = "-"
				}
				values[col] = val
			}

			if totalColumn != "" && vendorRow != nil {
				if amount, ok := ParseCurrency(vendorRow.GetValue(totalColumn)); ok {
					grandTotals[p.ID] += amount
				}
			}

			vendorValues[p.ID] = values
		}

		matrix.Rows = append(matrix.Rows, models.MatrixRow{
			FixedValues:  fixedValues,
			VendorValues: vendorValues,
		})
	}

	matrix.Rows = append(matrix.Rows, b.grandTotalRow(classification, proposals, totalColumn, grandTotals))
	return matrix
}

// grandTotalRow renders the final matrix row. The GRAND TOTAL label lands in
// the description-like fixed column; every vendor gets its formatted sum in
// the total column, a formatted zero when nothing parsed.
func (b *MatrixBuilder) grandTotalRow(classification models.ColumnClassification, proposals []ProposalRows, totalColumn string, grandTotals map[string]float64) models.MatrixRow {
	fixedValues := make(map[string]string, len(classification.FixedColumns))
	labelCol := ""
	for _, col := range classification.FixedColumns {
		fixedValues[col] = ""
		key := strings.ToLower(col)
		if strings.Contains(key, "desc") || strings.Contains(key, "item") {
			labelCol = col
		}
	}
	if labelCol == "" && len(classification.FixedColumns) > 0 {
		labelCol = classification.FixedColumns[0]
	}
	if labelCol != "" {
		fixedValues[labelCol] = "GRAND TOTAL"
	}

	vendorValues := make(map[string]map[string]string, len(proposals))
	for _, p := range proposals {
		values := map[string]string{}
		if totalColumn != "" {
			values[totalColumn] = FormatCurrency(grandTotals[p.ID])
		}
		vendorValues[p.ID] = values
	}

	return models.MatrixRow{
		IsGrandTotal: true,
		FixedValues:  fixedValues,
		VendorValues: vendorValues,
	}
}

// findTotalColumn picks the first vendor column whose name contains "total".
func findTotalColumn(vendorColumns []string) string {
	for _, col := range vendorColumns {
		if strings.Contains(strings.ToLower(col), "total") {
			return col
		}
	}
	return ""
}

// ParseCurrency parses a money value tolerating currency symbols, thousands
// separators, and whitespace. Sentinel values (TBD, N/A, -, $-, Not Quoted)
// are not zero: they report ok=false and must be skipped, never summed.
func ParseCurrency(value string) (float64, bool) {
	if NormalizeValue(value) == "" {
		return 0, false
	}
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(value))
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, false
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// FormatCurrency renders an amount as a dollar string with thousands
// separators, e.g. 1734.56 -> "$1,734.56".
func FormatCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	out := fmt.Sprintf("$%s.%s", grouped.String(), parts[1])
	if negative {
		out = "-" + out
	}
	return out
}
