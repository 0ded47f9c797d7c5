package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"backend/models"
	"backend/services"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

type vendorBidSummary struct {
	VendorName string
	Status     string
	GrandTotal string
	Amount     float64
	Priced     bool
}

// bidSummaries pulls each vendor's grand total out of the matrix's final
// row and sorts priced bids ascending, unpriced bids last.
func bidSummaries(matrix models.ComparisonMatrix) []vendorBidSummary {
	totalColumn := ""
	for _, col := range matrix.VendorColumns {
		if strings.Contains(strings.ToLower(col), "total") {
			totalColumn = col
		}
	}

	var totalRow *models.MatrixRow
	for i := range matrix.Rows {
		if matrix.Rows[i].IsGrandTotal {
			totalRow = &matrix.Rows[i]
		}
	}

	summaries := make([]vendorBidSummary, 0, len(matrix.Proposals))
	for _, p := range matrix.Proposals {
		s := vendorBidSummary{VendorName: p.VendorName, Status: p.Status, GrandTotal: "-"}
		if totalRow != nil && totalColumn != "" {
			if val, ok := totalRow.VendorValues[p.ID][totalColumn]; ok && val != "" {
				s.GrandTotal = val
				if amount, parsed := services.ParseCurrency(val); parsed {
					s.Amount = amount
					s.Priced = true
				}
			}
		}
		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Priced != summaries[j].Priced {
			return summaries[i].Priced
		}
		return summaries[i].Amount < summaries[j].Amount
	})
	return summaries
}

// GenerateBidSummaryPDF godoc
// @Summary      Generate bid summary PDF
// @Description  Renders a one-page bid summary for the RFP: vendors ranked by grand total. Requires Authorization header.
// @Tags         export
// @Produce      application/pdf
// @Param        rfp_id        path   string  true   "RFP ID"
// @Param        proposal_ids  query  string  false  "Comma-separated proposal ids to compare (default: all)"
// @Success      200  "PDF file"
// @Failure      401  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/rfps/{rfp_id}/export/pdf [get]
func GenerateBidSummaryPDF(gdb *gorm.DB, db *sql.DB, engine *ComparisonEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfp, matrix, ok := matrixForExport(c, gdb, db, engine)
		if !ok {
			return
		}

		titleCaser := cases.Title(language.Und)
		summaries := bidSummaries(matrix)

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()
		pdf.SetMargins(10, 10, 10)
		pdf.SetFont("Arial", "", 10)

		// --- Header ---
		pdf.SetFont("Arial", "B", 18)
		pdf.Cell(190, 10, "BID SUMMARY")
		pdf.Ln(12)

		pdf.SetFont("Arial", "B", 12)
		pdf.MultiCell(190, 8, rfp.Title, "", "L", false)
		pdf.SetFont("Arial", "", 10)
		pdf.Ln(2)
		pdf.Cell(95, 6, fmt.Sprintf("Status: %s", titleCaser.String(rfp.Status)))
		if rfp.Deadline != nil {
			pdf.Cell(95, 6, fmt.Sprintf("Deadline: %s", rfp.Deadline.Format("02-Jan-2006")))
		}
		pdf.Ln(10)

		// --- Vendor Table ---
		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(10, 8, "#", "1", 0, "C", true, 0, "")
		pdf.CellFormat(85, 8, "Vendor", "1", 0, "L", true, 0, "")
		pdf.CellFormat(45, 8, "Status", "1", 0, "C", true, 0, "")
		pdf.CellFormat(50, 8, "Grand Total", "1", 1, "R", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for i, s := range summaries {
			pdf.CellFormat(10, 8, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
			pdf.CellFormat(85, 8, s.VendorName, "1", 0, "L", false, 0, "")
			pdf.CellFormat(45, 8, titleCaser.String(strings.ReplaceAll(s.Status, "_", " ")), "1", 0, "C", false, 0, "")
			pdf.CellFormat(50, 8, s.GrandTotal, "1", 1, "R", false, 0, "")
		}

		if len(summaries) > 0 && summaries[0].Priced {
			pdf.Ln(5)
			pdf.SetFont("Arial", "B", 11)
			pdf.Cell(190, 8, fmt.Sprintf("Lowest bid: %s (%s)", summaries[0].VendorName, summaries[0].GrandTotal))
			pdf.Ln(6)
			pdf.SetFont("Arial", "", 10)
			for _, s := range summaries[1:] {
				if !s.Priced {
					continue
				}
				delta := s.Amount - summaries[0].Amount
				pdf.Cell(190, 6, fmt.Sprintf("%s is %s above the lowest bid", s.VendorName, services.FormatCurrency(delta)))
				pdf.Ln(6)
			}
		}

		if matrix.Message != "" {
			pdf.Ln(5)
			pdf.SetFont("Arial", "I", 10)
			pdf.MultiCell(190, 6, matrix.Message, "", "L", false)
		}

		// --- Footer ---
		pdf.SetY(-20)
		pdf.SetFont("Arial", "I", 8)
		pdf.Cell(190, 6, "This is a computer-generated summary. Figures are extracted from vendor proposals.")
		pdf.Ln(5)
		pdf.Cell(190, 6, "Generated on: "+time.Now().Format("2006-01-02 15:04:05"))

		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", "attachment; filename="+exportFileName(rfp.Title, "pdf"))
		if err := pdf.Output(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF"})
			return
		}
	}
}
