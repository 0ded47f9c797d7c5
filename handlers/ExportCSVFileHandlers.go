package handlers

import (
	"backend/models"
	"backend/storage"
	"backend/utils"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// matrixForExport loads the RFP and builds its comparison matrix for the
// export handlers. Writes its own error response and returns ok=false on
// failure.
func matrixForExport(c *gin.Context, gdb *gorm.DB, db *sql.DB, engine *ComparisonEngine) (*models.Rfp, models.ComparisonMatrix, bool) {
	if _, _, err := GetSessionDetails(db, sessionIDFromHeader(c)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
		return nil, models.ComparisonMatrix{}, false
	}

	rfp, err := storage.GetRfp(gdb, c.Param("rfp_id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "RFP not found", "details": err.Error()})
		return nil, models.ComparisonMatrix{}, false
	}

	proposals, err := storage.ListProposalsByRfp(gdb, rfp.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list proposals", "details": err.Error()})
		return nil, models.ComparisonMatrix{}, false
	}
	proposals = filterProposals(proposals, c.Query("proposal_ids"))

	ctx, cancel := utils.GetAnalysisContext(c.Request.Context())
	defer cancel()

	matrix := buildComparisonMatrix(ctx, gdb, engine, rfp, proposals)
	return rfp, matrix, true
}

// matrixFlatHeader builds the flattened header row: fixed columns first,
// then "<Vendor>: <Column>" per proposal and vendor column.
func matrixFlatHeader(matrix models.ComparisonMatrix) []string {
	titleCaser := cases.Title(language.Und)
	header := make([]string, 0, len(matrix.FixedColumns)+len(matrix.Proposals)*len(matrix.VendorColumns))
	for _, col := range matrix.FixedColumns {
		header = append(header, titleCaser.String(col))
	}
	for _, p := range matrix.Proposals {
		for _, col := range matrix.VendorColumns {
			header = append(header, fmt.Sprintf("%s: %s", p.VendorName, titleCaser.String(col)))
		}
	}
	return header
}

// matrixFlatRow flattens one matrix row into the header's column order.
func matrixFlatRow(matrix models.ComparisonMatrix, row models.MatrixRow) []string {
	out := make([]string, 0, len(matrix.FixedColumns)+len(matrix.Proposals)*len(matrix.VendorColumns))
	for _, col := range matrix.FixedColumns {
		out = append(out, row.FixedValues[col])
	}
	for _, p := range matrix.Proposals {
		values := row.VendorValues[p.ID]
		for _, col := range matrix.VendorColumns {
			out = append(out, values[col])
		}
	}
	return out
}

func exportFileName(title, ext string) string {
	name := strings.TrimSpace(strings.ReplaceAll(title, " ", "_"))
	if name == "" {
		name = "comparison"
	}
	return url.PathEscape(name + "_comparison." + ext)
}

// ExportComparisonCSV exports the comparison matrix as CSV.
// @Summary Export comparison as CSV
// @Description Streams the RFP's comparison matrix as a flattened CSV file. Requires Authorization header.
// @Tags Export
// @Produce text/csv
// @Param rfp_id path string true "RFP ID"
// @Param proposal_ids query string false "Comma-separated proposal ids to compare (default: all)"
// @Success 200 {file} file "CSV file"
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id}/export/csv [get]
func ExportComparisonCSV(gdb *gorm.DB, db *sql.DB, engine *ComparisonEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfp, matrix, ok := matrixForExport(c, gdb, db, engine)
		if !ok {
			return
		}

		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment;filename="+exportFileName(rfp.Title, "csv"))

		writer := csv.NewWriter(c.Writer)
		defer writer.Flush()

		if err := writer.Write(matrixFlatHeader(matrix)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV header"})
			return
		}
		for _, row := range matrix.Rows {
			if err := writer.Write(matrixFlatRow(matrix, row)); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV row"})
				return
			}
		}
	}
}

// ExportComparisonXLSX exports the comparison matrix as a styled workbook.
// @Summary Export comparison as XLSX
// @Description Streams the RFP's comparison matrix as an Excel workbook with a grouped vendor header. Requires Authorization header.
// @Tags Export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param rfp_id path string true "RFP ID"
// @Param proposal_ids query string false "Comma-separated proposal ids to compare (default: all)"
// @Success 200 {file} file "XLSX file"
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rfps/{rfp_id}/export/xlsx [get]
func ExportComparisonXLSX(gdb *gorm.DB, db *sql.DB, engine *ComparisonEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfp, matrix, ok := matrixForExport(c, gdb, db, engine)
		if !ok {
			return
		}

		titleCaser := cases.Title(language.Und)

		f := excelize.NewFile()
		defer func() {
			if err := f.Close(); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error closing Excel file"})
			}
		}()

		sheet := "Comparison"
		index, err := f.NewSheet(sheet)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating sheet"})
			return
		}
		f.SetActiveSheet(index)
		f.DeleteSheet("Sheet1")

		headerStyle, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{
				Bold:   true,
				Family: "Arial",
				Color:  "#FFFFFF",
			},
			Fill: excelize.Fill{
				Type:    "pattern",
				Color:   []string{"#0066B2"},
				Pattern: 1,
			},
			Alignment: &excelize.Alignment{
				Horizontal: "center",
				Vertical:   "center",
			},
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating header style"})
			return
		}
		totalStyle, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true, Family: "Arial"},
			Fill: excelize.Fill{
				Type:    "pattern",
				Color:   []string{"#D9E2F3"},
				Pattern: 1,
			},
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating total style"})
			return
		}

		// row 1: RFP title. row 2: vendor group header. row 3: columns.
		f.SetCellValue(sheet, "A1", matrix.RfpTitle)

		col := 1
		for _, fixed := range matrix.FixedColumns {
			cell, _ := excelize.CoordinatesToCellName(col, 3)
			f.SetCellValue(sheet, cell, titleCaser.String(fixed))
			col++
		}
		for _, p := range matrix.Proposals {
			startCol := col
			for _, vendorCol := range matrix.VendorColumns {
				cell, _ := excelize.CoordinatesToCellName(col, 3)
				f.SetCellValue(sheet, cell, titleCaser.String(vendorCol))
				col++
			}
			if col > startCol {
				startCell, _ := excelize.CoordinatesToCellName(startCol, 2)
				endCell, _ := excelize.CoordinatesToCellName(col-1, 2)
				f.MergeCell(sheet, startCell, endCell)
				f.SetCellValue(sheet, startCell, p.VendorName)
			}
		}
		lastCol := col - 1

		if lastCol > 0 {
			startCell, _ := excelize.CoordinatesToCellName(1, 2)
			endCell, _ := excelize.CoordinatesToCellName(lastCol, 3)
			f.SetCellStyle(sheet, startCell, endCell, headerStyle)
		}

		rowNum := 4
		for _, row := range matrix.Rows {
			values := matrixFlatRow(matrix, row)
			for i, value := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, rowNum)
				f.SetCellValue(sheet, cell, value)
			}
			if row.IsGrandTotal && lastCol > 0 {
				startCell, _ := excelize.CoordinatesToCellName(1, rowNum)
				endCell, _ := excelize.CoordinatesToCellName(lastCol, rowNum)
				f.SetCellStyle(sheet, startCell, endCell, totalStyle)
			}
			rowNum++
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment;filename="+exportFileName(rfp.Title, "xlsx"))

		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing Excel file"})
			return
		}
	}
}
