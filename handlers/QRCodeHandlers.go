package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"net/http"
	"os"
	"strings"

	"backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
	"gorm.io/gorm"
)

// addLabel adds text to an image at the specified position
func addLabel(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{0, 0, 0, 255}
	face := inconsolata.Regular8x16

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

// addLabelBold adds bold text for field labels
func addLabelBold(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{30, 30, 30, 255}
	face := inconsolata.Bold8x16

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

func truncateLabel(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

// GenerateComparisonQR godoc
// @Summary      Generate comparison share QR as JPEG
// @Description  Encodes a share link to the RFP's comparison matrix, labeled with the RFP details. Requires Authorization header.
// @Tags         export
// @Produce      image/jpeg
// @Param        rfp_id  path  string  true  "RFP ID"
// @Success      200  {file}  file  "JPEG image"
// @Failure      401  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/rfps/{rfp_id}/share-qr [get]
func GenerateComparisonQR(gdb *gorm.DB, db *sql.DB) gin.HandlerFunc {
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

		baseURL := strings.TrimRight(os.Getenv("APP_BASE_URL"), "/")
		if baseURL == "" {
			baseURL = "http://localhost:3000"
		}

		qrData := struct {
			RfpID string `json:"rfp_id"`
			Title string `json:"title"`
			URL   string `json:"url"`
		}{
			RfpID: rfp.ID,
			Title: rfp.Title,
			URL:   fmt.Sprintf("%s/rfps/%s/comparison", baseURL, rfp.ID),
		}

		jsonData, err := json.Marshal(qrData)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to marshal share data"})
			return
		}

		qr, err := qrcode.New(string(jsonData), qrcode.Medium)
		if err != nil {
			c.String(http.StatusInternalServerError, "QR code generation failed")
			return
		}

		qrImg := qr.Image(512)

		qrSize := qrImg.Bounds().Dy()
		padding := 30
		lineHeight := 28
		textAreaHeight := 4*lineHeight + padding
		totalHeight := qrSize + padding + textAreaHeight

		combinedImg := image.NewRGBA(image.Rect(0, 0, qrSize, totalHeight))
		draw.Draw(combinedImg, combinedImg.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

		qrRect := image.Rect(0, 0, qrSize, qrSize)
		draw.Draw(combinedImg, qrRect, qrImg, image.Point{}, draw.Src)

		separatorY := qrSize + padding/2
		for x := 0; x < qrSize; x++ {
			combinedImg.Set(x, separatorY, color.RGBA{200, 200, 200, 255})
		}

		startY := qrSize + padding + lineHeight
		xPos := 20

		deadlineStr := "N/A"
		if rfp.Deadline != nil {
			deadlineStr = rfp.Deadline.Format("2006-01-02")
		}

		addLabelBold(combinedImg, xPos, startY, "RFP:")
		addLabel(combinedImg, xPos+120, startY, truncateLabel(rfp.Title, 30))

		addLabelBold(combinedImg, xPos, startY+lineHeight, "Status:")
		addLabel(combinedImg, xPos+120, startY+lineHeight, rfp.Status)

		addLabelBold(combinedImg, xPos, startY+2*lineHeight, "Vendors:")
		addLabel(combinedImg, xPos+120, startY+2*lineHeight, fmt.Sprintf("%d", len(proposals)))

		addLabelBold(combinedImg, xPos, startY+3*lineHeight, "Deadline:")
		addLabel(combinedImg, xPos+120, startY+3*lineHeight, deadlineStr)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, combinedImg, nil); err != nil {
			c.String(http.StatusInternalServerError, "JPEG encoding failed")
			return
		}

		c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
	}
}
