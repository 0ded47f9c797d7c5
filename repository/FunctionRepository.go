package repository

import (
	"database/sql"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// AdminRecipient is a user who receives RFP lifecycle notifications.
type AdminRecipient struct {
	ID    int
	Name  string
	Email string
}

func GenerateRandomCode() string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	letters := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	prefix := string(letters[rng.Intn(len(letters))]) + string(letters[rng.Intn(len(letters))])
	number := rng.Intn(90000) + 10000

	return fmt.Sprintf("%s%d", prefix, number)
}

// GenerateRfpReference builds a human-friendly RFP reference like
// "RFP-AB12345".
func GenerateRfpReference() string {
	return "RFP-" + GenerateRandomCode()
}

// NextRevisionCode bumps a form structure revision code. Re-analyzing an
// RFP moves RV-01 to RV-02 and so on; the first analysis gets RV-01.
func NextRevisionCode(previousVersion string) string {
	if previousVersion == "" {
		return "RV-01"
	}

	versionNumberStr := strings.TrimPrefix(previousVersion, "RV-")
	versionNumber, err := strconv.Atoi(versionNumberStr)
	if err != nil {
		return "RV-01"
	}

	return "RV-" + fmt.Sprintf("%02d", versionNumber+1)
}

// FetchAdminRecipients returns the active admin users, the audience for
// deadline reminders and extraction notifications.
func FetchAdminRecipients(db *sql.DB) ([]AdminRecipient, error) {
	rows, err := db.Query(`
		SELECT id, CONCAT(first_name, ' ', last_name) AS name, email
		FROM users
		WHERE is_admin = true AND suspended = false
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch admin recipients: %w", err)
	}
	defer rows.Close()

	var recipients []AdminRecipient
	for rows.Next() {
		var r AdminRecipient
		if err := rows.Scan(&r.ID, &r.Name, &r.Email); err != nil {
			return nil, fmt.Errorf("failed to scan admin recipient: %w", err)
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

// CountProposals counts the proposals submitted against an RFP.
func CountProposals(db *sql.DB, rfpID string) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM proposals WHERE rfp_id = $1`, rfpID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count proposals for rfp %s: %w", rfpID, err)
	}
	return count, nil
}
