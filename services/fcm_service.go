package services

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"backend/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

// FCMService sends push notifications through the Firebase Cloud Messaging
// HTTP v1 API and records them in the notifications table.
type FCMService struct {
	projectID   string
	credentials *jwt.Config
	db          *sql.DB
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

// ServiceAccountCredentials represents the structure of Firebase service account JSON
type ServiceAccountCredentials struct {
	Type                string `json:"type"`
	ProjectID           string `json:"project_id"`
	PrivateKeyID        string `json:"private_key_id"`
	PrivateKey          string `json:"private_key"`
	ClientEmail         string `json:"client_email"`
	ClientID            string `json:"client_id"`
	AuthURI             string `json:"auth_uri"`
	TokenURI            string `json:"token_uri"`
	AuthProviderCertURL string `json:"auth_provider_x509_cert_url"`
	ClientCertURL       string `json:"client_x509_cert_url"`
}

// NewFCMService initializes the FCM service from a Firebase service account
// JSON file.
func NewFCMService(credentialsPath string, db *sql.DB) (*FCMService, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("credentials path is required")
	}

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("error reading credentials file: %v", err)
	}

	var creds ServiceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("error parsing credentials: %v", err)
	}

	if _, err := parsePrivateKey(creds.PrivateKey); err != nil {
		return nil, fmt.Errorf("error parsing private key: %v", err)
	}

	// jwt.Config expects the private key as PEM bytes with real newlines
	privateKeyStr := strings.ReplaceAll(creds.PrivateKey, "\\n", "\n")

	config := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(privateKeyStr),
		Scopes:     []string{"https://www.googleapis.com/auth/firebase.messaging"},
		TokenURL:   creds.TokenURI,
	}

	return &FCMService{
		projectID:   creds.ProjectID,
		credentials: config,
		db:          db,
		httpClient:  &http.Client{},
		tokenSource: config.TokenSource(context.Background()),
	}, nil
}

// parsePrivateKey parses a PEM-encoded private key
func parsePrivateKey(keyData string) (*rsa.PrivateKey, error) {
	keyData = strings.ReplaceAll(keyData, "\\n", "\n")
	keyData = strings.TrimSpace(keyData)

	block, _ := pem.Decode([]byte(keyData))
	if block == nil {
		return nil, fmt.Errorf("failed to parse PEM block")
	}

	privateKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %v", err)
		}
		return rsaKey, nil
	}

	rsaKey, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}
	return rsaKey, nil
}

// SendNotification sends a push notification to a single FCM token.
func (f *FCMService) SendNotification(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return fmt.Errorf("FCM token cannot be empty")
	}

	oauthToken, err := f.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("error getting OAuth token: %v", err)
	}

	if data == nil {
		data = map[string]string{}
	}

	message := map[string]interface{}{
		"message": map[string]interface{}{
			"token": token,
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": data,
			"webpush": map[string]interface{}{
				"notification": map[string]interface{}{
					"title": title,
					"body":  body,
				},
				"fcm_options": map[string]interface{}{
					"link": data["action"],
				},
			},
		},
	}

	endpoint := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", f.projectID)
	return f.sendHTTPv1Request(ctx, endpoint, oauthToken.AccessToken, message)
}

// SendNotificationToUser looks up the user's FCM token and sends to it. A
// user without a token is not an error.
func (f *FCMService) SendNotificationToUser(ctx context.Context, userID int, title, body string, data map[string]string) error {
	var fcmToken string
	err := f.db.QueryRow(`SELECT fcm_token FROM users WHERE id = $1 AND fcm_token IS NOT NULL AND fcm_token != ''`, userID).Scan(&fcmToken)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("error fetching FCM token for user %d: %v", userID, err)
	}
	return f.SendNotification(ctx, fcmToken, title, body, data)
}

// SaveFCMToken saves or updates the FCM token for a user
func (f *FCMService) SaveFCMToken(userID int, token string) error {
	_, err := f.db.Exec(`UPDATE users SET fcm_token = $1 WHERE id = $2`, token, userID)
	if err != nil {
		return fmt.Errorf("error saving FCM token: %v", err)
	}
	return nil
}

// RemoveFCMToken removes the FCM token for a user
func (f *FCMService) RemoveFCMToken(userID int) error {
	_, err := f.db.Exec(`UPDATE users SET fcm_token = NULL WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("error removing FCM token: %v", err)
	}
	return nil
}

// NotifyProposalExtracted pushes a notification to the RFP owner when a
// vendor's proposal finishes extraction, and records it.
func (f *FCMService) NotifyProposalExtracted(ctx context.Context, userID int, rfp models.Rfp, vendorName string) error {
	title := "Proposal processed"
	body := fmt.Sprintf("%s's proposal for %q is ready to compare", vendorName, rfp.Title)
	action := fmt.Sprintf("/rfps/%s/comparison", rfp.ID)
	return f.sendAndRecord(ctx, userID, title, body, action)
}

// NotifyDeadlineApproaching pushes a reminder of an approaching RFP
// submission deadline, and records it.
func (f *FCMService) NotifyDeadlineApproaching(ctx context.Context, userID int, rfp models.Rfp, proposalCount int) error {
	title := "RFP deadline approaching"
	body := fmt.Sprintf("%q closes soon. %d proposal(s) received.", rfp.Title, proposalCount)
	action := fmt.Sprintf("/rfps/%s", rfp.ID)
	return f.sendAndRecord(ctx, userID, title, body, action)
}

// sendAndRecord sends the push and saves the notification. A failed push is
// logged but the notification is still recorded.
func (f *FCMService) sendAndRecord(ctx context.Context, userID int, title, body, action string) error {
	data := map[string]string{"action": action}
	if err := f.SendNotificationToUser(ctx, userID, title, body, data); err != nil {
		log.Printf("Error sending push notification to user %d: %v", userID, err)
	}

	_, err := f.db.Exec(`
		INSERT INTO notifications (user_id, message, status, action, created_at, updated_at)
		VALUES ($1, $2, 'unread', $3, NOW(), NOW())
	`, userID, body, action)
	if err != nil {
		return fmt.Errorf("error saving notification to database: %v", err)
	}
	return nil
}

// sendHTTPv1Request sends an HTTP POST request to FCM HTTP v1 API
func (f *FCMService) sendHTTPv1Request(ctx context.Context, endpoint, accessToken string, payload map[string]interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errorResp map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&errorResp); err == nil {
			return fmt.Errorf("FCM API error (status %d): %v", resp.StatusCode, errorResp)
		}
		return fmt.Errorf("FCM API error: status code %d", resp.StatusCode)
	}

	var fcmResponse struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fcmResponse); err == nil && fcmResponse.Name != "" {
		log.Printf("FCM notification sent: %s", fcmResponse.Name)
	}

	return nil
}
