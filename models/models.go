package models

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
)

type User struct {
	ID          int       `json:"id" example:"1"`
	Email       string    `json:"email" example:"buyer@example.com"`
	Password    string    `json:"password" example:""`
	FirstName   string    `json:"first_name" example:"John"`
	LastName    string    `json:"last_name" example:"Doe"`
	CreatedAt   time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt   time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	LastAccess  time.Time `json:"last_access,omitempty" example:"2024-01-15T10:30:00Z"`
	IsAdmin     bool      `json:"is_admin" example:"false"`
	PhoneNo     string    `json:"phone_no" example:"9876543210"`
	CompanyName string    `json:"company_name" example:"Acme Property Management"`
	Suspended   bool      `json:"suspended" example:"false"`
}

type Session struct {
	UserID    int       `json:"user_id"`
	SessionID string    `json:"session_id"`
	HostName  string    `json:"host_name"`
	IPAddress string    `json:"ip_address"`
	Timestamp time.Time `json:"timestp"`
	ExpiresAt time.Time `json:"expires_at"`
}

func GetSessionBySessionID(db *sql.DB, sessionID string) (*Session, error) {
	query := `SELECT session_id, user_id, host_name, timestp FROM session WHERE session_id = $1`

	var session Session

	err := db.QueryRow(query, sessionID).Scan(&session.SessionID, &session.UserID, &session.HostName, &session.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("session not found")
		}
		return nil, err
	}

	return &session, nil
}

// Notification represents the notifications table written by the push
// service and read by the in-app notification feed.
type Notification struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Action    string    `json:"action,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"buyer@example.com"`
	Password string `json:"password" binding:"required" example:"secret"`
	IP       string `json:"ip" example:"10.0.0.1"`
}

type LoginResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	SessionID   string `json:"session_id"`
}

type ValidateSessionResponse struct {
	Valid  bool   `json:"valid"`
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"Invalid input"`
	Details string `json:"details,omitempty"`
}
