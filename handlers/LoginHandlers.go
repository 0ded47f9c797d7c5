package handlers

import (
	"backend/models"
	"backend/storage"
	"backend/utils"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// LoginHandler handles user authentication
// @Summary Login user
// @Description Authenticate user and return session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/login [post]
func LoginHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var loginData models.LoginRequest
		if err := c.ShouldBindJSON(&loginData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		user, err := storage.GetUserByEmail(db, loginData.Email)
		if err != nil || !utils.ValidatePassword(user.Password, loginData.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		token, err := utils.GenerateJWT(user.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token", "details": err.Error()})
			return
		}

		session := &models.Session{
			UserID:    user.ID,
			SessionID: token,
			HostName:  user.Email,
			IPAddress: loginData.IP,
			Timestamp: time.Now(),
			ExpiresAt: time.Now().Add(24 * time.Hour),
		}
		if err := storage.SaveSession(db, session, true); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.LoginResponse{
			Message:     "User successfully logged in",
			AccessToken: token,
			SessionID:   token,
		})
	}
}

// LogoutHandler deletes the caller's session
// @Summary Logout user
// @Description Deletes the session identified by the Authorization header
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Session token"
// @Success 200 {object} utils.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/logout [post]
func LogoutHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := sessionIDFromHeader(c)
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Authorization header"})
			return
		}

		session, err := models.GetSessionBySessionID(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		if err := storage.DeleteSessionByID(db, sessionID, session.UserID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session", "details": err.Error()})
			return
		}

		utils.SuccessResponse(c, "Logged out", http.StatusOK)
	}
}

// GetActiveSessions lists the caller's active sessions
// @Summary List active sessions
// @Description Lists all active sessions for the authenticated user
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Session token"
// @Success 200 {array} models.Session
// @Failure 401 {object} models.ErrorResponse
// @Router /api/sessions [get]
func GetActiveSessions(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _, err := GetSessionDetails(db, sessionIDFromHeader(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		sessions, err := storage.GetUserSessions(db, session.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sessions)
	}
}

// sessionIDFromHeader extracts the session token from the Authorization
// header, tolerating an optional Bearer prefix.
func sessionIDFromHeader(c *gin.Context) string {
	token := strings.TrimSpace(c.GetHeader("Authorization"))
	token = strings.TrimPrefix(token, "Bearer ")
	return strings.TrimSpace(token)
}
