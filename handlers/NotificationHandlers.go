package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"backend/models"

	"github.com/gin-gonic/gin"
)

// ListNotificationsHandler lists the current user's notifications, newest
// first. Pass ?status=unread to filter.
// @Summary List notifications
// @Description Lists notifications for the current user, newest first. Requires Authorization header.
// @Tags Notifications
// @Produce json
// @Param status query string false "Filter by status (unread/read)"
// @Success 200 {array} models.Notification
// @Failure 401 {object} models.ErrorResponse
// @Router /api/notifications [get]
func ListNotificationsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _, err := GetSessionDetails(db, sessionIDFromHeader(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		query := `
			SELECT id, user_id, message, status, COALESCE(action, ''), created_at, updated_at
			FROM notifications
			WHERE user_id = $1`
		args := []interface{}{session.UserID}
		if status := c.Query("status"); status != "" {
			query += ` AND status = $2`
			args = append(args, status)
		}
		query += ` ORDER BY created_at DESC LIMIT 200`

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications", "details": err.Error()})
			return
		}
		defer rows.Close()

		notifications := []models.Notification{}
		for rows.Next() {
			var n models.Notification
			if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Status, &n.Action, &n.CreatedAt, &n.UpdatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan notification", "details": err.Error()})
				return
			}
			notifications = append(notifications, n)
		}

		c.JSON(http.StatusOK, notifications)
	}
}

// MarkNotificationAsReadHandler marks a notification as read.
// @Summary Mark notification as read
// @Description Marks notification by id as read. Requires Authorization header.
// @Tags Notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} utils.Response
// @Failure 401 {object} models.ErrorResponse
// @Router /api/notifications/{id}/read [put]
func MarkNotificationAsReadHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _, err := GetSessionDetails(db, sessionIDFromHeader(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		_, err = db.Exec(`
			UPDATE notifications SET status = 'read', updated_at = $1 WHERE id = $2 AND user_id = $3
		`, time.Now(), c.Param("id"), session.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
	}
}

// MarkAllNotificationsAsReadHandler marks every unread notification of the
// current user as read.
// @Summary Mark all notifications as read
// @Description Marks all unread notifications for the current user as read. Requires Authorization header.
// @Tags Notifications
// @Produce json
// @Success 200 {object} utils.Response
// @Failure 401 {object} models.ErrorResponse
// @Router /api/notifications/read-all [put]
func MarkAllNotificationsAsReadHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _, err := GetSessionDetails(db, sessionIDFromHeader(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		result, err := db.Exec(`
			UPDATE notifications
			SET status = 'read', updated_at = $1
			WHERE user_id = $2 AND status = 'unread'
		`, time.Now(), session.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
			return
		}

		rowsAffected, _ := result.RowsAffected()
		c.JSON(http.StatusOK, gin.H{
			"message":       "All notifications marked as read",
			"rows_affected": rowsAffected,
		})
	}
}

// SaveFCMTokenHandler registers the caller's device token for push
// notifications.
// @Summary Save FCM token
// @Description Stores the caller's FCM device token. Requires Authorization header.
// @Tags Notifications
// @Accept json
// @Produce json
// @Success 200 {object} utils.Response
// @Failure 401 {object} models.ErrorResponse
// @Router /api/fcm-token [post]
func SaveFCMTokenHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _, err := GetSessionDetails(db, sessionIDFromHeader(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		var input struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}

		if GlobalFCMService == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push notifications are not configured"})
			return
		}
		if err := GlobalFCMService.SaveFCMToken(session.UserID, input.Token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save token", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "FCM token saved"})
	}
}

// RemoveFCMTokenHandler unregisters the caller's device token.
// @Summary Remove FCM token
// @Description Removes the caller's FCM device token. Requires Authorization header.
// @Tags Notifications
// @Produce json
// @Success 200 {object} utils.Response
// @Failure 401 {object} models.ErrorResponse
// @Router /api/fcm-token [delete]
func RemoveFCMTokenHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _, err := GetSessionDetails(db, sessionIDFromHeader(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		if GlobalFCMService == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push notifications are not configured"})
			return
		}
		if err := GlobalFCMService.RemoveFCMToken(session.UserID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove token", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "FCM token removed"})
	}
}
