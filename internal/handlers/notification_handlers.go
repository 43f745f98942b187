package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Kevin-webdesign/smart-farm/internal/models"
	"github.com/Kevin-webdesign/smart-farm/internal/notify"
	"github.com/gin-gonic/gin"
)

// --- Notifications (read API) ---

// GetMyNotifications returns the caller's notifications, newest first, with
// pagination and optional type/priority/unreadOnly filters. The unread count
// always covers the whole mailbox, not just the returned page.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	userID := c.GetInt64("userID")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := []string{"nr.user_id = ?", "n.status = 'active'"}
	args := []interface{}{userID}
	if nType := c.Query("type"); nType != "" {
		where = append(where, "n.type = ?")
		args = append(args, nType)
	}
	if priority := c.Query("priority"); priority != "" {
		where = append(where, "n.priority = ?")
		args = append(args, priority)
	}
	if category := c.Query("category"); category != "" {
		where = append(where, "n.category = ?")
		args = append(args, category)
	}
	if c.Query("unreadOnly") == "true" {
		where = append(where, "nr.read_at IS NULL")
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	err := h.DB.QueryRow(`
		SELECT COUNT(*) FROM notification_recipients nr
		JOIN notifications n ON n.id = nr.notification_id
		WHERE `+whereClause, args...).Scan(&total)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT n.id, n.trigger_id, n.title, n.message, n.type, n.priority, n.category,
		       n.data, n.action_url, n.expires_at, n.status, n.created_by, n.created_at, nr.read_at
		FROM notification_recipients nr
		JOIN notifications n ON n.id = nr.notification_id
		WHERE `+whereClause+`
		ORDER BY n.created_at DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notifications"})
		return
	}
	defer rows.Close()

	notifications := []models.UserNotification{}
	for rows.Next() {
		var n models.UserNotification
		if err := rows.Scan(&n.ID, &n.TriggerID, &n.Title, &n.Message, &n.Type, &n.Priority,
			&n.Category, &n.Data, &n.ActionURL, &n.ExpiresAt, &n.Status, &n.CreatedBy,
			&n.CreatedAt, &n.ReadAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan notification"})
			return
		}
		notifications = append(notifications, n)
	}

	// Whole-mailbox unread count, independent of the filters above.
	var unreadCount int64
	err = h.DB.QueryRow(`
		SELECT COUNT(*) FROM notification_recipients nr
		JOIN notifications n ON n.id = nr.notification_id
		WHERE nr.user_id = ? AND nr.read_at IS NULL AND n.status = 'active'`,
		userID).Scan(&unreadCount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count unread notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unreadCount":   unreadCount,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// MarkNotificationRead marks one of the caller's notifications as read.
// Re-reading an already-read notification does not move its read timestamp.
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	notificationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	result, err := h.DB.Exec(`
		UPDATE notification_recipients SET read_at = ?
		WHERE notification_id = ? AND user_id = ? AND read_at IS NULL`,
		time.Now(), notificationID, c.GetInt64("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification read"})
		return
	}

	affected, _ := result.RowsAffected()
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read", "updated": affected})
}

// MarkAllNotificationsRead clears the caller's unread badge.
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	result, err := h.DB.Exec(`
		UPDATE notification_recipients SET read_at = ?
		WHERE user_id = ? AND read_at IS NULL`,
		time.Now(), c.GetInt64("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications read"})
		return
	}

	affected, _ := result.RowsAffected()
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": affected})
}

// --- Notifications (management, manager/admin) ---

type CreateNotificationInput struct {
	Title      string                 `json:"title" binding:"required"`
	Message    string                 `json:"message" binding:"required"`
	Type       string                 `json:"type"`
	Priority   string                 `json:"priority"`
	Category   string                 `json:"category"`
	Data       map[string]interface{} `json:"data"`
	Recipients []int64                `json:"recipients" binding:"required,min=1"`
}

// CreateNotification sends a manual notification to an explicit recipient
// list.
func (h *Handlers) CreateNotification(c *gin.Context) {
	var input CreateNotificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	applyNotificationDefaults(&input)

	notificationID, err := h.Notify.CreateNotification(c.Request.Context(), notify.NotificationInput{
		Title:      input.Title,
		Message:    input.Message,
		Type:       input.Type,
		Priority:   input.Priority,
		Category:   input.Category,
		Data:       input.Data,
		CreatedBy:  c.GetString("username"),
		Recipients: input.Recipients,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create notification"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Notification sent", "notificationId": notificationID})
}

type BroadcastInput struct {
	Title    string                 `json:"title" binding:"required"`
	Message  string                 `json:"message" binding:"required"`
	Type     string                 `json:"type"`
	Priority string                 `json:"priority"`
	Category string                 `json:"category"`
	Data     map[string]interface{} `json:"data"`
	Roles    []string               `json:"roles"`
}

// CreateBroadcast sends a notification to every active user, or to every
// active user in the given roles.
func (h *Handlers) CreateBroadcast(c *gin.Context) {
	var input BroadcastInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipients, err := h.Notify.UsersByRoles(c.Request.Context(), input.Roles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve recipients"})
		return
	}
	if len(recipients) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No matching recipients", "notificationId": 0})
		return
	}

	create := CreateNotificationInput{Type: input.Type, Priority: input.Priority, Category: input.Category}
	applyNotificationDefaults(&create)

	notificationID, err := h.Notify.CreateNotification(c.Request.Context(), notify.NotificationInput{
		Title:      input.Title,
		Message:    input.Message,
		Type:       create.Type,
		Priority:   create.Priority,
		Category:   create.Category,
		Data:       input.Data,
		CreatedBy:  c.GetString("username"),
		Recipients: recipients,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create broadcast"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":        "Broadcast sent",
		"notificationId": notificationID,
		"recipientCount": len(recipients),
	})
}

func applyNotificationDefaults(input *CreateNotificationInput) {
	if input.Type == "" {
		input.Type = models.NotificationInfo
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if input.Category == "" {
		input.Category = models.CategoryGeneral
	}
}

// DeleteNotification cancels a notification for every recipient (admin only).
func (h *Handlers) DeleteNotification(c *gin.Context) {
	notificationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	result, err := h.DB.Exec(
		"UPDATE notifications SET status = ? WHERE id = ?",
		models.NotificationCancelled, notificationID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification cancelled"})
}

// GetNotificationStats reports notification volume and trigger queue health.
func (h *Handlers) GetNotificationStats(c *gin.Context) {
	var totalNotifications, unreadRecipients int64
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM notifications WHERE status = 'active'").Scan(&totalNotifications); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notification stats"})
		return
	}
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM notification_recipients WHERE read_at IS NULL").Scan(&unreadRecipients); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notification stats"})
		return
	}

	triggerStats, err := h.Notify.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load trigger stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activeNotifications": totalNotifications,
		"unreadRecipients":    unreadRecipients,
		"triggers":            triggerStats,
	})
}
