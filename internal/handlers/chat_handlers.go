package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Kevin-webdesign/smart-farm/internal/models"
	"github.com/gin-gonic/gin"
)

// --- Assistant Chat ---

type ChatInput struct {
	Message string `json:"message" binding:"required"`
}

// SendChatMessage forwards one message to the assistant and persists both
// sides of the exchange. The user's message is saved before the model is
// called so a model failure never loses what the user typed.
func (h *Handlers) SendChatMessage(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input ChatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("userID")
	userRole := c.GetString("userRole")

	// 2. --- Persist the User's Message ---
	_, err := h.DB.Exec(
		"INSERT INTO messages (user_id, sender, content, type, created_at) VALUES (?, ?, ?, 'text', ?)",
		userID, models.SenderUser, input.Message, time.Now(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save message"})
		return
	}

	// 3. --- Ask the Model ---
	modelName := os.Getenv("GEMINI_MODEL")
	reply, tokens, err := h.AIService.GenerateResponse(c.Request.Context(), input.Message, userRole, modelName)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Assistant is unavailable right now"})
		return
	}

	// 4. --- Persist the Reply ---
	_, err = h.DB.Exec(
		"INSERT INTO messages (user_id, sender, content, type, created_at) VALUES (?, ?, ?, 'text', ?)",
		userID, models.SenderBot, reply, time.Now(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save reply"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reply":      reply,
		"tokensUsed": tokens,
	})
}

// GetChatHistory pages backwards through the caller's messages using a
// 'before' message ID cursor, and groups them into per-day sessions for the
// history sidebar.
func (h *Handlers) GetChatHistory(c *gin.Context) {
	userID := c.GetInt64("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, user_id, sender, content, type, created_at
		FROM messages WHERE user_id = ?`
	args := []interface{}{userID}
	if before := c.Query("before"); before != "" {
		beforeID, err := strconv.ParseInt(before, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
			return
		}
		query += " AND id < ?"
		args = append(args, beforeID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load chat history"})
		return
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Sender, &m.Content, &m.Type, &m.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan message"})
			return
		}
		messages = append(messages, &m)
	}

	// Oldest first for display.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	var nextCursor int64
	if len(messages) == limit {
		nextCursor = messages[0].ID
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions":   groupMessagesByDate(messages),
		"nextCursor": nextCursor,
	})
}

// groupMessagesByDate buckets messages into one session per calendar day,
// titled by the first user message of the day.
func groupMessagesByDate(messages []*models.Message) []*models.ChatSession {
	sessions := []*models.ChatSession{}
	byDay := map[string]*models.ChatSession{}

	for _, m := range messages {
		day := m.CreatedAt.Format("2006-01-02")
		session, ok := byDay[day]
		if !ok {
			session = &models.ChatSession{
				ID:        day,
				Title:     fmt.Sprintf("Chat on %s", day),
				CreatedAt: m.CreatedAt,
				Messages:  []*models.Message{},
			}
			byDay[day] = session
			sessions = append(sessions, session)
		}
		if session.Title == fmt.Sprintf("Chat on %s", day) && m.Sender == models.SenderUser {
			title := m.Content
			if len(title) > 60 {
				title = title[:60] + "..."
			}
			session.Title = title
		}
		session.Messages = append(session.Messages, m)
		session.MessageCount++
		session.UpdatedAt = m.CreatedAt
	}
	return sessions
}
