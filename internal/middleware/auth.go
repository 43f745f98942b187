package middleware

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/Kevin-webdesign/smart-farm/internal/auth"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware creates a gin.HandlerFunc that acts as our "security guard".
// It validates the Bearer token, rejects blacklisted (logged out) tokens, and
// loads the caller's identity into the request context.
func AuthMiddleware(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			c.Abort()
			return
		}
		tokenString := parts[1]

		// 2. --- Check Blacklist ---
		// A token that was logged out is dead even if its signature is valid.
		var blacklisted int
		err := db.QueryRow("SELECT COUNT(*) FROM token_blacklist WHERE token = ?", tokenString).Scan(&blacklisted)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify token"})
			c.Abort()
			return
		}
		if blacklisted > 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has been revoked"})
			c.Abort()
			return
		}

		// 3. --- Validate Token ---
		userID, err := auth.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// 4. --- Load the User ---
		// Soft-deleted or non-active users cannot act, whatever their token says.
		var (
			username string
			role     string
			status   string
		)
		err = db.QueryRow(
			"SELECT username, role, status FROM users WHERE id = ? AND deleted_at IS NULL",
			userID,
		).Scan(&username, &role, &status)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			c.Abort()
			return
		}
		if status != "active" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is " + status})
			c.Abort()
			return
		}

		// 5. --- Success ---
		c.Set("userID", userID)
		c.Set("username", username)
		c.Set("userRole", role)
		c.Next()
	}
}
