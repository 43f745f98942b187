package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Kevin-webdesign/smart-farm/internal/models"
	"github.com/gin-gonic/gin"
)

// --- Admin User Management ---

var validRoles = map[string]bool{
	models.RoleAdmin:   true,
	models.RoleManager: true,
	models.RoleStaff:   true,
	models.RoleClient:  true,
}

var validStatuses = map[string]bool{
	models.UserStatusActive:    true,
	models.UserStatusInactive:  true,
	models.UserStatusSuspended: true,
}

// CreateUserInput is the admin-side creation payload; unlike self
// registration it may set role and status.
type CreateUserInput struct {
	Username string  `json:"userName" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8"`
	Role     string  `json:"role" binding:"required"`
	Status   string  `json:"status"`
	Phone    *string `json:"phone"`
}

// CreateUser lets an admin create an account with any role.
func (h *Handlers) CreateUser(c *gin.Context) {
	var input CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !validRoles[input.Role] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}
	if input.Status == "" {
		input.Status = models.UserStatusActive
	}
	if !validStatuses[input.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	var exists int
	err := h.DB.QueryRow(
		"SELECT COUNT(*) FROM users WHERE (email = ? OR username = ?) AND deleted_at IS NULL",
		input.Email, input.Username,
	).Scan(&exists)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing users"})
		return
	}
	if exists > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "A user with that email or username already exists"})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	result, err := h.DB.Exec(`
		INSERT INTO users (username, email, password, role, status, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Username, input.Email, password.Hash, input.Role, input.Status, input.Phone,
		time.Now(), time.Now(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	userID, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "userId": userID})
}

// GetAllUsers lists users with pagination and optional role/status/search
// filters.
func (h *Handlers) GetAllUsers(c *gin.Context) {
	// 1. --- Pagination & Filters ---
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := []string{"deleted_at IS NULL"}
	args := []interface{}{}
	if role := c.Query("role"); role != "" {
		where = append(where, "role = ?")
		args = append(args, role)
	}
	if status := c.Query("status"); status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}
	if search := c.Query("search"); search != "" {
		where = append(where, "(username LIKE ? OR email LIKE ?)")
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	whereClause := strings.Join(where, " AND ")

	// 2. --- Count Total ---
	var total int64
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM users WHERE "+whereClause, args...).Scan(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
		return
	}

	// 3. --- Fetch the Page ---
	query := `
		SELECT id, username, email, role, status, phone, created_at, updated_at
		FROM users WHERE ` + whereClause + `
		ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := h.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.Status,
			&user.Phone, &user.CreatedAt, &user.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan user"})
			return
		}
		users = append(users, user)
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetUser returns a single user by ID.
func (h *Handlers) GetUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	err = h.DB.QueryRow(`
		SELECT id, username, email, role, status, phone,
		       address_district, address_sector, address_cell, address_village,
		       created_at, updated_at
		FROM users WHERE id = ? AND deleted_at IS NULL`, userID,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.Status, &user.Phone,
		&user.AddressDistrict, &user.AddressSector, &user.AddressCell, &user.AddressVillage,
		&user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// AdminUpdateUserInput holds the admin-editable account fields.
type AdminUpdateUserInput struct {
	Username *string `json:"userName"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Status   *string `json:"status"`
	Phone    *string `json:"phone"`
}

// UpdateUser lets an admin change a user's account fields, role and status
// included.
func (h *Handlers) UpdateUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var input AdminUpdateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	setParts := []string{}
	args := []interface{}{}
	if input.Username != nil {
		setParts = append(setParts, "username = ?")
		args = append(args, *input.Username)
	}
	if input.Email != nil {
		setParts = append(setParts, "email = ?")
		args = append(args, *input.Email)
	}
	if input.Role != nil {
		if !validRoles[*input.Role] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}
		setParts = append(setParts, "role = ?")
		args = append(args, *input.Role)
	}
	if input.Status != nil {
		if !validStatuses[*input.Status] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		setParts = append(setParts, "status = ?")
		args = append(args, *input.Status)
	}
	if input.Phone != nil {
		setParts = append(setParts, "phone = ?")
		args = append(args, *input.Phone)
	}

	if len(setParts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	setParts = append(setParts, "updated_at = ?")
	args = append(args, time.Now(), userID)

	result, err := h.DB.Exec(
		"UPDATE users SET "+strings.Join(setParts, ", ")+" WHERE id = ? AND deleted_at IS NULL",
		args...,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully"})
}

// DeleteUser soft-deletes an account. The rows stay for audit; the user just
// stops existing as far as login and listings are concerned.
func (h *Handlers) DeleteUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	// An admin cannot delete themselves.
	if userID == c.GetInt64("userID") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot delete your own account"})
		return
	}

	result, err := h.DB.Exec(
		"UPDATE users SET deleted_at = ?, status = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now(), models.UserStatusInactive, userID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// GetRoles returns the fixed role list the frontend builds its pickers from.
func (h *Handlers) GetRoles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"roles": []string{models.RoleAdmin, models.RoleManager, models.RoleStaff, models.RoleClient},
	})
}
