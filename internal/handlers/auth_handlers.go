package handlers

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/Kevin-webdesign/smart-farm/internal/auth"
	"github.com/Kevin-webdesign/smart-farm/internal/email"
	"github.com/Kevin-webdesign/smart-farm/internal/models"
	"github.com/gin-gonic/gin"
)

// --- User Registration ---

// RegisterUserInput holds the *input* from the user. Separate from
// 'models.User' because we don't accept an 'id', 'role' or 'status' from
// the outside.
type RegisterUserInput struct {
	Username        string  `json:"userName" binding:"required"`
	Email           string  `json:"email" binding:"required,email"`
	Password        string  `json:"password" binding:"required,min=8"`
	Phone           *string `json:"phone"`
	AddressDistrict *string `json:"addressDistrict"`
	AddressSector   *string `json:"addressSector"`
	AddressCell     *string `json:"addressCell"`
	AddressVillage  *string `json:"addressVillage"`
}

// RegisterUser handles self-registration. Every self-registered account is a
// 'client' (a farmer); staff and manager accounts are created by an admin.
func (h *Handlers) RegisterUser(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Check for Duplicates ---
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

	// 3. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	// 4. --- Save to Database ---
	result, err := h.DB.Exec(`
		INSERT INTO users (username, email, password, role, status, phone, address_district, address_sector, address_cell, address_village, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Username, input.Email, password.Hash, models.RoleClient, models.UserStatusActive,
		input.Phone, input.AddressDistrict, input.AddressSector, input.AddressCell, input.AddressVillage,
		time.Now(), time.Now(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	userID, _ := result.LastInsertId()

	// 5. --- Send Success Response ---
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"userId":  userID,
	})
}

// --- Login ---

// LoginInput accepts either an email or a phone number as the identifier.
type LoginInput struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// Login verifies the credentials and returns a signed JWT.
func (h *Handlers) Login(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Find the User (email or phone) ---
	var user models.User
	err := h.DB.QueryRow(`
		SELECT id, username, email, password, role, status
		FROM users
		WHERE (email = ? OR phone = ?) AND deleted_at IS NULL`,
		input.Identifier, input.Identifier,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.Status)
	if err == sql.ErrNoRows {
		// Do not reveal whether the account exists.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
		return
	}

	// 3. --- Check the Password ---
	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	// 4. --- Check Account Status ---
	if user.Status != models.UserStatusActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is " + user.Status})
		return
	}

	// 5. --- Generate Token ---
	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user": gin.H{
			"id":       user.ID,
			"userName": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

// Logout blacklists the caller's token so it cannot be replayed.
func (h *Handlers) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}
	tokenString := parts[1]

	// Tokens live 7 days; the blacklist row expires with the token.
	_, err := h.DB.Exec(
		"INSERT INTO token_blacklist (token, expires_at, created_at) VALUES (?, ?, ?)",
		tokenString, time.Now().Add(7*24*time.Hour), time.Now(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// --- Profile ---

// GetProfile returns the calling user's own record.
func (h *Handlers) GetProfile(c *gin.Context) {
	userID := c.GetInt64("userID")

	var user models.User
	err := h.DB.QueryRow(`
		SELECT id, username, email, role, status, phone,
		       address_district, address_sector, address_cell, address_village,
		       created_at, updated_at
		FROM users WHERE id = ? AND deleted_at IS NULL`,
		userID,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.Status, &user.Phone,
		&user.AddressDistrict, &user.AddressSector, &user.AddressCell, &user.AddressVillage,
		&user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfileInput has all fields optional; only present ones are changed.
type UpdateProfileInput struct {
	Username        *string `json:"userName"`
	Phone           *string `json:"phone"`
	AddressDistrict *string `json:"addressDistrict"`
	AddressSector   *string `json:"addressSector"`
	AddressCell     *string `json:"addressCell"`
	AddressVillage  *string `json:"addressVillage"`
	Password        *string `json:"password"`
}

// UpdateProfile lets a user change their own details. Role, status and email
// are deliberately not editable here.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	userID := c.GetInt64("userID")

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Build the SET clause from the fields actually provided.
	setParts := []string{}
	args := []interface{}{}
	if input.Username != nil {
		setParts = append(setParts, "username = ?")
		args = append(args, *input.Username)
	}
	if input.Phone != nil {
		setParts = append(setParts, "phone = ?")
		args = append(args, *input.Phone)
	}
	if input.AddressDistrict != nil {
		setParts = append(setParts, "address_district = ?")
		args = append(args, *input.AddressDistrict)
	}
	if input.AddressSector != nil {
		setParts = append(setParts, "address_sector = ?")
		args = append(args, *input.AddressSector)
	}
	if input.AddressCell != nil {
		setParts = append(setParts, "address_cell = ?")
		args = append(args, *input.AddressCell)
	}
	if input.AddressVillage != nil {
		setParts = append(setParts, "address_village = ?")
		args = append(args, *input.AddressVillage)
	}
	if input.Password != nil {
		if len(*input.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
			return
		}
		var password models.Password
		if err := password.Set(*input.Password); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		setParts = append(setParts, "password = ?")
		args = append(args, password.Hash)
	}

	if len(setParts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	setParts = append(setParts, "updated_at = ?")
	args = append(args, time.Now(), userID)

	query := "UPDATE users SET " + strings.Join(setParts, ", ") + " WHERE id = ? AND deleted_at IS NULL"
	if _, err := h.DB.Exec(query, args...); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

// --- Password Reset (OTP) ---

type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword generates a 6-digit OTP, stores it with a 10-minute expiry,
// and emails it. The response is the same whether or not the account exists.
func (h *Handlers) ForgotPassword(c *gin.Context) {
	var input ForgotPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID int64
	err := h.DB.QueryRow(
		"SELECT id FROM users WHERE email = ? AND deleted_at IS NULL", input.Email,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusOK, gin.H{"message": "If that account exists, a reset code has been sent"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
		return
	}

	otp, err := generateOTP()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate reset code"})
		return
	}

	_, err = h.DB.Exec(
		"UPDATE users SET otp = ?, otp_expires = ? WHERE id = ?",
		otp, time.Now().Add(10*time.Minute), userID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store reset code"})
		return
	}

	if err := email.SendOTPEmail(input.Email, otp); err != nil {
		log.Printf("failed to send OTP email to %s: %v", input.Email, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "If that account exists, a reset code has been sent"})
}

type VerifyOtpInput struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6"`
}

// VerifyResetOtp checks the OTP and, if valid, returns a short-lived reset
// token. The OTP is cleared so it cannot be tried again.
func (h *Handlers) VerifyResetOtp(c *gin.Context) {
	var input VerifyOtpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		userID     int64
		otp        sql.NullString
		otpExpires sql.NullTime
	)
	err := h.DB.QueryRow(
		"SELECT id, otp, otp_expires FROM users WHERE email = ? AND deleted_at IS NULL", input.Email,
	).Scan(&userID, &otp, &otpExpires)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired code"})
		return
	}

	if !otp.Valid || otp.String != input.OTP || !otpExpires.Valid || time.Now().After(otpExpires.Time) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired code"})
		return
	}

	// One shot only.
	if _, err := h.DB.Exec("UPDATE users SET otp = NULL, otp_expires = NULL WHERE id = ?", userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to consume reset code"})
		return
	}

	resetToken, err := auth.GenerateResetToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate reset token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"resetToken": resetToken})
}

type ResetPasswordInput struct {
	ResetToken  string `json:"resetToken" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// ResetPassword sets a new password using the token from VerifyResetOtp.
func (h *Handlers) ResetPassword(c *gin.Context) {
	var input ResetPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := auth.ValidateResetToken(input.ResetToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired reset token"})
		return
	}

	var password models.Password
	if err := password.Set(input.NewPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	_, err = h.DB.Exec(
		"UPDATE users SET password = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		password.Hash, time.Now(), userID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// generateOTP returns a 6-digit code from crypto/rand.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
