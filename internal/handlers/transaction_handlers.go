package handlers

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Kevin-webdesign/smart-farm/internal/models"
	"github.com/gin-gonic/gin"
)

// --- Farm Transactions ---

type CreateTransactionInput struct {
	Type            string  `json:"type" binding:"required"`
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	CropActivity    string  `json:"cropActivity" binding:"required"`
	Description     *string `json:"description"`
	TransactionDate *string `json:"transactionDate"`
}

// CreateTransaction records an income or expense and schedules its next-day
// review trigger. The trigger insert is best-effort; a failed schedule never
// loses the transaction.
func (h *Handlers) CreateTransaction(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input CreateTransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Type != models.TransactionIncome && input.Type != models.TransactionExpense {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be Income or Expense"})
		return
	}

	transactionDate := time.Now()
	if input.TransactionDate != nil {
		d, err := time.Parse("2006-01-02", *input.TransactionDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "transactionDate must be YYYY-MM-DD"})
			return
		}
		transactionDate = d
	}

	userID := c.GetInt64("userID")

	// 2. --- Save to Database ---
	result, err := h.DB.Exec(`
		INSERT INTO farm_transactions (type, amount, crop_activity, description, transaction_date, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Type, input.Amount, input.CropActivity, input.Description, transactionDate,
		userID, time.Now(), time.Now(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
		return
	}
	transactionID, _ := result.LastInsertId()

	// 3. --- Schedule Review (best-effort) ---
	if h.Notify != nil {
		if err := h.Notify.ScheduleTransactionReview(context.Background(), transactionID, userID); err != nil {
			log.Printf("failed to schedule review for transaction %d: %v", transactionID, err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Transaction recorded successfully", "transactionId": transactionID})
}

// GetTransactions lists transactions with pagination and type/date filters.
// Clients see their own rows only.
func (h *Handlers) GetTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := []string{"1=1"}
	args := []interface{}{}
	if c.GetString("userRole") == models.RoleClient {
		where = append(where, "created_by = ?")
		args = append(args, c.GetInt64("userID"))
	}
	if txType := c.Query("type"); txType != "" {
		where = append(where, "type = ?")
		args = append(args, txType)
	}
	if from := c.Query("from"); from != "" {
		where = append(where, "transaction_date >= ?")
		args = append(args, from)
	}
	if to := c.Query("to"); to != "" {
		where = append(where, "transaction_date <= ?")
		args = append(args, to)
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM farm_transactions WHERE "+whereClause, args...).Scan(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
		return
	}

	query := `
		SELECT id, type, amount, crop_activity, description, transaction_date, created_by, created_at, updated_at
		FROM farm_transactions WHERE ` + whereClause + `
		ORDER BY transaction_date DESC LIMIT ? OFFSET ?`
	rows, err := h.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
		return
	}
	defer rows.Close()

	transactions := []models.FarmTransaction{}
	for rows.Next() {
		var t models.FarmTransaction
		if err := rows.Scan(&t.ID, &t.Type, &t.Amount, &t.CropActivity, &t.Description,
			&t.TransactionDate, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan transaction"})
			return
		}
		transactions = append(transactions, t)
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetPublicTransactions is the unauthenticated feed of recent farm activity
// for the public dashboard. Amounts are summarized, never itemized per user.
func (h *Handlers) GetPublicTransactions(c *gin.Context) {
	rows, err := h.DB.Query(`
		SELECT type, COUNT(*), COALESCE(SUM(amount), 0)
		FROM farm_transactions
		WHERE transaction_date >= DATE_SUB(CURDATE(), INTERVAL 30 DAY)
		GROUP BY type`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transaction summary"})
		return
	}
	defer rows.Close()

	summary := gin.H{}
	for rows.Next() {
		var (
			txType string
			count  int64
			total  float64
		)
		if err := rows.Scan(&txType, &count, &total); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan transaction summary"})
			return
		}
		summary[txType] = gin.H{"count": count, "total": total}
	}

	c.JSON(http.StatusOK, gin.H{"last30Days": summary})
}

// GetTransaction returns a single transaction.
func (h *Handlers) GetTransaction(c *gin.Context) {
	transactionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	var t models.FarmTransaction
	err = h.DB.QueryRow(`
		SELECT id, type, amount, crop_activity, description, transaction_date, created_by, created_at, updated_at
		FROM farm_transactions WHERE id = ?`, transactionID,
	).Scan(&t.ID, &t.Type, &t.Amount, &t.CropActivity, &t.Description,
		&t.TransactionDate, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transaction"})
		return
	}

	if !h.canAccessRecord(c, t.CreatedBy) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": t})
}

type UpdateTransactionInput struct {
	Type            *string  `json:"type"`
	Amount          *float64 `json:"amount"`
	CropActivity    *string  `json:"cropActivity"`
	Description     *string  `json:"description"`
	TransactionDate *string  `json:"transactionDate"`
}

// UpdateTransaction edits a transaction's fields.
func (h *Handlers) UpdateTransaction(c *gin.Context) {
	transactionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	var input UpdateTransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ownerID int64
	err = h.DB.QueryRow("SELECT created_by FROM farm_transactions WHERE id = ?", transactionID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transaction"})
		return
	}
	if !h.canAccessRecord(c, ownerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this transaction"})
		return
	}

	setParts := []string{}
	args := []interface{}{}
	if input.Type != nil {
		if *input.Type != models.TransactionIncome && *input.Type != models.TransactionExpense {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be Income or Expense"})
			return
		}
		setParts = append(setParts, "type = ?")
		args = append(args, *input.Type)
	}
	if input.Amount != nil {
		setParts = append(setParts, "amount = ?")
		args = append(args, *input.Amount)
	}
	if input.CropActivity != nil {
		setParts = append(setParts, "crop_activity = ?")
		args = append(args, *input.CropActivity)
	}
	if input.Description != nil {
		setParts = append(setParts, "description = ?")
		args = append(args, *input.Description)
	}
	if input.TransactionDate != nil {
		d, err := time.Parse("2006-01-02", *input.TransactionDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "transactionDate must be YYYY-MM-DD"})
			return
		}
		setParts = append(setParts, "transaction_date = ?")
		args = append(args, d)
	}

	if len(setParts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	setParts = append(setParts, "updated_at = ?")
	args = append(args, time.Now(), transactionID)

	if _, err := h.DB.Exec("UPDATE farm_transactions SET "+strings.Join(setParts, ", ")+" WHERE id = ?", args...); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Transaction updated successfully"})
}

// DeleteTransaction removes a transaction. Any pending review trigger for it
// becomes a no-op when it fires.
func (h *Handlers) DeleteTransaction(c *gin.Context) {
	transactionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	var ownerID int64
	err = h.DB.QueryRow("SELECT created_by FROM farm_transactions WHERE id = ?", transactionID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transaction"})
		return
	}
	if !h.canAccessRecord(c, ownerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this transaction"})
		return
	}

	if _, err := h.DB.Exec("DELETE FROM farm_transactions WHERE id = ?", transactionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}
