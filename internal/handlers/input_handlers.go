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

// --- Farm Inputs (seeds, fertilizer, pesticide, ...) ---

type CreateInputInput struct {
	Name        string  `json:"name" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	InputDate   string  `json:"inputDate" binding:"required"`
	Description *string `json:"description"`
}

func (h *Handlers) CreateInput(c *gin.Context) {
	var input CreateInputInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inputDate, err := time.Parse("2006-01-02", input.InputDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "inputDate must be YYYY-MM-DD"})
		return
	}

	result, err := h.DB.Exec(`
		INSERT INTO inputs (name, amount, input_date, description, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		input.Name, input.Amount, inputDate, input.Description, c.GetInt64("userID"),
		time.Now(), time.Now(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create input"})
		return
	}
	inputID, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{"message": "Input recorded successfully", "inputId": inputID})
}

func (h *Handlers) GetInputs(c *gin.Context) {
	where := []string{"1=1"}
	args := []interface{}{}
	if c.GetString("userRole") == models.RoleClient {
		where = append(where, "created_by = ?")
		args = append(args, c.GetInt64("userID"))
	}

	rows, err := h.DB.Query(`
		SELECT id, name, amount, input_date, description, created_by, created_at, updated_at
		FROM inputs WHERE `+strings.Join(where, " AND ")+`
		ORDER BY input_date DESC`, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load inputs"})
		return
	}
	defer rows.Close()

	inputs := []models.Input{}
	for rows.Next() {
		var record models.Input
		if err := rows.Scan(&record.ID, &record.Name, &record.Amount, &record.InputDate,
			&record.Description, &record.CreatedBy, &record.CreatedAt, &record.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan input"})
			return
		}
		inputs = append(inputs, record)
	}

	c.JSON(http.StatusOK, gin.H{"inputs": inputs})
}

func (h *Handlers) GetInput(c *gin.Context) {
	inputID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input ID"})
		return
	}

	var record models.Input
	err = h.DB.QueryRow(`
		SELECT id, name, amount, input_date, description, created_by, created_at, updated_at
		FROM inputs WHERE id = ?`, inputID).
		Scan(&record.ID, &record.Name, &record.Amount, &record.InputDate,
			&record.Description, &record.CreatedBy, &record.CreatedAt, &record.UpdatedAt)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Input not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load input"})
		return
	}
	if !h.canAccessRecord(c, record.CreatedBy) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this input"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"input": record})
}

type UpdateInputInput struct {
	Name        *string  `json:"name"`
	Amount      *float64 `json:"amount"`
	InputDate   *string  `json:"inputDate"`
	Description *string  `json:"description"`
}

func (h *Handlers) UpdateInput(c *gin.Context) {
	inputID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input ID"})
		return
	}

	var input UpdateInputInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ownerID int64
	err = h.DB.QueryRow("SELECT created_by FROM inputs WHERE id = ?", inputID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Input not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load input"})
		return
	}
	if !h.canAccessRecord(c, ownerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this input"})
		return
	}

	setParts := []string{}
	args := []interface{}{}
	if input.Name != nil {
		setParts = append(setParts, "name = ?")
		args = append(args, *input.Name)
	}
	if input.Amount != nil {
		setParts = append(setParts, "amount = ?")
		args = append(args, *input.Amount)
	}
	if input.InputDate != nil {
		d, err := time.Parse("2006-01-02", *input.InputDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "inputDate must be YYYY-MM-DD"})
			return
		}
		setParts = append(setParts, "input_date = ?")
		args = append(args, d)
	}
	if input.Description != nil {
		setParts = append(setParts, "description = ?")
		args = append(args, *input.Description)
	}

	if len(setParts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	setParts = append(setParts, "updated_at = ?")
	args = append(args, time.Now(), inputID)

	if _, err := h.DB.Exec("UPDATE inputs SET "+strings.Join(setParts, ", ")+" WHERE id = ?", args...); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update input"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Input updated successfully"})
}

func (h *Handlers) DeleteInput(c *gin.Context) {
	inputID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input ID"})
		return
	}

	var ownerID int64
	err = h.DB.QueryRow("SELECT created_by FROM inputs WHERE id = ?", inputID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Input not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load input"})
		return
	}
	if !h.canAccessRecord(c, ownerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this input"})
		return
	}

	if _, err := h.DB.Exec("DELETE FROM inputs WHERE id = ?", inputID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete input"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Input deleted successfully"})
}
