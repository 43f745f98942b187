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

// --- Harvests ---

type CreateHarvestInput struct {
	CropPlanID      int64   `json:"cropPlanId" binding:"required"`
	HarvestDate     string  `json:"harvestDate" binding:"required"`
	ActualYield     float64 `json:"actualYield" binding:"required,gt=0"`
	Quality         *string `json:"quality"`
	MarketPrice     float64 `json:"marketPrice"`
	StorageLocation *string `json:"storageLocation"`
	Notes           *string `json:"notes"`
}

// CreateHarvest records a harvest against a crop plan and marks the plan
// harvested. Revenue is computed server-side from yield and price.
func (h *Handlers) CreateHarvest(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input CreateHarvestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	harvestDate, err := time.Parse("2006-01-02", input.HarvestDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "harvestDate must be YYYY-MM-DD"})
		return
	}

	// 2. --- Resolve the Crop Plan ---
	var (
		cropName string
		ownerID  int64
	)
	err = h.DB.QueryRow("SELECT crop_name, created_by FROM crop_plans WHERE id = ?", input.CropPlanID).
		Scan(&cropName, &ownerID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Crop plan not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load crop plan"})
		return
	}
	if !h.canAccessRecord(c, ownerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this crop plan"})
		return
	}

	totalRevenue := input.ActualYield * input.MarketPrice
	userID := c.GetInt64("userID")

	// 3. --- Save Harvest & Flip Plan Status (one transaction) ---
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record harvest"})
		return
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO harvests (crop_plan_id, crop_name, harvest_date, actual_yield, quality, market_price, total_revenue, storage_location, notes, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.CropPlanID, cropName, harvestDate, input.ActualYield, input.Quality,
		input.MarketPrice, totalRevenue, input.StorageLocation, input.Notes, userID,
		time.Now(), time.Now(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record harvest"})
		return
	}
	harvestID, _ := result.LastInsertId()

	_, err = tx.Exec(
		"UPDATE crop_plans SET status = ?, updated_at = ? WHERE id = ?",
		models.CropStatusHarvested, time.Now(), input.CropPlanID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update crop plan status"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record harvest"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Harvest recorded successfully",
		"harvestId":    harvestID,
		"totalRevenue": totalRevenue,
	})
}

// GetHarvests lists harvests with pagination. Clients see their own rows,
// staff and up see everything.
func (h *Handlers) GetHarvests(c *gin.Context) {
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
	role := c.GetString("userRole")
	if role == models.RoleClient {
		where = append(where, "created_by = ?")
		args = append(args, c.GetInt64("userID"))
	}
	if planID := c.Query("cropPlanId"); planID != "" {
		where = append(where, "crop_plan_id = ?")
		args = append(args, planID)
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM harvests WHERE "+whereClause, args...).Scan(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count harvests"})
		return
	}

	query := `
		SELECT id, crop_plan_id, crop_name, harvest_date, actual_yield, quality,
		       market_price, total_revenue, storage_location, notes, created_by, created_at, updated_at
		FROM harvests WHERE ` + whereClause + `
		ORDER BY harvest_date DESC LIMIT ? OFFSET ?`
	rows, err := h.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load harvests"})
		return
	}
	defer rows.Close()

	harvests := []models.Harvest{}
	for rows.Next() {
		var harvest models.Harvest
		if err := rows.Scan(&harvest.ID, &harvest.CropPlanID, &harvest.CropName, &harvest.HarvestDate,
			&harvest.ActualYield, &harvest.Quality, &harvest.MarketPrice, &harvest.TotalRevenue,
			&harvest.StorageLocation, &harvest.Notes, &harvest.CreatedBy,
			&harvest.CreatedAt, &harvest.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan harvest"})
			return
		}
		harvests = append(harvests, harvest)
	}

	c.JSON(http.StatusOK, gin.H{
		"harvests": harvests,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetHarvestStats aggregates yield and revenue, optionally per crop.
func (h *Handlers) GetHarvestStats(c *gin.Context) {
	where := "1=1"
	args := []interface{}{}
	if c.GetString("userRole") == models.RoleClient {
		where = "created_by = ?"
		args = append(args, c.GetInt64("userID"))
	}

	rows, err := h.DB.Query(`
		SELECT crop_name, COUNT(*), COALESCE(SUM(actual_yield), 0), COALESCE(SUM(total_revenue), 0)
		FROM harvests WHERE `+where+`
		GROUP BY crop_name ORDER BY SUM(total_revenue) DESC`, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load harvest stats"})
		return
	}
	defer rows.Close()

	type cropStat struct {
		CropName     string  `json:"cropName"`
		Harvests     int64   `json:"harvests"`
		TotalYield   float64 `json:"totalYield"`
		TotalRevenue float64 `json:"totalRevenue"`
	}
	stats := []cropStat{}
	var totalRevenue float64
	for rows.Next() {
		var s cropStat
		if err := rows.Scan(&s.CropName, &s.Harvests, &s.TotalYield, &s.TotalRevenue); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan harvest stats"})
			return
		}
		totalRevenue += s.TotalRevenue
		stats = append(stats, s)
	}

	c.JSON(http.StatusOK, gin.H{
		"byCrop":       stats,
		"totalRevenue": totalRevenue,
	})
}

// DeleteHarvest removes a harvest record.
func (h *Handlers) DeleteHarvest(c *gin.Context) {
	harvestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid harvest ID"})
		return
	}

	var ownerID int64
	err = h.DB.QueryRow("SELECT created_by FROM harvests WHERE id = ?", harvestID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Harvest not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load harvest"})
		return
	}
	if !h.canAccessRecord(c, ownerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this harvest"})
		return
	}

	if _, err := h.DB.Exec("DELETE FROM harvests WHERE id = ?", harvestID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete harvest"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Harvest deleted successfully"})
}
