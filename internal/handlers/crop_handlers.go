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

// --- Crop Plans ---

type CreateCropPlanInput struct {
	CropName            string   `json:"cropName" binding:"required"`
	Variety             *string  `json:"variety"`
	FieldArea           float64  `json:"fieldArea" binding:"required,gt=0"`
	PlantingDate        string   `json:"plantingDate" binding:"required"`
	ExpectedHarvestDate *string  `json:"expectedHarvestDate"`
	ExpectedYield       float64  `json:"expectedYield"`
	Cost                float64  `json:"cost"`
	Notes               *string  `json:"notes"`
	Status              *string  `json:"status"`
}

// CreateCropPlan records a new plan and schedules its calendar reminders.
// Reminder scheduling is best-effort: the plan is saved even when scheduling
// fails.
func (h *Handlers) CreateCropPlan(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input CreateCropPlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plantingDate, err := time.Parse("2006-01-02", input.PlantingDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plantingDate must be YYYY-MM-DD"})
		return
	}

	var harvestDate *time.Time
	if input.ExpectedHarvestDate != nil {
		d, err := time.Parse("2006-01-02", *input.ExpectedHarvestDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expectedHarvestDate must be YYYY-MM-DD"})
			return
		}
		if !d.After(plantingDate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expectedHarvestDate must be after plantingDate"})
			return
		}
		harvestDate = &d
	}

	status := models.CropStatusPlanned
	if input.Status != nil {
		if *input.Status != models.CropStatusPlanned && *input.Status != models.CropStatusActive {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be planned or active"})
			return
		}
		status = *input.Status
	}

	userID := c.GetInt64("userID")

	// 2. --- Save to Database ---
	result, err := h.DB.Exec(`
		INSERT INTO crop_plans (crop_name, variety, field_area, planting_date, expected_harvest_date, expected_yield, cost, notes, status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.CropName, input.Variety, input.FieldArea, plantingDate, harvestDate,
		input.ExpectedYield, input.Cost, input.Notes, status, userID,
		time.Now(), time.Now(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create crop plan"})
		return
	}
	planID, _ := result.LastInsertId()

	// 3. --- Schedule Reminders (best-effort) ---
	if h.Notify != nil {
		ctx := context.Background()
		if err := h.Notify.ScheduleActivityReminders(ctx, userID, models.RefPlanting, planID, plantingDate); err != nil {
			log.Printf("failed to schedule planting reminders for plan %d: %v", planID, err)
		}
		if harvestDate != nil {
			if err := h.Notify.ScheduleActivityReminders(ctx, userID, models.RefHarvestDue, planID, *harvestDate); err != nil {
				log.Printf("failed to schedule harvest reminders for plan %d: %v", planID, err)
			}
		}
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Crop plan created successfully", "cropPlanId": planID})
}

// GetMyCropPlans lists the caller's own plans.
func (h *Handlers) GetMyCropPlans(c *gin.Context) {
	h.listCropPlans(c, c.GetInt64("userID"))
}

// GetAllCropPlans lists every user's plans (staff and up).
func (h *Handlers) GetAllCropPlans(c *gin.Context) {
	h.listCropPlans(c, 0)
}

func (h *Handlers) listCropPlans(c *gin.Context, ownerID int64) {
	where := []string{"1=1"}
	args := []interface{}{}
	if ownerID != 0 {
		where = append(where, "created_by = ?")
		args = append(args, ownerID)
	}
	if status := c.Query("status"); status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}

	query := `
		SELECT id, crop_name, variety, field_area, planting_date, expected_harvest_date,
		       expected_yield, cost, notes, status, created_by, created_at, updated_at
		FROM crop_plans WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY planting_date DESC`
	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load crop plans"})
		return
	}
	defer rows.Close()

	plans := []models.CropPlan{}
	for rows.Next() {
		var plan models.CropPlan
		if err := rows.Scan(&plan.ID, &plan.CropName, &plan.Variety, &plan.FieldArea,
			&plan.PlantingDate, &plan.ExpectedHarvestDate, &plan.ExpectedYield, &plan.Cost,
			&plan.Notes, &plan.Status, &plan.CreatedBy, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan crop plan"})
			return
		}
		plans = append(plans, plan)
	}

	c.JSON(http.StatusOK, gin.H{"cropPlans": plans})
}

// GetCropPlan returns one plan; a client only sees their own.
func (h *Handlers) GetCropPlan(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid crop plan ID"})
		return
	}

	var plan models.CropPlan
	err = h.DB.QueryRow(`
		SELECT id, crop_name, variety, field_area, planting_date, expected_harvest_date,
		       expected_yield, cost, notes, status, created_by, created_at, updated_at
		FROM crop_plans WHERE id = ?`, planID,
	).Scan(&plan.ID, &plan.CropName, &plan.Variety, &plan.FieldArea,
		&plan.PlantingDate, &plan.ExpectedHarvestDate, &plan.ExpectedYield, &plan.Cost,
		&plan.Notes, &plan.Status, &plan.CreatedBy, &plan.CreatedAt, &plan.UpdatedAt)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Crop plan not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load crop plan"})
		return
	}

	if !h.canAccessRecord(c, plan.CreatedBy) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this crop plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cropPlan": plan})
}

type UpdateCropPlanInput struct {
	CropName            *string  `json:"cropName"`
	Variety             *string  `json:"variety"`
	FieldArea           *float64 `json:"fieldArea"`
	PlantingDate        *string  `json:"plantingDate"`
	ExpectedHarvestDate *string  `json:"expectedHarvestDate"`
	ExpectedYield       *float64 `json:"expectedYield"`
	Cost                *float64 `json:"cost"`
	Notes               *string  `json:"notes"`
	Status              *string  `json:"status"`
}

var validCropStatuses = map[string]bool{
	models.CropStatusPlanned:   true,
	models.CropStatusActive:    true,
	models.CropStatusGrowing:   true,
	models.CropStatusHarvested: true,
}

// UpdateCropPlan changes plan fields. Moving a date reschedules nothing by
// itself; the calendar scan picks the new date up on its next pass.
func (h *Handlers) UpdateCropPlan(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid crop plan ID"})
		return
	}

	var input UpdateCropPlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ownerID int64
	err = h.DB.QueryRow("SELECT created_by FROM crop_plans WHERE id = ?", planID).Scan(&ownerID)
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

	setParts := []string{}
	args := []interface{}{}
	if input.CropName != nil {
		setParts = append(setParts, "crop_name = ?")
		args = append(args, *input.CropName)
	}
	if input.Variety != nil {
		setParts = append(setParts, "variety = ?")
		args = append(args, *input.Variety)
	}
	if input.FieldArea != nil {
		setParts = append(setParts, "field_area = ?")
		args = append(args, *input.FieldArea)
	}
	if input.PlantingDate != nil {
		d, err := time.Parse("2006-01-02", *input.PlantingDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "plantingDate must be YYYY-MM-DD"})
			return
		}
		setParts = append(setParts, "planting_date = ?")
		args = append(args, d)
	}
	if input.ExpectedHarvestDate != nil {
		d, err := time.Parse("2006-01-02", *input.ExpectedHarvestDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expectedHarvestDate must be YYYY-MM-DD"})
			return
		}
		setParts = append(setParts, "expected_harvest_date = ?")
		args = append(args, d)
	}
	if input.ExpectedYield != nil {
		setParts = append(setParts, "expected_yield = ?")
		args = append(args, *input.ExpectedYield)
	}
	if input.Cost != nil {
		setParts = append(setParts, "cost = ?")
		args = append(args, *input.Cost)
	}
	if input.Notes != nil {
		setParts = append(setParts, "notes = ?")
		args = append(args, *input.Notes)
	}
	if input.Status != nil {
		if !validCropStatuses[*input.Status] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		setParts = append(setParts, "status = ?")
		args = append(args, *input.Status)
	}

	if len(setParts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	setParts = append(setParts, "updated_at = ?")
	args = append(args, time.Now(), planID)

	if _, err := h.DB.Exec("UPDATE crop_plans SET "+strings.Join(setParts, ", ")+" WHERE id = ?", args...); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update crop plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Crop plan updated successfully"})
}

// DeleteCropPlan removes a plan and its harvests.
func (h *Handlers) DeleteCropPlan(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid crop plan ID"})
		return
	}

	var ownerID int64
	err = h.DB.QueryRow("SELECT created_by FROM crop_plans WHERE id = ?", planID).Scan(&ownerID)
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

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete crop plan"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM harvests WHERE crop_plan_id = ?", planID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete harvests"})
		return
	}
	if _, err := tx.Exec("DELETE FROM crop_plans WHERE id = ?", planID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete crop plan"})
		return
	}
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete crop plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Crop plan deleted successfully"})
}

// canAccessRecord allows the record's owner plus staff, manager and admin.
func (h *Handlers) canAccessRecord(c *gin.Context, ownerID int64) bool {
	role := c.GetString("userRole")
	if role == models.RoleAdmin || role == models.RoleManager || role == models.RoleStaff {
		return true
	}
	return c.GetInt64("userID") == ownerID
}
