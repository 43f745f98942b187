package models

import "time"

// Crop plan statuses.
const (
	CropStatusPlanned   = "planned"
	CropStatusActive    = "active"
	CropStatusGrowing   = "growing"
	CropStatusHarvested = "harvested"
)

// CropPlan is the model for the 'crop_plans' table.
type CropPlan struct {
	ID                  int64      `json:"id" db:"id"`
	CropName            string     `json:"cropName" db:"crop_name"`
	Variety             *string    `json:"variety,omitempty" db:"variety"`
	FieldArea           float64    `json:"fieldArea" db:"field_area"`
	PlantingDate        time.Time  `json:"plantingDate" db:"planting_date"`
	ExpectedHarvestDate *time.Time `json:"expectedHarvestDate,omitempty" db:"expected_harvest_date"`
	ExpectedYield       float64    `json:"expectedYield" db:"expected_yield"`
	Cost                float64    `json:"cost" db:"cost"`
	Notes               *string    `json:"notes,omitempty" db:"notes"`
	Status              string     `json:"status" db:"status"`
	CreatedBy           int64      `json:"createdBy" db:"created_by"`
	CreatedAt           time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time  `json:"updatedAt" db:"updated_at"`
}
