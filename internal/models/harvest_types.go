package models

import "time"

// Harvest is the model for the 'harvests' table.
type Harvest struct {
	ID              int64     `json:"id" db:"id"`
	CropPlanID      int64     `json:"cropPlanId" db:"crop_plan_id"`
	CropName        string    `json:"cropName" db:"crop_name"`
	HarvestDate     time.Time `json:"harvestDate" db:"harvest_date"`
	ActualYield     float64   `json:"actualYield" db:"actual_yield"`
	Quality         *string   `json:"quality,omitempty" db:"quality"`
	MarketPrice     float64   `json:"marketPrice" db:"market_price"`
	TotalRevenue    float64   `json:"totalRevenue" db:"total_revenue"`
	StorageLocation *string   `json:"storageLocation,omitempty" db:"storage_location"`
	Notes           *string   `json:"notes,omitempty" db:"notes"`
	CreatedBy       int64     `json:"createdBy" db:"created_by"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}
