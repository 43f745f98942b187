package models

import "time"

// Input is the model for the 'inputs' table (seeds, fertilizer, pesticide, ...).
type Input struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Amount      float64   `json:"amount" db:"amount"`
	InputDate   time.Time `json:"inputDate" db:"input_date"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedBy   int64     `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
