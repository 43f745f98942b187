package models

import "time"

// Farm transaction types.
const (
	TransactionIncome  = "Income"
	TransactionExpense = "Expense"
)

// FarmTransaction is the model for the 'farm_transactions' table.
type FarmTransaction struct {
	ID              int64     `json:"id" db:"id"`
	Type            string    `json:"type" db:"type"`
	Amount          float64   `json:"amount" db:"amount"`
	CropActivity    string    `json:"cropActivity" db:"crop_activity"`
	Description     *string   `json:"description,omitempty" db:"description"`
	TransactionDate time.Time `json:"transactionDate" db:"transaction_date"`
	CreatedBy       int64     `json:"createdBy" db:"created_by"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}
