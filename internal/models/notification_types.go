package models

import (
	"encoding/json"
	"time"
)

// Notification severity tags.
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Notification categories (domain tags).
const (
	CategoryCalendar          = "calendar"
	CategoryTransaction       = "transaction"
	CategoryTransactionReview = "transaction_review"
	CategoryGeneral           = "general"
)

// Notification statuses.
const (
	NotificationActive    = "active"
	NotificationExpired   = "expired"
	NotificationCancelled = "cancelled"
)

// Notification is the model for the 'notifications' table.
// TriggerID links a notification back to the trigger that produced it; the
// column carries a unique index so a reprocessed trigger cannot create a
// second copy of the same reminder.
type Notification struct {
	ID        int64           `json:"id" db:"id"`
	TriggerID *int64          `json:"triggerId,omitempty" db:"trigger_id"`
	Title     string          `json:"title" db:"title"`
	Message   string          `json:"message" db:"message"`
	Type      string          `json:"type" db:"type"`
	Priority  string          `json:"priority" db:"priority"`
	Category  string          `json:"category" db:"category"`
	Data      json.RawMessage `json:"data,omitempty" db:"data"`
	ActionURL *string         `json:"actionUrl,omitempty" db:"action_url"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty" db:"expires_at"`
	Status    string          `json:"status" db:"status"`
	CreatedBy string          `json:"createdBy" db:"created_by"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// UserNotification is the read-path join of a notification with the calling
// user's recipient row.
type UserNotification struct {
	Notification
	ReadAt *time.Time `json:"readAt,omitempty" db:"read_at"`
}
