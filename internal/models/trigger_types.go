package models

import "time"

// TriggerType selects the processor handler for a trigger. The set is closed:
// adding a type means adding a handler to the dispatch table, and the
// processor leaves rows with types it does not know untouched.
type TriggerType string

const (
	TriggerCalendarReminder  TriggerType = "calendar_reminder"
	TriggerActivityFollowup  TriggerType = "activity_followup"
	TriggerTransactionReview TriggerType = "transaction_review"
)

// Trigger statuses. A trigger is claimed (pending -> processing) before its
// handler runs, then moved to a terminal status. 'sent' and 'failed' are
// terminal; 'cancelled' is set administratively and only ever cleaned up.
const (
	TriggerPending    = "pending"
	TriggerProcessing = "processing"
	TriggerSent       = "sent"
	TriggerFailed     = "failed"
	TriggerCancelled  = "cancelled"
)

// Trigger reference types. Together with ReferenceID they form a structured
// pointer to the domain row the trigger is about: farm_transactions.id for
// "transaction", crop_plans.id for the rest. The referenced row may have
// been deleted by the time the trigger fires; handlers must tolerate that.
const (
	RefTransaction = "transaction"
	RefPlanting    = "planting"
	RefHarvestDue  = "harvest_due"
	RefActivity    = "activity"
)

// Trigger is the model for the 'notification_triggers' table: a persisted,
// time-scheduled unit of deferred work.
type Trigger struct {
	ID            int64       `json:"id" db:"id"`
	Type          TriggerType `json:"type" db:"type"`
	UserID        int64       `json:"userId" db:"user_id"`
	ReferenceType string      `json:"referenceType" db:"reference_type"`
	ReferenceID   int64       `json:"referenceId" db:"reference_id"`
	ScheduledAt   time.Time   `json:"scheduledAt" db:"scheduled_at"`
	Status        string      `json:"status" db:"status"`
	ClaimedBy     *string     `json:"-" db:"claimed_by"`
	ClaimedAt     *time.Time  `json:"-" db:"claimed_at"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
}
