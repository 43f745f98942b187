package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Kevin-webdesign/smart-farm/internal/models"
)

// The producer side: business handlers call these when a domain action
// implies a future reminder. Message text is NOT computed here; the
// processor builds it at fire time from data current at fire time.
//
// Reminders are best-effort. Callers log producer errors and never roll back
// the surrounding business action because of them.

const insertTriggerQuery = `
	INSERT INTO notification_triggers
	(type, user_id, reference_type, reference_id, scheduled_at, status, created_at)
	VALUES (?, ?, ?, ?, ?, 'pending', ?)`

// reviewDelay is how long after creation a transaction comes up for review.
const reviewDelay = 24 * time.Hour

// ScheduleTransactionReview inserts one transaction_review trigger, due 24
// hours from now, owned by the transaction's creator.
func (s *Service) ScheduleTransactionReview(ctx context.Context, transactionID, creatorID int64) error {
	now := s.clock()
	_, err := s.db.ExecContext(ctx, insertTriggerQuery,
		models.TriggerTransactionReview, creatorID,
		models.RefTransaction, transactionID,
		now.Add(reviewDelay), now)
	if err != nil {
		return fmt.Errorf("failed to schedule transaction review: %w", err)
	}
	return nil
}

// ScheduleActivityReminders inserts calendar reminder triggers for an
// upcoming activity: one due the day before and one due on the day. Nothing
// is scheduled when the activity is within a day (the calendar scan already
// covers today/tomorrow/overdue).
//
// referenceType is models.RefPlanting or models.RefHarvestDue and referenceID
// the crop plan's row ID; the crop's name and current state are resolved when
// the trigger fires, never captured here.
func (s *Service) ScheduleActivityReminders(ctx context.Context, userID int64, referenceType string, referenceID int64, activityDate time.Time) error {
	now := s.clock()
	if daysUntil(now, activityDate) <= 1 {
		return nil
	}

	activityDay := startOfDay(activityDate)
	for _, offset := range []int{1, 0} {
		scheduledAt := activityDay.AddDate(0, 0, -offset)
		_, err := s.db.ExecContext(ctx, insertTriggerQuery,
			models.TriggerCalendarReminder, userID,
			referenceType, referenceID,
			scheduledAt, now)
		if err != nil {
			return fmt.Errorf("failed to schedule activity reminder: %w", err)
		}
	}
	return nil
}

// daysUntil counts whole calendar days from now to the activity date,
// negative when the activity is overdue.
func daysUntil(now, activityDate time.Time) int {
	return int(startOfDay(activityDate).Sub(startOfDay(now)).Hours() / 24)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
