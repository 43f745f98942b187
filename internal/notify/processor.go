package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/Kevin-webdesign/smart-farm/internal/models"
)

//
// --- Trigger Processor ---
//
// One pass drains every trigger that is pending, due, and owned by an active
// user. Each trigger is claimed with a conditional update before its handler
// runs, so a second replica polling the same table skips it. Triggers with
// unknown types are put back to pending untouched: new code may know the
// type even if this build does not, and losing the row would be worse than
// carrying it.
//

const selectDueTriggersQuery = `
	SELECT nt.id, nt.type, nt.user_id, nt.reference_type, nt.reference_id, nt.scheduled_at
	FROM notification_triggers nt
	JOIN users u ON u.id = nt.user_id
	WHERE nt.status = 'pending'
	  AND nt.scheduled_at <= ?
	  AND u.status = 'active'
	  AND u.deleted_at IS NULL
	ORDER BY nt.scheduled_at
	LIMIT ?`

const claimTriggerQuery = `
	UPDATE notification_triggers
	SET status = 'processing', claimed_by = ?, claimed_at = ?
	WHERE id = ? AND status = 'pending'`

const finishTriggerQuery = `
	UPDATE notification_triggers
	SET status = ?
	WHERE id = ? AND claimed_by = ?`

const releaseTriggerQuery = `
	UPDATE notification_triggers
	SET status = 'pending', claimed_by = NULL, claimed_at = NULL
	WHERE id = ? AND claimed_by = ?`

// statusUpdateTimeout bounds the detached status updates that must outlive a
// cancelled pass.
const statusUpdateTimeout = 5 * time.Second

// TriggerError pairs a failed trigger with the error that failed it.
type TriggerError struct {
	TriggerID int64  `json:"triggerId"`
	Error     string `json:"error"`
}

// Summary is the machine-readable result of one processing pass. It is
// returned from the admin endpoint as well as logged by the scheduler.
// ClaimErrors counts triggers whose claim UPDATE itself errored; those rows
// were never processed and stay pending, so they are reported apart from the
// processed/failed counts.
type Summary struct {
	Processed   int            `json:"processedCount"`
	Sent        int            `json:"sentCount"`
	Failed      int            `json:"failedCount"`
	Unknown     int            `json:"unknownCount"`
	ClaimErrors int            `json:"claimErrorCount"`
	Errors      []TriggerError `json:"errors"`
}

// ProcessDueTriggers runs one processing pass. Every due pending trigger for
// an active user ends the pass as sent or failed, except unknown types which
// stay pending. A handler error fails its own trigger only; the pass carries
// on with the rest. Cancellation via ctx is honored between triggers, and a
// trigger whose handler was cut short by the cancellation itself is released
// back to pending for the next pass rather than marked failed. The status
// updates run on a context detached from the pass, so a cancelled pass can
// never strand a claimed row in processing.
func (s *Service) ProcessDueTriggers(ctx context.Context) (Summary, error) {
	summary := Summary{Errors: []TriggerError{}}
	now := s.clock()

	// Triggers already visited this pass (unknown types go back to pending
	// and would otherwise be re-fetched forever).
	seen := make(map[int64]bool)

	for {
		triggers, err := s.dueTriggers(ctx, now)
		if err != nil {
			return summary, fmt.Errorf("failed to load due triggers: %w", err)
		}

		progressed := false
		for _, trigger := range triggers {
			if seen[trigger.ID] {
				continue
			}
			seen[trigger.ID] = true
			progressed = true

			if err := ctx.Err(); err != nil {
				return summary, err
			}
			s.processOne(ctx, trigger, &summary)
		}

		if len(triggers) < s.batchSize || !progressed {
			return summary, nil
		}
	}
}

func (s *Service) dueTriggers(ctx context.Context, now time.Time) ([]models.Trigger, error) {
	rows, err := s.db.QueryContext(ctx, selectDueTriggersQuery, now, s.batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var triggers []models.Trigger
	for rows.Next() {
		var t models.Trigger
		if err := rows.Scan(&t.ID, &t.Type, &t.UserID, &t.ReferenceType, &t.ReferenceID, &t.ScheduledAt); err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}

// processOne claims a single trigger, dispatches it, and records the outcome.
func (s *Service) processOne(ctx context.Context, trigger models.Trigger, summary *Summary) {
	claimed, err := s.claim(ctx, trigger.ID)
	if err != nil {
		// The row is still pending; this is a claim problem, not a
		// processing failure.
		summary.ClaimErrors++
		summary.Errors = append(summary.Errors, TriggerError{TriggerID: trigger.ID, Error: err.Error()})
		return
	}
	if !claimed {
		// Another worker got there first.
		return
	}

	handler, ok := s.dispatch[trigger.Type]
	if !ok {
		log.Printf("notify: unknown trigger type %q (trigger %d), leaving pending", trigger.Type, trigger.ID)
		summary.Unknown++
		if err := s.release(ctx, trigger.ID); err != nil {
			log.Printf("notify: failed to release trigger %d: %v", trigger.ID, err)
		}
		return
	}

	if err := handler(ctx, trigger); err != nil {
		if ctx.Err() != nil {
			// The pass was cancelled mid-handler. That is not the
			// trigger's fault; put it back for the next pass.
			if relErr := s.release(ctx, trigger.ID); relErr != nil {
				log.Printf("notify: failed to release trigger %d after cancellation: %v", trigger.ID, relErr)
			}
			return
		}
		log.Printf("notify: trigger %d failed: %v", trigger.ID, err)
		summary.Processed++
		summary.Failed++
		summary.Errors = append(summary.Errors, TriggerError{TriggerID: trigger.ID, Error: err.Error()})
		s.finish(ctx, trigger.ID, models.TriggerFailed)
		return
	}

	summary.Processed++
	summary.Sent++
	s.finish(ctx, trigger.ID, models.TriggerSent)
}

func (s *Service) claim(ctx context.Context, triggerID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, claimTriggerQuery, s.workerID, s.clock(), triggerID)
	if err != nil {
		return false, fmt.Errorf("failed to claim trigger: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check trigger claim: %w", err)
	}
	return affected > 0, nil
}

// finish and release run detached from the pass context: once a trigger is
// claimed, its status row must be settled even when the pass was cancelled.

func (s *Service) finish(ctx context.Context, triggerID int64, status string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusUpdateTimeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, finishTriggerQuery, status, triggerID, s.workerID); err != nil {
		log.Printf("notify: failed to mark trigger %d %s: %v", triggerID, status, err)
	}
}

func (s *Service) release(ctx context.Context, triggerID int64) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusUpdateTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, releaseTriggerQuery, triggerID, s.workerID)
	return err
}

//
// --- Handlers ---
//

const cropPlanForReminderQuery = `
	SELECT crop_name, planting_date, expected_harvest_date, status
	FROM crop_plans
	WHERE id = ?`

// handleCalendarReminder re-resolves the crop plan at fire time. The plan
// may be gone, already harvested, or rescheduled since the trigger was
// produced; in those cases the reminder is a no-op success.
func (s *Service) handleCalendarReminder(ctx context.Context, trigger models.Trigger) error {
	var (
		cropName            string
		plantingDate        time.Time
		expectedHarvestDate sql.NullTime
		status              string
	)
	err := s.db.QueryRowContext(ctx, cropPlanForReminderQuery, trigger.ReferenceID).
		Scan(&cropName, &plantingDate, &expectedHarvestDate, &status)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve crop plan %d: %w", trigger.ReferenceID, err)
	}
	if status == models.CropStatusHarvested {
		return nil
	}

	var activityDate time.Time
	var activityVerb string
	switch trigger.ReferenceType {
	case models.RefPlanting:
		activityDate = plantingDate
		activityVerb = "planting"
	case models.RefHarvestDue:
		if !expectedHarvestDate.Valid {
			return nil
		}
		activityDate = expectedHarvestDate.Time
		activityVerb = "harvest"
	default:
		return fmt.Errorf("calendar reminder with unexpected reference type %q", trigger.ReferenceType)
	}

	days := daysUntil(s.clock(), activityDate)
	title, message, severity, priority := reminderText(activityVerb, cropName, days)

	triggerID := trigger.ID
	_, err = s.CreateNotification(ctx, NotificationInput{
		TriggerID: &triggerID,
		Title:     title,
		Message:   message,
		Type:      severity,
		Priority:  priority,
		Category:  models.CategoryCalendar,
		Data: map[string]interface{}{
			"cropPlanId":   trigger.ReferenceID,
			"cropName":     cropName,
			"activityType": activityVerb,
			"activityDate": activityDate.Format("2006-01-02"),
			"daysUntil":    days,
		},
		CreatedBy:  SystemSender,
		Recipients: []int64{trigger.UserID},
	})
	return err
}

// reminderText composes the user-facing copy for a calendar reminder.
func reminderText(activityVerb, cropName string, days int) (title, message, severity, priority string) {
	switch {
	case days == 0:
		title = fmt.Sprintf("Today: %s %s", verbTitle(activityVerb), cropName)
		message = fmt.Sprintf("Your %s activity %q is scheduled for today", activityVerb, cropName)
		return title, message, models.NotificationInfo, models.PriorityHigh
	case days == 1:
		title = fmt.Sprintf("Tomorrow: %s %s", verbTitle(activityVerb), cropName)
		message = fmt.Sprintf("Your %s activity %q is scheduled for tomorrow", activityVerb, cropName)
		return title, message, models.NotificationInfo, models.PriorityMedium
	case days < 0:
		title = fmt.Sprintf("Overdue: %s %s", verbTitle(activityVerb), cropName)
		message = fmt.Sprintf("Your %s activity %q is %d days overdue", activityVerb, cropName, -days)
		return title, message, models.NotificationWarning, models.PriorityHigh
	default:
		title = fmt.Sprintf("Upcoming: %s %s", verbTitle(activityVerb), cropName)
		message = fmt.Sprintf("Your %s activity %q is %d days away", activityVerb, cropName, days)
		return title, message, models.NotificationInfo, models.PriorityMedium
	}
}

func verbTitle(activityVerb string) string {
	if activityVerb == "planting" {
		return "Plant"
	}
	return "Harvest"
}

const activityCompletionQuery = `
	SELECT CASE
		WHEN EXISTS (SELECT 1 FROM harvests WHERE crop_plan_id = ? AND DATE(created_at) = CURDATE()) THEN 'completed'
		WHEN EXISTS (SELECT 1 FROM crop_plans WHERE id = ? AND status = 'harvested' AND DATE(updated_at) = CURDATE()) THEN 'completed'
		ELSE 'pending'
	END`

// handleActivityFollowup asks whether the day's activity actually got done.
// Completion is re-checked at fire time; if the activity was recorded since
// the trigger was scheduled, no nag goes out and the trigger still counts as
// a success.
func (s *Service) handleActivityFollowup(ctx context.Context, trigger models.Trigger) error {
	var completion string
	err := s.db.QueryRowContext(ctx, activityCompletionQuery, trigger.ReferenceID, trigger.ReferenceID).
		Scan(&completion)
	if err != nil {
		return fmt.Errorf("failed to check activity completion: %w", err)
	}
	if completion == "completed" {
		return nil
	}

	triggerID := trigger.ID
	_, err = s.CreateNotification(ctx, NotificationInput{
		TriggerID: &triggerID,
		Title:     "Activity Follow-up",
		Message:   "Did you complete your scheduled farm activity today? Please update your records.",
		Type:      models.NotificationWarning,
		Priority:  models.PriorityMedium,
		Category:  models.CategoryCalendar,
		Data: map[string]interface{}{
			"cropPlanId":   trigger.ReferenceID,
			"followupTime": s.clock().Format(time.RFC3339),
		},
		CreatedBy:  SystemSender,
		Recipients: []int64{trigger.UserID},
	})
	return err
}

const transactionForReviewQuery = `
	SELECT ft.id, ft.type, ft.amount, ft.crop_activity, ft.created_by, u.username
	FROM farm_transactions ft
	JOIN users u ON u.id = ft.created_by
	WHERE ft.id = ?`

// handleTransactionReview re-resolves the transaction and reminds active
// staff/admin users to review it. A transaction deleted in the meantime is a
// no-op success, not a failure: the referenced row was legitimately removed.
func (s *Service) handleTransactionReview(ctx context.Context, trigger models.Trigger) error {
	var (
		txID         int64
		txType       string
		amount       float64
		cropActivity string
		createdBy    int64
		username     string
	)
	err := s.db.QueryRowContext(ctx, transactionForReviewQuery, trigger.ReferenceID).
		Scan(&txID, &txType, &amount, &cropActivity, &createdBy, &username)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve transaction %d: %w", trigger.ReferenceID, err)
	}

	staff, err := s.activeStaffIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load staff recipients: %w", err)
	}

	triggerID := trigger.ID
	_, err = s.CreateNotification(ctx, NotificationInput{
		TriggerID: &triggerID,
		Title:     "Transaction Review Needed",
		Message:   fmt.Sprintf("Transaction %q from %s needs review", cropActivity, username),
		Type:      models.NotificationWarning,
		Priority:  models.PriorityMedium,
		Category:  models.CategoryTransactionReview,
		Data: map[string]interface{}{
			"transactionId":   txID,
			"transactionType": txType,
			"amount":          amount,
			"createdBy":       createdBy,
			"cropActivity":    cropActivity,
		},
		CreatedBy:  SystemSender,
		Recipients: staff,
	})
	return err
}
