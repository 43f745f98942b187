package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Kevin-webdesign/smart-farm/internal/models"
)

//
// --- Periodic Scans ---
//
// The scans are the safety net under the trigger producer: they sweep the
// domain tables directly so an activity still gets its reminder even when no
// trigger was ever scheduled for it (data imported in bulk, reminders added
// to an old plan, a producer insert that failed). Per-day dedup lives in the
// queries themselves so a scan can run as often as the schedule likes.
//

// ScanSummary is the result of one calendar or transaction scan.
type ScanSummary struct {
	Scanned  int `json:"scannedCount"`
	Notified int `json:"notifiedCount"`
	Skipped  int `json:"skippedCount"`
}

const calendarScanQuery = `
	SELECT cp.id, cp.created_by, cp.crop_name, cp.planting_date, 'planting' AS activity_type
	FROM crop_plans cp
	JOIN users u ON u.id = cp.created_by
	WHERE cp.status IN ('planned', 'active')
	  AND u.status = 'active' AND u.deleted_at IS NULL
	UNION ALL
	SELECT cp.id, cp.created_by, cp.crop_name, cp.expected_harvest_date, 'harvest' AS activity_type
	FROM crop_plans cp
	JOIN users u ON u.id = cp.created_by
	WHERE cp.status <> 'harvested'
	  AND cp.expected_harvest_date IS NOT NULL
	  AND u.status = 'active' AND u.deleted_at IS NULL`

const calendarDedupQuery = `
	SELECT COUNT(*) FROM notifications
	WHERE category = 'calendar'
	  AND JSON_EXTRACT(data, '$.cropPlanId') = ?
	  AND JSON_EXTRACT(data, '$.activityType') = ?
	  AND DATE(created_at) = CURDATE()`

type calendarActivity struct {
	cropPlanID   int64
	userID       int64
	cropName     string
	activityDate time.Time
	activityType string
}

// CheckCalendarNotifications sweeps every live crop plan and notifies owners
// whose planting or harvest date is today, tomorrow, or already past. At most
// one notification per plan and activity per day. When the activity is due
// today, an evening follow-up trigger is scheduled as well so the user gets
// asked whether it actually happened.
func (s *Service) CheckCalendarNotifications(ctx context.Context) (ScanSummary, error) {
	var summary ScanSummary

	activities, err := s.calendarActivities(ctx)
	if err != nil {
		return summary, fmt.Errorf("calendar scan query failed: %w", err)
	}

	now := s.clock()
	for _, a := range activities {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Scanned++

		days := daysUntil(now, a.activityDate)
		if days > 1 {
			summary.Skipped++
			continue
		}

		var count int
		err := s.db.QueryRowContext(ctx, calendarDedupQuery, a.cropPlanID, a.activityType).Scan(&count)
		if err != nil {
			return summary, fmt.Errorf("calendar dedup check failed: %w", err)
		}
		if count > 0 {
			summary.Skipped++
			continue
		}

		title, message, severity, priority := reminderText(a.activityType, a.cropName, days)
		_, err = s.CreateNotification(ctx, NotificationInput{
			Title:    title,
			Message:  message,
			Type:     severity,
			Priority: priority,
			Category: models.CategoryCalendar,
			Data: map[string]interface{}{
				"cropPlanId":   a.cropPlanID,
				"cropName":     a.cropName,
				"activityType": a.activityType,
				"activityDate": a.activityDate.Format("2006-01-02"),
				"daysUntil":    days,
			},
			CreatedBy:  SystemSender,
			Recipients: []int64{a.userID},
		})
		if err != nil {
			return summary, fmt.Errorf("failed to create calendar notification: %w", err)
		}
		summary.Notified++

		// An activity due today gets a same-evening follow-up asking whether
		// it was completed.
		if days == 0 {
			if err := s.scheduleEveningFollowup(ctx, a, now); err != nil {
				log.Printf("notify: failed to schedule activity follow-up for plan %d: %v", a.cropPlanID, err)
			}
		}
	}
	return summary, nil
}

const followupDedupQuery = `
	SELECT COUNT(*) FROM notification_triggers
	WHERE type = 'activity_followup'
	  AND reference_id = ?
	  AND DATE(scheduled_at) = CURDATE()`

func (s *Service) scheduleEveningFollowup(ctx context.Context, a calendarActivity, now time.Time) error {
	var count int
	if err := s.db.QueryRowContext(ctx, followupDedupQuery, a.cropPlanID).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	evening := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, now.Location())
	_, err := s.db.ExecContext(ctx, insertTriggerQuery,
		models.TriggerActivityFollowup, a.userID,
		models.RefActivity, a.cropPlanID,
		evening, now)
	return err
}

func (s *Service) calendarActivities(ctx context.Context) ([]calendarActivity, error) {
	rows, err := s.db.QueryContext(ctx, calendarScanQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []calendarActivity
	for rows.Next() {
		var a calendarActivity
		if err := rows.Scan(&a.cropPlanID, &a.userID, &a.cropName, &a.activityDate, &a.activityType); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

const recentTransactionsQuery = `
	SELECT ft.id, ft.type, ft.amount, ft.crop_activity, ft.created_by, u.username
	FROM farm_transactions ft
	JOIN users u ON u.id = ft.created_by
	WHERE ft.created_at >= ?
	  AND NOT EXISTS (
		SELECT 1 FROM notifications n
		WHERE n.category = 'transaction'
		  AND JSON_EXTRACT(n.data, '$.transactionId') = ft.id
	  )
	ORDER BY ft.created_at`

// ProcessTransactionNotifications notifies staff and admins about
// transactions recorded in the last two hours that have not been announced
// yet, and schedules the next-day review trigger for each. The NOT EXISTS
// clause is the dedup: a transaction is announced exactly once no matter how
// many scans see it inside the window.
func (s *Service) ProcessTransactionNotifications(ctx context.Context) (ScanSummary, error) {
	var summary ScanSummary

	since := s.clock().Add(-2 * time.Hour)
	rows, err := s.db.QueryContext(ctx, recentTransactionsQuery, since)
	if err != nil {
		return summary, fmt.Errorf("transaction scan query failed: %w", err)
	}
	defer rows.Close()

	type recentTx struct {
		id           int64
		txType       string
		amount       float64
		cropActivity string
		createdBy    int64
		username     string
	}
	var txs []recentTx
	for rows.Next() {
		var t recentTx
		if err := rows.Scan(&t.id, &t.txType, &t.amount, &t.cropActivity, &t.createdBy, &t.username); err != nil {
			return summary, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}
	rows.Close()

	if len(txs) == 0 {
		return summary, nil
	}

	staff, err := s.activeStaffIDs(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to load staff recipients: %w", err)
	}

	for _, t := range txs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Scanned++

		_, err := s.CreateNotification(ctx, NotificationInput{
			Title:    fmt.Sprintf("New %s Transaction", titleCase(t.txType)),
			Message:  fmt.Sprintf("%s recorded a %s of %.2f for %q", t.username, t.txType, t.amount, t.cropActivity),
			Type:     transactionSeverity(t.txType),
			Priority: models.PriorityMedium,
			Category: models.CategoryTransaction,
			Data: map[string]interface{}{
				"transactionId":   t.id,
				"transactionType": t.txType,
				"amount":          t.amount,
				"createdBy":       t.createdBy,
				"cropActivity":    t.cropActivity,
			},
			CreatedBy:  SystemSender,
			Recipients: staff,
		})
		if err != nil {
			return summary, fmt.Errorf("failed to create transaction notification: %w", err)
		}
		summary.Notified++

		if err := s.ScheduleTransactionReview(ctx, t.id, t.createdBy); err != nil {
			log.Printf("notify: failed to schedule review for transaction %d: %v", t.id, err)
		}
	}
	return summary, nil
}

// transactionSeverity colors the scan notification by direction: money in is
// good news, money out deserves a closer look.
func transactionSeverity(txType string) string {
	switch txType {
	case models.TransactionIncome:
		return models.NotificationSuccess
	case models.TransactionExpense:
		return models.NotificationWarning
	}
	return models.NotificationInfo
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	if word == models.TransactionIncome {
		return "Income"
	}
	if word == models.TransactionExpense {
		return "Expense"
	}
	return word
}

const deleteOldNotificationsQuery = `
	DELETE n FROM notifications n
	WHERE n.created_at < ?
	  AND NOT EXISTS (
		SELECT 1 FROM notification_recipients nr
		WHERE nr.notification_id = n.id AND nr.read_at IS NULL
	  )`

const deleteOldTriggersQuery = `
	DELETE FROM notification_triggers
	WHERE status IN ('sent', 'failed', 'cancelled')
	  AND created_at < ?`

// CleanupSummary reports what the daily cleanup removed.
type CleanupSummary struct {
	Notifications int64 `json:"deletedNotifications"`
	Triggers      int64 `json:"deletedTriggers"`
}

// CleanupOldData deletes fully-read notifications older than 90 days and
// terminal triggers older than 30 days. Pending and processing triggers are
// never touched, however old; a stuck pending row is an operator problem,
// not garbage.
func (s *Service) CleanupOldData(ctx context.Context) (CleanupSummary, error) {
	var summary CleanupSummary
	now := s.clock()

	result, err := s.db.ExecContext(ctx, deleteOldNotificationsQuery, now.AddDate(0, 0, -90))
	if err != nil {
		return summary, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	summary.Notifications, _ = result.RowsAffected()

	result, err = s.db.ExecContext(ctx, deleteOldTriggersQuery, now.AddDate(0, 0, -30))
	if err != nil {
		return summary, fmt.Errorf("failed to delete old triggers: %w", err)
	}
	summary.Triggers, _ = result.RowsAffected()

	return summary, nil
}
