package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// SystemSender marks notifications created by background tasks rather than a
// person.
const SystemSender = "system"

const insertNotificationQuery = `
	INSERT INTO notifications
	(trigger_id, title, message, type, priority, category, data, created_by, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'active', ?)`

// NotificationInput is everything the fan-out needs to persist one
// notification and its recipient rows. TriggerID is set when a trigger
// produced the notification; the unique index on notifications.trigger_id
// then makes re-delivery for the same trigger a no-op.
type NotificationInput struct {
	TriggerID  *int64
	Title      string
	Message    string
	Type       string
	Priority   string
	Category   string
	Data       map[string]interface{}
	CreatedBy  string
	Recipients []int64
}

// CreateNotification persists one notification row plus one recipient row per
// target user, all inside a single transaction: every recipient sees the
// notification or none do. An empty recipient list is a no-op, not an error
// ("no active staff to notify" is normal). Returns the new notification ID,
// or 0 when nothing was created.
func (s *Service) CreateNotification(ctx context.Context, in NotificationInput) (int64, error) {
	if len(in.Recipients) == 0 {
		return 0, nil
	}

	dataJSON, err := json.Marshal(in.Data)
	if err != nil {
		return 0, fmt.Errorf("failed to encode notification data: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start notification transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, insertNotificationQuery,
		in.TriggerID, in.Title, in.Message, in.Type, in.Priority, in.Category,
		dataJSON, in.CreatedBy, s.clock())
	if err != nil {
		if isDuplicateEntry(err) {
			// This trigger already produced its notification (a previous
			// pass crashed between delivery and the status update).
			return 0, nil
		}
		return 0, fmt.Errorf("failed to insert notification: %w", err)
	}

	notificationID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get new notification ID: %w", err)
	}

	// Recipient rows go in chunks to respect statement-size limits.
	for _, chunk := range chunkRecipients(in.Recipients, recipientChunkSize) {
		query, args := recipientInsert(notificationID, chunk)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("failed to insert notification recipients: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit notification: %w", err)
	}
	return notificationID, nil
}

// recipientInsert builds one multi-row INSERT for a chunk of recipients.
func recipientInsert(notificationID int64, userIDs []int64) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO notification_recipients (notification_id, user_id) VALUES ")

	args := make([]interface{}, 0, len(userIDs)*2)
	for i, userID := range userIDs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?)")
		args = append(args, notificationID, userID)
	}
	return sb.String(), args
}

func chunkRecipients(userIDs []int64, size int) [][]int64 {
	var chunks [][]int64
	for len(userIDs) > size {
		chunks = append(chunks, userIDs[:size])
		userIDs = userIDs[size:]
	}
	return append(chunks, userIDs)
}

// isDuplicateEntry reports whether err is MySQL error 1062 (duplicate key).
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

const activeStaffQuery = `
	SELECT id FROM users
	WHERE role IN ('staff', 'admin') AND status = 'active' AND deleted_at IS NULL`

// activeStaffIDs resolves the staff/admin audience for review notifications.
func (s *Service) activeStaffIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, activeStaffQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UsersByRoles resolves recipient IDs for a broadcast. With no roles given it
// falls back to every active user.
func (s *Service) UsersByRoles(ctx context.Context, roles []string) ([]int64, error) {
	query := `SELECT id FROM users WHERE status = 'active' AND deleted_at IS NULL`
	var args []interface{}
	if len(roles) > 0 {
		query += ` AND role IN (?` + strings.Repeat(", ?", len(roles)-1) + `)`
		for _, role := range roles {
			args = append(args, role)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
