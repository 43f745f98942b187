package notify

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestService returns a Service over a sqlmock connection with a pinned
// clock and worker ID so queries take deterministic arguments.
func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(db)
	svc.clock = func() time.Time {
		return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	}
	svc.workerID = "worker-test"
	return svc, mock
}

func TestCreateNotificationFansOutToAllRecipients(t *testing.T) {
	svc, mock := newTestService(t)
	triggerID := int64(7)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(int64(7), "Title", "Body", "info", "medium", "calendar",
			sqlmock.AnyArg(), "system", svc.clock()).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_recipients (notification_id, user_id) VALUES (?, ?), (?, ?), (?, ?)")).
		WithArgs(int64(42), int64(1), int64(42), int64(2), int64(42), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	id, err := svc.CreateNotification(context.Background(), NotificationInput{
		TriggerID:  &triggerID,
		Title:      "Title",
		Message:    "Body",
		Type:       "info",
		Priority:   "medium",
		Category:   "calendar",
		CreatedBy:  SystemSender,
		Recipients: []int64{1, 2, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNotificationEmptyRecipientsIsNoOp(t *testing.T) {
	svc, mock := newTestService(t)

	id, err := svc.CreateNotification(context.Background(), NotificationInput{
		Title:   "Title",
		Message: "Body",
	})
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNotificationDuplicateTriggerIsNoOp(t *testing.T) {
	svc, mock := newTestService(t)
	triggerID := int64(7)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '7' for key 'uq_notifications_trigger'"})
	mock.ExpectRollback()

	id, err := svc.CreateNotification(context.Background(), NotificationInput{
		TriggerID:  &triggerID,
		Title:      "Title",
		Message:    "Body",
		Recipients: []int64{1},
	})
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNotificationRecipientFailureRollsBack(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_recipients")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := svc.CreateNotification(context.Background(), NotificationInput{
		Title:      "Title",
		Message:    "Body",
		Recipients: []int64{1, 2},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChunkRecipients(t *testing.T) {
	ids := make([]int64, 2500)
	for i := range ids {
		ids[i] = int64(i)
	}

	chunks := chunkRecipients(ids, 1000)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 500)

	// A small list stays in one chunk.
	chunks = chunkRecipients([]int64{1, 2}, 1000)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0], 2)
}
