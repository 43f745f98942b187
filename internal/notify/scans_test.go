package notify

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCalendarNotificationsNotifiesAndSchedulesFollowup(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	// One activity due today, one five days out (skipped).
	mock.ExpectQuery(regexp.QuoteMeta("FROM crop_plans cp")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_by", "crop_name", "activity_date", "activity_type"}).
			AddRow(8, 5, "Maize", now, "planting").
			AddRow(9, 5, "Beans", now.AddDate(0, 0, 5), "harvest"))

	// Not yet notified today.
	mock.ExpectQuery(regexp.QuoteMeta("JSON_EXTRACT(data, '$.cropPlanId')")).
		WithArgs(int64(8), "planting").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(60, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_recipients")).
		WithArgs(int64(60), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Due today, so an 18:00 follow-up trigger is scheduled.
	mock.ExpectQuery(regexp.QuoteMeta("type = 'activity_followup'")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	evening := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, now.Location())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_triggers")).
		WithArgs("activity_followup", int64(5), "activity", int64(8), evening, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	summary, err := svc.CheckCalendarNotifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 1, summary.Notified)
	assert.Equal(t, 1, summary.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckCalendarNotificationsDedupsPerDay(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	mock.ExpectQuery(regexp.QuoteMeta("FROM crop_plans cp")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_by", "crop_name", "activity_date", "activity_type"}).
			AddRow(8, 5, "Maize", now, "planting"))

	// Already notified earlier today.
	mock.ExpectQuery(regexp.QuoteMeta("JSON_EXTRACT(data, '$.cropPlanId')")).
		WithArgs(int64(8), "planting").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	summary, err := svc.CheckCalendarNotifications(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Notified)
	assert.Equal(t, 1, summary.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessTransactionNotifications(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	mock.ExpectQuery(regexp.QuoteMeta("FROM farm_transactions ft")).
		WithArgs(now.Add(-2 * time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "amount", "crop_activity", "created_by", "username"}).
			AddRow(99, "Expense", 120.50, "Fertilizer purchase", 5, "moses"))

	mock.ExpectQuery(regexp.QuoteMeta("role IN ('staff', 'admin')")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2).AddRow(3))

	// An expense is flagged with warning severity so staff take a look.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(nil, "New Expense Transaction", sqlmock.AnyArg(), "warning", "medium", "transaction",
			sqlmock.AnyArg(), "system", now).
		WillReturnResult(sqlmock.NewResult(70, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_recipients")).
		WithArgs(int64(70), int64(2), int64(70), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	// The next-day review trigger.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_triggers")).
		WithArgs("transaction_review", int64(5), "transaction", int64(99), now.Add(24*time.Hour), now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	summary, err := svc.ProcessTransactionNotifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 1, summary.Notified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionSeverity(t *testing.T) {
	assert.Equal(t, "success", transactionSeverity("Income"))
	assert.Equal(t, "warning", transactionSeverity("Expense"))
	assert.Equal(t, "info", transactionSeverity("Adjustment"))
}

func TestProcessTransactionNotificationsNothingNew(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM farm_transactions ft")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "amount", "crop_activity", "created_by", "username"}))

	summary, err := svc.ProcessTransactionNotifications(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Scanned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupOldData(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	mock.ExpectExec(regexp.QuoteMeta("DELETE n FROM notifications n")).
		WithArgs(now.AddDate(0, 0, -90)).
		WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notification_triggers")).
		WithArgs(now.AddDate(0, 0, -30)).
		WillReturnResult(sqlmock.NewResult(0, 34))

	summary, err := svc.CleanupOldData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), summary.Notifications)
	assert.Equal(t, int64(34), summary.Triggers)
	assert.NoError(t, mock.ExpectationsWereMet())
}
