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

func TestScheduleTransactionReviewDueInOneDay(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_triggers")).
		WithArgs("transaction_review", int64(5), "transaction", int64(99), now.Add(24*time.Hour), now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := svc.ScheduleTransactionReview(context.Background(), 99, 5)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleActivityRemindersTwoTriggers(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock() // 2025-06-15 10:00 UTC

	activityDate := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	dayBefore := time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_triggers")).
		WithArgs("calendar_reminder", int64(5), "planting", int64(8), dayBefore, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_triggers")).
		WithArgs("calendar_reminder", int64(5), "planting", int64(8), activityDate, now).
		WillReturnResult(sqlmock.NewResult(2, 1))

	err := svc.ScheduleActivityReminders(context.Background(), 5, "planting", 8, activityDate)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleActivityRemindersSkipsNearDates(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	// Tomorrow, today and the past are the calendar scan's territory.
	for _, date := range []time.Time{now.AddDate(0, 0, 1), now, now.AddDate(0, 0, -3)} {
		err := svc.ScheduleActivityReminders(context.Background(), 5, "harvest_due", 8, date)
		require.NoError(t, err)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)

	// Calendar days, not 24-hour spans: half an hour before midnight, an
	// activity at 00:05 tomorrow is still "1 day away".
	assert.Equal(t, 1, daysUntil(now, time.Date(2025, 6, 16, 0, 5, 0, 0, time.UTC)))
	assert.Equal(t, 0, daysUntil(now, time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, -2, daysUntil(now, time.Date(2025, 6, 13, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 5, daysUntil(now, time.Date(2025, 6, 20, 6, 0, 0, 0, time.UTC)))
}
