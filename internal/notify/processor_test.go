package notify

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kevin-webdesign/smart-farm/internal/models"
)

func dueTriggerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "type", "user_id", "reference_type", "reference_id", "scheduled_at"})
}

func TestProcessDueTriggersEmptyQueue(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WithArgs(svc.clock(), svc.batchSize).
		WillReturnRows(dueTriggerRows())

	summary, err := svc.ProcessDueTriggers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.NotNil(t, summary.Errors)
	assert.Empty(t, summary.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessDueTriggersTransactionReviewSent(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WithArgs(now, svc.batchSize).
		WillReturnRows(dueTriggerRows().
			AddRow(10, "transaction_review", 5, "transaction", 99, now.Add(-time.Hour)))

	// Claim.
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing', claimed_by = ?, claimed_at = ?")).
		WithArgs("worker-test", now, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Handler re-resolves the transaction.
	mock.ExpectQuery(regexp.QuoteMeta("FROM farm_transactions ft")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "amount", "crop_activity", "created_by", "username"}).
			AddRow(99, "Expense", 120.50, "Fertilizer purchase", 5, "moses"))

	// Fan-out to active staff.
	mock.ExpectQuery(regexp.QuoteMeta("role IN ('staff', 'admin')")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2).AddRow(3))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(50, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_recipients")).
		WithArgs(int64(50), int64(2), int64(50), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	// Terminal update, guarded by the claim.
	mock.ExpectExec(regexp.QuoteMeta("SET status = ?")).
		WithArgs("sent", int64(10), "worker-test").
		WillReturnResult(sqlmock.NewResult(0, 1))

	summary, err := svc.ProcessDueTriggers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Sent)
	assert.Zero(t, summary.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessDueTriggersDeletedTransactionIsSent(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WillReturnRows(dueTriggerRows().
			AddRow(11, "transaction_review", 5, "transaction", 100, now.Add(-time.Hour)))

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing'")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// The transaction was deleted after the trigger was produced.
	mock.ExpectQuery(regexp.QuoteMeta("FROM farm_transactions ft")).
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "amount", "crop_activity", "created_by", "username"}))

	mock.ExpectExec(regexp.QuoteMeta("SET status = ?")).
		WithArgs("sent", int64(11), "worker-test").
		WillReturnResult(sqlmock.NewResult(0, 1))

	summary, err := svc.ProcessDueTriggers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessDueTriggersUnknownTypeStaysPending(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WillReturnRows(dueTriggerRows().
			AddRow(12, "frost_warning", 5, "planting", 3, now.Add(-time.Hour)))

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing'")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Released back to pending, untouched.
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'pending', claimed_by = NULL")).
		WithArgs(int64(12), "worker-test").
		WillReturnResult(sqlmock.NewResult(0, 1))

	summary, err := svc.ProcessDueTriggers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.Equal(t, 1, summary.Unknown)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessDueTriggersLostClaimIsSkipped(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WillReturnRows(dueTriggerRows().
			AddRow(13, "transaction_review", 5, "transaction", 99, now.Add(-time.Hour)))

	// Another worker claimed it between the select and our update.
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing'")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	summary, err := svc.ProcessDueTriggers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.Empty(t, summary.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessDueTriggersHandlerFailureIsIsolated(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WillReturnRows(dueTriggerRows().
			AddRow(20, "transaction_review", 5, "transaction", 1, now.Add(-time.Hour)).
			AddRow(21, "transaction_review", 5, "transaction", 2, now.Add(-time.Minute)))

	// First trigger: the handler query blows up.
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM farm_transactions ft")).
		WithArgs(int64(1)).
		WillReturnError(assert.AnError)
	mock.ExpectExec(regexp.QuoteMeta("SET status = ?")).
		WithArgs("failed", int64(20), "worker-test").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Second trigger still runs and succeeds (deleted reference, no-op).
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM farm_transactions ft")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "amount", "crop_activity", "created_by", "username"}))
	mock.ExpectExec(regexp.QuoteMeta("SET status = ?")).
		WithArgs("sent", int64(21), "worker-test").
		WillReturnResult(sqlmock.NewResult(0, 1))

	summary, err := svc.ProcessDueTriggers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, int64(20), summary.Errors[0].TriggerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessDueTriggersBatchesUntilDrained(t *testing.T) {
	svc, mock := newTestService(t)
	svc.batchSize = 1
	now := svc.clock()

	// First batch: one unknown trigger, released back to pending.
	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WithArgs(now, 1).
		WillReturnRows(dueTriggerRows().
			AddRow(30, "frost_warning", 5, "planting", 3, now.Add(-time.Hour)))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'pending', claimed_by = NULL")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Second batch returns the same pending row. The pass must recognize it
	// and stop instead of spinning.
	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WithArgs(now, 1).
		WillReturnRows(dueTriggerRows().
			AddRow(30, "frost_warning", 5, "planting", 3, now.Add(-time.Hour)))

	summary, err := svc.ProcessDueTriggers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unknown)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCalendarReminderDeliversToOwner(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WillReturnRows(dueTriggerRows().
			AddRow(41, "calendar_reminder", 5, "planting", 8, now.Add(-time.Hour)))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing'")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Plan still live, planting due today.
	mock.ExpectQuery(regexp.QuoteMeta("FROM crop_plans")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"crop_name", "planting_date", "expected_harvest_date", "status"}).
			AddRow("Maize", now, nil, "planned"))

	// One notification to the trigger's owner, carrying the trigger ID.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(int64(41), "Today: Plant Maize", sqlmock.AnyArg(), "info", "high", "calendar",
			sqlmock.AnyArg(), "system", now).
		WillReturnResult(sqlmock.NewResult(80, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_recipients")).
		WithArgs(int64(80), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectExec(regexp.QuoteMeta("SET status = ?")).
		WithArgs("sent", int64(41), "worker-test").
		WillReturnResult(sqlmock.NewResult(0, 1))

	summary, err := svc.ProcessDueTriggers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCalendarReminderHarvestedPlanIsNoOp(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WillReturnRows(dueTriggerRows().
			AddRow(40, "calendar_reminder", 5, "planting", 8, now.Add(-time.Hour)))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing'")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// The crop was harvested before the reminder fired; no notification.
	mock.ExpectQuery(regexp.QuoteMeta("FROM crop_plans")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"crop_name", "planting_date", "expected_harvest_date", "status"}).
			AddRow("Maize", now.AddDate(0, 0, -30), now, "harvested"))

	mock.ExpectExec(regexp.QuoteMeta("SET status = ?")).
		WithArgs("sent", int64(40), "worker-test").
		WillReturnResult(sqlmock.NewResult(0, 1))

	summary, err := svc.ProcessDueTriggers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessDueTriggersHonorsCancellation(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WillReturnRows(dueTriggerRows().
			AddRow(50, "transaction_review", 5, "transaction", 1, now.Add(-time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ProcessDueTriggers(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcessDueTriggersMidHandlerCancelReleasesClaim(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shutdown arrives while the handler holds the claim.
	svc.dispatch["soil_check"] = func(ctx context.Context, trigger models.Trigger) error {
		cancel()
		return ctx.Err()
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WillReturnRows(dueTriggerRows().
			AddRow(60, "soil_check", 5, "planting", 3, now.Add(-time.Hour)))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing'")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// The claim must be handed back even though the pass context is dead,
	// so the next pass can pick the trigger up again.
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'pending', claimed_by = NULL")).
		WithArgs(int64(60), "worker-test").
		WillReturnResult(sqlmock.NewResult(0, 1))

	summary, err := svc.ProcessDueTriggers(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.Zero(t, summary.Failed)
	assert.Empty(t, summary.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessDueTriggersClaimErrorReportedSeparately(t *testing.T) {
	svc, mock := newTestService(t)
	now := svc.clock()

	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_triggers nt")).
		WillReturnRows(dueTriggerRows().
			AddRow(70, "transaction_review", 5, "transaction", 9, now.Add(-time.Hour)))

	// The claim update itself errors; the row never left pending, so it is
	// neither processed nor failed.
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing'")).
		WillReturnError(assert.AnError)

	summary, err := svc.ProcessDueTriggers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ClaimErrors)
	assert.Zero(t, summary.Processed)
	assert.Zero(t, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, int64(70), summary.Errors[0].TriggerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderText(t *testing.T) {
	title, _, severity, priority := reminderText("planting", "Beans", 0)
	assert.Equal(t, "Today: Plant Beans", title)
	assert.Equal(t, "info", severity)
	assert.Equal(t, "high", priority)

	title, _, _, priority = reminderText("harvest", "Beans", 1)
	assert.Equal(t, "Tomorrow: Harvest Beans", title)
	assert.Equal(t, "medium", priority)

	title, message, severity, _ := reminderText("harvest", "Beans", -3)
	assert.Equal(t, "Overdue: Harvest Beans", title)
	assert.Contains(t, message, "3 days overdue")
	assert.Equal(t, "warning", severity)
}
