package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/Kevin-webdesign/smart-farm/internal/models"
)

// defaultBatchSize caps how many due triggers one processing pass loads at a
// time. The processor keeps fetching batches until it drains the queue, so
// the cap bounds memory per query, not total work per tick.
const defaultBatchSize = 500

// recipientChunkSize bounds the number of rows in one multi-row
// notification_recipients INSERT.
const recipientChunkSize = 1000

type handlerFunc func(ctx context.Context, trigger models.Trigger) error

// Service owns the notification trigger subsystem: the producer that
// schedules reminder triggers, the processor that fires due ones, the
// periodic scans, and the notification fan-out they all share.
//
// The clock is a field so tests (and the daily cleanup) can pin "now".
type Service struct {
	db        *sql.DB
	clock     func() time.Time
	workerID  string
	batchSize int

	dispatch map[models.TriggerType]handlerFunc
}

// NewService builds the trigger service around the shared connection pool.
// Each service instance gets its own worker ID; claims are tagged with it so
// two replicas never run the same trigger's handler.
func NewService(db *sql.DB) *Service {
	s := &Service{
		db:        db,
		clock:     time.Now,
		workerID:  uuid.NewString(),
		batchSize: defaultBatchSize,
	}

	// The closed dispatch table. Adding a trigger type is a compile-time
	// checked addition here, not a string case somewhere in a switch.
	s.dispatch = map[models.TriggerType]handlerFunc{
		models.TriggerCalendarReminder:  s.handleCalendarReminder,
		models.TriggerActivityFollowup:  s.handleActivityFollowup,
		models.TriggerTransactionReview: s.handleTransactionReview,
	}
	return s
}

const triggerStatsQuery = `
	SELECT status, COUNT(*)
	FROM notification_triggers
	GROUP BY status`

// TriggerStats reports trigger counts by status. Pending rows with unknown
// types pile up here, which is how operators notice them.
type TriggerStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Cancelled  int64 `json:"cancelled"`
}

func (s *Service) Stats(ctx context.Context) (TriggerStats, error) {
	var stats TriggerStats

	rows, err := s.db.QueryContext(ctx, triggerStatsQuery)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		switch status {
		case models.TriggerPending:
			stats.Pending = count
		case models.TriggerProcessing:
			stats.Processing = count
		case models.TriggerSent:
			stats.Sent = count
		case models.TriggerFailed:
			stats.Failed = count
		case models.TriggerCancelled:
			stats.Cancelled = count
		}
	}
	return stats, rows.Err()
}
