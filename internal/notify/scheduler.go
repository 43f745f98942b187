package notify

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

//
// --- Scheduler ---
//
// The scheduler owns the background cadence of the trigger subsystem. Each
// job carries its own busy flag: a tick that arrives while the previous run
// of the same job is still going is skipped, not queued. Different jobs
// still overlap freely.
//

type scheduledJob struct {
	name string
	spec string
	run  func(ctx context.Context)
	busy atomic.Bool
}

// Scheduler drives the periodic scans, the trigger processor, and the daily
// cleanup on fixed cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	jobs   []*scheduledJob
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler wires the standard job set for svc. Nothing runs until
// Start is called.
func NewScheduler(svc *Service) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(),
		ctx:    ctx,
		cancel: cancel,
	}

	s.jobs = []*scheduledJob{
		{
			name: "calendar-scan",
			spec: "0 */4 * * *",
			run: func(ctx context.Context) {
				summary, err := svc.CheckCalendarNotifications(ctx)
				logJobResult("calendar-scan", summary, err)
			},
		},
		{
			name: "transaction-scan",
			spec: "*/15 * * * *",
			run: func(ctx context.Context) {
				summary, err := svc.ProcessTransactionNotifications(ctx)
				logJobResult("transaction-scan", summary, err)
			},
		},
		{
			name: "trigger-processor",
			spec: "*/30 * * * *",
			run: func(ctx context.Context) {
				summary, err := svc.ProcessDueTriggers(ctx)
				logJobResult("trigger-processor", summary, err)
			},
		},
		{
			name: "cleanup",
			spec: "0 3 * * *",
			run: func(ctx context.Context) {
				summary, err := svc.CleanupOldData(ctx)
				logJobResult("cleanup", summary, err)
			},
		},
	}
	return s
}

// Start registers every job with cron and begins ticking. It returns an
// error only when a cron spec fails to parse, which means a typo in this
// file rather than a runtime condition.
func (s *Scheduler) Start() error {
	for _, job := range s.jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() { s.runJob(job) }); err != nil {
			return err
		}
	}
	s.cron.Start()
	log.Printf("scheduler: started with %d jobs", len(s.jobs))
	return nil
}

// Stop cancels the shared context so in-flight jobs wind down between
// triggers, then waits for cron's own run loop to drain.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Println("scheduler: stopped")
}

func (s *Scheduler) runJob(job *scheduledJob) {
	if !job.busy.CompareAndSwap(false, true) {
		log.Printf("scheduler: %s still running, skipping tick", job.name)
		return
	}
	defer job.busy.Store(false)

	job.run(s.ctx)
}

func logJobResult(name string, summary interface{}, err error) {
	if err != nil {
		log.Printf("scheduler: %s failed: %v", name, err)
		return
	}
	log.Printf("scheduler: %s done: %+v", name, summary)
}
