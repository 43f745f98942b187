package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerSpecsParse(t *testing.T) {
	svc, _ := newTestService(t)
	sched := NewScheduler(svc)

	require.NoError(t, sched.Start())
	sched.Stop()
}

func TestRunJobSkipsWhileBusy(t *testing.T) {
	svc, _ := newTestService(t)
	sched := NewScheduler(svc)
	defer sched.cancel()

	started := make(chan struct{})
	release := make(chan struct{})
	var runs int
	var mu sync.Mutex

	job := &scheduledJob{
		name: "slow-job",
		run: func(ctx context.Context) {
			mu.Lock()
			runs++
			mu.Unlock()
			close(started)
			<-release
		},
	}

	go sched.runJob(job)
	<-started

	// A tick arriving mid-run is dropped, not queued.
	sched.runJob(job)
	close(release)

	mu.Lock()
	assert.Equal(t, 1, runs)
	mu.Unlock()
}

func TestRunJobRunsAgainAfterFinish(t *testing.T) {
	svc, _ := newTestService(t)
	sched := NewScheduler(svc)
	defer sched.cancel()

	var runs int
	job := &scheduledJob{
		name: "quick-job",
		run:  func(ctx context.Context) { runs++ },
	}

	sched.runJob(job)
	sched.runJob(job)
	assert.Equal(t, 2, runs)
}

func TestSchedulerStopCancelsJobContext(t *testing.T) {
	svc, _ := newTestService(t)
	sched := NewScheduler(svc)
	require.NoError(t, sched.Start())

	var jobCtx context.Context
	done := make(chan struct{})
	job := &scheduledJob{
		name: "ctx-job",
		run: func(ctx context.Context) {
			jobCtx = ctx
			close(done)
		},
	}
	go sched.runJob(job)
	<-done

	sched.Stop()

	select {
	case <-jobCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("job context was not cancelled by Stop")
	}
}
