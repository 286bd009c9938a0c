package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/voice-inventory/internal/jobs"
)

// waitForStatus polls the store until the job reaches want or the deadline passes.
func waitForStatus(t *testing.T, s *Store, id string, want jobs.JobStatus) *jobs.SyncLedgerJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := s.GetJob(context.Background(), id)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := s.GetJob(context.Background(), id)
	t.Fatalf("job %s did not reach %s, last state %+v", id, want, job)
	return nil
}

func newTestQueue(store *Store) *Queue {
	q := NewQueue(10, 2, store)
	q.backoff = func(int) time.Duration { return time.Millisecond }
	return q
}

func TestQueue_ProcessesJob(t *testing.T) {
	store := NewStore()
	q := newTestQueue(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		job.(*jobs.SyncLedgerJob).Stats = &jobs.SyncStats{Created: 3}
		return nil
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer q.Close()

	job := &jobs.SyncLedgerJob{OwnerID: "owner-1"}
	if err := q.PublishSyncLedger(ctx, job); err != nil {
		t.Fatalf("PublishSyncLedger() error = %v", err)
	}
	if job.JobID == "" || job.MaxRetries != DefaultMaxRetries {
		t.Errorf("defaults not applied: %+v", job)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.Stats == nil || done.Stats.Created != 3 {
		t.Errorf("Stats = %+v, want Created=3", done.Stats)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("timestamps not recorded")
	}
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	store := NewStore()
	q := newTestQueue(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts int32
	_ = q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("notion rate limited")
		}
		return nil
	})
	defer q.Close()

	job := &jobs.SyncLedgerJob{OwnerID: "owner-1"}
	if err := q.PublishSyncLedger(ctx, job); err != nil {
		t.Fatal(err)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", done.RetryCount)
	}
	if done.Error != "" {
		t.Errorf("Error = %q, want cleared", done.Error)
	}
}

func TestQueue_FailsAfterMaxRetries(t *testing.T) {
	store := NewStore()
	q := newTestQueue(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		panic("bad page")
	})
	defer q.Close()

	job := &jobs.SyncLedgerJob{OwnerID: "owner-1", MaxRetries: 1}
	if err := q.PublishSyncLedger(ctx, job); err != nil {
		t.Fatal(err)
	}

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if failed.Error != "job handler panicked: bad page" {
		t.Errorf("Error = %q", failed.Error)
	}
}

func TestQueue_ClosedRejectsWork(t *testing.T) {
	q := NewQueue(1, 1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := q.PublishSyncLedger(context.Background(), &jobs.SyncLedgerJob{}); err == nil {
		t.Error("PublishSyncLedger() on closed queue expected error")
	}
	if err := q.Start(context.Background(), nil); err == nil {
		t.Error("Start() on closed queue expected error")
	}
}
