package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/voice-inventory/internal/jobs"
)

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	seed := []*jobs.SyncLedgerJob{
		{JobID: "a", OwnerID: "o1", Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "b", OwnerID: "o1", Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Hour)},
		{JobID: "c", OwnerID: "o2", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(2 * time.Hour)},
		{JobID: "d", OwnerID: "o1", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, j := range seed {
		if err := s.SaveJob(ctx, j); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{name: "owner", filter: jobs.JobFilter{OwnerID: "o1"}, want: []string{"d", "b", "a"}},
		{name: "owner and status", filter: jobs.JobFilter{OwnerID: "o1", Status: jobs.JobStatusCompleted}, want: []string{"d", "a"}},
		{name: "limit", filter: jobs.JobFilter{OwnerID: "o1", Limit: 1}, want: []string{"d"}},
		{name: "offset", filter: jobs.JobFilter{OwnerID: "o1", Offset: 2}, want: []string{"a"}},
		{name: "offset past end", filter: jobs.JobFilter{Offset: 10}, want: []string{}},
		{name: "all", filter: jobs.JobFilter{}, want: []string{"d", "c", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListJobs() returned %d jobs, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].JobID != id {
					t.Errorf("got[%d] = %s, want %s", i, got[i].JobID, id)
				}
			}
		})
	}
}

func TestStore_CopiesJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	job := &jobs.SyncLedgerJob{JobID: "a", Stats: &jobs.SyncStats{Created: 1}}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatal(err)
	}
	job.Stats.Created = 99

	got, _ := s.GetJob(ctx, "a")
	if got.Stats.Created != 1 {
		t.Errorf("stored stats aliased caller: Created = %d", got.Stats.Created)
	}
}

func TestStore_NotFound(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob() error = %v, want ErrJobNotFound", err)
	}
	if err := s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, "x"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("UpdateJobStatus() error = %v, want ErrJobNotFound", err)
	}
	if err := s.SaveJob(ctx, &jobs.SyncLedgerJob{}); err == nil {
		t.Error("SaveJob() without ID expected error")
	}
}
