// Package redisstore keeps job state in Redis so it survives API restarts
// and is shared between instances.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/voice-inventory/internal/jobs"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "voice-inventory:jobs"

// Store implements jobs.JobStore. Each job is a JSON string; sorted sets
// keyed by creation time index all jobs and each owner's jobs.
type Store struct {
	client *redis.Client
	prefix string

	// TTL expires finished job records; zero keeps them forever.
	TTL time.Duration
}

// New connects to the Redis server at url and verifies the connection.
func New(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewWithClient(client, defaultPrefix), nil
}

// NewWithClient wraps an existing client. prefix namespaces every key.
func NewWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) jobKey(id string) string { return s.prefix + ":job:" + id }
func (s *Store) allKey() string          { return s.prefix + ":all" }
func (s *Store) ownerKey(owner string) string {
	return s.prefix + ":owner:" + owner
}

func (s *Store) ttlFor(job *jobs.SyncLedgerJob) time.Duration {
	switch job.Status {
	case jobs.JobStatusCompleted, jobs.JobStatusFailed:
		return s.TTL
	}
	return 0
}

// SaveJob implements jobs.JobStore.
func (s *Store) SaveJob(ctx context.Context, job *jobs.SyncLedgerJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("SaveJob: encoding job: %w", err)
	}

	score := float64(job.CreatedAt.UnixNano())
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.jobKey(job.JobID), data, s.ttlFor(job))
		pipe.ZAdd(ctx, s.allKey(), redis.Z{Score: score, Member: job.JobID})
		if job.OwnerID != "" {
			pipe.ZAdd(ctx, s.ownerKey(job.OwnerID), redis.Z{Score: score, Member: job.JobID})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("SaveJob: %w", err)
	}
	return nil
}

// GetJob implements jobs.JobStore.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.SyncLedgerJob, error) {
	data, err := s.client.Get(ctx, s.jobKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("GetJob: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (*jobs.SyncLedgerJob, error) {
	var job jobs.SyncLedgerJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decoding job: %w", err)
	}
	return &job, nil
}

// ListJobs implements jobs.JobStore. Index entries whose job record has
// expired are pruned as they are encountered.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.SyncLedgerJob, error) {
	index := s.allKey()
	if filter.OwnerID != "" {
		index = s.ownerKey(filter.OwnerID)
	}

	ids, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ListJobs: reading index: %w", err)
	}
	if len(ids) == 0 {
		return []*jobs.SyncLedgerJob{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.jobKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("ListJobs: reading jobs: %w", err)
	}

	result := []*jobs.SyncLedgerJob{}
	var expired []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		job, err := decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("ListJobs: job %s: %w", ids[i], err)
		}
		if filter.Matches(job) {
			result = append(result, job)
		}
	}
	if len(expired) > 0 {
		s.client.ZRem(ctx, index, expired...)
	}

	return filter.Page(result), nil
}

// UpdateJobStatus implements jobs.JobStore using optimistic locking on the
// job key.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	key := s.jobKey(jobID)

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
		}
		if err != nil {
			return fmt.Errorf("UpdateJobStatus: %w", err)
		}
		job, err := decode(data)
		if err != nil {
			return err
		}
		job.Status = status
		if errorMsg != "" {
			job.Error = errorMsg
		}
		updated, err := json.Marshal(job)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.ttlFor(job))
			return nil
		})
		return err
	}, key)
}

var _ jobs.JobStore = (*Store)(nil)
