// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// jobKeyPrefix is the Valkey key prefix for job records.
	jobKeyPrefix = "job:"

	// DefaultTTL is how long a job record is kept after its last update.
	DefaultTTL = time.Hour
)

// ErrNotFound is returned for unknown or expired job ids.
var ErrNotFound = errors.New("jobs: not found")

// Status is a job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is the stored record of one asynchronous generation.
type Job struct {
	ID        uuid.UUID       `json:"id"`
	Status    Status          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Done reports whether the job reached a final state.
func (j *Job) Done() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// Store persists jobs in Valkey with a TTL. Safe for concurrent use.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a job store backed by the given Valkey client.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// Key returns the Valkey key for a job id.
func Key(id uuid.UUID) string {
	return jobKeyPrefix + id.String()
}

// Create stores a new pending job.
func (s *Store) Create(ctx context.Context) (*Job, error) {
	now := time.Now().UTC()
	j := &Job{ID: uuid.New(), Status: StatusPending, CreatedAt: now, UpdatedAt: now}
	if err := s.save(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// Get loads a job. Returns ErrNotFound when it does not exist or expired.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	val, err := s.client.Get(ctx, Key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	var j Job
	if err := json.Unmarshal(val, &j); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &j, nil
}

// MarkRunning moves a job to running.
func (s *Store) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return s.update(ctx, id, func(j *Job) { j.Status = StatusRunning })
}

// Succeed stores the job's result.
func (s *Store) Succeed(ctx context.Context, id uuid.UUID, result any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", id, err)
	}
	return s.update(ctx, id, func(j *Job) {
		j.Status = StatusSucceeded
		j.Result = raw
		j.Error = ""
	})
}

// Fail records a failure message visible to the client.
func (s *Store) Fail(ctx context.Context, id uuid.UUID, msg string) error {
	return s.update(ctx, id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = msg
	})
}

func (s *Store) update(ctx context.Context, id uuid.UUID, fn func(*Job)) error {
	j, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	fn(j)
	j.UpdatedAt = time.Now().UTC()
	return s.save(ctx, j)
}

func (s *Store) save(ctx context.Context, j *Job) error {
	raw, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", j.ID, err)
	}
	if err := s.client.Set(ctx, Key(j.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save job %s: %w", j.ID, err)
	}
	return nil
}

// Func is the work of one job. Its error message is stored on failure.
type Func func(ctx context.Context) (any, error)

// Runner executes jobs in the background and records their outcome.
type Runner struct {
	store   *Store
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner creates a runner that bounds each job by timeout.
func NewRunner(store *Store, timeout time.Duration) *Runner {
	return &Runner{store: store, timeout: timeout}
}

// Start creates a pending job and runs fn for it in a new goroutine. The
// job outlives the request that started it, so it gets its own context.
func (r *Runner) Start(ctx context.Context, fn Func) (*Job, error) {
	j, err := r.store.Create(ctx)
	if err != nil {
		return nil, err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(j.ID, fn)
	}()
	return j, nil
}

func (r *Runner) run(id uuid.UUID, fn Func) {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.store.MarkRunning(ctx, id); err != nil {
		slog.Error("job mark running failed", "job", id, "error", err)
	}

	started := time.Now()
	result, err := call(ctx, id, fn)

	// Record the outcome even if the job's own deadline has passed.
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err != nil {
		slog.Warn("job failed", "job", id, "duration", time.Since(started), "error", err)
		if ferr := r.store.Fail(saveCtx, id, err.Error()); ferr != nil {
			slog.Error("job fail record failed", "job", id, "error", ferr)
		}
		return
	}
	if serr := r.store.Succeed(saveCtx, id, result); serr != nil {
		slog.Error("job result record failed", "job", id, "error", serr)
		return
	}
	slog.Info("job succeeded", "job", id, "duration", time.Since(started))
}

// ErrPanicked is the failure recorded for a job whose function panicked.
var ErrPanicked = errors.New("generation failed")

// call runs fn and turns a panic into ErrPanicked so one bad job cannot
// take the process down.
func call(ctx context.Context, id uuid.UUID, fn Func) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("job panic recovered",
				"job", id,
				"error", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			result, err = nil, ErrPanicked
		}
	}()
	return fn(ctx)
}

// Wait blocks until every started job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
