package ocr

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Recognizer turns one image into text.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

// ImageResult is delivered once per processed image.
type ImageResult struct {
	JobID string
	Index int
	Text  string
	Err   error
}

// Job states
const (
	JobRunning  = "running"
	JobDone     = "done"
	JobStopped  = "stopped"
	JobCanceled = "canceled"
)

// JobStatus is a snapshot of a job.
type JobStatus struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	Total      int       `json:"total"`
	Processed  int       `json:"processed"`
	Errors     []string  `json:"errors"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

type job struct {
	mu     sync.Mutex
	status JobStatus
	stop   atomic.Bool
	done   chan struct{}
}

func (j *job) snapshot() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.status
	s.Errors = append([]string(nil), j.status.Errors...)
	return s
}

// DefaultJobRetention is how long a finished job stays queryable.
const DefaultJobRetention = time.Hour

// Runner executes recognition batches in the background. A job checks its
// stop flag between images; an image already sent is never interrupted.
type Runner struct {
	rec    Recognizer
	log    logrus.FieldLogger
	retain time.Duration
	clock  func() time.Time
	mu     sync.Mutex
	jobs   map[string]*job
}

func NewRunner(rec Recognizer, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		rec:    rec,
		log:    log,
		retain: DefaultJobRetention,
		clock:  time.Now,
		jobs:   make(map[string]*job),
	}
}

// WithRetention changes how long finished jobs are kept.
func (r *Runner) WithRetention(d time.Duration) *Runner {
	r.mu.Lock()
	r.retain = d
	r.mu.Unlock()
	return r
}

// pruneLocked drops jobs that finished more than the retention ago.
// Callers hold r.mu.
func (r *Runner) pruneLocked() {
	cutoff := r.clock().UTC().Add(-r.retain)
	for id, j := range r.jobs {
		j.mu.Lock()
		finished := j.status.FinishedAt
		j.mu.Unlock()
		if !finished.IsZero() && finished.Before(cutoff) {
			delete(r.jobs, id)
		}
	}
}

// Start launches a job over images and returns its id. onImage runs on the
// job goroutine after every image; its error is recorded against the image.
func (r *Runner) Start(ctx context.Context, images [][]byte, onImage func(ImageResult) error) string {
	j := &job{
		status: JobStatus{
			ID:        uuid.NewString(),
			State:     JobRunning,
			Total:     len(images),
			Errors:    []string{},
			StartedAt: r.clock().UTC(),
		},
		done: make(chan struct{}),
	}

	r.mu.Lock()
	r.pruneLocked()
	r.jobs[j.status.ID] = j
	r.mu.Unlock()

	go r.run(ctx, j, images, onImage)
	return j.status.ID
}

func (r *Runner) run(ctx context.Context, j *job, images [][]byte, onImage func(ImageResult) error) {
	defer close(j.done)
	log := r.log.WithField("job_id", j.status.ID)

	state := JobDone
	for i, img := range images {
		if j.stop.Load() {
			state = JobStopped
			break
		}
		if ctx.Err() != nil {
			state = JobCanceled
			break
		}

		text, err := r.rec.Recognize(ctx, img)
		res := ImageResult{JobID: j.status.ID, Index: i, Text: text, Err: err}
		if onImage != nil {
			if cbErr := onImage(res); cbErr != nil && err == nil {
				err = cbErr
			}
		}

		j.mu.Lock()
		j.status.Processed++
		if err != nil {
			j.status.Errors = append(j.status.Errors, fmt.Sprintf("image %d: %v", i, err))
		}
		j.mu.Unlock()

		if err != nil {
			log.WithField("image", i).WithError(err).Warn("ocr image failed")
		}
	}

	j.mu.Lock()
	j.status.State = state
	j.status.FinishedAt = r.clock().UTC()
	j.mu.Unlock()
	log.WithField("state", state).Info("ocr job finished")
}

// Stop raises the stop flag of job id. It reports false for unknown jobs.
func (r *Runner) Stop(id string) bool {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	j.stop.Store(true)
	return true
}

// Status returns a snapshot of job id. Expired jobs are reported unknown.
func (r *Runner) Status(id string) (JobStatus, bool) {
	r.mu.Lock()
	r.pruneLocked()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return JobStatus{}, false
	}
	return j.snapshot(), true
}

// Wait blocks until job id finishes or ctx ends.
func (r *Runner) Wait(ctx context.Context, id string) (JobStatus, error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return JobStatus{}, fmt.Errorf("unknown job %s", id)
	}
	select {
	case <-j.done:
		return j.snapshot(), nil
	case <-ctx.Done():
		return j.snapshot(), ctx.Err()
	}
}
