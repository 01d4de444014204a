package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
)

// Status is a snapshot of the tracked run.
type Status struct {
	Running    bool       `json:"running"`
	Kind       string     `json:"kind,omitempty"`
	Progress   float64    `json:"progress"`
	Message    string     `json:"message"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	FinishTime *time.Time `json:"finish_time,omitempty"`
	Error      string     `json:"error,omitempty"`
	LastRun    *RunStats  `json:"last_run,omitempty"`
}

// RunFunc performs one run, reporting progress in percent.
type RunFunc func(ctx context.Context, report func(percent float64, message string)) (*RunStats, error)

// Tracker allows one background run at a time and exposes its status.
type Tracker struct {
	base   context.Context
	mu     sync.Mutex
	status Status
	done   chan struct{}
	logger *slog.Logger
}

// NewTracker runs jobs under base, so they outlive the request that started
// them and stop on shutdown.
func NewTracker(base context.Context) *Tracker {
	done := make(chan struct{})
	close(done)
	return &Tracker{
		base:   base,
		status: Status{Message: "idle"},
		done:   done,
		logger: slog.Default().With("component", "index-tracker"),
	}
}

// Start launches fn in the background. It returns ErrRunInProgress if a run
// is already active.
func (t *Tracker) Start(kind string, fn RunFunc) error {
	t.mu.Lock()
	if t.status.Running {
		t.mu.Unlock()
		return apperrors.New(apperrors.ErrRunInProgress, http.StatusConflict, "indexing is already in progress")
	}
	now := time.Now().UTC()
	t.status = Status{
		Running:   true,
		Kind:      kind,
		Message:   "starting " + kind + " indexing",
		StartTime: &now,
		LastRun:   t.status.LastRun,
	}
	done := make(chan struct{})
	t.done = done
	t.mu.Unlock()

	go func() {
		defer close(done)
		stats, err := fn(t.base, t.report)
		t.finish(stats, err)
	}()
	return nil
}

func (t *Tracker) report(percent float64, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Progress = percent
	if message != "" {
		t.status.Message = message
	}
}

func (t *Tracker) finish(stats *RunStats, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now().UTC()
	t.status.Running = false
	t.status.FinishTime = &now
	if stats != nil {
		t.status.LastRun = stats
	}
	if err != nil {
		t.status.Error = err.Error()
		t.status.Message = t.status.Kind + " indexing failed"
		t.logger.Error("tracked run failed", "kind", t.status.Kind, "error", err)
		return
	}
	t.status.Progress = 100
	t.status.Message = t.status.Kind + " indexing completed"
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Done is closed when the current run, if any, finishes.
func (t *Tracker) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Job adapts Reindex into a tracked run.
func (p *Pipeline) Job(opts Options) RunFunc {
	return func(ctx context.Context, report func(float64, string)) (*RunStats, error) {
		opts.Progress = progressReporter(report, "postings")
		return p.Reindex(ctx, opts)
	}
}

// Job adapts IndexVectors into a tracked run.
func (v *VectorIndexer) Job(opts Options) RunFunc {
	return func(ctx context.Context, report func(float64, string)) (*RunStats, error) {
		opts.Progress = progressReporter(report, "pages")
		return v.IndexVectors(ctx, opts)
	}
}

func progressReporter(report func(float64, string), unit string) func(done, total int) {
	return func(done, total int) {
		if total <= 0 {
			return
		}
		report(100*float64(done)/float64(total), fmt.Sprintf("%d/%d %s processed", done, total, unit))
	}
}
