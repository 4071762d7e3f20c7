package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/notify"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("render queue is shut down")

// Generator renders and stores the document of an infraction.
type Generator interface {
	Generate(ctx context.Context, infractionID int64) (*notify.GenerateResult, error)
}

// RenderQueue runs document generation on a fixed pool of workers.
type RenderQueue struct {
	gen      Generator
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult func(JobResult)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex // guards closed and the channel's lifetime
	closed bool

	pendMu  sync.Mutex
	pending map[int64]int      // queued or rendering jobs per infraction
	parked  map[int64]struct{} // last render had no usable template

	processed atomic.Int64
	failed    atomic.Int64
}

type Option func(*RenderQueue)

func WithWorkers(n int) Option {
	return func(q *RenderQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *RenderQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(q *RenderQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithResultHandler registers fn to be called from the worker after each job.
func WithResultHandler(fn func(JobResult)) Option {
	return func(q *RenderQueue) {
		q.onResult = fn
	}
}

func NewRenderQueue(gen Generator, logger *slog.Logger, opts ...Option) *RenderQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &RenderQueue{
		gen:     gen,
		logger:  logger,
		workers: 4,
		timeout: time.Minute,
		ch:      make(chan Job, 256),
		pending: map[int64]int{},
		parked:  map[int64]struct{}{},
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RenderQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *RenderQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(common.WithRequestID(context.Background(), job.TraceID), q.timeout)
	res, err := q.gen.Generate(ctx, job.InfractionID)
	cancel()

	q.release(job.InfractionID)
	noTemplate := errors.Is(err, common.ErrTemplateUnavailable)
	wasParked := q.park(job.InfractionID, noTemplate)

	out := JobResult{Job: job, Err: err}
	switch {
	case noTemplate && !wasParked:
		q.failed.Add(1)
		q.logger.Warn("render.job.template_unavailable", "worker_id", workerID, "infraction_id", job.InfractionID, "trace_id", job.TraceID, "error", err)
	case noTemplate:
		q.failed.Add(1)
		q.logger.Debug("render.job.template_unavailable", "infraction_id", job.InfractionID, "trace_id", job.TraceID)
	case err != nil:
		q.failed.Add(1)
		q.logger.Error("render.job.failed", "worker_id", workerID, "infraction_id", job.InfractionID, "trace_id", job.TraceID, "error", err)
	default:
		q.processed.Add(1)
		out.Path, out.Warnings = res.Path, res.Warnings
		q.logger.Info("render.job.ok", "worker_id", workerID, "infraction_id", job.InfractionID, "trace_id", job.TraceID, "path", res.Path)
	}
	if q.onResult != nil {
		q.onResult(out)
	}
}

// Enqueue hands a job to the workers, blocking while the queue is full.
func (q *RenderQueue) Enqueue(ctx context.Context, job Job) error {
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "infraction_id", job.InfractionID)
		return ErrQueueClosed
	}
	q.hold(job.InfractionID)
	select {
	case q.ch <- job:
		q.logger.Debug("queued render job", "infraction_id", job.InfractionID, "trace_id", job.TraceID)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "infraction_id", job.InfractionID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		q.release(job.InfractionID)
		return ctx.Err()
	}
}

func (q *RenderQueue) hold(id int64) {
	q.pendMu.Lock()
	q.pending[id]++
	q.pendMu.Unlock()
}

func (q *RenderQueue) release(id int64) {
	q.pendMu.Lock()
	if q.pending[id] <= 1 {
		delete(q.pending, id)
	} else {
		q.pending[id]--
	}
	q.pendMu.Unlock()
}

// park records whether the last render of id lacked a template and reports
// whether it was already parked.
func (q *RenderQueue) park(id int64, noTemplate bool) bool {
	q.pendMu.Lock()
	defer q.pendMu.Unlock()
	_, was := q.parked[id]
	if noTemplate {
		q.parked[id] = struct{}{}
	} else {
		delete(q.parked, id)
	}
	return was
}

// Parked reports whether the last render of the infraction failed for lack
// of a template. Sweep skips parked infractions; Enqueue still accepts them.
func (q *RenderQueue) Parked(id int64) bool {
	q.pendMu.Lock()
	defer q.pendMu.Unlock()
	_, ok := q.parked[id]
	return ok
}

// Pending reports whether a job for the infraction is queued or rendering.
func (q *RenderQueue) Pending(id int64) bool {
	q.pendMu.Lock()
	defer q.pendMu.Unlock()
	return q.pending[id] > 0
}

// PendingSource lists infractions that still need a document.
type PendingSource interface {
	PendingInfractions(ctx context.Context, limit int) ([]int64, error)
}

// Sweep enqueues up to limit pending infractions that are neither queued nor
// parked and returns how many were added.
func (q *RenderQueue) Sweep(ctx context.Context, src PendingSource, limit int) (int, error) {
	ids, err := src.PendingInfractions(ctx, limit)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, id := range ids {
		if q.Pending(id) || q.Parked(id) {
			continue
		}
		if err := q.Enqueue(ctx, Job{InfractionID: id}); err != nil {
			return added, err
		}
		added++
	}
	if added > 0 {
		q.logger.Info("render.sweep.queued", "count", added)
	}
	return added, nil
}

// Shutdown stops accepting jobs and waits for queued ones to finish, or for
// ctx to end.
func (q *RenderQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("render queue drained", "processed", q.processed.Load(), "failed", q.failed.Load())
	}
}

// Counts returns how many jobs succeeded and failed so far.
func (q *RenderQueue) Counts() (processed, failed int64) {
	return q.processed.Load(), q.failed.Load()
}
