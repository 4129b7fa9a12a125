// Package worker runs the per-article processing pipeline off the ingest
// queue: fingerprint screening, embedding, then cluster assignment.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/newslens/hypetrack/internal/domain/assign"
	"github.com/newslens/hypetrack/internal/domain/embedding"
	"github.com/newslens/hypetrack/internal/domain/fingerprint"
	"github.com/newslens/hypetrack/internal/domain/model"
	"github.com/newslens/hypetrack/pkg/logger"
	"github.com/newslens/hypetrack/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 4
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Queue defines how workers receive articles.
type Queue interface {
	Dequeue(ctx context.Context) <-chan *model.Article
}

// Screener answers duplicate queries against remembered fingerprints.
// Forget withdraws a recorded fingerprint so a deferred article is not
// screened out as a duplicate of itself on retry.
type Screener interface {
	SeenAndRecord(id string, fp fingerprint.Fingerprint) fingerprint.Decision
	Forget(id string, fp fingerprint.Fingerprint)
}

// Assigner places an embedded article into a cluster.
type Assigner interface {
	Assign(ctx context.Context, art *model.Article) (assign.Decision, error)
}

// Worker consumes articles until its queue drains or shutdown is signaled.
type Worker struct {
	queue    Queue
	fps      *fingerprint.Service
	screener Screener
	provider embedding.Provider
	assigner Assigner
	deferred *Deferrals
	name     string

	shutdown chan struct{}
	done     chan struct{}

	log logger.Logger
}

// NewWorker creates a single pipeline worker.
func NewWorker(q Queue, fps *fingerprint.Service, screener Screener,
	provider embedding.Provider, assigner Assigner, deferred *Deferrals, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		fps:      fps,
		screener: screener,
		provider: provider,
		assigner: assigner,
		deferred: deferred,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		log:      logger.Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	articles := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case art, ok := <-articles:
			if !ok {
				return
			}
			w.process(ctx, art)
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight article.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.log.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

// process runs one article through the full pipeline. Input errors reject
// the article; resource errors defer it to the next batch; both leave the
// rest of the batch untouched.
func (w *Worker) process(ctx context.Context, art *model.Article) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if reason := validate(art); reason != "" {
		metrics.RecordArticleRejected(reason)
		w.log.Warn(ctx, "article rejected",
			logger.String("article", art.ID),
			logger.String("reason", reason))
		return
	}

	fp := w.fps.Compute(art.Title + "\n" + art.Text)
	art.ContentHash = strconv.FormatUint(fp.ExactHash, 16)
	if dec := w.screener.SeenAndRecord(art.ID, fp); dec.Duplicate {
		metrics.RecordArticleDuplicate(string(dec.Kind))
		w.log.Debug(ctx, "duplicate dropped",
			logger.String("article", art.ID),
			logger.String("kind", string(dec.Kind)),
			logger.String("of", dec.Of))
		return
	}

	embedStart := time.Now()
	vec, err := w.provider.Embed(ctx, art.Text)
	metrics.RecordEmbeddingLatency(float64(time.Since(embedStart).Microseconds()) / 1000.0)
	if err != nil {
		w.handleEmbedError(ctx, art, fp, err)
		return
	}
	art.Embedding = vec

	if _, err := w.assigner.Assign(ctx, art); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "assign")
		w.log.Error(ctx, "assignment failed",
			logger.String("article", art.ID),
			logger.String("entity", art.Entity),
			logger.Error(err))
		return
	}
	metrics.RecordArticleIngested()
}

// handleEmbedError splits the embedding failure taxonomy: unembeddable text
// is an input error and the article is rejected; provider trouble (timeouts
// included) is a resource error and the article is deferred for retry. A
// deferred article's fingerprint is withdrawn from the screener, otherwise
// the retry would match its own hash and drop as a duplicate of itself.
func (w *Worker) handleEmbedError(ctx context.Context, art *model.Article, fp fingerprint.Fingerprint, err error) {
	metrics.RecordEmbeddingError()
	switch {
	case errors.Is(err, embedding.ErrUnembeddable):
		metrics.RecordArticleRejected("unembeddable")
		w.log.Warn(ctx, "article not embeddable",
			logger.String("article", art.ID), logger.Error(err))
	case errors.Is(err, embedding.ErrProvider),
		errors.Is(err, context.DeadlineExceeded):
		w.screener.Forget(art.ID, fp)
		w.deferred.Add(art)
		metrics.RecordArticleDeferred()
		w.log.Warn(ctx, "embedding deferred",
			logger.String("article", art.ID), logger.Error(err))
	default:
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "embedding")
		w.log.Error(ctx, "embedding failed",
			logger.String("article", art.ID), logger.Error(err))
	}
}

func validate(art *model.Article) string {
	switch {
	case art.ID == "":
		return "missing_id"
	case art.Entity == "":
		return "missing_entity"
	case strings.TrimSpace(art.Text) == "":
		return "empty_text"
	case art.PublishedAt.IsZero():
		return "missing_published_at"
	}
	return ""
}

// Pool manages a fixed set of workers sharing one queue.
type Pool struct {
	workers []*Worker
	queue   Queue

	shutdown chan struct{}

	log logger.Logger
}

// NewPool creates a pool of count workers; count < 1 sizes the pool from
// the machine's CPU count.
func NewPool(count int, q Queue, fps *fingerprint.Service, screener Screener,
	provider embedding.Provider, assigner Assigner, deferred *Deferrals) *Pool {
	if count < 1 {
		count = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers:  make([]*Worker, count),
		queue:    q,
		shutdown: make(chan struct{}),
		log:      logger.Named("worker-pool"),
	}
	for i := 0; i < count; i++ {
		p.workers[i] = NewWorker(q, fps, screener, provider, assigner, deferred,
			WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerActive(count)
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for every worker to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.log.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.log.Warn(ctx, "worker shutdown timed out", logger.Int("worker", i))
		}
	}
	metrics.UpdateWorkerActive(0)
	return nil
}
