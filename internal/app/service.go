// Package app wires the engine together: intake queue, processing workers,
// cluster store, lifecycle maintenance, signal normalization, and scoring,
// behind one Service facade the transport layer talks to.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newslens/hypetrack/internal/adapters/hirlog"
	"github.com/newslens/hypetrack/internal/adapters/mq/queue"
	"github.com/newslens/hypetrack/internal/adapters/mq/worker"
	"github.com/newslens/hypetrack/internal/adapters/repository"
	"github.com/newslens/hypetrack/internal/config"
	"github.com/newslens/hypetrack/internal/domain/assign"
	"github.com/newslens/hypetrack/internal/domain/credibility"
	"github.com/newslens/hypetrack/internal/domain/embedding"
	"github.com/newslens/hypetrack/internal/domain/entities"
	"github.com/newslens/hypetrack/internal/domain/fingerprint"
	"github.com/newslens/hypetrack/internal/domain/impact"
	"github.com/newslens/hypetrack/internal/domain/lifecycle"
	"github.com/newslens/hypetrack/internal/domain/model"
	"github.com/newslens/hypetrack/internal/domain/scoring"
	"github.com/newslens/hypetrack/pkg/logger"
)

// Service is the running engine.
type Service struct {
	cfg *config.Config

	registry    *entities.Registry
	credibility *credibility.Table
	store       *repository.Store
	fps         *fingerprint.Service
	index       *fingerprint.Index
	provider    embedding.Provider
	engine      *assign.Engine
	lifecycle   *lifecycle.Manager
	normalizer  *impact.Normalizer
	ledger      *impact.Ledger
	combiner    *impact.Combiner
	scorer      *scoring.Scorer
	hirLog      *hirlog.Store
	queue       *queue.InMemory
	pool        *worker.Pool
	deferred    *worker.Deferrals

	log    logger.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// New builds a Service from configuration. Registry and credibility files
// are loaded here; a missing entities file is fatal, a missing credibility
// file falls back to the default weight for every source.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg: cfg,
		log: logger.Named("app"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = entities.New()
		if err := s.registry.LoadFile(cfg.EntitiesPath); err != nil {
			return nil, fmt.Errorf("load entities: %w", err)
		}
	}
	if s.credibility == nil {
		s.credibility = credibility.New(credibility.WithDefaultWeight(cfg.DefaultCredibility))
		if err := s.credibility.LoadFile(cfg.CredibilityPath); err != nil {
			s.log.Warn(ctx, "credibility table not loaded, using default weight",
				logger.String("path", cfg.CredibilityPath),
				logger.Float64("default", cfg.DefaultCredibility),
				logger.Error(err))
		}
	}
	if s.provider == nil {
		switch cfg.Embedder {
		case "http":
			s.provider = embedding.NewHTTPProvider(
				embedding.WithEndpoint(cfg.EmbedEndpoint),
				embedding.WithModel(cfg.EmbedModel),
				embedding.WithDim(cfg.EmbedDim),
				embedding.WithTimeout(cfg.EmbedTimeout),
				embedding.WithMinChars(cfg.MinTextChars),
			)
		default:
			s.provider = embedding.NewLocalProvider()
		}
	}
	if s.hirLog == nil {
		log, err := hirlog.Open(cfg.HIRLogPath)
		if err != nil {
			return nil, fmt.Errorf("open hir log: %w", err)
		}
		s.hirLog = log
	}

	s.store = repository.New(repository.WithSnapshotInterval(cfg.SnapshotInterval))
	s.fps = fingerprint.NewService()
	s.index = fingerprint.NewIndex(
		fingerprint.WithMaxSize(cfg.DedupeSize),
		fingerprint.WithNearDupThreshold(cfg.NearDupThreshold),
	)
	s.engine = assign.New(s.store, s.registry, s.credibility,
		assign.WithThreshold(cfg.AssignThreshold),
		assign.WithTieMargin(cfg.TieMargin),
	)
	s.lifecycle = lifecycle.New(s.store,
		lifecycle.WithMergeThreshold(cfg.MergeThreshold),
		lifecycle.WithDormantAfter(cfg.DormantAfter),
		lifecycle.WithArchiveAfter(cfg.ArchiveAfter),
		lifecycle.WithInterval(cfg.LifecycleInterval),
	)
	s.normalizer = impact.NewNormalizer(impact.WithBaselineWindows(cfg.BaselineWindows))
	s.ledger = impact.NewLedger()

	weights := make(map[model.SignalType]float64, len(cfg.SignalWeights))
	for name, w := range cfg.SignalWeights {
		t, err := model.ParseSignalType(name)
		if err != nil {
			return nil, fmt.Errorf("signal weights: %w", err)
		}
		weights[t] = w
	}
	s.combiner = impact.NewCombiner(weights)

	s.scorer = scoring.New(s.store, s.registry, s.ledger, s.combiner, s.hirLog,
		scoring.WithThresholds(cfg.TLow, cfg.THigh),
		scoring.WithMinCoverageFloor(cfg.MinCoverageFloor),
		scoring.WithBaselineWindows(cfg.BaselineWindows),
	)

	s.queue = queue.NewInMemory(queue.WithCapacity(cfg.QueueSize))
	s.deferred = worker.NewDeferrals()
	s.pool = worker.NewPool(cfg.WorkerCount, s.queue, s.fps, s.index,
		s.provider, s.engine, s.deferred)

	return s, nil
}

// Start launches the background machinery: workers, the snapshot publisher,
// and the periodic lifecycle pass.
func (s *Service) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.cancel = cancel

		s.store.Start(runCtx)
		s.pool.Start(runCtx)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.lifecycle.Run(runCtx)
		}()

		s.log.Info(ctx, "engine started",
			logger.Int("workers", s.cfg.WorkerCount),
			logger.Int("entities", len(s.registry.IDs())),
			logger.String("embedder", s.provider.Name()))
	})
}

// Stop drains the pipeline and shuts everything down.
func (s *Service) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.log.Error(ctx, "worker pool shutdown", logger.Error(err))
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.store.Stop()
		if err := s.hirLog.Close(); err != nil {
			s.log.Error(ctx, "closing hir log", logger.Error(err))
		}
		s.log.Info(ctx, "engine stopped")
	})
}

// SubmitBatch feeds a batch of articles into the pipeline, retrying any
// articles deferred from earlier batches first. It returns how many were
// accepted and how many bounced off a full queue.
func (s *Service) SubmitBatch(ctx context.Context, articles []*model.Article) (accepted, rejected int) {
	batch := append(s.deferred.Drain(), articles...)
	for _, art := range batch {
		if s.queue.Enqueue(ctx, art) {
			accepted++
		} else {
			rejected++
		}
	}
	s.log.Info(ctx, "batch submitted",
		logger.Int("accepted", accepted),
		logger.Int("rejected", rejected))
	return accepted, rejected
}

// SubmitSignal validates, normalizes, and records one impact signal.
func (s *Service) SubmitSignal(ctx context.Context, sig *model.ImpactSignal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.registry.Lookup(sig.Entity); err != nil {
		return err
	}
	s.normalizer.Normalize(sig)
	s.ledger.Record(sig)
	return nil
}

// RunLifecyclePass triggers one maintenance pass immediately.
func (s *Service) RunLifecyclePass(ctx context.Context) (lifecycle.PassReport, error) {
	return s.lifecycle.RunPass(ctx)
}

// ScoreWindow scores all entities for the window.
func (s *Service) ScoreWindow(ctx context.Context, w model.Window) ([]model.HIRRecord, error) {
	return s.scorer.ScoreWindow(ctx, w)
}

// WindowAt returns the scoring window containing t.
func (s *Service) WindowAt(t time.Time) model.Window {
	return model.WindowAt(t, s.cfg.WindowSize)
}

// Clusters returns the latest snapshot's clusters for an entity.
func (s *Service) Clusters(entity string) ([]repository.ClusterSummary, error) {
	if _, err := s.registry.Lookup(entity); err != nil {
		return nil, err
	}
	return s.store.Snapshot().ForEntity(entity), nil
}

// Cluster resolves a cluster id, following merge forwarding pointers.
func (s *Service) Cluster(id string) (repository.ClusterSummary, int, error) {
	return s.store.Lookup(id)
}

// Records queries the append-only record log.
func (s *Service) Records(ctx context.Context, q hirlog.Query) ([]model.HIRRecord, error) {
	return s.hirLog.Find(ctx, q)
}

// Stats is a point-in-time operational summary.
type Stats struct {
	QueueDepth      int            `json:"queue_depth"`
	Deferred        int            `json:"deferred"`
	Entities        int            `json:"entities"`
	ClustersByState map[string]int `json:"clusters_by_state"`
	DedupeIndexSize int            `json:"dedupe_index_size"`
	HIRRecords      int            `json:"hir_records"`
	SnapshotTakenAt time.Time      `json:"snapshot_taken_at"`
}

// Stats reports current operational state.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	snap := s.store.Snapshot()
	byState := make(map[string]int, 4)
	for _, st := range []repository.State{
		repository.StateActive, repository.StateDormant,
		repository.StateArchived, repository.StateRetired,
	} {
		byState[string(st)] = snap.CountByState(st)
	}
	count, err := s.hirLog.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		QueueDepth:      s.queue.Len(),
		Deferred:        s.deferred.Len(),
		Entities:        len(s.registry.IDs()),
		ClustersByState: byState,
		DedupeIndexSize: s.index.Size(),
		HIRRecords:      count,
		SnapshotTakenAt: snap.TakenAt,
	}, nil
}

// PublishSnapshot forces an immediate snapshot refresh, used by tests and
// by batch drivers that query right after a submit.
func (s *Service) PublishSnapshot() {
	s.store.PublishSnapshot()
}

// QueueDrained reports whether the intake queue is empty.
func (s *Service) QueueDrained() bool {
	return s.queue.Len() == 0
}
