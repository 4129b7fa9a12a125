// Package lifecycle runs the periodic maintenance pass over the cluster
// store: consistency checks, centroid-based merging, and the dormancy and
// archival transitions.
package lifecycle

import (
	"context"
	"sort"
	"time"

	"github.com/newslens/hypetrack/internal/adapters/repository"
	"github.com/newslens/hypetrack/internal/domain/embedding"
	"github.com/newslens/hypetrack/pkg/logger"
)

// PassReport summarizes one maintenance pass.
type PassReport struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Entities  int           `json:"entities"`
	Merges    int           `json:"merges"`
	Dormant   int           `json:"dormant"`
	Archived  int           `json:"archived"`
	Corrupt   int           `json:"corrupt"`
}

// Manager drives maintenance passes. Passes never overlap: a pass started
// while another runs fails with ErrPassRunning.
type Manager struct {
	store          *repository.Store
	mergeThreshold float64
	dormantAfter   time.Duration
	archiveAfter   time.Duration
	interval       time.Duration
	log            logger.Logger
	now            func() time.Time

	running chan struct{}
}

// New creates a Manager.
func New(store *repository.Store, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		mergeThreshold: defaultMergeThreshold,
		dormantAfter:   defaultDormantAfter,
		archiveAfter:   defaultArchiveAfter,
		interval:       defaultInterval,
		log:            logger.Named("lifecycle"),
		now:            time.Now,
		running:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes passes on the configured interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.RunPass(ctx); err != nil {
				m.log.Warn(ctx, "maintenance pass skipped", logger.Error(err))
			}
		}
	}
}

// RunPass runs one full maintenance pass across all entities.
func (m *Manager) RunPass(ctx context.Context) (PassReport, error) {
	select {
	case m.running <- struct{}{}:
		defer func() { <-m.running }()
	default:
		return PassReport{}, ErrPassRunning
	}

	now := m.now()
	report := PassReport{StartedAt: now}
	for _, entity := range m.store.EntityIDs() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := m.store.WithEntity(entity, func(v *repository.EntityView) error {
			report.Entities++
			report.Corrupt += m.verifyAll(v)
			report.Merges += m.mergeAll(ctx, v, now)
			d, a := m.transitionAll(v, now)
			report.Dormant += d
			report.Archived += a
			return nil
		})
		if err != nil {
			m.log.Error(ctx, "maintenance failed for entity",
				logger.String("entity", entity), logger.Error(err))
		}
	}
	report.Duration = time.Since(now)

	m.store.PublishSnapshot()
	m.log.Info(ctx, "maintenance pass complete",
		logger.Int("entities", report.Entities),
		logger.Int("merges", report.Merges),
		logger.Int("dormant", report.Dormant),
		logger.Int("archived", report.Archived),
		logger.Int("corrupt", report.Corrupt),
		logger.Duration("took", report.Duration))
	return report, nil
}

// verifyAll runs the centroid consistency check on every live cluster and
// returns how many were frozen this pass.
func (m *Manager) verifyAll(v *repository.EntityView) int {
	frozen := 0
	for _, c := range v.All() {
		if c.State == repository.StateRetired || c.Corrupt {
			continue
		}
		if err := v.Verify(c.ID); err != nil {
			frozen++
		}
	}
	return frozen
}

// mergeAll repeatedly folds together the closest pair of active clusters
// whose centroid similarity clears the merge threshold, until no pair does.
// The cluster with more members survives; equal sizes keep the older one.
func (m *Manager) mergeAll(ctx context.Context, v *repository.EntityView, now time.Time) int {
	merges := 0
	for {
		active := v.Active()
		if len(active) < 2 {
			return merges
		}
		sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

		var bestA, bestB *repository.Cluster
		bestSim := m.mergeThreshold
		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				sim := embedding.Cosine(active[i].Centroid, active[j].Centroid)
				if sim >= bestSim {
					bestSim = sim
					bestA, bestB = active[i], active[j]
				}
			}
		}
		if bestA == nil {
			return merges
		}

		winner, loser := bestA, bestB
		if survives(loser, winner) {
			winner, loser = loser, winner
		}
		if err := v.Merge(winner.ID, loser.ID, now); err != nil {
			m.log.Error(ctx, "merge failed",
				logger.String("winner", winner.ID),
				logger.String("loser", loser.ID),
				logger.Error(err))
			return merges
		}
		merges++
	}
}

// survives reports whether a outlives b in a merge.
func survives(a, b *repository.Cluster) bool {
	if len(a.Members) != len(b.Members) {
		return len(a.Members) > len(b.Members)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// transitionAll applies the inactivity clocks: active clusters idle past the
// dormancy window go dormant, dormant clusters idle past the archival window
// are archived.
func (m *Manager) transitionAll(v *repository.EntityView, now time.Time) (dormant, archived int) {
	for _, c := range v.All() {
		if c.Corrupt {
			continue
		}
		idle := now.Sub(c.LastAssignedAt)
		switch c.State {
		case repository.StateActive:
			if idle >= m.dormantAfter {
				if err := v.Transition(c.ID, repository.StateDormant, now); err == nil {
					dormant++
				}
			}
		case repository.StateDormant:
			if idle >= m.archiveAfter {
				if err := v.Transition(c.ID, repository.StateArchived, now); err == nil {
					archived++
				}
			}
		}
	}
	return dormant, archived
}
