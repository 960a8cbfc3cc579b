// Package jobs holds long-running background workers.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluow/panel-server/internal/config"
	"github.com/fluow/panel-server/internal/model"
)

// Reconciler is the slice of the instance service the sync job needs.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]model.Instance, bool, error)
}

// SyncJob periodically reconciles the local instance collection with the
// remote provider, so status drift is bounded even when nobody is watching
// the dashboard.
type SyncJob struct {
	reconciler Reconciler
	interval   time.Duration
	done       chan struct{}
}

func NewSyncJob(reconciler Reconciler, interval time.Duration) *SyncJob {
	return &SyncJob{
		reconciler: reconciler,
		interval:   interval,
		done:       make(chan struct{}),
	}
}

func (j *SyncJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("instance sync job started")
}

func (j *SyncJob) Stop() {
	close(j.done)
	log.Info().Msg("instance sync job stopped")
}

func (j *SyncJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sync()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sync()
		}
	}
}

func (j *SyncJob) sync() {
	ctx, cancel := context.WithTimeout(context.Background(), config.SyncJobTimeout)
	defer cancel()

	instances, dirty, err := j.reconciler.Reconcile(ctx)
	if err != nil {
		log.Error().Err(err).Msg("instance sync failed")
		return
	}
	if dirty {
		log.Info().Int("count", len(instances)).Msg("instance sync applied drift")
	}
}
