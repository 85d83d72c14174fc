package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hbeckers/punchd/internal/config"
	apperrors "github.com/hbeckers/punchd/internal/errors"
)

// Syncer is the tracker operation the job drives.
type Syncer interface {
	SyncTodayTotal(ctx context.Context) error
}

// ResyncJob periodically refreshes today's total so the presentation layer
// stays current even when entries are edited out-of-band.
type ResyncJob struct {
	syncer   Syncer
	interval time.Duration
	done     chan struct{}
}

func NewResyncJob(syncer Syncer, interval time.Duration) *ResyncJob {
	return &ResyncJob{
		syncer:   syncer,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *ResyncJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("resync job started")
}

func (j *ResyncJob) Stop() {
	close(j.done)
	log.Info().Msg("resync job stopped")
}

func (j *ResyncJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.resync()
		}
	}
}

func (j *ResyncJob) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), config.TimerOperationTimeout)
	defer cancel()

	if err := j.syncer.SyncTodayTotal(ctx); err != nil {
		// Not configured yet is the normal state before first-run setup.
		if apperrors.HasCode(err, apperrors.ErrCodeNotConfigured) {
			return
		}
		log.Warn().Err(err).Msg("periodic total resync failed")
	}
}
