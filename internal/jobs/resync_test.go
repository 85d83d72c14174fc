package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSyncer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *fakeSyncer) SyncTodayTotal(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *fakeSyncer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestResyncJob(t *testing.T) {
	t.Run("syncs on each tick", func(t *testing.T) {
		syncer := &fakeSyncer{}
		job := NewResyncJob(syncer, 20*time.Millisecond)

		job.Start()
		defer job.Stop()

		assert.Eventually(t, func() bool {
			return syncer.count() >= 2
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("stop halts further syncs", func(t *testing.T) {
		syncer := &fakeSyncer{}
		job := NewResyncJob(syncer, 20*time.Millisecond)

		job.Start()
		assert.Eventually(t, func() bool {
			return syncer.count() >= 1
		}, time.Second, 5*time.Millisecond)
		job.Stop()

		settled := syncer.count()
		time.Sleep(100 * time.Millisecond)
		assert.LessOrEqual(t, syncer.count(), settled+1)
	})
}
