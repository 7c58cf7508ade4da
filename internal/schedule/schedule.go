// Package schedule runs periodic holiday refreshes and PNG snapshots on cron
// expressions.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "markcal/internal/log"
)

// JobFunc is one unit of scheduled work. ctx is cancelled on Stop.
type JobFunc func(ctx context.Context) error

// cronLogger routes cron's own messages into the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}

// Scheduler wraps a cron runner. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron *cron.Cron

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	names   map[string]cron.EntryID
}

// New creates a scheduler evaluating expressions in loc (time.Local if nil).
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:    ctx,
		cancel: cancel,
		names:  make(map[string]cron.EntryID),
	}
}

// Add registers fn under name with a standard 5-field cron spec (descriptors
// such as "@daily" and "@every 1h" are accepted). An empty spec is a no-op.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	if spec == "" {
		appLog.Debug("schedule: job disabled", "job", name)
		return nil
	}
	if fn == nil {
		return errors.New("schedule: nil job")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.names[name]; dup {
		return fmt.Errorf("schedule: job %q already registered", name)
	}

	id, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := fn(s.ctx); err != nil {
			appLog.Error("scheduled job failed", err, "job", name)
			return
		}
		appLog.Info("scheduled job finished", "job", name, "took", time.Since(start).String())
	})
	if err != nil {
		return fmt.Errorf("schedule: job %q spec %q: %w", name, spec, err)
	}
	s.names[name] = id
	appLog.Info("schedule: job registered", "job", name, "spec", spec)
	return nil
}

// Next returns the next activation time of the named job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.names[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Start begins running registered jobs in the background.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("schedule: already running")
	}
	s.running = true
	s.cron.Start()
	return nil
}

// Stop cancels running jobs and waits for them to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
