package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrJobAlreadyRunning = errors.New("job is already running")

// Lease is a cross-process lock held for the duration of one job run.
type Lease interface {
	// Acquire returns ok=false when another holder owns the key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// Guard admits at most one in-flight run per job name. The flag is cleared on every exit
// path, including a recovered panic and a timeout.
type Guard struct {
	mu       sync.Mutex
	flags    map[string]*atomic.Bool
	lease    Lease
	leaseTTL time.Duration
	logger   *logrus.Entry
}

// NewGuard builds a guard. lease may be nil for single-instance deployments.
func NewGuard(lease Lease, leaseTTL time.Duration, logger *logrus.Entry) *Guard {
	return &Guard{
		flags:    make(map[string]*atomic.Bool),
		lease:    lease,
		leaseTTL: leaseTTL,
		logger:   logger,
	}
}

func (g *Guard) flag(job string) *atomic.Bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.flags[job]
	if !ok {
		f = &atomic.Bool{}
		g.flags[job] = f
	}
	return f
}

// Running reports whether job currently holds its flag.
func (g *Guard) Running(job string) bool {
	return g.flag(job).Load()
}

// Run executes body unless job is already running, in which case it logs and returns false.
// The body gets a context bounded by timeout; when it expires Run returns without waiting
// for the body and the flag is released.
func (g *Guard) Run(ctx context.Context, job string, timeout time.Duration, body func(context.Context) error) (bool, error) {
	log := g.logger.WithField("job", job)
	f := g.flag(job)
	if !f.CompareAndSwap(false, true) {
		log.Warn("Previous run still in progress. Skipping this tick.")
		return false, nil
	}
	var once sync.Once
	release := func() { once.Do(func() { f.Store(false) }) }
	defer release()

	if g.lease != nil {
		token, ok, err := g.lease.Acquire(ctx, leaseKey(job), g.leaseTTL)
		if err != nil {
			return false, fmt.Errorf("failed to acquire lease for job %s: %w", job, err)
		}
		if !ok {
			log.Info("Lease held by another instance. Skipping this tick.")
			return false, nil
		}
		defer func() {
			if err := g.lease.Release(context.Background(), leaseKey(job), token); err != nil {
				log.WithError(err).Warn("Failed to release lease; it will expire on its own")
			}
		}()
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("job %s panicked: %v", job, r)
			}
		}()
		done <- body(runCtx)
	}()

	select {
	case err := <-done:
		return true, err
	case <-runCtx.Done():
		log.WithField("timeout", timeout.String()).Error("Job exceeded its timeout. Releasing guard.")
		return true, fmt.Errorf("job %s: %w", job, runCtx.Err())
	}
}

func leaseKey(job string) string {
	return "finance-automation:job:" + job
}
