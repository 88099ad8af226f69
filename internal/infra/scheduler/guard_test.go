package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestGuard_SkipsOverlappingRun(t *testing.T) {
	g := NewGuard(nil, 0, quietLogger())
	entered := make(chan struct{})
	unblock := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ran, err := g.Run(context.Background(), "reminders", time.Minute, func(context.Context) error {
			close(entered)
			<-unblock
			return nil
		})
		assert.True(t, ran)
		assert.NoError(t, err)
	}()

	<-entered
	assert.True(t, g.Running("reminders"))
	calls := 0
	ran, err := g.Run(context.Background(), "reminders", time.Minute, func(context.Context) error {
		calls++
		return nil
	})
	assert.False(t, ran)
	assert.NoError(t, err)
	assert.Zero(t, calls)

	// Other jobs are not blocked.
	ran, err = g.Run(context.Background(), "rollover", time.Minute, func(context.Context) error { return nil })
	assert.True(t, ran)
	assert.NoError(t, err)

	close(unblock)
	wg.Wait()
	assert.False(t, g.Running("reminders"))

	ran, _ = g.Run(context.Background(), "reminders", time.Minute, func(context.Context) error { return nil })
	assert.True(t, ran)
}

func TestGuard_ReleasesOnError(t *testing.T) {
	g := NewGuard(nil, 0, quietLogger())
	boom := errors.New("list failed")

	ran, err := g.Run(context.Background(), "income", time.Minute, func(context.Context) error { return boom })
	assert.True(t, ran)
	assert.ErrorIs(t, err, boom)
	assert.False(t, g.Running("income"))
}

func TestGuard_ReleasesOnPanic(t *testing.T) {
	g := NewGuard(nil, 0, quietLogger())

	ran, err := g.Run(context.Background(), "income", time.Minute, func(context.Context) error {
		var m map[string]int
		m["x"]++
		return nil
	})
	assert.True(t, ran)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.False(t, g.Running("income"))
}

func TestGuard_TimeoutForcesRelease(t *testing.T) {
	g := NewGuard(nil, 0, quietLogger())
	hang := make(chan struct{})
	defer close(hang)

	start := time.Now()
	ran, err := g.Run(context.Background(), "debt", 20*time.Millisecond, func(context.Context) error {
		<-hang // ignores its context
		return nil
	})
	assert.True(t, ran)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, g.Running("debt"))
}

func TestGuard_BodySeesCancellation(t *testing.T) {
	g := NewGuard(nil, 0, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran, err := g.Run(ctx, "income", time.Minute, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, ran)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeLease struct {
	mu       sync.Mutex
	held     map[string]string
	released []string
	err      error
}

func (l *fakeLease) Acquire(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.held[key] = "token-" + key
	return l.held[key], true, nil
}

func (l *fakeLease) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	l.released = append(l.released, key)
	return nil
}

func TestGuard_Lease(t *testing.T) {
	lease := &fakeLease{held: map[string]string{}}
	g := NewGuard(lease, time.Minute, quietLogger())

	ran, err := g.Run(context.Background(), "income", time.Minute, func(context.Context) error { return nil })
	assert.True(t, ran)
	assert.NoError(t, err)
	assert.Equal(t, []string{leaseKey("income")}, lease.released)
	assert.Empty(t, lease.held)

	// Another instance holds the lease.
	lease.held[leaseKey("income")] = "other"
	ran, err = g.Run(context.Background(), "income", time.Minute, func(context.Context) error { return nil })
	assert.False(t, ran)
	assert.NoError(t, err)
	assert.False(t, g.Running("income"))

	lease.err = errors.New("redis down")
	ran, err = g.Run(context.Background(), "expense", time.Minute, func(context.Context) error { return nil })
	assert.False(t, ran)
	assert.Error(t, err)
	assert.False(t, g.Running("expense"))
}
