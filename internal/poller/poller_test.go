package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *recordingObserver) ObservePoll(_ string, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[string]int)
	}
	o.outcomes[outcome]++
}

func (o *recordingObserver) count(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomes[outcome]
}

func TestRun_FirstTickIsImmediate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{}, 1)
	p := New("test", time.Hour, func(context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		return nil
	}, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first poll did not start immediately")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, int64(1), p.Runs())
}

func TestRun_SkipsWhileInFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	observer := &recordingObserver{}
	release := make(chan struct{})
	var calls atomic.Int32

	p := New("slow", 10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, zerolog.Nop(), WithObserver(observer))

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return p.Skipped() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.GreaterOrEqual(t, observer.count(OutcomeSkipped), 3)

	close(release)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRun_ReportsErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	observer := &recordingObserver{}

	p := New("failing", 5*time.Millisecond, func(context.Context) error {
		return errors.New("backend down")
	}, zerolog.Nop(), WithObserver(observer))

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return observer.count(OutcomeError) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRun_WaitsForInFlightRunOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var finished atomic.Bool
	entered := make(chan struct{})

	p := New("cancel", time.Hour, func(ctx context.Context) error {
		close(entered)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	}, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	<-entered
	cancel()
	<-done
	assert.True(t, finished.Load())
}

func TestNew_DefaultInterval(t *testing.T) {
	p := New("default", 0, func(context.Context) error { return nil }, zerolog.Nop())
	assert.Equal(t, DefaultInterval, p.interval)
}

func TestDeliver(t *testing.T) {
	out := make(chan int, 1)
	assert.True(t, Deliver(context.Background(), out, 1))
	assert.Equal(t, 1, <-out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	buffered := make(chan int, 1)
	assert.False(t, Deliver(ctx, buffered, 2))
	assert.Empty(t, buffered)

	// a full channel does not block once ctx is cancelled
	blocked := make(chan int)
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel2()
	assert.False(t, Deliver(ctx2, blocked, 3))
}
