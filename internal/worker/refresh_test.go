package worker_test

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

	"github.com/aqoutlook/aqoutlook/internal/airquality"
	"github.com/aqoutlook/aqoutlook/internal/city"
	"github.com/aqoutlook/aqoutlook/internal/worker"
)

// fakeSource answers CurrentSnapshot from per-city outcomes.
type fakeSource struct {
	mu       sync.Mutex
	calls    []string
	errs     map[string]error
	stale    map[string]bool
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func (f *fakeSource) CurrentSnapshot(ctx context.Context, c string, _ *airquality.Coordinate) (*airquality.Snapshot, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if n <= prev || f.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := f.errs[c]; err != nil {
		return nil, err
	}
	snap := &airquality.Snapshot{City: c, AQI: 80, Source: airquality.SourceFresh}
	if f.stale[c] {
		return snap.MarkStale(errors.New("upstream 502")), nil
	}
	return snap, nil
}

func (f *fakeSource) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func targets(cities ...string) []worker.RefreshTarget {
	out := make([]worker.RefreshTarget, len(cities))
	for i, c := range cities {
		out[i] = worker.RefreshTarget{City: c, Priority: 1}
	}
	return out
}

func TestDefaultRefreshConfig(t *testing.T) {
	cfg := worker.DefaultRefreshConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Interval)
	assert.Empty(t, cfg.Targets)
}

func TestTargetsFor(t *testing.T) {
	reg, err := city.NewRegistry(city.Defaults(), "astana")
	require.NoError(t, err)

	got := worker.TargetsFor(reg)

	require.Len(t, got, 2)
	assert.Equal(t, worker.RefreshTarget{City: "almaty", Priority: 2}, got[0])
	assert.Equal(t, worker.RefreshTarget{City: "astana", Priority: 1}, got[1])

	ordered := worker.RefreshConfig{Targets: got}.Ordered()
	assert.Equal(t, "astana", ordered[0].City)
	assert.Equal(t, "almaty", ordered[1].City)
}

func TestRefreshJob_Run_AllFresh(t *testing.T) {
	src := &fakeSource{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{Targets: targets("almaty", "astana"), Concurrency: 2, Timeout: time.Second},
		Logger: zerolog.Nop(),
		Source: src,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 2, result.TotalTargets)
	assert.Equal(t, 2, result.Successful)
	assert.Zero(t, result.Failed)
	assert.Empty(t, result.Errors)
	assert.ElementsMatch(t, []string{"almaty", "astana"}, src.called())
}

func TestRefreshJob_Run_FailuresAndStale(t *testing.T) {
	src := &fakeSource{
		errs:  map[string]error{"astana": airquality.ErrNoDataFound},
		stale: map[string]bool{"shymkent": true},
	}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{Targets: targets("almaty", "astana", "shymkent"), Concurrency: 1},
		Logger: zerolog.Nop(),
		Source: src,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 1, result.Stale)
	require.Len(t, result.Errors, 2)

	byCity := map[string]string{}
	for _, e := range result.Errors {
		byCity[e.City] = e.Error
	}
	assert.Contains(t, byCity["astana"], airquality.ErrNoDataFound.Error())
	assert.Contains(t, byCity["shymkent"], "upstream 502")
}

func TestRefreshJob_Run_BoundedConcurrency(t *testing.T) {
	src := &fakeSource{delay: 20 * time.Millisecond}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{Targets: targets("a", "b", "c", "d", "e", "f"), Concurrency: 2},
		Logger: zerolog.Nop(),
		Source: src,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 6, result.Successful)
	assert.LessOrEqual(t, src.maxSeen.Load(), int32(2))
}

func TestRefreshJob_Run_PerTargetTimeout(t *testing.T) {
	src := &fakeSource{delay: time.Second}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{Targets: targets("almaty"), Timeout: 20 * time.Millisecond},
		Logger: zerolog.Nop(),
		Source: src,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, context.DeadlineExceeded.Error())
}

func TestRefreshJob_RunCities(t *testing.T) {
	src := &fakeSource{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{Targets: targets("almaty", "astana")},
		Logger: zerolog.Nop(),
		Source: src,
	})

	result := job.RunCities(context.Background(), []string{"astana", "unknown"})

	assert.Equal(t, 1, result.TotalTargets)
	assert.Equal(t, []string{"astana"}, src.called())
}

func TestRefreshJob_Run_ContextCancellation(t *testing.T) {
	src := &fakeSource{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{Targets: targets("a", "b", "c"), Concurrency: 1},
		Logger: zerolog.Nop(),
		Source: src,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx)

	assert.NotNil(t, result)
	assert.Zero(t, result.Successful+result.Failed)
	assert.Empty(t, src.called())
}

func TestRefreshJob_Metrics(t *testing.T) {
	src := &fakeSource{stale: map[string]bool{"astana": true}}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{Targets: targets("almaty", "astana")},
		Logger: zerolog.Nop(),
		Source: src,
	})

	_ = job.Run(context.Background())
	_ = job.Run(context.Background())

	metrics := job.GetMetrics()
	assert.Equal(t, int64(2), metrics.TotalRefreshes)
	assert.Equal(t, int64(2), metrics.SuccessfulRefresh)
	assert.Equal(t, int64(2), metrics.FailedRefreshes)
	assert.Equal(t, int64(2), metrics.StaleRefreshes)
	assert.NotZero(t, metrics.LastRefreshAt)

	snapshot := job.MetricsSnapshot()
	assert.Contains(t, snapshot, "total_refreshes")
	assert.Contains(t, snapshot, "stale_refreshes")
	assert.Contains(t, snapshot, "last_refresh_duration")
}

func TestRefreshJob_Loop_RunsImmediatelyAndOnInterval(t *testing.T) {
	src := &fakeSource{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{Targets: targets("almaty"), Interval: 10 * time.Millisecond},
		Logger: zerolog.Nop(),
		Source: src,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Loop(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return job.GetMetrics().TotalRefreshes >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

func BenchmarkRefreshJob_Run(b *testing.B) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{Targets: targets("almaty", "astana"), Concurrency: 2},
		Logger: zerolog.Nop(),
		Source: &fakeSource{},
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = job.Run(context.Background())
	}
}
