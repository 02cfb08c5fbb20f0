package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqoutlook/aqoutlook/internal/airquality"
)

// ErrStaleRefresh is recorded when the pipeline answered from the cache
// instead of the provider.
var ErrStaleRefresh = errors.New("refresh served a cached snapshot")

// SnapshotSource builds city snapshots. *conditions.Service satisfies it.
type SnapshotSource interface {
	CurrentSnapshot(ctx context.Context, city string, coord *airquality.Coordinate) (*airquality.Snapshot, error)
}

// RefreshJob refreshes the snapshot of each target city. A fresh snapshot is
// written to the cache by the pipeline itself, so the job only needs to ask.
type RefreshJob struct {
	config RefreshConfig
	logger zerolog.Logger
	source SnapshotSource

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRefreshes    int64
	SuccessfulRefresh int64
	FailedRefreshes   int64
	StaleRefreshes    int64

	// Timings
	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config RefreshConfig
	Logger zerolog.Logger
	Source SnapshotSource
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:  cfg.Config.withDefaults(),
		logger:  cfg.Logger,
		source:  cfg.Source,
		metrics: &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh operation.
type RefreshResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	TotalTargets int
	Successful   int
	Failed       int
	// Stale counts failed refreshes the pipeline covered with a cached snapshot.
	Stale  int
	Errors []RefreshError
}

// RefreshError represents an error during refresh.
type RefreshError struct {
	City  string
	Error string
}

// Run refreshes every configured target.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	return j.run(ctx, j.config.Ordered())
}

// RunCities refreshes only the named targets. Unknown names are ignored.
func (j *RefreshJob) RunCities(ctx context.Context, cities []string) *RefreshResult {
	want := make(map[string]bool, len(cities))
	for _, c := range cities {
		want[c] = true
	}

	var targets []RefreshTarget
	for _, t := range j.config.Ordered() {
		if want[t.City] {
			targets = append(targets, t)
		}
	}
	return j.run(ctx, targets)
}

// Loop runs the job immediately and then every Interval until ctx is done.
func (j *RefreshJob) Loop(ctx context.Context) {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	j.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

func (j *RefreshJob) run(ctx context.Context, targets []RefreshTarget) *RefreshResult {
	startTime := time.Now()
	result := &RefreshResult{
		StartTime:    startTime,
		TotalTargets: len(targets),
	}

	j.logger.Info().
		Int("total_targets", result.TotalTargets).
		Int("concurrency", j.config.Concurrency).
		Msg("starting cache refresh job")

	targetsChan := make(chan RefreshTarget, len(targets))
	resultsChan := make(chan targetResult, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, targetsChan, resultsChan)
		}()
	}

	for _, t := range targets {
		targetsChan <- t
	}
	close(targetsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for tr := range resultsChan {
		switch {
		case tr.err == nil:
			result.Successful++
		case errors.Is(tr.err, ErrStaleRefresh):
			result.Failed++
			result.Stale++
		default:
			result.Failed++
		}
		if tr.err != nil {
			result.Errors = append(result.Errors, RefreshError{City: tr.city, Error: tr.err.Error()})
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("stale", result.Stale).
		Msg("cache refresh job completed")

	return result
}

type targetResult struct {
	city string
	err  error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, targets <-chan RefreshTarget, results chan<- targetResult) {
	for target := range targets {
		select {
		case <-ctx.Done():
			return
		default:
			results <- targetResult{city: target.City, err: j.refreshCity(ctx, target.City)}
		}
	}
}

func (j *RefreshJob) refreshCity(ctx context.Context, city string) error {
	if j.source == nil {
		return nil
	}

	cityCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	snap, err := j.source.CurrentSnapshot(cityCtx, city, nil)
	if err != nil {
		j.logger.Warn().Err(err).Str("city", city).Msg("city refresh failed")
		return err
	}
	if snap.Stale {
		j.logger.Warn().Str("city", city).Str("cause", snap.Error).Msg("city refresh fell back to cache")
		return fmt.Errorf("%w: %s", ErrStaleRefresh, snap.Error)
	}

	j.logger.Debug().
		Str("city", city).
		Int("aqi", snap.AQI).
		Str("location", snap.LocationName).
		Msg("city refreshed")
	return nil
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRefreshes++
	j.metrics.SuccessfulRefresh += int64(result.Successful)
	j.metrics.FailedRefreshes += int64(result.Failed)
	j.metrics.StaleRefreshes += int64(result.Stale)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRefreshes:      j.metrics.TotalRefreshes,
		SuccessfulRefresh:   j.metrics.SuccessfulRefresh,
		FailedRefreshes:     j.metrics.FailedRefreshes,
		StaleRefreshes:      j.metrics.StaleRefreshes,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_refreshes":       m.TotalRefreshes,
		"successful_refreshes":  m.SuccessfulRefresh,
		"failed_refreshes":      m.FailedRefreshes,
		"stale_refreshes":       m.StaleRefreshes,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}
