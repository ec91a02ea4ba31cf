// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/acctsync"
	"github.com/blinklabs-io/acctsync/internal/telemetry"
	"github.com/blinklabs-io/acctsync/store"
)

type fetchResult[T any] struct {
	generation uint64
	raw        []byte
	data       T
	fetchErr   error
	decodeErr  error
	duration   time.Duration
}

// Scheduler polls one resource
type Scheduler[T any] struct {
	name            string
	cm              *acctsync.ConnectionManager
	fetch           FetchFunc
	decode          DecodeFunc[T]
	profile         PollingProfile
	backoff         Backoff
	urgencyFunc     func(T) bool
	updateFunc      func(Snapshot[T])
	logger          *slog.Logger
	metrics         *telemetry.Metrics
	store           store.Store
	storeKey        string
	fallbackOptions []acctsync.FallbackOptionFunc

	stats   schedulerStats
	state   atomic.Uint32
	paused  atomic.Bool
	started atomic.Bool

	refreshChan    chan struct{}
	invalidateChan chan struct{}
	resumeChan     chan struct{}
	resultChan     chan fetchResult[T]

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Owned by the run goroutine
	generation     uint64
	inFlightCancel context.CancelFunc
	backoffAttempt int
	last           *T
	timer          *time.Timer

	snapshotMutex sync.RWMutex
	snapshot      Snapshot[T]
}

// New returns a Scheduler for the resource described by cfg. Polling starts with Start
func New[T any](cm *acctsync.ConnectionManager, cfg Config[T], options ...OptionFunc[T]) (*Scheduler[T], error) {
	if cm == nil {
		return nil, ErrMissingManager
	}
	if cfg.Fetch == nil {
		return nil, ErrMissingFetch
	}
	if cfg.Decode == nil {
		return nil, ErrMissingDecode
	}
	s := &Scheduler[T]{
		name:           cfg.Name,
		cm:             cm,
		fetch:          cfg.Fetch,
		decode:         cfg.Decode,
		profile:        cfg.Profile,
		refreshChan:    make(chan struct{}, 1),
		invalidateChan: make(chan struct{}, 1),
		resumeChan:     make(chan struct{}, 1),
		resultChan:     make(chan fetchResult[T]),
	}
	if s.profile == (PollingProfile{}) {
		s.profile = cm.Network().Polling
	}
	s.backoff = profileBackoff(s.profile)
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "poller", "resource", s.name)
	return s, nil
}

// Name returns the resource name
func (s *Scheduler[T]) Name() string {
	return s.name
}

// Start seeds the scheduler from its store, if any, and starts polling with an
// immediate fetch. Polling stops when ctx is done or Stop is called
func (s *Scheduler[T]) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrSchedulerStarted
	}
	s.prepare(ctx)
	s.seed()
	s.wg.Add(1)
	go s.run()
	return nil
}

// Stop cancels any in-flight fetch and waits for the scheduler to exit
func (s *Scheduler[T]) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Refresh requests an immediate fetch. It does nothing if a fetch is already running
func (s *Scheduler[T]) Refresh() {
	select {
	case s.refreshChan <- struct{}{}:
	default:
	}
}

// Invalidate aborts any in-flight fetch and starts a new one. Use it when the
// inputs of the fetch have changed, such as a new target address
func (s *Scheduler[T]) Invalidate() {
	select {
	case s.invalidateChan <- struct{}{}:
	default:
	}
}

// Pause stops fetching on timer ticks while the consumer is inactive. The timer
// keeps running so that Resume takes effect at once
func (s *Scheduler[T]) Pause() {
	s.paused.Store(true)
}

// Resume ends a pause and fetches immediately
func (s *Scheduler[T]) Resume() {
	if !s.paused.CompareAndSwap(true, false) {
		return
	}
	select {
	case s.resumeChan <- struct{}{}:
	default:
	}
}

// Paused reports whether the scheduler is paused
func (s *Scheduler[T]) Paused() bool {
	return s.paused.Load()
}

// State returns the current state
func (s *Scheduler[T]) State() State {
	return State(s.state.Load())
}

// Stats returns a snapshot of the scheduler's counters
func (s *Scheduler[T]) Stats() Stats {
	return s.stats.snapshot()
}

// Snapshot returns the most recently published snapshot
func (s *Scheduler[T]) Snapshot() Snapshot[T] {
	s.snapshotMutex.RLock()
	defer s.snapshotMutex.RUnlock()
	return s.snapshot
}

func (s *Scheduler[T]) prepare(ctx context.Context) {
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.timer = time.NewTimer(time.Hour)
	s.timer.Stop()
}

func (s *Scheduler[T]) run() {
	defer s.wg.Done()
	defer s.timer.Stop()
	if s.paused.Load() {
		s.arm()
	} else {
		s.startFetch(false)
	}
	for {
		select {
		case <-s.runCtx.Done():
			s.abortInFlight()
			s.setState(StateIdle)
			return
		case <-s.timer.C:
			s.handleTick()
		case <-s.refreshChan:
			s.handleRefresh()
		case <-s.invalidateChan:
			s.handleInvalidate()
		case <-s.resumeChan:
			s.handleResume()
		case result := <-s.resultChan:
			s.handleResult(result)
		}
	}
}

func (s *Scheduler[T]) handleTick() {
	if s.inFlightCancel != nil {
		return
	}
	if s.paused.Load() {
		s.stats.skippedTicks.Add(1)
		s.metrics.SkippedTick(s.name)
		s.logger.Debug("Skipping tick while paused")
		s.arm()
		return
	}
	s.startFetch(false)
}

func (s *Scheduler[T]) handleRefresh() {
	if s.inFlightCancel != nil {
		return
	}
	s.startFetch(true)
}

func (s *Scheduler[T]) handleInvalidate() {
	s.abortInFlight()
	s.startFetch(true)
}

func (s *Scheduler[T]) handleResume() {
	if s.inFlightCancel != nil {
		return
	}
	s.startFetch(true)
}

func (s *Scheduler[T]) abortInFlight() {
	if s.inFlightCancel != nil {
		s.inFlightCancel()
		s.inFlightCancel = nil
	}
}

func (s *Scheduler[T]) startFetch(forced bool) {
	s.timer.Stop()
	s.generation++
	generation := s.generation
	fetchCtx, cancel := context.WithCancel(s.runCtx)
	s.inFlightCancel = cancel
	s.setState(StateFetching)
	s.stats.recordFetchStart(generation, forced)
	s.logger.Debug(
		"Fetching",
		"generation",
		generation,
		"forced",
		forced,
	)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result := s.doFetch(fetchCtx, generation)
		select {
		case s.resultChan <- result:
		case <-s.runCtx.Done():
		}
	}()
}

func (s *Scheduler[T]) doFetch(ctx context.Context, generation uint64) fetchResult[T] {
	start := time.Now()
	ret := fetchResult[T]{
		generation: generation,
	}
	raw, err := acctsync.WithFallback[[]byte](ctx, s.cm, s.fetch, s.fallbackOptions...)
	ret.duration = time.Since(start)
	if err != nil {
		ret.fetchErr = err
		return ret
	}
	if raw == nil {
		return ret
	}
	ret.raw = raw
	data, err := s.decode(raw)
	if err != nil {
		ret.decodeErr = err
		return ret
	}
	ret.data = data
	return ret
}

func (s *Scheduler[T]) handleResult(result fetchResult[T]) {
	if result.generation != s.generation {
		// Superseded by a newer fetch, which owns the visible state
		if isAborted(result.fetchErr) {
			s.stats.aborts.Add(1)
			s.metrics.FetchResult(s.name, telemetry.ResultAborted, 0)
		} else {
			s.stats.staleDropped.Add(1)
			s.metrics.FetchResult(s.name, telemetry.ResultStale, 0)
		}
		s.logger.Debug(
			"Dropping result of superseded fetch",
			"generation",
			result.generation,
			"latest",
			s.generation,
		)
		return
	}
	s.abortInFlight()
	switch {
	case result.fetchErr != nil && isAborted(result.fetchErr):
		s.stats.aborts.Add(1)
		s.metrics.FetchResult(s.name, telemetry.ResultAborted, 0)
	case result.fetchErr != nil:
		s.backoffAttempt++
		s.stats.failures.Add(1)
		s.metrics.FetchResult(s.name, telemetry.ResultFailure, result.duration)
		kind := errorKind(result.fetchErr)
		s.logger.Error(
			"Fetch failed",
			"generation",
			result.generation,
			"kind",
			kind.String(),
			"backoff_attempt",
			s.backoffAttempt,
			"error",
			result.fetchErr,
		)
		s.publish(
			Snapshot[T]{
				Data:       s.lastCopy(),
				Stale:      true,
				Kind:       kind,
				Err:        result.fetchErr,
				Generation: result.generation,
			},
		)
	case result.raw == nil:
		s.backoffAttempt = 0
		s.last = nil
		s.stats.absent.Add(1)
		s.metrics.FetchResult(s.name, telemetry.ResultAbsent, result.duration)
		s.publish(
			Snapshot[T]{
				Generation: result.generation,
			},
		)
	case result.decodeErr != nil:
		s.stats.malformed.Add(1)
		s.metrics.FetchResult(s.name, telemetry.ResultMalformed, result.duration)
		s.logger.Warn(
			"Discarding malformed account data",
			"generation",
			result.generation,
			"size",
			len(result.raw),
			"error",
			result.decodeErr,
		)
		s.publish(
			Snapshot[T]{
				Data:       s.lastCopy(),
				Stale:      true,
				Kind:       ErrorMalformed,
				Err:        result.decodeErr,
				Generation: result.generation,
			},
		)
	default:
		s.backoffAttempt = 0
		data := result.data
		s.last = &data
		s.stats.recordSuccess()
		s.metrics.FetchResult(s.name, telemetry.ResultSuccess, result.duration)
		s.publish(
			Snapshot[T]{
				Data:       s.lastCopy(),
				Generation: result.generation,
			},
		)
		if s.store != nil {
			if err := s.store.Save(s.storeKey, result.raw); err != nil {
				s.logger.Warn(
					"Failed to save last known good data",
					"error",
					err,
				)
			}
		}
	}
	s.arm()
}

// arm schedules the next tick
func (s *Scheduler[T]) arm() {
	backoff := s.backoff.Next(s.backoffAttempt)
	urgent := s.last != nil && s.urgencyFunc != nil && s.urgencyFunc(*s.last)
	interval := NextInterval(s.profile, urgent, backoff)
	s.stats.recordSchedule(backoff, interval)
	s.metrics.PollInterval(s.name, interval)
	s.timer.Reset(interval)
	s.setState(StateScheduled)
}

func (s *Scheduler[T]) seed() {
	if s.store == nil {
		return
	}
	entry, ok, err := s.store.Load(s.storeKey)
	if err != nil {
		s.logger.Warn(
			"Failed to load last known good data",
			"error",
			err,
		)
		return
	}
	if !ok || entry.Data == nil {
		return
	}
	data, err := s.decode(entry.Data)
	if err != nil {
		s.logger.Warn(
			"Discarding malformed cached data",
			"error",
			err,
		)
		return
	}
	s.last = &data
	s.publish(
		Snapshot[T]{
			Data:      s.lastCopy(),
			Stale:     true,
			UpdatedAt: entry.SavedAt,
		},
	)
}

func (s *Scheduler[T]) publish(snapshot Snapshot[T]) {
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = time.Now()
	}
	s.snapshotMutex.Lock()
	s.snapshot = snapshot
	s.snapshotMutex.Unlock()
	if s.updateFunc != nil {
		s.updateFunc(snapshot)
	}
}

func (s *Scheduler[T]) lastCopy() *T {
	if s.last == nil {
		return nil
	}
	ret := *s.last
	return &ret
}

func (s *Scheduler[T]) setState(state State) {
	s.state.Store(uint32(state))
}

func isAborted(err error) bool {
	return err != nil && errors.Is(err, context.Canceled)
}

func errorKind(err error) ErrorKind {
	var fallbackErr *acctsync.FallbackError
	if errors.As(err, &fallbackErr) {
		if fallbackErr.Kind == acctsync.FailureRateLimit {
			return ErrorRateLimit
		}
		return ErrorNetwork
	}
	if acctsync.ClassifyFailure(err) == acctsync.FailureRateLimit {
		return ErrorRateLimit
	}
	return ErrorNetwork
}
