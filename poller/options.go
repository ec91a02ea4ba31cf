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
	"log/slog"

	"github.com/blinklabs-io/acctsync"
	"github.com/blinklabs-io/acctsync/internal/telemetry"
	"github.com/blinklabs-io/acctsync/store"
)

// OptionFunc is a type that represents functions that modify the Scheduler config
type OptionFunc[T any] func(*Scheduler[T])

// WithUrgencyFunc specifies the func that decides whether the resource's deadline is
// near enough to poll at the fast interval
func WithUrgencyFunc[T any](urgencyFunc func(T) bool) OptionFunc[T] {
	return func(s *Scheduler[T]) {
		s.urgencyFunc = urgencyFunc
	}
}

// WithUpdateFunc specifies the func that receives every published snapshot. It is
// called from the scheduler's goroutine and must not block
func WithUpdateFunc[T any](updateFunc func(Snapshot[T])) OptionFunc[T] {
	return func(s *Scheduler[T]) {
		s.updateFunc = updateFunc
	}
}

// WithLogger specifies the logger. The default is slog.Default()
func WithLogger[T any](logger *slog.Logger) OptionFunc[T] {
	return func(s *Scheduler[T]) {
		s.logger = logger
	}
}

// WithMetrics specifies the metrics to record to
func WithMetrics[T any](metrics *telemetry.Metrics) OptionFunc[T] {
	return func(s *Scheduler[T]) {
		s.metrics = metrics
	}
}

// WithStore specifies where the last known good raw data is kept under key. The
// scheduler seeds itself from the store on start
func WithStore[T any](st store.Store, key string) OptionFunc[T] {
	return func(s *Scheduler[T]) {
		s.store = st
		s.storeKey = key
	}
}

// WithFallbackOptions specifies options passed to acctsync.WithFallback for each fetch
func WithFallbackOptions[T any](options ...acctsync.FallbackOptionFunc) OptionFunc[T] {
	return func(s *Scheduler[T]) {
		s.fallbackOptions = append(s.fallbackOptions, options...)
	}
}
