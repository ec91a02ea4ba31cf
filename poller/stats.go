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
	"sync"
	"sync/atomic"
	"time"
)

// schedulerStats tracks per-resource counters.
// Uses atomic counters so Stats can be read from any goroutine.
type schedulerStats struct {
	fetches       atomic.Uint64
	successes     atomic.Uint64
	absent        atomic.Uint64
	failures      atomic.Uint64
	malformed     atomic.Uint64
	staleDropped  atomic.Uint64
	aborts        atomic.Uint64
	skippedTicks  atomic.Uint64
	forcedFetches atomic.Uint64

	// Poll state (requires mutex)
	mu             sync.RWMutex
	generation     uint64
	lastFetchAt    time.Time
	lastSuccessAt  time.Time
	currentBackoff time.Duration
	nextInterval   time.Duration
}

// Stats is a snapshot of a scheduler's counters and poll state
type Stats struct {
	Fetches       uint64
	Successes     uint64
	Absent        uint64
	Failures      uint64
	Malformed     uint64
	StaleDropped  uint64
	Aborts        uint64
	SkippedTicks  uint64
	ForcedFetches uint64

	Generation     uint64
	LastFetchAt    time.Time
	LastSuccessAt  time.Time
	CurrentBackoff time.Duration
	NextInterval   time.Duration
}

func (m *schedulerStats) recordFetchStart(generation uint64, forced bool) {
	m.fetches.Add(1)
	if forced {
		m.forcedFetches.Add(1)
	}
	m.mu.Lock()
	m.generation = generation
	m.lastFetchAt = time.Now()
	m.mu.Unlock()
}

func (m *schedulerStats) recordSuccess() {
	m.successes.Add(1)
	m.mu.Lock()
	m.lastSuccessAt = time.Now()
	m.mu.Unlock()
}

func (m *schedulerStats) recordSchedule(backoff time.Duration, interval time.Duration) {
	m.mu.Lock()
	m.currentBackoff = backoff
	m.nextInterval = interval
	m.mu.Unlock()
}

func (m *schedulerStats) snapshot() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Stats{
		Fetches:        m.fetches.Load(),
		Successes:      m.successes.Load(),
		Absent:         m.absent.Load(),
		Failures:       m.failures.Load(),
		Malformed:      m.malformed.Load(),
		StaleDropped:   m.staleDropped.Load(),
		Aborts:         m.aborts.Load(),
		SkippedTicks:   m.skippedTicks.Load(),
		ForcedFetches:  m.forcedFetches.Load(),
		Generation:     m.generation,
		LastFetchAt:    m.lastFetchAt,
		LastSuccessAt:  m.lastSuccessAt,
		CurrentBackoff: m.currentBackoff,
		NextInterval:   m.nextInterval,
	}
}
