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

import "time"

const (
	defaultBackoffMin    = 500 * time.Millisecond
	defaultBackoffMax    = 30 * time.Second
	defaultBackoffFactor = 2.0
)

// Backoff computes the delay after consecutive failed polls. There is no
// jitter, so the delay never decreases as attempts grow
type Backoff struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
}

// Next returns the backoff duration for the given attempt (1-based). Attempt 0
// means no backoff
func (b Backoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	minWait := b.Min
	if minWait <= 0 {
		minWait = defaultBackoffMin
	}
	maxWait := b.Max
	if maxWait <= 0 {
		maxWait = defaultBackoffMax
	}
	if minWait > maxWait {
		return maxWait
	}
	factor := b.Factor
	if factor <= 1 {
		factor = defaultBackoffFactor
	}
	wait := minWait
	for i := 1; i < attempt; i++ {
		next := time.Duration(float64(wait) * factor)
		if next > maxWait || next <= wait {
			return maxWait
		}
		wait = next
	}
	return wait
}
