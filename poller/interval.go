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
	"time"

	"github.com/blinklabs-io/acctsync"
)

// Used when a profile leaves every interval unset
const fallbackInterval = 1 * time.Second

type PollingProfile = acctsync.PollingProfile

// NextInterval picks the delay until the next poll. The candidate is the fast
// interval when urgent and the normal interval otherwise. A larger backoff
// replaces the candidate, and the result is never below the profile's floor
func NextInterval(profile PollingProfile, urgent bool, backoff time.Duration) time.Duration {
	candidate := profile.Normal
	if urgent && profile.Fast > 0 {
		candidate = profile.Fast
	}
	if backoff > candidate {
		candidate = backoff
	}
	if candidate < profile.Floor {
		candidate = profile.Floor
	}
	if candidate <= 0 {
		candidate = fallbackInterval
	}
	return candidate
}

func profileBackoff(profile PollingProfile) Backoff {
	return Backoff{
		Min:    profile.BackoffMin,
		Max:    profile.BackoffMax,
		Factor: defaultBackoffFactor,
	}
}
