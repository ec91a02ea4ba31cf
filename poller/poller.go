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

// Package poller implements adaptive polling of a single resource.
//
// Each Scheduler runs on its own goroutine and fetches its resource through
// the shared ConnectionManager. Only one fetch per resource runs at a time.
// Every fetch carries a generation number, and a result whose generation has
// been superseded is dropped. The poll interval tightens as the resource's
// deadline approaches and backs off after failures.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/blinklabs-io/acctsync/rpc"
)

var (
	ErrSchedulerStarted = errors.New("poller: scheduler already started")
	ErrMissingFetch     = errors.New("poller: missing fetch func")
	ErrMissingDecode    = errors.New("poller: missing decode func")
	ErrMissingManager   = errors.New("poller: missing connection manager")
)

// State is the scheduler's position in its fetch cycle
type State uint8

const (
	StateIdle State = iota
	StateFetching
	StateScheduled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateFetching:
		return "Fetching"
	case StateScheduled:
		return "Scheduled"
	default:
		return "Unknown"
	}
}

// ErrorKind tells the consumer why a snapshot is stale
type ErrorKind uint8

const (
	ErrorNone ErrorKind = iota
	ErrorNetwork
	ErrorRateLimit
	ErrorMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorNetwork:
		return "network"
	case ErrorRateLimit:
		return "rate_limit"
	case ErrorMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Snapshot is what the consumer sees of a resource. Data is nil when the
// account does not exist or nothing has been fetched yet. Stale is set when
// Data is the last known good value rather than the result of the latest fetch
type Snapshot[T any] struct {
	Data       *T
	Stale      bool
	Kind       ErrorKind
	Err        error
	Generation uint64
	UpdatedAt  time.Time
}

// FetchFunc reads the raw bytes of a resource. It returns nil bytes with no
// error if the resource does not exist
type FetchFunc func(ctx context.Context, transport rpc.Transport) ([]byte, error)

// DecodeFunc turns raw bytes into the resource's typed value
type DecodeFunc[T any] func(data []byte) (T, error)

// Config describes one polled resource
type Config[T any] struct {
	Name   string
	Fetch  FetchFunc
	Decode DecodeFunc[T]
	// Profile holds the interval constants. The zero value uses the connection
	// manager's network profile
	Profile PollingProfile
}
