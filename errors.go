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

package acctsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/blinklabs-io/acctsync/rpc"
)

var (
	ErrNoEndpoints             = errors.New("no endpoints configured")
	ErrInvalidNetwork          = errors.New("invalid network")
	ErrConnectionManagerClosed = errors.New("connection manager closed")
)

// FailureKind is the failover class of an error
type FailureKind uint8

const (
	FailureGeneric FailureKind = iota
	FailureRateLimit
	FailureAborted
)

func (k FailureKind) String() string {
	switch k {
	case FailureGeneric:
		return "generic"
	case FailureRateLimit:
		return "rate_limit"
	case FailureAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Error text that marks a rate limit when the transport does not expose a status code
var rateLimitSignatures = []string{
	"429",
	"rate limit",
	"too many requests",
}

// ClassifyFailure decides how an error counts toward failover
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureGeneric
	}
	if errors.Is(err, context.Canceled) {
		return FailureAborted
	}
	var httpErr *rpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
		return FailureRateLimit
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range rateLimitSignatures {
		if strings.Contains(msg, sig) {
			return FailureRateLimit
		}
	}
	return FailureGeneric
}

// FallbackError is returned once every fallback attempt has failed
type FallbackError struct {
	Attempts uint
	Kind     FailureKind
	Err      error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("failed after %d attempts (%s): %s", e.Attempts, e.Kind, e.Err)
}

func (e *FallbackError) Unwrap() error {
	return e.Err
}
