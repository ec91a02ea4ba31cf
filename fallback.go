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
	"time"

	"github.com/blinklabs-io/acctsync/rpc"
)

// FallbackOptionFunc is a type that represents functions that modify the fallback config
type FallbackOptionFunc func(*fallbackConfig)

type fallbackConfig struct {
	maxRetries uint
	baseDelay  time.Duration
}

// WithMaxRetries specifies the number of attempts. The default comes from the failover profile
func WithMaxRetries(maxRetries uint) FallbackOptionFunc {
	return func(c *fallbackConfig) {
		c.maxRetries = maxRetries
	}
}

// WithBaseDelay specifies the delay unit between attempts. Attempt n is followed by a
// wait of n*baseDelay. The default comes from the polling profile
func WithBaseDelay(baseDelay time.Duration) FallbackOptionFunc {
	return func(c *fallbackConfig) {
		c.baseDelay = baseDelay
	}
}

// WithFallback runs op against the active endpoint, retrying on failure. Every
// failure is reported to the connection manager, which may switch endpoints
// between attempts. A cancelled context ends the loop at once and is not
// counted as an endpoint failure
func WithFallback[T any](
	ctx context.Context,
	cm *ConnectionManager,
	op func(context.Context, rpc.Transport) (T, error),
	options ...FallbackOptionFunc,
) (T, error) {
	var zero T
	cfg := fallbackConfig{
		maxRetries: cm.failover.MaxRetries,
		baseDelay:  cm.network.Polling.RetryBaseDelay,
	}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.maxRetries == 0 {
		cfg.maxRetries = 1
	}
	var lastErr error
	for attempt := uint(1); attempt <= cfg.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		conn, err := cm.Active()
		if err != nil {
			if errors.Is(err, ErrConnectionManagerClosed) {
				return zero, err
			}
			lastErr = err
			if err := cm.ReportFailure(ctx, err); err != nil && ctx.Err() != nil {
				return zero, ctx.Err()
			}
		} else {
			ret, err := op(ctx, conn.Transport())
			if err == nil {
				cm.ReportSuccess()
				return ret, nil
			}
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			if ClassifyFailure(err) == FailureAborted {
				return zero, err
			}
			lastErr = err
			if err := cm.ReportConnectionFailure(ctx, conn, err); err != nil {
				if errors.Is(err, ErrConnectionManagerClosed) {
					return zero, err
				}
				if ctx.Err() != nil {
					return zero, ctx.Err()
				}
				// A failed dial of the next endpoint is retried by Active on the next attempt
				cm.logger.Warn(
					"Endpoint switch failed",
					"error",
					err,
				)
			}
		}
		if attempt == cfg.maxRetries {
			break
		}
		delay := time.Duration(attempt) * cfg.baseDelay
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, &FallbackError{
		Attempts: cfg.maxRetries,
		Kind:     ClassifyFailure(lastErr),
		Err:      lastErr,
	}
}
