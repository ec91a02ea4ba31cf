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

package acctsync_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/acctsync"
	"github.com/blinklabs-io/acctsync/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestClassifyFailure(t *testing.T) {
	testDefs := []struct {
		err      error
		expected acctsync.FailureKind
	}{
		{err: &rpc.HTTPError{StatusCode: http.StatusTooManyRequests}, expected: acctsync.FailureRateLimit},
		{err: fmt.Errorf("fetch board: %w", &rpc.HTTPError{StatusCode: 429}), expected: acctsync.FailureRateLimit},
		{err: &rpc.HTTPError{StatusCode: http.StatusBadGateway}, expected: acctsync.FailureGeneric},
		{err: errors.New("server responded with 429"), expected: acctsync.FailureRateLimit},
		{err: errors.New("Rate Limit exceeded"), expected: acctsync.FailureRateLimit},
		{err: errors.New("TOO MANY REQUESTS"), expected: acctsync.FailureRateLimit},
		{err: &rpc.ResponseError{Code: -32005, Message: "rate limited"}, expected: acctsync.FailureRateLimit},
		{err: errors.New("connection refused"), expected: acctsync.FailureGeneric},
		{err: context.DeadlineExceeded, expected: acctsync.FailureGeneric},
		{err: context.Canceled, expected: acctsync.FailureAborted},
		{err: fmt.Errorf("superseded: %w", context.Canceled), expected: acctsync.FailureAborted},
		{err: nil, expected: acctsync.FailureGeneric},
	}
	for _, testDef := range testDefs {
		assert.Equal(t, testDef.expected, acctsync.ClassifyFailure(testDef.err), "error %v", testDef.err)
	}
}

func TestFailureKindString(t *testing.T) {
	testDefs := map[acctsync.FailureKind]string{
		acctsync.FailureGeneric:   "generic",
		acctsync.FailureRateLimit: "rate_limit",
		acctsync.FailureAborted:   "aborted",
		acctsync.FailureKind(99):  "unknown",
	}
	for k, v := range testDefs {
		assert.Equal(t, v, k.String())
	}
}

// scriptedOp fails with the scripted error for each call, then succeeds
type scriptedOp struct {
	mutex sync.Mutex
	errs  []error
	seen  []string
}

func (s *scriptedOp) Run(ctx context.Context, transport rpc.Transport) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	name := transport.(*fakeTransport).name
	s.seen = append(s.seen, name)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return "ok:" + name, nil
}

func TestWithFallbackSuccess(t *testing.T) {
	cm := newTestManager(t, &fakeDialer{}, "x", "y")
	op := &scriptedOp{}
	ret, err := acctsync.WithFallback(context.Background(), cm, op.Run)
	require.NoError(t, err)
	assert.Equal(t, "ok:x", ret)
	assert.Equal(t, []string{"x"}, op.seen)
}

func TestWithFallbackRetriesThenSucceeds(t *testing.T) {
	cm := newTestManager(t, &fakeDialer{}, "x", "y")
	op := &scriptedOp{errs: []error{errGeneric, errGeneric}}
	ret, err := acctsync.WithFallback(
		context.Background(),
		cm,
		op.Run,
		acctsync.WithBaseDelay(time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, "ok:x", ret)
	assert.Equal(t, []string{"x", "x", "x"}, op.seen)
	assert.Equal(t, uint(0), cm.ConsecutiveFailures())
	assert.Equal(t, 0, cm.ActiveIndex())
}

func TestWithFallbackRateLimitRotates(t *testing.T) {
	cm := newTestManager(t, &fakeDialer{}, "x", "y", "z")
	op := &scriptedOp{
		errs: []error{
			&rpc.HTTPError{StatusCode: http.StatusTooManyRequests},
			errors.New("429 Too Many Requests"),
		},
	}
	ret, err := acctsync.WithFallback(
		context.Background(),
		cm,
		op.Run,
		acctsync.WithBaseDelay(time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, "ok:z", ret)
	assert.Equal(t, []string{"x", "y", "z"}, op.seen)
}

func TestWithFallbackExhausted(t *testing.T) {
	cm := newTestManager(t, &fakeDialer{}, "x", "y")
	op := &scriptedOp{errs: []error{errGeneric, errGeneric, errGeneric, errGeneric}}
	start := time.Now()
	_, err := acctsync.WithFallback(
		context.Background(),
		cm,
		op.Run,
		acctsync.WithBaseDelay(20*time.Millisecond),
	)
	elapsed := time.Since(start)
	require.Error(t, err)
	var fallbackErr *acctsync.FallbackError
	require.True(t, errors.As(err, &fallbackErr))
	assert.Equal(t, uint(3), fallbackErr.Attempts)
	assert.Equal(t, acctsync.FailureGeneric, fallbackErr.Kind)
	assert.ErrorIs(t, err, errGeneric)
	// Waits of 1x and 2x the base delay, none after the last attempt
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Equal(t, []string{"x", "x", "x"}, op.seen)
	// The third generic failure reached the threshold
	assert.Equal(t, 1, cm.ActiveIndex())
}

func TestWithFallbackMaxRetries(t *testing.T) {
	cm := newTestManager(t, &fakeDialer{}, "x", "y")
	op := &scriptedOp{errs: []error{errGeneric, errGeneric, errGeneric, errGeneric, errGeneric}}
	_, err := acctsync.WithFallback(
		context.Background(),
		cm,
		op.Run,
		acctsync.WithMaxRetries(5),
		acctsync.WithBaseDelay(0),
	)
	var fallbackErr *acctsync.FallbackError
	require.True(t, errors.As(err, &fallbackErr))
	assert.Equal(t, uint(5), fallbackErr.Attempts)
	assert.Equal(t, []string{"x", "x", "x", "y", "y"}, op.seen)
}

func TestWithFallbackCancelDuringOp(t *testing.T) {
	defer goleak.VerifyNone(t)
	cm := newTestManager(t, &fakeDialer{}, "x", "y")
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	go func() {
		<-started
		cancel()
	}()
	_, err := acctsync.WithFallback(
		ctx,
		cm,
		func(ctx context.Context, transport rpc.Transport) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, fmt.Errorf("request aborted: %w", ctx.Err())
		},
	)
	assert.ErrorIs(t, err, context.Canceled)
	var fallbackErr *acctsync.FallbackError
	assert.False(t, errors.As(err, &fallbackErr))
	assert.Equal(t, uint(0), cm.ConsecutiveFailures())
	assert.Equal(t, uint64(0), cm.Endpoints()[0].Failures)
}

func TestWithFallbackCancelDuringDelay(t *testing.T) {
	cm := newTestManager(t, &fakeDialer{}, "x", "y")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	op := &scriptedOp{errs: []error{errGeneric, errGeneric, errGeneric}}
	start := time.Now()
	_, err := acctsync.WithFallback(ctx, cm, op.Run, acctsync.WithBaseDelay(10*time.Second))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []string{"x"}, op.seen)
}

func TestWithFallbackClosedManager(t *testing.T) {
	cm := newTestManager(t, &fakeDialer{}, "x")
	require.NoError(t, cm.Close())
	op := &scriptedOp{}
	_, err := acctsync.WithFallback(context.Background(), cm, op.Run)
	assert.ErrorIs(t, err, acctsync.ErrConnectionManagerClosed)
	assert.Empty(t, op.seen)
}

func TestWithFallbackDialFailure(t *testing.T) {
	dialed := 0
	cm, err := acctsync.NewConnectionManager(
		acctsync.WithEndpoints(testEndpoints("bad", "good")...),
		acctsync.WithDialFunc(func(endpoint acctsync.Endpoint) (rpc.Transport, error) {
			dialed++
			if endpoint.URL == "bad" {
				return nil, errors.New("unsupported scheme")
			}
			return &fakeTransport{name: endpoint.URL}, nil
		}),
		acctsync.WithFailoverProfile(acctsync.FailoverProfile{GenericThreshold: 1, MaxRetries: 2}),
	)
	require.NoError(t, err)
	op := &scriptedOp{}
	ret, err := acctsync.WithFallback(context.Background(), cm, op.Run, acctsync.WithBaseDelay(0))
	require.NoError(t, err)
	assert.Equal(t, "ok:good", ret)
	assert.Equal(t, 2, dialed)
}
