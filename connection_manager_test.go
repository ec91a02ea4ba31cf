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
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/acctsync"
	"github.com/blinklabs-io/acctsync/account"
	"github.com/blinklabs-io/acctsync/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var errGeneric = errors.New("connection reset by peer")

type fakeTransport struct {
	name   string
	closed atomic.Bool
}

func (f *fakeTransport) FetchAccount(ctx context.Context, address account.Pubkey) (*rpc.AccountInfo, error) {
	return nil, nil
}

func (f *fakeTransport) FetchSlotHeight(ctx context.Context) (uint64, error) {
	return 0, nil
}

func (f *fakeTransport) Close() error {
	f.closed.Store(true)
	return nil
}

// fakeDialer records every transport it creates
type fakeDialer struct {
	mutex      sync.Mutex
	transports []*fakeTransport
	// gate blocks dials of any endpoint other than the first while non-nil
	gate chan struct{}
}

func (d *fakeDialer) Dial(endpoint acctsync.Endpoint) (rpc.Transport, error) {
	d.mutex.Lock()
	gate := d.gate
	d.mutex.Unlock()
	if gate != nil && endpoint.URL != "x" {
		<-gate
	}
	t := &fakeTransport{name: endpoint.URL}
	d.mutex.Lock()
	d.transports = append(d.transports, t)
	d.mutex.Unlock()
	return t, nil
}

func (d *fakeDialer) Dialed() []string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	ret := make([]string, 0, len(d.transports))
	for _, t := range d.transports {
		ret = append(ret, t.name)
	}
	return ret
}

func testEndpoints(names ...string) []acctsync.Endpoint {
	ret := make([]acctsync.Endpoint, 0, len(names))
	for _, name := range names {
		ret = append(ret, acctsync.Endpoint{URL: name})
	}
	return ret
}

func newTestManager(t *testing.T, dialer *fakeDialer, names ...string) *acctsync.ConnectionManager {
	t.Helper()
	cm, err := acctsync.NewConnectionManager(
		acctsync.WithEndpoints(testEndpoints(names...)...),
		acctsync.WithDialFunc(dialer.Dial),
	)
	require.NoError(t, err)
	return cm
}

func activeName(t *testing.T, cm *acctsync.ConnectionManager) string {
	t.Helper()
	conn, err := cm.Active()
	require.NoError(t, err)
	return conn.Transport().(*fakeTransport).name
}

func TestNewConnectionManagerErrors(t *testing.T) {
	_, err := acctsync.NewConnectionManager(acctsync.WithNetwork(acctsync.NetworkInvalid))
	assert.ErrorIs(t, err, acctsync.ErrInvalidNetwork)
	_, err = acctsync.NewConnectionManager(
		acctsync.WithNetwork(acctsync.Network{Name: "empty"}),
	)
	assert.ErrorIs(t, err, acctsync.ErrNoEndpoints)
}

func TestConnectionManagerLazyDial(t *testing.T) {
	dialer := &fakeDialer{}
	cm := newTestManager(t, dialer, "x", "y")
	assert.Empty(t, dialer.Dialed())
	first, err := cm.Active()
	require.NoError(t, err)
	second, err := cm.Active()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, []string{"x"}, dialer.Dialed())
	assert.Equal(t, 0, first.Index())
	assert.Equal(t, "x", first.Endpoint().URL)
}

func TestConnectionManagerDefaultDial(t *testing.T) {
	cm, err := acctsync.NewConnectionManager(acctsync.WithNetwork(acctsync.NetworkDevnet))
	require.NoError(t, err)
	defer cm.Close()
	conn, err := cm.Active()
	require.NoError(t, err)
	client, ok := conn.Transport().(*rpc.Client)
	require.True(t, ok)
	assert.Equal(t, "https://api.devnet.solana.com", client.URL())
}

func TestConnectionManagerSwitchCyclic(t *testing.T) {
	defer goleak.VerifyNone(t)
	for k := 1; k <= 4; k++ {
		names := make([]string, k)
		for i := range names {
			names[i] = fmt.Sprintf("ep%d", i)
		}
		dialer := &fakeDialer{}
		cm := newTestManager(t, dialer, names...)
		_, err := cm.Active()
		require.NoError(t, err)
		var visited []int
		for i := 0; i < 2*k+1; i++ {
			require.NoError(t, cm.SwitchNext(context.Background()))
			visited = append(visited, cm.ActiveIndex())
		}
		for i, idx := range visited {
			assert.Equal(t, (i+1)%k, idx, "k=%d step=%d", k, i)
		}
		// Every replaced transport was closed
		dialer.mutex.Lock()
		for _, tr := range dialer.transports[:len(dialer.transports)-1] {
			assert.True(t, tr.closed.Load())
		}
		assert.False(t, dialer.transports[len(dialer.transports)-1].closed.Load())
		dialer.mutex.Unlock()
		require.NoError(t, cm.Close())
	}
}

func TestConnectionManagerConcurrentSwitch(t *testing.T) {
	defer goleak.VerifyNone(t)
	dialer := &fakeDialer{}
	cm := newTestManager(t, dialer, "x", "y", "z")
	original, err := cm.Active()
	require.NoError(t, err)
	dialer.mutex.Lock()
	dialer.gate = make(chan struct{})
	gate := dialer.gate
	dialer.mutex.Unlock()

	var wg sync.WaitGroup
	errs := make(chan error, 11)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- cm.SwitchNext(context.Background())
	}()
	require.Eventually(t, cm.Switching, time.Second, time.Millisecond)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- cm.SwitchNext(context.Background())
		}()
	}
	// Readers keep the old connection while the switch is in progress
	conn, err := cm.Active()
	require.NoError(t, err)
	assert.Same(t, original, conn)
	time.Sleep(100 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.False(t, cm.Switching())
	assert.Equal(t, 1, cm.ActiveIndex())
	assert.Equal(t, []string{"x", "y"}, dialer.Dialed())
	require.NoError(t, cm.Close())
}

// holdHandler parks every goroutine that logs msg until the test releases it
type holdHandler struct {
	msg     string
	count   atomic.Int32
	arrived chan struct{}
	release []chan struct{}
}

func newHoldHandler(msg string, n int) *holdHandler {
	h := &holdHandler{
		msg:     msg,
		arrived: make(chan struct{}, n),
		release: make([]chan struct{}, n),
	}
	for i := range h.release {
		h.release[i] = make(chan struct{})
	}
	return h
}

func (h *holdHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *holdHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Message != h.msg {
		return nil
	}
	n := int(h.count.Add(1))
	if n > len(h.release) {
		return nil
	}
	h.arrived <- struct{}{}
	<-h.release[n-1]
	return nil
}

func (h *holdHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *holdHandler) WithGroup(string) slog.Handler { return h }

func TestConnectionManagerConcurrentReportsSwitchOnce(t *testing.T) {
	defer goleak.VerifyNone(t)
	dialer := &fakeDialer{}
	// Both reporters pass the threshold check, then wait between counting the
	// failure and switching
	handler := newHoldHandler("Endpoint failure", 2)
	cm, err := acctsync.NewConnectionManager(
		acctsync.WithEndpoints(testEndpoints("x", "y", "z")...),
		acctsync.WithDialFunc(dialer.Dial),
		acctsync.WithLogger(slog.New(handler)),
	)
	require.NoError(t, err)
	conn, err := cm.Active()
	require.NoError(t, err)

	rateLimitErr := &rpc.HTTPError{StatusCode: http.StatusTooManyRequests}
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- cm.ReportConnectionFailure(context.Background(), conn, rateLimitErr)
		}()
	}
	for i := 0; i < 2; i++ {
		select {
		case <-handler.arrived:
		case <-time.After(5 * time.Second):
			require.FailNow(t, "timed out waiting for failure reports")
		}
	}
	// The first switch completes before the second reporter asks for one
	close(handler.release[0])
	require.Eventually(
		t,
		func() bool { return cm.ActiveIndex() == 1 && !cm.Switching() },
		5*time.Second,
		time.Millisecond,
	)
	close(handler.release[1])
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, cm.ActiveIndex())
	assert.Equal(t, []string{"x", "y"}, dialer.Dialed())
	assert.Equal(t, "y", activeName(t, cm))
	require.NoError(t, cm.Close())
}

func TestConnectionManagerSwitchContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	dialer := &fakeDialer{gate: make(chan struct{})}
	cm := newTestManager(t, dialer, "x", "y")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := cm.SwitchNext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	// The switch itself still completes
	close(dialer.gate)
	require.Eventually(t, func() bool { return cm.ActiveIndex() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !cm.Switching() }, time.Second, time.Millisecond)
	require.NoError(t, cm.Close())
}

func TestConnectionManagerFailover(t *testing.T) {
	dialer := &fakeDialer{}
	cm := newTestManager(t, dialer, "x", "y", "z")
	ctx := context.Background()
	require.Equal(t, "x", activeName(t, cm))

	// Scenario A: three generic failures on X move to Y
	for i := 1; i <= 2; i++ {
		require.NoError(t, cm.ReportFailure(ctx, errGeneric))
		assert.Equal(t, "x", activeName(t, cm))
		assert.Equal(t, uint(i), cm.ConsecutiveFailures())
	}
	require.NoError(t, cm.ReportFailure(ctx, errGeneric))
	assert.Equal(t, "y", activeName(t, cm))
	assert.Equal(t, uint(0), cm.ConsecutiveFailures())

	// Scenario B: one rate-limit failure on Y moves to Z
	require.NoError(t, cm.ReportFailure(ctx, &rpc.HTTPError{StatusCode: http.StatusTooManyRequests}))
	assert.Equal(t, "z", activeName(t, cm))
	assert.Equal(t, uint(0), cm.ConsecutiveFailures())

	// Wraps around
	require.NoError(t, cm.ReportFailure(ctx, errors.New("Too Many Requests")))
	assert.Equal(t, "x", activeName(t, cm))

	statuses := cm.Endpoints()
	require.Len(t, statuses, 3)
	assert.True(t, statuses[0].Active)
	assert.Equal(t, uint64(3), statuses[0].Failures)
	assert.Equal(t, errGeneric.Error(), statuses[0].LastError)
	assert.False(t, statuses[0].LastSwitchedAway.IsZero())
	assert.Equal(t, uint64(1), statuses[1].Failures)
	assert.Equal(t, uint64(1), statuses[2].Failures)
}

func TestConnectionManagerSuccessResets(t *testing.T) {
	dialer := &fakeDialer{}
	cm := newTestManager(t, dialer, "x", "y")
	ctx := context.Background()
	require.NoError(t, cm.ReportFailure(ctx, errGeneric))
	require.NoError(t, cm.ReportFailure(ctx, errGeneric))
	cm.ReportSuccess()
	assert.Equal(t, uint(0), cm.ConsecutiveFailures())
	require.NoError(t, cm.ReportFailure(ctx, errGeneric))
	require.NoError(t, cm.ReportFailure(ctx, errGeneric))
	assert.Equal(t, 0, cm.ActiveIndex())
}

func TestConnectionManagerAbortNotCounted(t *testing.T) {
	dialer := &fakeDialer{}
	cm := newTestManager(t, dialer, "x", "y")
	for i := 0; i < 5; i++ {
		require.NoError(t, cm.ReportFailure(context.Background(), fmt.Errorf("fetch: %w", context.Canceled)))
	}
	assert.Equal(t, uint(0), cm.ConsecutiveFailures())
	assert.Equal(t, 0, cm.ActiveIndex())
}

func TestConnectionManagerStaleConnectionFailure(t *testing.T) {
	dialer := &fakeDialer{}
	cm := newTestManager(t, dialer, "x", "y", "z")
	ctx := context.Background()
	old, err := cm.Active()
	require.NoError(t, err)
	require.NoError(t, cm.ReportConnectionFailure(ctx, old, &rpc.HTTPError{StatusCode: http.StatusTooManyRequests}))
	require.Equal(t, 1, cm.ActiveIndex())
	// Late failures from requests that were in flight on X must not demote Y
	require.NoError(t, cm.ReportConnectionFailure(ctx, old, &rpc.HTTPError{StatusCode: http.StatusTooManyRequests}))
	assert.Equal(t, 1, cm.ActiveIndex())
	assert.Equal(t, uint(0), cm.ConsecutiveFailures())
}

func TestConnectionManagerFailoverProfile(t *testing.T) {
	dialer := &fakeDialer{}
	cm, err := acctsync.NewConnectionManager(
		acctsync.WithEndpoints(testEndpoints("x", "y")...),
		acctsync.WithDialFunc(dialer.Dial),
		acctsync.WithFailoverProfile(acctsync.FailoverProfile{GenericThreshold: 1}),
	)
	require.NoError(t, err)
	profile := cm.FailoverProfile()
	assert.Equal(t, uint(1), profile.GenericThreshold)
	assert.Equal(t, uint(1), profile.RateLimitThreshold)
	assert.Equal(t, uint(3), profile.MaxRetries)
	require.NoError(t, cm.ReportFailure(context.Background(), errGeneric))
	assert.Equal(t, 1, cm.ActiveIndex())
}

func TestConnectionManagerEndpointsCopied(t *testing.T) {
	network := acctsync.Network{
		Name:      "custom",
		Endpoints: testEndpoints("x", "y"),
	}
	dialer := &fakeDialer{}
	cm, err := acctsync.NewConnectionManager(
		acctsync.WithNetwork(network),
		acctsync.WithDialFunc(dialer.Dial),
	)
	require.NoError(t, err)
	network.Endpoints[0].URL = "mutated"
	statuses := cm.Endpoints()
	statuses[1].Endpoint.URL = "mutated"
	assert.Equal(t, "x", activeName(t, cm))
	assert.Equal(t, "y", cm.Endpoints()[1].Endpoint.URL)
}

func TestConnectionManagerClose(t *testing.T) {
	dialer := &fakeDialer{}
	cm := newTestManager(t, dialer, "x", "y")
	_, err := cm.Active()
	require.NoError(t, err)
	require.NoError(t, cm.Close())
	require.NoError(t, cm.Close())
	assert.True(t, dialer.transports[0].closed.Load())
	_, err = cm.Active()
	assert.ErrorIs(t, err, acctsync.ErrConnectionManagerClosed)
	assert.ErrorIs(t, cm.SwitchNext(context.Background()), acctsync.ErrConnectionManagerClosed)
	assert.ErrorIs(t, cm.ReportFailure(context.Background(), errGeneric), acctsync.ErrConnectionManagerClosed)
}
