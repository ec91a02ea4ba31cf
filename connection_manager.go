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
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/acctsync/internal/telemetry"
	"github.com/jinzhu/copier"
	"golang.org/x/sync/singleflight"
)

const switchKey = "switch"

// ConnectionManager owns the active endpoint and fails over between the
// configured endpoints. One instance is shared by every poll scheduler
type ConnectionManager struct {
	network           Network
	endpointsOverride []Endpoint
	failoverOverride  *FailoverProfile
	dialFunc          DialFunc
	logger            *slog.Logger
	metrics           *telemetry.Metrics

	failover            FailoverProfile
	endpoints           []endpointState
	mutex               sync.Mutex
	activeIndex         int
	active              *Connection
	consecutiveFailures uint
	closed              bool
	// switchEpoch counts completed switches
	switchEpoch uint64
	lastConnId  atomic.Uint64
	switching   atomic.Int32
	switchGroup singleflight.Group
}

type endpointState struct {
	endpoint         Endpoint
	failures         uint64
	lastError        error
	lastSwitchedAway time.Time
}

// EndpointStatus is a snapshot of an endpoint's health bookkeeping
type EndpointStatus struct {
	Endpoint         Endpoint
	Active           bool
	Failures         uint64
	LastError        string
	LastSwitchedAway time.Time
}

// NewConnectionManager returns a new ConnectionManager with the specified options.
// No transport is created until the first call to Active
func NewConnectionManager(options ...ConnectionManagerOptionFunc) (*ConnectionManager, error) {
	c := &ConnectionManager{
		network:  NetworkLocalnet,
		dialFunc: DefaultDialFunc,
	}
	for _, option := range options {
		option(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "connection_manager")
	if c.network.Name == NetworkInvalid.Name {
		return nil, ErrInvalidNetwork
	}
	// The registry's list is copied so nothing outside the manager can change it
	srcEndpoints := c.network.Endpoints
	if len(c.endpointsOverride) > 0 {
		srcEndpoints = c.endpointsOverride
	}
	var endpoints []Endpoint
	if err := copier.CopyWithOption(&endpoints, &srcEndpoints, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("copy endpoints: %w", err)
	}
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	c.endpoints = make([]endpointState, len(endpoints))
	for idx, endpoint := range endpoints {
		c.endpoints[idx].endpoint = endpoint
	}
	c.failover = c.network.Failover
	if c.failoverOverride != nil {
		c.failover = *c.failoverOverride
	}
	if c.failover.RateLimitThreshold == 0 {
		c.failover.RateLimitThreshold = DefaultFailoverProfile.RateLimitThreshold
	}
	if c.failover.GenericThreshold == 0 {
		c.failover.GenericThreshold = DefaultFailoverProfile.GenericThreshold
	}
	if c.failover.MaxRetries == 0 {
		c.failover.MaxRetries = DefaultFailoverProfile.MaxRetries
	}
	return c, nil
}

// Network returns the network profile the manager was created with
func (c *ConnectionManager) Network() Network {
	return c.network
}

// FailoverProfile returns the effective failover thresholds
func (c *ConnectionManager) FailoverProfile() FailoverProfile {
	return c.failover
}

// Active returns the connection for the active endpoint, creating it on first use
func (c *ConnectionManager) Active() (*Connection, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return nil, ErrConnectionManagerClosed
	}
	if c.active != nil {
		return c.active, nil
	}
	conn, err := c.dial(c.activeIndex)
	if err != nil {
		return nil, err
	}
	c.active = conn
	return conn, nil
}

// ActiveIndex returns the index of the active endpoint
func (c *ConnectionManager) ActiveIndex() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.activeIndex
}

// ConsecutiveFailures returns the failures counted against the active endpoint
func (c *ConnectionManager) ConsecutiveFailures() uint {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.consecutiveFailures
}

// Switching reports whether an endpoint switch is in progress
func (c *ConnectionManager) Switching() bool {
	return c.switching.Load() > 0
}

// Endpoints returns a snapshot of every endpoint's status
func (c *ConnectionManager) Endpoints() []EndpointStatus {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ret := make([]EndpointStatus, 0, len(c.endpoints))
	for idx, state := range c.endpoints {
		status := EndpointStatus{
			Endpoint:         state.endpoint,
			Active:           idx == c.activeIndex,
			Failures:         state.failures,
			LastSwitchedAway: state.lastSwitchedAway,
		}
		if state.lastError != nil {
			status.LastError = state.lastError.Error()
		}
		ret = append(ret, status)
	}
	return ret
}

// ReportSuccess resets the consecutive failure counter
func (c *ConnectionManager) ReportSuccess() {
	c.mutex.Lock()
	c.consecutiveFailures = 0
	c.mutex.Unlock()
}

// ReportFailure counts a failure against the active endpoint and switches to the next
// endpoint once the threshold for the failure's kind is reached
func (c *ConnectionManager) ReportFailure(ctx context.Context, err error) error {
	return c.reportFailure(ctx, nil, err)
}

// ReportConnectionFailure is like ReportFailure, but the failure is ignored if conn is
// no longer the active connection
func (c *ConnectionManager) ReportConnectionFailure(ctx context.Context, conn *Connection, err error) error {
	return c.reportFailure(ctx, conn, err)
}

func (c *ConnectionManager) reportFailure(ctx context.Context, conn *Connection, err error) error {
	kind := ClassifyFailure(err)
	if kind == FailureAborted {
		return nil
	}
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return ErrConnectionManagerClosed
	}
	if conn != nil && (c.active == nil || c.active.id != conn.id) {
		c.mutex.Unlock()
		c.logger.Debug(
			"Ignoring failure from replaced connection",
			"connection",
			conn.String(),
			"error",
			err,
		)
		return nil
	}
	c.consecutiveFailures++
	state := &c.endpoints[c.activeIndex]
	state.failures++
	state.lastError = err
	threshold := c.failover.GenericThreshold
	if kind == FailureRateLimit {
		threshold = c.failover.RateLimitThreshold
	}
	failures := c.consecutiveFailures
	endpoint := state.endpoint
	epoch := c.switchEpoch
	c.mutex.Unlock()
	c.metrics.EndpointFailure(endpoint.String(), kind.String())
	c.logger.Debug(
		"Endpoint failure",
		"endpoint",
		endpoint.String(),
		"kind",
		kind.String(),
		"consecutive_failures",
		failures,
		"error",
		err,
	)
	if failures < threshold {
		return nil
	}
	return c.switchFrom(ctx, epoch)
}

// SwitchNext advances to the next endpoint in order, wrapping around at the end of
// the list. Callers that arrive while a switch is running wait for that switch
// rather than starting another one
func (c *ConnectionManager) SwitchNext(ctx context.Context) error {
	c.mutex.Lock()
	epoch := c.switchEpoch
	c.mutex.Unlock()
	return c.switchFrom(ctx, epoch)
}

// switchFrom switches away from the endpoint that was active at epoch. It does
// nothing if a switch has completed since then
func (c *ConnectionManager) switchFrom(ctx context.Context, epoch uint64) error {
	resultChan := c.switchGroup.DoChan(
		switchKey+":"+strconv.FormatUint(epoch, 10),
		func() (any, error) {
			return nil, c.switchNext(epoch)
		},
	)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case result := <-resultChan:
		return result.Err
	}
}

func (c *ConnectionManager) switchNext(epoch uint64) error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return ErrConnectionManagerClosed
	}
	if c.switchEpoch != epoch {
		// Already switched away from the endpoint the caller saw fail
		c.mutex.Unlock()
		return nil
	}
	c.switching.Add(1)
	defer c.switching.Add(-1)
	oldIndex := c.activeIndex
	nextIndex := (oldIndex + 1) % len(c.endpoints)
	c.mutex.Unlock()
	// Dial outside the lock so readers keep using the old connection meanwhile
	newConn, dialErr := c.dial(nextIndex)
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		closeConnection(newConn)
		return ErrConnectionManagerClosed
	}
	c.switchEpoch++
	oldConn := c.active
	c.activeIndex = nextIndex
	// A failed dial leaves no connection; Active dials again lazily
	c.active = newConn
	c.consecutiveFailures = 0
	c.endpoints[oldIndex].lastSwitchedAway = time.Now()
	from := c.endpoints[oldIndex].endpoint
	to := c.endpoints[nextIndex].endpoint
	c.mutex.Unlock()
	closeConnection(oldConn)
	c.metrics.EndpointSwitch(from.String(), to.String(), nextIndex)
	c.logger.Warn(
		"Switched RPC endpoint",
		"from",
		from.String(),
		"to",
		to.String(),
		"index",
		nextIndex,
	)
	if dialErr != nil {
		return dialErr
	}
	return nil
}

// Close closes the active transport. Any later call to Active fails
func (c *ConnectionManager) Close() error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return nil
	}
	c.closed = true
	conn := c.active
	c.active = nil
	c.mutex.Unlock()
	return closeConnection(conn)
}

func (c *ConnectionManager) dial(index int) (*Connection, error) {
	endpoint := c.endpoints[index].endpoint
	transport, err := c.dialFunc(endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &Connection{
		id:        ConnectionId(c.lastConnId.Add(1)),
		index:     index,
		endpoint:  endpoint,
		transport: transport,
	}, nil
}

func closeConnection(conn *Connection) error {
	if conn == nil {
		return nil
	}
	if closer, ok := conn.transport.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
