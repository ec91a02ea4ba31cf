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
	"log/slog"

	"github.com/blinklabs-io/acctsync/internal/telemetry"
)

// ConnectionManagerOptionFunc is a type that represents functions that modify the ConnectionManager config
type ConnectionManagerOptionFunc func(*ConnectionManager)

// WithNetwork specifies the network profile. Its endpoints are used unless WithEndpoints is also given
func WithNetwork(network Network) ConnectionManagerOptionFunc {
	return func(c *ConnectionManager) {
		c.network = network
	}
}

// WithEndpoints specifies the endpoint list, overriding the network's list
func WithEndpoints(endpoints ...Endpoint) ConnectionManagerOptionFunc {
	return func(c *ConnectionManager) {
		c.endpointsOverride = endpoints
	}
}

// WithDialFunc specifies the function used to create transports. The default creates an rpc.Client
func WithDialFunc(dialFunc DialFunc) ConnectionManagerOptionFunc {
	return func(c *ConnectionManager) {
		c.dialFunc = dialFunc
	}
}

// WithLogger specifies the logger. The default is slog.Default()
func WithLogger(logger *slog.Logger) ConnectionManagerOptionFunc {
	return func(c *ConnectionManager) {
		c.logger = logger
	}
}

// WithMetrics specifies the metrics to record to
func WithMetrics(metrics *telemetry.Metrics) ConnectionManagerOptionFunc {
	return func(c *ConnectionManager) {
		c.metrics = metrics
	}
}

// WithFailoverProfile overrides the network's failover thresholds
func WithFailoverProfile(profile FailoverProfile) ConnectionManagerOptionFunc {
	return func(c *ConnectionManager) {
		c.failoverOverride = &profile
	}
}
