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

// Package telemetry exposes Prometheus metrics for the connection manager and
// poll schedulers. A nil *Metrics is valid and records nothing.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "acctsync"

// Fetch results
const (
	ResultSuccess   = "success"
	ResultAbsent    = "absent"
	ResultMalformed = "malformed"
	ResultFailure   = "failure"
	ResultStale     = "stale"
	ResultAborted   = "aborted"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	endpointSwitches *prometheus.CounterVec
	endpointFailures *prometheus.CounterVec
	activeEndpoint   prometheus.Gauge
	fetchResults     *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	skippedTicks     *prometheus.CounterVec
	pollInterval     *prometheus.GaugeVec
}

// New creates the metrics and registers them with the registry. A nil registry
// creates a private one
func New(registry *prometheus.Registry) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: registry,
		endpointSwitches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "endpoint_switches_total",
				Help:      "Total number of endpoint switches.",
			},
			[]string{"from", "to"},
		),
		endpointFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "endpoint_failures_total",
				Help:      "Failures reported against the active endpoint by kind.",
			},
			[]string{"endpoint", "kind"},
		),
		activeEndpoint: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_endpoint_index",
				Help:      "Index of the active endpoint.",
			},
		),
		fetchResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_results_total",
				Help:      "Poll fetch results by resource and result.",
			},
			[]string{"resource", "result"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of poll fetches including retries.",
				// 5ms .. ~40s
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"resource"},
		),
		skippedTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_ticks_total",
				Help:      "Timer ticks skipped while paused.",
			},
			[]string{"resource"},
		),
		pollInterval: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "poll_interval_seconds",
				Help:      "Most recently armed poll interval.",
			},
			[]string{"resource"},
		),
	}
	collectors := []prometheus.Collector{
		m.endpointSwitches,
		m.endpointFailures,
		m.activeEndpoint,
		m.fetchResults,
		m.fetchDuration,
		m.skippedTicks,
		m.pollInterval,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) EndpointSwitch(from string, to string, toIndex int) {
	if m == nil {
		return
	}
	m.endpointSwitches.WithLabelValues(from, to).Inc()
	m.activeEndpoint.Set(float64(toIndex))
}

func (m *Metrics) EndpointFailure(endpoint string, kind string) {
	if m == nil {
		return
	}
	m.endpointFailures.WithLabelValues(endpoint, kind).Inc()
}

func (m *Metrics) FetchResult(resource string, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.fetchResults.WithLabelValues(resource, result).Inc()
	if duration > 0 {
		m.fetchDuration.WithLabelValues(resource).Observe(duration.Seconds())
	}
}

func (m *Metrics) SkippedTick(resource string) {
	if m == nil {
		return
	}
	m.skippedTicks.WithLabelValues(resource).Inc()
}

func (m *Metrics) PollInterval(resource string, interval time.Duration) {
	if m == nil {
		return
	}
	m.pollInterval.WithLabelValues(resource).Set(interval.Seconds())
}
