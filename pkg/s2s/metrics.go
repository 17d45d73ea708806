// Copyright 2024 The jackal Authors
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

package s2s

import (
	"time"

	"github.com/ortuman/kestrel/pkg/cluster/instance"
	"github.com/prometheus/client_golang/prometheus"
)

const reportTotalConnectionsInterval = time.Second * 30

var (
	s2sIncomingConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "s2s",
			Name:      "incoming_connections_total",
			Help:      "The total number of incoming connection register and unregister operations.",
		},
		[]string{"instance", "op"},
	)
	s2sIncomingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "s2s",
			Name:      "incoming_rejected_total",
			Help:      "The total number of incoming streams rejected by access rules or failed authentication.",
		},
		[]string{"instance", "reason"},
	)
	s2sOutgoingConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "s2s",
			Name:      "outgoing_connections_total",
			Help:      "The total number of outgoing connection register and unregister operations.",
		},
		[]string{"instance", "op"},
	)
	s2sOutgoingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "s2s",
			Name:      "outgoing_requests_total",
			Help:      "The total number of outgoing stanza requests.",
		},
		[]string{"instance", "name", "type"},
	)
	s2sIncomingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "s2s",
			Name:      "incoming_requests_total",
			Help:      "The total number of incoming stanza requests.",
		},
		[]string{"instance", "name", "type"},
	)
	s2sIncomingRequestDurationBucket = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kestrel",
			Subsystem: "s2s",
			Name:      "incoming_requests_duration_bucket",
			Help:      "Bucketed histogram of incoming stanza requests duration.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 24),
		},
		[]string{"instance", "name", "type"},
	)
	s2sCircuitStateChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "s2s",
			Name:      "circuit_state_changes_total",
			Help:      "The total number of remote domain circuit breaker transitions.",
		},
		[]string{"instance", "state"},
	)
	s2sIncomingTotalConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "kestrel",
			Subsystem: "s2s",
			Name:      "incoming_total_connections",
			Help:      "Total S2S incoming connections.",
		},
		[]string{"instance"},
	)
	s2sOutgoingTotalConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "kestrel",
			Subsystem: "s2s",
			Name:      "outgoing_total_connections",
			Help:      "Total S2S outgoing connections.",
		},
		[]string{"instance"},
	)
)

func init() {
	prometheus.MustRegister(s2sIncomingConnections)
	prometheus.MustRegister(s2sIncomingRejected)
	prometheus.MustRegister(s2sOutgoingConnections)
	prometheus.MustRegister(s2sOutgoingRequests)
	prometheus.MustRegister(s2sIncomingRequests)
	prometheus.MustRegister(s2sIncomingRequestDurationBucket)
	prometheus.MustRegister(s2sCircuitStateChanges)
	prometheus.MustRegister(s2sIncomingTotalConnections)
	prometheus.MustRegister(s2sOutgoingTotalConnections)
}

func reportIncomingConnection(op string) {
	s2sIncomingConnections.With(prometheus.Labels{
		"instance": instance.ID(),
		"op":       op,
	}).Inc()
}

func reportIncomingRejected(reason string) {
	s2sIncomingRejected.With(prometheus.Labels{
		"instance": instance.ID(),
		"reason":   reason,
	}).Inc()
}

func reportOutgoingConnection(op string) {
	s2sOutgoingConnections.With(prometheus.Labels{
		"instance": instance.ID(),
		"op":       op,
	}).Inc()
}

func reportOutgoingRequest(name, typ string) {
	metricLabel := prometheus.Labels{
		"instance": instance.ID(),
		"name":     name,
		"type":     typ,
	}
	s2sOutgoingRequests.With(metricLabel).Inc()
}

func reportIncomingRequest(name, typ string, durationInSecs float64) {
	metricLabel := prometheus.Labels{
		"instance": instance.ID(),
		"name":     name,
		"type":     typ,
	}
	s2sIncomingRequests.With(metricLabel).Inc()
	s2sIncomingRequestDurationBucket.With(metricLabel).Observe(durationInSecs)
}

func reportCircuitStateChange(state string) {
	s2sCircuitStateChanges.With(prometheus.Labels{
		"instance": instance.ID(),
		"state":    state,
	}).Inc()
}

func reportTotalIncomingConnections(totalConns int) {
	s2sIncomingTotalConnections.With(prometheus.Labels{"instance": instance.ID()}).Set(float64(totalConns))
}

func reportTotalOutgoingConnections(totalConns int) {
	s2sOutgoingTotalConnections.With(prometheus.Labels{"instance": instance.ID()}).Set(float64(totalConns))
}
