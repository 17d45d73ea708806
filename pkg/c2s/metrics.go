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

package c2s

import (
	"github.com/ortuman/kestrel/pkg/cluster/instance"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	c2sIncomingConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "c2s",
			Name:      "incoming_connections_total",
			Help:      "The total number of accepted C2S connections.",
		},
		[]string{"instance", "transport"},
	)
	c2sRegisteredStreams = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "kestrel",
			Subsystem: "c2s",
			Name:      "registered_streams",
			Help:      "Current number of bound C2S streams.",
		},
		[]string{"instance"},
	)
	c2sOutgoingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "c2s",
			Name:      "outgoing_requests_total",
			Help:      "The total number of outgoing stanza requests.",
		},
		[]string{"instance", "name", "type"},
	)
	c2sIncomingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "c2s",
			Name:      "incoming_requests_total",
			Help:      "The total number of incoming stanza requests.",
		},
		[]string{"instance", "name", "type"},
	)
	c2sIncomingRequestDurationBucket = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kestrel",
			Subsystem: "c2s",
			Name:      "incoming_requests_duration_bucket",
			Help:      "Bucketed histogram of incoming stanza requests duration.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		},
		[]string{"instance", "name", "type"},
	)
)

func init() {
	prometheus.MustRegister(c2sIncomingConnections)
	prometheus.MustRegister(c2sRegisteredStreams)
	prometheus.MustRegister(c2sOutgoingRequests)
	prometheus.MustRegister(c2sIncomingRequests)
	prometheus.MustRegister(c2sIncomingRequestDurationBucket)
}

func reportIncomingConnection(transport string) {
	c2sIncomingConnections.With(prometheus.Labels{
		"instance":  instance.ID(),
		"transport": transport,
	}).Inc()
}

func reportRegisteredStreams(count int) {
	c2sRegisteredStreams.With(prometheus.Labels{"instance": instance.ID()}).Set(float64(count))
}

func reportOutgoingRequest(name, typ string) {
	c2sOutgoingRequests.With(prometheus.Labels{
		"instance": instance.ID(),
		"name":     name,
		"type":     typ,
	}).Inc()
}

func reportIncomingRequest(name, typ string, durationInSecs float64) {
	metricLabel := prometheus.Labels{
		"instance": instance.ID(),
		"name":     name,
		"type":     typ,
	}
	c2sIncomingRequests.With(metricLabel).Inc()
	c2sIncomingRequestDurationBucket.With(metricLabel).Observe(durationInSecs)
}
