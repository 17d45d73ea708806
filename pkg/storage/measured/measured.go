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

package measuredrepository

import (
	"context"
	"strconv"

	"github.com/ortuman/kestrel/pkg/cluster/instance"
	"github.com/ortuman/kestrel/pkg/storage/repository"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	upsertOp = "upsert"
	fetchOp  = "fetch"
	deleteOp = "delete"
)

var (
	repOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "The total number of repository operations.",
		},
		[]string{"instance", "type", "success"},
	)
	repOperationDurationBucket = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kestrel",
			Subsystem: "storage",
			Name:      "operations_duration_bucket",
			Help:      "Bucketed histogram of repository operations duration.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 20),
		},
		[]string{"instance", "type", "success"},
	)
)

func init() {
	prometheus.MustRegister(repOperations)
	prometheus.MustRegister(repOperationDurationBucket)
}

// Measured is measured Repository implementation.
type Measured struct {
	measuredOfflineRep
	measuredRoomRep
	measuredPubSubRep
	rep repository.Repository
}

// New returns a new initialized Measured repository.
func New(rep repository.Repository) repository.Repository {
	return &Measured{
		measuredOfflineRep: measuredOfflineRep{rep: rep},
		measuredRoomRep:    measuredRoomRep{rep: rep},
		measuredPubSubRep:  measuredPubSubRep{rep: rep},
		rep:                rep,
	}
}

// Start initializes repository.
func (m *Measured) Start(ctx context.Context) error {
	return m.rep.Start(ctx)
}

// Stop releases all underlying repository resources.
func (m *Measured) Stop(ctx context.Context) error {
	return m.rep.Stop(ctx)
}

func reportOpMetric(opType string, durationInSecs float64, success bool) {
	metricLabel := prometheus.Labels{
		"instance": instance.ID(),
		"type":     opType,
		"success":  strconv.FormatBool(success),
	}
	repOperations.With(metricLabel).Inc()
	repOperationDurationBucket.With(metricLabel).Observe(durationInSecs)
}
