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

package router

import (
	"github.com/ortuman/kestrel/pkg/cluster/instance"
	"github.com/prometheus/client_golang/prometheus"
)

var routedStanzas = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "kestrel",
		Subsystem: "router",
		Name:      "routed_stanzas_total",
		Help:      "The total number of routed stanzas by outcome.",
	},
	[]string{"instance", "name", "outcome"},
)

func init() {
	prometheus.MustRegister(routedStanzas)
}

func reportRoutedStanza(name string, outcome Outcome) {
	routedStanzas.With(prometheus.Labels{
		"instance": instance.ID(),
		"name":     name,
		"outcome":  outcome.String(),
	}).Inc()
}
