// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Merge engine metrics
	engineMerges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_engine_merges_total",
			Help: "Total number of fragment merges into downstream documents",
		},
		[]string{"kind"},
	)
	engineRemovals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_engine_removals_total",
			Help: "Total number of per-unit fragment removals from downstream documents",
		},
		[]string{"kind"},
	)
	engineResyncs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_engine_resyncs_total",
			Help: "Total number of full downstream resyncs on monitor joins",
		},
	)

	// Consumer-side fragment handling metrics
	consumerPeersSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_consumer_peers_skipped_total",
			Help: "Total number of peers skipped because their relation data was malformed",
		},
	)
)
