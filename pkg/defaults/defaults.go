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

package defaults

import "time"

// Transform timeouts for the external label-matcher tool.
const (
	// TransformTimeout bounds a single promql-transform invocation.
	// A timed-out invocation is treated like an unavailable tool for
	// that one expression; it must never stall the event handler.
	TransformTimeout = 5 * time.Second
)

// Relation store timeouts.
const (
	// StoreWriteTimeout bounds a single relation-data write, including
	// the ConfigMap apply performed by the Kubernetes-backed store.
	StoreWriteTimeout = 30 * time.Second

	// StoreReadTimeout bounds a single relation-data read.
	StoreReadTimeout = 10 * time.Second

	// StorePollInterval is how often the serve loop polls the relation
	// store for peer data changes when no native watch is available.
	StorePollInterval = 15 * time.Second
)

// Server timeouts for the HTTP status server.
const (
	// ServerReadTimeout is the maximum duration for reading a request.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 15 * time.Second
)

// Server rate limiting.
const (
	// ServerRateLimit is the sustained request rate per second.
	ServerRateLimit = 50

	// ServerRateLimitBurst is the burst size for the token bucket.
	ServerRateLimitBurst = 100
)

// Relation names and rule file locations.
const (
	// MetricsRelationName is the conventional name of the relation over
	// which scrape configuration is exchanged.
	MetricsRelationName = "metrics-endpoint"

	// MetricsInterfaceName is the interface both ends of the relation
	// must declare.
	MetricsInterfaceName = "prometheus_scrape"

	// AlertRulesPath is the conventional location of alert rule
	// fragments relative to the publishing charm's root.
	AlertRulesPath = "./src/prometheus_alert_rules"

	// TargetRelationName is the relation over which applications expose
	// bare hostname/port scrape targets to the aggregating engine.
	TargetRelationName = "prometheus-target"

	// RuleRelationName is the relation over which applications expose
	// unlabeled rule groups to the aggregating engine.
	RuleRelationName = "prometheus-rules"

	// MonitorRelationName is the downstream relation the engine
	// publishes merged jobs and rules on.
	MonitorRelationName = "prometheus"
)
