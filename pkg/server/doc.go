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

// Package server exposes the relay's aggregated state over HTTP.
//
// Endpoints:
//   - GET /health: liveness probe
//   - GET /ready: readiness probe, 503 until the serve loop marks ready
//   - GET /metrics: Prometheus metrics
//   - GET /v1/aggregate: the merged scrape jobs and labeled alert rules
//
// The /v1/aggregate endpoint runs behind the standard middleware chain:
// request metrics, request ID propagation, panic recovery, token-bucket
// rate limiting, and request logging.
package server
