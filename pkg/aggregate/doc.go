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

// Package aggregate assembles scrape jobs and alert rules from relation
// data into the documents a Prometheus-compatible monitor consumes.
//
// Three roles share the package. Provider publishes one application's
// jobs, rules and unit addresses. Consumer reads every publishing
// peer's bags and emits fully labeled jobs and rule groups, skipping
// peers whose data is malformed. Engine sits between applications that
// publish nothing but bare host/port targets and the monitor: it
// derives labeled jobs and rules on their behalf and maintains the
// merged documents incrementally as units come and go.
//
// Merging is by fragment name: a job replaces the job with the same
// job_name, a rule group replaces the group with the same name.
// Repeating an update is therefore idempotent, and updates from
// different peers commute.
package aggregate
