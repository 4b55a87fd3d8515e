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

// Package topology derives stable, collision-free identities for the
// units that publish scrape and alerting configuration.
//
// A Topology value captures the (model, model UUID, application, unit,
// charm) tuple of a publishing peer. The identity it derives is used to
// namespace scrape job names and alert rule group names so fragments
// contributed by independent peers never collide, and to stamp metric
// and rule labels so published data stays attributable to its origin
// even as units churn.
//
// Topology values are immutable and constructed only through the named
// builders ForProvider and ForAggregator. The two builders produce
// different label sets: the provider variant omits the unit label so
// alert rules evaluate per application, while the aggregator variant
// includes the unit and shortens the model UUID to a 7 character
// prefix. The shortened form is deliberately weaker in uniqueness and
// is kept as a distinct variant rather than unified with the full
// identifier.
package topology
