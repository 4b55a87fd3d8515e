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

// Package rules aggregates Prometheus alert rule fragments and stamps
// them with topology.
//
// Rule fragments come in two shapes: the official Prometheus form
// ({groups: [...]}) and a single-rule form (one {alert, expr, ...}
// object per file), for which a synthetic group named after the file is
// created. Group names are augmented with the topology identifier and
// the file's path relative to the rules root, so groups from different
// peers or different sub-paths never collide. Every rule is stamped
// with topology labels (topology wins on key collision) and its
// expression has the topology stub rendered.
//
// Failure policy: malformed YAML, missing files and missing directories
// are non-fatal. They are logged and skipped, because one broken rule
// fragment must never block propagation of everything else.
package rules
