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

// Package transform injects topology label matchers into PromQL
// expressions via the external promql-transform tool.
//
// The tool ships as an architecture-suffixed binary
// (promql-transform-amd64, promql-transform-arm64, ...) resolved from a
// resource directory or PATH. Availability is resolved once and cached:
// a missing tool degrades the Labeler to an identity transform rather
// than an error, because labeled-but-unscoped rules are still useful.
// A failed or timed-out invocation likewise keeps the original
// expression for that one rule only.
package transform
