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

// Package errors provides structured error types for scrape-relay.
//
// Errors carry a machine-readable code alongside the human-readable
// message so callers can classify failures without string matching.
// The propagation policy follows the codes: CONFIG_MISMATCH is fatal at
// setup, while MALFORMED_FRAGMENT, TOOL_UNAVAILABLE, TOOL_FAILURE and
// TARGET_FORMAT are scoped to a single peer's fragment and must never
// abort processing of other peers.
package errors
