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

// Package defaults provides centralized configuration constants for scrape-relay.
//
// This package defines timeout values, relation key names, and other
// configuration defaults used across the codebase. Centralizing these
// values ensures consistency and makes tuning easier. All values are
// process-wide immutable configuration: initialized once, never mutated,
// and passed into pure functions rather than read as ambient state.
package defaults
