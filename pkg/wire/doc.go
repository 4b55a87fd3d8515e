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

// Package wire encodes and decodes the three relation data keys
// exchanged between publishing and monitoring peers: scrape_metadata,
// scrape_jobs and alert_rules. Each key carries an independently
// JSON-encoded string. Encoding is deterministic so that peers can
// detect change by comparing raw strings; absent or empty values decode
// to zero values without error.
package wire
