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

// Package scrape models Prometheus scrape job fragments and labels them
// with peer topology.
//
// A Job is the allow-listed subset of a Prometheus scrape_config that
// peers are permitted to publish; anything outside the allow-list is
// silently dropped during sanitization. Label turns a sanitized job
// into the fragment published toward the monitoring side: wildcard
// targets (*:port) are expanded once per known peer unit address,
// fixed-host targets keep peer-level labels, and a final relabel rule
// derives the instance label from topology instead of ephemeral
// network identity so instances stay stable across unit recreation.
package scrape
