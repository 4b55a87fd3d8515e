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

// Package relation models the data bags exchanged between related
// applications and the events that fire when they change.
//
// A relation is identified by "name:ordinal" (for example
// "metrics-endpoint:0"). Each relation carries one data bag per remote
// application and one per remote unit; bags are flat string maps. The
// Store interface abstracts where bags live: MemoryStore keeps them
// in-process for tests and single-binary runs, ConfigMapStore persists
// each relation as a Kubernetes ConfigMap so separate processes can
// share state.
//
// Stores are passive. The Poller turns periodic store snapshots into
// joined/changed/departed events for consumers that react to peers
// rather than poll them.
package relation
