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

// Package header provides the common envelope for relay documents.
//
// Rendered aggregates and pushed bundles embed a Header so consumers can
// identify the document type and schema version before parsing the rest:
//
//	{
//	  "kind": "Aggregate",
//	  "apiVersion": "relay.nvidia.com/v1",
//	  "metadata": {
//	    "model": "lma",
//	    "application": "my-app"
//	  }
//	}
//
// The Metadata map carries the publishing topology's identity labels.
// Consumers should check APIVersion before parsing:
//
//	if h.APIVersion != header.APIVersion {
//	    return fmt.Errorf("unsupported API version: %s", h.APIVersion)
//	}
package header
