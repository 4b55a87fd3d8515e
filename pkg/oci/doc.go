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

// Package oci pushes rendered aggregate bundles (scrape job and alert
// rule files) to OCI-compliant registries using ORAS.
//
// Output targets are parsed by ParseOutputTarget: an oci://registry/repo:tag
// URI selects a registry push, anything else is treated as a local
// directory. Bundles are packed as OCI 1.1 artifacts with a dedicated
// artifact type so downstream tooling can discover them by media type.
package oci
