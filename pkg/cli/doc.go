/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/

// Package cli implements the relay command tree: lint, render, push,
// and serve.
package cli
