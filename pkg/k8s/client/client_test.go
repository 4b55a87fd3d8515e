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

package client

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKubeClientPathResolution(t *testing.T) {
	tests := []struct {
		name          string
		kubeconfigArg string
		kubeconfigEnv string
	}{
		{
			name:          "explicit invalid path",
			kubeconfigArg: "/nonexistent/path/to/kubeconfig",
		},
		{
			name:          "env var with invalid path",
			kubeconfigEnv: "/nonexistent/env/kubeconfig",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.kubeconfigEnv != "" {
				t.Setenv("KUBECONFIG", tt.kubeconfigEnv)
			} else {
				t.Setenv("KUBECONFIG", "")
			}

			_, err := BuildKubeClient(tt.kubeconfigArg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to build kube config")
		})
	}
}

func TestBuildKubeClientInvalidContent(t *testing.T) {
	invalidConfig := filepath.Join(t.TempDir(), "invalid-kubeconfig")
	require.NoError(t, os.WriteFile(invalidConfig, []byte("invalid yaml content"), 0o644))

	_, err := BuildKubeClient(invalidConfig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build kube config")
}

// GetKubeClient must return the exact same result on every call,
// whether initialization succeeded or failed.
func TestGetKubeClientSingleton(t *testing.T) {
	clientOnce = sync.Once{}
	cachedClient = nil
	clientErr = nil
	defer func() {
		clientOnce = sync.Once{}
		cachedClient = nil
		clientErr = nil
	}()

	client1, err1 := GetKubeClient()
	client2, err2 := GetKubeClient()

	//nolint:errorlint // intentionally checking pointer equality (singleton pattern)
	assert.True(t, err1 == err2, "expected identical error instance")
	assert.True(t, client1 == client2, "expected identical client instance")
}
