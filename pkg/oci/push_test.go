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

package oci

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	ocistore "oras.land/oras-go/v2/content/oci"

	apperrors "github.com/NVIDIA/scrape-relay/pkg/errors"
)

func TestStripProtocol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://ghcr.io", "ghcr.io"},
		{"http://localhost:5000", "localhost:5000"},
		{"registry.example.com", "registry.example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripProtocol(tt.input); got != tt.expected {
			t.Errorf("stripProtocol(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestPush_EmptyTag(t *testing.T) {
	_, err := Push(context.Background(), PushOptions{
		SourceDir:  t.TempDir(),
		Registry:   "ghcr.io",
		Repository: "nvidia/scrape-relay",
	})
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest) {
		t.Errorf("Push() error = %v, want INVALID_REQUEST", err)
	}
}

func TestPush_InvalidReference(t *testing.T) {
	_, err := Push(context.Background(), PushOptions{
		SourceDir:  t.TempDir(),
		Registry:   "invalid registry with spaces",
		Repository: "nvidia/scrape-relay",
		Tag:        "v1.0.0",
	})
	if err == nil {
		t.Error("Push() expected error for invalid registry, got nil")
	}
}

// Exercises the same pack-and-copy path Push uses, but against a local
// OCI layout store instead of a remote registry.
func TestBundlePackaging(t *testing.T) {
	ctx := context.Background()

	bundleDir := t.TempDir()
	files := map[string]string{
		"jobs.json":  `[{"job_name":"juju_lma_1234567_app_prometheus_scrape"}]`,
		"rules.yaml": "groups:\n  - name: alerts\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(bundleDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	layoutDir := t.TempDir()
	layout, err := ocistore.New(layoutDir)
	if err != nil {
		t.Fatalf("Failed to create OCI layout store: %v", err)
	}

	fs, err := file.New(bundleDir)
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}
	defer func() { _ = fs.Close() }()
	fs.TarReproducible = true

	layerDesc, err := fs.Add(ctx, ".", ociv1.MediaTypeImageLayerGzip, bundleDir)
	if err != nil {
		t.Fatalf("Failed to add bundle directory: %v", err)
	}

	manifestDesc, err := oras.PackManifest(ctx, fs, oras.PackManifestVersion1_1, ArtifactType,
		oras.PackManifestOptions{
			Layers: []ociv1.Descriptor{layerDesc},
			ManifestAnnotations: map[string]string{
				"org.opencontainers.image.version": "v1.0.0",
			},
		})
	if err != nil {
		t.Fatalf("Failed to pack manifest: %v", err)
	}

	tag := "v1.0.0"
	if err := fs.Tag(ctx, manifestDesc, tag); err != nil {
		t.Fatalf("Failed to tag manifest: %v", err)
	}

	desc, err := oras.Copy(ctx, fs, tag, layout, tag, oras.DefaultCopyOptions)
	if err != nil {
		t.Fatalf("Failed to copy to OCI layout: %v", err)
	}
	if desc.Digest.String() == "" {
		t.Fatal("pushed manifest has empty digest")
	}

	manifestPath := filepath.Join(layoutDir, "blobs", "sha256",
		strings.TrimPrefix(desc.Digest.String(), "sha256:"))
	manifestData, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("Failed to read manifest: %v", err)
	}

	var manifest ociv1.Manifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		t.Fatalf("Failed to unmarshal manifest: %v", err)
	}
	if manifest.ArtifactType != ArtifactType {
		t.Errorf("ArtifactType = %q, want %q", manifest.ArtifactType, ArtifactType)
	}
	if len(manifest.Layers) != 1 {
		t.Fatalf("Manifest has %d layers, want 1", len(manifest.Layers))
	}
	if manifest.Annotations["org.opencontainers.image.version"] != "v1.0.0" {
		t.Errorf("missing version annotation: %v", manifest.Annotations)
	}
}
