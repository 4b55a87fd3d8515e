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
	"testing"

	apperrors "github.com/NVIDIA/scrape-relay/pkg/errors"
)

func TestParseOutputTarget(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantIsOCI bool
		wantReg   string
		wantRepo  string
		wantTag   string
		wantDir   string
		wantErr   bool
	}{
		{
			name:    "local directory relative",
			input:   "./bundle-out",
			wantDir: "./bundle-out",
		},
		{
			name:    "local directory absolute",
			input:   "/tmp/bundles",
			wantDir: "/tmp/bundles",
		},
		{
			name:    "local directory current",
			input:   ".",
			wantDir: ".",
		},
		{
			name:      "OCI with tag",
			input:     "oci://ghcr.io/nvidia/scrape-relay:v1.0.0",
			wantIsOCI: true,
			wantReg:   "ghcr.io",
			wantRepo:  "nvidia/scrape-relay",
			wantTag:   "v1.0.0",
		},
		{
			name:      "OCI without tag leaves tag empty",
			input:     "oci://ghcr.io/nvidia/scrape-relay",
			wantIsOCI: true,
			wantReg:   "ghcr.io",
			wantRepo:  "nvidia/scrape-relay",
		},
		{
			name:      "OCI with port",
			input:     "oci://localhost:5000/relay:dev",
			wantIsOCI: true,
			wantReg:   "localhost:5000",
			wantRepo:  "relay",
			wantTag:   "dev",
		},
		{
			name:    "OCI with invalid reference",
			input:   "oci://ghcr.io/UPPER CASE",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseOutputTarget(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputTarget() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if ref.IsOCI != tt.wantIsOCI {
				t.Errorf("IsOCI = %v, want %v", ref.IsOCI, tt.wantIsOCI)
			}
			if ref.Registry != tt.wantReg || ref.Repository != tt.wantRepo || ref.Tag != tt.wantTag {
				t.Errorf("parsed (%q, %q, %q), want (%q, %q, %q)",
					ref.Registry, ref.Repository, ref.Tag, tt.wantReg, tt.wantRepo, tt.wantTag)
			}
			if ref.LocalPath != tt.wantDir {
				t.Errorf("LocalPath = %q, want %q", ref.LocalPath, tt.wantDir)
			}
		})
	}
}

func TestReferenceString(t *testing.T) {
	local := &Reference{LocalPath: "/tmp/out"}
	if local.String() != "/tmp/out" {
		t.Errorf("local String() = %q", local.String())
	}

	tagged := &Reference{IsOCI: true, Registry: "ghcr.io", Repository: "nvidia/scrape-relay", Tag: "v1"}
	if tagged.String() != "oci://ghcr.io/nvidia/scrape-relay:v1" {
		t.Errorf("tagged String() = %q", tagged.String())
	}
	if tagged.ImageReference() != "ghcr.io/nvidia/scrape-relay:v1" {
		t.Errorf("ImageReference() = %q", tagged.ImageReference())
	}

	untagged := tagged.WithTag("")
	if untagged.String() != "oci://ghcr.io/nvidia/scrape-relay" {
		t.Errorf("untagged String() = %q", untagged.String())
	}
	if local.ImageReference() != "" {
		t.Errorf("local ImageReference() = %q", local.ImageReference())
	}
}

func TestWithTag(t *testing.T) {
	ref := &Reference{IsOCI: true, Registry: "ghcr.io", Repository: "nvidia/scrape-relay"}
	tagged := ref.WithTag("v2.0.0")
	if tagged.Tag != "v2.0.0" {
		t.Errorf("Tag = %q, want v2.0.0", tagged.Tag)
	}
	if ref.Tag != "" {
		t.Error("WithTag mutated the original reference")
	}

	local := &Reference{LocalPath: "/tmp/out"}
	if local.WithTag("v1") != local {
		t.Error("WithTag on local reference should return the same reference")
	}
}

func TestPushBundle_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := PushBundle(ctx, BundleConfig{SourceDir: t.TempDir()})
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST for missing reference, got %v", err)
	}

	_, err = PushBundle(ctx, BundleConfig{
		SourceDir: t.TempDir(),
		Reference: &Reference{LocalPath: "/tmp/out"},
	})
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST for local reference, got %v", err)
	}

	_, err = PushBundle(ctx, BundleConfig{
		SourceDir: t.TempDir(),
		Reference: &Reference{IsOCI: true, Registry: "ghcr.io", Repository: "nvidia/scrape-relay"},
	})
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST for missing tag, got %v", err)
	}
}
