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

package serializer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	accorev1 "k8s.io/client-go/applyconfigurations/core/v1"

	"github.com/NVIDIA/scrape-relay/pkg/defaults"
	"github.com/NVIDIA/scrape-relay/pkg/k8s/client"
)

// ConfigMapURIScheme prefixes ConfigMap output destinations
// (cm://namespace/name).
const ConfigMapURIScheme = "cm://"

// ConfigMapWriter writes serialized aggregate documents to a Kubernetes
// ConfigMap. The ConfigMap is created if it doesn't exist, or updated if
// it does.
type ConfigMapWriter struct {
	namespace string
	name      string
	format    Format
	clientset client.Interface
}

// NewConfigMapWriter creates a new ConfigMapWriter that writes to the specified
// namespace and ConfigMap name in the given format. The Kubernetes client is
// discovered lazily on first write.
func NewConfigMapWriter(namespace, name string, format Format) *ConfigMapWriter {
	if format.IsUnknown() {
		slog.Warn("unknown format, defaulting to JSON", "format", format)
		format = FormatJSON
	}
	return &ConfigMapWriter{
		namespace: namespace,
		name:      name,
		format:    format,
	}
}

// WithClient overrides the lazily discovered Kubernetes client. Used by
// tests with a fake clientset.
func (w *ConfigMapWriter) WithClient(clientset client.Interface) *ConfigMapWriter {
	w.clientset = clientset
	return w
}

// Serialize writes the aggregate document to the ConfigMap:
// - data.aggregate.{yaml|json}: the serialized document
// - data.format: the format used (yaml or json)
// - data.timestamp: ISO 8601 write time
func (w *ConfigMapWriter) Serialize(ctx context.Context, doc any) error {
	writeCtx, cancel := context.WithTimeout(ctx, defaults.StoreWriteTimeout)
	defer cancel()

	clientset := w.clientset
	if clientset == nil {
		var err error
		clientset, err = client.GetKubeClient()
		if err != nil {
			return fmt.Errorf("failed to get kubernetes client: %w", err)
		}
	}

	var content []byte
	var extension string
	var err error
	switch w.format {
	case FormatJSON:
		content, err = serializeJSON(doc)
		extension = "json"
	case FormatYAML:
		content, err = serializeYAML(doc)
		extension = "yaml"
	default:
		return fmt.Errorf("unsupported format for ConfigMap: %s", w.format)
	}
	if err != nil {
		return fmt.Errorf("failed to serialize aggregate document: %w", err)
	}

	configMapData := map[string]string{
		fmt.Sprintf("aggregate.%s", extension): string(content),
		"format":                               string(w.format),
		"timestamp":                            time.Now().UTC().Format(time.RFC3339),
	}

	configMap := accorev1.ConfigMap(w.name, w.namespace).
		WithLabels(map[string]string{
			"app.kubernetes.io/name": "scrape-relay",
		}).
		WithData(configMapData)

	// Server-Side Apply gives atomic create-or-update; Force takes
	// ownership from any previous field manager.
	slog.Info("applying ConfigMap",
		"namespace", w.namespace,
		"name", w.name,
		"format", w.format)

	_, err = clientset.CoreV1().ConfigMaps(w.namespace).Apply(
		writeCtx,
		configMap,
		metav1.ApplyOptions{
			FieldManager: "scrape-relay",
			Force:        true,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to apply ConfigMap: %w", err)
	}

	return nil
}

// Close is a no-op for ConfigMapWriter as there are no resources to release.
// This method exists to satisfy the Closer interface.
func (w *ConfigMapWriter) Close() error {
	return nil
}

// parseConfigMapURI parses a ConfigMap URI in the format cm://namespace/name
// and returns the namespace and name components.
// Returns an error if the URI is malformed.
func parseConfigMapURI(uri string) (namespace, name string, err error) {
	if !strings.HasPrefix(uri, ConfigMapURIScheme) {
		return "", "", fmt.Errorf("invalid ConfigMap URI: must start with %s", ConfigMapURIScheme)
	}

	path := strings.TrimPrefix(uri, ConfigMapURIScheme)

	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid ConfigMap URI format: expected %snamespace/name, got %s", ConfigMapURIScheme, uri)
	}

	namespace = strings.TrimSpace(parts[0])
	name = strings.TrimSpace(parts[1])

	if namespace == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: namespace cannot be empty")
	}
	if name == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: name cannot be empty")
	}

	return namespace, name, nil
}
