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

package relation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	accorev1 "k8s.io/client-go/applyconfigurations/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/utils/ptr"

	"github.com/NVIDIA/scrape-relay/pkg/defaults"
	apperrors "github.com/NVIDIA/scrape-relay/pkg/errors"
	"github.com/NVIDIA/scrape-relay/pkg/k8s/client"
)

const (
	configMapPrefix = "relay-rel-"
	dataKey         = "relation.json"
	fieldManager    = "scrape-relay"

	labelName         = "app.kubernetes.io/name"
	labelNameValue    = "scrape-relay"
	labelRelationName = "scrape-relay.nvidia.com/relation"

	annotationRelationID = "scrape-relay.nvidia.com/relation-id"
	annotationInterface  = "scrape-relay.nvidia.com/interface"
)

// document is the persisted shape of one relation's bags.
type document struct {
	ID    string          `json:"id"`
	App   map[string]Data `json:"app_data,omitempty"`
	Units map[string]Data `json:"unit_data,omitempty"`
}

// ConfigMapStore persists each relation as a ConfigMap holding one JSON
// document, so publisher and aggregator processes can share bags
// through the cluster.
//
// Writes go through Server-Side Apply with a forced field manager, the
// same atomic create-or-update pattern used for all our cluster writes.
// A relation is expected to have a single writing manager; concurrent
// writers would be last-writer-wins.
type ConfigMapStore struct {
	client    kubernetes.Interface
	namespace string
}

// NewConfigMapStore wraps an existing Kubernetes client.
func NewConfigMapStore(client kubernetes.Interface, namespace string) *ConfigMapStore {
	return &ConfigMapStore{client: client, namespace: namespace}
}

// NewConfigMapStoreForKubeconfig builds the Kubernetes client from the
// given kubeconfig path. An empty path falls back to KUBECONFIG, then
// ~/.kube/config, then in-cluster configuration.
func NewConfigMapStoreForKubeconfig(kubeconfig, namespace string) (*ConfigMapStore, error) {
	clientset, err := client.BuildKubeClient(kubeconfig)
	if err != nil {
		return nil, err
	}
	return NewConfigMapStore(clientset, namespace), nil
}

// Relations implements Store by listing ConfigMaps labeled with the
// relation name.
func (s *ConfigMapStore) Relations(ctx context.Context, name string) ([]string, error) {
	readCtx, cancel := context.WithTimeout(ctx, defaults.StoreReadTimeout)
	defer cancel()

	list, err := s.client.CoreV1().ConfigMaps(s.namespace).List(readCtx, metav1.ListOptions{
		LabelSelector:  fmt.Sprintf("%s=%s,%s=%s", labelName, labelNameValue, labelRelationName, name),
		TimeoutSeconds: ptr.To(int64(defaults.StoreReadTimeout.Seconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list relation configmaps: %w", err)
	}

	ids := make([]string, 0, len(list.Items))
	for _, cm := range list.Items {
		// a relation recorded under a foreign interface is a wiring
		// mistake; fail loudly rather than exchange data over it
		if iface := cm.Annotations[annotationInterface]; iface != "" && iface != defaults.MetricsInterfaceName {
			return nil, apperrors.NewWithContext(apperrors.ErrCodeConfigMismatch,
				"relation has unexpected interface",
				map[string]any{
					"configmap": cm.Name,
					"interface": iface,
					"expected":  defaults.MetricsInterfaceName,
				})
		}
		if id := cm.Annotations[annotationRelationID]; id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// AppData implements Store.
func (s *ConfigMapStore) AppData(ctx context.Context, id, app string) (Data, error) {
	doc, err := s.read(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.App[app], nil
}

// SetAppData implements Store.
func (s *ConfigMapStore) SetAppData(ctx context.Context, id, app string, data Data) error {
	return s.update(ctx, id, func(doc *document) {
		if doc.App == nil {
			doc.App = make(map[string]Data)
		}
		doc.App[app] = data.Clone()
	})
}

// Units implements Store.
func (s *ConfigMapStore) Units(ctx context.Context, id string) ([]string, error) {
	doc, err := s.read(ctx, id)
	if err != nil {
		return nil, err
	}
	units := make([]string, 0, len(doc.Units))
	for unit := range doc.Units {
		units = append(units, unit)
	}
	sort.Strings(units)
	return units, nil
}

// UnitData implements Store.
func (s *ConfigMapStore) UnitData(ctx context.Context, id, unit string) (Data, error) {
	doc, err := s.read(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.Units[unit], nil
}

// SetUnitData implements Store.
func (s *ConfigMapStore) SetUnitData(ctx context.Context, id, unit string, data Data) error {
	return s.update(ctx, id, func(doc *document) {
		if doc.Units == nil {
			doc.Units = make(map[string]Data)
		}
		doc.Units[unit] = data.Clone()
	})
}

// DeleteUnitData implements Store.
func (s *ConfigMapStore) DeleteUnitData(ctx context.Context, id, unit string) error {
	return s.update(ctx, id, func(doc *document) {
		delete(doc.Units, unit)
	})
}

// read fetches a relation document. A missing ConfigMap reads as an
// empty document.
func (s *ConfigMapStore) read(ctx context.Context, id string) (document, error) {
	doc := document{ID: id}
	if err := validateID(id); err != nil {
		return doc, err
	}

	readCtx, cancel := context.WithTimeout(ctx, defaults.StoreReadTimeout)
	defer cancel()

	cm, err := s.client.CoreV1().ConfigMaps(s.namespace).Get(readCtx, configMapName(id), metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return doc, nil
		}
		return doc, fmt.Errorf("failed to get relation configmap: %w", err)
	}

	raw, ok := cm.Data[dataKey]
	if !ok || raw == "" {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return document{ID: id}, fmt.Errorf("failed to decode relation configmap %s: %w", configMapName(id), err)
	}
	return doc, nil
}

// update applies mutate to the current document and writes it back.
func (s *ConfigMapStore) update(ctx context.Context, id string, mutate func(*document)) error {
	doc, err := s.read(ctx, id)
	if err != nil {
		return err
	}
	mutate(&doc)

	content, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode relation document: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, defaults.StoreWriteTimeout)
	defer cancel()

	configMap := accorev1.ConfigMap(configMapName(id), s.namespace).
		WithLabels(map[string]string{
			labelName:         labelNameValue,
			labelRelationName: Name(id),
		}).
		WithAnnotations(map[string]string{
			annotationRelationID: id,
			annotationInterface:  defaults.MetricsInterfaceName,
		}).
		WithData(map[string]string{
			dataKey: string(content),
		})

	_, err = s.client.CoreV1().ConfigMaps(s.namespace).Apply(
		writeCtx,
		configMap,
		metav1.ApplyOptions{
			FieldManager: fieldManager,
			Force:        true,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to apply relation configmap: %w", err)
	}
	return nil
}

// configMapName derives a DNS-safe ConfigMap name from a relation ID.
func configMapName(id string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, id)
	return configMapPrefix + mapped
}
