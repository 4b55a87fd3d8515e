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

package topology

import (
	"fmt"
	"sort"
	"strings"
)

// Stub is the placeholder token substituted by Render with the rendered
// PromQL label matchers of a topology.
const Stub = "%%juju_topology%%"

// LabelPrefix is prepended to every topology field name when the
// topology is formatted as a metric or rule label set.
const LabelPrefix = "juju_"

// Label names emitted by LabelSet, exported for consistency across
// packages that inspect or strip topology labels.
const (
	LabelModel       = LabelPrefix + "model"
	LabelModelUUID   = LabelPrefix + "model_uuid"
	LabelApplication = LabelPrefix + "application"
	LabelCharm       = LabelPrefix + "charm"
	LabelUnit        = LabelPrefix + "unit"
)

// shortUUIDLen is the model UUID prefix length used by the aggregator
// label-set variant.
const shortUUIDLen = 7

// variant selects the label-set shape a Topology produces.
type variant int

const (
	variantProvider variant = iota
	variantAggregator
)

// Topology is an immutable identity of a publishing unit. Construct it
// with ForProvider or ForAggregator; the zero value is not valid.
type Topology struct {
	model       string
	modelUUID   string
	application string
	unit        string
	charmName   string
	kind        variant
}

// ForProvider builds the topology variant used by publishing peers.
// Unit and charmName may be empty, in which case the corresponding
// labels are omitted from every derived label set.
func ForProvider(model, modelUUID, application, unit, charmName string) Topology {
	return Topology{
		model:       model,
		modelUUID:   modelUUID,
		application: application,
		unit:        unit,
		charmName:   charmName,
		kind:        variantProvider,
	}
}

// ForAggregator builds the topology variant used when aggregating
// targets on behalf of applications that do not publish their own
// metadata. Its label set includes the unit and shortens the model
// UUID; see the package documentation for the uniqueness caveat.
func ForAggregator(model, modelUUID, application, unit string) Topology {
	return Topology{
		model:       model,
		modelUUID:   modelUUID,
		application: application,
		unit:        unit,
		kind:        variantAggregator,
	}
}

// FromMetadata rebuilds a provider topology from the scrape_metadata
// wire shape published by a peer.
func FromMetadata(data map[string]string) (Topology, error) {
	for _, key := range []string{"model", "model_uuid", "application"} {
		if data[key] == "" {
			return Topology{}, fmt.Errorf("scrape metadata missing required key %q", key)
		}
	}
	return ForProvider(
		data["model"],
		data["model_uuid"],
		data["application"],
		data["unit"],
		data["charm_name"],
	), nil
}

// Model returns the model name.
func (t Topology) Model() string { return t.model }

// ModelUUID returns the full model UUID.
func (t Topology) ModelUUID() string { return t.modelUUID }

// Application returns the application name.
func (t Topology) Application() string { return t.application }

// Unit returns the unit name, which may be empty.
func (t Topology) Unit() string { return t.unit }

// CharmName returns the charm name, which may be empty.
func (t Topology) CharmName() string { return t.charmName }

// WithUnit returns a copy of the topology with the unit field replaced.
// Used when expanding wildcard targets into per-unit label sets.
func (t Topology) WithUnit(unit string) Topology {
	t.unit = unit
	return t
}

// Metadata formats the topology as the scrape_metadata wire shape.
// Optional fields are omitted rather than emitted empty.
func (t Topology) Metadata() map[string]string {
	m := map[string]string{
		"model":       t.model,
		"model_uuid":  t.modelUUID,
		"application": t.application,
	}
	if t.unit != "" {
		m["unit"] = t.unit
	}
	if t.charmName != "" {
		m["charm_name"] = t.charmName
	}
	return m
}

// LabelSet formats the topology as metric labels with the juju_ prefix.
//
// The provider variant omits juju_unit so that alert rules constructed
// from it are evaluated per application rather than per unit. The
// aggregator variant keeps juju_unit and truncates juju_model_uuid to a
// fixed short prefix. Identical field values always yield identical
// label sets; this is a pure function.
func (t Topology) LabelSet() map[string]string {
	labels := map[string]string{
		LabelModel:       t.model,
		LabelModelUUID:   t.modelUUID,
		LabelApplication: t.application,
	}
	switch t.kind {
	case variantAggregator:
		if len(t.modelUUID) > shortUUIDLen {
			labels[LabelModelUUID] = t.modelUUID[:shortUUIDLen]
		}
		if t.unit != "" {
			labels[LabelUnit] = t.unit
		}
	default:
		if t.charmName != "" {
			labels[LabelCharm] = t.charmName
		}
	}
	return labels
}

// labelOrder fixes the emission order of topology labels in derived
// strings. Optional labels absent from a set are skipped.
var labelOrder = []string{
	LabelModel,
	LabelModelUUID,
	LabelApplication,
	LabelUnit,
	LabelCharm,
}

// orderedLabels returns the label set as ordered key/value pairs.
func (t Topology) orderedLabels() ([]string, map[string]string) {
	labels := t.LabelSet()
	keys := make([]string, 0, len(labels))
	for _, k := range labelOrder {
		if _, ok := labels[k]; ok {
			keys = append(keys, k)
		}
	}
	// any label outside the fixed order sorts last, deterministically
	extra := make([]string, 0)
	for k := range labels {
		found := false
		for _, o := range labelOrder {
			if k == o {
				found = true
				break
			}
		}
		if !found {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...), labels
}

// Identifier formats the topology as a terse, delimiter-safe string.
// Present fields are joined with underscores in fixed order and path
// separators are normalized out, so distinct field combinations never
// collide and the result is safe to use as a file or fragment name.
func (t Topology) Identifier() string {
	keys, labels := t.orderedLabels()
	vals := make([]string, 0, len(keys))
	for _, k := range keys {
		vals = append(vals, labels[k])
	}
	return strings.ReplaceAll(strings.Join(vals, "_"), "/", "_")
}

// ScrapeIdentifier formats the topology as the scrape job name prefix
// published over the relation.
func (t Topology) ScrapeIdentifier() string {
	return fmt.Sprintf("juju_%s_prometheus_scrape", t.Identifier())
}

// PromQLLabels formats the topology as a PromQL label-matcher list,
// e.g. `juju_model="lma", juju_model_uuid="...", juju_application="am"`.
func (t Topology) PromQLLabels() string {
	keys, labels := t.orderedLabels()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return strings.Join(parts, ", ")
}

// Render substitutes the topology stub in template with the rendered
// PromQL label matchers. Templates without the stub pass through
// unchanged.
func (t Topology) Render(template string) string {
	return strings.ReplaceAll(template, Stub, t.PromQLLabels())
}
