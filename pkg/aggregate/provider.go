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

package aggregate

import (
	"context"
	"fmt"

	"github.com/NVIDIA/scrape-relay/pkg/defaults"
	"github.com/NVIDIA/scrape-relay/pkg/relation"
	"github.com/NVIDIA/scrape-relay/pkg/rules"
	"github.com/NVIDIA/scrape-relay/pkg/scrape"
	"github.com/NVIDIA/scrape-relay/pkg/topology"
	"github.com/NVIDIA/scrape-relay/pkg/wire"
)

// Provider publishes one application's scrape configuration: metadata,
// jobs and rules in the application bag, plus each unit's scrape
// address in its unit bag.
type Provider struct {
	store        relation.Store
	topo         topology.Topology
	relationName string

	jobs []scrape.Job
	rf   rules.RuleFile
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithProviderRelationName overrides the metrics relation name.
func WithProviderRelationName(name string) ProviderOption {
	return func(p *Provider) { p.relationName = name }
}

// NewProvider creates a Provider publishing as the given topology.
func NewProvider(store relation.Store, topo topology.Topology, opts ...ProviderOption) *Provider {
	p := &Provider{
		store:        store,
		topo:         topo,
		relationName: defaults.MetricsRelationName,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetJobs sanitizes and stores the raw job specifications to publish.
// Unknown fields are dropped; an empty list publishes the default job.
func (p *Provider) SetJobs(raw []map[string]any) error {
	jobs, err := scrape.SanitizeAll(raw)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		jobs = []scrape.Job{scrape.DefaultJob()}
	}
	p.jobs = jobs
	return nil
}

// SetRulesPath aggregates rule fragments from the given path, stamped
// with the provider topology. An empty path reads the conventional
// alert rules directory.
func (p *Provider) SetRulesPath(path string, recursive bool) {
	if path == "" {
		path = defaults.AlertRulesPath
	}
	agg := rules.NewAggregator(&p.topo)
	agg.AddPath(path, recursive)
	p.rf = agg.RuleFile()
}

// Publish writes the application bag on every relation of the
// configured name.
func (p *Provider) Publish(ctx context.Context) error {
	bag, err := p.appBag()
	if err != nil {
		return err
	}

	ids, err := p.store.Relations(ctx, p.relationName)
	if err != nil {
		return fmt.Errorf("failed to list %s relations: %w", p.relationName, err)
	}
	for _, id := range ids {
		if err := p.store.SetAppData(ctx, id, p.topo.Application(), bag); err != nil {
			return fmt.Errorf("failed to publish on %s: %w", id, err)
		}
	}
	return nil
}

// PublishUnit writes one unit's scrape address on every relation of
// the configured name.
func (p *Provider) PublishUnit(ctx context.Context, unit, address string) error {
	ids, err := p.store.Relations(ctx, p.relationName)
	if err != nil {
		return fmt.Errorf("failed to list %s relations: %w", p.relationName, err)
	}
	bag := relation.Data{
		wire.KeyUnitAddress: address,
		wire.KeyUnitName:    unit,
	}
	for _, id := range ids {
		if err := p.store.SetUnitData(ctx, id, unit, bag); err != nil {
			return fmt.Errorf("failed to publish unit on %s: %w", id, err)
		}
	}
	return nil
}

// appBag assembles the application data bag. Encoding is deterministic,
// so republishing unchanged configuration writes identical bytes and
// triggers no change events downstream.
func (p *Provider) appBag() (relation.Data, error) {
	metadata, err := wire.EncodeMetadata(p.topo)
	if err != nil {
		return nil, err
	}

	jobs := p.jobs
	if len(jobs) == 0 {
		jobs = []scrape.Job{scrape.DefaultJob()}
	}
	encodedJobs, err := wire.EncodeJobs(jobs)
	if err != nil {
		return nil, err
	}

	bag := relation.Data{
		wire.KeyScrapeMetadata: metadata,
		wire.KeyScrapeJobs:     encodedJobs,
	}
	if !p.rf.Empty() {
		encodedRules, err := wire.EncodeRules(p.rf)
		if err != nil {
			return nil, err
		}
		bag[wire.KeyAlertRules] = encodedRules
	}
	return bag, nil
}

// RulesProvider publishes alert rules without any scrape targets, for
// applications that only evaluate recorded metrics.
type RulesProvider struct {
	store        relation.Store
	topo         topology.Topology
	relationName string
	rf           rules.RuleFile
}

// NewRulesProvider creates a rules-only publisher.
func NewRulesProvider(store relation.Store, topo topology.Topology, relationName string) *RulesProvider {
	return &RulesProvider{
		store:        store,
		topo:         topo,
		relationName: relationName,
	}
}

// SetRulesPath aggregates rule fragments from the given path. An empty
// path reads the conventional alert rules directory.
func (p *RulesProvider) SetRulesPath(path string, recursive bool) {
	if path == "" {
		path = defaults.AlertRulesPath
	}
	agg := rules.NewAggregator(&p.topo)
	agg.AddPath(path, recursive)
	p.rf = agg.RuleFile()
}

// Publish writes the alert_rules key on every relation of the
// configured name.
func (p *RulesProvider) Publish(ctx context.Context) error {
	encoded, err := wire.EncodeRules(p.rf)
	if err != nil {
		return err
	}

	ids, err := p.store.Relations(ctx, p.relationName)
	if err != nil {
		return fmt.Errorf("failed to list %s relations: %w", p.relationName, err)
	}
	for _, id := range ids {
		bag := relation.Data{wire.KeyAlertRules: encoded}
		if err := p.store.SetAppData(ctx, id, p.topo.Application(), bag); err != nil {
			return fmt.Errorf("failed to publish rules on %s: %w", id, err)
		}
	}
	return nil
}
