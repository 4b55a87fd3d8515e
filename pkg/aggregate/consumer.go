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
	"log/slog"

	"github.com/NVIDIA/scrape-relay/pkg/defaults"
	"github.com/NVIDIA/scrape-relay/pkg/relation"
	"github.com/NVIDIA/scrape-relay/pkg/rules"
	"github.com/NVIDIA/scrape-relay/pkg/scrape"
	"github.com/NVIDIA/scrape-relay/pkg/topology"
	"github.com/NVIDIA/scrape-relay/pkg/transform"
	"github.com/NVIDIA/scrape-relay/pkg/wire"
)

// Consumer reads every publishing peer's bags on the metrics relation
// and assembles the labeled jobs and rule groups a monitor loads.
//
// Failure isolation: one peer publishing malformed metadata, jobs or
// rules is skipped with a warning; every other peer's data still
// flows through.
type Consumer struct {
	store        relation.Store
	relationName string
	labeler      *transform.Labeler
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithRelationName overrides the metrics relation name.
func WithRelationName(name string) ConsumerOption {
	return func(c *Consumer) { c.relationName = name }
}

// WithExpressionLabeler routes assembled rules through the external
// label-matcher tool before they are returned.
func WithExpressionLabeler(labeler *transform.Labeler) ConsumerOption {
	return func(c *Consumer) { c.labeler = labeler }
}

// NewConsumer creates a Consumer over the given store.
func NewConsumer(store relation.Store, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		store:        store,
		relationName: defaults.MetricsRelationName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Jobs returns the labeled scrape jobs of every publishing peer.
func (c *Consumer) Jobs(ctx context.Context) ([]scrape.Job, error) {
	ids, err := c.store.Relations(ctx, c.relationName)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s relations: %w", c.relationName, err)
	}

	var out []scrape.Job
	for _, id := range ids {
		jobs, err := c.relationJobs(ctx, id)
		if err != nil {
			consumerPeersSkipped.Inc()
			slog.Warn("skipping peer with malformed scrape data",
				"relation", id,
				"error", err,
			)
			continue
		}
		out = append(out, jobs...)
	}
	return out, nil
}

// relationJobs assembles the jobs published on one relation.
func (c *Consumer) relationJobs(ctx context.Context, id string) ([]scrape.Job, error) {
	app, bag, err := c.publisherBag(ctx, id)
	if err != nil || app == "" {
		return nil, err
	}

	topo, err := wire.DecodeMetadata(bag[wire.KeyScrapeMetadata])
	if err != nil {
		return nil, err
	}
	if topo == (topology.Topology{}) {
		// peer has not published yet
		return nil, nil
	}

	jobs, err := wire.DecodeJobs(bag[wire.KeyScrapeJobs])
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		// the wildcard default job is the publisher's concern; a peer
		// that published no scrape_jobs exposes nothing to scrape
		return nil, nil
	}

	hosts, err := c.hosts(ctx, id)
	if err != nil {
		return nil, err
	}

	labeled := make([]scrape.Job, 0, len(jobs))
	for _, job := range jobs {
		lj, err := scrape.Label(job, topo.ScrapeIdentifier(), hosts, topo)
		if err != nil {
			// malformed targets were dropped; the job itself survives
			slog.Warn("dropped malformed scrape targets",
				"relation", id,
				"job", lj.JobName,
				"error", err,
			)
		}
		labeled = append(labeled, lj)
	}
	return labeled, nil
}

// Alerts returns the rule files of every publishing peer, keyed by a
// per-peer identifier.
//
// The identifier comes from the peer's scrape metadata when published;
// otherwise it is reconstructed from the topology labels the peer
// stamped on its own rules, and as a last resort the first group name
// is used so valid rules are never dropped for want of a name.
func (c *Consumer) Alerts(ctx context.Context) (map[string]rules.RuleFile, error) {
	ids, err := c.store.Relations(ctx, c.relationName)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s relations: %w", c.relationName, err)
	}

	out := make(map[string]rules.RuleFile)
	for _, id := range ids {
		identifier, rf, err := c.relationAlerts(ctx, id)
		if err != nil {
			consumerPeersSkipped.Inc()
			slog.Warn("skipping peer with malformed alert rules",
				"relation", id,
				"error", err,
			)
			continue
		}
		if rf.Empty() {
			continue
		}
		if identifier == "" {
			identifier = rf.Groups[0].Name
			slog.Debug("using group name as rules identifier", "relation", id, "identifier", identifier)
		}
		merged := out[identifier]
		merged.Groups = append(merged.Groups, rf.Groups...)
		out[identifier] = merged
	}
	return out, nil
}

// relationAlerts reads one relation's rules and derives its identifier.
func (c *Consumer) relationAlerts(ctx context.Context, id string) (string, rules.RuleFile, error) {
	app, bag, err := c.publisherBag(ctx, id)
	if err != nil || app == "" {
		return "", rules.RuleFile{}, err
	}

	rf, err := wire.DecodeRules(bag[wire.KeyAlertRules])
	if err != nil {
		return "", rules.RuleFile{}, err
	}
	if rf.Empty() {
		return "", rf, nil
	}

	if c.labeler != nil {
		rf = c.labeler.Apply(ctx, rf)
	}

	topo, err := wire.DecodeMetadata(bag[wire.KeyScrapeMetadata])
	if err == nil && topo != (topology.Topology{}) {
		return topo.Identifier(), rf, nil
	}
	return identifierFromRules(rf), rf, nil
}

// publisherBag finds the single publishing application on a relation
// and returns its data bag. An empty app means nobody published yet.
func (c *Consumer) publisherBag(ctx context.Context, id string) (string, relation.Data, error) {
	units, err := c.store.Units(ctx, id)
	if err != nil {
		return "", nil, err
	}
	apps := map[string]struct{}{}
	for _, unit := range units {
		apps[relation.UnitApp(unit)] = struct{}{}
	}
	for app := range apps {
		bag, err := c.store.AppData(ctx, id, app)
		if err != nil {
			return "", nil, err
		}
		if len(bag) > 0 {
			return app, bag, nil
		}
	}
	return "", nil, nil
}

// hosts maps unit names to their published scrape addresses.
func (c *Consumer) hosts(ctx context.Context, id string) (map[string]string, error) {
	units, err := c.store.Units(ctx, id)
	if err != nil {
		return nil, err
	}

	hosts := make(map[string]string, len(units))
	for _, unit := range units {
		bag, err := c.store.UnitData(ctx, id, unit)
		if err != nil {
			return nil, err
		}
		address := bag[wire.KeyUnitAddress]
		if address == "" {
			continue
		}
		name := bag[wire.KeyUnitName]
		if name == "" {
			name = unit
		}
		hosts[name] = address
	}
	return hosts, nil
}

// identifierFromRules reconstructs a peer identifier from the topology
// labels stamped on its rules.
func identifierFromRules(rf rules.RuleFile) string {
	for _, group := range rf.Groups {
		for _, rule := range group.Rules {
			model := rule.Labels[topology.LabelModel]
			uuid := rule.Labels[topology.LabelModelUUID]
			app := rule.Labels[topology.LabelApplication]
			if model != "" && uuid != "" && app != "" {
				return fmt.Sprintf("%s_%s_%s", model, uuid, app)
			}
		}
	}
	return ""
}
