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
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/NVIDIA/scrape-relay/pkg/defaults"
	"github.com/NVIDIA/scrape-relay/pkg/relation"
	"github.com/NVIDIA/scrape-relay/pkg/rules"
	"github.com/NVIDIA/scrape-relay/pkg/scrape"
	"github.com/NVIDIA/scrape-relay/pkg/topology"
	"github.com/NVIDIA/scrape-relay/pkg/wire"
)

// Upstream unit bag keys for applications that expose bare targets
// instead of publishing full scrape configuration.
const (
	targetHostnameKey = "hostname"
	targetPortKey     = "port"
	ruleGroupsKey     = "groups"
)

// EngineConfig identifies the model the engine aggregates within and
// the relations it bridges.
type EngineConfig struct {
	// Model and ModelUUID identify the hosting model; aggregated
	// fragments are labeled with them on behalf of target applications.
	Model     string
	ModelUUID string

	// Application is the engine's own name, under which merged
	// documents are published downstream.
	Application string

	// TargetRelation, RuleRelation and MonitorRelation default to the
	// conventional names when empty.
	TargetRelation  string
	RuleRelation    string
	MonitorRelation string
}

// Engine bridges applications that expose bare host/port targets and
// unlabeled rule groups to a monitor expecting fully labeled scrape
// configuration. It maintains the merged downstream documents
// incrementally: fragment updates replace by name, unit departures
// strip that unit's entries, and a monitor join triggers a full
// rebuild.
type Engine struct {
	store relation.Store
	cfg   EngineConfig

	// serializes read-modify-write cycles on downstream bags
	mu sync.Mutex
}

// NewEngine creates an Engine over the given store.
func NewEngine(store relation.Store, cfg EngineConfig) *Engine {
	if cfg.TargetRelation == "" {
		cfg.TargetRelation = defaults.TargetRelationName
	}
	if cfg.RuleRelation == "" {
		cfg.RuleRelation = defaults.RuleRelationName
	}
	if cfg.MonitorRelation == "" {
		cfg.MonitorRelation = defaults.MonitorRelationName
	}
	return &Engine{store: store, cfg: cfg}
}

// appTopology is the per-application aggregate identity.
func (e *Engine) appTopology(app string) topology.Topology {
	return topology.ForAggregator(e.cfg.Model, e.cfg.ModelUUID, app, "")
}

// Run dispatches relation events to the engine's handlers until ctx is
// canceled or the event source closes. Handler failures are logged and
// do not stop the loop; the next event for the same peer converges the
// state again.
func (e *Engine) Run(ctx context.Context, events <-chan relation.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := e.dispatch(ctx, ev); err != nil {
				slog.Error("failed to handle relation event",
					"type", ev.Type.String(),
					"relation", ev.RelationID,
					"unit", ev.Unit,
					"error", err,
				)
			}
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, ev relation.Event) error {
	switch relation.Name(ev.RelationID) {
	case e.cfg.TargetRelation:
		if ev.Type == relation.UnitDeparted {
			return e.HandleTargetsDeparted(ctx, ev.App, ev.Unit)
		}
		return e.HandleTargetsChanged(ctx, ev.RelationID, ev.App)
	case e.cfg.RuleRelation:
		if ev.Type == relation.UnitDeparted {
			return e.HandleRulesDeparted(ctx, ev.App, ev.Unit)
		}
		return e.HandleRulesChanged(ctx, ev.RelationID, ev.App)
	case e.cfg.MonitorRelation:
		if ev.Type == relation.UnitJoined {
			return e.HandleMonitorJoined(ctx)
		}
	}
	return nil
}

// HandleTargetsChanged rebuilds one application's scrape job from the
// targets its units currently expose and merges it downstream.
func (e *Engine) HandleTargetsChanged(ctx context.Context, relationID, app string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	job, ok, err := e.buildTargetJob(ctx, relationID, app)
	if err != nil {
		return err
	}

	name := e.appTopology(app).ScrapeIdentifier()
	return e.eachMonitor(ctx, func(id string, bag relation.Data) error {
		jobs, err := wire.DecodeJobs(bag[wire.KeyScrapeJobs])
		if err != nil {
			return err
		}
		jobs = removeJob(jobs, name)
		if ok {
			jobs = append(jobs, job)
			engineMerges.WithLabelValues("jobs").Inc()
		}
		return e.writeJobs(ctx, id, bag, jobs)
	})
}

// HandleTargetsDeparted strips a departed unit's static configs from
// its application's job on every monitor relation, dropping the job
// when its last group goes.
func (e *Engine) HandleTargetsDeparted(ctx context.Context, app, unit string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := e.appTopology(app).ScrapeIdentifier()
	return e.eachMonitor(ctx, func(id string, bag relation.Data) error {
		jobs, err := wire.DecodeJobs(bag[wire.KeyScrapeJobs])
		if err != nil {
			return err
		}

		kept := make([]scrape.Job, 0, len(jobs))
		for _, job := range jobs {
			if job.JobName != name {
				kept = append(kept, job)
				continue
			}
			groups := make([]scrape.StaticConfig, 0, len(job.StaticConfigs))
			for _, sc := range job.StaticConfigs {
				if sc.Labels[topology.LabelUnit] != unit {
					groups = append(groups, sc)
				}
			}
			if removed := len(job.StaticConfigs) - len(groups); removed > 0 {
				engineRemovals.WithLabelValues("jobs").Add(float64(removed))
			}
			if len(groups) > 0 {
				job.StaticConfigs = groups
				kept = append(kept, job)
			}
		}
		return e.writeJobs(ctx, id, bag, kept)
	})
}

// HandleRulesChanged rebuilds one application's rule group from the
// groups its units currently expose and merges it downstream.
func (e *Engine) HandleRulesChanged(ctx context.Context, relationID, app string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	group, ok, err := e.buildRuleGroup(ctx, relationID, app)
	if err != nil {
		return err
	}

	return e.eachMonitor(ctx, func(id string, bag relation.Data) error {
		rf, err := wire.DecodeRules(bag[wire.KeyAlertRules])
		if err != nil {
			return err
		}
		rf.Groups = removeGroup(rf.Groups, group.Name)
		if ok {
			rf.Groups = append(rf.Groups, group)
			engineMerges.WithLabelValues("rules").Inc()
		}
		return e.writeRules(ctx, id, bag, rf)
	})
}

// HandleRulesDeparted strips a departed unit's rules from its
// application's group, dropping the group when its last rule goes.
func (e *Engine) HandleRulesDeparted(ctx context.Context, app, unit string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := e.ruleGroupName(app)
	return e.eachMonitor(ctx, func(id string, bag relation.Data) error {
		rf, err := wire.DecodeRules(bag[wire.KeyAlertRules])
		if err != nil {
			return err
		}

		kept := make([]rules.Group, 0, len(rf.Groups))
		for _, group := range rf.Groups {
			if group.Name != name {
				kept = append(kept, group)
				continue
			}
			remaining := make([]rules.Rule, 0, len(group.Rules))
			for _, rule := range group.Rules {
				if rule.Labels[topology.LabelUnit] != unit {
					remaining = append(remaining, rule)
				}
			}
			if removed := len(group.Rules) - len(remaining); removed > 0 {
				engineRemovals.WithLabelValues("rules").Add(float64(removed))
			}
			if len(remaining) > 0 {
				group.Rules = remaining
				kept = append(kept, group)
			}
		}
		rf.Groups = kept
		return e.writeRules(ctx, id, bag, rf)
	})
}

// HandleMonitorJoined rebuilds the complete downstream documents from
// every upstream relation. A monitor joining late must see everything
// its peers accumulated before it arrived.
func (e *Engine) HandleMonitorJoined(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	engineResyncs.Inc()

	jobs, err := e.allTargetJobs(ctx)
	if err != nil {
		return err
	}
	rf, err := e.allRuleGroups(ctx)
	if err != nil {
		return err
	}

	return e.eachMonitor(ctx, func(id string, bag relation.Data) error {
		if err := e.writeJobs(ctx, id, bag, jobs); err != nil {
			return err
		}
		// re-read to keep the freshly written jobs key
		bag, err := e.store.AppData(ctx, id, e.cfg.Application)
		if err != nil {
			return err
		}
		return e.writeRules(ctx, id, bag, rf)
	})
}

// buildTargetJob assembles the scrape job for one application from its
// units' bags. ok is false when no unit currently exposes a target.
func (e *Engine) buildTargetJob(ctx context.Context, relationID, app string) (scrape.Job, bool, error) {
	units, err := e.store.Units(ctx, relationID)
	if err != nil {
		return scrape.Job{}, false, err
	}

	var configs []scrape.StaticConfig
	for _, unit := range units {
		if relation.UnitApp(unit) != app {
			continue
		}
		bag, err := e.store.UnitData(ctx, relationID, unit)
		if err != nil {
			return scrape.Job{}, false, err
		}
		hostname := bag[targetHostnameKey]
		if hostname == "" {
			continue
		}
		target := hostname
		if port := bag[targetPortKey]; port != "" {
			target = hostname + ":" + port
		}
		unitTopo := topology.ForAggregator(e.cfg.Model, e.cfg.ModelUUID, app, unit)
		configs = append(configs, scrape.StaticConfig{
			Targets: []string{target},
			Labels:  unitTopo.LabelSet(),
		})
	}
	if len(configs) == 0 {
		return scrape.Job{}, false, nil
	}

	return scrape.Job{
		JobName:       e.appTopology(app).ScrapeIdentifier(),
		StaticConfigs: configs,
	}, true, nil
}

// buildRuleGroup assembles the rule group for one application from its
// units' bags. ok is false when no unit currently exposes rules.
func (e *Engine) buildRuleGroup(ctx context.Context, relationID, app string) (rules.Group, bool, error) {
	units, err := e.store.Units(ctx, relationID)
	if err != nil {
		return rules.Group{}, false, err
	}

	group := rules.Group{Name: e.ruleGroupName(app)}
	for _, unit := range units {
		if relation.UnitApp(unit) != app {
			continue
		}
		bag, err := e.store.UnitData(ctx, relationID, unit)
		if err != nil {
			return rules.Group{}, false, err
		}
		raw := bag[ruleGroupsKey]
		if raw == "" {
			continue
		}

		unitRules, err := decodeUnitRules(raw)
		if err != nil {
			slog.Warn("skipping malformed rules from unit",
				"relation", relationID,
				"unit", unit,
				"error", err,
			)
			continue
		}

		unitTopo := topology.ForAggregator(e.cfg.Model, e.cfg.ModelUUID, app, unit)
		for _, rule := range unitRules {
			if rule.Labels == nil {
				rule.Labels = map[string]string{}
			}
			for k, v := range unitTopo.LabelSet() {
				rule.Labels[k] = v
			}
			rule.Expr = unitTopo.Render(rule.Expr)
			group.Rules = append(group.Rules, rule)
		}
	}
	if len(group.Rules) == 0 {
		return rules.Group{}, false, nil
	}
	return group, true, nil
}

// decodeUnitRules parses the value of a unit's rules bag. Publishing
// units put a bare YAML list of alert rules under the "groups" key;
// full rule groups are tolerated as well.
func decodeUnitRules(raw string) ([]rules.Rule, error) {
	var list []rules.Rule
	if err := yaml.Unmarshal([]byte(raw), &list); err == nil && bareRuleList(list) {
		return list, nil
	}

	var groups []rules.Group
	if err := yaml.Unmarshal([]byte(raw), &groups); err != nil {
		return nil, err
	}
	list = list[:0]
	for _, g := range groups {
		list = append(list, g.Rules...)
	}
	return list, nil
}

// bareRuleList reports whether every decoded entry carries an
// expression. Group-shaped entries decode into rules with empty expr
// because their fields live one level deeper.
func bareRuleList(list []rules.Rule) bool {
	if len(list) == 0 {
		return false
	}
	for _, r := range list {
		if r.Expr == "" {
			return false
		}
	}
	return true
}

// allTargetJobs assembles jobs for every application on every target
// relation.
func (e *Engine) allTargetJobs(ctx context.Context) ([]scrape.Job, error) {
	ids, err := e.store.Relations(ctx, e.cfg.TargetRelation)
	if err != nil {
		return nil, err
	}

	var jobs []scrape.Job
	for _, id := range ids {
		for _, app := range e.relationApps(ctx, id) {
			job, ok, err := e.buildTargetJob(ctx, id, app)
			if err != nil {
				return nil, err
			}
			if ok {
				jobs = append(jobs, job)
			}
		}
	}
	return jobs, nil
}

// allRuleGroups assembles groups for every application on every rule
// relation.
func (e *Engine) allRuleGroups(ctx context.Context) (rules.RuleFile, error) {
	ids, err := e.store.Relations(ctx, e.cfg.RuleRelation)
	if err != nil {
		return rules.RuleFile{}, err
	}

	var rf rules.RuleFile
	for _, id := range ids {
		for _, app := range e.relationApps(ctx, id) {
			group, ok, err := e.buildRuleGroup(ctx, id, app)
			if err != nil {
				return rules.RuleFile{}, err
			}
			if ok {
				rf.Groups = append(rf.Groups, group)
			}
		}
	}
	return rf, nil
}

// relationApps lists the applications with units on a relation.
func (e *Engine) relationApps(ctx context.Context, id string) []string {
	units, err := e.store.Units(ctx, id)
	if err != nil {
		slog.Warn("failed to list relation units", "relation", id, "error", err)
		return nil
	}
	seen := map[string]struct{}{}
	var apps []string
	for _, unit := range units {
		app := relation.UnitApp(unit)
		if _, ok := seen[app]; !ok {
			seen[app] = struct{}{}
			apps = append(apps, app)
		}
	}
	return apps
}

// eachMonitor runs fn with the current downstream bag of every monitor
// relation.
func (e *Engine) eachMonitor(ctx context.Context, fn func(id string, bag relation.Data) error) error {
	ids, err := e.store.Relations(ctx, e.cfg.MonitorRelation)
	if err != nil {
		return fmt.Errorf("failed to list %s relations: %w", e.cfg.MonitorRelation, err)
	}
	for _, id := range ids {
		bag, err := e.store.AppData(ctx, id, e.cfg.Application)
		if err != nil {
			return err
		}
		if err := fn(id, bag); err != nil {
			return fmt.Errorf("monitor relation %s: %w", id, err)
		}
	}
	return nil
}

// writeJobs replaces the scrape_jobs key of a downstream bag.
func (e *Engine) writeJobs(ctx context.Context, id string, bag relation.Data, jobs []scrape.Job) error {
	encoded, err := wire.EncodeJobs(jobs)
	if err != nil {
		return err
	}
	next := bag.Clone()
	if next == nil {
		next = relation.Data{}
	}
	next[wire.KeyScrapeJobs] = encoded
	return e.store.SetAppData(ctx, id, e.cfg.Application, next)
}

// writeRules replaces the alert_rules key of a downstream bag.
func (e *Engine) writeRules(ctx context.Context, id string, bag relation.Data, rf rules.RuleFile) error {
	encoded, err := wire.EncodeRules(rf)
	if err != nil {
		return err
	}
	next := bag.Clone()
	if next == nil {
		next = relation.Data{}
	}
	next[wire.KeyAlertRules] = encoded
	return e.store.SetAppData(ctx, id, e.cfg.Application, next)
}

// ruleGroupName is the downstream group name for one application's
// aggregated rules.
func (e *Engine) ruleGroupName(app string) string {
	return fmt.Sprintf("juju_%s_alert_rules", e.appTopology(app).Identifier())
}

// removeJob drops the job with the given name, preserving order.
func removeJob(jobs []scrape.Job, name string) []scrape.Job {
	kept := make([]scrape.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.JobName != name {
			kept = append(kept, job)
		}
	}
	return kept
}

// removeGroup drops the group with the given name, preserving order.
func removeGroup(groups []rules.Group, name string) []rules.Group {
	kept := make([]rules.Group, 0, len(groups))
	for _, group := range groups {
		if group.Name != name {
			kept = append(kept, group)
		}
	}
	return kept
}
