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

package rules

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/NVIDIA/scrape-relay/pkg/topology"
)

// ruleFileSuffixes are the filename suffixes recognized as rule fragments.
var ruleFileSuffixes = []string{".rule", ".rules"}

// groupNameSuffix terminates every augmented group name.
const groupNameSuffix = "alerts"

// Aggregator amalgamates alert rule fragments from files and
// directories into a single rule file, augmenting group names and rule
// labels with topology. The zero value is not usable; construct with
// NewAggregator.
type Aggregator struct {
	topo   *topology.Topology
	groups []Group
}

// NewAggregator creates an aggregator. topo may be nil, in which case
// groups are collected without topology augmentation (used for rules
// that apply globally rather than to a single peer).
func NewAggregator(topo *topology.Topology) *Aggregator {
	return &Aggregator{topo: topo}
}

// AddPath reads rule fragments from a file or directory. Directory
// traversal is top-level only unless recursive is set. All failures
// below the path itself are logged and skipped.
func (a *Aggregator) AddPath(path string, recursive bool) {
	info, err := os.Stat(path)
	if err != nil {
		slog.Warn("rules path does not exist", "path", path)
		return
	}
	if info.IsDir() {
		a.groups = append(a.groups, a.fromDir(path, recursive)...)
		return
	}
	a.groups = append(a.groups, a.fromFile(filepath.Dir(path), path)...)
}

// RuleFile returns the collected groups in the official rule file
// shape. The result is Empty() if nothing was collected.
func (a *Aggregator) RuleFile() RuleFile {
	return RuleFile{Groups: a.groups}
}

// fromDir reads every rule fragment under dir.
func (a *Aggregator) fromDir(dir string, recursive bool) []Group {
	var groups []Group
	for _, path := range globRuleFiles(dir, recursive) {
		fileGroups := a.fromFile(dir, path)
		if len(fileGroups) > 0 {
			slog.Debug("read alert rules", "path", path)
			groups = append(groups, fileGroups...)
		}
	}
	return groups
}

// fromFile reads one rule fragment file, returning nil on any failure.
func (a *Aggregator) fromFile(root, path string) []Group {
	content, err := os.ReadFile(path)
	if err != nil {
		slog.Error("failed to read alert rules", "path", path, "error", err)
		return nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		slog.Error("failed to parse alert rules", "path", path, "error", err)
		return nil
	}

	var groups []Group
	switch classify(doc) {
	case shapeOfficial:
		var rf RuleFile
		if err := decode(doc, &rf); err != nil {
			slog.Error("invalid rule groups", "path", path, "error", err)
			return nil
		}
		groups = rf.Groups
	case shapeSingleRule:
		var rule Rule
		if err := decode(doc, &rule); err != nil {
			slog.Error("invalid rule", "path", path, "error", err)
			return nil
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		groups = []Group{{Name: stem, Rules: []Rule{rule}}}
	default:
		slog.Error("invalid rules file", "path", path)
		return nil
	}

	for gi := range groups {
		groups[gi].Name = a.groupName(root, path, groups[gi].Name)
		for ri := range groups[gi].Rules {
			a.stamp(&groups[gi].Rules[ri])
		}
	}
	return groups
}

// stamp merges topology labels into a rule (topology wins) and renders
// the topology stub in its expression.
func (a *Aggregator) stamp(rule *Rule) {
	if a.topo == nil {
		if rule.Labels == nil {
			rule.Labels = map[string]string{}
		}
		return
	}
	if rule.Labels == nil {
		rule.Labels = map[string]string{}
	}
	for k, v := range a.topo.LabelSet() {
		rule.Labels[k] = v
	}
	rule.Expr = a.topo.Render(rule.Expr)
}

// groupName augments the original group name with the topology
// identifier and the fragment's sanitized path relative to the rules
// root, so groups from different peers or sub-paths never collide.
func (a *Aggregator) groupName(root, path, name string) string {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." {
		rel = ""
	}
	rel = strings.ReplaceAll(rel, string(filepath.Separator), "_")

	parts := make([]string, 0, 4)
	if a.topo != nil {
		parts = append(parts, a.topo.Identifier())
	}
	for _, p := range []string{rel, name, groupNameSuffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_")
}

// globRuleFiles lists rule fragment files under dir in deterministic
// (lexical walk) order.
func globRuleFiles(dir string, recursive bool) []string {
	var paths []string
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		for _, suffix := range ruleFileSuffixes {
			if strings.HasSuffix(d.Name(), suffix) {
				paths = append(paths, path)
				break
			}
		}
		return nil
	}
	if err := filepath.WalkDir(dir, walk); err != nil {
		slog.Warn("rules directory walk failed", "dir", dir, "error", err)
	}
	return paths
}
