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

package scrape

import (
	"errors"
	"log/slog"
	"sort"
	"strings"

	relayerrors "github.com/NVIDIA/scrape-relay/pkg/errors"
	"github.com/NVIDIA/scrape-relay/pkg/topology"
)

// InstanceLabel is the target label of the relabel rule appended to
// every labeled job.
const InstanceLabel = "instance"

// Label builds the published fragment for one sanitized job.
//
// The job name becomes prefix, or prefix_<name> when the sanitized job
// declared its own job_name (treated purely as a suffix). Targets of
// each static config are partitioned into wildcard (*:port) and
// fixed-host entries: fixed hosts become one group with peer-level
// topology labels, and one group is emitted per entry in hosts with
// that unit's name in the labels and targets addr:port for every
// wildcard port (or the bare address when none were declared). A
// relabel rule deriving the instance label from topology is appended
// after any user-declared rules.
//
// Malformed targets (not exactly one ":" separator) are rejected
// per-target: the returned job is still usable and the error reports
// every rejected target.
func Label(job Job, prefix string, hosts map[string]string, topo topology.Topology) (Job, error) {
	labeled := job
	if job.JobName != "" {
		labeled.JobName = prefix + "_" + job.JobName
	} else {
		labeled.JobName = prefix
	}

	instanceRelabel := RelabelConfig{
		SourceLabels: []string{topology.LabelModel, topology.LabelModelUUID, topology.LabelApplication},
		Separator:    "_",
		TargetLabel:  InstanceLabel,
		Regex:        "(.*)",
	}

	unitNames := make([]string, 0, len(hosts))
	for name := range hosts {
		unitNames = append(unitNames, name)
	}
	sort.Strings(unitNames)

	var rejected []error
	labeled.StaticConfigs = nil
	unitGroups := false
	for _, sc := range job.StaticConfigs {
		ports := make([]string, 0)
		fixed := make([]string, 0)
		for _, target := range sc.Targets {
			host, port, err := splitTarget(target)
			if err != nil {
				slog.Warn("rejecting malformed scrape target",
					"target", target,
					"job", labeled.JobName,
				)
				rejected = append(rejected, err)
				continue
			}
			if host == "*" {
				ports = append(ports, port)
			} else {
				fixed = append(fixed, target)
			}
		}

		if len(fixed) > 0 {
			labeled.StaticConfigs = append(labeled.StaticConfigs, StaticConfig{
				Targets: fixed,
				Labels:  mergeLabels(sc.Labels, topo.LabelSet()),
			})
		}

		for _, unitName := range unitNames {
			address := hosts[unitName]
			group := StaticConfig{
				Labels: mergeLabels(sc.Labels, topo.LabelSet()),
			}
			group.Labels[topology.LabelUnit] = unitName
			if len(ports) > 0 {
				for _, port := range ports {
					group.Targets = append(group.Targets, address+":"+port)
				}
			} else {
				group.Targets = []string{address}
			}
			labeled.StaticConfigs = append(labeled.StaticConfigs, group)
			unitGroups = true
		}
	}

	if unitGroups {
		instanceRelabel.SourceLabels = append(instanceRelabel.SourceLabels, topology.LabelUnit)
	}

	// The instance rule goes last so user-declared relabeling runs first.
	labeled.RelabelConfigs = append(append([]RelabelConfig{}, job.RelabelConfigs...), instanceRelabel)

	return labeled, errors.Join(rejected...)
}

// splitTarget splits a host:port target, rejecting anything without
// exactly one separator.
func splitTarget(target string) (host, port string, err error) {
	parts := strings.Split(target, ":")
	if len(parts) != 2 {
		return "", "", relayerrors.NewWithContext(
			relayerrors.ErrCodeTargetFormat,
			"scrape target must be host:port",
			map[string]any{"target": target},
		)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// mergeLabels copies user labels and overlays topology labels, with
// topology winning on key collision.
func mergeLabels(user, topo map[string]string) map[string]string {
	merged := make(map[string]string, len(user)+len(topo))
	for k, v := range user {
		merged[k] = v
	}
	for k, v := range topo {
		merged[k] = v
	}
	return merged
}
