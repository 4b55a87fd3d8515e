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
	"encoding/json"
	"fmt"
)

// AllowedKeys is the closed set of scrape_config fields a peer may
// publish. Fields outside this set are dropped during sanitization.
// The table is process-wide immutable configuration; never mutate it.
var AllowedKeys = map[string]struct{}{
	"job_name":                 {},
	"metrics_path":             {},
	"static_configs":           {},
	"scrape_interval":          {},
	"scrape_timeout":           {},
	"proxy_url":                {},
	"relabel_configs":          {},
	"metric_relabel_configs":   {},
	"sample_limit":             {},
	"label_limit":              {},
	"label_name_length_limit":  {},
	"label_value_length_limit": {},
}

// StaticConfig is one group of scrape targets sharing a label set.
type StaticConfig struct {
	Targets []string          `json:"targets,omitempty" yaml:"targets,omitempty"`
	Labels  map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// RelabelConfig is a single Prometheus relabeling rule. Only the
// fields exchanged over the relation are modeled.
type RelabelConfig struct {
	SourceLabels []string `json:"source_labels,omitempty" yaml:"source_labels,omitempty"`
	Separator    string   `json:"separator,omitempty" yaml:"separator,omitempty"`
	TargetLabel  string   `json:"target_label,omitempty" yaml:"target_label,omitempty"`
	Regex        string   `json:"regex,omitempty" yaml:"regex,omitempty"`
	Replacement  string   `json:"replacement,omitempty" yaml:"replacement,omitempty"`
	Action       string   `json:"action,omitempty" yaml:"action,omitempty"`
}

// Job is the allow-listed subset of a Prometheus scrape_config.
type Job struct {
	JobName               string          `json:"job_name,omitempty" yaml:"job_name,omitempty"`
	MetricsPath           string          `json:"metrics_path,omitempty" yaml:"metrics_path,omitempty"`
	StaticConfigs         []StaticConfig  `json:"static_configs,omitempty" yaml:"static_configs,omitempty"`
	ScrapeInterval        string          `json:"scrape_interval,omitempty" yaml:"scrape_interval,omitempty"`
	ScrapeTimeout         string          `json:"scrape_timeout,omitempty" yaml:"scrape_timeout,omitempty"`
	ProxyURL              string          `json:"proxy_url,omitempty" yaml:"proxy_url,omitempty"`
	RelabelConfigs        []RelabelConfig `json:"relabel_configs,omitempty" yaml:"relabel_configs,omitempty"`
	MetricRelabelConfigs  []RelabelConfig `json:"metric_relabel_configs,omitempty" yaml:"metric_relabel_configs,omitempty"`
	SampleLimit           uint            `json:"sample_limit,omitempty" yaml:"sample_limit,omitempty"`
	LabelLimit            uint            `json:"label_limit,omitempty" yaml:"label_limit,omitempty"`
	LabelNameLengthLimit  uint            `json:"label_name_length_limit,omitempty" yaml:"label_name_length_limit,omitempty"`
	LabelValueLengthLimit uint            `json:"label_value_length_limit,omitempty" yaml:"label_value_length_limit,omitempty"`
}

// DefaultJob returns the job used when a peer supplies no job at all:
// the /metrics path on port 80 of every unit.
func DefaultJob() Job {
	return Job{
		MetricsPath:   "/metrics",
		StaticConfigs: []StaticConfig{{Targets: []string{"*:80"}}},
	}
}

// Sanitize restricts a raw job specification to the allow-listed
// fields, layered over the default job. An empty map yields exactly
// DefaultJob(). Unknown keys are dropped without error.
func Sanitize(raw map[string]any) (Job, error) {
	filtered := make(map[string]any, len(raw))
	for key, value := range raw {
		if _, ok := AllowedKeys[key]; ok {
			filtered[key] = value
		}
	}

	job := DefaultJob()
	if len(filtered) == 0 {
		return job, nil
	}

	// Round-trip through JSON so nested static/relabel configs decode
	// into their typed forms with the same field dropping behavior.
	b, err := json.Marshal(filtered)
	if err != nil {
		return Job{}, fmt.Errorf("encoding job specification: %w", err)
	}
	if err := json.Unmarshal(b, &job); err != nil {
		return Job{}, fmt.Errorf("decoding job specification: %w", err)
	}
	if _, ok := filtered["static_configs"]; ok && job.StaticConfigs == nil {
		job.StaticConfigs = []StaticConfig{}
	}
	return job, nil
}

// SanitizeAll sanitizes a list of raw job specifications, preserving order.
func SanitizeAll(raw []map[string]any) ([]Job, error) {
	jobs := make([]Job, 0, len(raw))
	for i, r := range raw {
		job, err := Sanitize(r)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
