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

package wire

import (
	"encoding/json"

	"github.com/NVIDIA/scrape-relay/pkg/errors"
	"github.com/NVIDIA/scrape-relay/pkg/rules"
	"github.com/NVIDIA/scrape-relay/pkg/scrape"
	"github.com/NVIDIA/scrape-relay/pkg/topology"
)

// Relation data keys. Each value is an independently JSON-encoded
// string so peers can update one key without touching the others.
const (
	KeyScrapeMetadata = "scrape_metadata"
	KeyScrapeJobs     = "scrape_jobs"
	KeyAlertRules     = "alert_rules"
)

// Per-unit relation data keys published next to the application bag.
const (
	KeyUnitAddress = "prometheus_scrape_unit_address"
	KeyUnitName    = "prometheus_scrape_unit_name"
)

// EncodeMetadata serializes the topology metadata map.
func EncodeMetadata(topo topology.Topology) (string, error) {
	return encode(topo.Metadata())
}

// DecodeMetadata parses a scrape_metadata value back into a provider
// topology. Empty input yields a zero Topology and no error.
func DecodeMetadata(data string) (topology.Topology, error) {
	if data == "" {
		return topology.Topology{}, nil
	}
	var md map[string]string
	if err := decode(data, KeyScrapeMetadata, &md); err != nil {
		return topology.Topology{}, err
	}
	topo, err := topology.FromMetadata(md)
	if err != nil {
		return topology.Topology{}, errors.Wrap(errors.ErrCodeMalformedFragment,
			"invalid scrape metadata", err)
	}
	return topo, nil
}

// EncodeJobs serializes a scrape job list.
func EncodeJobs(jobs []scrape.Job) (string, error) {
	return encode(jobs)
}

// DecodeJobs parses a scrape_jobs value. Empty input yields no jobs
// and no error.
func DecodeJobs(data string) ([]scrape.Job, error) {
	if data == "" {
		return nil, nil
	}
	var jobs []scrape.Job
	if err := decode(data, KeyScrapeJobs, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// EncodeRules serializes an alert rule file.
func EncodeRules(rf rules.RuleFile) (string, error) {
	return encode(rf)
}

// DecodeRules parses an alert_rules value. Empty input yields an empty
// rule file and no error.
func DecodeRules(data string) (rules.RuleFile, error) {
	var rf rules.RuleFile
	if data == "" {
		return rf, nil
	}
	if err := decode(data, KeyAlertRules, &rf); err != nil {
		return rules.RuleFile{}, err
	}
	return rf, nil
}

// encode marshals with encoding/json, whose struct-order and sorted
// map-key output keeps repeated encodings byte-identical. Peers diff
// raw strings to detect change, so this determinism is load-bearing.
func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to encode relation data", err)
	}
	return string(b), nil
}

func decode(data, key string, target any) error {
	if err := json.Unmarshal([]byte(data), target); err != nil {
		return &errors.StructuredError{
			Code:    errors.ErrCodeMalformedFragment,
			Message: "failed to decode relation data",
			Cause:   err,
			Context: map[string]any{"key": key},
		}
	}
	return nil
}
