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

import "gopkg.in/yaml.v3"

// Rule is a single Prometheus alerting rule.
type Rule struct {
	Alert       string            `json:"alert" yaml:"alert"`
	Expr        string            `json:"expr" yaml:"expr"`
	For         string            `json:"for,omitempty" yaml:"for,omitempty"`
	Labels      map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// Group is a named list of alerting rules evaluated together.
type Group struct {
	Name  string `json:"name" yaml:"name"`
	Rules []Rule `json:"rules" yaml:"rules"`
}

// RuleFile is the official Prometheus rule file shape.
type RuleFile struct {
	Groups []Group `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// Empty reports whether the rule file holds no groups. Callers use
// this to distinguish "no rules" from "rules present" so they do not
// publish spurious empty rule documents.
func (rf RuleFile) Empty() bool {
	return len(rf.Groups) == 0
}

// classify decides which of the two supported fragment shapes a
// decoded YAML document is in.
type fragmentShape int

const (
	shapeInvalid fragmentShape = iota
	shapeOfficial
	shapeSingleRule
)

func classify(doc map[string]any) fragmentShape {
	if _, ok := doc["groups"]; ok {
		return shapeOfficial
	}
	_, alert := doc["alert"]
	_, expr := doc["expr"]
	if alert && expr {
		return shapeSingleRule
	}
	return shapeInvalid
}

// decode re-decodes a generic YAML document into the typed target.
func decode(doc map[string]any, target any) error {
	b, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, target)
}
