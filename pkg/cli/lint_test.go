/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLintCmd(t *testing.T) {
	rulesDir := t.TempDir()
	writeRuleFile(t, rulesDir, "host_down.rule",
		"alert: HostDown\nexpr: up < 1\n")
	writeRuleFile(t, rulesDir, "groups.rules",
		"groups:\n  - name: g\n    rules:\n      - alert: A\n        expr: up < 1\n      - alert: B\n        expr: up < 2\n")
	// broken fragments are skipped, not fatal
	writeRuleFile(t, rulesDir, "broken.rule", "[not yaml")

	outPath := filepath.Join(t.TempDir(), "lint.json")
	err := lintCmd().Run(context.Background(), []string{
		"lint", "--output", outPath, "--format", "json", rulesDir,
	})
	if err != nil {
		t.Fatalf("lint failed: %v", err)
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var results []LintResult
	if err := json.Unmarshal(content, &results); err != nil {
		t.Fatalf("invalid lint output: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Groups != 2 || results[0].Rules != 3 {
		t.Errorf("unexpected counts: %+v", results[0])
	}
}

func TestLintCmdMissingPath(t *testing.T) {
	err := lintCmd().Run(context.Background(), []string{
		"lint", filepath.Join(t.TempDir(), "missing"),
	})
	if err == nil {
		t.Error("expected error for missing path")
	}
}

func TestLintCmdNoArgs(t *testing.T) {
	err := lintCmd().Run(context.Background(), []string{"lint"})
	if err == nil {
		t.Error("expected error without paths")
	}
}
