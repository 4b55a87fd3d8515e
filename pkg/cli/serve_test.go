/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/scrape-relay/pkg/relation"
)

// runBuildStore parses the given args through the serve flag set and
// calls buildStore.
func runBuildStore(t *testing.T, args ...string) (relation.Store, error) {
	t.Helper()

	var store relation.Store
	var buildErr error
	cmd := &cli.Command{
		Name:  "probe",
		Flags: serveCmd().Flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, buildErr = buildStore(cmd)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"probe"}, args...)); err != nil {
		t.Fatalf("flag parsing failed: %v", err)
	}
	return store, buildErr
}

func TestBuildStoreMemory(t *testing.T) {
	store, err := runBuildStore(t, "--store", "memory")
	if err != nil {
		t.Fatalf("buildStore failed: %v", err)
	}
	if _, ok := store.(*relation.MemoryStore); !ok {
		t.Errorf("expected *relation.MemoryStore, got %T", store)
	}
}

func TestBuildStoreUnknown(t *testing.T) {
	_, err := runBuildStore(t, "--store", "bogus")
	if err == nil || !strings.Contains(err.Error(), "unknown store backend") {
		t.Errorf("expected unknown backend error, got %v", err)
	}
}

func TestRootCommandTree(t *testing.T) {
	root := rootCmd()
	want := map[string]bool{"lint": false, "render": false, "push": false, "serve": false}
	for _, cmd := range root.Commands {
		if _, ok := want[cmd.Name]; ok {
			want[cmd.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing command %q", name)
		}
	}
}
