/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/scrape-relay/pkg/rules"
	"github.com/NVIDIA/scrape-relay/pkg/serializer"
)

// LintResult summarizes the rule fragments found under one path.
type LintResult struct {
	Path   string `json:"path" yaml:"path"`
	Groups int    `json:"groups" yaml:"groups"`
	Rules  int    `json:"rules" yaml:"rules"`
}

func lintCmd() *cli.Command {
	return &cli.Command{
		Name:                  "lint",
		EnableShellCompletion: true,
		Usage:                 "Validate alert rule fragments under the given paths",
		Description: `Reads every .rule and .rules fragment under the given paths (files or
directories) and reports how many groups and rules each path yields.

Fragments that fail to parse are logged and skipped, exactly as the
publish path skips them. The command fails only when a path does not
exist.`,
		ArgsUsage: "<path> [path...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "recursive",
				Aliases: []string{"r"},
				Usage:   "Descend into subdirectories",
			},
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("at least one rules path is required")
			}

			outFormat := serializer.Format(cmd.String("format"))
			if outFormat.IsUnknown() {
				return fmt.Errorf("unknown output format: %q", cmd.String("format"))
			}

			recursive := cmd.Bool("recursive")

			var mu sync.Mutex
			results := make([]LintResult, 0, len(paths))

			g, _ := errgroup.WithContext(ctx)
			for _, path := range paths {
				g.Go(func() error {
					if _, err := os.Stat(path); err != nil {
						return fmt.Errorf("rules path %q: %w", path, err)
					}

					agg := rules.NewAggregator(nil)
					agg.AddPath(path, recursive)
					rf := agg.RuleFile()

					ruleCount := 0
					for _, group := range rf.Groups {
						ruleCount += len(group.Rules)
					}

					mu.Lock()
					results = append(results, LintResult{
						Path:   path,
						Groups: len(rf.Groups),
						Rules:  ruleCount,
					})
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

			out := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			defer closeSerializer(out)
			return out.Serialize(ctx, results)
		},
	}
}
