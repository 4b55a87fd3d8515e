/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/scrape-relay/pkg/header"
	"github.com/NVIDIA/scrape-relay/pkg/rules"
	"github.com/NVIDIA/scrape-relay/pkg/scrape"
	"github.com/NVIDIA/scrape-relay/pkg/serializer"
	"github.com/NVIDIA/scrape-relay/pkg/topology"
)

// AggregateDocument is the rendered form of what a publisher would put
// on the wire: its topology, sanitized scrape jobs, and labeled rules.
// The embedded header carries the topology's identity labels as metadata.
type AggregateDocument struct {
	header.Header `yaml:",inline"`

	Jobs       []scrape.Job   `json:"jobs" yaml:"jobs"`
	AlertRules rules.RuleFile `json:"alert_rules" yaml:"alert_rules"`
}

// renderDocument builds the aggregate document from command flags.
func renderDocument(cmd *cli.Command) (*AggregateDocument, error) {
	topo := topology.ForProvider(
		cmd.String("model"),
		cmd.String("model-uuid"),
		cmd.String("application"),
		cmd.String("unit"),
		cmd.String("charm"),
	)

	var raw []map[string]any
	if jobsPath := cmd.String("jobs"); jobsPath != "" {
		parsed, err := serializer.FromFile[[]map[string]any](jobsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read jobs file: %w", err)
		}
		raw = *parsed
	}

	jobs, err := scrape.SanitizeAll(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid scrape jobs: %w", err)
	}

	agg := rules.NewAggregator(&topo)
	for _, path := range cmd.StringSlice("rules") {
		agg.AddPath(path, cmd.Bool("recursive"))
	}
	rf := agg.RuleFile()

	slog.Debug("rendered aggregate document",
		"identifier", topo.Identifier(),
		"jobs", len(jobs),
		"groups", len(rf.Groups),
	)

	hdr := header.New(
		header.WithKind(header.KindAggregate),
		header.WithAPIVersion(header.APIVersion),
	)
	hdr.Metadata = topo.Metadata()

	return &AggregateDocument{
		Header:     *hdr,
		Jobs:       jobs,
		AlertRules: rf,
	}, nil
}

// renderFlags are shared by render and push.
func renderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Usage:   "Path to a JSON or YAML file holding the scrape job list (default: single wildcard job)",
		},
		&cli.StringSliceFlag{
			Name:  "rules",
			Usage: "Path to alert rule fragments (file or directory, can be repeated)",
		},
		&cli.BoolFlag{
			Name:    "recursive",
			Aliases: []string{"r"},
			Usage:   "Descend into rule subdirectories",
		},
		modelFlag,
		modelUUIDFlag,
		applicationFlag,
		unitFlag,
		charmFlag,
	}
}

func renderCmd() *cli.Command {
	return &cli.Command{
		Name:                  "render",
		EnableShellCompletion: true,
		Usage:                 "Render the labeled aggregate document for a set of jobs and rules",
		Description: `Builds the same document a publisher would place on the wire: scrape
jobs sanitized against the allowlist, alert rules amalgamated from
fragments with topology labels injected and the topology stub in every
expression rendered to label matchers.

# Examples

Render default job with rules from a directory:
  relay render --model lma --model-uuid 1234-5678 --app my-app --rules ./rules

Render to a ConfigMap:
  relay render --rules ./rules --output cm://monitoring/relay-aggregate --format json`,
		Flags: append(renderFlags(), outputFlag, formatFlag),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat := serializer.Format(cmd.String("format"))
			if outFormat.IsUnknown() {
				return fmt.Errorf("unknown output format: %q", cmd.String("format"))
			}

			doc, err := renderDocument(cmd)
			if err != nil {
				return err
			}

			out := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			defer closeSerializer(out)
			return out.Serialize(ctx, doc)
		},
	}
}

// closeSerializer closes the serializer when it holds resources.
func closeSerializer(s serializer.Serializer) {
	if closer, ok := s.(serializer.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("failed to close serializer", "error", err)
		}
	}
}
