/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/scrape-relay/pkg/header"
	"github.com/NVIDIA/scrape-relay/pkg/oci"
	"github.com/NVIDIA/scrape-relay/pkg/serializer"
)

// Bundle file names.
const (
	bundleMetadataFile = "metadata.json"
	bundleJobsFile     = "jobs.json"
	bundleRulesFile    = "rules.yaml"
)

// writeBundle renders the aggregate document into dir as the three
// bundle files Prometheus-side tooling consumes.
func writeBundle(ctx context.Context, doc *AggregateDocument, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create bundle directory: %w", err)
	}

	hdr := doc.Header
	hdr.SetKind(header.KindBundle)

	targets := []struct {
		name    string
		format  serializer.Format
		content any
	}{
		{bundleMetadataFile, serializer.FormatJSON, hdr},
		{bundleJobsFile, serializer.FormatJSON, doc.Jobs},
		{bundleRulesFile, serializer.FormatYAML, doc.AlertRules},
	}

	for _, target := range targets {
		file, err := os.Create(filepath.Join(dir, target.name))
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", target.name, err)
		}
		writer := serializer.NewWriter(target.format, file)
		serializeErr := writer.Serialize(ctx, target.content)
		closeErr := file.Close()
		if serializeErr != nil {
			return fmt.Errorf("failed to write %s: %w", target.name, serializeErr)
		}
		if closeErr != nil {
			return fmt.Errorf("failed to close %s: %w", target.name, closeErr)
		}
	}
	return nil
}

func pushCmd() *cli.Command {
	return &cli.Command{
		Name:                  "push",
		EnableShellCompletion: true,
		Usage:                 "Render the aggregate bundle and push it to an OCI registry or directory",
		Description: `Renders the aggregate document (see "relay render") into a bundle of
three files (metadata.json, jobs.json, rules.yaml) and pushes it.

The target is either a local directory or an OCI registry reference:

  relay push --rules ./rules --target ./out
  relay push --rules ./rules --target oci://ghcr.io/nvidia/scrape-relay:v1.0.0

When the OCI reference carries no tag, the CLI version is used.`,
		Flags: append(renderFlags(),
			&cli.StringFlag{
				Name:     "target",
				Aliases:  []string{"t"},
				Usage:    "Push target: directory path or oci://registry/repository[:tag]",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "plain-http",
				Usage: "Use HTTP instead of HTTPS for the registry connection",
			},
			&cli.BoolFlag{
				Name:  "insecure-tls",
				Usage: "Skip TLS certificate verification",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ref, err := oci.ParseOutputTarget(cmd.String("target"))
			if err != nil {
				return err
			}

			doc, err := renderDocument(cmd)
			if err != nil {
				return err
			}

			if !ref.IsOCI {
				if err := writeBundle(ctx, doc, ref.LocalPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.Writer, "Bundle written to %s\n", ref.LocalPath)
				return nil
			}

			if ref.Tag == "" {
				ref = ref.WithTag(version)
			}

			bundleDir, err := os.MkdirTemp("", "relay-bundle-*")
			if err != nil {
				return fmt.Errorf("failed to create bundle directory: %w", err)
			}
			defer func() { _ = os.RemoveAll(bundleDir) }()

			if err := writeBundle(ctx, doc, bundleDir); err != nil {
				return err
			}

			result, err := oci.PushBundle(ctx, oci.BundleConfig{
				SourceDir:   bundleDir,
				Reference:   ref,
				Version:     version,
				PlainHTTP:   cmd.Bool("plain-http"),
				InsecureTLS: cmd.Bool("insecure-tls"),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.Writer, "Pushed %s\nDigest: %s\n", result.Reference, result.Digest)
			return nil
		},
	}
}
