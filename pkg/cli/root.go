/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/scrape-relay/pkg/logging"
)

const (
	name           = "relay"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Shared flags.
var (
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output destination: file path, cm://namespace/name, or empty for stdout",
	}

	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (json, yaml, table)",
		Value:   "yaml",
	}

	kubeconfigFlag = &cli.StringFlag{
		Name:    "kubeconfig",
		Usage:   "Path to kubeconfig file (defaults to KUBECONFIG, then ~/.kube/config, then in-cluster)",
		Sources: cli.EnvVars("KUBECONFIG"),
	}
)

// Topology flags shared by render and push.
var (
	modelFlag = &cli.StringFlag{
		Name:    "model",
		Usage:   "Model name for topology labels",
		Sources: cli.EnvVars("RELAY_MODEL"),
		Value:   "relay",
	}

	modelUUIDFlag = &cli.StringFlag{
		Name:    "model-uuid",
		Usage:   "Model UUID for topology labels",
		Sources: cli.EnvVars("RELAY_MODEL_UUID"),
	}

	applicationFlag = &cli.StringFlag{
		Name:    "application",
		Aliases: []string{"app"},
		Usage:   "Application name for topology labels",
		Sources: cli.EnvVars("RELAY_APPLICATION"),
		Value:   name,
	}

	unitFlag = &cli.StringFlag{
		Name:    "unit",
		Usage:   "Unit name for topology labels (e.g. app/0)",
		Sources: cli.EnvVars("RELAY_UNIT"),
	}

	charmFlag = &cli.StringFlag{
		Name:  "charm",
		Usage: "Charm name for topology labels",
	}
)

func rootCmd() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "Topology-aware Prometheus scrape configuration relay",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("RELAY_LOG_LEVEL"),
				Value:   "info",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String("log-level"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			lintCmd(),
			renderCmd(),
			pushCmd(),
			serveCmd(),
		},
	}
}

// Execute runs the command tree. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
