/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/scrape-relay/pkg/aggregate"
	"github.com/NVIDIA/scrape-relay/pkg/defaults"
	"github.com/NVIDIA/scrape-relay/pkg/relation"
	"github.com/NVIDIA/scrape-relay/pkg/server"
	"github.com/NVIDIA/scrape-relay/pkg/transform"
)

// Store backend names.
const (
	storeConfigMap = "configmap"
	storeMemory    = "memory"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:                  "serve",
		EnableShellCompletion: true,
		Usage:                 "Run the aggregating merge engine and status server",
		Description: `Watches the relation store for target, rule, and monitor changes,
merges per-application scrape jobs and alert rules into the downstream
monitor relations, and serves the aggregated state over HTTP.

The ConfigMap-backed store is the default; --store memory runs against
an in-process store, useful for local smoke testing.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Relation store backend (configmap, memory)",
				Sources: cli.EnvVars("RELAY_STORE"),
				Value:   storeConfigMap,
			},
			&cli.StringFlag{
				Name:    "namespace",
				Aliases: []string{"n"},
				Usage:   "Kubernetes namespace holding the relation ConfigMaps",
				Sources: cli.EnvVars("RELAY_NAMESPACE"),
				Value:   "monitoring",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP status server port",
				Sources: cli.EnvVars("RELAY_PORT"),
				Value:   8080,
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "Relation store poll interval",
				Sources: cli.EnvVars("RELAY_POLL_INTERVAL"),
				Value:   defaults.StorePollInterval,
			},
			&cli.StringFlag{
				Name:  "target-relation",
				Usage: "Relation name carrying hostname/port scrape targets",
				Value: defaults.TargetRelationName,
			},
			&cli.StringFlag{
				Name:  "rule-relation",
				Usage: "Relation name carrying unlabeled rule groups",
				Value: defaults.RuleRelationName,
			},
			&cli.StringFlag{
				Name:  "monitor-relation",
				Usage: "Downstream relation name the merged configuration is published on",
				Value: defaults.MonitorRelationName,
			},
			&cli.StringFlag{
				Name:  "resource-dir",
				Usage: "Directory holding the promql-transform binary for expression labeling",
			},
			modelFlag,
			modelUUIDFlag,
			applicationFlag,
			kubeconfigFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, err := buildStore(cmd)
			if err != nil {
				return err
			}

			relationNames := []string{
				cmd.String("target-relation"),
				cmd.String("rule-relation"),
				cmd.String("monitor-relation"),
				defaults.MetricsRelationName,
			}

			poller := relation.NewPoller(store, relationNames).
				WithInterval(cmd.Duration("poll-interval"))
			events, err := poller.Watch(ctx)
			if err != nil {
				return fmt.Errorf("failed to watch relation store: %w", err)
			}

			engine := aggregate.NewEngine(store, aggregate.EngineConfig{
				Model:           cmd.String("model"),
				ModelUUID:       cmd.String("model-uuid"),
				Application:     cmd.String("application"),
				TargetRelation:  cmd.String("target-relation"),
				RuleRelation:    cmd.String("rule-relation"),
				MonitorRelation: cmd.String("monitor-relation"),
			})

			var labelerOpts []transform.Option
			if dir := cmd.String("resource-dir"); dir != "" {
				labelerOpts = append(labelerOpts, transform.WithResourceDir(dir))
			}
			consumer := aggregate.NewConsumer(store,
				aggregate.WithExpressionLabeler(transform.NewLabeler(labelerOpts...)))

			serverCfg := server.NewConfig()
			serverCfg.Name = name
			serverCfg.Version = version
			serverCfg.Port = int(cmd.Int("port"))
			srv := server.NewServer(serverCfg, consumer)
			srv.NotifyReady(notifySystemd)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return engine.Run(gctx, events)
			})
			g.Go(func() error {
				return srv.Start(gctx)
			})

			slog.Info("serve loop running",
				"store", cmd.String("store"),
				"relations", relationNames,
				"pollInterval", cmd.Duration("poll-interval").String(),
			)

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			slog.Info("serve loop stopped")
			return nil
		},
	}
}

// buildStore constructs the relation store backend named by --store.
func buildStore(cmd *cli.Command) (relation.Store, error) {
	switch cmd.String("store") {
	case storeMemory:
		return relation.NewMemoryStore(), nil
	case storeConfigMap:
		store, err := relation.NewConfigMapStoreForKubeconfig(
			cmd.String("kubeconfig"), cmd.String("namespace"))
		if err != nil {
			return nil, fmt.Errorf("failed to build relation store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cmd.String("store"))
	}
}

// notifySystemd reports readiness when running under systemd. Outside
// systemd the notification socket is absent and this is a no-op.
func notifySystemd() {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		slog.Warn("systemd notify failed", "error", err)
		return
	}
	if sent {
		slog.Debug("notified systemd of readiness")
	}
}
