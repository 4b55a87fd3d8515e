package aggregate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/scrape-relay/pkg/relation"
	"github.com/NVIDIA/scrape-relay/pkg/topology"
	"github.com/NVIDIA/scrape-relay/pkg/wire"
)

func providerTopo() topology.Topology {
	return topology.ForProvider("lma", "1234567890", "consumer", "consumer/0", "consumer-charm")
}

func TestProviderPublish(t *testing.T) {
	ctx := context.Background()
	store := relation.NewMemoryStore()
	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "prometheus/0", relation.Data{}))

	provider := NewProvider(store, providerTopo())
	require.NoError(t, provider.SetJobs([]map[string]any{{
		"metrics_path":   "/custom",
		"static_configs": []any{map[string]any{"targets": []any{"*:9090"}}},
		"unknown_field":  "dropped",
	}}))
	require.NoError(t, provider.Publish(ctx))

	bag, err := store.AppData(ctx, "metrics-endpoint:0", "consumer")
	require.NoError(t, err)

	topo, err := wire.DecodeMetadata(bag[wire.KeyScrapeMetadata])
	require.NoError(t, err)
	assert.Equal(t, providerTopo(), topo)

	jobs, err := wire.DecodeJobs(bag[wire.KeyScrapeJobs])
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "/custom", jobs[0].MetricsPath)
	assert.NotContains(t, bag[wire.KeyScrapeJobs], "unknown_field")

	// no rules configured, no alert_rules key
	assert.NotContains(t, bag, wire.KeyAlertRules)
}

func TestProviderPublishDefaultJob(t *testing.T) {
	ctx := context.Background()
	store := relation.NewMemoryStore()
	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "prometheus/0", relation.Data{}))

	provider := NewProvider(store, providerTopo())
	require.NoError(t, provider.Publish(ctx))

	bag, err := store.AppData(ctx, "metrics-endpoint:0", "consumer")
	require.NoError(t, err)

	jobs, err := wire.DecodeJobs(bag[wire.KeyScrapeJobs])
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "/metrics", jobs[0].MetricsPath)
	assert.Equal(t, []string{"*:80"}, jobs[0].StaticConfigs[0].Targets)
}

func TestProviderPublishRules(t *testing.T) {
	ctx := context.Background()
	store := relation.NewMemoryStore()
	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "prometheus/0", relation.Data{}))

	dir := t.TempDir()
	rule := "alert: HostDown\nexpr: up{%%juju_topology%%} < 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "host_down.rule"), []byte(rule), 0o644))

	provider := NewProvider(store, providerTopo())
	provider.SetRulesPath(dir, false)
	require.NoError(t, provider.Publish(ctx))

	bag, err := store.AppData(ctx, "metrics-endpoint:0", "consumer")
	require.NoError(t, err)

	rf, err := wire.DecodeRules(bag[wire.KeyAlertRules])
	require.NoError(t, err)
	require.Len(t, rf.Groups, 1)
	assert.Contains(t, rf.Groups[0].Name, "host_down")
	assert.Contains(t, rf.Groups[0].Rules[0].Expr, `juju_model="lma"`)
}

func TestProviderPublishIsDeterministic(t *testing.T) {
	ctx := context.Background()
	store := relation.NewMemoryStore()
	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "prometheus/0", relation.Data{}))

	provider := NewProvider(store, providerTopo())
	require.NoError(t, provider.Publish(ctx))
	first, err := store.AppData(ctx, "metrics-endpoint:0", "consumer")
	require.NoError(t, err)

	require.NoError(t, provider.Publish(ctx))
	second, err := store.AppData(ctx, "metrics-endpoint:0", "consumer")
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func TestProviderPublishUnit(t *testing.T) {
	ctx := context.Background()
	store := relation.NewMemoryStore()
	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "prometheus/0", relation.Data{}))

	provider := NewProvider(store, providerTopo())
	require.NoError(t, provider.PublishUnit(ctx, "consumer/0", "10.0.0.1"))

	bag, err := store.UnitData(ctx, "metrics-endpoint:0", "consumer/0")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", bag[wire.KeyUnitAddress])
	assert.Equal(t, "consumer/0", bag[wire.KeyUnitName])
}

func TestRulesProviderPublish(t *testing.T) {
	ctx := context.Background()
	store := relation.NewMemoryStore()
	require.NoError(t, store.SetUnitData(ctx, "prometheus-rules:0", "loki/0", relation.Data{}))

	dir := t.TempDir()
	rule := "alert: Recording\nexpr: rate(errors[5m]) > 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "errors.rule"), []byte(rule), 0o644))

	topo := topology.ForProvider("lma", "1234567890", "loki", "", "loki-charm")
	provider := NewRulesProvider(store, topo, "prometheus-rules")
	provider.SetRulesPath(dir, false)
	require.NoError(t, provider.Publish(ctx))

	bag, err := store.AppData(ctx, "prometheus-rules:0", "loki")
	require.NoError(t, err)

	rf, err := wire.DecodeRules(bag[wire.KeyAlertRules])
	require.NoError(t, err)
	require.Len(t, rf.Groups, 1)
	assert.Equal(t, "Recording", rf.Groups[0].Rules[0].Alert)
}
