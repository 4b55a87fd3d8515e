package aggregate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/scrape-relay/pkg/relation"
	"github.com/NVIDIA/scrape-relay/pkg/topology"
	"github.com/NVIDIA/scrape-relay/pkg/wire"
)

const consumerMetadata = `{"application":"consumer","model":"lma","model_uuid":"1234567890"}`

func seedPublisher(t *testing.T, store relation.Store, id string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SetAppData(ctx, id, "consumer", relation.Data{
		wire.KeyScrapeMetadata: consumerMetadata,
		wire.KeyScrapeJobs:     `[{"metrics_path":"/metrics","static_configs":[{"targets":["*:9090"]}]}]`,
	}))
	require.NoError(t, store.SetUnitData(ctx, id, "consumer/0", relation.Data{
		wire.KeyUnitAddress: "10.0.0.1",
		wire.KeyUnitName:    "consumer/0",
	}))
}

func TestConsumerJobs(t *testing.T) {
	ctx := context.Background()
	store := relation.NewMemoryStore()
	seedPublisher(t, store, "metrics-endpoint:0")

	jobs, err := NewConsumer(store).Jobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	job := jobs[0]
	assert.Equal(t, "juju_lma_1234567890_consumer_prometheus_scrape", job.JobName)
	require.Len(t, job.StaticConfigs, 1)
	assert.Equal(t, []string{"10.0.0.1:9090"}, job.StaticConfigs[0].Targets)
	assert.Equal(t, "consumer/0", job.StaticConfigs[0].Labels[topology.LabelUnit])

	// instance relabel rule appended last
	require.NotEmpty(t, job.RelabelConfigs)
	last := job.RelabelConfigs[len(job.RelabelConfigs)-1]
	assert.Equal(t, "instance", last.TargetLabel)
}

func TestConsumerJobsNoneWhenUnpublished(t *testing.T) {
	ctx := context.Background()
	store := relation.NewMemoryStore()

	// metadata and a unit address, but no scrape_jobs: the default job
	// is the publisher's concern, so nothing may be scraped here
	require.NoError(t, store.SetAppData(ctx, "metrics-endpoint:0", "consumer", relation.Data{
		wire.KeyScrapeMetadata: consumerMetadata,
	}))
	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "consumer/0", relation.Data{
		wire.KeyUnitAddress: "10.0.0.9",
	}))

	jobs, err := NewConsumer(store).Jobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestConsumerSkipsMalformedPeer(t *testing.T) {
	ctx := context.Background()
	store := relation.NewMemoryStore()
	seedPublisher(t, store, "metrics-endpoint:0")

	require.NoError(t, store.SetAppData(ctx, "metrics-endpoint:1", "broken", relation.Data{
		wire.KeyScrapeMetadata: "{not json",
	}))
	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:1", "broken/0", relation.Data{
		wire.KeyUnitAddress: "10.0.0.2",
	}))

	jobs, err := NewConsumer(store).Jobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "juju_lma_1234567890_consumer_prometheus_scrape", jobs[0].JobName)
}

func TestConsumerAlertsIdentifierFromMetadata(t *testing.T) {
	ctx := context.Background()
	store := relation.NewMemoryStore()

	require.NoError(t, store.SetAppData(ctx, "metrics-endpoint:0", "consumer", relation.Data{
		wire.KeyScrapeMetadata: consumerMetadata,
		wire.KeyAlertRules:     `{"groups":[{"name":"g","rules":[{"alert":"A","expr":"up < 1"}]}]}`,
	}))
	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "consumer/0", relation.Data{}))

	alerts, err := NewConsumer(store).Alerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts, "lma_1234567890_consumer")
}

func TestConsumerAlertsIdentifierFromRuleLabels(t *testing.T) {
	ctx := context.Background()
	store := relation.NewMemoryStore()

	rf := `{"groups":[{"name":"g","rules":[{"alert":"A","expr":"up < 1","labels":{` +
		`"juju_model":"lma","juju_model_uuid":"1234567890","juju_application":"consumer"}}]}]}`
	require.NoError(t, store.SetAppData(ctx, "metrics-endpoint:0", "consumer", relation.Data{
		wire.KeyAlertRules: rf,
	}))
	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "consumer/0", relation.Data{}))

	alerts, err := NewConsumer(store).Alerts(ctx)
	require.NoError(t, err)
	assert.Contains(t, alerts, "lma_1234567890_consumer")
}

func TestConsumerAlertsIdentifierFallsBackToGroupName(t *testing.T) {
	ctx := context.Background()
	store := relation.NewMemoryStore()

	require.NoError(t, store.SetAppData(ctx, "metrics-endpoint:0", "consumer", relation.Data{
		wire.KeyAlertRules: `{"groups":[{"name":"anonymous_alerts","rules":[{"alert":"A","expr":"up < 1"}]}]}`,
	}))
	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "consumer/0", relation.Data{}))

	alerts, err := NewConsumer(store).Alerts(ctx)
	require.NoError(t, err)
	assert.Contains(t, alerts, "anonymous_alerts")
}

func TestConsumerEmptyStore(t *testing.T) {
	ctx := context.Background()
	consumer := NewConsumer(relation.NewMemoryStore())

	jobs, err := consumer.Jobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	alerts, err := consumer.Alerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
