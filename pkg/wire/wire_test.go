package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/scrape-relay/pkg/errors"
	"github.com/NVIDIA/scrape-relay/pkg/rules"
	"github.com/NVIDIA/scrape-relay/pkg/scrape"
	"github.com/NVIDIA/scrape-relay/pkg/topology"
)

func TestMetadataRoundTrip(t *testing.T) {
	topo := topology.ForProvider("lma", "1234567890", "consumer", "consumer/0", "consumer-charm")

	data, err := EncodeMetadata(topo)
	require.NoError(t, err)

	got, err := DecodeMetadata(data)
	require.NoError(t, err)
	assert.Equal(t, topo, got)
}

func TestDecodeMetadataEmpty(t *testing.T) {
	got, err := DecodeMetadata("")
	require.NoError(t, err)
	assert.Equal(t, topology.Topology{}, got)
}

func TestDecodeMetadataMissingRequiredKey(t *testing.T) {
	_, err := DecodeMetadata(`{"model": "lma"}`)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedFragment))
}

func TestJobsRoundTrip(t *testing.T) {
	jobs := []scrape.Job{
		scrape.DefaultJob(),
		{
			JobName:     "juju_lma_1234567_consumer_prometheus_scrape",
			MetricsPath: "/metrics",
			StaticConfigs: []scrape.StaticConfig{{
				Targets: []string{"10.0.0.1:9090"},
				Labels:  map[string]string{topology.LabelModel: "lma"},
			}},
		},
	}

	data, err := EncodeJobs(jobs)
	require.NoError(t, err)

	got, err := DecodeJobs(data)
	require.NoError(t, err)
	assert.Equal(t, jobs, got)
}

func TestDecodeJobsEmpty(t *testing.T) {
	got, err := DecodeJobs("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRulesRoundTrip(t *testing.T) {
	rf := rules.RuleFile{Groups: []rules.Group{{
		Name: "lma_1234567890_consumer_host_alerts",
		Rules: []rules.Rule{{
			Alert:  "HostDown",
			Expr:   `up{juju_model="lma"} < 1`,
			For:    "5m",
			Labels: map[string]string{"severity": "critical"},
		}},
	}}}

	data, err := EncodeRules(rf)
	require.NoError(t, err)

	got, err := DecodeRules(data)
	require.NoError(t, err)
	assert.Equal(t, rf, got)
}

func TestDecodeRulesEmpty(t *testing.T) {
	got, err := DecodeRules("")
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestDecodeMalformedPayloads(t *testing.T) {
	tests := []struct {
		name   string
		decode func() error
	}{
		{"metadata", func() error { _, err := DecodeMetadata("{"); return err }},
		{"jobs", func() error { _, err := DecodeJobs("not json"); return err }},
		{"rules", func() error { _, err := DecodeRules("[]"); return err }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.decode()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedFragment))
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	topo := topology.ForProvider("lma", "1234567890", "consumer", "", "")

	first, err := EncodeMetadata(topo)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := EncodeMetadata(topo)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
