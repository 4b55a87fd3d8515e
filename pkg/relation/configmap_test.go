package relation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/NVIDIA/scrape-relay/pkg/defaults"
	apperrors "github.com/NVIDIA/scrape-relay/pkg/errors"
)

func TestConfigMapStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewConfigMapStore(fake.NewClientset(), "monitoring")

	require.NoError(t, store.SetAppData(ctx, "metrics-endpoint:0", "consumer", Data{
		"scrape_metadata": `{"model":"lma"}`,
	}))
	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "consumer/0", Data{
		"address": "10.0.0.1",
	}))

	app, err := store.AppData(ctx, "metrics-endpoint:0", "consumer")
	require.NoError(t, err)
	assert.Equal(t, `{"model":"lma"}`, app["scrape_metadata"])

	units, err := store.Units(ctx, "metrics-endpoint:0")
	require.NoError(t, err)
	assert.Equal(t, []string{"consumer/0"}, units)

	unit, err := store.UnitData(ctx, "metrics-endpoint:0", "consumer/0")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", unit["address"])
}

func TestConfigMapStoreMissingRelationReadsEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewConfigMapStore(fake.NewClientset(), "monitoring")

	data, err := store.AppData(ctx, "metrics-endpoint:9", "ghost")
	require.NoError(t, err)
	assert.Empty(t, data)

	units, err := store.Units(ctx, "metrics-endpoint:9")
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestConfigMapStoreRelations(t *testing.T) {
	ctx := context.Background()
	store := NewConfigMapStore(fake.NewClientset(), "monitoring")

	require.NoError(t, store.SetAppData(ctx, "metrics-endpoint:1", "a", Data{"k": "v"}))
	require.NoError(t, store.SetAppData(ctx, "metrics-endpoint:0", "b", Data{"k": "v"}))
	require.NoError(t, store.SetAppData(ctx, "prometheus:0", "c", Data{"k": "v"}))

	ids, err := store.Relations(ctx, "metrics-endpoint")
	require.NoError(t, err)
	assert.Equal(t, []string{"metrics-endpoint:0", "metrics-endpoint:1"}, ids)
}

func TestConfigMapStoreDeleteUnit(t *testing.T) {
	ctx := context.Background()
	store := NewConfigMapStore(fake.NewClientset(), "monitoring")

	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "consumer/0", Data{"address": "10.0.0.1"}))
	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "consumer/1", Data{"address": "10.0.0.2"}))
	require.NoError(t, store.DeleteUnitData(ctx, "metrics-endpoint:0", "consumer/0"))

	units, err := store.Units(ctx, "metrics-endpoint:0")
	require.NoError(t, err)
	assert.Equal(t, []string{"consumer/1"}, units)
}

func TestConfigMapStoreObjectShape(t *testing.T) {
	ctx := context.Background()
	clientset := fake.NewClientset()
	store := NewConfigMapStore(clientset, "monitoring")

	require.NoError(t, store.SetAppData(ctx, "metrics-endpoint:0", "consumer", Data{"k": "v"}))

	cm, err := clientset.CoreV1().ConfigMaps("monitoring").
		Get(ctx, "relay-rel-metrics-endpoint-0", metav1.GetOptions{})
	require.NoError(t, err)

	assert.Equal(t, "scrape-relay", cm.Labels[labelName])
	assert.Equal(t, "metrics-endpoint", cm.Labels[labelRelationName])
	assert.Equal(t, "metrics-endpoint:0", cm.Annotations[annotationRelationID])
	assert.Contains(t, cm.Data, dataKey)
}

func TestConfigMapName(t *testing.T) {
	assert.Equal(t, "relay-rel-metrics-endpoint-0", configMapName("metrics-endpoint:0"))
	assert.Equal(t, "relay-rel-my-app-3", configMapName("My-App:3"))
}

func TestConfigMapStoreRejectsForeignInterface(t *testing.T) {
	ctx := context.Background()
	clientset := fake.NewClientset()
	store := NewConfigMapStore(clientset, "monitoring")

	require.NoError(t, store.SetUnitData(ctx, "prometheus-target:0", "app/0", Data{
		"hostname": "10.0.0.1",
	}))

	// simulate a relation recorded by something speaking another interface
	cm, err := clientset.CoreV1().ConfigMaps("monitoring").Get(ctx,
		configMapName("prometheus-target:0"), metav1.GetOptions{})
	require.NoError(t, err)
	cm.Annotations[annotationInterface] = "loki_push_api"
	_, err = clientset.CoreV1().ConfigMaps("monitoring").Update(ctx, cm, metav1.UpdateOptions{})
	require.NoError(t, err)

	_, err = store.Relations(ctx, "prometheus-target")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfigMismatch))
}

func TestConfigMapStoreWritesInterfaceAnnotation(t *testing.T) {
	ctx := context.Background()
	clientset := fake.NewClientset()
	store := NewConfigMapStore(clientset, "monitoring")

	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "consumer/0", Data{
		"address": "10.0.0.1",
	}))

	cm, err := clientset.CoreV1().ConfigMaps("monitoring").Get(ctx,
		configMapName("metrics-endpoint:0"), metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, defaults.MetricsInterfaceName, cm.Annotations[annotationInterface])

	ids, err := store.Relations(ctx, "metrics-endpoint")
	require.NoError(t, err)
	assert.Equal(t, []string{"metrics-endpoint:0"}, ids)
}
