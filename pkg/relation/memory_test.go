package relation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreAppData(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data, err := store.AppData(ctx, "metrics-endpoint:0", "consumer")
	require.NoError(t, err)
	assert.Empty(t, data)

	in := Data{"scrape_jobs": "[]"}
	require.NoError(t, store.SetAppData(ctx, "metrics-endpoint:0", "consumer", in))

	got, err := store.AppData(ctx, "metrics-endpoint:0", "consumer")
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// the store hands out copies, not aliases
	got["scrape_jobs"] = "mutated"
	again, err := store.AppData(ctx, "metrics-endpoint:0", "consumer")
	require.NoError(t, err)
	assert.Equal(t, "[]", again["scrape_jobs"])
}

func TestMemoryStoreUnits(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "consumer/1", Data{"address": "10.0.0.2"}))
	require.NoError(t, store.SetUnitData(ctx, "metrics-endpoint:0", "consumer/0", Data{"address": "10.0.0.1"}))

	units, err := store.Units(ctx, "metrics-endpoint:0")
	require.NoError(t, err)
	assert.Equal(t, []string{"consumer/0", "consumer/1"}, units)

	require.NoError(t, store.DeleteUnitData(ctx, "metrics-endpoint:0", "consumer/0"))
	units, err = store.Units(ctx, "metrics-endpoint:0")
	require.NoError(t, err)
	assert.Equal(t, []string{"consumer/1"}, units)

	// deleting an absent bag is a no-op
	require.NoError(t, store.DeleteUnitData(ctx, "metrics-endpoint:0", "consumer/9"))
}

func TestMemoryStoreRelations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SetAppData(ctx, "metrics-endpoint:1", "a", Data{"k": "v"}))
	require.NoError(t, store.SetAppData(ctx, "metrics-endpoint:0", "b", Data{"k": "v"}))
	require.NoError(t, store.SetAppData(ctx, "prometheus:0", "c", Data{"k": "v"}))

	ids, err := store.Relations(ctx, "metrics-endpoint")
	require.NoError(t, err)
	assert.Equal(t, []string{"metrics-endpoint:0", "metrics-endpoint:1"}, ids)

	ids, err = store.Relations(ctx, "unrelated")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryStoreRejectsEmptyID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	assert.Error(t, store.SetAppData(ctx, "", "app", Data{"k": "v"}))
	_, err := store.UnitData(ctx, "", "unit/0")
	assert.Error(t, err)
}

func TestDataEqual(t *testing.T) {
	assert.True(t, Data{"a": "1"}.Equal(Data{"a": "1"}))
	assert.False(t, Data{"a": "1"}.Equal(Data{"a": "2"}))
	assert.False(t, Data{"a": "1"}.Equal(Data{"a": "1", "b": "2"}))
	assert.True(t, Data{}.Equal(nil))
}

func TestName(t *testing.T) {
	assert.Equal(t, "metrics-endpoint", Name("metrics-endpoint:3"))
	assert.Equal(t, "metrics-endpoint", Name("metrics-endpoint"))
}
