package fs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luft21/owo-dac-laptop/model"
)

func TestStoreRoundTrip(t *testing.T) {
	store := New("mem://localhost/pending/cases.json")
	ctx := context.Background()

	items := []model.Item{
		{NPSN: "20500001", Bapp: "BAPP-1", SerialNumber: "SN-1", ActionID: "61"},
		{NPSN: "20500002", Bapp: "BAPP-2", SerialNumber: "SN-2", ActionID: "62"},
	}
	require.NoError(t, store.Replace(ctx, items))

	listed, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, items, listed)

	require.NoError(t, store.Remove(ctx, model.ItemKey{NPSN: "20500001", Bapp: "BAPP-1"}))
	listed, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "20500002", listed[0].NPSN)

	// removing an absent key is a no-op
	require.NoError(t, store.Remove(ctx, model.ItemKey{NPSN: "x", Bapp: "y"}))
	listed, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestListAbsentDocument(t *testing.T) {
	store := New("mem://localhost/pending/absent.json")
	listed, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)
}
