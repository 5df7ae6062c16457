package indexer_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/srcindex/internal/indexer"
)

func TestState_String(t *testing.T) {
	t.Parallel()

	cases := map[indexer.State]string{
		indexer.Discovered:  "discovered",
		indexer.Extracted:   "extracted",
		indexer.Resolved:    "resolved",
		indexer.StreamBuilt: "stream_built",
		indexer.Injected:    "injected",
		indexer.Skipped:     "skipped",
		indexer.Failed:      "failed",
		indexer.State(42):   "unknown",
	}

	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}

func TestState_Terminal(t *testing.T) {
	t.Parallel()

	assert.True(t, indexer.Injected.Terminal())
	assert.True(t, indexer.Skipped.Terminal())
	assert.True(t, indexer.Failed.Terminal())
	assert.False(t, indexer.Resolved.Terminal())
	assert.False(t, indexer.StreamBuilt.Terminal())
}

func TestState_MarshalsAsName(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(map[string]indexer.State{"state": indexer.StreamBuilt})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"stream_built"}`, string(data))
}

func TestState_UnmarshalText(t *testing.T) {
	t.Parallel()

	var state indexer.State

	require.NoError(t, state.UnmarshalText([]byte("skipped")))
	assert.Equal(t, indexer.Skipped, state)

	require.ErrorIs(t, state.UnmarshalText([]byte("lost")), indexer.ErrUnknownState)
}
