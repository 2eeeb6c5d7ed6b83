package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageValuesStayOpaque(t *testing.T) {
	entries, err := DecodeUsage([]byte(`{"0": 3, "annual-credit": {"used": 150.5, "on": "2024-03-01"}, "2": "2024-01-15"}`))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "3", string(entries["0"]))
	assert.Equal(t, `"2024-01-15"`, string(entries["2"]))

	data, err := EncodeUsage(entries)
	require.NoError(t, err)
	assert.JSONEq(t, `{"0": 3, "annual-credit": {"used": 150.5, "on": "2024-03-01"}, "2": "2024-01-15"}`, string(data))
}

func TestDecodeUsageEmptyAndInvalid(t *testing.T) {
	entries, err := DecodeUsage(nil)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = DecodeUsage([]byte(`[1, 2]`))
	assert.Error(t, err)
}
