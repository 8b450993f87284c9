package main

import (
	"testing"

	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStorageConstraints(t *testing.T) {
	caps, err := parseStorageConstraints([]string{"WH-1=500", " WH-2 = 750.5 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"WH-1": 500, "WH-2": 750.5}, caps)

	caps, err = parseStorageConstraints(nil)
	require.NoError(t, err)
	assert.Nil(t, caps)

	for _, bad := range []string{"WH-1", "=10", "WH-1=lots"} {
		_, err := parseStorageConstraints([]string{bad})
		assert.ErrorIs(t, err, domain.ErrInvalidParameters, bad)
	}
}

func TestParseMinUrgency(t *testing.T) {
	level, err := parseMinUrgency("")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLow, level)

	level, err = parseMinUrgency("High")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, level)

	_, err = parseMinUrgency("urgent")
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}
