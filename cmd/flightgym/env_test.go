package main

import (
	"testing"

	"github.com/flightgym/flightgym/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGoal(t *testing.T) {
	g, err := parseGoal("")
	require.NoError(t, err)
	assert.Nil(t, g)

	g, err = parseGoal("42.5,-70.5,3000")
	require.NoError(t, err)
	assert.Equal(t, &geo.Geodetic{Lat: 42.5, Lon: -70.5, Alt: 3000}, g)

	_, err = parseGoal("42.5,-70.5")
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
	_, err = parseGoal("95,0,1000")
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
}
