package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/robot.frontend/internal/robotpb"
)

func TestBuildRequest(t *testing.T) {
	req, err := buildRequest(true, 5, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, robotpb.KindPing, req.Kind())

	req, err = buildRequest(false, 50, -50, 2000)
	require.NoError(t, err)
	assert.Equal(t, robotpb.Action{LeftMotorAction: 50, RightMotorAction: -50, ActionTimeout: 2000}, *req.GetAct())

	_, err = buildRequest(false, math.MaxInt32+1, 0, 0)
	assert.Error(t, err)
	_, err = buildRequest(false, 0, 0, math.MaxUint32+1)
	assert.Error(t, err)
}

func TestBuildRequest_RoundTrip(t *testing.T) {
	req, err := buildRequest(false, 1, 2, 3)
	require.NoError(t, err)
	b, err := robotpb.Marshal(req)
	require.NoError(t, err)
	got, err := robotpb.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, *req.GetAct(), *got.GetAct())
}
