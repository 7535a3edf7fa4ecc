// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package util

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentageToFloat_Valid(t *testing.T) {
	for _, p := range []float64{0, 0.5, 1, 33, 50, 99.9, 100} {
		got, err := PercentageToFloat(p)
		require.NoError(t, err, "p=%v", p)
		assert.Equal(t, p/100, got)
	}
}

func TestPercentageToFloat_Invalid(t *testing.T) {
	for _, p := range []float64{-1, -0.0001, 100.0001, 250, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := PercentageToFloat(p)
		require.Error(t, err, "p=%v", p)
		assert.ErrorIs(t, err, ErrInvalidArgument)

		var iae *InvalidArgumentError
		require.ErrorAs(t, err, &iae)
		assert.Contains(t, iae.Title, "Invalid percentage")
	}
}

func TestPercentageToFloat_Title(t *testing.T) {
	_, err := PercentageToFloat(101)
	require.EqualError(t, err, "Invalid percentage: 101")
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{125, "2m5s"},
		{59, "0m59s"},
		{0, "0m0s"},
		{60, "1m0s"},
		{61.9, "1m1s"},
		{3600, "60m0s"},
		{math.NaN(), ""},
		{math.Inf(1), ""},
		{math.Inf(-1), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSeconds(tt.in), "in=%v", tt.in)
	}
}

func TestFormatSeconds_HugeFinite(t *testing.T) {
	for _, in := range []float64{1e19, 1e300, math.MaxFloat64, -1e300} {
		got := FormatSeconds(in)
		assert.Regexp(t, `^-?\d+m\d{1,2}s$`, got, "in=%v", in)
	}
}

func TestDelay_Waits(t *testing.T) {
	start := time.Now()
	Delay(20 * time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	start = time.Now()
	Delay(0)
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}

func TestIsJSON(t *testing.T) {
	assert.True(t, IsJSON(`{"a":1}`))
	assert.True(t, IsJSON(`[1,2,3]`))
	assert.True(t, IsJSON(`"str"`))
	assert.False(t, IsJSON(`{a:1}`))
	assert.False(t, IsJSON(``))
	assert.False(t, IsJSON(`{"a":1`))
}
