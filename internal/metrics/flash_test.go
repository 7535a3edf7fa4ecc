// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFlashError_NormalizesCode(t *testing.T) {
	before := testutil.ToFloat64(flashErrorsTotal.WithLabelValues("unclassified"))
	RecordFlashError("EWHATEVER")
	RecordFlashError("")
	assert.Equal(t, before+2, testutil.ToFloat64(flashErrorsTotal.WithLabelValues("unclassified")))

	before = testutil.ToFloat64(flashErrorsTotal.WithLabelValues("ENOSPC"))
	RecordFlashError(" enospc ")
	assert.Equal(t, before+1, testutil.ToFloat64(flashErrorsTotal.WithLabelValues("ENOSPC")))
}

func TestRecordAttempt_UnknownResult(t *testing.T) {
	before := testutil.ToFloat64(flashAttemptsTotal.WithLabelValues("unknown"))
	RecordAttempt("exploded")
	assert.Equal(t, before+1, testutil.ToFloat64(flashAttemptsTotal.WithLabelValues("unknown")))
}

func TestSetFlashing_Gauge(t *testing.T) {
	SetFlashing(true)
	var m dto.Metric
	require.NoError(t, flashing.Write(&m))
	assert.Equal(t, 1.0, m.GetGauge().GetValue())

	SetFlashing(false)
	m.Reset()
	require.NoError(t, flashing.Write(&m))
	assert.Equal(t, 0.0, m.GetGauge().GetValue())
}

func TestRecordDeviceResults_SkipsZero(t *testing.T) {
	beforeOK := testutil.ToFloat64(deviceResultsTotal.WithLabelValues("successful"))
	beforeFail := testutil.ToFloat64(deviceResultsTotal.WithLabelValues("failed"))
	RecordDeviceResults(2, 0)
	assert.Equal(t, beforeOK+2, testutil.ToFloat64(deviceResultsTotal.WithLabelValues("successful")))
	assert.Equal(t, beforeFail, testutil.ToFloat64(deviceResultsTotal.WithLabelValues("failed")))
}
