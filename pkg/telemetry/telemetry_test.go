package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRefresh(t *testing.T) {
	before := value(t, metricRefreshes.WithLabelValues(ResultOK))
	RecordRefresh(ResultOK, 10*time.Millisecond)
	assert.Equal(t, before+1, value(t, metricRefreshes.WithLabelValues(ResultOK)))
}

func TestRecordWrite(t *testing.T) {
	before := value(t, metricWrites.WithLabelValues(ResultError))
	RecordWrite(Result(errors.New("boom")), time.Millisecond)
	assert.Equal(t, before+1, value(t, metricWrites.WithLabelValues(ResultError)))
}

func TestPanelMounted(t *testing.T) {
	before := value(t, metricPanelsMounted)
	PanelMounted(1)
	PanelMounted(1)
	PanelMounted(-1)
	assert.Equal(t, before+1, value(t, metricPanelsMounted))
}

func TestResult(t *testing.T) {
	assert.Equal(t, ResultOK, Result(nil))
	assert.Equal(t, ResultError, Result(errors.New("x")))
}

func TestTracerProvider_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTracerProvider("panelsync-test", &buf)
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "refresh", AttrPanelID.String("p1"))
	EndSpan(span, errors.New("fetch failed"))

	require.NoError(t, tp.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "refresh")
	assert.Contains(t, buf.String(), "fetch failed")
}

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}
