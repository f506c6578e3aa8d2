package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	assert.NotNil(t, ScansTotal)
	assert.NotNil(t, EventsFetched)
	assert.NotNil(t, AlertsDetected)
	assert.NotNil(t, StoreOperations)
	assert.NotNil(t, ScanDuration)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "success", Status(nil))
	assert.Equal(t, "error", Status(errors.New("boom")))
}

func TestCountersIncrement(t *testing.T) {
	c := StoreOperations.WithLabelValues("insert", Status(nil))
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
