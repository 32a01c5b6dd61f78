package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordDelivery(t *testing.T) {
	req := require.New(t)
	before := testutil.ToFloat64(broadcastDeliveries.WithLabelValues("spirit_thinking", AttemptStatusFailure))

	RecordDelivery("spirit_thinking", nil)
	RecordDelivery("spirit_thinking", errors.New("closed"))

	req.Equal(before+1, testutil.ToFloat64(broadcastDeliveries.WithLabelValues("spirit_thinking", AttemptStatusFailure)))
	req.GreaterOrEqual(testutil.ToFloat64(broadcastDeliveries.WithLabelValues("spirit_thinking", AttemptStatusSuccess)), 1.0)
}

func TestRecordSpiritAttemptAndResponse(t *testing.T) {
	req := require.New(t)
	failures := testutil.ToFloat64(spiritAttempts.WithLabelValues(AttemptStatusFailure))
	fallbacks := testutil.ToFloat64(spiritResponses.WithLabelValues(SpiritOutcomeFallback))

	RecordSpiritAttempt(errors.New("timeout"))
	RecordSpiritResponse(SpiritOutcomeFallback, 3*time.Second)

	req.Equal(failures+1, testutil.ToFloat64(spiritAttempts.WithLabelValues(AttemptStatusFailure)))
	req.Equal(fallbacks+1, testutil.ToFloat64(spiritResponses.WithLabelValues(SpiritOutcomeFallback)))
}

func TestRegisterOnce(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()

	req.NotPanics(func() {
		Register(reg)
		Register(reg)
	})

	IncActiveConnections()
	DecActiveConnections()
	families, err := reg.Gather()
	req.NoError(err)
	req.NotEmpty(families)
}
