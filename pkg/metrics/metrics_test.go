package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestImageCompiled(t *testing.T) {
	compiled := testutil.ToFloat64(imagesCompiled)
	errs := testutil.ToFloat64(compileErrors)
	ImageCompiled(0)
	ImageCompiled(3)
	assert.Equal(t, compiled+2, testutil.ToFloat64(imagesCompiled))
	assert.Equal(t, errs+3, testutil.ToFloat64(compileErrors))
}

func TestEventDelivered(t *testing.T) {
	c := eventsDelivered.WithLabelValues("TimerExpired", "queued")
	before := testutil.ToFloat64(c)
	EventDelivered("TimerExpired", "queued")
	assert.Equal(t, before+1, testutil.ToFloat64(c))

	QueueLength(5)
	assert.Equal(t, 5.0, testutil.ToFloat64(queueLength))
}
