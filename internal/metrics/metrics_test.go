package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(bookingTransitions.WithLabelValues("check_in", "CHECKED_IN"))
	IncTransition("check_in", "CHECKED_IN")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingTransitions.WithLabelValues("check_in", "CHECKED_IN")))

	before = testutil.ToFloat64(payments.WithLabelValues("CASH"))
	IncPayment("CASH")
	assert.Equal(t, before+1, testutil.ToFloat64(payments.WithLabelValues("CASH")))

	before = testutil.ToFloat64(httpRequests.WithLabelValues("dashboard"))
	IncHTTP("dashboard")
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("dashboard")))

	before = testutil.ToFloat64(bookingCreated)
	IncBookingCreated()
	assert.Equal(t, before+1, testutil.ToFloat64(bookingCreated))

	before = testutil.ToFloat64(rejectedTransitions.WithLabelValues("cancel", "COMPLETED"))
	IncRejected("cancel", "COMPLETED")
	assert.Equal(t, before+1, testutil.ToFloat64(rejectedTransitions.WithLabelValues("cancel", "COMPLETED")))
}
