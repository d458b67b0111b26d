package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics exposes counters/histograms for the booking gateway. A nil
// receiver is a no-op so wiring metrics stays optional in tests.
type GatewayMetrics struct {
	remoteCallsTotal *prometheus.CounterVec
	paymentsTotal    *prometheus.CounterVec
	bookingsTotal    *prometheus.CounterVec
	bookingDuration  *prometheus.HistogramVec
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		remoteCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "gateway",
			Name:      "remote_calls_total",
			Help:      "Total upstream platform API calls",
		}, []string{"api", "status"}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "gateway",
			Name:      "payments_total",
			Help:      "Total payment capture attempts",
		}, []string{"status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "gateway",
			Name:      "bookings_total",
			Help:      "Total booking creation attempts",
		}, []string{"status"}),
		bookingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "telehealth",
			Subsystem: "gateway",
			Name:      "booking_duration_seconds",
			Help:      "End-to-end latency of the booking workflow",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.remoteCallsTotal, m.paymentsTotal, m.bookingsTotal, m.bookingDuration)
	return m
}

// ObserveRemoteCall satisfies the platform client's observer.
func (m *GatewayMetrics) ObserveRemoteCall(api, status string) {
	if m == nil {
		return
	}
	m.remoteCallsTotal.WithLabelValues(api, status).Inc()
}

// ObservePayment satisfies the booking workflow's observer.
func (m *GatewayMetrics) ObservePayment(status string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(status).Inc()
}

// ObserveBooking satisfies the booking workflow's observer.
func (m *GatewayMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *GatewayMetrics) ObserveBookingDuration(status string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingDuration.WithLabelValues(status).Observe(seconds)
}
