package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for booking and payment flows.
type BookingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	gatewayTotal     *prometheus.CounterVec
	gatewayLatency   *prometheus.HistogramVec
	proofUploads     *prometheus.CounterVec
	expiredTotal     prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "appointments",
			Name:      "created_total",
			Help:      "Appointments created, by payment method and outcome",
		}, []string{"payment_method", "outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "appointments",
			Name:      "status_transitions_total",
			Help:      "Appointment status transitions",
		}, []string{"from", "to"}),
		gatewayTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "payments",
			Name:      "gateway_calls_total",
			Help:      "Payment gateway calls, by gateway, operation and status",
		}, []string{"gateway", "operation", "status"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "payments",
			Name:      "gateway_latency_seconds",
			Help:      "Latency of payment gateway calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"gateway", "operation"}),
		proofUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "payments",
			Name:      "proof_uploads_total",
			Help:      "Payment proof uploads, by outcome",
		}, []string{"outcome"}),
		expiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "appointments",
			Name:      "expired_total",
			Help:      "Pending gateway bookings cancelled by the sweeper",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.transitionsTotal, m.gatewayTotal, m.gatewayLatency, m.proofUploads, m.expiredTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(method, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(method, outcome).Inc()
}

func (m *BookingMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *BookingMetrics) ObserveGatewayCall(gateway, operation string, err error, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.gatewayTotal.WithLabelValues(gateway, operation, status).Inc()
	m.gatewayLatency.WithLabelValues(gateway, operation).Observe(seconds)
}

func (m *BookingMetrics) ObserveProofUpload(outcome string) {
	if m == nil {
		return
	}
	m.proofUploads.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredTotal.Add(float64(n))
}
