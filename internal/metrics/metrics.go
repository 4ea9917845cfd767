package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "academia"

// Metrics is safe to use through a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	registry      *prometheus.Registry
	httpReqCnt    *prometheus.CounterVec
	httpDur       *prometheus.HistogramVec
	certificates  *prometheus.CounterVec
	registrations *prometheus.CounterVec
	importRows    *prometheus.CounterVec
	notifications *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
}

func New() *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())
	return NewWithRegistry(r)
}

// NewWithRegistry registers application collectors only.
func NewWithRegistry(r *prometheus.Registry) *Metrics {
	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by route and status"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency", Buckets: prometheus.DefBuckets}, []string{"method", "route"})
	certificates := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "certificates_total", Help: "Certificate lifecycle operations"}, []string{"action", "source"})
	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "registrations_completed_total", Help: "Completed self-registrations by mode"}, []string{"mode"})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "training_import_rows_total", Help: "Training import rows by outcome"}, []string{"outcome"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "notifications_total", Help: "Notification deliveries by kind and result"}, []string{"kind", "result"})
	rateLimited := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "rate_limited_total", Help: "Requests rejected by the rate limiter"}, []string{"scope"})
	r.MustRegister(httpReqCnt, httpDur, certificates, registrations, importRows, notifications, rateLimited)

	return &Metrics{
		registry:      r,
		httpReqCnt:    httpReqCnt,
		httpDur:       httpDur,
		certificates:  certificates,
		registrations: registrations,
		importRows:    importRows,
		notifications: notifications,
		rateLimited:   rateLimited,
	}
}

func (m *Metrics) CertificateIssued(source string) {
	if m == nil {
		return
	}
	m.certificates.WithLabelValues("issue", source).Inc()
}

func (m *Metrics) CertificateRevoked() {
	if m == nil {
		return
	}
	m.certificates.WithLabelValues("revoke", "manual").Inc()
}

func (m *Metrics) RegistrationCompleted(mode string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(mode).Inc()
}

func (m *Metrics) ImportRows(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.importRows.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) NotificationDone(kind string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) NotificationDropped(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, "dropped").Inc()
}

func (m *Metrics) RateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(scope).Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		start := time.Now()
		c.Next()
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
