package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsCollector using Prometheus
type Collector struct {
	updatesReceived  *prometheus.CounterVec
	quizzesSubmitted *prometheus.CounterVec
	pollsSent        prometheus.Counter
	pollsFailed      prometheus.Counter
	retries          *prometheus.CounterVec
	rateLimited      prometheus.Counter

	quizSendDuration prometheus.Histogram
	telegramLatency  *prometheus.HistogramVec

	activeSessions prometheus.Gauge
	memoryUsageMB  prometheus.Gauge
	goroutines     prometheus.Gauge
	healthy        prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	return &Collector{
		updatesReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizcast_updates_received_total",
				Help: "Total number of Telegram updates received",
			},
			[]string{"kind"},
		),
		quizzesSubmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizcast_quizzes_submitted_total",
				Help: "Total number of quiz documents submitted",
			},
			[]string{"status"},
		),
		pollsSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "quizcast_polls_sent_total",
				Help: "Total number of quiz polls sent",
			},
		),
		pollsFailed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "quizcast_polls_failed_total",
				Help: "Total number of quiz polls that failed to send",
			},
		),
		retries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizcast_telegram_retries_total",
				Help: "Total number of retried Telegram API calls",
			},
			[]string{"method"},
		),
		rateLimited: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "quizcast_rate_limited_total",
				Help: "Total number of updates rejected by the rate limiter",
			},
		),
		quizSendDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quizcast_quiz_send_duration_seconds",
				Help:    "Time to send all polls of one quiz",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		telegramLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quizcast_telegram_latency_seconds",
				Help:    "Telegram API call latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method"},
		),
		activeSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "quizcast_active_sessions",
				Help: "Number of active user sessions",
			},
		),
		memoryUsageMB: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "quizcast_memory_usage_mb",
				Help: "Current heap usage in megabytes",
			},
		),
		goroutines: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "quizcast_goroutines",
				Help: "Current number of goroutines",
			},
		),
		healthy: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "quizcast_healthy",
				Help: "1 if the last health check passed, 0 otherwise",
			},
		),
	}
}

// IncUpdatesReceived increments the count of received updates
func (c *Collector) IncUpdatesReceived(kind string) {
	c.updatesReceived.WithLabelValues(kind).Inc()
}

// IncQuizzesSubmitted increments the count of submitted quizzes
func (c *Collector) IncQuizzesSubmitted(status string) {
	c.quizzesSubmitted.WithLabelValues(status).Inc()
}

// IncPollsSent adds to the count of sent polls
func (c *Collector) IncPollsSent(n int) {
	c.pollsSent.Add(float64(n))
}

// IncPollsFailed adds to the count of failed polls
func (c *Collector) IncPollsFailed(n int) {
	c.pollsFailed.Add(float64(n))
}

// IncRetries increments the count of retried API calls
func (c *Collector) IncRetries(method string) {
	c.retries.WithLabelValues(method).Inc()
}

// IncRateLimited increments the count of rate-limited updates
func (c *Collector) IncRateLimited() {
	c.rateLimited.Inc()
}

// ObserveQuizSendDuration records the duration of one quiz send
func (c *Collector) ObserveQuizSendDuration(d time.Duration) {
	c.quizSendDuration.Observe(d.Seconds())
}

// ObserveTelegramLatency records the latency of a Telegram API call
func (c *Collector) ObserveTelegramLatency(method string, d time.Duration) {
	c.telegramLatency.WithLabelValues(method).Observe(d.Seconds())
}

// SetActiveSessions sets the current number of sessions
func (c *Collector) SetActiveSessions(n int) {
	c.activeSessions.Set(float64(n))
}

// SetMemoryUsageMB sets the current heap usage
func (c *Collector) SetMemoryUsageMB(mb float64) {
	c.memoryUsageMB.Set(mb)
}

// SetGoroutines sets the current goroutine count
func (c *Collector) SetGoroutines(n int) {
	c.goroutines.Set(float64(n))
}

// SetHealthy sets the health gauge
func (c *Collector) SetHealthy(healthy bool) {
	if healthy {
		c.healthy.Set(1)
	} else {
		c.healthy.Set(0)
	}
}
