// Package metrics records what the request pipeline and refresh coordinator do.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dashboard"

// Refresh results
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultDiscarded = "discarded"
)

// Recorder is implemented by anything that wants pipeline telemetry.
type Recorder interface {
	RefreshCompleted(result string, duration time.Duration)
	RefreshShared()
	RequestRetried()
	ResponseReceived(statusCode int)
	SessionExpired()
}

// Noop discards everything
type Noop struct{}

func (Noop) RefreshCompleted(string, time.Duration) {}
func (Noop) RefreshShared()                         {}
func (Noop) RequestRetried()                        {}
func (Noop) ResponseReceived(int)                   {}
func (Noop) SessionExpired()                        {}

// Prometheus is a Recorder backed by client_golang collectors.
type Prometheus struct {
	RefreshTotal    *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	RefreshShares   prometheus.Counter
	RetriesTotal    prometheus.Counter
	ResponsesTotal  *prometheus.CounterVec
	ExpiredTotal    prometheus.Counter
}

// NewPrometheus registers the collectors with reg. A nil reg uses the default
// registerer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Prometheus{
		RefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_total",
				Help:      "Refresh token exchanges by result",
			},
			[]string{"result"},
		),
		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refresh_duration_seconds",
				Help:      "Duration of refresh token exchanges in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		RefreshShares: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_shared_total",
				Help:      "Refresh calls that joined an exchange already in flight",
			},
		),
		RetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_retries_total",
				Help:      "Requests resent after a token refresh",
			},
		),
		ResponsesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_total",
				Help:      "Responses received by status class",
			},
			[]string{"class"},
		),
		ExpiredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_expired_total",
				Help:      "Sessions moved to the expired state",
			},
		),
	}
}

func (p *Prometheus) RefreshCompleted(result string, duration time.Duration) {
	p.RefreshTotal.WithLabelValues(result).Inc()
	p.RefreshDuration.Observe(duration.Seconds())
}

func (p *Prometheus) RefreshShared() {
	p.RefreshShares.Inc()
}

func (p *Prometheus) RequestRetried() {
	p.RetriesTotal.Inc()
}

func (p *Prometheus) ResponseReceived(statusCode int) {
	p.ResponsesTotal.WithLabelValues(StatusClass(statusCode)).Inc()
}

func (p *Prometheus) SessionExpired() {
	p.ExpiredTotal.Inc()
}

// StatusClass buckets a status code as 2xx, 4xx and so on.
func StatusClass(statusCode int) string {
	switch {
	case statusCode >= 100 && statusCode < 600:
		return strconv.Itoa(statusCode/100) + "xx"
	default:
		return "other"
	}
}
