package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"stampbot/internal/akashi"
)

// Metrics holds the bot's Prometheus collectors.
type Metrics struct {
	Stamps        *prometheus.CounterVec
	APIErrors     *prometheus.CounterVec
	Registrations *prometheus.CounterVec
	Refresh       *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg registers nothing, which
// keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Stamps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stampbot",
			Name:      "stamps_total",
			Help:      "Stamps submitted to AKASHI, by stamp code.",
		}, []string{"code"}),
		APIErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stampbot",
			Name:      "akashi_errors_total",
			Help:      "Failed AKASHI calls, by failure kind.",
		}, []string{"kind"}),
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stampbot",
			Name:      "token_registrations_total",
			Help:      "Token registration attempts, by result.",
		}, []string{"result"}),
		Refresh: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stampbot",
			Name:      "token_refresh_total",
			Help:      "Token refresh outcomes, by result.",
		}, []string{"result"}),
	}
}

// ObserveAPIError counts err under its AKASHI failure kind.
func (m *Metrics) ObserveAPIError(err error) {
	if m == nil || err == nil {
		return
	}
	m.APIErrors.WithLabelValues(Kind(err)).Inc()
}

// Kind classifies err as transport, rejection, decode or other.
func Kind(err error) string {
	var (
		transport *akashi.TransportError
		rejection *akashi.RejectionError
		decode    *akashi.DecodeError
	)
	switch {
	case errors.As(err, &transport):
		return "transport"
	case errors.As(err, &rejection):
		return "rejection"
	case errors.As(err, &decode):
		return "decode"
	}
	return "other"
}
