package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics собирает счетчики движка участия для мониторинга паттернов абьюза
type Metrics struct {
	JoinsTotal            *prometheus.CounterVec
	RateLimitRejections   *prometheus.CounterVec
	CaptchaFailures       prometheus.Counter
	WinnersSelectedTotal  prometheus.Counter
	WinnerSelectConflicts prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JoinsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "giveaway_joins_total",
			Help: "Join attempts by outcome (success, duplicate, capacity, closed, verification, rate_limited, error)",
		}, []string{"outcome"}),
		RateLimitRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "giveaway_ratelimit_rejections_total",
			Help: "Join attempts rejected by the rate limiter, by key kind",
		}, []string{"kind"}),
		CaptchaFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "giveaway_captcha_failures_total",
			Help: "Captcha verifications that did not succeed",
		}),
		WinnersSelectedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "giveaway_winners_selected_total",
			Help: "Successful winner selections",
		}),
		WinnerSelectConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "giveaway_winner_select_conflicts_total",
			Help: "Winner selections rejected because the giveaway was already decided",
		}),
	}
}

func (m *Metrics) ObserveJoin(outcome string) {
	m.JoinsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRateLimited(kind string) {
	m.RateLimitRejections.WithLabelValues(kind).Inc()
}
