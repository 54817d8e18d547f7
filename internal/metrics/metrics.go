// Package metrics exposes prometheus counters for the dispatcher.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_messages_total",
		Help: "Inbound messages by kind.",
	}, []string{"kind"})

	QuotaDeniedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_quota_denied_total",
		Help: "Messages denied by the daily free quota.",
	})

	ProviderFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_provider_failures_total",
		Help: "Failed provider calls by provider.",
	}, []string{"provider"})

	SubscriptionsDemotedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_subscriptions_demoted_total",
		Help: "Premium subscriptions demoted to free after expiry.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
