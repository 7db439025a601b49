// Package observability holds Prometheus metrics and the health
// endpoint server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cardrelay_messages_seen_total",
		Help: "Source channel messages fetched and inspected.",
	})

	CardsExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cardrelay_cards_extracted_total",
		Help: "Card candidates extracted from source messages.",
	})

	CardsForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardrelay_cards_forwarded_total",
		Help: "Cards forwarded to the destination channel, by provider.",
	}, []string{"provider"})

	CardsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cardrelay_cards_duplicate_total",
		Help: "Card candidates suppressed by the dedup gate.",
	})

	ValidationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardrelay_validation_outcomes_total",
		Help: "How pending cards concluded: resolved, oracle, or unknown.",
	}, []string{"outcome"})

	FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cardrelay_fetch_errors_total",
		Help: "Failed source channel history fetches.",
	})

	GenAICalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardrelay_genai_calls_total",
		Help: "Generative fallback calls by result: ok, error, rate_limited.",
	}, []string{"result"})
)
