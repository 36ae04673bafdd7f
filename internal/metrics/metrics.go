// Package metrics exposes Prometheus collectors for the match pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchesStarted counts started matches by type (casual, tournament).
	MatchesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flagarena_matches_started_total",
		Help: "Matches started, by match type.",
	}, []string{"type"})

	// MatchesCompleted counts finished matches by type and whether the
	// attempt was returned.
	MatchesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flagarena_matches_completed_total",
		Help: "Matches completed, by match type and attempt verdict.",
	}, []string{"type", "returned"})

	// Answers counts submitted answers by outcome (correct, wrong, expired).
	Answers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flagarena_answers_total",
		Help: "Answers recorded, by outcome.",
	}, []string{"outcome"})
)
