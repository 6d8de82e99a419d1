package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showdown_submissions_total",
			Help: "Total number of submitted estimates by outcome.",
		},
		[]string{"outcome"},
	)

	validationPromptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showdown_validation_prompts_total",
		Help: "Total number of submits without a chosen estimate.",
	})

	gamesCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showdown_games_completed_total",
		Help: "Total number of playthroughs that reached the final summary.",
	})

	resetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showdown_resets_total",
		Help: "Total number of game resets.",
	})
)
