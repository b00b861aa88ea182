// Package metrics defines the Prometheus collectors for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GamesTotal counts accepted game submissions by mode and outcome.
// It is incremented only after the submission transaction commits.
var GamesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "minesweeper_games_total",
		Help: "Total games played",
	},
	[]string{"mode", "status"},
)

// RecordGame increments the games counter for one committed submission.
func RecordGame(mode string, isWin bool) {
	status := "loss"
	if isWin {
		status = "win"
	}
	GamesTotal.WithLabelValues(mode, status).Inc()
}
