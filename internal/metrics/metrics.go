package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Bot activity metrics
var (
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torrentbot_commands_total",
			Help: "Total number of commands handled, by outcome.",
		},
		[]string{"command", "outcome"},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torrentbot_searches_total",
			Help: "Total number of index searches, by status.",
		},
		[]string{"status"},
	)

	TorrentsAddedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torrentbot_torrents_added_total",
			Help: "Total number of torrents submitted to the download client.",
		},
		[]string{"source", "status"},
	)

	ScheduledJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "torrentbot_scheduled_jobs",
			Help: "Number of scheduled downloads waiting to fire.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		CommandsTotal,
		SearchesTotal,
		TorrentsAddedTotal,
		ScheduledJobs,
	)
}
