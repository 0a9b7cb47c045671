package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	systemDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridpatrol_sim_system_duration_seconds",
		Help:    "Time spent in each system per step",
		Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10), // 1us to ~260ms
	}, []string{"system"})

	stepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridpatrol_sim_steps_total",
		Help: "World steps taken",
	})
)
