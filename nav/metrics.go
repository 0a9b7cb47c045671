package nav

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pathRequestsTotal counts finished path requests by outcome
	pathRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridpatrol_path_requests_total",
		Help: "Total path requests by result",
	}, []string{"result"}) // "found", "not_found" or "error"

	pathSearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridpatrol_path_search_duration_seconds",
		Help:    "A* search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10us to ~80ms
	})

	pathExpandedCells = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridpatrol_path_expanded_cells",
		Help:    "Cells expanded per search",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	})

	pathQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridpatrol_path_queue_depth",
		Help: "Path requests waiting for the search worker",
	})
)

func resultLabel(res PathResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case res.Success:
		return "found"
	}
	return "not_found"
}
