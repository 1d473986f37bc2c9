package post

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "posts_mutations_total",
	Help: "Post mutations by operation and outcome.",
}, []string{"op", "outcome"})

func countMutation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	mutationsTotal.WithLabelValues(op, outcome).Inc()
}
