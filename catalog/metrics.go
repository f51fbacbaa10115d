package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var catalogLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "demo_generator_catalog_lookups_total",
		Help: "Model catalog lookups by source (cache, api, stale, error).",
	},
	[]string{"source"},
)
