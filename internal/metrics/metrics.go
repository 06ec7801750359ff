package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GalleryExtensionsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mirror",
		Subsystem: "gallery",
		Name:      "extensions_loaded",
		Help:      "Extensions in the live catalog snapshot.",
	})

	GalleryRebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "gallery",
		Name:      "rebuilds_total",
		Help:      "Catalog rebuilds since process start.",
	})

	GalleryRebuildSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mirror",
		Subsystem: "gallery",
		Name:      "rebuild_seconds",
		Help:      "Duration of the most recent catalog rebuild.",
	})

	GalleryQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "gallery",
		Name:      "queries_total",
		Help:      "Extension queries served.",
	})

	SyncDownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "sync",
		Name:      "downloads_total",
		Help:      "Successful artifact downloads by kind.",
	}, []string{"kind"})

	SyncDownloadFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "sync",
		Name:      "download_failures_total",
		Help:      "Failed artifact downloads by kind.",
	}, []string{"kind"})
)
