package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "brightpost",
		Name:      "content_published_total",
		Help:      "Records published to at least one platform",
	})

	exportedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "brightpost",
		Name:      "content_exported_total",
		Help:      "Records that fell back to a manual scheduling export",
	})

	publishFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "brightpost",
		Name:      "content_publish_failed_total",
		Help:      "Records that could not be published or exported",
	})

	captionRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "brightpost",
		Name:      "caption_retries_total",
		Help:      "Caption regeneration attempts after failures or rejections",
	})

	approvalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brightpost",
		Name:      "approvals_total",
		Help:      "Approval decisions by outcome",
	}, []string{"decision"})

	recycledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "brightpost",
		Name:      "content_recycled_total",
		Help:      "Records re-seeded by the recycling sweep",
	})
)
