package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seqcrop_exports_total",
		Help: "Total number of exports, by kind and status",
	}, []string{"kind", "status"})

	ExportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seqcrop_export_duration_seconds",
		Help:    "Wall time of a whole export",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"kind"})

	FramesCroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seqcrop_frames_cropped_total",
		Help: "Total number of frames cropped across all exports",
	})

	BytesWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seqcrop_bytes_written_total",
		Help: "Bytes written to export files, by kind",
	}, []string{"kind"})

	ActiveExports = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "seqcrop_active_exports",
		Help: "Number of exports currently running",
	})

	FramesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seqcrop_frames_skipped_total",
		Help: "Files left out of a sequence because they could not be decoded",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seqcrop_http_requests_total",
		Help: "Requests served by the editor API",
	}, []string{"method", "route", "status"})
)
