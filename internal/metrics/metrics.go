package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the pipeline. Callers hold an
// explicit handle; there is no process-global instance.
type Metrics struct {
	// Scan counters
	FilesScannedTotal prometheus.Counter
	FilesMatchedTotal prometheus.Counter
	FilesSkippedTotal prometheus.Counter

	// Upload counters
	FilesUploadedTotal    prometheus.Counter
	FilesFailedTotal      *prometheus.CounterVec
	RateLimitHitsTotal    prometheus.Counter
	UploadDurationSeconds prometheus.Histogram

	// Ad creation counters
	AdsCreatedTotal    prometheus.Counter
	AdCreateFailsTotal prometheus.Counter

	// Poll counters
	VideosReadyTotal   prometheus.Counter
	VideosMissingTotal prometheus.Counter

	// Run state
	RunInProgress prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		FilesScannedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adpipe_files_scanned_total",
				Help: "Total number of files seen while scanning the source store",
			},
		),
		FilesMatchedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adpipe_files_matched_total",
				Help: "Total number of files matching the deliverable pattern",
			},
		),
		FilesSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adpipe_files_skipped_total",
				Help: "Total number of matched files skipped because a video with the same name already exists",
			},
		),

		FilesUploadedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adpipe_files_uploaded_total",
				Help: "Total number of files uploaded to the ads platform",
			},
		),
		FilesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adpipe_files_failed_total",
				Help: "Total number of files that failed to upload",
			},
			[]string{"reason"},
		),
		RateLimitHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adpipe_rate_limit_hits_total",
				Help: "Total number of platform rate limit responses",
			},
		),
		UploadDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "adpipe_upload_duration_seconds",
				Help:    "Time to download and upload a single file",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),

		AdsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adpipe_ads_created_total",
				Help: "Total number of ads rewired to a new video",
			},
		),
		AdCreateFailsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adpipe_ad_create_fails_total",
				Help: "Total number of ad duplication failures",
			},
		),

		VideosReadyTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adpipe_videos_ready_total",
				Help: "Total number of uploaded videos that finished processing",
			},
		),
		VideosMissingTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adpipe_videos_missing_total",
				Help: "Total number of uploaded videos that disappeared before becoming ready",
			},
		),

		RunInProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "adpipe_run_in_progress",
				Help: "Whether a pipeline run is currently executing",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.FilesScannedTotal,
		m.FilesMatchedTotal,
		m.FilesSkippedTotal,
		m.FilesUploadedTotal,
		m.FilesFailedTotal,
		m.RateLimitHitsTotal,
		m.UploadDurationSeconds,
		m.AdsCreatedTotal,
		m.AdCreateFailsTotal,
		m.VideosReadyTotal,
		m.VideosMissingTotal,
		m.RunInProgress,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
