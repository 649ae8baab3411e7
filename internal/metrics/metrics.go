package metrics

import (
	"time"

	"github.com/KaramelBytes/tripmerge-cli/internal/consolidate"
	"github.com/prometheus/client_golang/prometheus"
)

var _ consolidate.Observer = (*Collector)(nil)

// Collector records consolidation runs. It implements consolidate.Observer.
type Collector struct {
	reg *prometheus.Registry

	Runs *prometheus.CounterVec // outcome label: merged|unchanged|cached|error

	FilesMerged  prometheus.Counter
	FilesSkipped prometheus.Counter
	FilesDeleted prometheus.Counter
	DeleteFailed prometheus.Counter
	RowsAdded    prometheus.Counter
	DatasetRows  prometheus.Gauge
	PendingFiles prometheus.Gauge
	LastSuccess  prometheus.Gauge
	RunDuration  prometheus.Histogram
}

// NewCollector registers all tripmerge metrics on a private registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripmerge_runs_total",
			Help: "Consolidation runs by outcome.",
		}, []string{"outcome"}),
		FilesMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripmerge_files_merged_total",
			Help: "Trip files folded into the consolidated dataset.",
		}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripmerge_files_skipped_total",
			Help: "Trip files skipped because they could not be read.",
		}),
		FilesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripmerge_files_deleted_total",
			Help: "Trip files deleted after a verified merge.",
		}),
		DeleteFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripmerge_delete_failures_total",
			Help: "Merged trip files that could not be deleted.",
		}),
		RowsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripmerge_rows_added_total",
			Help: "Rows appended to the consolidated dataset.",
		}),
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripmerge_dataset_rows",
			Help: "Rows in the consolidated dataset after the last run.",
		}),
		PendingFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripmerge_pending_files",
			Help: "Trip files left unmerged by the last run (skipped or empty).",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripmerge_last_success_timestamp_seconds",
			Help: "Unix time of the last run that did not fail.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripmerge_run_duration_seconds",
			Help:    "Duration of consolidation runs.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
	}

	reg.MustRegister(
		c.Runs,
		c.FilesMerged, c.FilesSkipped, c.FilesDeleted, c.DeleteFailed,
		c.RowsAdded, c.DatasetRows, c.PendingFiles, c.LastSuccess,
		c.RunDuration,
	)
	return c
}

// Registry exposes the underlying registry for gathering.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// ObserveRun implements consolidate.Observer.
func (c *Collector) ObserveRun(res *consolidate.Result, elapsed time.Duration, err error) {
	c.RunDuration.Observe(elapsed.Seconds())
	if err != nil || res == nil {
		c.Runs.WithLabelValues("error").Inc()
		return
	}
	switch {
	case res.Cached:
		c.Runs.WithLabelValues("cached").Inc()
	case res.Persisted:
		c.Runs.WithLabelValues("merged").Inc()
	default:
		c.Runs.WithLabelValues("unchanged").Inc()
	}
	c.FilesMerged.Add(float64(len(res.Merged)))
	c.FilesSkipped.Add(float64(len(res.Skipped)))
	c.FilesDeleted.Add(float64(len(res.Deleted)))
	c.DeleteFailed.Add(float64(len(res.DeleteFailed)))
	c.RowsAdded.Add(float64(res.RowsAdded))
	if res.Dataset != nil {
		c.DatasetRows.Set(float64(res.Dataset.Len()))
	}
	c.PendingFiles.Set(float64(len(res.Skipped) + len(res.EmptyFiles)))
	c.LastSuccess.SetToCurrentTime()
}

// WriteTextfile writes all metrics in the text exposition format, for
// collection by node_exporter's textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.reg)
}
