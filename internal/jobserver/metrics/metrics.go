package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cqnkjsx/htcondor/internal/job"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
	"github.com/cqnkjsx/htcondor/internal/jobserver"
	"github.com/cqnkjsx/htcondor/internal/submission"
)

const MetricPrefix = "jobserver_"

// Source is the part of the job server the collector reads.
type Source interface {
	ListSubmissions() []submission.Snapshot
	Stats() jobserver.Stats
}

func ExposeDataMetrics(source Source) *JobInfoCollector {
	collector := &JobInfoCollector{source: source}
	prometheus.MustRegister(collector)
	return collector
}

// JobInfoCollector reports submission accounting and job states at scrape time.
type JobInfoCollector struct {
	source Source
}

var submissionJobsDesc = prometheus.NewDesc(
	MetricPrefix+"submission_jobs",
	"Number of jobs of a submission in a status",
	[]string{"submission", "owner", "status"},
	nil,
)

var submissionLiveJobsDesc = prometheus.NewDesc(
	MetricPrefix+"submission_live_jobs",
	"Number of jobs of a submission that are neither completed nor removed",
	[]string{"submission", "owner"},
	nil,
)

var jobsDesc = prometheus.NewDesc(
	MetricPrefix+"jobs",
	"Number of jobs known to the job server by state",
	[]string{"state"},
	nil,
)

var ownerlessClustersDesc = prometheus.NewDesc(
	MetricPrefix+"ownerless_clusters",
	"Number of clusters whose owner is waiting for a submission",
	nil,
	nil,
)

func (c *JobInfoCollector) Describe(desc chan<- *prometheus.Desc) {
	desc <- submissionJobsDesc
	desc <- submissionLiveJobsDesc
	desc <- jobsDesc
	desc <- ownerlessClustersDesc
}

func (c *JobInfoCollector) Collect(metrics chan<- prometheus.Metric) {
	for _, s := range c.source.ListSubmissions() {
		for _, status := range jobattr.AllStatuses {
			metrics <- prometheus.MustNewConstMetric(
				submissionJobsDesc,
				prometheus.GaugeValue,
				float64(s.Counts[status]),
				s.Name,
				s.Owner,
				status.String())
		}
		metrics <- prometheus.MustNewConstMetric(submissionLiveJobsDesc, prometheus.GaugeValue, float64(s.Live), s.Name, s.Owner)
	}

	stats := c.source.Stats()
	for _, state := range []job.State{job.LiveOnly, job.HistoricalOnly, job.LiveAndHistorical, job.DestroyPending} {
		metrics <- prometheus.MustNewConstMetric(jobsDesc, prometheus.GaugeValue, float64(stats.Jobs[state]), state.String())
	}
	metrics <- prometheus.MustNewConstMetric(ownerlessClustersDesc, prometheus.GaugeValue, float64(stats.Ownerless))
}
