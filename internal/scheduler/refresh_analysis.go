package scheduler

import (
	"github.com/aristath/frontier/internal/modules/analysis"
)

// RefreshAnalysisJob recomputes the analysis for the configured universe so
// the cache stays warm and GET /analysis/latest reflects fresh data.
type RefreshAnalysisJob struct {
	service *analysis.Service
}

// NewRefreshAnalysisJob creates the nightly refresh job.
func NewRefreshAnalysisJob(service *analysis.Service) *RefreshAnalysisJob {
	return &RefreshAnalysisJob{service: service}
}

// Name implements Job.
func (j *RefreshAnalysisJob) Name() string { return "refresh_analysis" }

// Run implements Job.
func (j *RefreshAnalysisJob) Run() error {
	_, err := j.service.Run()
	return err
}
