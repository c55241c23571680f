package bump

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/simplesurance/snapbump/internal/logfields"
)

const metricNamespace = "snapbump"

const (
	runsMetricName               = "runs_total"
	proposalsMetricName          = "proposals_total"
	lookupErrorsMetricName       = "lookup_errors_total"
	structuralErrorsMetricName   = "structural_errors_total"
	discoveredBranchesMetricName = "discovered_branches"
)

const (
	repositoryLabel   = "repository"
	baseBranchLabel   = "base_branch"
	operationLabel    = "operation"
	architectureLabel = "architecture"
)

type operationLabelVal string

const (
	operationLabelCreatedVal operationLabelVal = "created"
	operationLabelUpdatedVal operationLabelVal = "updated"
)

type metricCollector struct {
	logger             *zap.Logger
	runs               prometheus.Counter
	proposals          *prometheus.CounterVec
	lookupErrors       *prometheus.CounterVec
	structuralErrors   *prometheus.CounterVec
	discoveredBranches *prometheus.GaugeVec
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		runs: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      runsMetricName,
				Help:      "count of finished update runs",
			},
		),
		proposals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      proposalsMetricName,
				Help:      "count of created and updated update proposals",
			},
			[]string{repositoryLabel, baseBranchLabel, operationLabel},
		),
		lookupErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      lookupErrorsMetricName,
				Help:      "count of failed snap store revision lookups",
			},
			[]string{repositoryLabel, architectureLabel},
		),
		structuralErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      structuralErrorsMetricName,
				Help:      "count of manifests that were missing required entries",
			},
			[]string{repositoryLabel, baseBranchLabel},
		),
		discoveredBranches: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      discoveredBranchesMetricName,
				Help:      "count of release branches discovered in the last run",
			},
			[]string{repositoryLabel},
		),
	}
}

func (m *metricCollector) logGetMetricFailed(metricName string, err error) {
	m.logger.Warn(
		"could not record metric",
		zap.String("metric", metricName),
		logfields.Event("recording_metric_failed"),
		zap.Error(err),
	)
}

func repositoryLabelVal(owner, repo string) string {
	return fmt.Sprintf("%s/%s", owner, repo)
}

func (m *metricCollector) RunsInc() {
	m.runs.Inc()
}

func (m *metricCollector) ProposalsInc(owner, repo, baseBranch string, operation operationLabelVal) {
	cnt, err := m.proposals.GetMetricWith(prometheus.Labels{
		repositoryLabel: repositoryLabelVal(owner, repo),
		baseBranchLabel: baseBranch,
		operationLabel:  string(operation),
	})
	if err != nil {
		m.logGetMetricFailed(proposalsMetricName, err)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) LookupErrorsInc(owner, repo, architecture string) {
	cnt, err := m.lookupErrors.GetMetricWith(prometheus.Labels{
		repositoryLabel:   repositoryLabelVal(owner, repo),
		architectureLabel: architecture,
	})
	if err != nil {
		m.logGetMetricFailed(lookupErrorsMetricName, err)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) StructuralErrorsInc(owner, repo, baseBranch string) {
	cnt, err := m.structuralErrors.GetMetricWith(prometheus.Labels{
		repositoryLabel: repositoryLabelVal(owner, repo),
		baseBranchLabel: baseBranch,
	})
	if err != nil {
		m.logGetMetricFailed(structuralErrorsMetricName, err)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) DiscoveredBranchesSet(owner, repo string, count int) {
	gauge, err := m.discoveredBranches.GetMetricWith(prometheus.Labels{
		repositoryLabel: repositoryLabelVal(owner, repo),
	})
	if err != nil {
		m.logGetMetricFailed(discoveredBranchesMetricName, err)
		return
	}

	gauge.Set(float64(count))
}
