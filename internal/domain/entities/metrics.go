package entities

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const metricsNamespace = "devflow"

// Metrics is the counter aggregate owned by one engine instance. Each instance
// has its own prometheus registry, so two engines never share counts.
type Metrics struct {
	registry *prometheus.Registry

	branchesCreated     prometheus.Counter
	pullRequestsCreated prometheus.Counter
	conflictsDetected   prometheus.Counter
	crossRepoOperations *prometheus.CounterVec
	releasesCreated     prometheus.Counter
	rollbacks           prometheus.Counter
}

// MetricsSnapshot is a read-only copy of the counters.
type MetricsSnapshot struct {
	BranchesCreated     int64
	PullRequestsCreated int64
	ConflictsDetected   int64
	CrossRepoOperations int64
	ReleasesCreated     int64
	Rollbacks           int64
}

// NewMetrics builds the counters and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		branchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "branches_created_total",
			Help:      "Branches created on the hosting service",
		}),
		pullRequestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pull_requests_created_total",
			Help:      "Pull requests opened on the hosting service",
		}),
		conflictsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "conflicts_detected_total",
			Help:      "Comparisons classified as having critical-path conflicts",
		}),
		crossRepoOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cross_repo_operations_total",
			Help:      "Coordinated multi-repository operations executed",
		}, []string{"operation"}),
		releasesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "releases_created_total",
			Help:      "Releases published on the hosting service",
		}),
		rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rollbacks_total",
			Help:      "Compensating rollbacks started after a critical failure",
		}),
	}
	m.registry.MustRegister(
		m.branchesCreated,
		m.pullRequestsCreated,
		m.conflictsDetected,
		m.crossRepoOperations,
		m.releasesCreated,
		m.rollbacks,
	)
	return m
}

// Registry exposes the private registry for a /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) IncBranchesCreated()     { m.branchesCreated.Inc() }
func (m *Metrics) IncPullRequestsCreated() { m.pullRequestsCreated.Inc() }
func (m *Metrics) IncConflictsDetected()   { m.conflictsDetected.Inc() }
func (m *Metrics) IncReleasesCreated()     { m.releasesCreated.Inc() }
func (m *Metrics) IncRollbacks()           { m.rollbacks.Inc() }

// IncCrossRepoOperations counts one coordinated operation of the given kind.
func (m *Metrics) IncCrossRepoOperations(operation string) {
	m.crossRepoOperations.WithLabelValues(operation).Inc()
}

// Snapshot reads the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snapshot := MetricsSnapshot{
		BranchesCreated:     counterValue(m.branchesCreated),
		PullRequestsCreated: counterValue(m.pullRequestsCreated),
		ConflictsDetected:   counterValue(m.conflictsDetected),
		ReleasesCreated:     counterValue(m.releasesCreated),
		Rollbacks:           counterValue(m.rollbacks),
	}

	families, err := m.registry.Gather()
	if err != nil {
		return snapshot
	}
	for _, family := range families {
		if family.GetName() != metricsNamespace+"_cross_repo_operations_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			snapshot.CrossRepoOperations += int64(metric.GetCounter().GetValue())
		}
	}
	return snapshot
}

func counterValue(counter prometheus.Counter) int64 {
	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		return 0
	}
	return int64(metric.GetCounter().GetValue())
}
