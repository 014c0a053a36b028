package replicator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters are process-wide and labeled by shard; several Replicator
// instances in one process share them.
var (
	metricPullRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replicator_pull_requests",
		Help: "Pull iterations issued against the upstream.",
	}, []string{"shard"})

	metricPullRequestsSuccess = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replicator_pull_requests_success",
		Help: "Pull iterations that returned at least one update.",
	}, []string{"shard"})

	metricPullRequestsFailure = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replicator_pull_requests_failure",
		Help: "Pull iterations that failed at the transport or were rejected.",
	}, []string{"shard"})

	metricPullRequestsNoUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replicator_pull_requests_no_updates",
		Help: "Pull iterations that came back empty after the server wait.",
	}, []string{"shard"})

	metricResetUpstreamAttempted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replicator_reset_upstream_on_no_updates_attempted",
		Help: "Upstream reset requests triggered by persistent empty pulls.",
	}, []string{"shard"})

	metricWriteSuccess = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replicator_write_success",
		Help: "Writes accepted on the leader.",
	}, []string{"shard"})

	metricWriteLeaderFailure = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replicator_write_leader_failure",
		Help: "Writes rejected because the local role is not leader.",
	}, []string{"shard"})

	metricWriteWaitTimedOut = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replicator_write_wait_time_out",
		Help: "Mode-2 writes that gave up waiting for a follower ack.",
	}, []string{"shard"})

	metricTwoAckDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replicator_write_two_ack_degraded",
		Help: "Transitions of a shard into the degraded ack wait.",
	}, []string{"shard"})

	metricTwoAckRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replicator_write_two_ack_recovered",
		Help: "Transitions of a shard back to the normal ack wait.",
	}, []string{"shard"})

	metricObserverRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replicator_handle_observer_requests",
		Help: "Pull requests served to observers; their acks are discarded.",
	}, []string{"shard"})

	metricReplyUpdatesLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "replicator_reply_updates_duration_seconds",
		Help:    "Time spent serving one GetUpdates request, wait included.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"shard"})
)
