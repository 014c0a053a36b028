package replicator

import (
	"context"
	"log/slog"
	"time"

	"github.com/xia0pin9/rocksplicator/internal/dontpanic"
	"github.com/xia0pin9/rocksplicator/internal/logging"
	"github.com/xia0pin9/rocksplicator/internal/replicator/pb"
	"github.com/xia0pin9/rocksplicator/internal/store"
)

// startPull launches the shard's pull loop under a panic supervisor. A
// panic kills only the current iteration; the loop restarts after the
// error backoff with a cursor re-derived from the store.
func (d *ReplicatedDB) startPull() {
	d.pullLoop = dontpanic.NewForever(d.pullDelay())
	d.pullLoop.Go(d.runPullLoop)
}

func (d *ReplicatedDB) pullDelay() time.Duration {
	return time.Duration(d.cfg.PullDelayOnErrorMillis) * time.Millisecond
}

func (d *ReplicatedDB) runPullLoop() {
	fromSeq := d.db.LatestSeq()
	callerRole := pb.CallerRole_FOLLOWER
	if d.role == Observer {
		callerRole = pb.CallerRole_OBSERVER
	}

	slog.Info("starting pull loop",
		slog.String("shard", d.name),
		slog.String("role", d.role.String()),
		slog.String("upstream", d.upstreamAddr),
		slog.Uint64("from_seq", fromSeq))

	for {
		if d.isShutdown() {
			return
		}

		client, err := d.pool.Client(d.upstreamAddr, d.name)
		if err != nil {
			metricPullRequestsFailure.WithLabelValues(d.name).Inc()
			slog.Warn("cannot reach upstream",
				slog.String("shard", d.name),
				slog.String("upstream", d.upstreamAddr),
				slog.Any("error", err))
			d.sleepOnError()
			continue
		}

		waitMs := uint32(d.cfg.MaxServerWaitTimeMillis)
		clientDeadline := time.Duration(d.cfg.MaxServerWaitTimeMillis+d.cfg.ClientServerTimeoutDifferenceMillis) * time.Millisecond
		ctx, cancel := context.WithTimeout(context.Background(), clientDeadline)
		resp, err := client.RPC.GetUpdates(ctx, &pb.GetUpdatesRequest{
			Shard:      d.name,
			FromSeq:    fromSeq,
			MaxWaitMs:  waitMs,
			CallerRole: callerRole,
		})
		cancel()
		metricPullRequests.WithLabelValues(d.name).Inc()

		if err != nil {
			metricPullRequestsFailure.WithLabelValues(d.name).Inc()
			slog.Debug("pull failed",
				slog.String("shard", d.name),
				slog.String("upstream", d.upstreamAddr),
				slog.Any("error", err))
			d.pool.Invalidate(client)
			d.sleepOnError()
			continue
		}
		if resp.GetCode() != pb.ResponseCode_OK {
			metricPullRequestsFailure.WithLabelValues(d.name).Inc()
			slog.Debug("upstream rejected pull",
				slog.String("shard", d.name),
				slog.String("code", resp.GetCode().String()),
				slog.String("error_msg", resp.GetErrorMsg()))
			d.sleepOnError()
			continue
		}

		if len(resp.GetPayloads()) == 0 {
			// The upstream already waited max-server-wait-time for us,
			// so an immediate retry is not a hot loop.
			metricPullRequestsNoUpdates.WithLabelValues(d.name).Inc()
			d.noteEmptyPull()
			continue
		}

		applied := true
		base := resp.GetFromSeq()
		for i, payload := range resp.GetPayloads() {
			batch, err := store.DecodeBatch(payload)
			if err != nil {
				slog.Error("corrupt payload from upstream",
					slog.String("shard", d.name),
					slog.Uint64("seq", base+uint64(i)+1),
					slog.Any("error", err))
				applied = false
				break
			}
			if _, err := d.db.Write(store.WriteOptions{}, batch); err != nil {
				slog.Warn("apply failed, keeping cursor",
					slog.String("shard", d.name),
					slog.Uint64("seq", base+uint64(i)+1),
					slog.Any("error", err))
				applied = false
				break
			}
			fromSeq = base + uint64(i) + 1
			d.advanceSeq(fromSeq)
			// Chained pullers downstream of this replica long-poll on us.
			d.broadcastNewData()
		}
		d.pullNoUpdates.Store(0)
		metricPullRequestsSuccess.WithLabelValues(d.name).Inc()
		d.touch()
		logging.VInfo("replication", "applied updates",
			slog.String("shard", d.name),
			slog.Uint64("through_seq", fromSeq),
			slog.Int("count", len(resp.GetPayloads())))
		if !applied {
			d.sleepOnError()
		}
	}
}

// noteEmptyPull counts consecutive empty replies and, on a follower, asks
// the external controller for a new upstream once the threshold is hit.
// Observers count but never trigger a reset.
func (d *ReplicatedDB) noteEmptyPull() {
	n := d.pullNoUpdates.Add(1)
	if !d.cfg.ResetUpstreamOnEmptyUpdates || d.role != Follower {
		return
	}
	if int(n) < d.cfg.MaxConsecutiveNoUpdatesBeforeUpstreamReset {
		return
	}
	d.pullNoUpdates.Store(0)
	d.resetAttempts.Add(1)
	metricResetUpstreamAttempted.WithLabelValues(d.name).Inc()
	slog.Info("requesting upstream reset",
		slog.String("shard", d.name),
		slog.String("upstream", d.upstreamAddr),
		slog.Uint64("attempts", d.resetAttempts.Load()))
	if d.resetHook != nil {
		d.resetHook(d.name)
	}
}

func (d *ReplicatedDB) sleepOnError() {
	timer := time.NewTimer(d.pullDelay())
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-d.shutdownCh:
	}
}
