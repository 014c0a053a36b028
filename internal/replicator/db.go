package replicator

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xia0pin9/rocksplicator/config"
	"github.com/xia0pin9/rocksplicator/internal/clientpool"
	"github.com/xia0pin9/rocksplicator/internal/dontpanic"
	"github.com/xia0pin9/rocksplicator/internal/store"
)

// Replication modes.
const (
	// ModeAsync acknowledges a write as soon as the local store has it.
	ModeAsync = 1
	// ModeSyncOneAck blocks a write until one follower has pulled it.
	ModeSyncOneAck = 2
)

// maxUpdatesPerResponse bounds one GetUpdates reply; a follower that is far
// behind catches up over several pulls.
const maxUpdatesPerResponse = 1000

// ReplicatedDB is the per-shard replication state machine. A leader applies
// client writes and serves them to pullers; a follower or observer runs a
// pull loop against its upstream and applies what it receives.
type ReplicatedDB struct {
	name         string
	role         Role
	upstreamAddr string // empty means no upstream configured

	db   store.Store
	cfg  *config.ReplicatorConfig
	pool *clientpool.Pool

	curSeq               atomic.Uint64
	currentTimeoutMillis atomic.Uint32
	consecutiveAckFails  atomic.Uint32
	pullNoUpdates        atomic.Uint32
	resetAttempts        atomic.Uint64

	acks *ackTable

	// newData is the broadcast channel for the serve-updates long poll:
	// closed and replaced under signalMu whenever a sequence lands.
	signalMu sync.Mutex
	newData  chan struct{}

	// scratch is the cached read position of the serve path; the cleaner
	// drops it once the shard has been idle for a while.
	scratchMu    sync.Mutex
	cachedIter   store.Iterator
	cachedNext   uint64
	lastActivity atomic.Int64

	resetHook func(shard string)

	refs         atomic.Int64
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	pullLoop     *dontpanic.Forever
}

func newReplicatedDB(name string, s store.Store, role Role, upstreamAddr string, cfg *config.ReplicatorConfig, pool *clientpool.Pool, resetHook func(string)) *ReplicatedDB {
	d := &ReplicatedDB{
		name:         name,
		role:         role,
		upstreamAddr: upstreamAddr,
		db:           s,
		cfg:          cfg,
		pool:         pool,
		acks:         newAckTable(),
		newData:      make(chan struct{}),
		resetHook:    resetHook,
		shutdownCh:   make(chan struct{}),
	}
	d.curSeq.Store(s.LatestSeq())
	d.currentTimeoutMillis.Store(uint32(cfg.AckTimeoutMillis))
	d.touch()
	return d
}

func (d *ReplicatedDB) Name() string { return d.name }
func (d *ReplicatedDB) Role() Role   { return d.role }

// CurSeq is the highest sequence this replica has applied.
func (d *ReplicatedDB) CurSeq() uint64 { return d.curSeq.Load() }

// ResetUpstreamAttempts counts how often this shard asked the external
// controller for a new upstream.
func (d *ReplicatedDB) ResetUpstreamAttempts() uint64 { return d.resetAttempts.Load() }

// CurrentAckTimeoutMillis is the ack wait a mode-2 write would use now.
func (d *ReplicatedDB) CurrentAckTimeoutMillis() uint32 { return d.currentTimeoutMillis.Load() }

// Write applies the batch on a leader shard. In mode 2 it then blocks until
// one follower acknowledges the resulting sequence or the shard's current
// ack timeout elapses.
func (d *ReplicatedDB) Write(opts store.WriteOptions, batch *store.WriteBatch) (uint64, error) {
	if d.role != Leader {
		metricWriteLeaderFailure.WithLabelValues(d.name).Inc()
		return 0, ErrWriteToSlave
	}

	seq, err := d.db.Write(opts, batch)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWriteError, err)
	}
	d.advanceSeq(seq)
	d.broadcastNewData()
	d.touch()

	if d.cfg.ReplicationMode != ModeSyncOneAck {
		metricWriteSuccess.WithLabelValues(d.name).Inc()
		return seq, nil
	}
	if err := d.waitForAck(seq); err != nil {
		return seq, err
	}
	metricWriteSuccess.WithLabelValues(d.name).Inc()
	return seq, nil
}

func (d *ReplicatedDB) waitForAck(seq uint64) error {
	ch := d.acks.register(seq)
	timeout := time.Duration(d.currentTimeoutMillis.Load()) * time.Millisecond
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	acked := false
	select {
	case <-ch:
		acked = d.acks.acked(seq)
	case <-timer.C:
		d.acks.forget(seq)
		// An ack may have raced the timer; honor it.
		acked = d.acks.acked(seq)
	}

	if acked {
		d.consecutiveAckFails.Store(0)
		normal := uint32(d.cfg.AckTimeoutMillis)
		if d.currentTimeoutMillis.Load() != normal {
			d.currentTimeoutMillis.Store(normal)
			metricTwoAckRecovered.WithLabelValues(d.name).Inc()
			slog.Info("shard recovered from degraded ack wait",
				slog.String("shard", d.name),
				slog.Uint64("seq", seq))
		}
		return nil
	}

	metricWriteWaitTimedOut.WithLabelValues(d.name).Inc()
	n := d.consecutiveAckFails.Add(1)
	degraded := uint32(d.cfg.AckTimeoutDegradedMillis)
	if int(n) >= d.cfg.ConsecutiveAckTimeoutBeforeDegradation && d.currentTimeoutMillis.Load() != degraded {
		d.currentTimeoutMillis.Store(degraded)
		metricTwoAckDegraded.WithLabelValues(d.name).Inc()
		slog.Warn("shard degraded its ack wait after consecutive timeouts",
			slog.String("shard", d.name),
			slog.Uint64("consecutive", uint64(n)),
			slog.Uint64("degraded_ms", uint64(degraded)))
	}
	return ErrTimedOut
}

// getUpdates serves one pull request: it records the caller's ack, waits up
// to waitMs for sequences beyond fromSeq, and returns a contiguous run of
// payloads. An empty reply means the wait expired.
func (d *ReplicatedDB) getUpdates(done <-chan struct{}, fromSeq uint64, waitMs uint32, follower bool) ([][]byte, uint64) {
	d.touch()
	if follower {
		d.acks.ack(fromSeq)
	} else {
		metricObserverRequests.WithLabelValues(d.name).Inc()
	}

	wait := time.Duration(waitMs) * time.Millisecond
	if max := time.Duration(d.cfg.MaxServerWaitTimeMillis) * time.Millisecond; wait > max {
		wait = max
	}
	deadline := time.Now().Add(wait)

	for {
		// Grab the broadcast channel before the sequence check so a
		// write landing in between still wakes this request.
		signal := d.dataSignal()
		if d.db.LatestSeq() > fromSeq {
			break
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fromSeq
		}
		timer := time.NewTimer(remaining)
		select {
		case <-signal:
			timer.Stop()
		case <-timer.C:
			return nil, fromSeq
		case <-d.shutdownCh:
			timer.Stop()
			return nil, fromSeq
		case <-done:
			timer.Stop()
			return nil, fromSeq
		}
	}

	return d.readUpdates(fromSeq)
}

// readUpdates assembles payloads (fromSeq+1 ..) from the store, reusing the
// cached iterator when the caller continues where the last reply ended.
func (d *ReplicatedDB) readUpdates(fromSeq uint64) ([][]byte, uint64) {
	d.scratchMu.Lock()
	defer d.scratchMu.Unlock()

	it := d.cachedIter
	if it == nil || d.cachedNext != fromSeq+1 {
		if it != nil {
			it.Close()
			d.cachedIter = nil
		}
		fresh, err := d.db.UpdatesSince(fromSeq)
		if err != nil {
			slog.Error("reading updates from store",
				slog.String("shard", d.name),
				slog.Uint64("from_seq", fromSeq),
				slog.Any("error", err))
			return nil, fromSeq
		}
		it = fresh
		d.cachedIter = fresh
	}

	payloads := make([][]byte, 0, 16)
	toSeq := fromSeq
	for len(payloads) < maxUpdatesPerResponse {
		u, ok := it.Next()
		if !ok {
			break
		}
		payloads = append(payloads, u.Payload)
		toSeq = u.Seq
	}
	d.cachedNext = toSeq + 1
	return payloads, toSeq
}

// compactIfIdle drops the cached read position when the shard has seen no
// replication traffic for idleAfter. Called by the cleaner.
func (d *ReplicatedDB) compactIfIdle(idleAfter time.Duration) {
	last := time.Unix(0, d.lastActivity.Load())
	if time.Since(last) < idleAfter {
		return
	}
	d.scratchMu.Lock()
	defer d.scratchMu.Unlock()
	if d.cachedIter != nil {
		d.cachedIter.Close()
		d.cachedIter = nil
		d.cachedNext = 0
		slog.Debug("compacted idle shard scratch", slog.String("shard", d.name))
	}
}

// Introspect renders the canonical one-line-per-field state snapshot.
func (d *ReplicatedDB) Introspect() string {
	addr := "uninitialized_addr"
	if d.upstreamAddr != "" {
		if host, _, err := net.SplitHostPort(d.upstreamAddr); err == nil {
			addr = host
		} else {
			addr = d.upstreamAddr
		}
	}
	return fmt.Sprintf("ReplicatedDB:\n"+
		"  name: %s\n"+
		"  ReplicaRole: %s\n"+
		"  upstream_addr: %s\n"+
		"  cur_seq_no: %d\n"+
		"  current_replicator_timeout_ms_: %d\n",
		d.name, d.role, addr, d.curSeq.Load(), d.currentTimeoutMillis.Load())
}

func (d *ReplicatedDB) advanceSeq(seq uint64) {
	for {
		cur := d.curSeq.Load()
		if seq <= cur || d.curSeq.CompareAndSwap(cur, seq) {
			return
		}
	}
}

func (d *ReplicatedDB) dataSignal() <-chan struct{} {
	d.signalMu.Lock()
	defer d.signalMu.Unlock()
	return d.newData
}

func (d *ReplicatedDB) broadcastNewData() {
	d.signalMu.Lock()
	ch := d.newData
	d.newData = make(chan struct{})
	d.signalMu.Unlock()
	close(ch)
}

func (d *ReplicatedDB) touch() {
	d.lastActivity.Store(time.Now().UnixNano())
}

// Retain marks the db as held by an in-flight request; Release undoes it.
// Shard removal drains holders before returning.
func (d *ReplicatedDB) Retain()  { d.refs.Add(1) }
func (d *ReplicatedDB) Release() { d.refs.Add(-1) }

func (d *ReplicatedDB) holders() int64 { return d.refs.Load() }

func (d *ReplicatedDB) isShutdown() bool {
	select {
	case <-d.shutdownCh:
		return true
	default:
		return false
	}
}

// close stops the pull loop, fails outstanding ack waiters, and wakes every
// parked long poll. Idempotent.
func (d *ReplicatedDB) close() {
	d.shutdownOnce.Do(func() {
		close(d.shutdownCh)
		d.acks.shutdown()
		d.broadcastNewData()
		if d.pullLoop != nil {
			d.pullLoop.Cancel()
		}
		d.scratchMu.Lock()
		if d.cachedIter != nil {
			d.cachedIter.Close()
			d.cachedIter = nil
		}
		d.scratchMu.Unlock()
	})
}
