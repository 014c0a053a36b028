// Package replicator implements a per-shard asynchronous replication engine
// for embedded key-value stores. A process hosts one Replicator per listen
// port; each replicated shard is either a leader accepting writes or a
// follower/observer pulling write batches from its configured upstream.
package replicator

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/xia0pin9/rocksplicator/config"
	"github.com/xia0pin9/rocksplicator/internal/clientpool"
	"github.com/xia0pin9/rocksplicator/internal/registry"
	"github.com/xia0pin9/rocksplicator/internal/replicator/pb"
	"github.com/xia0pin9/rocksplicator/internal/store"
)

const (
	minExecutorThreads = 16

	// removeShardRefWait is how long RemoveShard sleeps between holder
	// checks while draining a shard.
	removeShardRefWait = 200 * time.Millisecond
)

// Option customizes a Replicator.
type Option func(*Replicator)

// WithUpstreamResetHook installs the callback invoked when a follower
// detects a degenerate upstream. Production wires this to the external
// cluster controller; the engine itself only counts attempts.
func WithUpstreamResetHook(hook func(shard string)) Option {
	return func(r *Replicator) { r.resetHook = hook }
}

// Replicator composes the shard registry, the client pool, the GetUpdates
// server, and the cleaner. Tests construct several in one process on
// different ports; production usually uses Default.
type Replicator struct {
	cfg       config.ReplicatorConfig
	pool      *clientpool.Pool
	shards    *registry.Map[*ReplicatedDB]
	server    *grpc.Server
	cleaner   *cleaner
	resetHook func(shard string)
	serveDone chan struct{}
	closeOnce sync.Once
}

// New starts a Replicator listening on cfg.Host:cfg.Port. The config is
// copied; later mutation of cfg does not affect the instance.
func New(cfg *config.ReplicatorConfig, opts ...Option) (*Replicator, error) {
	c := *cfg
	if c.ExecutorThreads < minExecutorThreads {
		c.ExecutorThreads = minExecutorThreads
	}

	r := &Replicator{
		cfg:       c,
		pool:      clientpool.NewPool(c.IOThreads),
		shards:    registry.NewMap[*ReplicatedDB](),
		serveDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", c.Host, c.Port))
	if err != nil {
		return nil, fmt.Errorf("replicator: listening on port %d: %w", c.Port, err)
	}

	r.server = grpc.NewServer(
		grpc.NumStreamWorkers(uint32(c.IOThreads)),
		grpc.MaxConcurrentStreams(uint32(c.ExecutorThreads)),
	)
	pb.RegisterReplicatorServer(r.server, &handler{shards: r.shards})

	go func() {
		defer close(r.serveDone)
		slog.Info("starting replicator server", slog.String("addr", lis.Addr().String()))
		if err := r.server.Serve(lis); err != nil {
			slog.Error("replicator server exited", slog.Any("error", err))
			return
		}
		slog.Info("stopping replicator server", slog.String("addr", lis.Addr().String()))
	}()

	r.cleaner = newCleaner(r.shards)
	return r, nil
}

// AddShard publishes a new replicated shard. Followers and observers need
// upstreamAddr ("host:port"); a leader passes "". The returned ReplicatedDB
// stays valid until RemoveShard.
func (r *Replicator) AddShard(name string, s store.Store, role Role, upstreamAddr string) (*ReplicatedDB, error) {
	db := newReplicatedDB(name, s, role, upstreamAddr, &r.cfg, r.pool, r.resetHook)
	if !r.shards.Add(name, db) {
		return nil, ErrAlreadyExists
	}
	if role == Follower || role == Observer {
		db.startPull()
	}
	slog.Info("added shard",
		slog.String("shard", name),
		slog.String("role", role.String()),
		slog.String("upstream", upstreamAddr),
		slog.Uint64("seq", db.CurSeq()))
	return db, nil
}

// RemoveShard unpublishes the shard, cancels its pull loop, fails its
// outstanding ack waiters, and blocks until no in-flight request holds it.
func (r *Replicator) RemoveShard(name string) error {
	db, ok := r.shards.Remove(name)
	if !ok {
		return ErrShardNotFound
	}
	db.close()
	for db.holders() > 0 {
		slog.Info("shard is still held by others, waiting",
			slog.String("shard", name),
			slog.Duration("wait", removeShardRefWait))
		time.Sleep(removeShardRefWait)
	}
	slog.Info("removed shard", slog.String("shard", name))
	return nil
}

// Write applies a batch to the named shard; see ReplicatedDB.Write for the
// mode-2 blocking behavior.
func (r *Replicator) Write(name string, opts store.WriteOptions, batch *store.WriteBatch) (uint64, error) {
	db, ok := r.shards.Get(name)
	if !ok {
		return 0, ErrShardNotFound
	}
	db.Retain()
	defer db.Release()
	if db.isShutdown() {
		return 0, ErrShardNotFound
	}
	return db.Write(opts, batch)
}

// GetShard returns the live ReplicatedDB for name, mainly for
// introspection endpoints.
func (r *Replicator) GetShard(name string) (*ReplicatedDB, bool) {
	return r.shards.Get(name)
}

// Close drains the registry, stops the cleaner, then stops the server and
// waits for the serving goroutine to exit.
func (r *Replicator) Close() {
	r.closeOnce.Do(func() {
		for _, db := range r.shards.Clear() {
			db.close()
		}
		r.cleaner.StopAndWait()
		r.server.Stop()
		<-r.serveDone
		r.pool.Close()
	})
}

var (
	defaultOnce       sync.Once
	defaultReplicator *Replicator
	defaultErr        error
)

// Default returns the process-wide Replicator built from config.Config.
// It is sugar over New for embedders that host a single instance.
func Default() (*Replicator, error) {
	defaultOnce.Do(func() {
		defaultReplicator, defaultErr = New(config.Config)
	})
	return defaultReplicator, defaultErr
}
