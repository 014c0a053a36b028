// Package clientpool maintains persistent gRPC clients to upstream peers.
// Clients are keyed by (peer address, io worker) and reused across pull
// iterations; a transport error marks a client stale and the next request
// for the same key reconstructs it.
package clientpool

import (
	"log/slog"
	"sync"

	"github.com/cespare/xxhash/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/xia0pin9/rocksplicator/internal/replicator/pb"
)

type poolKey struct {
	addr   string
	worker int
}

// Client is a pooled connection plus its generated stub.
type Client struct {
	key  poolKey
	conn *grpc.ClientConn
	RPC  pb.ReplicatorClient
}

// Addr returns the peer address this client is bound to.
func (c *Client) Addr() string { return c.key.addr }

type Pool struct {
	mu      sync.Mutex
	workers int
	clients map[poolKey]*Client
	closed  bool
}

// NewPool creates a pool with the given number of io workers. Each shard
// hashes onto one worker so its pull traffic stays on one connection.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers, clients: make(map[poolKey]*Client)}
}

func (p *Pool) keyFor(addr, shard string) poolKey {
	return poolKey{addr: addr, worker: int(xxhash.Sum64String(shard) % uint64(p.workers))}
}

// Client returns the pooled client for (addr, worker-of-shard), dialing
// lazily on first use. The dial does not block; connection establishment
// happens on the first RPC.
func (p *Pool) Client(addr, shard string) (*Client, error) {
	key := p.keyFor(addr, shard)
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[key]; ok {
		return c, nil
	}
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	c := &Client{key: key, conn: conn, RPC: pb.NewReplicatorClient(conn)}
	if !p.closed {
		p.clients[key] = c
	}
	return c, nil
}

// Invalidate drops a stale client so the next request reconstructs it.
func (p *Pool) Invalidate(c *Client) {
	if c == nil {
		return
	}
	p.mu.Lock()
	if cur, ok := p.clients[c.key]; ok && cur == c {
		delete(p.clients, c.key)
	}
	p.mu.Unlock()
	if err := c.conn.Close(); err != nil {
		slog.Debug("closing stale replicator client", slog.String("addr", c.key.addr), slog.Any("error", err))
	}
}

func (p *Pool) Close() {
	p.mu.Lock()
	clients := make([]*Client, 0, len(p.clients))
	for k, c := range p.clients {
		clients = append(clients, c)
		delete(p.clients, k)
	}
	p.closed = true
	p.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close()
	}
}
