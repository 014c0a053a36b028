package replicator

import "sync"

// ackTable coordinates mode-2 writes with follower acks. A write registers
// a waiter keyed by the sequence it produced; a follower's next pull request
// acts as the ack for everything it has applied so far.
//
// Registration and signaling race both ways: an ack can land between a
// write's store apply and its register call. The table keeps the high-water
// acked sequence so a late register for an already-acked sequence completes
// immediately.
type ackTable struct {
	mu       sync.Mutex
	waiters  map[uint64]chan struct{}
	maxAcked uint64
	closed   bool
}

func newAckTable() *ackTable {
	return &ackTable{waiters: make(map[uint64]chan struct{})}
}

// register returns a channel closed once some follower acks seq or the
// table shuts down. If seq is already acked, a closed channel is returned.
func (t *ackTable) register(seq uint64) <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.waiters[seq]; ok {
		return ch
	}
	ch := make(chan struct{})
	if t.closed || seq <= t.maxAcked {
		close(ch)
		return ch
	}
	t.waiters[seq] = ch
	return ch
}

// forget removes a waiter that gave up (timed out) so the table stays O(live writes).
func (t *ackTable) forget(seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.waiters, seq)
}

// ack signals every waiter with sequence <= ackedSeq and removes it.
func (t *ackTable) ack(ackedSeq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ackedSeq > t.maxAcked {
		t.maxAcked = ackedSeq
	}
	for seq, ch := range t.waiters {
		if seq <= ackedSeq {
			close(ch)
			delete(t.waiters, seq)
		}
	}
}

// acked reports whether seq has been acknowledged already. A waiter woken
// by shutdown checks this to tell a real ack from teardown.
func (t *ackTable) acked(seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return seq <= t.maxAcked
}

// shutdown wakes every outstanding waiter. Their writes observe the
// shutdown and fail with a timeout; new registrations complete immediately.
func (t *ackTable) shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for seq, ch := range t.waiters {
		close(ch)
		delete(t.waiters, seq)
	}
}
