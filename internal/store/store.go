// Package store defines the contract the replication engine has against the
// embedded key-value engine: a monotonically increasing write sequence number
// and the ability to read back contiguous write batches by sequence.
package store

import "errors"

var (
	// ErrCorruptPayload is returned when a replicated batch payload cannot
	// be decoded back into a write batch.
	ErrCorruptPayload = errors.New("store: corrupt batch payload")
)

// WriteOptions mirrors the knobs callers pass through to the engine.
type WriteOptions struct {
	// Sync requests that the write is durable before returning. The
	// in-memory engine ignores it; disk-backed engines honor it.
	Sync bool
}

// Update is a single replayable write: the raw payload that reproduces
// sequence Seq when applied.
type Update struct {
	Seq     uint64
	Payload []byte
}

// Iterator walks updates in sequence order. A fresh iterator opened at the
// same starting sequence yields the same prefix until new writes occur.
type Iterator interface {
	// Next returns the next update, or ok=false when the iterator is
	// exhausted. Exhaustion is not permanent: once the engine gains new
	// writes, a later Next call returns them in order.
	Next() (u Update, ok bool)
	Close()
}

// Store is the capability set the replicator needs from an engine. One
// replicated shard owns exactly one Store; the replicator is the only
// writer for follower and observer shards.
type Store interface {
	// LatestSeq returns the last durable sequence number, 0 if empty.
	LatestSeq() uint64

	// Write applies the batch atomically and returns the last sequence
	// number assigned to it. A batch with k operations advances the
	// sequence by k.
	Write(opts WriteOptions, batch *WriteBatch) (uint64, error)

	// UpdatesSince returns an iterator over all durable sequences
	// strictly greater than seq, in order.
	UpdatesSince(seq uint64) (Iterator, error)
}
