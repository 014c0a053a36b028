package replicator

import "errors"

var (
	// ErrShardNotFound is returned when the named shard is not registered
	// with this replicator.
	ErrShardNotFound = errors.New("replicator: shard not found")

	// ErrAlreadyExists is returned by AddShard when the name is taken.
	ErrAlreadyExists = errors.New("replicator: shard already exists")

	// ErrWriteToSlave is returned when a write is attempted on a shard
	// whose local role is not leader.
	ErrWriteToSlave = errors.New("replicator: write to slave")

	// ErrWriteError wraps a store rejection; the caller may retry.
	ErrWriteError = errors.New("replicator: write error")

	// ErrTimedOut is returned by a mode-2 write when no follower acked
	// within the shard's current ack timeout.
	ErrTimedOut = errors.New("Failed to receive ack from follower")
)
