package replicator

import (
	"log/slog"
	"time"

	"github.com/xia0pin9/rocksplicator/internal/registry"
)

const (
	cleanerInterval  = time.Minute
	cleanerIdleAfter = 5 * time.Minute
)

// cleaner is a low-frequency background task that walks the registry and
// compacts the scratch state of shards with no recent replication traffic.
type cleaner struct {
	shards *registry.Map[*ReplicatedDB]
	stopCh chan struct{}
	doneCh chan struct{}
}

func newCleaner(shards *registry.Map[*ReplicatedDB]) *cleaner {
	c := &cleaner{
		shards: shards,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go c.loop()
	return c
}

func (c *cleaner) loop() {
	defer close(c.doneCh)
	ticker := time.NewTicker(cleanerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.shards.Range(func(name string, db *ReplicatedDB) {
				db.compactIfIdle(cleanerIdleAfter)
			})
		}
	}
}

// StopAndWait stops the cleaner and blocks until its loop has exited.
func (c *cleaner) StopAndWait() {
	close(c.stopCh)
	<-c.doneCh
	slog.Debug("cleaner stopped")
}
