package replicator

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/xia0pin9/rocksplicator/config"
	"github.com/xia0pin9/rocksplicator/internal/store"
)

func newHost(t *testing.T, port int, mutate ...func(*config.ReplicatorConfig)) *Replicator {
	t.Helper()
	cfg := testConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	for _, m := range mutate {
		m(cfg)
	}
	rep, err := New(cfg)
	if err != nil {
		t.Fatalf("starting replicator on port %d: %v", port, err)
	}
	t.Cleanup(rep.Close)
	return rep
}

func addr(port int) string {
	return fmt.Sprintf("127.0.0.1:%d", port)
}

func expectKeys(t *testing.T, s *store.MemStore, n int, keySuffix, valueSuffix string) {
	t.Helper()
	for i := 0; i < n; i++ {
		str := fmt.Sprintf("%d", i)
		v, ok := s.Get(str + keySuffix)
		if !ok || v != str+valueSuffix {
			t.Fatalf("key %q = %q (%v), want %q", str+keySuffix, v, ok, str+valueSuffix)
		}
	}
}

func TestBasics(t *testing.T) {
	rep := newHost(t, 19090)

	if err := rep.RemoveShard("non_exist_shard"); !errors.Is(err, ErrShardNotFound) {
		t.Fatalf("remove missing shard: %v", err)
	}
	if _, err := rep.Write("non_exist_shard", store.WriteOptions{}, putBatch("k", "v")); !errors.Is(err, ErrShardNotFound) {
		t.Fatalf("write missing shard: %v", err)
	}

	master := store.NewMemStore()
	slave := store.NewMemStore()
	if _, err := rep.AddShard("master", master, Leader, ""); err != nil {
		t.Fatalf("add master: %v", err)
	}
	if _, err := rep.AddShard("master", master, Leader, ""); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate add: %v", err)
	}
	if _, err := rep.AddShard("slave", slave, Follower, addr(19090)); err != nil {
		t.Fatalf("add slave: %v", err)
	}

	if _, err := rep.Write("slave", store.WriteOptions{}, putBatch("key", "value")); !errors.Is(err, ErrWriteToSlave) {
		t.Fatalf("write to slave: %v", err)
	}
	if _, err := rep.Write("master", store.WriteOptions{}, putBatch("key", "value")); err != nil {
		t.Fatalf("write to master: %v", err)
	}

	if err := rep.RemoveShard("slave"); err != nil {
		t.Fatalf("remove slave: %v", err)
	}
	if err := rep.RemoveShard("master"); err != nil {
		t.Fatalf("remove master: %v", err)
	}
	if err := rep.RemoveShard("master"); !errors.Is(err, ErrShardNotFound) {
		t.Fatalf("second remove: %v", err)
	}
	if _, err := rep.Write("master", store.WriteOptions{}, putBatch("key", "value")); !errors.Is(err, ErrShardNotFound) {
		t.Fatalf("write after remove: %v", err)
	}
}

func TestAddRemoveRepeatedly(t *testing.T) {
	rep := newHost(t, 19107)
	s := store.NewMemStore()
	for i := 0; i < 10; i++ {
		if _, err := rep.AddShard("shard1", s, Follower, addr(19107)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		if err := rep.RemoveShard("shard1"); err != nil {
			t.Fatalf("remove %d: %v", i, err)
		}
	}
	// After removal no background task touches the store.
	seq := s.LatestSeq()
	time.Sleep(300 * time.Millisecond)
	if s.LatestSeq() != seq {
		t.Fatalf("store advanced from %d to %d after removal", seq, s.LatestSeq())
	}
}

func TestOneMasterOneSlave(t *testing.T) {
	masterPort, slavePort := 19092, 19093
	master := newHost(t, masterPort)
	slave := newHost(t, slavePort)

	dbMaster := store.NewMemStore()
	dbSlave := store.NewMemStore()
	if _, err := master.AddShard("shard1", dbMaster, Leader, ""); err != nil {
		t.Fatalf("add master: %v", err)
	}
	if _, err := slave.AddShard("shard1", dbSlave, Follower, addr(masterPort)); err != nil {
		t.Fatalf("add slave: %v", err)
	}

	nKeys := 100
	for i := 0; i < nKeys; i++ {
		str := fmt.Sprintf("%d", i)
		seq, err := master.Write("shard1", store.WriteOptions{},
			putBatch(str+"key", str+"value", str+"key2", str+"value2"))
		if err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		if seq != uint64(i*2+2) {
			t.Fatalf("write %d returned seq %d, want %d", i, seq, i*2+2)
		}
	}
	if dbMaster.LatestSeq() != uint64(nKeys*2) {
		t.Fatalf("master seq %d, want %d", dbMaster.LatestSeq(), nKeys*2)
	}

	waitUntil(t, 10*time.Second, func() bool { return dbSlave.LatestSeq() == uint64(nKeys*2) })
	expectKeys(t, dbSlave, nKeys, "key", "value")
	expectKeys(t, dbSlave, nKeys, "key2", "value2")

	// Removing the master shard from replication halts propagation even
	// though the underlying store keeps taking writes.
	if err := master.RemoveShard("shard1"); err != nil {
		t.Fatalf("remove master shard: %v", err)
	}
	for i := 0; i < nKeys; i++ {
		str := fmt.Sprintf("%d", i)
		b := store.NewWriteBatch()
		b.Put(str+"new_key", str+"new_value")
		if _, err := dbMaster.Write(store.WriteOptions{}, b); err != nil {
			t.Fatalf("direct write %d: %v", i, err)
		}
	}
	time.Sleep(500 * time.Millisecond)
	if dbSlave.LatestSeq() != uint64(nKeys*2) {
		t.Fatalf("slave advanced to %d after master removal", dbSlave.LatestSeq())
	}
}

func TestOneMasterTwoSlavesTree(t *testing.T) {
	masterPort, slavePort1, slavePort2 := 19094, 19095, 19096
	master := newHost(t, masterPort)
	slave1 := newHost(t, slavePort1)
	slave2 := newHost(t, slavePort2)

	dbMaster := store.NewMemStore()
	dbSlave1 := store.NewMemStore()
	dbSlave2 := store.NewMemStore()
	if _, err := master.AddShard("shard1", dbMaster, Leader, ""); err != nil {
		t.Fatalf("add master: %v", err)
	}
	if _, err := slave1.AddShard("shard1", dbSlave1, Follower, addr(masterPort)); err != nil {
		t.Fatalf("add slave1: %v", err)
	}
	if _, err := slave2.AddShard("shard1", dbSlave2, Follower, addr(masterPort)); err != nil {
		t.Fatalf("add slave2: %v", err)
	}

	nKeys := 100
	for i := 0; i < nKeys; i++ {
		str := fmt.Sprintf("%d", i)
		if _, err := master.Write("shard1", store.WriteOptions{}, putBatch(str+"key", str+"value")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	waitUntil(t, 10*time.Second, func() bool {
		return dbSlave1.LatestSeq() == uint64(nKeys) && dbSlave2.LatestSeq() == uint64(nKeys)
	})
	expectKeys(t, dbSlave1, nKeys, "key", "value")
	expectKeys(t, dbSlave2, nKeys, "key", "value")
}

func TestOneMasterTwoSlavesChain(t *testing.T) {
	masterPort, slavePort1, slavePort2 := 19097, 19098, 19099
	master := newHost(t, masterPort)
	slave1 := newHost(t, slavePort1)
	slave2 := newHost(t, slavePort2)

	dbMaster := store.NewMemStore()
	dbSlave1 := store.NewMemStore()
	dbSlave2 := store.NewMemStore()
	if _, err := master.AddShard("shard1", dbMaster, Leader, ""); err != nil {
		t.Fatalf("add master: %v", err)
	}
	if _, err := slave1.AddShard("shard1", dbSlave1, Follower, addr(masterPort)); err != nil {
		t.Fatalf("add slave1: %v", err)
	}
	// slave2 pulls from slave1, not from the master.
	if _, err := slave2.AddShard("shard1", dbSlave2, Follower, addr(slavePort1)); err != nil {
		t.Fatalf("add slave2: %v", err)
	}

	nKeys := 100
	for i := 0; i < nKeys; i++ {
		str := fmt.Sprintf("%d", i)
		if _, err := master.Write("shard1", store.WriteOptions{}, putBatch(str+"key", str+"value")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	waitUntil(t, 10*time.Second, func() bool { return dbSlave2.LatestSeq() == uint64(nKeys) })
	if dbSlave1.LatestSeq() != uint64(nKeys) {
		t.Fatalf("slave1 seq %d, want %d", dbSlave1.LatestSeq(), nKeys)
	}
	expectKeys(t, dbSlave1, nKeys, "key", "value")
	expectKeys(t, dbSlave2, nKeys, "key", "value")

	// Remove the middle node and write more keys to the master.
	if err := slave1.RemoveShard("shard1"); err != nil {
		t.Fatalf("remove slave1: %v", err)
	}
	for i := 0; i < nKeys; i++ {
		str := fmt.Sprintf("%d", i)
		if _, err := master.Write("shard1", store.WriteOptions{}, putBatch(str+"new_key", str+"new_value")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	time.Sleep(500 * time.Millisecond)
	if dbSlave1.LatestSeq() != uint64(nKeys) || dbSlave2.LatestSeq() != uint64(nKeys) {
		t.Fatalf("slaves advanced without the middle node: %d/%d",
			dbSlave1.LatestSeq(), dbSlave2.LatestSeq())
	}

	// Add the middle node back; the whole chain catches up.
	if _, err := slave1.AddShard("shard1", dbSlave1, Follower, addr(masterPort)); err != nil {
		t.Fatalf("re-add slave1: %v", err)
	}
	waitUntil(t, 10*time.Second, func() bool { return dbSlave2.LatestSeq() == uint64(2*nKeys) })
	if dbSlave1.LatestSeq() != uint64(2*nKeys) {
		t.Fatalf("slave1 seq %d, want %d", dbSlave1.LatestSeq(), 2*nKeys)
	}
	expectKeys(t, dbSlave1, nKeys, "new_key", "new_value")
	expectKeys(t, dbSlave2, nKeys, "new_key", "new_value")
}

func TestFollowerUpstreamItselfTriggersReset(t *testing.T) {
	masterPort, slavePort := 19102, 19103
	resetCfg := func(cfg *config.ReplicatorConfig) {
		cfg.ResetUpstreamOnEmptyUpdates = true
		cfg.MaxConsecutiveNoUpdatesBeforeUpstreamReset = 1
	}
	master := newHost(t, masterPort, resetCfg)
	slave := newHost(t, slavePort, resetCfg)

	dbMaster := store.NewMemStore()
	dbSlave := store.NewMemStore()
	replMaster, err := master.AddShard("shard1", dbMaster, Leader, "")
	if err != nil {
		t.Fatalf("add master: %v", err)
	}
	// The follower points at itself, so it can never receive updates
	// unless an external controller rewires it.
	replSlave, err := slave.AddShard("shard1", dbSlave, Follower, addr(slavePort))
	if err != nil {
		t.Fatalf("add slave: %v", err)
	}

	for i := 0; i < 100; i++ {
		str := fmt.Sprintf("%d", i)
		if _, err := master.Write("shard1", store.WriteOptions{},
			putBatch(str+"key", str+"value", str+"key2", str+"value2")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	waitUntil(t, 10*time.Second, func() bool { return replSlave.ResetUpstreamAttempts() > 0 })
	if replMaster.ResetUpstreamAttempts() != 0 {
		t.Fatalf("leader requested %d upstream resets", replMaster.ResetUpstreamAttempts())
	}
	// The reset hook is a no-op here, so the follower stays empty.
	if dbSlave.LatestSeq() != 0 {
		t.Fatalf("self-pulling follower reached seq %d", dbSlave.LatestSeq())
	}
}

func TestTwoFollowersMutualUpstreamTriggersReset(t *testing.T) {
	masterPort, slavePort1, slavePort2 := 19104, 19105, 19106
	resetCfg := func(cfg *config.ReplicatorConfig) {
		cfg.ResetUpstreamOnEmptyUpdates = true
		cfg.MaxConsecutiveNoUpdatesBeforeUpstreamReset = 2
	}
	master := newHost(t, masterPort, resetCfg)
	slave1 := newHost(t, slavePort1, resetCfg)
	slave2 := newHost(t, slavePort2, resetCfg)

	dbMaster := store.NewMemStore()
	dbSlave1 := store.NewMemStore()
	dbSlave2 := store.NewMemStore()
	replMaster, err := master.AddShard("shard1", dbMaster, Leader, "")
	if err != nil {
		t.Fatalf("add master: %v", err)
	}
	replSlave1, err := slave1.AddShard("shard1", dbSlave1, Follower, addr(slavePort2))
	if err != nil {
		t.Fatalf("add slave1: %v", err)
	}
	replSlave2, err := slave2.AddShard("shard1", dbSlave2, Follower, addr(slavePort1))
	if err != nil {
		t.Fatalf("add slave2: %v", err)
	}

	for i := 0; i < 100; i++ {
		str := fmt.Sprintf("%d", i)
		if _, err := master.Write("shard1", store.WriteOptions{}, putBatch(str+"key", str+"value")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	waitUntil(t, 10*time.Second, func() bool {
		return replSlave1.ResetUpstreamAttempts() > 0 && replSlave2.ResetUpstreamAttempts() > 0
	})
	if replMaster.ResetUpstreamAttempts() != 0 {
		t.Fatalf("leader requested %d upstream resets", replMaster.ResetUpstreamAttempts())
	}
	if dbSlave1.LatestSeq() != 0 || dbSlave2.LatestSeq() != 0 {
		t.Fatalf("deadlocked followers received data: %d/%d",
			dbSlave1.LatestSeq(), dbSlave2.LatestSeq())
	}
}

func TestTwoAckTimeoutAndDegradation(t *testing.T) {
	masterPort, slavePort1, slavePort2 := 19112, 19113, 19114
	mode2 := func(cfg *config.ReplicatorConfig) {
		cfg.ReplicationMode = ModeSyncOneAck
		cfg.AckTimeoutMillis = 100
		cfg.AckTimeoutDegradedMillis = 5
		cfg.ConsecutiveAckTimeoutBeforeDegradation = 30
	}
	master := newHost(t, masterPort, mode2)
	slaveShard1 := newHost(t, slavePort1, mode2)
	slaveShard2 := newHost(t, slavePort2, mode2)

	dbMasterShard1 := store.NewMemStore()
	dbMasterShard2 := store.NewMemStore()
	dbSlaveShard1 := store.NewMemStore()
	dbSlaveShard2 := store.NewMemStore()

	replShard1, err := master.AddShard("shard1", dbMasterShard1, Leader, "")
	if err != nil {
		t.Fatalf("add shard1 leader: %v", err)
	}
	replShard2, err := master.AddShard("shard2", dbMasterShard2, Leader, "")
	if err != nil {
		t.Fatalf("add shard2 leader: %v", err)
	}
	if _, err := slaveShard1.AddShard("shard1", dbSlaveShard1, Follower, addr(masterPort)); err != nil {
		t.Fatalf("add shard1 follower: %v", err)
	}
	if _, err := slaveShard2.AddShard("shard2", dbSlaveShard2, Follower, addr(masterPort)); err != nil {
		t.Fatalf("add shard2 follower: %v", err)
	}

	nKeys := 10
	for i := 0; i < nKeys; i++ {
		str := fmt.Sprintf("%d", i)
		if _, err := master.Write("shard1", store.WriteOptions{},
			putBatch(str+"key", str+"value", str+"key2", str+"value2")); err != nil {
			t.Fatalf("shard1 write %d: %v", i, err)
		}
		if _, err := master.Write("shard2", store.WriteOptions{},
			putBatch(str+"key", str+"value", str+"key2", str+"value2")); err != nil {
			t.Fatalf("shard2 write %d: %v", i, err)
		}
	}
	waitUntil(t, 5*time.Second, func() bool { return dbSlaveShard1.LatestSeq() == uint64(nKeys*2) })
	waitUntil(t, 5*time.Second, func() bool { return dbSlaveShard2.LatestSeq() == uint64(nKeys*2) })

	// With the shard1 follower gone, mode-2 writes keep applying locally
	// but fail with a timeout; the ack wait stays at the normal value
	// until the degradation threshold.
	if err := slaveShard1.RemoveShard("shard1"); err != nil {
		t.Fatalf("remove shard1 follower: %v", err)
	}
	for i := 0; i < nKeys; i++ {
		str := fmt.Sprintf("%d", i)
		_, err := master.Write("shard1", store.WriteOptions{}, putBatch(str+"new_key", str+"new_value"))
		if !errors.Is(err, ErrTimedOut) {
			t.Fatalf("write %d without follower: %v, want ErrTimedOut", i, err)
		}
		if got := dbMasterShard1.LatestSeq(); got != uint64(i+1+nKeys*2) {
			t.Fatalf("leader seq %d after timed-out write, want %d", got, i+1+nKeys*2)
		}
	}
	if dbSlaveShard1.LatestSeq() != uint64(nKeys*2) {
		t.Fatalf("removed follower advanced to %d", dbSlaveShard1.LatestSeq())
	}
	if got := replShard1.CurrentAckTimeoutMillis(); got != 100 {
		t.Fatalf("shard1 ack wait %d before threshold, want 100", got)
	}

	// Cross the degradation threshold.
	for i := 0; i < 30; i++ {
		str := fmt.Sprintf("%d", i)
		_, err := master.Write("shard1", store.WriteOptions{}, putBatch(str+"new_key", str+"new_value"))
		if !errors.Is(err, ErrTimedOut) {
			t.Fatalf("degrading write %d: %v, want ErrTimedOut", i, err)
		}
	}
	if got := replShard1.CurrentAckTimeoutMillis(); got != 5 {
		t.Fatalf("shard1 ack wait %d after threshold, want 5", got)
	}

	// shard2 is not impacted.
	if _, err := master.Write("shard2", store.WriteOptions{}, putBatch("new_key", "new_value")); err != nil {
		t.Fatalf("shard2 write: %v", err)
	}
	if got := replShard2.CurrentAckTimeoutMillis(); got != 100 {
		t.Fatalf("shard2 ack wait %d, want 100", got)
	}

	// Back to normal once the follower re-appears and a write succeeds.
	if _, err := slaveShard1.AddShard("shard1", dbSlaveShard1, Follower, addr(masterPort)); err != nil {
		t.Fatalf("re-add shard1 follower: %v", err)
	}
	waitUntil(t, 5*time.Second, func() bool { return dbSlaveShard1.LatestSeq() == dbMasterShard1.LatestSeq() })
	// The degraded 5ms wait is tight; retry until an ack lands in time.
	waitUntil(t, 5*time.Second, func() bool {
		_, err := master.Write("shard1", store.WriteOptions{}, putBatch("new_key", "new_value"))
		return err == nil
	})
	if got := replShard1.CurrentAckTimeoutMillis(); got != 100 {
		t.Fatalf("shard1 ack wait %d after recovery, want 100", got)
	}
}

func TestObserverAckDoesNotCount(t *testing.T) {
	masterPort, slavePort, observerPort := 19115, 19116, 19117
	mode2 := func(cfg *config.ReplicatorConfig) {
		cfg.ReplicationMode = ModeSyncOneAck
		cfg.AckTimeoutMillis = 100
		cfg.ConsecutiveAckTimeoutBeforeDegradation = 1000
	}
	master := newHost(t, masterPort, mode2)
	slave := newHost(t, slavePort, mode2)
	observer := newHost(t, observerPort, mode2)

	dbMaster := store.NewMemStore()
	dbSlave := store.NewMemStore()
	dbObserver := store.NewMemStore()
	if _, err := master.AddShard("shard", dbMaster, Leader, ""); err != nil {
		t.Fatalf("add master: %v", err)
	}
	if _, err := slave.AddShard("shard", dbSlave, Follower, addr(masterPort)); err != nil {
		t.Fatalf("add slave: %v", err)
	}
	if _, err := observer.AddShard("shard", dbObserver, Observer, addr(masterPort)); err != nil {
		t.Fatalf("add observer: %v", err)
	}

	nKeys := 10
	for i := 0; i < nKeys; i++ {
		str := fmt.Sprintf("%d", i)
		if _, err := master.Write("shard", store.WriteOptions{},
			putBatch(str+"key", str+"value", str+"key2", str+"value2")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	waitUntil(t, 5*time.Second, func() bool { return dbSlave.LatestSeq() == uint64(nKeys*2) })
	waitUntil(t, 5*time.Second, func() bool { return dbObserver.LatestSeq() == uint64(nKeys*2) })

	// Removing the observer does not affect mode-2 writes.
	if err := observer.RemoveShard("shard"); err != nil {
		t.Fatalf("remove observer: %v", err)
	}
	for i := 0; i < nKeys; i++ {
		str := fmt.Sprintf("%d", i)
		if _, err := master.Write("shard", store.WriteOptions{}, putBatch(str+"new_key", str+"new_value")); err != nil {
			t.Fatalf("write %d without observer: %v", i, err)
		}
	}

	// Without the follower, writes time out even though nothing else
	// changed.
	if err := slave.RemoveShard("shard"); err != nil {
		t.Fatalf("remove slave: %v", err)
	}
	for i := 0; i < nKeys; i++ {
		str := fmt.Sprintf("%d", i)
		if _, err := master.Write("shard", store.WriteOptions{}, putBatch(str+"new_key", str+"new_value")); !errors.Is(err, ErrTimedOut) {
			t.Fatalf("write %d without follower: %v, want ErrTimedOut", i, err)
		}
	}

	// An observer catching up does not unblock writes.
	if _, err := observer.AddShard("shard", dbObserver, Observer, addr(masterPort)); err != nil {
		t.Fatalf("re-add observer: %v", err)
	}
	waitUntil(t, 5*time.Second, func() bool { return dbObserver.LatestSeq() == dbMaster.LatestSeq() })
	if _, err := master.Write("shard", store.WriteOptions{}, putBatch("new_key", "new_value")); !errors.Is(err, ErrTimedOut) {
		t.Fatalf("write with observer only: %v, want ErrTimedOut", err)
	}

	// The follower coming back does.
	if _, err := slave.AddShard("shard", dbSlave, Follower, addr(masterPort)); err != nil {
		t.Fatalf("re-add slave: %v", err)
	}
	waitUntil(t, 5*time.Second, func() bool { return dbSlave.LatestSeq() == dbMaster.LatestSeq() })
	if _, err := master.Write("shard", store.WriteOptions{}, putBatch("new_key", "new_value")); err != nil {
		t.Fatalf("write with follower back: %v", err)
	}
}

func TestStress(t *testing.T) {
	if testing.Short() {
		t.Skip("stress run")
	}
	ports := []int{19081, 19082, 19083}
	hosts := []*Replicator{
		newHost(t, ports[0]),
		newHost(t, ports[1]),
		newHost(t, ports[2]),
	}

	nShards := 20
	nKeys := 100

	var dbMasters, dbSlaves1, dbSlaves2 []*store.MemStore
	for i := 0; i < nShards; i++ {
		dbMasters = append(dbMasters, store.NewMemStore())
		dbSlaves1 = append(dbSlaves1, store.NewMemStore())
		dbSlaves2 = append(dbSlaves2, store.NewMemStore())
	}

	for i := 0; i < nShards; i++ {
		shard := fmt.Sprintf("shard%d", i)
		start := i % len(hosts)
		if _, err := hosts[start].AddShard(shard, dbMasters[i], Leader, ""); err != nil {
			t.Fatalf("add leader %s: %v", shard, err)
		}
		if _, err := hosts[(start+1)%len(hosts)].AddShard(shard, dbSlaves1[i], Follower, addr(ports[start])); err != nil {
			t.Fatalf("add follower1 %s: %v", shard, err)
		}
		if _, err := hosts[(start+2)%len(hosts)].AddShard(shard, dbSlaves2[i], Follower, addr(ports[start])); err != nil {
			t.Fatalf("add follower2 %s: %v", shard, err)
		}
	}

	for i := 0; i < nKeys; i++ {
		for j := 0; j < nShards; j++ {
			str := fmt.Sprintf("%d", i)
			shard := fmt.Sprintf("shard%d", j)
			// Exactly one host leads each shard; the others refuse.
			for _, h := range hosts {
				if _, err := h.Write(shard, store.WriteOptions{}, putBatch(str+"key", str+"value")); err != nil && !errors.Is(err, ErrWriteToSlave) {
					t.Fatalf("write %s/%d: %v", shard, i, err)
				}
			}
		}
	}

	for i := 0; i < nShards; i++ {
		if dbMasters[i].LatestSeq() != uint64(nKeys) {
			t.Fatalf("master %d seq %d, want %d", i, dbMasters[i].LatestSeq(), nKeys)
		}
		s1, s2 := dbSlaves1[i], dbSlaves2[i]
		waitUntil(t, 30*time.Second, func() bool {
			return s1.LatestSeq() == uint64(nKeys) && s2.LatestSeq() == uint64(nKeys)
		})
		expectKeys(t, dbMasters[i], nKeys, "key", "value")
		expectKeys(t, s1, nKeys, "key", "value")
		expectKeys(t, s2, nKeys, "key", "value")
	}
}
