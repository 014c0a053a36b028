package store

import (
	"sync"
)

// MemStore is an in-memory engine with RocksDB-like sequencing: every
// operation in a batch consumes one sequence number, and the update log
// keeps one single-op payload per sequence so replicas can replay any
// contiguous range.
type MemStore struct {
	mu  sync.RWMutex
	kv  map[string][]byte
	log []Update // log[i].Seq == uint64(i)+1, dense from 1
	seq uint64
}

func NewMemStore() *MemStore {
	return &MemStore{kv: make(map[string][]byte)}
}

func (s *MemStore) LatestSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

func (s *MemStore) Write(opts WriteOptions, batch *WriteBatch) (uint64, error) {
	if batch == nil || batch.Count() == 0 {
		return s.LatestSeq(), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range batch.Ops() {
		switch op.Kind {
		case opPut:
			s.kv[string(op.Key)] = append([]byte(nil), op.Value...)
		case opDelete:
			delete(s.kv, string(op.Key))
		default:
			return s.seq, ErrCorruptPayload
		}
		s.seq++
		s.log = append(s.log, Update{Seq: s.seq, Payload: EncodeOp(op)})
	}
	return s.seq, nil
}

func (s *MemStore) UpdatesSince(seq uint64) (Iterator, error) {
	return &memIterator{store: s, next: seq + 1}, nil
}

// Get returns the value for key, ok=false if absent.
func (s *MemStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.kv[key]
	return string(v), ok
}

// memIterator reads the dense log positionally. It tolerates writes that
// land after it was opened; the replicator bounds each read itself.
type memIterator struct {
	store *MemStore
	next  uint64
}

func (it *memIterator) Next() (Update, bool) {
	it.store.mu.RLock()
	defer it.store.mu.RUnlock()
	if it.next == 0 || it.next > it.store.seq {
		return Update{}, false
	}
	u := it.store.log[it.next-1]
	it.next++
	return u, true
}

func (it *memIterator) Close() {}
