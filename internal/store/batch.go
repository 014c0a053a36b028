package store

import (
	"encoding/binary"
	"fmt"
)

const (
	opPut    byte = 1
	opDelete byte = 2
)

// Op is one operation inside a write batch.
type Op struct {
	Kind  byte
	Key   []byte
	Value []byte
}

// WriteBatch is an ordered collection of operations applied atomically.
// Each operation consumes one sequence number on application.
type WriteBatch struct {
	ops []Op
}

func NewWriteBatch() *WriteBatch {
	return &WriteBatch{}
}

func (b *WriteBatch) Put(key, value string) {
	b.ops = append(b.ops, Op{Kind: opPut, Key: []byte(key), Value: []byte(value)})
}

func (b *WriteBatch) Delete(key string) {
	b.ops = append(b.ops, Op{Kind: opDelete, Key: []byte(key)})
}

// Count returns the number of operations, and therefore the number of
// sequence numbers the batch consumes.
func (b *WriteBatch) Count() int {
	return len(b.ops)
}

func (b *WriteBatch) Ops() []Op {
	return b.ops
}

// Encode serializes the batch into a payload DecodeBatch can reproduce.
func (b *WriteBatch) Encode() []byte {
	var buf []byte
	buf = binary.AppendUvarint(buf, uint64(len(b.ops)))
	for _, op := range b.ops {
		buf = append(buf, op.Kind)
		buf = binary.AppendUvarint(buf, uint64(len(op.Key)))
		buf = append(buf, op.Key...)
		if op.Kind == opPut {
			buf = binary.AppendUvarint(buf, uint64(len(op.Value)))
			buf = append(buf, op.Value...)
		}
	}
	return buf
}

// EncodeOp serializes a single operation as a one-op batch payload. The
// update log keeps one payload per sequence number in this form.
func EncodeOp(op Op) []byte {
	b := WriteBatch{ops: []Op{op}}
	return b.Encode()
}

// DecodeBatch parses a payload produced by Encode. It is used to apply
// batches received from an upstream replica verbatim.
func DecodeBatch(payload []byte) (*WriteBatch, error) {
	n, read := binary.Uvarint(payload)
	if read <= 0 {
		return nil, ErrCorruptPayload
	}
	rest := payload[read:]
	batch := NewWriteBatch()
	for i := uint64(0); i < n; i++ {
		if len(rest) == 0 {
			return nil, fmt.Errorf("%w: truncated at op %d", ErrCorruptPayload, i)
		}
		kind := rest[0]
		rest = rest[1:]
		key, remaining, err := readBytes(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: bad key in op %d", ErrCorruptPayload, i)
		}
		rest = remaining
		op := Op{Kind: kind, Key: key}
		switch kind {
		case opPut:
			value, remaining, err := readBytes(rest)
			if err != nil {
				return nil, fmt.Errorf("%w: bad value in op %d", ErrCorruptPayload, i)
			}
			rest = remaining
			op.Value = value
		case opDelete:
		default:
			return nil, fmt.Errorf("%w: unknown op kind %d", ErrCorruptPayload, kind)
		}
		batch.ops = append(batch.ops, op)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptPayload, len(rest))
	}
	return batch, nil
}

func readBytes(buf []byte) ([]byte, []byte, error) {
	n, read := binary.Uvarint(buf)
	if read <= 0 || uint64(len(buf)-read) < n {
		return nil, nil, ErrCorruptPayload
	}
	return buf[read : read+int(n)], buf[read+int(n):], nil
}
