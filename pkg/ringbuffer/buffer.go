// Package ringbuffer provides a fixed-capacity circular byte buffer.
package ringbuffer

import (
	"bytes"
	"errors"
)

var (
	// ErrOutOfSpace is returned by Insert when the data does not fit.
	ErrOutOfSpace = errors.New("not enough space in this ring buffer")

	// ErrUnderflow is returned by Discard when asked to drop more bytes than are stored.
	ErrUnderflow = errors.New("not enough bytes in this ring buffer")

	// ErrInvalidCapacity is returned by New for a non-positive capacity.
	ErrInvalidCapacity = errors.New("ring buffer capacity must be positive")
)

// Buffer is a FIFO of bytes backed by storage allocated once at construction.
// It never grows and never overwrites unconsumed data.
//
// Buffer is not safe for concurrent use.
type Buffer struct {
	data []byte

	// begin is the index of the first stored byte. Meaningless when size is 0.
	begin int
	size  int
}

// New returns an empty Buffer holding at most capacity bytes.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Buffer{data: make([]byte, capacity)}, nil
}

// Size returns the number of bytes stored.
func (b *Buffer) Size() int {
	return b.size
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Free returns the number of bytes that can still be inserted.
func (b *Buffer) Free() int {
	return len(b.data) - b.size
}

// end is the index of the first free byte.
func (b *Buffer) end() int {
	return (b.begin + b.size) % len(b.data)
}

// Insert appends p to the buffer.
// Returns ErrOutOfSpace, without writing anything, if p does not fit.
// Inserting nothing always succeeds.
func (b *Buffer) Insert(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if len(p) > b.Free() {
		return ErrOutOfSpace
	}

	end := b.end()
	n := copy(b.data[end:], p)
	copy(b.data, p[n:])
	b.size += len(p)

	return nil
}

// segments returns the stored bytes as at most two slices of the backing storage
// (head then tail). The slices alias internal storage and must not be retained.
func (b *Buffer) segments() (head, tail []byte) {
	if b.size == 0 {
		return nil, nil
	}
	if b.begin+b.size <= len(b.data) {
		return b.data[b.begin : b.begin+b.size], nil
	}
	return b.data[b.begin:], b.data[:b.end()]
}

// Peek returns a copy of everything stored, oldest byte first.
func (b *Buffer) Peek() []byte {
	return b.PeekN(b.size)
}

// PeekN returns a copy of the first n stored bytes, or of everything stored if
// fewer than n bytes are available.
func (b *Buffer) PeekN(n int) []byte {
	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return []byte{}
	}

	out := make([]byte, n)
	head, tail := b.segments()
	copied := copy(out, head)
	copy(out[copied:], tail)
	return out
}

// IndexByte returns the logical offset of the first c, or -1 if c is not stored.
func (b *Buffer) IndexByte(c byte) int {
	return b.IndexByteFrom(c, 0)
}

// IndexByteFrom is like IndexByte but ignores the first from stored bytes.
// The returned offset is still relative to the oldest stored byte.
func (b *Buffer) IndexByteFrom(c byte, from int) int {
	if from < 0 {
		from = 0
	}
	if from >= b.size {
		return -1
	}

	head, tail := b.segments()
	if from < len(head) {
		if i := bytes.IndexByte(head[from:], c); i >= 0 {
			return from + i
		}
		from = len(head)
	}
	if i := bytes.IndexByte(tail[from-len(head):], c); i >= 0 {
		return from + i
	}
	return -1
}

// Discard drops the first k stored bytes.
// Returns ErrUnderflow, without changing anything, if k is negative or larger than Size.
// Emptying the buffer moves the window back to the start of storage.
func (b *Buffer) Discard(k int) error {
	if k < 0 || k > b.size {
		return ErrUnderflow
	}

	b.size -= k
	if b.size == 0 {
		b.begin = 0
		return nil
	}
	b.begin = (b.begin + k) % len(b.data)

	return nil
}
