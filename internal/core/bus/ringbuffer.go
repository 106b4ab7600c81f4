// If you are AI: This file implements the bounded per-subscriber message queue.
// Producers never block: overflow is resolved by the backpressure strategy.
// The consumer waits on Notify instead of polling.

package bus

import (
	"sync"
)

// BackpressureStrategy defines how the ring buffer handles overflow.
type BackpressureStrategy uint8

const (
	// BackpressureDropOldest drops the oldest message when buffer is full.
	BackpressureDropOldest BackpressureStrategy = iota
	// BackpressureDropNewest drops the newest message when buffer is full.
	BackpressureDropNewest
)

// RingBuffer is a bounded circular buffer for MediaMessage delivery.
// writePos and readPos run freely; only the mask maps them into the slot array.
type RingBuffer struct {
	mu       sync.Mutex
	buffer   []*MediaMessage
	size     uint32 // power of 2
	mask     uint32
	writePos uint32
	readPos  uint32
	strategy BackpressureStrategy
	dropped  uint64
	notify   chan struct{}
}

// NewRingBuffer creates a new ring buffer with the specified capacity.
// Capacity is rounded up to a power of 2.
func NewRingBuffer(capacity uint32, strategy BackpressureStrategy) *RingBuffer {
	actualSize := uint32(1)
	for actualSize < capacity {
		actualSize <<= 1
	}

	return &RingBuffer{
		buffer:   make([]*MediaMessage, actualSize),
		size:     actualSize,
		mask:     actualSize - 1,
		strategy: strategy,
		notify:   make(chan struct{}, 1),
	}
}

// Write appends a message. It returns false when the message itself was dropped.
// Sequence headers, metadata and end-of-stream are pinned: overflow evicts the oldest
// unpinned entry instead, and a pinned message is never the one refused.
func (rb *RingBuffer) Write(msg *MediaMessage) bool {
	if msg == nil {
		return false
	}

	rb.mu.Lock()
	if rb.writePos-rb.readPos >= rb.size {
		rb.dropped++
		if rb.strategy == BackpressureDropNewest && !msg.pinned() {
			rb.mu.Unlock()
			return false
		}
		rb.evictLocked()
	}
	rb.buffer[rb.writePos&rb.mask] = msg
	rb.writePos++
	rb.mu.Unlock()

	select {
	case rb.notify <- struct{}{}:
	default:
	}
	return true
}

// evictLocked frees one slot by removing the oldest unpinned message.
// Older pinned messages move up one slot so queue order is kept.
// When every queued message is pinned the oldest one goes.
func (rb *RingBuffer) evictLocked() {
	victim := rb.readPos
	for pos := rb.readPos; pos != rb.writePos; pos++ {
		if !rb.buffer[pos&rb.mask].pinned() {
			victim = pos
			break
		}
	}
	for pos := victim; pos != rb.readPos; pos-- {
		rb.buffer[pos&rb.mask] = rb.buffer[(pos-1)&rb.mask]
	}
	rb.buffer[rb.readPos&rb.mask] = nil
	rb.readPos++
}

// Read pops the oldest message, or returns false if the buffer is empty.
func (rb *RingBuffer) Read() (*MediaMessage, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.readPos == rb.writePos {
		return nil, false
	}
	slot := rb.readPos & rb.mask
	msg := rb.buffer[slot]
	rb.buffer[slot] = nil
	rb.readPos++
	return msg, true
}

// Notify is signalled after writes. A single signal may cover several messages.
func (rb *RingBuffer) Notify() <-chan struct{} {
	return rb.notify
}

// Dropped returns the number of messages dropped due to backpressure.
func (rb *RingBuffer) Dropped() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.dropped
}

// Len returns the number of queued messages.
func (rb *RingBuffer) Len() uint32 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.writePos - rb.readPos
}

// Available returns the number of free slots in the buffer.
func (rb *RingBuffer) Available() uint32 {
	return rb.size - rb.Len()
}
