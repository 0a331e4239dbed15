// Package admission bounds how many operations may run at once.
//
// Unlike a queue, the pool never makes a caller wait: an attempt either takes a
// slot immediately or is rejected, so the caller can answer "retry later".
package admission

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/avatarctic/checkout-system/internal/core/ports"
)

// DefaultCapacity is the number of checkouts allowed in flight.
const DefaultCapacity = 3

// SlotPool is a counting semaphore with non-blocking acquisition.
type SlotPool struct {
	sem      *semaphore.Weighted
	capacity int
	inUse    atomic.Int64
}

// NewSlotPool creates a pool with `capacity` slots (DefaultCapacity if <= 0).
func NewSlotPool(capacity int) *SlotPool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &SlotPool{sem: semaphore.NewWeighted(int64(capacity)), capacity: capacity}
}

// TryAcquire takes a slot without waiting. The release func is idempotent.
func (p *SlotPool) TryAcquire() (func(), bool) {
	if !p.sem.TryAcquire(1) {
		return nil, false
	}
	p.inUse.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			p.inUse.Add(-1)
			p.sem.Release(1)
		})
	}, true
}

func (p *SlotPool) Capacity() int { return p.capacity }

func (p *SlotPool) InUse() int { return int(p.inUse.Load()) }

var _ ports.SlotPool = (*SlotPool)(nil)
