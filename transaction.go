package modbus

import "sync/atomic"

// TIDAllocator issues Modbus transaction identifiers. Values increase
// monotonically and wrap modulo the 16-bit identifier field, so after
// 0xFFFF the next identifier is 0. The counter starts at zero and
// increments before returning, so the first identifier issued is 1.
//
// Identifiers are unique among requests outstanding on one connection at
// realistic concurrency levels; the allocator makes no attempt to detect
// collisions across connections sharing it.
//
// Safe for concurrent use. Next never blocks and never fails.
type TIDAllocator struct {
	counter atomic.Uint32
}

// NewTIDAllocator creates an allocator whose first identifier is 1.
func NewTIDAllocator() *TIDAllocator {
	return &TIDAllocator{}
}

// Next returns the next transaction identifier.
func (a *TIDAllocator) Next() uint16 {
	// 2^32 is a multiple of 2^16, so truncation preserves the modular
	// sequence across counter wraparound.
	return uint16(a.counter.Add(1))
}

// defaultAllocator is shared by all clients that don't inject their own,
// matching the process-wide counter of classic Modbus client stacks.
var defaultAllocator = NewTIDAllocator()
