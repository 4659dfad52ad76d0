package vm

import "github.com/holiman/uint256"

// MemoryLimit is the hard cap on the byte size of a frame's memory. It is
// the largest multiple of 32 whose expansion cost still fits in a uint64.
const MemoryLimit = 0x1FFFFFFE0

// Memory is a frame's linear byte memory. It grows only forward, in whole
// 32-byte words, and never shrinks within the frame's lifetime. Expansion is
// charged by the dispatch loop before the owning instruction runs, so the
// accessors below assume the required size has already been established.
type Memory struct {
	store       []byte
	lastGasCost uint64
}

// NewMemory returns an empty memory instance.
func NewMemory() *Memory {
	return &Memory{}
}

// Resize grows the memory to size bytes. Growth requests below the current
// size are ignored; memory never shrinks.
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) < size {
		m.store = append(m.store, make([]byte, size-uint64(len(m.store)))...)
	}
}

// Set copies value into memory at [offset, offset+size). The region must lie
// within the current size.
func (m *Memory) Set(offset, size uint64, value []byte) {
	if size == 0 {
		return
	}
	if offset+size > uint64(len(m.store)) {
		panic("invalid memory: store empty")
	}
	copy(m.store[offset:offset+size], value)
}

// Set32 writes val as a left-padded 32-byte big-endian word at offset.
func (m *Memory) Set32(offset uint64, val *uint256.Int) {
	if offset+32 > uint64(len(m.store)) {
		panic("invalid memory: store empty")
	}
	val.PutUint256(m.store[offset : offset+32])
}

// GetCopy returns a fresh copy of memory[offset : offset+size]. Bytes past
// the current size read as zero.
func (m *Memory) GetCopy(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	cpy := make([]byte, size)
	if offset < uint64(len(m.store)) {
		copy(cpy, m.store[offset:])
	}
	return cpy
}

// GetPtr returns a direct slice of memory[offset : offset+size]. The region
// must lie within the current size; callers must not retain it across
// further memory growth.
func (m *Memory) GetPtr(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// Copy moves size bytes from src to dst within memory, handling overlap.
func (m *Memory) Copy(dst, src, size uint64) {
	if size == 0 {
		return
	}
	copy(m.store[dst:dst+size], m.store[src:src+size])
}

// Len returns the current memory size in bytes, always a multiple of 32.
func (m *Memory) Len() int {
	return len(m.store)
}

// Data returns the full backing store.
func (m *Memory) Data() []byte {
	return m.store
}
