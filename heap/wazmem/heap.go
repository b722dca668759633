package wazmem

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/heap"
)

const (
	pageSize = 65536

	// DefaultBase leaves the first bytes of the memory untouched.
	DefaultBase = 16
)

// Heap adapts a wazero api.Memory to typedmem.Heap.
type Heap struct {
	Mem  api.Memory
	list *heap.FreeList
}

// Option configures a Heap.
type Option func(*config)

type config struct {
	base      uint32
	failAfter int
}

// WithBase sets the lowest address handed out by Alloc.
func WithBase(base uint32) Option {
	return func(c *config) { c.base = base }
}

// WithFailAfter refuses every allocation after the first n.
func WithFailAfter(n int) Option {
	return func(c *config) { c.failAfter = n }
}

// New wraps mem. It returns nil for a nil memory.
func New(mem api.Memory, opts ...Option) *Heap {
	if mem == nil {
		return nil
	}
	cfg := config{base: DefaultBase, failAfter: -1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.base == 0 {
		cfg.base = DefaultBase
	}

	h := &Heap{Mem: mem}
	h.list = heap.NewFreeList(cfg.base, mem.Size(), h.grow)
	h.list.FailAfter(cfg.failAfter)
	return h
}

func (h *Heap) grow(need uint32) (uint32, error) {
	size := h.Mem.Size()
	if need <= size {
		return size, nil
	}
	missing := uint64(need) - uint64(size)
	pages := uint32((missing + pageSize - 1) / pageSize)
	if _, ok := h.Mem.Grow(pages); !ok {
		return 0, errors.New(errors.PhaseAlloc, errors.KindOutOfMemory).
			Detail("linear memory cannot grow by %d pages", pages).
			Build()
	}
	return h.Mem.Size(), nil
}

// Alloc implements typedmem.Allocator. Blocks are zeroed.
func (h *Heap) Alloc(size, align uint32) (uint32, error) {
	ptr, reused, err := h.list.Alloc(size, align)
	if err != nil {
		return 0, err
	}
	if reused {
		if err := heap.Zero(h, ptr, max(size, 1)); err != nil {
			return 0, err
		}
	}
	return ptr, nil
}

// Free implements typedmem.Allocator.
func (h *Heap) Free(ptr, size, align uint32) {
	h.list.Free(ptr, size, align)
}

// Stats returns the allocation counters.
func (h *Heap) Stats() heap.Stats {
	return h.list.Stats()
}

// Size implements typedmem.MemorySizer.
func (h *Heap) Size() uint32 {
	return h.Mem.Size()
}

// Read reads bytes from memory.
func (h *Heap) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := h.Mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseMemory, offset, length, h.Mem.Size())
	}
	return data, nil
}

// Write writes bytes to memory.
func (h *Heap) Write(offset uint32, data []byte) error {
	if !h.Mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, uint32(len(data)), h.Mem.Size())
	}
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (h *Heap) ReadU8(offset uint32) (uint8, error) {
	v, ok := h.Mem.ReadByte(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, offset, 1, h.Mem.Size())
	}
	return v, nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (h *Heap) ReadU16(offset uint32) (uint16, error) {
	v, ok := h.Mem.ReadUint16Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, offset, 2, h.Mem.Size())
	}
	return v, nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (h *Heap) ReadU32(offset uint32) (uint32, error) {
	v, ok := h.Mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, offset, 4, h.Mem.Size())
	}
	return v, nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (h *Heap) ReadU64(offset uint32) (uint64, error) {
	v, ok := h.Mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, offset, 8, h.Mem.Size())
	}
	return v, nil
}

// WriteU8 writes an unsigned 8-bit value.
func (h *Heap) WriteU8(offset uint32, value uint8) error {
	if !h.Mem.WriteByte(offset, value) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, 1, h.Mem.Size())
	}
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (h *Heap) WriteU16(offset uint32, value uint16) error {
	if !h.Mem.WriteUint16Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, 2, h.Mem.Size())
	}
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (h *Heap) WriteU32(offset uint32, value uint32) error {
	if !h.Mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, 4, h.Mem.Size())
	}
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (h *Heap) WriteU64(offset uint32, value uint64) error {
	if !h.Mem.WriteUint64Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, 8, h.Mem.Size())
	}
	return nil
}
