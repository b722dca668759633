package heap

import (
	"encoding/binary"

	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/internal/abi"
)

const (
	// reservedLow keeps the first bytes unaddressable so 0 stays null.
	reservedLow = 16

	defaultInitialSize = 4096
	defaultMaxSize     = abi.MaxAlloc
)

// Arena is a Heap backed by a growable Go byte slice. Allocations are
// zeroed. Not safe for concurrent use.
type Arena struct {
	list *FreeList
	data []byte
	max  uint32
}

// Option configures an Arena.
type Option func(*arenaConfig)

type arenaConfig struct {
	initial   uint32
	max       uint32
	failAfter int
}

// WithInitialSize sets the starting backing size.
func WithInitialSize(n uint32) Option {
	return func(c *arenaConfig) { c.initial = n }
}

// WithMaxSize caps the backing size; allocations beyond it fail with
// out_of_memory.
func WithMaxSize(n uint32) Option {
	return func(c *arenaConfig) { c.max = n }
}

// WithFailAfter refuses every allocation after the first n.
func WithFailAfter(n int) Option {
	return func(c *arenaConfig) { c.failAfter = n }
}

func NewArena(opts ...Option) *Arena {
	cfg := arenaConfig{
		initial:   defaultInitialSize,
		max:       defaultMaxSize,
		failAfter: -1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.initial < reservedLow {
		cfg.initial = reservedLow
	}
	if cfg.max < cfg.initial {
		cfg.max = cfg.initial
	}

	a := &Arena{
		data: make([]byte, cfg.initial),
		max:  cfg.max,
	}
	a.list = NewFreeList(reservedLow, cfg.initial, a.grow)
	a.list.FailAfter(cfg.failAfter)
	return a
}

func (a *Arena) grow(need uint32) (uint32, error) {
	if need > a.max {
		return 0, errors.New(errors.PhaseAlloc, errors.KindOutOfMemory).
			Detail("arena limit %d bytes, need %d", a.max, need).
			Build()
	}
	size := uint64(len(a.data)) * 2
	if size < uint64(need) {
		size = uint64(need)
	}
	if size > uint64(a.max) {
		size = uint64(a.max)
	}
	a.data = append(a.data, make([]byte, int(size)-len(a.data))...)
	return uint32(size), nil
}

// Alloc implements typedmem.Allocator.
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	ptr, reused, err := a.list.Alloc(size, align)
	if err != nil {
		return 0, err
	}
	if reused {
		n := size
		if n == 0 {
			n = 1
		}
		clear(a.data[ptr : ptr+n])
	}
	return ptr, nil
}

// Free implements typedmem.Allocator.
func (a *Arena) Free(ptr, size, align uint32) {
	a.list.Free(ptr, size, align)
}

// FailAfter refuses every allocation after the next n; n < 0 disables.
func (a *Arena) FailAfter(n int) {
	if n >= 0 {
		n += int(a.list.Stats().Allocs)
	}
	a.list.FailAfter(n)
}

// Stats returns the allocation counters.
func (a *Arena) Stats() Stats {
	return a.list.Stats()
}

// SizeOf reports the size of a live allocation.
func (a *Arena) SizeOf(ptr uint32) (uint32, bool) {
	return a.list.SizeOf(ptr)
}

// Size implements typedmem.MemorySizer.
func (a *Arena) Size() uint32 {
	return uint32(len(a.data))
}

func (a *Arena) span(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if offset < reservedLow || end > uint64(len(a.data)) {
		return nil, errors.OutOfBounds(errors.PhaseMemory, offset, length, uint32(len(a.data)))
	}
	return a.data[offset:end:end], nil
}

// Read returns a view of the arena; it is invalidated by the next Alloc.
func (a *Arena) Read(offset uint32, length uint32) ([]byte, error) {
	return a.span(offset, length)
}

func (a *Arena) Write(offset uint32, data []byte) error {
	b, err := a.span(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

func (a *Arena) ReadU8(offset uint32) (uint8, error) {
	b, err := a.span(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (a *Arena) ReadU16(offset uint32) (uint16, error) {
	b, err := a.span(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (a *Arena) ReadU32(offset uint32) (uint32, error) {
	b, err := a.span(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (a *Arena) ReadU64(offset uint32) (uint64, error) {
	b, err := a.span(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (a *Arena) WriteU8(offset uint32, value uint8) error {
	b, err := a.span(offset, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

func (a *Arena) WriteU16(offset uint32, value uint16) error {
	b, err := a.span(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

func (a *Arena) WriteU32(offset uint32, value uint32) error {
	b, err := a.span(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

func (a *Arena) WriteU64(offset uint32, value uint64) error {
	b, err := a.span(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}
