package layout

import (
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/internal/abi"
)

// Cursor addresses base+offset inside a Memory.
type Cursor struct {
	Base   uint32
	Offset uint32
}

// NewCursor starts a cursor at base with offset zero.
func NewCursor(base uint32) Cursor {
	return Cursor{Base: base}
}

// At returns the absolute address base+offset.
func (c Cursor) At() (uint32, error) {
	addr, ok := abi.SafeAddU32(c.Base, c.Offset)
	if !ok {
		return 0, errors.Overflow(errors.PhaseLayout, "cursor address")
	}
	return addr, nil
}

// Advance moves the cursor n bytes forward.
func (c *Cursor) Advance(n uint32) error {
	off, ok := abi.SafeAddU32(c.Offset, n)
	if !ok {
		return errors.Overflow(errors.PhaseLayout, "cursor offset")
	}
	c.Offset = off
	return nil
}

// AlignTo rounds the offset up to a multiple of a. Zero is treated as one.
func (c *Cursor) AlignTo(a uint32) error {
	off, ok := abi.AlignTo(c.Offset, a)
	if !ok {
		return errors.Overflow(errors.PhaseLayout, "aligned cursor offset")
	}
	c.Offset = off
	return nil
}

// Seek sets the offset to an absolute position relative to Base.
func (c *Cursor) Seek(offset uint32) {
	c.Offset = offset
}

// SeekFrom sets the offset to start+delta.
func (c *Cursor) SeekFrom(start, delta uint32) error {
	off, ok := abi.SafeAddU32(start, delta)
	if !ok {
		return errors.Overflow(errors.PhaseLayout, "field offset")
	}
	c.Offset = off
	return nil
}
