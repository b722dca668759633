package heap

import (
	"go.uber.org/zap"

	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/internal/abi"
)

// Stats counts allocator activity. Live and LiveBytes are the leak counters.
type Stats struct {
	Allocs       uint64
	Frees        uint64
	InvalidFrees uint64
	Live         int
	LiveBytes    uint64
	PeakBytes    uint64
}

type blockKey struct {
	size  uint32
	align uint32
}

// GrowFunc extends the backing store so that at least need bytes are
// addressable and returns the new limit.
type GrowFunc func(need uint32) (uint32, error)

// FreeList is allocation bookkeeping over a flat address space: a bump
// pointer plus exact-size reuse of freed blocks. It does not touch the
// bytes; owners zero reused blocks themselves.
type FreeList struct {
	free      map[blockKey][]uint32
	live      map[uint32]blockKey
	grow      GrowFunc
	stats     Stats
	failAfter int
	top       uint32
	limit     uint32
}

// NewFreeList starts handing out addresses at base. Addresses below base
// are never returned, so base > 0 keeps 0 free for null.
func NewFreeList(base, limit uint32, grow GrowFunc) *FreeList {
	return &FreeList{
		free:      make(map[blockKey][]uint32),
		live:      make(map[uint32]blockKey),
		grow:      grow,
		failAfter: -1,
		top:       base,
		limit:     limit,
	}
}

// FailAfter makes every allocation after the first n fail; n < 0 disables.
func (f *FreeList) FailAfter(n int) {
	f.failAfter = n
}

// Alloc reserves size bytes aligned to align. reused reports whether the
// block held earlier data.
func (f *FreeList) Alloc(size, align uint32) (ptr uint32, reused bool, err error) {
	if size == 0 {
		size = 1
	}
	if align == 0 {
		align = 1
	}
	if size > abi.MaxAlloc {
		return 0, false, errors.AllocationFailed(errors.PhaseAlloc, size, align, nil)
	}
	if f.failAfter >= 0 && f.stats.Allocs >= uint64(f.failAfter) {
		return 0, false, errors.New(errors.PhaseAlloc, errors.KindOutOfMemory).
			Detail("allocation %d refused (fail-after %d)", f.stats.Allocs+1, f.failAfter).
			Build()
	}

	key := blockKey{size, align}
	if list := f.free[key]; len(list) > 0 {
		ptr = list[len(list)-1]
		f.free[key] = list[:len(list)-1]
		reused = true
	} else {
		start, ok := abi.AlignTo(f.top, align)
		var end uint32
		if ok {
			end, ok = abi.SafeAddU32(start, size)
		}
		if !ok {
			return 0, false, errors.AllocationFailed(errors.PhaseAlloc, size, align, nil)
		}
		if end > f.limit {
			if f.grow == nil {
				return 0, false, errors.AllocationFailed(errors.PhaseAlloc, size, align, nil)
			}
			limit, err := f.grow(end)
			if err != nil {
				return 0, false, errors.AllocationFailed(errors.PhaseAlloc, size, align, err)
			}
			f.limit = limit
		}
		ptr = start
		f.top = end
	}

	f.live[ptr] = key
	f.stats.Allocs++
	f.stats.Live++
	f.stats.LiveBytes += uint64(size)
	if f.stats.LiveBytes > f.stats.PeakBytes {
		f.stats.PeakBytes = f.stats.LiveBytes
	}
	return ptr, reused, nil
}

// Free releases ptr. Unknown pointers and size mismatches are counted as
// invalid frees and logged; the recorded size wins.
func (f *FreeList) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	key, ok := f.live[ptr]
	if !ok {
		f.stats.InvalidFrees++
		Logger().Warn("free of unknown pointer",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size))
		return
	}
	if size == 0 {
		size = 1
	}
	if size != key.size {
		f.stats.InvalidFrees++
		Logger().Warn("free size mismatch",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Uint32("allocated", key.size))
	}

	delete(f.live, ptr)
	f.free[key] = append(f.free[key], ptr)
	f.stats.Frees++
	f.stats.Live--
	f.stats.LiveBytes -= uint64(key.size)
}

// SizeOf returns the size recorded for a live allocation.
func (f *FreeList) SizeOf(ptr uint32) (uint32, bool) {
	key, ok := f.live[ptr]
	return key.size, ok
}

// Stats returns a snapshot of the counters.
func (f *FreeList) Stats() Stats {
	return f.stats
}
