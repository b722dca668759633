package heap

import typedmem "github.com/wippyai/typedmem"

const zeroChunk = 4096

var zeros [zeroChunk]byte

// Zero clears [ptr, ptr+n) in chunks. Allocators are not required to hand
// out cleared memory.
func Zero(mem typedmem.Memory, ptr, n uint32) error {
	for n > 0 {
		k := min(n, zeroChunk)
		if err := mem.Write(ptr, zeros[:k]); err != nil {
			return err
		}
		ptr += k
		n -= k
	}
	return nil
}
