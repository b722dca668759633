package heap

import (
	"bytes"

	typedmem "github.com/wippyai/typedmem"
	"github.com/wippyai/typedmem/errors"
	"github.com/wippyai/typedmem/internal/abi"
)

const cstringChunk = 64

// ReadCString returns a copy of the NUL-terminated bytes at ptr, without
// the terminator.
func ReadCString(mem typedmem.Memory, ptr uint32) ([]byte, error) {
	var out []byte
	addr := ptr
	for {
		size := mem.Size()
		if addr >= size {
			return nil, errors.New(errors.PhaseMemory, errors.KindBadValue).
				Detail("string at %d is not terminated", ptr).
				Build()
		}
		n := size - addr
		if n > cstringChunk {
			n = cstringChunk
		}
		chunk, err := mem.Read(addr, n)
		if err != nil {
			return nil, err
		}
		if i := bytes.IndexByte(chunk, 0); i >= 0 {
			return append(out, chunk[:i]...), nil
		}
		out = append(out, chunk...)
		if len(out) > abi.MaxStringSize {
			return nil, errors.New(errors.PhaseMemory, errors.KindBadValue).
				Detail("string at %d exceeds %d bytes", ptr, abi.MaxStringSize).
				Build()
		}
		addr += n
	}
}

// WriteCString stores s followed by a NUL at ptr; the region must hold
// len(s)+1 bytes.
func WriteCString(mem typedmem.Memory, ptr uint32, s []byte) error {
	if err := mem.Write(ptr, s); err != nil {
		return err
	}
	return mem.WriteU8(ptr+uint32(len(s)), 0)
}
