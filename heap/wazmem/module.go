package wazmem

import (
	"context"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/typedmem/errors"
)

// memoryModule exports a single one-page memory named "memory".
var memoryModule = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 memory, min 1 page
	0x07, 0x0a, 0x01, // export section: 1 export
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00, // "memory" -> memory 0
}

// Instantiate creates a module in rt that exports nothing but a memory
// and returns a heap over it. Closing rt releases the memory.
func Instantiate(ctx context.Context, rt wazero.Runtime, opts ...Option) (*Heap, error) {
	compiled, err := rt.CompileModule(ctx, memoryModule)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindUnsupported, err, "compile memory module")
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindUnsupported, err, "instantiate memory module")
	}
	mem := mod.ExportedMemory("memory")
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseMemory, "export", "memory")
	}
	return New(mem, opts...), nil
}
