// Package typedmem manages the lifecycle of typed instances packed in a flat
// memory: deep reclaim, deep copy and text dumps driven by a type catalog.
//
// An instance is the packed byte image of a value of some catalog type.
// Atomic types and enums are stored inline, strings as pointers to
// NUL-terminated bytes, vlens as {len, p} headers pointing at element
// buffers, and compounds as fields at fixed offsets. Only strings and vlens
// own memory, so only types containing them need deep work.
//
// # Architecture Overview
//
//	typedmem/            Root package with the Memory, Allocator and Heap interfaces
//	├── catalog/         Type ids, classes, data models and the Registry catalog
//	├── layout/          Alignment resolver, position cursor and pointer slots
//	├── heap/            Byte-slice arena with free-list reuse and leak counters
//	│   └── wazmem/      Heap over a wazero linear memory
//	├── instance/        Reclaim, copy and dump walkers behind the Engine API
//	├── value/           Go values to instances and back
//	├── schema/          Catalog construction from TOML schemas and WIT
//	├── errors/          Structured error types
//	└── cmd/typedump/    CLI: types, dump, copy, browse
//
// # Quick Start
//
//	reg := catalog.NewRegistry(catalog.LP64)
//	cid := reg.NewContainer()
//	strs, _ := reg.DefineVlen(cid, "strs", catalog.String)
//
//	arena := heap.NewArena()
//	eng := instance.New(reg, arena)
//	buf, _ := value.New(eng).NewVector(cid, strs, []any{[]any{"hi", "there"}})
//
//	s, _ := eng.Dump(cid, strs, buf, 1) // {len=2,p=("hi" "there")}
//	clone, _ := eng.CopyAll(cid, strs, buf, 1)
//	_ = eng.ReclaimAll(cid, strs, buf, 1)
//	_ = eng.ReclaimAll(cid, strs, clone, 1)
//	// arena.Stats().Live == 0
//
// # Addresses
//
// Addresses are 32-bit offsets into the memory and 0 is null. Multi-byte
// values are little-endian. Under the LP64 data model pointer and length
// slots are 8 bytes wide but must hold values that fit in 32 bits.
//
// # Thread Safety
//
// catalog.Registry and layout.Resolver are safe for concurrent use. Heaps and
// Engines are not; use one per goroutine or synchronize access.
package typedmem
