// Package wazmem places instance data in a wazero linear memory.
//
// The wrapped memory is owned by the host: allocation bookkeeping runs in Go
// (heap.FreeList) and the memory grows by whole 64 KiB pages on demand. This
// lets a guest module read instances the engine built, or the engine reclaim
// instances a guest produced, as long as both agree on the ILP32 data model.
//
//	mod, _ := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
//	h := wazmem.New(mod.ExportedMemory("memory"))
//	eng := instance.New(reg, h)
package wazmem
