// Package heap provides concrete Heaps for instance data.
//
// Arena keeps everything in a Go byte slice and is what tests and the CLI
// use by default. The wazmem subpackage places the same bookkeeping over a
// wazero linear memory, so instances can be shared with a guest module.
//
// Both sit on FreeList, which hands out addresses from a bump pointer and
// reuses freed blocks of identical (size, align). Stats exposes allocation
// and free counters; Live and LiveBytes drop back to their starting values
// when every allocation reachable from an instance has been reclaimed, which
// is how leak tests are written:
//
//	before := arena.Stats()
//	// build, copy, reclaim ...
//	if arena.Stats().Live != before.Live { ... }
//
// Freeing an unknown pointer or with a wrong size never panics; it bumps
// InvalidFrees and logs a warning through Logger().
package heap
