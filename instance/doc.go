// Package instance walks packed instances of catalog types in a Heap.
//
// An instance is the byte image of one value laid out per its type:
// atomics and opaques inline, strings as a pointer to a NUL-terminated
// allocation, vlens as an inline {len, p} header pointing at a separately
// allocated element buffer, enums as their integer base, and compounds as
// their fields at catalog-given offsets.
//
// The Engine provides three walks over such instances:
//
//	Reclaim   free every allocation reachable from the instances
//	Copy      duplicate the instances so the copy shares no allocation
//	Dump      render the instances as text
//
// All three share one traversal in walker.go and differ only in the
// leaf strategy plugged into it. Types that own no allocations take fast
// paths: Reclaim does nothing and Copy is a flat byte copy.
//
// Instances are expected to be well formed. A vlen with a positive length
// and a null pointer is rejected with bad_value; any other corruption is
// undefined.
package instance
