// Package abi holds overflow-checked address arithmetic and size limits
// shared by the layout, heap and walker packages.
//
// This package is internal to typedmem.
package abi
