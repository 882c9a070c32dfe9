// Package enginetest provides an in-memory fake of the native substrate
// for tests: a fake heap with strict bounds checking, a fake GObject
// world (reference counts, weak notifications, signals, property
// cells), the toolkit symbols the runtime calls, and per-symbol
// invocation counters.
//
// The fake deliberately behaves like a strict native library. Unknown
// symbols fail with unknown_symbol, and memory access outside a live
// allocation fails with out_of_range, so marshaling bugs surface in
// tests instead of corrupting memory on the real substrate.
package enginetest
