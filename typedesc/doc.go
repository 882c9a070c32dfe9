// Package typedesc defines the type descriptor model shared by the call
// bridge, the signal trampolines and the binding generator.
//
// A Desc is a tagged variant describing how one value crosses the native
// boundary: primitive kinds with exact widths, strings, GObject
// instances, boxed and plain structs, enums, flags, callbacks, GVariant
// and GParamSpec. Every descriptor carries a Transfer tag recording who
// must release the value after the call.
//
// Desc.Slot maps each descriptor to exactly one native call slot; the
// slot widths are the contract between descriptors and the engine's ABI.
// Calculator computes C struct layouts for record descriptors, and the
// GValue helpers name the GValue init/set/get machinery used by
// synthetic property setters.
//
// The package is pure data plus derived lookups; it performs no native
// calls.
package typedesc
