// Package engine drives the host C ABI for the runtime: dlopen-based
// library loading, libffi calls built from descriptor slot signatures,
// C-callable closures for signal trampolines, and the GLib main context
// pump.
//
// DL is the production Engine. It caches prepared call interfaces per
// (library, symbol, signature) and loads each toolkit library once,
// with RTLD_GLOBAL so GType symbols resolve across library boundaries.
//
// Closures are a limited native resource. Dynamic signal shapes get one
// libffi closure per trampoline shape (shared by all connections of
// that shape); the fixed-shape GDestroyNotify and GWeakNotify callbacks
// share one native callback each and dispatch through user-data tokens.
//
// Tests that need a native substrate without GTK installed use the
// in-memory fake in internal/enginetest instead.
package engine
