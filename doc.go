// Package gobjectruntime provides the native FFI marshaling runtime that
// a declarative GTK4 UI layer builds on.
//
// The runtime bridges Go to the C-ABI GObject toolkit: it marshals calls
// between Go values and native memory, keeps exactly one Go wrapper per
// native object identity, routes native signals back into Go closures,
// and generates the typed binding surface offline from GObject
// Introspection data.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	gobjectruntime/      Root package with the Handle, Wrapper and Engine contracts
//	├── runtime/         Lifecycle: Start/Stop, application identity, loop pumping
//	├── bridge/          Call marshaling, native memory access, GValue/GError helpers
//	├── handles/         Native identity registry and wrapper dedup
//	├── signals/         Callback trampolines, signal connections, block nesting
//	├── engine/          dlopen/libffi substrate driver for the host C ABI
//	├── typedesc/        Type descriptor model, transfer tags, struct layout
//	├── gir/             GObject Introspection XML repository model
//	├── gengo/           Offline binding generator consuming gir
//	├── errors/          Structured error types for debugging
//	└── cmd/girgen/      Generator CLI and introspection browser
//
// # Quick Start
//
// Start the runtime and make a call:
//
//	rt := runtime.New(runtime.Config{})
//	app, err := rt.Start("com.example.demo", 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Stop()
//
//	_, err = rt.Bridge().Call("gtk-4.0", "gtk_window_present", []bridge.Arg{
//	    {Desc: typedesc.ObjectDesc("GtkWindow", typedesc.TransferNone), Value: win},
//	}, typedesc.Void())
//
// Generated wrapper code is the intended caller of the bridge surface;
// the raw Call form above is what that code expands to.
//
// # Ownership Model
//
// Every value crossing the boundary carries a typedesc.Desc with a
// transfer tag (none/container/full). Wrappers share but never own the
// native resource; the single owed unref for a tracked object is issued
// by the handles registry exactly once. Handles obtained from struct
// field reads are borrowed unless documented otherwise.
//
// # Thread Safety
//
// The runtime is single-threaded cooperative: one goroutine owns all
// native interaction, and the identity map and block counters are
// intentionally unsynchronized. Using an Engine from multiple threads
// requires external serialization not provided here.
package gobjectruntime
