// Package runtime assembles the native binding stack and owns its
// lifecycle.
//
// A Runtime wires the engine, marshaling bridge, identity registry and
// signal manager together behind a single started/stopped guard. Start
// validates the reverse-DNS application id, initializes GTK (and
// Adwaita when present), creates and registers the application object,
// and begins pumping the native main context from a background
// goroutine. Stop unwinds it all: connections, wrapper identities and
// the pump, leaving the engine's resolved libraries warm for a restart.
//
// Everything between Start and Stop is cooperative and effectively
// single-goroutine: native calls, wrapping and signal dispatch are not
// synchronized against each other. The package-level functions operate
// on a process-wide default runtime for generated binding code.
package runtime
