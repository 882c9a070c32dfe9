package runtime

import (
	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/bridge"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/handles"
	"github.com/gtkflux/gobject-runtime/signals"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// The process-wide default runtime. Generated binding code calls the
// package-level functions below, which route through it; embedding
// applications that need several runtimes construct them directly.
var defaultRuntime *Runtime

// Default returns the process-wide runtime, creating an unstarted one
// with default configuration on first use.
func Default() *Runtime {
	if defaultRuntime == nil {
		defaultRuntime = New(Config{})
	}
	return defaultRuntime
}

// SetDefault replaces the process-wide runtime. Tests install runtimes
// backed by fake engines through this.
func SetDefault(r *Runtime) {
	defaultRuntime = r
}

// Start starts the default runtime.
func Start(appID string, flags uint32) (*Application, error) {
	return Default().Start(appID, flags)
}

// Stop stops the default runtime.
func Stop() {
	if defaultRuntime != nil {
		defaultRuntime.Stop()
	}
}

// Call performs a marshaled native call on the default runtime.
func Call(library, symbol string, args []bridge.Arg, ret typedesc.Desc) (any, error) {
	return Default().bridge.Call(library, symbol, args, ret)
}

// BatchCall performs a batched sequence of void calls on the default
// runtime.
func BatchCall(calls []bridge.CallSpec) error {
	return Default().bridge.BatchCall(calls)
}

// Alloc allocates native memory on the default runtime.
func Alloc(size int, library, getTypeFn string) (gobjectruntime.Handle, error) {
	return Default().bridge.Alloc(size, library, getTypeFn)
}

// Free releases native memory on the default runtime.
func Free(h gobjectruntime.Handle) error {
	return Default().bridge.Free(h)
}

// Read reads a record field on the default runtime.
func Read(h gobjectruntime.Handle, off int64, d typedesc.Desc) (any, error) {
	return Default().bridge.Read(h, off, d)
}

// Write writes a record field on the default runtime.
func Write(h gobjectruntime.Handle, off int64, d typedesc.Desc, value any) error {
	return Default().bridge.Write(h, off, d, value)
}

// ReadPointer dereferences a stored pointer on the default runtime.
func ReadPointer(h gobjectruntime.Handle, ptrOff, elemOff int64) (gobjectruntime.Handle, error) {
	return Default().bridge.ReadPointer(h, ptrOff, elemOff)
}

// WritePointer stores a pointer on the default runtime.
func WritePointer(h gobjectruntime.Handle, ptrOff int64, target gobjectruntime.Handle) error {
	return Default().bridge.WritePointer(h, ptrOff, target)
}

// SetProperty writes a GObject property on the default runtime.
func SetProperty(obj gobjectruntime.Wrapper, name string, d typedesc.Desc, value any) error {
	return Default().SetProperty(obj, name, d, value)
}

// GetProperty reads a GObject property on the default runtime.
func GetProperty(obj gobjectruntime.Wrapper, name string, d typedesc.Desc) (any, error) {
	return Default().GetProperty(obj, name, d)
}

// NewErrorSlot allocates a GError** slot on the default runtime.
func NewErrorSlot() (gobjectruntime.Handle, error) {
	return Default().bridge.NewErrorSlot()
}

// TakeError drains a GError** slot on the default runtime.
func TakeError(slot gobjectruntime.Handle) (*errors.GError, error) {
	return Default().bridge.TakeError(slot)
}

// Signals returns the default runtime's signal manager.
func Signals() *signals.Manager {
	return Default().Signals()
}

// Objects returns the default runtime's identity registry.
func Objects() *handles.Registry {
	return Default().Objects()
}

// Wrap resolves a handle to its managed wrapper on the default runtime.
// Unlike the bridge operations it refuses outright without a started
// runtime, since wrapping takes references.
func Wrap(h gobjectruntime.Handle, className string, transfer typedesc.Transfer) (gobjectruntime.Wrapper, error) {
	r := Default()
	if !r.Started() {
		return nil, errors.NotStarted("wrap", "", "")
	}
	return r.reg.Wrap(h, className, transfer)
}
