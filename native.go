package gobjectruntime

import (
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// Handle is an opaque capability for a native memory address. Handles
// compare by identity through the handles registry, never by pointer
// equality, since two handles may independently refer to one address.
type Handle struct {
	addr uintptr
}

// NilHandle is the zero handle.
var NilHandle = Handle{}

// HandleAt wraps a raw native address. Only the runtime layers construct
// handles; generated code receives them from calls.
func HandleAt(addr uintptr) Handle {
	return Handle{addr: addr}
}

// Addr returns the raw native address.
func (h Handle) Addr() uintptr {
	return h.addr
}

// IsNil reports whether the handle refers to no memory.
func (h Handle) IsNil() bool {
	return h.addr == 0
}

// Offset returns a handle displaced by off bytes. The result borrows the
// same allocation.
func (h Handle) Offset(off int64) Handle {
	if h.addr == 0 {
		return h
	}
	return Handle{addr: uintptr(int64(h.addr) + off)}
}

// Wrapper is the managed object standing in for one native entity.
// Generated classes and the registry's lazily built wrappers satisfy it.
type Wrapper interface {
	Native() Handle
}

// Signature describes the native call shape of a symbol or callback in
// ABI slot terms.
type Signature struct {
	Ret  typedesc.SlotKind
	Args []typedesc.SlotKind
}

// Engine is the native substrate behind the bridge: symbol invocation,
// raw memory access, C-callable closures, and the main loop pump. The
// production implementation in the engine package drives the host C ABI
// through dlopen and libffi; tests substitute an in-memory fake.
type Engine interface {
	// Invoke resolves symbol in library and calls it with the given
	// argument slots. Float slots carry their bit pattern.
	Invoke(library, symbol string, sig Signature, args []uint64) (uint64, error)

	// Read copies native memory at addr+off into dst.
	Read(addr uintptr, off int64, dst []byte) error

	// Write copies src into native memory at addr+off.
	Write(addr uintptr, off int64, src []byte) error

	// NewClosure creates a C-callable function pointer that forwards to
	// dispatch. The release function frees the native thunk; after it
	// returns the pointer must not be invoked.
	NewClosure(sig Signature, dispatch func(args []uint64) uint64) (fnptr uintptr, release func(), err error)

	// DestroyNotify returns a GDestroyNotify-shaped pointer and the
	// user-data token to pass with it. When native code invokes the
	// pointer with that token, fn runs once and the token is retired.
	// cancel retires the token without running fn.
	DestroyNotify(fn func()) (fnptr, data uintptr, cancel func())

	// WeakNotify is DestroyNotify with the GWeakNotify shape
	// (data, object) used by g_object_weak_ref.
	WeakNotify(fn func()) (fnptr, data uintptr, cancel func())

	// IterateMain runs one iteration of the native main context,
	// reporting whether any events were dispatched.
	IterateMain(mayBlock bool) bool

	// Close releases libraries and outstanding closures.
	Close() error
}
