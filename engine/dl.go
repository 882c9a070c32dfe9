package engine

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/jupiterrider/ffi"
	"github.com/jwijenbergh/purego"
	"go.uber.org/zap"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// Config controls how the DL engine locates native libraries.
type Config struct {
	// LibraryPaths overrides the soname table per library name, e.g.
	// {"gtk-4.0": "/opt/gtk/lib/libgtk-4.so.1"}.
	LibraryPaths map[string]string
}

// DL drives the host C ABI: dlopen for library loading, libffi for
// descriptor-driven calls and C-callable closures.
//
// The symbol cache mutex is the one lock in the runtime's hot path; it
// exists because Resolve can run inside trampoline dispatch while the
// cooperating goroutine is mid-call.
type DL struct {
	cfg Config

	mu   sync.Mutex
	libs map[string]ffi.Lib
	funs map[funKey]ffi.Fun

	iterateOnce sync.Once
	iterateFun  ffi.Fun
	iterateErr  error

	closed bool
}

type funKey struct {
	library string
	symbol  string
	sig     string
}

// NewDL creates an engine for the host C ABI. No libraries are loaded
// until the first call resolves a symbol.
func NewDL(cfg Config) *DL {
	return &DL{
		cfg:  cfg,
		libs: make(map[string]ffi.Lib),
		funs: make(map[funKey]ffi.Fun),
	}
}

var _ gobjectruntime.Engine = (*DL)(nil)

// Invoke resolves symbol in library and performs the call described by
// sig over the caller's argument slots. Float slots carry bit patterns.
func (d *DL) Invoke(library, symbol string, sig gobjectruntime.Signature, args []uint64) (uint64, error) {
	fun, err := d.prep(library, symbol, sig)
	if err != nil {
		return 0, err
	}

	// libffi reads each argument from a known address; hand it the
	// slots directly. Narrow slots are read at their declared width.
	callArgs := make([]any, len(args))
	for i := range args {
		callArgs[i] = &args[i]
	}

	var ret uint64
	if sig.Ret == typedesc.SlotVoid {
		fun.Call(nil, callArgs...)
		return 0, nil
	}
	fun.Call(unsafe.Pointer(&ret), callArgs...)
	return narrow(ret, sig.Ret), nil
}

// prep returns the prepared call interface for (library, symbol, sig),
// loading the library and resolving the symbol on first use.
func (d *DL) prep(library, symbol string, sig gobjectruntime.Signature) (ffi.Fun, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ffi.Fun{}, errors.Closed("invoke")
	}

	key := funKey{library: library, symbol: symbol, sig: sigKey(sig)}
	if fun, ok := d.funs[key]; ok {
		return fun, nil
	}

	lib, err := d.openLocked(library)
	if err != nil {
		return ffi.Fun{}, err
	}

	argTypes := make([]*ffi.Type, len(sig.Args))
	for i, s := range sig.Args {
		argTypes[i] = ffiType(s)
	}
	fun, err := lib.Prep(symbol, ffiType(sig.Ret), argTypes...)
	if err != nil {
		return ffi.Fun{}, errors.UnknownSymbol(library, symbol, err)
	}
	if fun.Addr == 0 {
		return ffi.Fun{}, errors.UnknownSymbol(library, symbol, nil)
	}

	d.funs[key] = fun
	return fun, nil
}

func (d *DL) openLocked(library string) (ffi.Lib, error) {
	if lib, ok := d.libs[library]; ok {
		return lib, nil
	}

	path := soname(library)
	if override, ok := d.cfg.LibraryPaths[library]; ok {
		path = override
	}

	// dlopen with RTLD_GLOBAL first so cross-library GType symbols
	// (gobject types referenced from gtk, adwaita extending gtk) are
	// visible process-wide before libffi opens its own handle.
	if _, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL); err != nil {
		return ffi.Lib{}, errors.UnknownSymbol(library, "", fmt.Errorf("dlopen %s: %w", path, err))
	}

	lib, err := ffi.Load(path)
	if err != nil {
		return ffi.Lib{}, errors.UnknownSymbol(library, "", fmt.Errorf("load %s: %w", path, err))
	}

	Logger().Debug("loaded native library",
		zap.String("library", library),
		zap.String("path", path))

	d.libs[library] = lib
	return lib, nil
}

// Read copies native memory at addr+off into dst. The native heap is
// the process heap, so this is a direct copy.
func (d *DL) Read(addr uintptr, off int64, dst []byte) error {
	if addr == 0 {
		return errors.InvalidHandle("read")
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(int64(addr)+off))), len(dst))
	copy(dst, src)
	return nil
}

// Write copies src into native memory at addr+off.
func (d *DL) Write(addr uintptr, off int64, src []byte) error {
	if addr == 0 {
		return errors.InvalidHandle("write")
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(int64(addr)+off))), len(src))
	copy(dst, src)
	return nil
}

// IterateMain runs one iteration of the default GLib main context.
func (d *DL) IterateMain(mayBlock bool) bool {
	d.iterateOnce.Do(func() {
		d.iterateFun, d.iterateErr = d.prep("glib-2.0", "g_main_context_iteration",
			gobjectruntime.Signature{
				Ret:  typedesc.SlotS32,
				Args: []typedesc.SlotKind{typedesc.SlotPointer, typedesc.SlotS32},
			})
	})
	if d.iterateErr != nil {
		return false
	}

	var ctx uint64 // NULL: default context
	var block uint64
	if mayBlock {
		block = 1
	}
	var ret uint64
	d.iterateFun.Call(unsafe.Pointer(&ret), &ctx, &block)
	return int32(ret) != 0
}

// Close drops the symbol caches and frees outstanding closures. Loaded
// toolkit libraries stay mapped for the life of the process; GTK does
// not support being unloaded.
func (d *DL) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.funs = make(map[funKey]ffi.Fun)
	d.libs = make(map[string]ffi.Lib)
	return nil
}

// sigKey renders a signature as a cache key.
func sigKey(sig gobjectruntime.Signature) string {
	b := make([]byte, 0, len(sig.Args)+1)
	b = append(b, byte(sig.Ret))
	for _, a := range sig.Args {
		b = append(b, byte(a))
	}
	return string(b)
}

// narrow masks a raw return slot down to the declared width so garbage
// in the high bits of a register-sized return never leaks upward.
func narrow(v uint64, s typedesc.SlotKind) uint64 {
	switch s.Size() {
	case 1:
		return uint64(uint8(v))
	case 2:
		return uint64(uint16(v))
	case 4:
		return uint64(uint32(v))
	default:
		return v
	}
}

// ffiType maps a descriptor slot onto the libffi type descriptor with
// the identical ABI width.
func ffiType(s typedesc.SlotKind) *ffi.Type {
	switch s {
	case typedesc.SlotVoid:
		return &ffi.TypeVoid
	case typedesc.SlotU8:
		return &ffi.TypeUint8
	case typedesc.SlotS8:
		return &ffi.TypeSint8
	case typedesc.SlotU16:
		return &ffi.TypeUint16
	case typedesc.SlotS16:
		return &ffi.TypeSint16
	case typedesc.SlotU32:
		return &ffi.TypeUint32
	case typedesc.SlotS32:
		return &ffi.TypeSint32
	case typedesc.SlotU64:
		return &ffi.TypeUint64
	case typedesc.SlotS64:
		return &ffi.TypeSint64
	case typedesc.SlotF32:
		return &ffi.TypeFloat
	case typedesc.SlotF64:
		return &ffi.TypeDouble
	default:
		return &ffi.TypePointer
	}
}
