package enginetest

import (
	"encoding/binary"
	"fmt"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/errors"
)

// Symbol is a fake native symbol. Arguments arrive as ABI slots exactly
// as the bridge marshals them.
type Symbol func(e *Engine, args []uint64) uint64

// Engine is an in-memory stand-in for the native substrate: a fake
// heap, a fake GObject world, fake toolkit symbols and per-symbol
// invocation counters. It behaves like a strict native library; unknown
// symbols and out-of-allocation memory access fail loudly.
type Engine struct {
	symbols map[string]Symbol
	calls   map[string]int

	allocs   map[uintptr][]byte
	nextAddr uintptr

	objects map[uintptr]*Object
	nextID  uint64

	closures    map[uintptr]closureEntry
	nextClosure uintptr

	destroyFns map[uintptr]func()
	weakFns    map[uintptr]func()
	nextToken  uintptr

	// Iterations counts IterateMain calls.
	Iterations int

	closed bool
}

type closureEntry struct {
	sig      gobjectruntime.Signature
	dispatch func(args []uint64) uint64
}

// Sentinel function pointers for the fixed-shape notify trampolines.
const (
	destroyNotifyPtr = uintptr(0xD1000001)
	weakNotifyPtr    = uintptr(0xD1000002)
)

// New creates a fake engine with the standard GLib/GObject/GTK symbol
// surface the runtime depends on already registered.
func New() *Engine {
	e := &Engine{
		symbols:     make(map[string]Symbol),
		calls:       make(map[string]int),
		allocs:      make(map[uintptr][]byte),
		nextAddr:    0x10000,
		objects:     make(map[uintptr]*Object),
		closures:    make(map[uintptr]closureEntry),
		nextClosure: 0xC0000000,
		destroyFns:  make(map[uintptr]func()),
		weakFns:     make(map[uintptr]func()),
		nextToken:   1,
	}
	e.registerGLib()
	e.registerGObject()
	e.registerGTK()
	return e
}

var _ gobjectruntime.Engine = (*Engine)(nil)

// Register installs or replaces a fake symbol.
func (e *Engine) Register(library, symbol string, fn Symbol) {
	e.symbols[library+":"+symbol] = fn
}

// CallCount returns how often a symbol was invoked. This is the
// invocation spy argument-validation tests rely on.
func (e *Engine) CallCount(library, symbol string) int {
	return e.calls[library+":"+symbol]
}

// Invoke dispatches to a registered fake symbol.
func (e *Engine) Invoke(library, symbol string, sig gobjectruntime.Signature, args []uint64) (uint64, error) {
	if e.closed {
		return 0, errors.Closed("invoke")
	}
	key := library + ":" + symbol
	fn, ok := e.symbols[key]
	if !ok {
		return 0, errors.UnknownSymbol(library, symbol, nil)
	}
	e.calls[key]++
	return fn(e, args), nil
}

// Alloc grabs zeroed fake-heap memory and returns its address.
func (e *Engine) Alloc(size int) uintptr {
	if size <= 0 {
		size = 1
	}
	addr := e.nextAddr
	e.allocs[addr] = make([]byte, size)
	// Keep allocations disjoint and pointer-aligned.
	e.nextAddr += uintptr((size + 15) &^ 7)
	return addr
}

// Free releases a fake-heap allocation.
func (e *Engine) Free(addr uintptr) {
	delete(e.allocs, addr)
}

// locate finds the allocation containing [addr+off, addr+off+n).
func (e *Engine) locate(addr uintptr, off int64, n int) ([]byte, int, error) {
	target := uintptr(int64(addr) + off)
	for base, buf := range e.allocs {
		if target >= base && target+uintptr(n) <= base+uintptr(len(buf)) {
			return buf, int(target - base), nil
		}
	}
	return nil, 0, errors.OutOfRange("access", addr, off, n)
}

// Read copies fake-heap memory into dst.
func (e *Engine) Read(addr uintptr, off int64, dst []byte) error {
	if addr == 0 {
		return errors.InvalidHandle("read")
	}
	buf, start, err := e.locate(addr, off, len(dst))
	if err != nil {
		return err
	}
	copy(dst, buf[start:])
	return nil
}

// Write copies src into fake-heap memory.
func (e *Engine) Write(addr uintptr, off int64, src []byte) error {
	if addr == 0 {
		return errors.InvalidHandle("write")
	}
	buf, start, err := e.locate(addr, off, len(src))
	if err != nil {
		return err
	}
	copy(buf[start:], src)
	return nil
}

// NewClosure registers a dispatch function under a fake function
// pointer that fake symbols (signal emission) can invoke.
func (e *Engine) NewClosure(sig gobjectruntime.Signature, dispatch func(args []uint64) uint64) (uintptr, func(), error) {
	if e.closed {
		return 0, nil, errors.Closed("closure")
	}
	e.nextClosure++
	fnptr := e.nextClosure
	e.closures[fnptr] = closureEntry{sig: sig, dispatch: dispatch}
	release := func() {
		delete(e.closures, fnptr)
	}
	return fnptr, release, nil
}

// InvokeClosure calls a closure registered through NewClosure, the way
// native signal emission would.
func (e *Engine) InvokeClosure(fnptr uintptr, args []uint64) (uint64, bool) {
	entry, ok := e.closures[fnptr]
	if !ok {
		return 0, false
	}
	return entry.dispatch(args), true
}

// DestroyNotify mirrors the shared-trampoline scheme of the DL engine:
// one sentinel pointer, per-registration tokens.
func (e *Engine) DestroyNotify(fn func()) (uintptr, uintptr, func()) {
	data := e.nextToken
	e.nextToken++
	e.destroyFns[data] = fn
	cancel := func() { delete(e.destroyFns, data) }
	return destroyNotifyPtr, data, cancel
}

// WeakNotify registers a weak-notification callback token.
func (e *Engine) WeakNotify(fn func()) (uintptr, uintptr, func()) {
	data := e.nextToken
	e.nextToken++
	e.weakFns[data] = fn
	cancel := func() { delete(e.weakFns, data) }
	return weakNotifyPtr, data, cancel
}

// FireNotify invokes a registered notify token the way native code
// would call the trampoline pointer, for tests driving destroy and
// weak notifications directly.
func (e *Engine) FireNotify(fnptr, data uintptr) {
	e.fireNotify(fnptr, data)
}

// fireNotify invokes a notify token the way native code would invoke
// the trampoline pointer.
func (e *Engine) fireNotify(fnptr, data uintptr) {
	switch fnptr {
	case destroyNotifyPtr:
		if fn, ok := e.destroyFns[data]; ok {
			delete(e.destroyFns, data)
			fn()
		}
	case weakNotifyPtr:
		if fn, ok := e.weakFns[data]; ok {
			delete(e.weakFns, data)
			fn()
		}
	}
}

// IterateMain counts pump iterations; the fake world has no event
// sources, so it never reports dispatched work.
func (e *Engine) IterateMain(mayBlock bool) bool {
	e.Iterations++
	return false
}

// Close marks the engine closed; further invokes fail.
func (e *Engine) Close() error {
	e.closed = true
	return nil
}

// CString reads a NUL-terminated string from the fake heap.
func (e *Engine) CString(addr uintptr) string {
	if addr == 0 {
		return ""
	}
	var out []byte
	for off := int64(0); ; off++ {
		var b [1]byte
		if err := e.Read(addr, off, b[:]); err != nil {
			panic(fmt.Sprintf("enginetest: unterminated C string at %#x: %v", addr, err))
		}
		if b[0] == 0 {
			return string(out)
		}
		out = append(out, b[0])
	}
}

// NewCString copies s into the fake heap with a NUL terminator.
func (e *Engine) NewCString(s string) uintptr {
	addr := e.Alloc(len(s) + 1)
	buf := e.allocs[addr]
	copy(buf, s)
	return addr
}

func (e *Engine) readWord(addr uintptr, off int64) uint64 {
	var b [8]byte
	if err := e.Read(addr, off, b[:]); err != nil {
		panic(fmt.Sprintf("enginetest: %v", err))
	}
	return binary.LittleEndian.Uint64(b[:])
}

func (e *Engine) writeWord(addr uintptr, off int64, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	if err := e.Write(addr, off, b[:]); err != nil {
		panic(fmt.Sprintf("enginetest: %v", err))
	}
}

func (e *Engine) registerGLib() {
	e.Register("glib-2.0", "g_malloc0", func(e *Engine, args []uint64) uint64 {
		return uint64(e.Alloc(int(args[0])))
	})
	e.Register("glib-2.0", "g_free", func(e *Engine, args []uint64) uint64 {
		e.Free(uintptr(args[0]))
		return 0
	})
	e.Register("glib-2.0", "g_strdup", func(e *Engine, args []uint64) uint64 {
		if args[0] == 0 {
			return 0
		}
		return uint64(e.NewCString(e.CString(uintptr(args[0]))))
	})
}
