package engine

import (
	"sync"
	"unsafe"

	"github.com/jupiterrider/ffi"
	"github.com/jwijenbergh/purego"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/errors"
)

// NewClosure builds a C-callable function pointer for sig that forwards
// to dispatch. Each closure consumes one libffi closure slot, so the
// signals layer shares one closure per trampoline shape instead of one
// per connection.
func (d *DL) NewClosure(sig gobjectruntime.Signature, dispatch func(args []uint64) uint64) (uintptr, func(), error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return 0, nil, errors.Closed("closure")
	}

	var code unsafe.Pointer
	closure := ffi.ClosureAlloc(unsafe.Sizeof(ffi.Closure{}), &code)
	if closure == nil || code == nil {
		return 0, nil, errors.New(errors.PhaseSignal, errors.KindInvalidData).
			Op("closure").Detail("closure allocation failed").Build()
	}

	// The cif must stay reachable for as long as native code may call
	// the closure; keep it in the closure state we retain below.
	state := &closureState{sig: sig, dispatch: dispatch}
	if status := ffi.PrepCif(&state.cif, ffi.DefaultAbi, uint32(len(sig.Args)),
		ffiType(sig.Ret), closureArgTypes(sig)...); status != ffi.OK {
		ffi.ClosureFree(closure)
		return 0, nil, errors.New(errors.PhaseSignal, errors.KindInvalidData).
			Op("closure").Detail("prep cif failed: %v", status).Build()
	}

	cb := ffi.NewCallback(state.invoke)
	if status := ffi.PrepClosureLoc(closure, &state.cif, cb, nil, code); status != ffi.OK {
		ffi.ClosureFree(closure)
		return 0, nil, errors.New(errors.PhaseSignal, errors.KindInvalidData).
			Op("closure").Detail("prep closure failed: %v", status).Build()
	}

	state.closure = closure
	fnptr := uintptr(code)

	var once sync.Once
	release := func() {
		once.Do(func() {
			ffi.ClosureFree(state.closure)
		})
	}
	return fnptr, release, nil
}

type closureState struct {
	cif      ffi.Cif
	closure  *ffi.Closure
	sig      gobjectruntime.Signature
	dispatch func(args []uint64) uint64
}

// invoke is called by libffi with an array of pointers to the native
// argument values. Each is widened into a uint64 slot at its declared
// width before dispatch.
func (s *closureState) invoke(cif *ffi.Cif, ret unsafe.Pointer, args *unsafe.Pointer, userData unsafe.Pointer) uintptr {
	n := len(s.sig.Args)
	slots := make([]uint64, n)
	if n > 0 {
		raw := unsafe.Slice(args, n)
		for i, slot := range s.sig.Args {
			switch slot.Size() {
			case 1:
				slots[i] = uint64(*(*uint8)(raw[i]))
			case 2:
				slots[i] = uint64(*(*uint16)(raw[i]))
			case 4:
				slots[i] = uint64(*(*uint32)(raw[i]))
			default:
				slots[i] = *(*uint64)(raw[i])
			}
		}
	}

	out := s.dispatch(slots)

	switch s.sig.Ret.Size() {
	case 0:
	case 1:
		*(*uint8)(ret) = uint8(out)
	case 2:
		*(*uint16)(ret) = uint16(out)
	case 4:
		*(*uint32)(ret) = uint32(out)
	default:
		*(*uint64)(ret) = out
	}
	return 0
}

func closureArgTypes(sig gobjectruntime.Signature) []*ffi.Type {
	types := make([]*ffi.Type, len(sig.Args))
	for i, s := range sig.Args {
		types[i] = ffiType(s)
	}
	return types
}

// Fixed-shape notification callbacks.
//
// GDestroyNotify and GWeakNotify have one shape each, so every
// registration shares a single native callback and dispatches through
// the user-data token. Callback slots are a hard-limited resource; two
// slots total cover every destroy/weak registration the runtime makes.
var notifies = struct {
	sync.Mutex
	next    uintptr
	destroy map[uintptr]func()
	weak    map[uintptr]func()
}{
	next:    1,
	destroy: make(map[uintptr]func()),
	weak:    make(map[uintptr]func()),
}

var (
	destroyPtrOnce sync.Once
	destroyPtr     uintptr
	weakPtrOnce    sync.Once
	weakPtr        uintptr
)

func destroyTrampoline(data uintptr) uintptr {
	notifies.Lock()
	fn := notifies.destroy[data]
	delete(notifies.destroy, data)
	notifies.Unlock()
	if fn != nil {
		fn()
	}
	return 0
}

func weakTrampoline(data uintptr, object uintptr) uintptr {
	notifies.Lock()
	fn := notifies.weak[data]
	delete(notifies.weak, data)
	notifies.Unlock()
	if fn != nil {
		fn()
	}
	return 0
}

// DestroyNotify registers fn behind the shared GDestroyNotify
// trampoline. Native code invoking the returned pointer with the
// returned token runs fn once; cancel retires the token without running.
func (d *DL) DestroyNotify(fn func()) (uintptr, uintptr, func()) {
	destroyPtrOnce.Do(func() {
		destroyPtr = purego.NewCallback(destroyTrampoline)
	})

	notifies.Lock()
	data := notifies.next
	notifies.next++
	notifies.destroy[data] = fn
	notifies.Unlock()

	cancel := func() {
		notifies.Lock()
		delete(notifies.destroy, data)
		notifies.Unlock()
	}
	return destroyPtr, data, cancel
}

// WeakNotify is DestroyNotify with the two-argument GWeakNotify shape.
func (d *DL) WeakNotify(fn func()) (uintptr, uintptr, func()) {
	weakPtrOnce.Do(func() {
		weakPtr = purego.NewCallback(weakTrampoline)
	})

	notifies.Lock()
	data := notifies.next
	notifies.next++
	notifies.weak[data] = fn
	notifies.Unlock()

	cancel := func() {
		notifies.Lock()
		delete(notifies.weak, data)
		notifies.Unlock()
	}
	return weakPtr, data, cancel
}
