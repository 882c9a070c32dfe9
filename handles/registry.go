package handles

import (
	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/typedesc"
	"go.uber.org/zap"
)

// Class describes one registered wrapper class: the native type name it
// covers and a factory building the Go wrapper around a handle.
type Class struct {
	Name string
	New  func(gobjectruntime.Handle) gobjectruntime.Wrapper
}

// Observer receives registry lifecycle events, used by diagnostics and
// leak tests. Events are "wrap", "release" and "invalidate".
type Observer func(event, typeName string, addr uintptr)

type entry struct {
	id         uint64
	addr       uintptr
	typeName   string
	wrapper    gobjectruntime.Wrapper
	weakCancel func()
	released   bool
}

// Registry maintains the one-wrapper-per-native-instance identity map.
// Wrapping the same native address twice yields the same Go wrapper, so
// Go-side equality matches native identity.
//
// The registry is confined to the runtime's dispatch goroutine and is
// deliberately unsynchronized, like the rest of the object layer.
type Registry struct {
	eng     gobjectruntime.Engine
	classes map[string]Class

	byAddr map[uintptr]*entry
	byID   map[uint64]*entry
	nextID uint64

	observer Observer
}

// New creates an empty registry over eng.
func New(eng gobjectruntime.Engine) *Registry {
	return &Registry{
		eng:     eng,
		classes: make(map[string]Class),
		byAddr:  make(map[uintptr]*entry),
		byID:    make(map[uint64]*entry),
	}
}

// RegisterClass installs a wrapper class. Later registrations replace
// earlier ones, which lets applications override generated classes.
func (r *Registry) RegisterClass(c Class) {
	r.classes[c.Name] = c
}

// SetObserver installs the event hook. A nil observer disables it.
func (r *Registry) SetObserver(obs Observer) {
	r.observer = obs
}

// ObjectFor is Wrap for borrowed sightings, the common case in signal
// dispatch and property reads.
func (r *Registry) ObjectFor(h gobjectruntime.Handle, className string) (gobjectruntime.Wrapper, error) {
	return r.Wrap(h, className, typedesc.TransferNone)
}

// NativeID returns the stable identity number for the managed object at
// h, or 0 when the address is not managed. Identity numbers are
// runtime-scoped and never reused while the runtime lives.
func (r *Registry) NativeID(h gobjectruntime.Handle) uint64 {
	if e, ok := r.byAddr[h.Addr()]; ok {
		return e.id
	}
	return 0
}

func (r *Registry) emit(event, typeName string, addr uintptr) {
	if r.observer != nil {
		r.observer(event, typeName, addr)
	}
}

// Wrap returns the managed wrapper for the native object at h, creating
// it on first sight. className is the statically expected class; the
// actual runtime type, queried from the instance, wins when it is
// registered, so a call declared to return GtkWidget still wraps a
// GtkButton as a button.
//
// transfer governs reference bookkeeping. Under transfer-none the
// registry takes its own reference (sinking a floating one); under
// transfer-full it adopts the reference the call handed over. A repeat
// sighting under transfer-full drops the extra reference immediately,
// since the registry already holds one.
func (r *Registry) Wrap(h gobjectruntime.Handle, className string, transfer typedesc.Transfer) (gobjectruntime.Wrapper, error) {
	if h.IsNil() {
		return nil, errors.InvalidHandle("wrap")
	}

	if e, ok := r.byAddr[h.Addr()]; ok {
		if transfer == typedesc.TransferFull {
			r.unref(h.Addr())
		}
		return e.wrapper, nil
	}

	runtimeName, err := r.typeNameOf(h)
	if err != nil {
		return nil, err
	}

	cls, ok := r.classes[runtimeName]
	if !ok {
		// Unexported subtypes (GtkLabelAccessible and the like) fall
		// back to the statically expected class.
		cls, ok = r.classes[className]
	}
	if !ok {
		name := runtimeName
		if name == "" {
			name = className
		}
		return nil, errors.UnknownType(name)
	}

	// One reference belongs to the registry either way: taken here
	// under transfer-none, adopted from the call under transfer-full.
	// ref_sink rather than ref, so a floating widget fresh from its
	// constructor becomes owned instead of gaining a second count.
	if transfer != typedesc.TransferFull {
		r.refSink(h.Addr())
	}

	r.nextID++
	e := &entry{
		id:       r.nextID,
		addr:     h.Addr(),
		typeName: cls.Name,
		wrapper:  cls.New(h),
	}

	fnptr, data, cancel := r.eng.WeakNotify(func() {
		r.invalidate(e)
	})
	e.weakCancel = cancel
	r.invokeVoid("g_object_weak_ref", uint64(h.Addr()), uint64(fnptr), uint64(data))

	r.byAddr[e.addr] = e
	r.byID[e.id] = e
	r.emit("wrap", e.typeName, e.addr)
	return e.wrapper, nil
}

// Lookup returns the existing wrapper for addr without creating one.
func (r *Registry) Lookup(addr uintptr) (gobjectruntime.Wrapper, bool) {
	e, ok := r.byAddr[addr]
	if !ok {
		return nil, false
	}
	return e.wrapper, true
}

// ID returns the registry identity of a wrapper, or 0 for unmanaged
// wrappers.
func (r *Registry) ID(w gobjectruntime.Wrapper) uint64 {
	if w == nil {
		return 0
	}
	if e, ok := r.byAddr[w.Native().Addr()]; ok {
		return e.id
	}
	return 0
}

// SameObject reports whether two wrappers stand for the same native
// instance.
func (r *Registry) SameObject(a, b gobjectruntime.Wrapper) bool {
	if a == nil || b == nil {
		return false
	}
	ida, idb := r.ID(a), r.ID(b)
	return ida != 0 && ida == idb
}

// Release drops the registry's reference on the wrapper's native object
// and forgets the identity. Releasing twice is a no-op; the reference
// must go exactly once.
func (r *Registry) Release(w gobjectruntime.Wrapper) {
	if w == nil {
		return
	}
	e, ok := r.byAddr[w.Native().Addr()]
	if !ok || e.released {
		return
	}
	e.released = true
	e.weakCancel()
	delete(r.byAddr, e.addr)
	delete(r.byID, e.id)
	r.emit("release", e.typeName, e.addr)
	r.unref(e.addr)
}

// Len returns the number of live managed wrappers.
func (r *Registry) Len() int {
	return len(r.byAddr)
}

// Reset releases every managed wrapper. Runs at runtime shutdown so a
// later start begins with a clean identity space.
func (r *Registry) Reset() {
	entries := make([]*entry, 0, len(r.byAddr))
	for _, e := range r.byAddr {
		entries = append(entries, e)
	}
	for _, e := range entries {
		r.Release(e.wrapper)
	}
	r.nextID = 0
}

// invalidate runs from the weak notification when the native object
// dies while the registry still tracks it. The reference is already
// gone; only the bookkeeping goes.
func (r *Registry) invalidate(e *entry) {
	if e.released {
		return
	}
	e.released = true
	delete(r.byAddr, e.addr)
	delete(r.byID, e.id)
	r.emit("invalidate", e.typeName, e.addr)
	logger().Debug("wrapper invalidated by native finalization",
		zap.String("type", e.typeName))
}

func (r *Registry) typeNameOf(h gobjectruntime.Handle) (string, error) {
	sig := gobjectruntime.Signature{
		Ret:  typedesc.SlotPointer,
		Args: []typedesc.SlotKind{typedesc.SlotPointer},
	}
	raw, err := r.eng.Invoke("gobject-2.0", "g_type_name_from_instance", sig, []uint64{uint64(h.Addr())})
	if err != nil {
		return "", err
	}
	if raw == 0 {
		return "", nil
	}
	return r.readCString(uintptr(raw))
}

func (r *Registry) refSink(addr uintptr) {
	sig := gobjectruntime.Signature{
		Ret:  typedesc.SlotPointer,
		Args: []typedesc.SlotKind{typedesc.SlotPointer},
	}
	_, _ = r.eng.Invoke("gobject-2.0", "g_object_ref_sink", sig, []uint64{uint64(addr)})
}

func (r *Registry) unref(addr uintptr) {
	r.invokeVoid("g_object_unref", uint64(addr))
}

func (r *Registry) invokeVoid(symbol string, args ...uint64) {
	sig := gobjectruntime.Signature{
		Ret:  typedesc.SlotVoid,
		Args: make([]typedesc.SlotKind, len(args)),
	}
	for i := range sig.Args {
		sig.Args[i] = typedesc.SlotPointer
	}
	if _, err := r.eng.Invoke("gobject-2.0", symbol, sig, args); err != nil {
		logger().Warn("native call failed", zap.String("symbol", symbol), zap.Error(err))
	}
}

func (r *Registry) readCString(addr uintptr) (string, error) {
	var out []byte
	var one [1]byte
	for off := int64(0); ; off++ {
		if err := r.eng.Read(addr, off, one[:]); err != nil {
			return "", err
		}
		if one[0] == 0 {
			return string(out), nil
		}
		out = append(out, one[0])
	}
}
