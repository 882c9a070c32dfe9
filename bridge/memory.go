package bridge

import (
	"encoding/binary"
	"math"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// Alloc allocates zeroed native memory of the given size via g_malloc0.
// When getTypeFn is non-empty the type-registration function is invoked
// first: boxed types must be registered with the type system before
// instances of them are handed to property or signal machinery, and
// calling get_type is idempotent, so doing it at allocation time keeps
// the ordering correct without tracking registration state.
func (b *Bridge) Alloc(size int, library, getTypeFn string) (gobjectruntime.Handle, error) {
	if err := b.started("alloc", library, getTypeFn); err != nil {
		return gobjectruntime.NilHandle, err
	}
	if size <= 0 {
		return gobjectruntime.NilHandle, errors.InvalidData(errors.PhaseMemory, "allocation size must be positive")
	}

	if getTypeFn != "" {
		sig := gobjectruntime.Signature{Ret: typedesc.SlotU64}
		if _, err := b.eng.Invoke(library, getTypeFn, sig, nil); err != nil {
			return gobjectruntime.NilHandle, err
		}
	}

	addr, err := b.mallocNative(size)
	if err != nil {
		return gobjectruntime.NilHandle, err
	}
	return gobjectruntime.HandleAt(addr), nil
}

// Free releases memory obtained from Alloc.
func (b *Bridge) Free(h gobjectruntime.Handle) error {
	if err := b.started("free", "glib-2.0", "g_free"); err != nil {
		return err
	}
	if h.IsNil() {
		return nil
	}
	b.freeNative(h.Addr())
	return nil
}

// Read reads one field of kind d at byte offset off inside the block h
// points at. Strings read through the stored pointer and come back
// borrowed; pointer-like kinds come back as handles.
func (b *Bridge) Read(h gobjectruntime.Handle, off int64, d typedesc.Desc) (any, error) {
	if err := b.started("read", "", ""); err != nil {
		return nil, err
	}
	if h.IsNil() {
		return nil, errors.InvalidHandle("read")
	}

	raw, err := b.readSlot(h.Addr(), off, d.Slot())
	if err != nil {
		return nil, err
	}

	switch d.Kind {
	case typedesc.KindString:
		if raw == 0 {
			return "", nil
		}
		return b.readCString(uintptr(raw))
	default:
		return decodeScalar(d, raw)
	}
}

// Write stores one field of kind d at byte offset off inside the block
// h points at. Writing a string allocates a native copy the record then
// owns; the previous pointer, if any, is not freed because the bridge
// cannot know whether the record owned it.
func (b *Bridge) Write(h gobjectruntime.Handle, off int64, d typedesc.Desc, value any) error {
	if err := b.started("write", "", ""); err != nil {
		return err
	}
	if h.IsNil() {
		return errors.InvalidHandle("write")
	}

	var raw uint64
	switch d.Kind {
	case typedesc.KindString:
		s, ok := value.(string)
		if !ok {
			return errors.TypeMismatch("", "", -1, "expected string")
		}
		addr, err := b.newCString(s)
		if err != nil {
			return err
		}
		raw = uint64(addr)
	default:
		slot, _, err := b.marshal("", "field", -1, Arg{Desc: d, Value: value})
		if err != nil {
			return err
		}
		raw = slot
	}

	return b.writeSlot(h.Addr(), off, d.Slot(), raw)
}

// ReadPointer dereferences the pointer stored at h+ptrOff and returns a
// handle elemOff bytes into the pointed-to block. The result is
// borrowed; releasing it is the pointee owner's business.
func (b *Bridge) ReadPointer(h gobjectruntime.Handle, ptrOff, elemOff int64) (gobjectruntime.Handle, error) {
	if err := b.started("read_pointer", "", ""); err != nil {
		return gobjectruntime.NilHandle, err
	}
	if h.IsNil() {
		return gobjectruntime.NilHandle, errors.InvalidHandle("read_pointer")
	}
	raw, err := b.readSlot(h.Addr(), ptrOff, typedesc.SlotPointer)
	if err != nil {
		return gobjectruntime.NilHandle, err
	}
	if raw == 0 {
		return gobjectruntime.NilHandle, nil
	}
	return gobjectruntime.HandleAt(uintptr(raw)).Offset(elemOff), nil
}

// WritePointer stores target's address at h+ptrOff.
func (b *Bridge) WritePointer(h gobjectruntime.Handle, ptrOff int64, target gobjectruntime.Handle) error {
	if err := b.started("write_pointer", "", ""); err != nil {
		return err
	}
	if h.IsNil() {
		return errors.InvalidHandle("write_pointer")
	}
	return b.writeSlot(h.Addr(), ptrOff, typedesc.SlotPointer, uint64(target.Addr()))
}

// decodeScalar converts a raw slot read from memory into the Go value d
// describes. Pointer-like kinds become handles.
func decodeScalar(d typedesc.Desc, raw uint64) (any, error) {
	switch d.Kind {
	case typedesc.KindBool:
		return int32(raw) != 0, nil
	case typedesc.KindInt8:
		return int8(raw), nil
	case typedesc.KindUint8:
		return uint8(raw), nil
	case typedesc.KindInt16:
		return int16(raw), nil
	case typedesc.KindUint16:
		return uint16(raw), nil
	case typedesc.KindInt32, typedesc.KindEnum:
		return int32(raw), nil
	case typedesc.KindUint32, typedesc.KindFlags:
		return uint32(raw), nil
	case typedesc.KindInt64:
		return int64(raw), nil
	case typedesc.KindUint64:
		return raw, nil
	case typedesc.KindFloat32:
		return math.Float32frombits(uint32(raw)), nil
	case typedesc.KindFloat64:
		return math.Float64frombits(raw), nil
	default:
		return gobjectruntime.HandleAt(uintptr(raw)), nil
	}
}

// readSlot reads a value of the given slot width at addr+off,
// little-endian, widened to a uint64 slot.
func (b *Bridge) readSlot(addr uintptr, off int64, k typedesc.SlotKind) (uint64, error) {
	n := k.Size()
	if n == 0 {
		return 0, errors.InvalidData(errors.PhaseMemory, "void has no storage")
	}
	buf := make([]byte, 8)
	if err := b.eng.Read(addr, off, buf[:n]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// writeSlot stores the low bytes of raw at addr+off at the slot width.
func (b *Bridge) writeSlot(addr uintptr, off int64, k typedesc.SlotKind, raw uint64) error {
	n := k.Size()
	if n == 0 {
		return errors.InvalidData(errors.PhaseMemory, "void has no storage")
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], raw)
	return b.eng.Write(addr, off, buf[:n])
}

// mallocNative allocates size zeroed bytes on the native heap.
func (b *Bridge) mallocNative(size int) (uintptr, error) {
	sig := gobjectruntime.Signature{
		Ret:  typedesc.SlotPointer,
		Args: []typedesc.SlotKind{typedesc.SlotU64},
	}
	raw, err := b.eng.Invoke("glib-2.0", "g_malloc0", sig, []uint64{uint64(size)})
	if err != nil {
		return 0, err
	}
	return uintptr(raw), nil
}

// freeNative releases a native allocation. Failures are swallowed; a
// free that cannot reach the native side has nothing useful to report
// to the caller of the operation that already completed.
func (b *Bridge) freeNative(addr uintptr) {
	if addr == 0 {
		return
	}
	sig := gobjectruntime.Signature{
		Ret:  typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer},
	}
	_, _ = b.eng.Invoke("glib-2.0", "g_free", sig, []uint64{uint64(addr)})
}

// newCString copies s to the native heap with a NUL terminator.
func (b *Bridge) newCString(s string) (uintptr, error) {
	addr, err := b.mallocNative(len(s) + 1)
	if err != nil {
		return 0, err
	}
	if len(s) > 0 {
		if err := b.eng.Write(addr, 0, []byte(s)); err != nil {
			b.freeNative(addr)
			return 0, err
		}
	}
	return addr, nil
}

// readCString copies a NUL-terminated native string into Go memory.
// Reads are byte-at-a-time because the allocation length is unknown and
// overshooting it is exactly the class of bug the engine's bounds
// checking exists to catch.
func (b *Bridge) readCString(addr uintptr) (string, error) {
	var out []byte
	var one [1]byte
	for off := int64(0); ; off++ {
		if err := b.eng.Read(addr, off, one[:]); err != nil {
			return "", err
		}
		if one[0] == 0 {
			return string(out), nil
		}
		out = append(out, one[0])
	}
}
