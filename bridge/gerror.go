package bridge

import (
	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// GError field offsets: guint32 domain, gint code, gchar *message.
const (
	gerrDomainOff  = 0
	gerrCodeOff    = 4
	gerrMessageOff = 8
)

// NewErrorSlot allocates a zeroed GError** slot for a throwing call.
// The slot must be drained with TakeError after the call regardless of
// its outcome, or the native error leaks.
func (b *Bridge) NewErrorSlot() (gobjectruntime.Handle, error) {
	if err := b.started("error_slot", "glib-2.0", "g_malloc0"); err != nil {
		return gobjectruntime.NilHandle, err
	}
	addr, err := b.mallocNative(typedesc.PointerSize)
	if err != nil {
		return gobjectruntime.NilHandle, err
	}
	return gobjectruntime.HandleAt(addr), nil
}

// TakeError drains a GError** slot: it frees the slot, and when the
// native side filled it, copies domain, code and message out, frees the
// native GError, and returns the copy. A clean call returns nil, nil.
func (b *Bridge) TakeError(slot gobjectruntime.Handle) (*errors.GError, error) {
	if err := b.started("take_error", "glib-2.0", "g_error_free"); err != nil {
		return nil, err
	}
	if slot.IsNil() {
		return nil, errors.InvalidHandle("take_error")
	}

	raw, err := b.readSlot(slot.Addr(), 0, typedesc.SlotPointer)
	if err != nil {
		return nil, err
	}
	b.freeNative(slot.Addr())
	if raw == 0 {
		return nil, nil
	}

	errAddr := uintptr(raw)
	domain, err := b.readSlot(errAddr, gerrDomainOff, typedesc.SlotU32)
	if err != nil {
		return nil, err
	}
	code, err := b.readSlot(errAddr, gerrCodeOff, typedesc.SlotS32)
	if err != nil {
		return nil, err
	}
	msgPtr, err := b.readSlot(errAddr, gerrMessageOff, typedesc.SlotPointer)
	if err != nil {
		return nil, err
	}

	var message string
	if msgPtr != 0 {
		message, err = b.readCString(uintptr(msgPtr))
		if err != nil {
			return nil, err
		}
	}

	sig := gobjectruntime.Signature{
		Ret:  typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer},
	}
	_, _ = b.eng.Invoke("glib-2.0", "g_error_free", sig, []uint64{raw})

	return &errors.GError{
		Domain:  uint32(domain),
		Code:    int32(code),
		Message: message,
	}, nil
}
