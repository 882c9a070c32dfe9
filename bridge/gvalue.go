package bridge

import (
	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// NewGValue allocates a native GValue initialized for d's type. For
// registered kinds carrying a get_type function the real runtime GType
// is obtained from it; fundamental kinds use their fixed type ids.
// The caller releases the value with GValueUnset.
func (b *Bridge) NewGValue(d typedesc.Desc) (gobjectruntime.Handle, error) {
	if err := b.started("gvalue_new", "gobject-2.0", "g_value_init"); err != nil {
		return gobjectruntime.NilHandle, err
	}

	info, ok := d.GValue()
	if !ok {
		return gobjectruntime.NilHandle, errors.InvalidData(errors.PhaseMarshal,
			"kind "+d.Kind.String()+" has no GValue representation")
	}

	gtype := uint64(info.Type)
	if d.GetTypeFn != "" {
		sig := gobjectruntime.Signature{Ret: typedesc.SlotU64}
		t, err := b.eng.Invoke(d.Library, d.GetTypeFn, sig, nil)
		if err != nil {
			return gobjectruntime.NilHandle, err
		}
		gtype = t
	}

	addr, err := b.mallocNative(typedesc.GValueSize)
	if err != nil {
		return gobjectruntime.NilHandle, err
	}

	sig := gobjectruntime.Signature{
		Ret:  typedesc.SlotPointer,
		Args: []typedesc.SlotKind{typedesc.SlotPointer, typedesc.SlotU64},
	}
	if _, err := b.eng.Invoke("gobject-2.0", "g_value_init", sig, []uint64{uint64(addr), gtype}); err != nil {
		b.freeNative(addr)
		return gobjectruntime.NilHandle, err
	}
	return gobjectruntime.HandleAt(addr), nil
}

// GValueSet stores value into an initialized GValue through the
// type-appropriate g_value_set_* symbol. String setters copy, so the
// temporary native string is freed immediately after the call.
func (b *Bridge) GValueSet(gv gobjectruntime.Handle, d typedesc.Desc, value any) error {
	if err := b.started("gvalue_set", "gobject-2.0", ""); err != nil {
		return err
	}
	if gv.IsNil() {
		return errors.InvalidHandle("gvalue_set")
	}

	info, ok := d.GValue()
	if !ok {
		return errors.InvalidData(errors.PhaseMarshal,
			"kind "+d.Kind.String()+" has no GValue representation")
	}

	slot, cleanup, err := b.marshal("gobject-2.0", info.Set, 0, Arg{Desc: d, Value: value})
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	sig := gobjectruntime.Signature{
		Ret:  typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer, d.Slot()},
	}
	_, err = b.eng.Invoke("gobject-2.0", info.Set, sig, []uint64{uint64(gv.Addr()), slot})
	return err
}

// GValueGet reads the value stored in a GValue through the matching
// g_value_get_* symbol. Strings come back borrowed and are copied.
func (b *Bridge) GValueGet(gv gobjectruntime.Handle, d typedesc.Desc) (any, error) {
	if err := b.started("gvalue_get", "gobject-2.0", ""); err != nil {
		return nil, err
	}
	if gv.IsNil() {
		return nil, errors.InvalidHandle("gvalue_get")
	}

	info, ok := d.GValue()
	if !ok {
		return nil, errors.InvalidData(errors.PhaseMarshal,
			"kind "+d.Kind.String()+" has no GValue representation")
	}

	sig := gobjectruntime.Signature{
		Ret:  d.Slot(),
		Args: []typedesc.SlotKind{typedesc.SlotPointer},
	}
	raw, err := b.eng.Invoke("gobject-2.0", info.Get, sig, []uint64{uint64(gv.Addr())})
	if err != nil {
		return nil, err
	}

	// The getter borrows; never free what it returned.
	borrowed := d
	borrowed.Transfer = typedesc.TransferNone
	return b.unmarshal(borrowed, raw)
}

// GValueUnset clears and frees a GValue created by NewGValue.
func (b *Bridge) GValueUnset(gv gobjectruntime.Handle) error {
	if err := b.started("gvalue_unset", "gobject-2.0", "g_value_unset"); err != nil {
		return err
	}
	if gv.IsNil() {
		return nil
	}
	sig := gobjectruntime.Signature{
		Ret:  typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer},
	}
	if _, err := b.eng.Invoke("gobject-2.0", "g_value_unset", sig, []uint64{uint64(gv.Addr())}); err != nil {
		return err
	}
	b.freeNative(gv.Addr())
	return nil
}
