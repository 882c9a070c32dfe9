package signals

import (
	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// Trampoline shapes. Native signal dispatch arrives through one shared
// C-callable closure per shape; the final user-data argument carries
// the connection token that selects the Go handler. Sharing keeps the
// number of native thunks fixed no matter how many connections exist.
const (
	// ShapeVoid is func(self, data), the plain action shape (clicked,
	// activate, close-request without return).
	ShapeVoid = iota
	// ShapePtr is func(self, arg, data) for one-object signals
	// (notify's pspec, row-activated's row).
	ShapePtr
	// ShapePtr2 is func(self, a, b, data).
	ShapePtr2
	// ShapePtr3 is func(self, a, b, c, data).
	ShapePtr3
	// ShapeIntInt is func(self, int, int, data), the resize shape.
	ShapeIntInt
	// ShapeBool is func(self, data) returning gboolean, the
	// close-request/render veto shape.
	ShapeBool
	// ShapePtrBool is func(self, arg, data) returning gboolean.
	ShapePtrBool

	shapeCount
)

var shapeSigs = [shapeCount]gobjectruntime.Signature{
	ShapeVoid: {Ret: typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer, typedesc.SlotPointer}},
	ShapePtr: {Ret: typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer, typedesc.SlotPointer, typedesc.SlotPointer}},
	ShapePtr2: {Ret: typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer, typedesc.SlotPointer, typedesc.SlotPointer, typedesc.SlotPointer}},
	ShapePtr3: {Ret: typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer, typedesc.SlotPointer, typedesc.SlotPointer, typedesc.SlotPointer, typedesc.SlotPointer}},
	ShapeIntInt: {Ret: typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer, typedesc.SlotS32, typedesc.SlotS32, typedesc.SlotPointer}},
	ShapeBool: {Ret: typedesc.SlotS32,
		Args: []typedesc.SlotKind{typedesc.SlotPointer, typedesc.SlotPointer}},
	ShapePtrBool: {Ret: typedesc.SlotS32,
		Args: []typedesc.SlotKind{typedesc.SlotPointer, typedesc.SlotPointer, typedesc.SlotPointer}},
}

// ValidShape reports whether shape names a known trampoline shape. The
// generator's callback table feeds shapes in; anything else is an
// unsupported callback.
func ValidShape(shape int) bool {
	return shape >= 0 && shape < shapeCount
}
