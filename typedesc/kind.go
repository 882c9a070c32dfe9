package typedesc

import "unsafe"

// Kind identifies how a value crosses the native boundary.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindObject // GObject instance, identity-tracked
	KindBoxed  // GBoxed struct with registered copy/free
	KindRecord // plain C struct, field access by offset
	KindEnum
	KindFlags
	KindCallback
	KindVariant // GVariant
	KindParam   // GParamSpec
	KindPointer // opaque pointer, no identity tracking
)

var kindNames = [...]string{
	KindVoid:     "void",
	KindBool:     "bool",
	KindInt8:     "int8",
	KindUint8:    "uint8",
	KindInt16:    "int16",
	KindUint16:   "uint16",
	KindInt32:    "int32",
	KindUint32:   "uint32",
	KindInt64:    "int64",
	KindUint64:   "uint64",
	KindFloat32:  "float32",
	KindFloat64:  "float64",
	KindString:   "string",
	KindObject:   "object",
	KindBoxed:    "boxed",
	KindRecord:   "record",
	KindEnum:     "enum",
	KindFlags:    "flags",
	KindCallback: "callback",
	KindVariant:  "variant",
	KindParam:    "param",
	KindPointer:  "pointer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether k is a fixed-width scalar.
func (k Kind) IsPrimitive() bool {
	return k >= KindBool && k <= KindFloat64
}

// IsPointerLike reports whether k crosses the boundary as a pointer.
func (k Kind) IsPointerLike() bool {
	switch k {
	case KindString, KindObject, KindBoxed, KindRecord, KindCallback, KindVariant, KindParam, KindPointer:
		return true
	}
	return false
}

// Transfer describes who must release a pointer after a call, following
// the GObject introspection convention.
type Transfer uint8

const (
	// TransferNone: the caller retains ownership, the callee must not
	// free or unref.
	TransferNone Transfer = iota
	// TransferContainer: the callee owns the container, the caller owns
	// the elements.
	TransferContainer
	// TransferFull: the callee takes ownership and must free or unref
	// when done.
	TransferFull
)

var transferNames = [...]string{
	TransferNone:      "none",
	TransferContainer: "container",
	TransferFull:      "full",
}

func (t Transfer) String() string {
	if int(t) < len(transferNames) {
		return transferNames[t]
	}
	return "unknown"
}

// SlotKind is the closed set of native call slots a descriptor can map
// onto. Every descriptor maps to exactly one slot; the slot width must
// match the native ABI or memory is corrupted, so the mapping lives here
// rather than at each call site.
type SlotKind uint8

const (
	SlotVoid SlotKind = iota
	SlotU8
	SlotS8
	SlotU16
	SlotS16
	SlotU32
	SlotS32
	SlotU64
	SlotS64
	SlotF32
	SlotF64
	SlotPointer
)

var slotNames = [...]string{
	SlotVoid:    "void",
	SlotU8:      "u8",
	SlotS8:      "s8",
	SlotU16:     "u16",
	SlotS16:     "s16",
	SlotU32:     "u32",
	SlotS32:     "s32",
	SlotU64:     "u64",
	SlotS64:     "s64",
	SlotF32:     "f32",
	SlotF64:     "f64",
	SlotPointer: "pointer",
}

func (s SlotKind) String() string {
	if int(s) < len(slotNames) {
		return slotNames[s]
	}
	return "unknown"
}

// PointerSize is the native pointer width of the current target.
const PointerSize = int(unsafe.Sizeof(uintptr(0)))

// Size returns the slot width in bytes. SlotVoid is zero.
func (s SlotKind) Size() int {
	switch s {
	case SlotVoid:
		return 0
	case SlotU8, SlotS8:
		return 1
	case SlotU16, SlotS16:
		return 2
	case SlotU32, SlotS32, SlotF32:
		return 4
	case SlotU64, SlotS64, SlotF64:
		return 8
	case SlotPointer:
		return PointerSize
	}
	return 0
}

// Signed reports whether the slot is a signed integer slot.
func (s SlotKind) Signed() bool {
	switch s {
	case SlotS8, SlotS16, SlotS32, SlotS64:
		return true
	}
	return false
}
