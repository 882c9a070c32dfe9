package typedesc

// Desc describes how one value crosses the native boundary. Every value
// passed to or returned from a native call carries exactly one Desc.
type Desc struct {
	Kind     Kind
	Transfer Transfer

	// TypeName is the native type name for object, boxed, enum and
	// flags kinds (e.g. "GtkWidget", "GdkRGBA").
	TypeName string

	// Library and GetTypeFn locate the type-registration function for
	// boxed kinds (e.g. "gdk-4.0", "gdk_rgba_get_type").
	Library   string
	GetTypeFn string

	// Size and Fields describe record kinds.
	Size   int
	Fields []Field

	// Trampoline selects the dispatch shape for callback kinds. The
	// value space is owned by the signals package; the generator fills
	// it from its callback table.
	Trampoline int

	// Optional marks an argument that may be nil (passed as NULL).
	Optional bool
}

// Field is one named member of a record descriptor.
type Field struct {
	Name string
	Desc Desc
}

// Slot returns the native call slot this descriptor occupies.
func (d Desc) Slot() SlotKind {
	switch d.Kind {
	case KindVoid:
		return SlotVoid
	case KindBool:
		// gboolean is a C int.
		return SlotS32
	case KindInt8:
		return SlotS8
	case KindUint8:
		return SlotU8
	case KindInt16:
		return SlotS16
	case KindUint16:
		return SlotU16
	case KindInt32, KindEnum:
		return SlotS32
	case KindUint32, KindFlags:
		return SlotU32
	case KindInt64:
		return SlotS64
	case KindUint64:
		return SlotU64
	case KindFloat32:
		return SlotF32
	case KindFloat64:
		return SlotF64
	default:
		return SlotPointer
	}
}

// Constructors for the descriptor shapes generated code spells out. They
// keep descriptor literals terse at the many thousand call sites the
// generator emits.

func Void() Desc            { return Desc{Kind: KindVoid} }
func Bool() Desc            { return Desc{Kind: KindBool} }
func Int32() Desc           { return Desc{Kind: KindInt32} }
func Uint32() Desc          { return Desc{Kind: KindUint32} }
func Int64() Desc           { return Desc{Kind: KindInt64} }
func Uint64() Desc          { return Desc{Kind: KindUint64} }
func Float32() Desc         { return Desc{Kind: KindFloat32} }
func Float64() Desc         { return Desc{Kind: KindFloat64} }
func Primitive(k Kind) Desc { return Desc{Kind: k} }
func Ptr() Desc             { return Desc{Kind: KindPointer} }

// Str describes a NUL-terminated UTF-8 string with the given transfer.
func Str(t Transfer) Desc {
	return Desc{Kind: KindString, Transfer: t}
}

// ObjectDesc describes a GObject instance of the named class.
func ObjectDesc(typeName string, t Transfer) Desc {
	return Desc{Kind: KindObject, Transfer: t, TypeName: typeName}
}

// BoxedDesc describes a registered boxed type. Library and getTypeFn
// locate the get_type function so allocation can force registration.
func BoxedDesc(typeName, library, getTypeFn string, t Transfer) Desc {
	return Desc{Kind: KindBoxed, Transfer: t, TypeName: typeName, Library: library, GetTypeFn: getTypeFn}
}

// RecordDesc describes a plain C struct accessed by field offset.
func RecordDesc(typeName string, fields []Field) Desc {
	return Desc{Kind: KindRecord, TypeName: typeName, Fields: fields}
}

// EnumDesc describes an enumeration value.
func EnumDesc(typeName string) Desc {
	return Desc{Kind: KindEnum, TypeName: typeName}
}

// FlagsDesc describes a bitfield value.
func FlagsDesc(typeName string) Desc {
	return Desc{Kind: KindFlags, TypeName: typeName}
}

// CallbackDesc describes a callback argument dispatched through the
// given trampoline kind.
func CallbackDesc(trampoline int) Desc {
	return Desc{Kind: KindCallback, Trampoline: trampoline}
}

// VariantDesc describes a GVariant value.
func VariantDesc(t Transfer) Desc {
	return Desc{Kind: KindVariant, Transfer: t}
}

// ParamDesc describes a GParamSpec value.
func ParamDesc(t Transfer) Desc {
	return Desc{Kind: KindParam, Transfer: t}
}

// AsOptional returns a copy of d marked optional.
func (d Desc) AsOptional() Desc {
	d.Optional = true
	return d
}
