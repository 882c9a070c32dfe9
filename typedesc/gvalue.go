package typedesc

// GType is a native GObject type id. Fundamental types are fixed
// constants; everything else is assigned at native type registration.
type GType uint64

// Fundamental GTypes, value = fundamental number << 2.
const (
	GTypeInvalid GType = 0
	GTypeNone    GType = 1 << 2
	GTypeChar    GType = 3 << 2
	GTypeUchar   GType = 4 << 2
	GTypeBoolean GType = 5 << 2
	GTypeInt     GType = 6 << 2
	GTypeUint    GType = 7 << 2
	GTypeLong    GType = 8 << 2
	GTypeUlong   GType = 9 << 2
	GTypeInt64   GType = 10 << 2
	GTypeUint64  GType = 11 << 2
	GTypeEnum    GType = 12 << 2
	GTypeFlags   GType = 13 << 2
	GTypeFloat   GType = 14 << 2
	GTypeDouble  GType = 15 << 2
	GTypeString  GType = 16 << 2
	GTypePointer GType = 17 << 2
	GTypeBoxed   GType = 18 << 2
	GTypeParam   GType = 19 << 2
	GTypeObject  GType = 20 << 2
	GTypeVariant GType = 21 << 2
)

// GValueSize is sizeof(GValue): a GType word plus two data words.
const GValueSize = 24

// GValueInfo names the GValue machinery for one descriptor: the type to
// init with and the set/get symbols in gobject-2.0.
type GValueInfo struct {
	Type GType
	Set  string
	Get  string
}

// GValue returns the GValue triple for d, or ok=false when the kind has
// no GValue representation (void, record, callback).
func (d Desc) GValue() (GValueInfo, bool) {
	switch d.Kind {
	case KindBool:
		return GValueInfo{GTypeBoolean, "g_value_set_boolean", "g_value_get_boolean"}, true
	case KindInt8, KindInt16, KindInt32:
		return GValueInfo{GTypeInt, "g_value_set_int", "g_value_get_int"}, true
	case KindUint8, KindUint16, KindUint32:
		return GValueInfo{GTypeUint, "g_value_set_uint", "g_value_get_uint"}, true
	case KindInt64:
		return GValueInfo{GTypeInt64, "g_value_set_int64", "g_value_get_int64"}, true
	case KindUint64:
		return GValueInfo{GTypeUint64, "g_value_set_uint64", "g_value_get_uint64"}, true
	case KindFloat32:
		return GValueInfo{GTypeFloat, "g_value_set_float", "g_value_get_float"}, true
	case KindFloat64:
		return GValueInfo{GTypeDouble, "g_value_set_double", "g_value_get_double"}, true
	case KindString:
		return GValueInfo{GTypeString, "g_value_set_string", "g_value_get_string"}, true
	case KindEnum:
		return GValueInfo{GTypeEnum, "g_value_set_enum", "g_value_get_enum"}, true
	case KindFlags:
		return GValueInfo{GTypeFlags, "g_value_set_flags", "g_value_get_flags"}, true
	case KindObject:
		return GValueInfo{GTypeObject, "g_value_set_object", "g_value_get_object"}, true
	case KindBoxed:
		return GValueInfo{GTypeBoxed, "g_value_set_boxed", "g_value_get_boxed"}, true
	case KindParam:
		return GValueInfo{GTypeParam, "g_value_set_param", "g_value_get_param"}, true
	case KindVariant:
		return GValueInfo{GTypeVariant, "g_value_set_variant", "g_value_get_variant"}, true
	case KindPointer:
		return GValueInfo{GTypePointer, "g_value_set_pointer", "g_value_get_pointer"}, true
	}
	return GValueInfo{}, false
}

// syntheticSetterKinds maps introspected scalar type names to descriptor
// kinds for generated property setters that have no explicit setter
// method.
var syntheticSetterKinds = map[string]Kind{
	"gboolean": KindBool,
	"gint":     KindInt32,
	"gint32":   KindInt32,
	"guint":    KindUint32,
	"guint32":  KindUint32,
	"gint64":   KindInt64,
	"guint64":  KindUint64,
	"gfloat":   KindFloat32,
	"gdouble":  KindFloat64,
	"utf8":     KindString,
	"filename": KindString,
}

// DescribeSyntheticSetterPrimitive maps an introspected scalar type name
// to the GValue-ready descriptor a synthetic property setter needs.
// Returns nil for names that require enum/flags/class/interface-specific
// construction; callers fall back to a kind-specific path.
func DescribeSyntheticSetterPrimitive(typeName string) *Desc {
	k, ok := syntheticSetterKinds[typeName]
	if !ok {
		return nil
	}
	return &Desc{Kind: k}
}
