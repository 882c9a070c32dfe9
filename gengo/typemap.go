package gengo

import (
	"strings"

	"github.com/gtkflux/gobject-runtime/gir"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

type typeCategory int

const (
	catVoid typeCategory = iota
	catScalar
	catString
	catPointer // opaque native pointer, surfaces as a Handle
	catEnum
	catFlags
	catClass
	catInterface
	catBoxed
	catRecord
	catCallback
)

// catEntry is one named type known to the catalog, keyed by its
// qualified GIR name ("Gtk.Label").
type catEntry struct {
	cat     typeCategory
	ns      string // owning namespace ("Gtk")
	girName string // GIR-local name ("Label")
	goName  string // exported Go name ("Label")
	cName   string // native type name ("GtkLabel")
	getType string // get_type symbol, empty for plain records
	library string // logical library of the owning namespace

	record   *gir.Record   // set for catBoxed and catRecord
	callback *gir.Callback // set for catCallback
}

// catalog indexes every type of every configured namespace so that
// cross-namespace references resolve during emission.
type catalog struct {
	entries map[string]*catEntry
}

func newCatalog() *catalog {
	return &catalog{entries: make(map[string]*catEntry)}
}

// add indexes all types of one namespace.
func (c *catalog) add(ns *gir.Namespace, nsCfg *NamespaceConfig) {
	lib := nsCfg.LibraryName()
	prefix := ns.IdentifierPrefixes
	if prefix == "" {
		prefix = ns.Name
	}
	cName := func(typeName, cType, girName string) string {
		if typeName != "" {
			return typeName
		}
		if cType != "" {
			return cType
		}
		return prefix + girName
	}

	for i := range ns.Classes {
		cl := &ns.Classes[i]
		c.put(ns.Name, cl.Name, &catEntry{
			cat: catClass, ns: ns.Name, goName: goName(cl.Name),
			cName: cName(cl.TypeName, cl.CType, cl.Name), getType: cl.GetType, library: lib,
		})
	}
	for i := range ns.Interfaces {
		in := &ns.Interfaces[i]
		c.put(ns.Name, in.Name, &catEntry{
			cat: catInterface, ns: ns.Name, goName: goName(in.Name),
			cName: cName(in.TypeName, in.CType, in.Name), getType: in.GetType, library: lib,
		})
	}
	for i := range ns.Records {
		re := &ns.Records[i]
		cat := catRecord
		if re.IsBoxed() {
			cat = catBoxed
		}
		c.put(ns.Name, re.Name, &catEntry{
			cat: cat, ns: ns.Name, goName: goName(re.Name),
			cName: cName(re.TypeName, re.CType, re.Name), getType: re.GetType, library: lib,
			record: re,
		})
	}
	for i := range ns.Enums {
		en := &ns.Enums[i]
		c.put(ns.Name, en.Name, &catEntry{
			cat: catEnum, ns: ns.Name, goName: goName(en.Name),
			cName: cName(en.TypeName, en.CType, en.Name), getType: en.GetType, library: lib,
		})
	}
	for i := range ns.Bitfields {
		bf := &ns.Bitfields[i]
		c.put(ns.Name, bf.Name, &catEntry{
			cat: catFlags, ns: ns.Name, goName: goName(bf.Name),
			cName: cName(bf.TypeName, bf.CType, bf.Name), getType: bf.GetType, library: lib,
		})
	}
	for i := range ns.Callbacks {
		cb := &ns.Callbacks[i]
		c.put(ns.Name, cb.Name, &catEntry{
			cat: catCallback, ns: ns.Name, goName: goName(cb.Name),
			cName: cName("", cb.CType, cb.Name), library: lib,
			callback: cb,
		})
	}
}

func (c *catalog) put(ns, name string, e *catEntry) {
	e.girName = name
	c.entries[ns+"."+name] = e
}

// resolve looks up a possibly-unqualified GIR type name as seen from
// fromNS.
func (c *catalog) resolve(fromNS, name string) *catEntry {
	if strings.Contains(name, ".") {
		return c.entries[name]
	}
	return c.entries[fromNS+"."+name]
}

// scalarBinding maps a GIR fundamental type name onto Go.
type scalarBinding struct {
	goType string
	desc   string // descriptor constructor expression
	kind   typedesc.Kind
}

var scalarTypes = map[string]scalarBinding{
	"gboolean": {"bool", "typedesc.Bool()", typedesc.KindBool},
	"gchar":    {"int8", "typedesc.Primitive(typedesc.KindInt8)", typedesc.KindInt8},
	"gint8":    {"int8", "typedesc.Primitive(typedesc.KindInt8)", typedesc.KindInt8},
	"guchar":   {"uint8", "typedesc.Primitive(typedesc.KindUint8)", typedesc.KindUint8},
	"guint8":   {"uint8", "typedesc.Primitive(typedesc.KindUint8)", typedesc.KindUint8},
	"gint16":   {"int16", "typedesc.Primitive(typedesc.KindInt16)", typedesc.KindInt16},
	"guint16":  {"uint16", "typedesc.Primitive(typedesc.KindUint16)", typedesc.KindUint16},
	"gint":     {"int32", "typedesc.Int32()", typedesc.KindInt32},
	"gint32":   {"int32", "typedesc.Int32()", typedesc.KindInt32},
	"int":      {"int32", "typedesc.Int32()", typedesc.KindInt32},
	"guint":    {"uint32", "typedesc.Uint32()", typedesc.KindUint32},
	"guint32":  {"uint32", "typedesc.Uint32()", typedesc.KindUint32},
	"unsigned": {"uint32", "typedesc.Uint32()", typedesc.KindUint32},
	"gint64":   {"int64", "typedesc.Int64()", typedesc.KindInt64},
	"glong":    {"int64", "typedesc.Int64()", typedesc.KindInt64},
	"gssize":   {"int64", "typedesc.Int64()", typedesc.KindInt64},
	"guint64":  {"uint64", "typedesc.Uint64()", typedesc.KindUint64},
	"gulong":   {"uint64", "typedesc.Uint64()", typedesc.KindUint64},
	"gsize":    {"uint64", "typedesc.Uint64()", typedesc.KindUint64},
	"GType":    {"uint64", "typedesc.Uint64()", typedesc.KindUint64},
	"gfloat":   {"float32", "typedesc.Float32()", typedesc.KindFloat32},
	"gdouble":  {"float64", "typedesc.Float64()", typedesc.KindFloat64},
}

// transferExpr maps a GIR transfer-ownership attribute onto the
// descriptor constant. Unset means none.
func transferExpr(s string) string {
	switch s {
	case "full":
		return "typedesc.TransferFull"
	case "container":
		return "typedesc.TransferContainer"
	default:
		return "typedesc.TransferNone"
	}
}

func transferOf(s string) typedesc.Transfer {
	switch s {
	case "full":
		return typedesc.TransferFull
	case "container":
		return typedesc.TransferContainer
	default:
		return typedesc.TransferNone
	}
}

// goName converts a GIR identifier (snake_case or dash-case) to an
// exported Go name. GIR type names are already CamelCase and pass
// through unchanged.
func goName(s string) string {
	if s == "" {
		return ""
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// goParamName converts a GIR parameter name to a legal Go parameter,
// stepping around keywords.
func goParamName(s string) string {
	name := strings.ReplaceAll(s, "-", "_")
	switch name {
	case "type", "func", "range", "map", "var", "chan", "select", "defer", "go", "interface", "package", "return", "string", "len":
		return name + "_"
	case "":
		return "arg"
	}
	return name
}
