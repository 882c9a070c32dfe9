package gengo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gtkflux/gobject-runtime/gir"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// fieldInfo is the resolved shape of one record field: enough to place
// it in the layout and, when expr is non-empty, to emit accessors.
type fieldInfo struct {
	cat    typeCategory
	goType string
	desc   typedesc.Desc
	expr   string // descriptor expression; "" means layout-only
}

// fieldInfoOf resolves one record field. ok is false for fields the
// layout calculator cannot place (arrays, unknown types), which makes
// the whole record opaque.
func (n *nsGen) fieldInfoOf(f *gir.Field) (fieldInfo, bool) {
	t := f.Type
	if t == nil || t.Name == "" {
		return fieldInfo{}, false
	}
	if sb, ok := scalarTypes[t.Name]; ok {
		return fieldInfo{cat: catScalar, goType: sb.goType,
			desc: typedesc.Primitive(sb.kind), expr: sb.desc}, true
	}
	switch t.Name {
	case "utf8", "filename":
		return fieldInfo{cat: catString, goType: "string",
			desc: typedesc.Str(typedesc.TransferNone),
			expr: "typedesc.Str(typedesc.TransferNone)"}, true
	case "gpointer":
		n.imp(rootPkg)
		return fieldInfo{cat: catPointer, goType: "gobjectruntime.Handle",
			desc: typedesc.Ptr(), expr: "typedesc.Ptr()"}, true
	}

	e := n.g.cat.resolve(n.ns.Name, t.Name)
	if e == nil {
		return fieldInfo{}, false
	}
	switch e.cat {
	case catEnum:
		qual := n.qualify(e)
		return fieldInfo{cat: catEnum, goType: qual + e.goName,
			desc: typedesc.EnumDesc(e.cName),
			expr: "typedesc.EnumDesc(" + strconv.Quote(e.cName) + ")"}, true
	case catFlags:
		qual := n.qualify(e)
		return fieldInfo{cat: catFlags, goType: qual + e.goName,
			desc: typedesc.FlagsDesc(e.cName),
			expr: "typedesc.FlagsDesc(" + strconv.Quote(e.cName) + ")"}, true
	case catClass, catInterface, catBoxed, catCallback:
		n.imp(rootPkg)
		return fieldInfo{cat: catPointer, goType: "gobjectruntime.Handle",
			desc: typedesc.Ptr(), expr: "typedesc.Ptr()"}, true
	case catRecord:
		if strings.HasSuffix(t.CType, "*") {
			n.imp(rootPkg)
			return fieldInfo{cat: catPointer, goType: "gobjectruntime.Handle",
				desc: typedesc.Ptr(), expr: "typedesc.Ptr()"}, true
		}
		// Embedded by value: the nested layout is inlined, no accessor.
		sub, ok := n.recordDesc(e)
		if !ok {
			return fieldInfo{}, false
		}
		return fieldInfo{cat: catRecord, desc: sub}, true
	}
	return fieldInfo{}, false
}

// recordDesc builds the full record descriptor for a catalog entry,
// recursing into embedded records.
func (n *nsGen) recordDesc(e *catEntry) (typedesc.Desc, bool) {
	if e.record == nil || len(e.record.Fields) == 0 {
		return typedesc.Desc{}, false
	}
	fields := make([]typedesc.Field, 0, len(e.record.Fields))
	for i := range e.record.Fields {
		f := &e.record.Fields[i]
		fi, ok := n.fieldInfoOf(f)
		if !ok {
			return typedesc.Desc{}, false
		}
		fields = append(fields, typedesc.Field{Name: f.Name, Desc: fi.desc})
	}
	return typedesc.RecordDesc(e.cName, fields), true
}

func (n *nsGen) emitRecord(re *gir.Record) {
	e := n.g.cat.resolve(n.ns.Name, re.Name)
	if e == nil {
		return
	}
	name := e.goName
	n.imp(rootPkg)

	var b strings.Builder
	fmt.Fprintf(&b, "// %s wraps the %s record.\ntype %s struct {\n\tnative gobjectruntime.Handle\n}\n\n", name, e.cName, name)
	fmt.Fprintf(&b, "// As%s types an existing native block as a %s.\nfunc As%s(h gobjectruntime.Handle) %s { return %s{native: h} }\n\n", name, name, name, name, name)
	fmt.Fprintf(&b, "func (v *%s) Native() gobjectruntime.Handle { return v.native }\n", name)
	n.add(name, b.String())

	// Resolve every field first; one unplaceable field poisons the
	// layout, so the record degrades to an opaque handle.
	infos := make([]fieldInfo, len(re.Fields))
	tdFields := make([]typedesc.Field, 0, len(re.Fields))
	opaque := len(re.Fields) == 0
	for i := range re.Fields {
		fi, ok := n.fieldInfoOf(&re.Fields[i])
		if !ok {
			opaque = true
			break
		}
		infos[i] = fi
		tdFields = append(tdFields, typedesc.Field{Name: re.Fields[i].Name, Desc: fi.desc})
	}
	if opaque {
		if len(re.Fields) > 0 {
			n.g.report.unsupported(n.ns.Name + "." + re.Name)
		}
	} else {
		layout := n.g.calc.Record(e.cName, tdFields)
		n.emitRecordAlloc(re, e, layout.Size)
		for i := range re.Fields {
			n.emitFieldAccessors(re, e, &re.Fields[i], infos[i], int64(layout.Offsets[re.Fields[i].Name]))
		}
	}

	instDesc := "typedesc.Ptr()"
	if e.cat == catBoxed {
		instDesc = fmt.Sprintf("typedesc.BoxedDesc(%q, %q, %q, typedesc.TransferNone)",
			e.cName, e.library, e.getType)
	}
	n.emitCallables(e, "*"+name, instDesc, re.Ctors, re.Methods, nil, nil)
}

// emitRecordAlloc writes the heap constructor (and Free for plain
// records) when the record has no introspected constructor of its own.
func (n *nsGen) emitRecordAlloc(re *gir.Record, e *catEntry, size int) {
	if len(re.Ctors) > 0 || size <= 0 {
		return
	}
	n.imp(runtimePkg)
	name := e.goName

	var b strings.Builder
	lib, getType := "", ""
	if e.cat == catBoxed {
		lib, getType = e.library, e.getType
	}
	fmt.Fprintf(&b, "// New%s allocates a zeroed %s on the native heap.\n", name, e.cName)
	fmt.Fprintf(&b, "func New%s() (*%s, error) {\n", name, name)
	fmt.Fprintf(&b, "\th, err := runtime.Alloc(%d, %q, %q)\n", size, lib, getType)
	b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	fmt.Fprintf(&b, "\treturn &%s{native: h}, nil\n}\n", name)

	if e.cat == catRecord {
		fmt.Fprintf(&b, "\n// Free releases a %s obtained from New%s.\n", name, name)
		fmt.Fprintf(&b, "func (v *%s) Free() error {\n\treturn runtime.Free(v.native)\n}\n", name)
	}
	n.add("New"+name, b.String())
}

func (n *nsGen) emitFieldAccessors(re *gir.Record, e *catEntry, f *gir.Field, fi fieldInfo, off int64) {
	if f.IsPrivate() || fi.expr == "" {
		return
	}
	n.imp(runtimePkg)
	n.imp(typedescPkg)
	name := e.goName
	fname := goName(f.Name)
	if fname == "" {
		return
	}

	var zero, cast, store string
	switch fi.cat {
	case catScalar:
		if fi.goType == "bool" {
			zero = "false"
		} else {
			zero = "0"
		}
		cast = "out.(" + fi.goType + ")"
		store = "value"
	case catString:
		zero = `""`
		cast = "out.(string)"
		store = "value"
	case catEnum:
		zero = "0"
		cast = fi.goType + "(out.(int32))"
		store = "int32(value)"
	case catFlags:
		zero = "0"
		cast = fi.goType + "(out.(uint32))"
		store = "uint32(value)"
	default:
		zero = "gobjectruntime.NilHandle"
		cast = "out.(gobjectruntime.Handle)"
		store = "value"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// %s reads the %s field of the native %s.\n", fname, f.Name, e.cName)
	fmt.Fprintf(&b, "func (v *%s) %s() (%s, error) {\n", name, fname, fi.goType)
	fmt.Fprintf(&b, "\tout, err := runtime.Read(v.native, %d, %s)\n", off, fi.expr)
	fmt.Fprintf(&b, "\tif err != nil {\n\t\treturn %s, err\n\t}\n", zero)
	fmt.Fprintf(&b, "\treturn %s, nil\n}\n\n", cast)
	fmt.Fprintf(&b, "// Set%s writes the %s field of the native %s.\n", fname, f.Name, e.cName)
	fmt.Fprintf(&b, "func (v *%s) Set%s(value %s) error {\n", name, fname, fi.goType)
	fmt.Fprintf(&b, "\treturn runtime.Write(v.native, %d, %s, %s)\n}\n", off, fi.expr, store)
	n.add(name+"."+fname, b.String())
}
