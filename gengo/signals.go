package gengo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gtkflux/gobject-runtime/gir"
	"github.com/gtkflux/gobject-runtime/signals"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// Signal parameter classes the trampoline shapes can carry.
const (
	spClass = iota
	spHandle
	spInt
	spEnum
)

type sigParam struct {
	name string
	kind int
	bind *binding
}

// classifySignalParam decides how one signal parameter surfaces in a
// typed handler. ok is false for parameters no shape can carry
// (strings, floats, unknown types).
func (n *nsGen) classifySignalParam(p *gir.Parameter) (sigParam, bool) {
	b, ok := n.bindType(p.Type)
	if !ok {
		return sigParam{}, false
	}
	sp := sigParam{name: goParamName(p.Name), bind: b}
	switch b.cat {
	case catClass, catInterface:
		sp.kind = spClass
	case catRecord, catBoxed, catPointer:
		sp.kind = spHandle
	case catEnum:
		sp.kind = spEnum
	case catScalar:
		if b.goType != "int32" {
			return sigParam{}, false
		}
		sp.kind = spInt
	default:
		return sigParam{}, false
	}
	return sp, true
}

// resolveShape picks the trampoline shape for a signal, or a reason why
// none fits. Shapes carry parameters in declared order, so a pointer
// between two ints has no shape.
func resolveShape(params []sigParam, returnsBool bool) (int, string) {
	nPtr, nInt := 0, 0
	for _, p := range params {
		switch p.kind {
		case spInt, spEnum:
			nInt++
		default:
			nPtr++
		}
	}
	switch {
	case returnsBool && nInt == 0 && nPtr == 0:
		return signals.ShapeBool, ""
	case returnsBool && nInt == 0 && nPtr == 1:
		return signals.ShapePtrBool, ""
	case returnsBool:
		return 0, "no boolean trampoline shape for this arity"
	case nInt == 2 && nPtr == 0:
		return signals.ShapeIntInt, ""
	case nInt == 0 && nPtr <= 3:
		return []int{signals.ShapeVoid, signals.ShapePtr, signals.ShapePtr2, signals.ShapePtr3}[nPtr], ""
	}
	return 0, "no trampoline shape for this arity"
}

func (n *nsGen) emitSignal(owner *catEntry, recvType string, s *gir.Signal) {
	label := owner.ns + "." + owner.girName
	constName := "Signal" + owner.goName + goName(s.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "// %s names the %q signal of %s.\n", constName, s.Name, owner.cName)
	fmt.Fprintf(&b, "const %s = %s\n", constName, strconv.Quote(s.Name))
	n.add(constName, b.String())

	returnsBool := false
	if s.Return != nil && s.Return.Type != nil && s.Return.Type.Name != "none" {
		if s.Return.Type.Name != "gboolean" {
			n.g.report.skip(label, "signal "+s.Name, "unsupported signal return "+s.Return.Type.Name)
			return
		}
		returnsBool = true
	}

	girParams := paramsOf(s.Parameters)
	params := make([]sigParam, 0, len(girParams))
	for i := range girParams {
		sp, ok := n.classifySignalParam(&girParams[i])
		if !ok {
			typeName := "?"
			if girParams[i].Type != nil {
				typeName = girParams[i].Type.Name
			}
			n.g.report.skip(label, "signal "+s.Name, "unsupported signal parameter "+typeName)
			return
		}
		params = append(params, sp)
	}

	shape, reason := resolveShape(params, returnsBool)
	if reason != "" {
		n.g.report.skip(label, "signal "+s.Name, reason)
		return
	}

	n.imp(runtimePkg)
	n.imp(signalsPkg)

	fnParams := make([]string, len(params))
	for i, p := range params {
		switch p.kind {
		case spClass:
			fnParams[i] = p.name + " " + p.bind.goType
		case spHandle:
			n.imp(rootPkg)
			fnParams[i] = p.name + " gobjectruntime.Handle"
		case spEnum:
			fnParams[i] = p.name + " " + p.bind.goType
		case spInt:
			fnParams[i] = p.name + " int32"
		}
	}
	fnType := "func(" + strings.Join(fnParams, ", ") + ")"
	if returnsBool {
		fnType += " bool"
	}

	helper := "On" + goName(s.Name)
	var h strings.Builder
	fmt.Fprintf(&h, "// %s connects fn to the %q signal. An earlier connection\n// for the same signal on this instance is replaced.\n", helper, s.Name)
	fmt.Fprintf(&h, "func (v %s) %s(fn %s) error {\n", recvType, helper, fnType)
	fmt.Fprintf(&h, "\treturn runtime.Signals().Connect(v, v, %s, %s, func(args []any) any {\n", constName, shapeExpr(shape))

	callArgs := make([]string, len(params))
	for i, p := range params {
		pv := fmt.Sprintf("p%d", i)
		callArgs[i] = pv
		switch p.kind {
		case spClass:
			as := p.bind.qual + "As" + p.bind.entry.goName
			fmt.Fprintf(&h, "\t\tvar %s %s\n", pv, p.bind.goType)
			fmt.Fprintf(&h, "\t\tswitch x := args[%d].(type) {\n", i)
			fmt.Fprintf(&h, "\t\tcase %s:\n\t\t\t%s = x\n", p.bind.goType, pv)
			fmt.Fprintf(&h, "\t\tcase gobjectruntime.Wrapper:\n\t\t\to := %s(x.Native())\n\t\t\t%s = &o\n", as, pv)
			fmt.Fprintf(&h, "\t\tcase gobjectruntime.Handle:\n\t\t\tif !x.IsNil() {\n\t\t\t\to := %s(x)\n\t\t\t\t%s = &o\n\t\t\t}\n\t\t}\n", as, pv)
			n.imp(rootPkg)
		case spHandle:
			fmt.Fprintf(&h, "\t\tvar %s gobjectruntime.Handle\n", pv)
			fmt.Fprintf(&h, "\t\tswitch x := args[%d].(type) {\n", i)
			fmt.Fprintf(&h, "\t\tcase gobjectruntime.Handle:\n\t\t\t%s = x\n", pv)
			fmt.Fprintf(&h, "\t\tcase gobjectruntime.Wrapper:\n\t\t\t%s = x.Native()\n\t\t}\n", pv)
		case spEnum:
			fmt.Fprintf(&h, "\t\traw%d, _ := args[%d].(int32)\n", i, i)
			fmt.Fprintf(&h, "\t\t%s := %s(raw%d)\n", pv, p.bind.goType, i)
		case spInt:
			fmt.Fprintf(&h, "\t\t%s, _ := args[%d].(int32)\n", pv, i)
		}
	}

	call := "fn(" + strings.Join(callArgs, ", ") + ")"
	if returnsBool {
		fmt.Fprintf(&h, "\t\treturn %s\n", call)
	} else {
		fmt.Fprintf(&h, "\t\t%s\n\t\treturn nil\n", call)
	}
	h.WriteString("\t}, nil)\n}\n")
	n.add(strings.TrimPrefix(recvType, "*")+"."+helper, h.String())
}

// emitSyntheticSetter writes a property setter for writable properties
// that have no conventional setter method. The write goes through the
// GValue property machinery instead of a plain symbol call.
func (n *nsGen) emitSyntheticSetter(owner *catEntry, recvType, label string, hasMethod func(string) bool, p *gir.Property) {
	if !p.IsWritable() || p.Setter != "" {
		return
	}
	if hasMethod("set_" + strings.ReplaceAll(p.Name, "-", "_")) {
		return
	}
	if p.Type == nil || p.Type.Name == "" {
		n.g.report.skip(label, "property "+p.Name, "untyped property")
		return
	}

	var goType, descExpr, valueExpr string
	typeName := p.Type.Name
	switch {
	case typeName == "utf8" || typeName == "filename":
		goType, descExpr, valueExpr = "string", "typedesc.Str(typedesc.TransferNone)", "value"
	case typedesc.DescribeSyntheticSetterPrimitive(typeName) != nil:
		sb := scalarTypes[typeName]
		goType, descExpr, valueExpr = sb.goType, sb.desc, "value"
	default:
		e := n.g.cat.resolve(n.ns.Name, typeName)
		if e == nil {
			n.g.report.skip(label, "property "+p.Name, "unsupported property type "+typeName)
			return
		}
		qual := n.qualify(e)
		switch e.cat {
		case catEnum:
			goType = qual + e.goName
			descExpr = "typedesc.EnumDesc(" + strconv.Quote(e.cName) + ")"
			valueExpr = "int32(value)"
		case catFlags:
			goType = qual + e.goName
			descExpr = "typedesc.FlagsDesc(" + strconv.Quote(e.cName) + ")"
			valueExpr = "uint32(value)"
		case catClass, catInterface:
			goType = "*" + qual + e.goName
			descExpr = fmt.Sprintf("typedesc.ObjectDesc(%q, typedesc.TransferNone)", e.cName)
			valueExpr = "value"
		default:
			n.g.report.skip(label, "property "+p.Name, "unsupported property type "+typeName)
			return
		}
	}

	n.imp(runtimePkg)
	n.imp(typedescPkg)
	name := "Set" + goName(p.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "// %s writes the %q property.\n", name, p.Name)
	fmt.Fprintf(&b, "func (v %s) %s(value %s) error {\n", recvType, name, goType)
	fmt.Fprintf(&b, "\treturn runtime.SetProperty(v, %s, %s, %s)\n}\n",
		strconv.Quote(p.Name), descExpr, valueExpr)
	n.add(strings.TrimPrefix(recvType, "*")+"."+name, b.String())
}
