package gengo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gtkflux/gobject-runtime/gir"
)

// callable is the common view over GIR constructors, methods and
// namespace functions.
type callable struct {
	girName string
	cIdent  string
	throws  bool
	params  []gir.Parameter
	ret     *gir.ReturnValue
}

func fromFunction(f *gir.Function) callable {
	return callable{girName: f.Name, cIdent: f.CIdentifier, throws: f.CanThrow(),
		params: paramsOf(f.Parameters), ret: f.Return}
}

func fromMethod(m *gir.Method) callable {
	return callable{girName: m.Name, cIdent: m.CIdentifier, throws: m.CanThrow(),
		params: paramsOf(m.Parameters), ret: m.Return}
}

func paramsOf(ps *gir.Parameters) []gir.Parameter {
	if ps == nil {
		return nil
	}
	return ps.Params
}

// emittedMethod records the Go surface of an emitted method so async
// starters can type their completion handlers after their finish
// functions.
type emittedMethod struct {
	goName  string
	retType string // "" when the method returns only error
	nParams int
}

func (n *nsGen) emitClass(cl *gir.Class) {
	e := n.g.cat.resolve(n.ns.Name, cl.Name)
	if e == nil {
		return
	}
	name := e.goName
	n.imp(rootPkg)

	var parent *catEntry
	if cl.Parent != "" {
		if pe := n.g.cat.resolve(n.ns.Name, cl.Parent); pe != nil && pe.cat == catClass {
			parent = pe
		}
	}

	var b strings.Builder
	if parent != nil {
		qual := n.qualify(parent)
		fmt.Fprintf(&b, "// %s wraps the %s class.\ntype %s struct {\n\t%s%s\n}\n\n",
			name, e.cName, name, qual, parent.goName)
		fmt.Fprintf(&b, "// As%s types an existing native instance as a %s.\n", name, name)
		fmt.Fprintf(&b, "func As%s(h gobjectruntime.Handle) %s {\n\treturn %s{%s: %sAs%s(h)}\n}\n",
			name, name, name, parent.goName, qual, parent.goName)
	} else {
		fmt.Fprintf(&b, "// %s wraps the %s class.\ntype %s struct {\n\tnative gobjectruntime.Handle\n}\n\n",
			name, e.cName, name)
		fmt.Fprintf(&b, "// As%s types an existing native instance as a %s.\n", name, name)
		fmt.Fprintf(&b, "func As%s(h gobjectruntime.Handle) %s { return %s{native: h} }\n\n",
			name, name, name)
		fmt.Fprintf(&b, "func (v *%s) Native() gobjectruntime.Handle { return v.native }\n", name)
	}
	n.add(name, b.String())

	instDesc := fmt.Sprintf("typedesc.ObjectDesc(%q, typedesc.TransferNone)", e.cName)
	n.emitCallables(e, "*"+name, instDesc, cl.Constructors, cl.Methods, cl.Signals, cl.Properties)

	for i := range cl.Functions {
		f := &cl.Functions[i]
		n.emitFunction(name+"."+f.Name, name+goName(f.Name), fromFunction(f), e)
	}
}

func (n *nsGen) emitInterface(in *gir.Interface) {
	e := n.g.cat.resolve(n.ns.Name, in.Name)
	if e == nil {
		return
	}
	name := e.goName
	n.imp(rootPkg)

	var b strings.Builder
	fmt.Fprintf(&b, "// %s wraps the %s interface.\ntype %s struct {\n\tnative gobjectruntime.Handle\n}\n\n",
		name, e.cName, name)
	fmt.Fprintf(&b, "// As%s types an existing native instance as a %s.\n", name, name)
	fmt.Fprintf(&b, "func As%s(h gobjectruntime.Handle) %s { return %s{native: h} }\n\n",
		name, name, name)
	fmt.Fprintf(&b, "func (v *%s) Native() gobjectruntime.Handle { return v.native }\n", name)
	n.add(name, b.String())

	instDesc := fmt.Sprintf("typedesc.ObjectDesc(%q, typedesc.TransferNone)", e.cName)
	n.emitCallables(e, "*"+name, instDesc, nil, in.Methods, in.Signals, in.Props)
}

// emitCallables writes the constructors, methods, signal surface and
// synthetic property setters of one type.
func (n *nsGen) emitCallables(owner *catEntry, recvType, instDesc string,
	ctors []gir.Function, methods []gir.Method, sigs []gir.Signal, props []gir.Property) {

	label := owner.ns + "." + owner.girName

	for i := range ctors {
		n.emitCtor(owner, &ctors[i])
	}

	emitted := make(map[string]emittedMethod)
	for i := range methods {
		m := &methods[i]
		if m.FinishFunc != "" {
			continue
		}
		if em, ok := n.emitMethod(owner, recvType, instDesc, m); ok {
			emitted[m.Name] = em
		}
	}
	for i := range methods {
		m := &methods[i]
		if m.FinishFunc != "" {
			n.emitAsync(owner, recvType, instDesc, m, emitted)
		}
	}

	for i := range sigs {
		n.emitSignal(owner, recvType, &sigs[i])
	}

	hasMethod := func(name string) bool {
		for i := range methods {
			if methods[i].Name == name {
				return true
			}
		}
		return false
	}
	for i := range props {
		n.emitSyntheticSetter(owner, recvType, label, hasMethod, &props[i])
	}
}

// callParts is the assembled middle of one generated call.
type callParts struct {
	goParams []string
	prelude  []string
	args     []string
	onError  []string // extra lines before returning a call error
	ret      *binding
	retTrans string
	throws   bool

	// errDeclared is set when the prelude already declared err.
	errDeclared bool
}

// buildCall resolves parameters and return of a callable. The second
// result is a skip reason; empty means the call is expressible.
func (n *nsGen) buildCall(c callable) (*callParts, string) {
	if c.cIdent == "" {
		return nil, "no C identifier"
	}
	p := &callParts{throws: c.throws}
	sawCallback := false

	for i := range c.params {
		prm := &c.params[i]
		if prm.IsOut() {
			return nil, "out parameter " + prm.Name
		}
		if prm.Type == nil || prm.Type.Name == "" {
			return nil, "unsupported parameter " + prm.Name
		}

		// Trailing user-data and destroy-notify slots belong to a
		// callback parameter seen earlier.
		if sawCallback {
			if prm.Type.Name == "gpointer" && prm.Closure != "" {
				p.args = append(p.args, "{Desc: typedesc.Ptr(), Value: cbData},")
				continue
			}
			if isDestroyNotify(prm.Type.Name) {
				p.args = append(p.args, "{Desc: typedesc.Ptr(), Value: cbDestroy},")
				continue
			}
		}

		b, ok := n.bindType(prm.Type)
		if !ok {
			return nil, "unsupported type " + prm.Type.Name
		}
		if b.cat == catCallback {
			if sawCallback {
				return nil, "multiple callback parameters"
			}
			qualified := b.entry.ns + "." + b.entry.girName
			shape, known := callbackShapes[qualified]
			if !known {
				return nil, "unsupported callback " + qualified
			}
			if prm.Scope != "notified" {
				return nil, "callback scope " + prm.Scope + " on " + qualified
			}
			sawCallback = true
			n.imp(signalsPkg)
			n.imp(runtimePkg)
			p.goParams = append(p.goParams, "fn signals.Handler")
			p.prelude = append(p.prelude,
				fmt.Sprintf("cbFn, cbData, cbDestroy, cbCancel, err := runtime.Signals().NewCallback(%s, fn)", shapeExpr(shape)),
				"if err != nil {", "\treturn %ZERO%err", "}")
			p.args = append(p.args,
				fmt.Sprintf("{Desc: typedesc.CallbackDesc(int(%s)), Value: cbFn},", shapeExpr(shape)))
			p.onError = append(p.onError, "cbCancel()")
			p.errDeclared = true
			continue
		}

		name := goParamName(prm.Name)
		p.goParams = append(p.goParams, name+" "+b.goType)
		p.args = append(p.args,
			fmt.Sprintf("{Desc: %s, Value: %s},", b.desc(prm.Transfer, prm.IsNullable()), b.argExpr(name)))
	}

	if c.ret != nil && c.ret.Type != nil && c.ret.Type.Name != "none" {
		b, ok := n.bindType(c.ret.Type)
		if !ok {
			return nil, "unsupported return type " + c.ret.Type.Name
		}
		if b.cat == catCallback {
			return nil, "callback return"
		}
		if b.cat != catVoid {
			p.ret = b
			p.retTrans = c.ret.Transfer
		}
	}
	return p, ""
}

// goMethodName maps a GIR method name to Go, folding the get_ prefix
// of plain getters.
func goMethodName(name string) string {
	if rest, ok := strings.CutPrefix(name, "get_"); ok && rest != "" {
		return goName(rest)
	}
	return goName(name)
}

func ctorName(class, girName string) string {
	if girName == "new" {
		return "New" + class
	}
	if rest, ok := strings.CutPrefix(girName, "new_"); ok {
		return "New" + class + goName(rest)
	}
	return "New" + class + goName(girName)
}

func (n *nsGen) emitCtor(owner *catEntry, f *gir.Function) {
	c := fromFunction(f)
	parts, reason := n.buildCall(c)
	if reason != "" {
		n.g.report.skip(owner.ns+"."+owner.girName, f.Name, reason)
		return
	}
	// Constructors always come back as the constructed class, whatever
	// wider type the introspection declares.
	parts.ret = &binding{cat: catClass, goType: "*" + owner.goName,
		descTmpl:    "typedesc.ObjectDesc(" + strconv.Quote(owner.cName) + ", %s)",
		hasTransfer: true, entry: owner}
	if c.ret != nil {
		parts.retTrans = c.ret.Transfer
	}
	if owner.cat == catBoxed || owner.cat == catRecord {
		parts.ret.cat = owner.cat
		parts.ret.descTmpl = "typedesc.Ptr()"
		parts.ret.hasTransfer = false
		if owner.cat == catBoxed {
			parts.ret.descTmpl = fmt.Sprintf("typedesc.BoxedDesc(%q, %q, %q, %%s)",
				owner.cName, owner.library, owner.getType)
			parts.ret.hasTransfer = true
		}
	}

	name := ctorName(owner.goName, f.Name)
	doc := fmt.Sprintf("// %s calls %s.", name, c.cIdent)
	header := fmt.Sprintf("func %s(%s)", name, strings.Join(parts.goParams, ", "))
	n.add(name, n.renderCall(doc, header, "", parts, owner.library, c.cIdent))
}

func (n *nsGen) emitMethod(owner *catEntry, recvType, instDesc string, m *gir.Method) (emittedMethod, bool) {
	c := fromMethod(m)
	label := owner.ns + "." + owner.girName
	parts, reason := n.buildCall(c)
	if reason != "" {
		n.g.report.skip(label, m.Name, reason)
		return emittedMethod{}, false
	}

	name := goMethodName(m.Name)
	doc := fmt.Sprintf("// %s calls %s.", name, c.cIdent)
	header := fmt.Sprintf("func (v %s) %s(%s)", recvType, name, strings.Join(parts.goParams, ", "))
	inst := fmt.Sprintf("{Desc: %s, Value: v},", instDesc)
	n.add(strings.TrimPrefix(recvType, "*")+"."+name,
		n.renderCall(doc, header, inst, parts, owner.library, c.cIdent))

	em := emittedMethod{goName: name, nParams: len(parts.goParams)}
	if parts.ret != nil {
		em.retType = parts.ret.goType
	}
	return em, true
}

func (n *nsGen) emitFunction(label, goFnName string, c callable, owner *catEntry) {
	parts, reason := n.buildCall(c)
	if reason != "" {
		n.g.report.skip("", label, reason)
		return
	}
	lib := n.lib
	if owner != nil {
		lib = owner.library
	}
	doc := fmt.Sprintf("// %s calls %s.", goFnName, c.cIdent)
	header := fmt.Sprintf("func %s(%s)", goFnName, strings.Join(parts.goParams, ", "))
	n.add(goFnName, n.renderCall(doc, header, "", parts, lib, c.cIdent))
}

func (n *nsGen) emitFunctions() {
	for i := range n.ns.Functions {
		f := &n.ns.Functions[i]
		n.emitFunction(f.Name, goName(f.Name), fromFunction(f), nil)
	}
}

// renderCall writes the full function body around the bridge call.
func (n *nsGen) renderCall(doc, header, instArg string, p *callParts, lib, sym string) string {
	n.imp(runtimePkg)
	n.imp(bridgePkg)
	n.imp(typedescPkg)

	retDesc := "typedesc.Void()"
	results := "error"
	zeroPrefix := ""
	if p.ret != nil {
		retDesc = p.ret.desc(p.retTrans, false)
		results = fmt.Sprintf("(%s, error)", p.ret.goType)
		zeroPrefix = zeroExpr(p.ret) + ", "
		if p.ret.cat == catPointer || p.ret.cat == catClass || p.ret.cat == catInterface ||
			p.ret.cat == catRecord || p.ret.cat == catBoxed {
			n.imp(rootPkg)
		}
	}

	var b strings.Builder
	b.WriteString(doc + "\n")
	fmt.Fprintf(&b, "%s %s {\n", header, results)

	for _, line := range p.prelude {
		b.WriteString("\t" + strings.ReplaceAll(line, "%ZERO%", zeroPrefix) + "\n")
	}

	args := "nil"
	if instArg != "" || len(p.args) > 0 {
		var ab strings.Builder
		ab.WriteString("[]bridge.Arg{\n")
		if instArg != "" {
			ab.WriteString("\t\t" + instArg + "\n")
		}
		for _, a := range p.args {
			ab.WriteString("\t\t" + a + "\n")
		}
		if p.throws {
			ab.WriteString("\t\t{Desc: typedesc.Ptr(), Value: errSlot},\n")
		}
		ab.WriteString("\t}")
		args = ab.String()
	} else if p.throws {
		args = "[]bridge.Arg{\n\t\t{Desc: typedesc.Ptr(), Value: errSlot},\n\t}"
	}

	onError := func(indent string) {
		for _, line := range p.onError {
			b.WriteString(indent + line + "\n")
		}
	}

	outVar := "_"
	if p.ret != nil {
		outVar = "out"
	}

	if p.throws {
		b.WriteString("\terrSlot, err := runtime.NewErrorSlot()\n")
		b.WriteString("\tif err != nil {\n")
		onError("\t\t")
		fmt.Fprintf(&b, "\t\treturn %serr\n\t}\n", zeroPrefix)
		fmt.Fprintf(&b, "\t%s, callErr := runtime.Call(%q, %q, %s, %s)\n", outVar, lib, sym, args, retDesc)
		b.WriteString("\tgerr, takeErr := runtime.TakeError(errSlot)\n")
		b.WriteString("\tif callErr != nil {\n")
		onError("\t\t")
		fmt.Fprintf(&b, "\t\treturn %scallErr\n\t}\n", zeroPrefix)
		fmt.Fprintf(&b, "\tif takeErr != nil {\n\t\treturn %stakeErr\n\t}\n", zeroPrefix)
		fmt.Fprintf(&b, "\tif gerr != nil {\n\t\treturn %sgerr\n\t}\n", zeroPrefix)
		if p.ret == nil {
			b.WriteString("\treturn nil\n}\n")
			return b.String()
		}
	} else {
		if p.ret == nil {
			assign := ":="
			if p.errDeclared {
				assign = "="
			}
			fmt.Fprintf(&b, "\t_, err %s runtime.Call(%q, %q, %s, %s)\n", assign, lib, sym, args, retDesc)
			if len(p.onError) > 0 {
				b.WriteString("\tif err != nil {\n")
				onError("\t\t")
				b.WriteString("\t\treturn err\n\t}\n\treturn nil\n}\n")
			} else {
				b.WriteString("\treturn err\n}\n")
			}
			return b.String()
		}
		fmt.Fprintf(&b, "\tout, err := runtime.Call(%q, %q, %s, %s)\n", lib, sym, args, retDesc)
		b.WriteString("\tif err != nil {\n")
		onError("\t\t")
		fmt.Fprintf(&b, "\t\treturn %serr\n\t}\n", zeroPrefix)
	}

	n.renderReturn(&b, p)
	b.WriteString("}\n")
	return b.String()
}

// renderReturn converts the raw bridge result into the declared Go
// return value.
func (n *nsGen) renderReturn(b *strings.Builder, p *callParts) {
	r := p.ret
	switch r.cat {
	case catScalar:
		fmt.Fprintf(b, "\treturn out.(%s), nil\n", r.goType)
	case catString:
		b.WriteString("\treturn out.(string), nil\n")
	case catPointer:
		b.WriteString("\treturn out.(gobjectruntime.Handle), nil\n")
	case catEnum:
		fmt.Fprintf(b, "\treturn %s(out.(int32)), nil\n", r.goType)
	case catFlags:
		fmt.Fprintf(b, "\treturn %s(out.(uint32)), nil\n", r.goType)
	case catClass:
		as := r.qual + "As" + r.entry.goName
		b.WriteString("\th, _ := out.(gobjectruntime.Handle)\n")
		b.WriteString("\tif h.IsNil() {\n\t\treturn nil, nil\n\t}\n")
		fmt.Fprintf(b, "\tw, werr := runtime.Wrap(h, %q, %s)\n", r.entry.cName, transferExpr(p.retTrans))
		b.WriteString("\tif werr != nil {\n\t\treturn nil, werr\n\t}\n")
		fmt.Fprintf(b, "\tif typed, ok := w.(%s); ok {\n\t\treturn typed, nil\n\t}\n", r.goType)
		fmt.Fprintf(b, "\tobj := %s(w.Native())\n\treturn &obj, nil\n", as)
	case catInterface, catRecord, catBoxed:
		as := r.qual + "As" + r.entry.goName
		b.WriteString("\th, _ := out.(gobjectruntime.Handle)\n")
		b.WriteString("\tif h.IsNil() {\n\t\treturn nil, nil\n\t}\n")
		fmt.Fprintf(b, "\tobj := %s(h)\n\treturn &obj, nil\n", as)
	default:
		b.WriteString("\treturn out.(gobjectruntime.Handle), nil\n")
	}
}
