package gengo

import (
	"fmt"
	"strings"

	"github.com/gtkflux/gobject-runtime/gir"
)

// emitAsync writes the wrapper for an async starter. Pairing is strict:
// the introspection must name the finish function, the finish function
// must have been emitted on the same type, and it must take exactly the
// async result. Anything looser would guess, and a wrong guess here
// corrupts an async completion.
func (n *nsGen) emitAsync(owner *catEntry, recvType, instDesc string, m *gir.Method, emitted map[string]emittedMethod) {
	label := owner.ns + "." + owner.girName

	fin, ok := emitted[m.FinishFunc]
	if !ok {
		n.g.report.skip(label, m.Name, "finish function "+m.FinishFunc+" not available")
		return
	}
	if fin.nParams != 1 {
		n.g.report.skip(label, m.Name, "finish function "+m.FinishFunc+" has extra parameters")
		return
	}
	if m.CanThrow() {
		n.g.report.skip(label, m.Name, "throwing async starter")
		return
	}
	if m.Return != nil && m.Return.Type != nil && m.Return.Type.Name != "none" {
		n.g.report.skip(label, m.Name, "async starter with return value")
		return
	}

	var goParams, args []string
	sawCallback, sawData := false, false
	for i := range paramsOf(m.Parameters) {
		prm := &m.Parameters.Params[i]
		if prm.Type == nil || prm.Type.Name == "" {
			n.g.report.skip(label, m.Name, "unsupported parameter "+prm.Name)
			return
		}
		typeName := prm.Type.Name
		switch {
		case isCancellable(typeName):
			args = append(args, "{Desc: typedesc.Ptr().AsOptional(), Value: nil},")
		case isAsyncReadyCallback(typeName):
			sawCallback = true
			args = append(args, "{Desc: typedesc.CallbackDesc(int(signals.ShapePtr)), Value: fnptr},")
		case sawCallback && typeName == "gpointer" && prm.Closure != "":
			sawData = true
			args = append(args, "{Desc: typedesc.Ptr(), Value: data},")
		default:
			b, ok := n.bindType(prm.Type)
			if !ok || b.cat == catCallback {
				n.g.report.skip(label, m.Name, "unsupported type "+typeName)
				return
			}
			name := goParamName(prm.Name)
			goParams = append(goParams, name+" "+b.goType)
			args = append(args,
				fmt.Sprintf("{Desc: %s, Value: %s},", b.desc(prm.Transfer, prm.IsNullable()), b.argExpr(name)))
		}
	}
	if !sawCallback || !sawData {
		// The user-data slot carries the completion token; an async
		// call without it has nowhere to put it.
		n.g.report.skip(label, m.Name, "no async callback and user-data parameters")
		return
	}

	handlerType := "func(err error)"
	if fin.retType != "" {
		handlerType = fmt.Sprintf("func(result %s, err error)", fin.retType)
	}
	goParams = append(goParams, "handler "+handlerType)

	n.imp(rootPkg)
	n.imp(runtimePkg)
	n.imp(bridgePkg)
	n.imp(typedescPkg)
	n.imp(signalsPkg)

	name := goName(m.Name)
	var b strings.Builder
	fmt.Fprintf(&b, "// %s starts %s; handler runs on the dispatch goroutine\n// when the operation completes.\n", name, m.CIdentifier)
	fmt.Fprintf(&b, "func (v %s) %s(%s) error {\n", recvType, name, strings.Join(goParams, ", "))
	b.WriteString("\tfnptr, data, cancel, err := runtime.Signals().ConnectAsyncReady(func(_, res gobjectruntime.Handle) {\n")
	fmt.Fprintf(&b, "\t\thandler(v.%s(res))\n", fin.goName)
	b.WriteString("\t})\n")
	b.WriteString("\tif err != nil {\n\t\treturn err\n\t}\n")
	fmt.Fprintf(&b, "\t_, err = runtime.Call(%q, %q, []bridge.Arg{\n", owner.library, m.CIdentifier)
	fmt.Fprintf(&b, "\t\t{Desc: %s, Value: v},\n", instDesc)
	for _, a := range args {
		b.WriteString("\t\t" + a + "\n")
	}
	b.WriteString("\t}, typedesc.Void())\n")
	b.WriteString("\tif err != nil {\n\t\tcancel()\n\t\treturn err\n\t}\n")
	b.WriteString("\treturn nil\n}\n")
	n.add(strings.TrimPrefix(recvType, "*")+"."+name, b.String())
}
