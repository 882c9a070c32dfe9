package gengo

import (
	"fmt"
	"strings"
)

// emitRegisterTypes writes the per-namespace class registration hook.
// Registration is what lets the identity registry pick the most derived
// wrapper for an instance, so applications call it right after runtime
// start, before the first wrap.
func (n *nsGen) emitRegisterTypes() {
	if len(n.ns.Classes) == 0 {
		return
	}
	n.imp(rootPkg)
	n.imp(handlesPkg)

	var b strings.Builder
	b.WriteString("// RegisterTypes installs this package's wrapper classes into reg.\n")
	b.WriteString("func RegisterTypes(reg *handles.Registry) {\n")
	for i := range n.ns.Classes {
		cl := &n.ns.Classes[i]
		e := n.g.cat.resolve(n.ns.Name, cl.Name)
		if e == nil {
			continue
		}
		fmt.Fprintf(&b, "\treg.RegisterClass(handles.Class{Name: %q, New: func(h gobjectruntime.Handle) gobjectruntime.Wrapper {\n", e.cName)
		fmt.Fprintf(&b, "\t\tv := As%s(h)\n\t\treturn &v\n\t}})\n", e.goName)
	}
	b.WriteString("}\n")
	n.add("RegisterTypes", b.String())
}
