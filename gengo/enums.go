package gengo

import (
	"fmt"
	"strings"

	"github.com/gtkflux/gobject-runtime/gir"
)

// emitEnum writes one enumeration or bitfield as a defined integer type
// with typed constants. Bitfields are unsigned because their values are
// masks.
func (n *nsGen) emitEnum(en *gir.Enumeration, flags bool) {
	name := goName(en.Name)
	underlying := "int32"
	kind := "enumeration"
	if flags {
		underlying = "uint32"
		kind = "flags"
	}

	cName := en.CType
	if e := n.g.cat.resolve(n.ns.Name, en.Name); e != nil {
		cName = e.cName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// %s is the %s %s.\ntype %s %s\n\n", name, cName, kind, name, underlying)

	if len(en.Members) > 0 {
		b.WriteString("const (\n")
		for _, m := range en.Members {
			fmt.Fprintf(&b, "\t%s%s %s = %s\n", name, goName(m.Name), name, m.Value)
		}
		b.WriteString(")\n")
	}

	n.add(name, b.String())
}
