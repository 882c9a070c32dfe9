package gengo

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/gir"
	"github.com/gtkflux/gobject-runtime/typedesc"
	"go.uber.org/zap"
)

// Generator turns decoded GIR repositories into Go binding packages.
// One generator carries the cross-namespace type catalog and the layout
// calculator across all namespaces of a run, so Gtk code referring to
// Gdk types resolves against the same catalog Gdk itself was indexed
// into.
type Generator struct {
	cfg    *Config
	cat    *catalog
	calc   *typedesc.Calculator
	report Report

	// gen is the single emission context, cleared between namespaces
	// rather than reallocated.
	gen nsGen
}

// New creates a generator for cfg. The config must already be
// validated.
func New(cfg *Config) *Generator {
	g := &Generator{
		cfg:  cfg,
		cat:  newCatalog(),
		calc: typedesc.NewCalculator(),
	}
	g.gen.imports = make(map[string]string)
	return g
}

// Report returns the cumulative report of this generator.
func (g *Generator) Report() *Report {
	return &g.report
}

// index registers every configured namespace found in repos into the
// catalog. Indexing everything before emitting anything is what makes
// cross-namespace references order-independent.
func (g *Generator) index(repos []*gir.Repository) {
	for _, repo := range repos {
		for i := range repo.Namespaces {
			ns := &repo.Namespaces[i]
			if nsCfg := g.cfg.nsConfig(ns.Name); nsCfg != nil {
				g.cat.add(ns, nsCfg)
			}
		}
	}
}

// Run generates every configured namespace and writes one package per
// namespace under the output directory.
func (g *Generator) Run(repos []*gir.Repository) (*Report, error) {
	g.index(repos)

	for i := range g.cfg.Namespaces {
		nsCfg := &g.cfg.Namespaces[i]
		ns := findNamespace(repos, nsCfg.Name)
		if ns == nil {
			return nil, errors.InvalidData(errors.PhaseGenerate,
				"namespace "+nsCfg.Name+" not found in any GIR input")
		}

		src, err := g.emitNamespace(ns, nsCfg)
		if err != nil {
			return nil, err
		}

		pkg := nsCfg.PackageName()
		dir := filepath.Join(g.cfg.Out, pkg)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err, "create "+dir)
		}
		path := filepath.Join(dir, pkg+".go")
		if err := os.WriteFile(path, src, 0o644); err != nil {
			return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err, "write "+path)
		}
		g.report.Generated = append(g.report.Generated, path)
		logger().Info("namespace generated",
			zap.String("namespace", nsCfg.Name), zap.String("path", path))
	}
	return &g.report, nil
}

// Emit generates the source of a single configured namespace without
// touching disk.
func (g *Generator) Emit(repos []*gir.Repository, nsName string) ([]byte, error) {
	g.index(repos)
	nsCfg := g.cfg.nsConfig(nsName)
	if nsCfg == nil {
		return nil, errors.InvalidData(errors.PhaseGenerate, "namespace "+nsName+" not configured")
	}
	ns := findNamespace(repos, nsName)
	if ns == nil {
		return nil, errors.InvalidData(errors.PhaseGenerate, "namespace "+nsName+" not found in any GIR input")
	}
	return g.emitNamespace(ns, nsCfg)
}

func findNamespace(repos []*gir.Repository, name string) *gir.Namespace {
	for _, repo := range repos {
		if ns := repo.Namespace(name); ns != nil {
			return ns
		}
	}
	return nil
}

// decl is one emitted top-level declaration, kept separate so a
// formatting failure can be pinned to the declaration that caused it.
type decl struct {
	name string
	src  string
}

// nsGen is the emission state for one namespace.
type nsGen struct {
	g       *Generator
	ns      *gir.Namespace
	cfg     *NamespaceConfig
	lib     string
	decls   []decl
	imports map[string]string // path -> alias ("" for default)
}

// reset points the context at the next namespace and clears the
// declarations and imports accumulated for the previous one.
func (n *nsGen) reset(g *Generator, ns *gir.Namespace, cfg *NamespaceConfig) {
	n.g = g
	n.ns = ns
	n.cfg = cfg
	n.lib = cfg.LibraryName()
	n.decls = n.decls[:0]
	for p := range n.imports {
		delete(n.imports, p)
	}
}

func (g *Generator) emitNamespace(ns *gir.Namespace, nsCfg *NamespaceConfig) ([]byte, error) {
	n := &g.gen
	n.reset(g, ns, nsCfg)

	for i := range ns.Enums {
		n.emitEnum(&ns.Enums[i], false)
	}
	for i := range ns.Bitfields {
		n.emitEnum(&ns.Bitfields[i], true)
	}
	for i := range ns.Records {
		n.emitRecord(&ns.Records[i])
	}
	for i := range ns.Classes {
		n.emitClass(&ns.Classes[i])
	}
	for i := range ns.Interfaces {
		n.emitInterface(&ns.Interfaces[i])
	}
	n.emitFunctions()
	n.emitRegisterTypes()

	return n.assemble()
}

// assemble joins header, imports and declarations and formats the
// result. A formatting failure is a generator bug; the error names the
// declaration that broke so the bug is findable without diffing the
// whole file.
func (n *nsGen) assemble() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by girgen from %s-%s.gir. DO NOT EDIT.\n\n", n.ns.Name, n.ns.Version)
	fmt.Fprintf(&buf, "package %s\n\n", n.cfg.PackageName())

	if len(n.imports) > 0 {
		paths := make([]string, 0, len(n.imports))
		for p := range n.imports {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		buf.WriteString("import (\n")
		for _, p := range paths {
			if alias := n.imports[p]; alias != "" {
				fmt.Fprintf(&buf, "\t%s %q\n", alias, p)
			} else {
				fmt.Fprintf(&buf, "\t%q\n", p)
			}
		}
		buf.WriteString(")\n\n")
	}

	for _, d := range n.decls {
		buf.WriteString(d.src)
		buf.WriteString("\n")
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		name := n.offendingDecl()
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err,
			"generated source does not parse, declaration "+name)
	}
	return src, nil
}

// offendingDecl reformats each declaration in isolation to find the one
// that breaks the file.
func (n *nsGen) offendingDecl() string {
	for _, d := range n.decls {
		probe := "package p\n\n" + d.src
		if _, err := format.Source([]byte(probe)); err != nil {
			return d.name
		}
	}
	return "(unknown)"
}

func (n *nsGen) add(name, src string) {
	n.decls = append(n.decls, decl{name: name, src: src})
}

// Import paths of the runtime packages generated code leans on.
const (
	rootPkg     = "github.com/gtkflux/gobject-runtime"
	typedescPkg = "github.com/gtkflux/gobject-runtime/typedesc"
	bridgePkg   = "github.com/gtkflux/gobject-runtime/bridge"
	runtimePkg  = "github.com/gtkflux/gobject-runtime/runtime"
	signalsPkg  = "github.com/gtkflux/gobject-runtime/signals"
	handlesPkg  = "github.com/gtkflux/gobject-runtime/handles"
)

func (n *nsGen) imp(path string) {
	if _, ok := n.imports[path]; ok {
		return
	}
	alias := ""
	if path == rootPkg {
		alias = "gobjectruntime"
	}
	n.imports[path] = alias
}

// qualify returns the package qualifier ("gdk.") for a catalog entry
// seen from this namespace, recording the import. Same-namespace
// entries need none.
func (n *nsGen) qualify(e *catEntry) string {
	if e.ns == n.ns.Name {
		return ""
	}
	nsCfg := n.g.cfg.nsConfig(e.ns)
	if nsCfg == nil {
		return ""
	}
	pkg := nsCfg.PackageName()
	n.imp(n.g.cfg.Module + "/" + pkg)
	return pkg + "."
}

// binding is the resolved Go-side shape of one GIR type reference.
type binding struct {
	cat         typeCategory
	goType      string
	descTmpl    string // %s is the transfer constant when hasTransfer
	hasTransfer bool
	entry       *catEntry
	qual        string
}

// desc renders the descriptor expression for the given GIR transfer
// attribute.
func (b *binding) desc(transfer string, optional bool) string {
	d := b.descTmpl
	if b.hasTransfer {
		d = fmt.Sprintf(b.descTmpl, transferExpr(transfer))
	}
	if optional {
		d += ".AsOptional()"
	}
	return d
}

// argExpr renders the value expression passed to the bridge for a
// parameter of this binding.
func (b *binding) argExpr(name string) string {
	switch b.cat {
	case catEnum:
		return "int32(" + name + ")"
	case catFlags:
		return "uint32(" + name + ")"
	default:
		return name
	}
}

// bindType resolves one GIR type reference. ok is false for types the
// generator cannot express (arrays, varargs, unconfigured namespaces).
func (n *nsGen) bindType(t *gir.TypeRef) (*binding, bool) {
	if t == nil || t.Name == "" {
		return nil, false
	}
	switch t.Name {
	case "none":
		return &binding{cat: catVoid, descTmpl: "typedesc.Void()"}, true
	case "utf8", "filename":
		return &binding{cat: catString, goType: "string",
			descTmpl: "typedesc.Str(%s)", hasTransfer: true}, true
	case "gpointer":
		n.imp(rootPkg)
		return &binding{cat: catPointer, goType: "gobjectruntime.Handle",
			descTmpl: "typedesc.Ptr()"}, true
	case "Gio.AsyncResult", "AsyncResult", "Gio.Cancellable", "Cancellable":
		// Surfaced as bare handles so async plumbing works without a
		// generated Gio package.
		n.imp(rootPkg)
		return &binding{cat: catPointer, goType: "gobjectruntime.Handle",
			descTmpl: "typedesc.Ptr()"}, true
	}
	if sb, ok := scalarTypes[t.Name]; ok {
		return &binding{cat: catScalar, goType: sb.goType, descTmpl: sb.desc}, true
	}

	e := n.g.cat.resolve(n.ns.Name, t.Name)
	if e == nil {
		return nil, false
	}
	qual := n.qualify(e)
	switch e.cat {
	case catClass, catInterface:
		return &binding{cat: e.cat, goType: "*" + qual + e.goName,
			descTmpl:    "typedesc.ObjectDesc(" + strconv.Quote(e.cName) + ", %s)",
			hasTransfer: true, entry: e, qual: qual}, true
	case catBoxed:
		return &binding{cat: catBoxed, goType: "*" + qual + e.goName,
			descTmpl: fmt.Sprintf("typedesc.BoxedDesc(%q, %q, %q, %%s)",
				e.cName, e.library, e.getType),
			hasTransfer: true, entry: e, qual: qual}, true
	case catRecord:
		return &binding{cat: catRecord, goType: "*" + qual + e.goName,
			descTmpl: "typedesc.Ptr()", entry: e, qual: qual}, true
	case catEnum:
		return &binding{cat: catEnum, goType: qual + e.goName,
			descTmpl: "typedesc.EnumDesc(" + strconv.Quote(e.cName) + ")",
			entry:    e, qual: qual}, true
	case catFlags:
		return &binding{cat: catFlags, goType: qual + e.goName,
			descTmpl: "typedesc.FlagsDesc(" + strconv.Quote(e.cName) + ")",
			entry:    e, qual: qual}, true
	case catCallback:
		return &binding{cat: catCallback, entry: e, qual: qual}, true
	}
	return nil, false
}

// zeroExpr is the zero value of a binding's Go type, for early returns.
func zeroExpr(b *binding) string {
	switch b.cat {
	case catScalar:
		if b.goType == "bool" {
			return "false"
		}
		return "0"
	case catString:
		return `""`
	case catPointer:
		return "gobjectruntime.NilHandle"
	case catEnum, catFlags:
		return "0"
	default:
		return "nil"
	}
}

// shapeExpr names a trampoline shape constant in generated source.
func shapeExpr(shape int) string {
	names := []string{"signals.ShapeVoid", "signals.ShapePtr", "signals.ShapePtr2",
		"signals.ShapePtr3", "signals.ShapeIntInt", "signals.ShapeBool", "signals.ShapePtrBool"}
	if shape >= 0 && shape < len(names) {
		return names[shape]
	}
	return "signals.ShapeVoid"
}
