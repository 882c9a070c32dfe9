package gir

import (
	"encoding/xml"
	"strings"
)

// XML namespace URLs used by GIR documents. encoding/xml matches
// qualified attributes and elements by these URLs, not by prefix.
const (
	nsCore = "http://www.gtk.org/introspection/core/1.0"
	nsC    = "http://www.gtk.org/introspection/c/1.0"
	nsGLib = "http://www.gtk.org/introspection/glib/1.0"
)

// Repository is the root of a GIR document.
type Repository struct {
	XMLName    xml.Name    `xml:"repository"`
	Version    string      `xml:"version,attr"`
	Includes   []Include   `xml:"include"`
	Namespaces []Namespace `xml:"namespace"`
}

// Namespace returns the named namespace, or nil.
func (r *Repository) Namespace(name string) *Namespace {
	for i := range r.Namespaces {
		if r.Namespaces[i].Name == name {
			return &r.Namespaces[i]
		}
	}
	return nil
}

// Include names another repository this one depends on.
type Include struct {
	Name    string `xml:"name,attr"`
	Version string `xml:"version,attr"`
}

// Namespace holds every introspected entity of one library namespace.
type Namespace struct {
	Name               string        `xml:"name,attr"`
	Version            string        `xml:"version,attr"`
	SharedLibrary      string        `xml:"shared-library,attr"`
	IdentifierPrefixes string        `xml:"http://www.gtk.org/introspection/c/1.0 identifier-prefixes,attr"`
	SymbolPrefixes     string        `xml:"http://www.gtk.org/introspection/c/1.0 symbol-prefixes,attr"`
	Classes            []Class       `xml:"class"`
	Interfaces         []Interface   `xml:"interface"`
	Records            []Record      `xml:"record"`
	Enums              []Enumeration `xml:"enumeration"`
	Bitfields          []Enumeration `xml:"bitfield"`
	Callbacks          []Callback    `xml:"callback"`
	Functions          []Function    `xml:"function"`
}

// SharedLibraries splits the comma-separated shared-library attribute.
func (n *Namespace) SharedLibraries() []string {
	if n.SharedLibrary == "" {
		return nil
	}
	parts := strings.Split(n.SharedLibrary, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Class describes a GObject class.
type Class struct {
	Name         string       `xml:"name,attr"`
	CType        string       `xml:"http://www.gtk.org/introspection/c/1.0 type,attr"`
	Parent       string       `xml:"parent,attr"`
	TypeName     string       `xml:"http://www.gtk.org/introspection/glib/1.0 type-name,attr"`
	GetType      string       `xml:"http://www.gtk.org/introspection/glib/1.0 get-type,attr"`
	Abstract     string       `xml:"abstract,attr"`
	Implements   []Implements `xml:"implements"`
	Constructors []Function   `xml:"constructor"`
	Methods      []Method     `xml:"method"`
	Functions    []Function   `xml:"function"`
	Properties   []Property   `xml:"property"`
	Signals      []Signal     `xml:"http://www.gtk.org/introspection/glib/1.0 signal"`
	Fields       []Field      `xml:"field"`
}

// IsAbstract reports whether the class cannot be instantiated directly.
func (c *Class) IsAbstract() bool { return girBool(c.Abstract) }

// Method returns the named method, or nil.
func (c *Class) Method(name string) *Method {
	for i := range c.Methods {
		if c.Methods[i].Name == name {
			return &c.Methods[i]
		}
	}
	return nil
}

// Implements names an interface a class implements.
type Implements struct {
	Name string `xml:"name,attr"`
}

// Interface describes a GObject interface.
type Interface struct {
	Name     string     `xml:"name,attr"`
	CType    string     `xml:"http://www.gtk.org/introspection/c/1.0 type,attr"`
	TypeName string     `xml:"http://www.gtk.org/introspection/glib/1.0 type-name,attr"`
	GetType  string     `xml:"http://www.gtk.org/introspection/glib/1.0 get-type,attr"`
	Methods  []Method   `xml:"method"`
	Signals  []Signal   `xml:"http://www.gtk.org/introspection/glib/1.0 signal"`
	Props    []Property `xml:"property"`
}

// Record describes a C struct. When GetType is present the record is a
// registered boxed type; otherwise it is a plain struct.
type Record struct {
	Name     string     `xml:"name,attr"`
	CType    string     `xml:"http://www.gtk.org/introspection/c/1.0 type,attr"`
	TypeName string     `xml:"http://www.gtk.org/introspection/glib/1.0 type-name,attr"`
	GetType  string     `xml:"http://www.gtk.org/introspection/glib/1.0 get-type,attr"`
	Opaque   string     `xml:"opaque,attr"`
	Fields   []Field    `xml:"field"`
	Methods  []Method   `xml:"method"`
	Ctors    []Function `xml:"constructor"`
}

// IsBoxed reports whether the record is a registered boxed type.
func (r *Record) IsBoxed() bool { return r.GetType != "" }

// Field is one struct member.
type Field struct {
	Name     string   `xml:"name,attr"`
	Private  string   `xml:"private,attr"`
	Writable string   `xml:"writable,attr"`
	Type     *TypeRef `xml:"type"`
}

// IsPrivate reports whether bindings must not expose the field.
func (f *Field) IsPrivate() bool { return girBool(f.Private) }

// Enumeration describes an enum or bitfield and its members.
type Enumeration struct {
	Name     string   `xml:"name,attr"`
	CType    string   `xml:"http://www.gtk.org/introspection/c/1.0 type,attr"`
	TypeName string   `xml:"http://www.gtk.org/introspection/glib/1.0 type-name,attr"`
	GetType  string   `xml:"http://www.gtk.org/introspection/glib/1.0 get-type,attr"`
	Members  []Member `xml:"member"`
}

// Member is one enum value.
type Member struct {
	Name        string `xml:"name,attr"`
	Value       string `xml:"value,attr"`
	CIdentifier string `xml:"http://www.gtk.org/introspection/c/1.0 identifier,attr"`
}

// Callback describes a named callback type.
type Callback struct {
	Name       string       `xml:"name,attr"`
	CType      string       `xml:"http://www.gtk.org/introspection/c/1.0 type,attr"`
	Parameters *Parameters  `xml:"parameters"`
	Return     *ReturnValue `xml:"return-value"`
}

// Function describes a free function or constructor.
type Function struct {
	Name        string       `xml:"name,attr"`
	CIdentifier string       `xml:"http://www.gtk.org/introspection/c/1.0 identifier,attr"`
	Throws      string       `xml:"throws,attr"`
	Parameters  *Parameters  `xml:"parameters"`
	Return      *ReturnValue `xml:"return-value"`
}

// CanThrow reports whether the function takes a trailing GError slot.
func (f *Function) CanThrow() bool { return girBool(f.Throws) }

// Method describes an instance method.
type Method struct {
	Name        string       `xml:"name,attr"`
	CIdentifier string       `xml:"http://www.gtk.org/introspection/c/1.0 identifier,attr"`
	FinishFunc  string       `xml:"http://www.gtk.org/introspection/glib/1.0 finish-func,attr"`
	Throws      string       `xml:"throws,attr"`
	Parameters  *Parameters  `xml:"parameters"`
	Return      *ReturnValue `xml:"return-value"`
}

// CanThrow reports whether the method takes a trailing GError slot.
func (m *Method) CanThrow() bool { return girBool(m.Throws) }

// Parameters groups the instance parameter and the positional ones.
type Parameters struct {
	Instance *Parameter  `xml:"instance-parameter"`
	Params   []Parameter `xml:"parameter"`
}

// Parameter is one argument of a callable.
type Parameter struct {
	Name      string   `xml:"name,attr"`
	Transfer  string   `xml:"transfer-ownership,attr"`
	Nullable  string   `xml:"nullable,attr"`
	Optional  string   `xml:"optional,attr"`
	Direction string   `xml:"direction,attr"`
	Scope     string   `xml:"scope,attr"`
	Closure   string   `xml:"closure,attr"`
	Destroy   string   `xml:"destroy,attr"`
	Type      *TypeRef `xml:"type"`
}

// IsNullable reports whether NULL is an accepted value.
func (p *Parameter) IsNullable() bool { return girBool(p.Nullable) || girBool(p.Optional) }

// IsOut reports whether the parameter is an out or inout parameter.
func (p *Parameter) IsOut() bool { return p.Direction == "out" || p.Direction == "inout" }

// ReturnValue describes a callable's return.
type ReturnValue struct {
	Transfer string   `xml:"transfer-ownership,attr"`
	Nullable string   `xml:"nullable,attr"`
	Type     *TypeRef `xml:"type"`
}

// Property describes a GObject property.
type Property struct {
	Name          string   `xml:"name,attr"`
	Writable      string   `xml:"writable,attr"`
	ConstructOnly string   `xml:"construct-only,attr"`
	Setter        string   `xml:"setter,attr"`
	Getter        string   `xml:"getter,attr"`
	Type          *TypeRef `xml:"type"`
}

// IsWritable reports whether the property can be set after construction.
func (p *Property) IsWritable() bool { return girBool(p.Writable) && !girBool(p.ConstructOnly) }

// Signal describes a GObject signal.
type Signal struct {
	Name       string       `xml:"name,attr"`
	When       string       `xml:"when,attr"`
	Parameters *Parameters  `xml:"parameters"`
	Return     *ReturnValue `xml:"return-value"`
}

// TypeRef is a reference to a type, possibly in another namespace
// ("Gdk.RGBA") and possibly with a C type ("GdkRGBA*").
type TypeRef struct {
	Name  string `xml:"name,attr"`
	CType string `xml:"http://www.gtk.org/introspection/c/1.0 type,attr"`
}

// Qualified splits the name into its namespace part (empty for
// same-namespace references) and local name.
func (t *TypeRef) Qualified() (namespace, name string) {
	if t == nil {
		return "", ""
	}
	if ns, local, ok := strings.Cut(t.Name, "."); ok {
		return ns, local
	}
	return "", t.Name
}

// girBool parses the "0"/"1"/"true"/"false" attribute form.
func girBool(s string) bool {
	return s == "1" || s == "true"
}
