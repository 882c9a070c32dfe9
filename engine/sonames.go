package engine

import "runtime"

// sonames maps the library names used by generated bindings and the GIR
// shared-library attribute onto the sonames of the GTK4 stack. Config
// LibraryPaths overrides win over this table.
//
// GTK4 ships gdk and gsk inside libgtk-4; they resolve to the same
// object.
var sonamesLinux = map[string]string{
	"glib-2.0":       "libglib-2.0.so.0",
	"gobject-2.0":    "libgobject-2.0.so.0",
	"gio-2.0":        "libgio-2.0.so.0",
	"gtk-4.0":        "libgtk-4.so.1",
	"gdk-4.0":        "libgtk-4.so.1",
	"gsk-4.0":        "libgtk-4.so.1",
	"pango-1.0":      "libpango-1.0.so.0",
	"pangocairo-1.0": "libpangocairo-1.0.so.0",
	"cairo":          "libcairo.so.2",
	"graphene-1.0":   "libgraphene-1.0.so.0",
	"adwaita-1":      "libadwaita-1.so.0",
}

var sonamesDarwin = map[string]string{
	"glib-2.0":       "libglib-2.0.0.dylib",
	"gobject-2.0":    "libgobject-2.0.0.dylib",
	"gio-2.0":        "libgio-2.0.0.dylib",
	"gtk-4.0":        "libgtk-4.1.dylib",
	"gdk-4.0":        "libgtk-4.1.dylib",
	"gsk-4.0":        "libgtk-4.1.dylib",
	"pango-1.0":      "libpango-1.0.0.dylib",
	"pangocairo-1.0": "libpangocairo-1.0.0.dylib",
	"cairo":          "libcairo.2.dylib",
	"graphene-1.0":   "libgraphene-1.0.0.dylib",
	"adwaita-1":      "libadwaita-1.0.dylib",
}

// soname resolves a library name to the object to load. Unknown names
// pass through unchanged so callers can name a soname or path directly.
func soname(library string) string {
	table := sonamesLinux
	if runtime.GOOS == "darwin" {
		table = sonamesDarwin
	}
	if so, ok := table[library]; ok {
		return so
	}
	return library
}
