package gengo

import "github.com/gtkflux/gobject-runtime/signals"

// callbackShapes maps the callback types the shared trampolines can
// dispatch to their shapes. The native calling convention must match
// the shape's closure signature exactly, so the table is closed: a
// callback absent here makes the method that needs it unsupported,
// which is reported, rather than silently miswired.
//
// Shape names describe slot layout, not meaning; ListBoxSortFunc
// returns a C int through the same S32 return slot ShapePtrBool uses.
var callbackShapes = map[string]int{
	"Gtk.Callback":                signals.ShapeVoid,    // void (widget, data)
	"Gtk.TickCallback":            signals.ShapePtrBool, // gboolean (widget, clock, data)
	"Gtk.ListBoxFilterFunc":       signals.ShapeBool,    // gboolean (row, data)
	"Gtk.ListBoxSortFunc":         signals.ShapePtrBool, // int (row1, row2, data)
	"Gtk.ListBoxUpdateHeaderFunc": signals.ShapePtr,     // void (row, before, data)
	"Gtk.FlowBoxFilterFunc":       signals.ShapeBool,
	"Gtk.FlowBoxSortFunc":         signals.ShapePtrBool,
}

// asyncReadyCallback is not in the table: it is handled by the
// dedicated one-shot path, paired with the finish function the GIR
// names.
func isAsyncReadyCallback(qualified string) bool {
	return qualified == "Gio.AsyncReadyCallback" || qualified == "AsyncReadyCallback"
}

func isCancellable(qualified string) bool {
	return qualified == "Gio.Cancellable" || qualified == "Cancellable"
}

func isDestroyNotify(qualified string) bool {
	return qualified == "GLib.DestroyNotify" || qualified == "DestroyNotify"
}
