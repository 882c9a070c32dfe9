package runtime

import (
	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/bridge"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// Application wraps the toolkit application object created by Start.
type Application struct {
	h  gobjectruntime.Handle
	rt *Runtime
	id string
}

// Native returns the native application handle.
func (a *Application) Native() gobjectruntime.Handle { return a.h }

// ID returns the application id the runtime started with.
func (a *Application) ID() string { return a.id }

// Activate raises the application's activate signal, the conventional
// entry point for building the first window.
func (a *Application) Activate() error {
	_, err := a.rt.bridge.Call("gio-2.0", "g_application_activate", []bridge.Arg{
		{Desc: typedesc.ObjectDesc("GtkApplication", typedesc.TransferNone), Value: a},
	}, typedesc.Void())
	return err
}

// Quit asks the application to exit its main loop.
func (a *Application) Quit() error {
	_, err := a.rt.bridge.Call("gio-2.0", "g_application_quit", []bridge.Arg{
		{Desc: typedesc.ObjectDesc("GtkApplication", typedesc.TransferNone), Value: a},
	}, typedesc.Void())
	return err
}

const maxAppIDLen = 255

// ValidateAppID checks that id is a well-formed reverse-DNS application
// id: at least two dot-separated segments, each starting with a letter
// and continuing with letters, digits or underscore. This is stricter
// than GLib, which also admits hyphens; a stricter id passes both.
func ValidateAppID(id string) error {
	if id == "" {
		return errors.InvalidAppID(id, "empty")
	}
	if len(id) > maxAppIDLen {
		return errors.InvalidAppID(id, "longer than 255 characters")
	}

	segments := 1
	segStart := 0
	for i := 0; i <= len(id); i++ {
		if i == len(id) || id[i] == '.' {
			if i == segStart {
				return errors.InvalidAppID(id, "empty segment")
			}
			if i < len(id) {
				segments++
				segStart = i + 1
			}
			continue
		}
		c := id[i]
		if i == segStart {
			if !isAlpha(c) {
				return errors.InvalidAppID(id, "segment must start with a letter")
			}
			continue
		}
		if !isAlpha(c) && !isDigit(c) && c != '_' {
			return errors.InvalidAppID(id, "invalid character in segment")
		}
	}

	if segments < 2 {
		return errors.InvalidAppID(id, "needs at least two dot-separated segments")
	}
	return nil
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
