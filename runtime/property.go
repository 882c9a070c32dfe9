package runtime

import (
	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/bridge"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// SetProperty writes a GObject property through the GValue machinery.
// Generated synthetic setters funnel through here for properties that
// have no conventional setter method.
func (r *Runtime) SetProperty(obj gobjectruntime.Wrapper, name string, d typedesc.Desc, value any) error {
	gv, err := r.bridge.NewGValue(d)
	if err != nil {
		return err
	}
	defer func() { _ = r.bridge.GValueUnset(gv) }()

	if err := r.bridge.GValueSet(gv, d, value); err != nil {
		return err
	}
	_, err = r.bridge.Call("gobject-2.0", "g_object_set_property", []bridge.Arg{
		{Desc: typedesc.ObjectDesc("", typedesc.TransferNone), Value: obj},
		{Desc: typedesc.Str(typedesc.TransferNone), Value: name},
		{Desc: typedesc.Ptr(), Value: gv},
	}, typedesc.Void())
	return err
}

// GetProperty reads a GObject property through the GValue machinery.
func (r *Runtime) GetProperty(obj gobjectruntime.Wrapper, name string, d typedesc.Desc) (any, error) {
	gv, err := r.bridge.NewGValue(d)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.bridge.GValueUnset(gv) }()

	_, err = r.bridge.Call("gobject-2.0", "g_object_get_property", []bridge.Arg{
		{Desc: typedesc.ObjectDesc("", typedesc.TransferNone), Value: obj},
		{Desc: typedesc.Str(typedesc.TransferNone), Value: name},
		{Desc: typedesc.Ptr(), Value: gv},
	}, typedesc.Void())
	if err != nil {
		return nil, err
	}
	return r.bridge.GValueGet(gv, d)
}
