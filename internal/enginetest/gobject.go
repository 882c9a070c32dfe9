package enginetest

// The fake GObject world: typed objects with reference counts, weak
// notifications, signal connections and property cells, plus the
// gobject-2.0 symbol surface the runtime drives it through.

// Object is one fake native GObject instance.
type Object struct {
	Addr     uintptr
	TypeName string
	Refs     int
	Floating bool
	AppID    string

	props map[string]uint64
	conns []*conn
	weak  []weakRef

	nextConnID uint64

	engine *Engine
}

type conn struct {
	id          uint64
	signal      string
	handler     uintptr
	data        uintptr
	destroyData uintptr
	after       bool
}

type weakRef struct {
	fnptr uintptr
	data  uintptr
}

// NewObject creates a fake native object with one strong reference, the
// way g_object_new returns instances. Widget-like types start floating.
func (e *Engine) NewObject(typeName string) *Object {
	addr := e.Alloc(32)
	obj := &Object{
		Addr:     addr,
		TypeName: typeName,
		Refs:     1,
		props:    make(map[string]uint64),
		engine:   e,
	}
	e.objects[addr] = obj
	return obj
}

// NewFloatingObject creates an object with a floating initial
// reference, matching gtk_widget_new semantics.
func (e *Engine) NewFloatingObject(typeName string) *Object {
	obj := e.NewObject(typeName)
	obj.Floating = true
	return obj
}

// Object returns the fake object at addr, or nil.
func (e *Engine) Object(addr uintptr) *Object {
	return e.objects[addr]
}

// Destroyed reports whether the object at addr has been finalized.
func (e *Engine) Destroyed(addr uintptr) bool {
	return e.objects[addr] == nil
}

// Emit fires a signal on obj the way native emission would: every
// connected handler runs in connection order with the instance first,
// the connection's user data last, and params in between. The return
// value of the last handler wins.
func (e *Engine) Emit(obj *Object, signal string, params ...uint64) uint64 {
	var ret uint64
	for _, c := range append([]*conn(nil), obj.conns...) {
		if c.signal != signal {
			continue
		}
		args := make([]uint64, 0, len(params)+2)
		args = append(args, uint64(obj.Addr))
		args = append(args, params...)
		args = append(args, uint64(c.data))
		if v, ok := e.InvokeClosure(c.handler, args); ok {
			ret = v
		}
	}
	return ret
}

// ConnectionCount returns the number of live connections for a signal,
// used to assert the never-two-live-connections invariant.
func (o *Object) ConnectionCount(signal string) int {
	n := 0
	for _, c := range o.conns {
		if c.signal == signal {
			n++
		}
	}
	return n
}

// Property returns the raw stored property cell.
func (o *Object) Property(name string) (uint64, bool) {
	v, ok := o.props[name]
	return v, ok
}

// SetProperty stores a raw property cell directly (test setup).
func (o *Object) SetProperty(name string, v uint64) {
	o.props[name] = v
}

func (o *Object) unref() {
	o.Refs--
	if o.Refs > 0 {
		return
	}
	// Finalize: weak notifications fire, then connections die with
	// their destroy-data notifications, then memory goes away.
	for _, w := range o.weak {
		o.engine.fireNotify(w.fnptr, w.data)
	}
	o.weak = nil
	for _, c := range o.conns {
		if c.destroyData != 0 {
			o.engine.fireNotify(c.destroyData, c.data)
		}
	}
	o.conns = nil
	delete(o.engine.objects, o.Addr)
	o.engine.Free(o.Addr)
}

func (e *Engine) object(addr uint64) *Object {
	return e.objects[uintptr(addr)]
}

func (e *Engine) registerGObject() {
	lib := "gobject-2.0"

	e.Register(lib, "g_object_ref", func(e *Engine, args []uint64) uint64 {
		if obj := e.object(args[0]); obj != nil {
			obj.Refs++
		}
		return args[0]
	})

	e.Register(lib, "g_object_ref_sink", func(e *Engine, args []uint64) uint64 {
		if obj := e.object(args[0]); obj != nil {
			if obj.Floating {
				obj.Floating = false
			} else {
				obj.Refs++
			}
		}
		return args[0]
	})

	e.Register(lib, "g_object_unref", func(e *Engine, args []uint64) uint64 {
		if obj := e.object(args[0]); obj != nil {
			obj.unref()
		}
		return 0
	})

	e.Register(lib, "g_object_weak_ref", func(e *Engine, args []uint64) uint64 {
		if obj := e.object(args[0]); obj != nil {
			obj.weak = append(obj.weak, weakRef{fnptr: uintptr(args[1]), data: uintptr(args[2])})
		}
		return 0
	})

	e.Register(lib, "g_object_weak_unref", func(e *Engine, args []uint64) uint64 {
		if obj := e.object(args[0]); obj != nil {
			for i, w := range obj.weak {
				if w.fnptr == uintptr(args[1]) && w.data == uintptr(args[2]) {
					obj.weak = append(obj.weak[:i], obj.weak[i+1:]...)
					break
				}
			}
		}
		return 0
	})

	e.Register(lib, "g_type_name_from_instance", func(e *Engine, args []uint64) uint64 {
		obj := e.object(args[0])
		if obj == nil {
			return 0
		}
		return uint64(e.NewCString(obj.TypeName))
	})

	e.Register(lib, "g_signal_connect_data", func(e *Engine, args []uint64) uint64 {
		obj := e.object(args[0])
		if obj == nil {
			return 0
		}
		obj.nextConnID++
		obj.conns = append(obj.conns, &conn{
			id:          obj.nextConnID,
			signal:      e.CString(uintptr(args[1])),
			handler:     uintptr(args[2]),
			data:        uintptr(args[3]),
			destroyData: uintptr(args[4]),
			after:       args[5]&1 != 0, // G_CONNECT_AFTER
		})
		return obj.nextConnID
	})

	e.Register(lib, "g_signal_handler_disconnect", func(e *Engine, args []uint64) uint64 {
		obj := e.object(args[0])
		if obj == nil {
			return 0
		}
		for i, c := range obj.conns {
			if c.id == args[1] {
				obj.conns = append(obj.conns[:i], obj.conns[i+1:]...)
				if c.destroyData != 0 {
					e.fireNotify(c.destroyData, c.data)
				}
				break
			}
		}
		return 0
	})

	// GValue layout in the fake heap: gtype word at +0, payload at +8.
	e.Register(lib, "g_value_init", func(e *Engine, args []uint64) uint64 {
		e.writeWord(uintptr(args[0]), 0, args[1])
		return args[0]
	})
	e.Register(lib, "g_value_unset", func(e *Engine, args []uint64) uint64 {
		e.writeWord(uintptr(args[0]), 0, 0)
		e.writeWord(uintptr(args[0]), 8, 0)
		return 0
	})

	setters := []string{
		"g_value_set_boolean", "g_value_set_int", "g_value_set_uint",
		"g_value_set_int64", "g_value_set_uint64", "g_value_set_float",
		"g_value_set_double", "g_value_set_enum", "g_value_set_flags",
		"g_value_set_object", "g_value_set_boxed", "g_value_set_param",
		"g_value_set_variant", "g_value_set_pointer",
	}
	for _, name := range setters {
		e.Register(lib, name, func(e *Engine, args []uint64) uint64 {
			e.writeWord(uintptr(args[0]), 8, args[1])
			return 0
		})
	}
	e.Register(lib, "g_value_set_string", func(e *Engine, args []uint64) uint64 {
		// The GValue owns a copy, like the real setter.
		var dup uint64
		if args[1] != 0 {
			dup = uint64(e.NewCString(e.CString(uintptr(args[1]))))
		}
		e.writeWord(uintptr(args[0]), 8, dup)
		return 0
	})

	getters := []string{
		"g_value_get_boolean", "g_value_get_int", "g_value_get_uint",
		"g_value_get_int64", "g_value_get_uint64", "g_value_get_float",
		"g_value_get_double", "g_value_get_enum", "g_value_get_flags",
		"g_value_get_object", "g_value_get_boxed", "g_value_get_param",
		"g_value_get_variant", "g_value_get_pointer", "g_value_get_string",
	}
	for _, name := range getters {
		e.Register(lib, name, func(e *Engine, args []uint64) uint64 {
			return e.readWord(uintptr(args[0]), 8)
		})
	}

	e.Register(lib, "g_object_set_property", func(e *Engine, args []uint64) uint64 {
		obj := e.object(args[0])
		if obj == nil {
			return 0
		}
		obj.props[e.CString(uintptr(args[1]))] = e.readWord(uintptr(args[2]), 8)
		return 0
	})
	e.Register(lib, "g_object_get_property", func(e *Engine, args []uint64) uint64 {
		obj := e.object(args[0])
		if obj == nil {
			return 0
		}
		e.writeWord(uintptr(args[2]), 8, obj.props[e.CString(uintptr(args[1]))])
		return 0
	})
}

func (e *Engine) registerGTK() {
	e.Register("gtk-4.0", "gtk_init", func(e *Engine, args []uint64) uint64 {
		return 0
	})
	e.Register("gtk-4.0", "gtk_application_new", func(e *Engine, args []uint64) uint64 {
		app := e.NewObject("GtkApplication")
		app.AppID = e.CString(uintptr(args[0]))
		return uint64(app.Addr)
	})
	e.Register("gio-2.0", "g_application_register", func(e *Engine, args []uint64) uint64 {
		return 1 // TRUE, no error written
	})
	// adw_init is deliberately absent: optional subsystem init must
	// swallow its failure.
}
