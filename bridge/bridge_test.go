package bridge

import (
	stderrors "errors"
	"math"
	"testing"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/internal/enginetest"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

type guard struct{ on bool }

func (g *guard) Started() bool { return g.on }

func newTestBridge() (*Bridge, *enginetest.Engine, *guard) {
	e := enginetest.New()
	g := &guard{on: true}
	return New(e, g), e, g
}

func TestCall_GuardBlocksBeforeStart(t *testing.T) {
	b, _, g := newTestBridge()
	g.on = false

	notStarted := errors.NotStarted("", "", "")
	h := gobjectruntime.HandleAt(0x10000)

	checks := []struct {
		name string
		call func() error
	}{
		{"call", func() error {
			_, err := b.Call("gtk-4.0", "gtk_init", nil, typedesc.Void())
			return err
		}},
		{"batch_call", func() error { return b.BatchCall(nil) }},
		{"alloc", func() error {
			_, err := b.Alloc(8, "", "")
			return err
		}},
		{"read", func() error {
			_, err := b.Read(h, 0, typedesc.Int32())
			return err
		}},
		{"write", func() error { return b.Write(h, 0, typedesc.Int32(), int32(1)) }},
		{"read_pointer", func() error {
			_, err := b.ReadPointer(h, 0, 0)
			return err
		}},
		{"gvalue_new", func() error {
			_, err := b.NewGValue(typedesc.Int32())
			return err
		}},
		{"error_slot", func() error {
			_, err := b.NewErrorSlot()
			return err
		}},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if err := c.call(); !stderrors.Is(err, notStarted) {
				t.Fatalf("want not_started, got %v", err)
			}
		})
	}
}

func TestCall_NilRequiredArgumentFailsBeforeInvoke(t *testing.T) {
	b, e, _ := newTestBridge()
	e.Register("gtk-4.0", "gtk_label_set_text", func(e *enginetest.Engine, args []uint64) uint64 {
		return 0
	})

	args := []Arg{
		{Desc: typedesc.ObjectDesc("GtkLabel", typedesc.TransferNone), Value: nil},
		{Desc: typedesc.Str(typedesc.TransferNone), Value: "hi"},
	}
	_, err := b.Call("gtk-4.0", "gtk_label_set_text", args, typedesc.Void())

	var re *errors.Error
	if !stderrors.As(err, &re) || re.Kind != errors.KindUndefinedArgument {
		t.Fatalf("want undefined_argument, got %v", err)
	}
	if re.ArgIndex != 0 || re.Symbol != "gtk_label_set_text" {
		t.Fatalf("error should carry index and symbol: %v", re)
	}
	if e.CallCount("gtk-4.0", "gtk_label_set_text") != 0 {
		t.Fatal("validation failure must happen before any native call")
	}
}

func TestCall_OptionalNilPassesNull(t *testing.T) {
	b, e, _ := newTestBridge()

	var got []uint64
	e.Register("gtk-4.0", "gtk_widget_set_tooltip_text", func(e *enginetest.Engine, args []uint64) uint64 {
		got = append([]uint64(nil), args...)
		return 0
	})

	obj := e.NewObject("GtkButton")
	args := []Arg{
		{Desc: typedesc.ObjectDesc("GtkButton", typedesc.TransferNone), Value: gobjectruntime.HandleAt(obj.Addr)},
		{Desc: typedesc.Str(typedesc.TransferNone).AsOptional(), Value: nil},
	}
	if _, err := b.Call("gtk-4.0", "gtk_widget_set_tooltip_text", args, typedesc.Void()); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != uint64(obj.Addr) || got[1] != 0 {
		t.Fatalf("args = %v, want [addr, NULL]", got)
	}
}

func TestCall_ScalarMarshaling(t *testing.T) {
	b, e, _ := newTestBridge()

	var got []uint64
	e.Register("demo", "demo_scalars", func(e *enginetest.Engine, args []uint64) uint64 {
		got = args
		return 0
	})

	args := []Arg{
		{Desc: typedesc.Bool(), Value: true},
		{Desc: typedesc.Int32(), Value: int32(-5)},
		{Desc: typedesc.EnumDesc("GtkOrientation"), Value: 1},
		{Desc: typedesc.FlagsDesc("GApplicationFlags"), Value: uint32(6)},
		{Desc: typedesc.Float64(), Value: 2.5},
	}
	if _, err := b.Call("demo", "demo_scalars", args, typedesc.Void()); err != nil {
		t.Fatal(err)
	}

	if got[0] != 1 {
		t.Errorf("bool slot = %d, want 1", got[0])
	}
	if int32(got[1]) != -5 {
		t.Errorf("int32 slot = %d, want -5", int32(got[1]))
	}
	if got[2] != 1 || got[3] != 6 {
		t.Errorf("enum/flags slots = %d, %d", got[2], got[3])
	}
	if math.Float64frombits(got[4]) != 2.5 {
		t.Errorf("float64 slot = %v", math.Float64frombits(got[4]))
	}
}

func TestCall_TypeMismatchNamesArgument(t *testing.T) {
	b, e, _ := newTestBridge()
	e.Register("demo", "demo_int", func(e *enginetest.Engine, args []uint64) uint64 { return 0 })

	_, err := b.Call("demo", "demo_int", []Arg{
		{Desc: typedesc.Int32(), Value: "not an int"},
	}, typedesc.Void())

	var re *errors.Error
	if !stderrors.As(err, &re) || re.Kind != errors.KindTypeMismatch {
		t.Fatalf("want type_mismatch, got %v", err)
	}
	if re.ArgIndex != 0 {
		t.Fatalf("error should carry the argument index: %v", re)
	}
}

func TestCall_StringArgCopiedAndFreed(t *testing.T) {
	b, e, _ := newTestBridge()

	var seen string
	e.Register("gtk-4.0", "gtk_label_new", func(e *enginetest.Engine, args []uint64) uint64 {
		seen = e.CString(uintptr(args[0]))
		return uint64(e.NewObject("GtkLabel").Addr)
	})

	ret, err := b.Call("gtk-4.0", "gtk_label_new",
		[]Arg{{Desc: typedesc.Str(typedesc.TransferNone), Value: "hello"}},
		typedesc.ObjectDesc("GtkLabel", typedesc.TransferNone))
	if err != nil {
		t.Fatal(err)
	}
	if seen != "hello" {
		t.Fatalf("native side saw %q", seen)
	}
	if _, ok := ret.(gobjectruntime.Handle); !ok {
		t.Fatalf("object return should be a handle, got %T", ret)
	}
	if e.CallCount("glib-2.0", "g_free") != 1 {
		t.Fatal("transfer-none string copy must be freed after the call")
	}
}

func TestCall_StringReturnTransferFull(t *testing.T) {
	b, e, _ := newTestBridge()

	e.Register("gtk-4.0", "gtk_label_get_text", func(e *enginetest.Engine, args []uint64) uint64 {
		return uint64(e.NewCString("owned result"))
	})

	got, err := b.Call("gtk-4.0", "gtk_label_get_text", nil, typedesc.Str(typedesc.TransferFull))
	if err != nil {
		t.Fatal(err)
	}
	if got != "owned result" {
		t.Fatalf("got %q", got)
	}
	if e.CallCount("glib-2.0", "g_free") != 1 {
		t.Fatal("transfer-full return must be released after copying")
	}
}

func TestBatchCall_AbortsAtFirstFailure(t *testing.T) {
	b, e, _ := newTestBridge()

	e.Register("demo", "demo_first", func(e *enginetest.Engine, args []uint64) uint64 { return 0 })
	e.Register("demo", "demo_third", func(e *enginetest.Engine, args []uint64) uint64 { return 0 })

	err := b.BatchCall([]CallSpec{
		{Library: "demo", Symbol: "demo_first"},
		{Library: "demo", Symbol: "demo_missing"},
		{Library: "demo", Symbol: "demo_third"},
	})
	if err == nil {
		t.Fatal("batch with a failing call must error")
	}
	if e.CallCount("demo", "demo_first") != 1 {
		t.Fatal("calls before the failure should have run")
	}
	if e.CallCount("demo", "demo_third") != 0 {
		t.Fatal("calls after the failure must not run")
	}

	var re *errors.Error
	if !stderrors.As(err, &re) || re.Symbol != "demo_missing" {
		t.Fatalf("error should name the failing symbol: %v", err)
	}
}

func TestBatchCall_ValidatesAllUpFront(t *testing.T) {
	b, e, _ := newTestBridge()
	e.Register("demo", "demo_first", func(e *enginetest.Engine, args []uint64) uint64 { return 0 })

	err := b.BatchCall([]CallSpec{
		{Library: "demo", Symbol: "demo_first"},
		{Library: "demo", Symbol: "demo_second",
			Args: []Arg{{Desc: typedesc.Str(typedesc.TransferNone), Value: nil}}},
	})
	if err == nil {
		t.Fatal("nil required argument anywhere in the batch must fail")
	}
	if e.CallCount("demo", "demo_first") != 0 {
		t.Fatal("no call may run when any call in the batch is invalid")
	}
}

func TestMemory_FieldRoundTrip(t *testing.T) {
	b, e, _ := newTestBridge()

	typeCalls := 0
	e.Register("gdk-4.0", "gdk_rgba_get_type", func(e *enginetest.Engine, args []uint64) uint64 {
		typeCalls++
		return 0x1234
	})

	h, err := b.Alloc(16, "gdk-4.0", "gdk_rgba_get_type")
	if err != nil {
		t.Fatal(err)
	}
	if typeCalls != 1 {
		t.Fatal("allocation must force type registration first")
	}

	if err := b.Write(h, 0, typedesc.Float32(), float32(0.5)); err != nil {
		t.Fatal(err)
	}
	if err := b.Write(h, 8, typedesc.Float64(), 0.25); err != nil {
		t.Fatal(err)
	}

	v, err := b.Read(h, 0, typedesc.Float32())
	if err != nil || v != float32(0.5) {
		t.Fatalf("float32 field = %v, %v", v, err)
	}
	v, err = b.Read(h, 8, typedesc.Float64())
	if err != nil || v != 0.25 {
		t.Fatalf("float64 field = %v, %v", v, err)
	}

	if err := b.Free(h); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Read(h, 0, typedesc.Float32()); err == nil {
		t.Fatal("read after free must fail")
	}
}

func TestMemory_OutOfBoundsFieldAccess(t *testing.T) {
	b, _, _ := newTestBridge()

	h, err := b.Alloc(4, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Write(h, 2, typedesc.Int32(), int32(1)); err == nil {
		t.Fatal("write straddling the allocation end must fail")
	}
	var re *errors.Error
	err = b.Write(h, 8, typedesc.Int32(), int32(1))
	if !stderrors.As(err, &re) || re.Kind != errors.KindOutOfRange {
		t.Fatalf("want out_of_range, got %v", err)
	}
}

func TestMemory_StringField(t *testing.T) {
	b, _, _ := newTestBridge()

	h, err := b.Alloc(typedesc.PointerSize, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Write(h, 0, typedesc.Str(typedesc.TransferNone), "sidecar"); err != nil {
		t.Fatal(err)
	}
	v, err := b.Read(h, 0, typedesc.Str(typedesc.TransferNone))
	if err != nil || v != "sidecar" {
		t.Fatalf("string field = %v, %v", v, err)
	}
}

func TestMemory_PointerIndirection(t *testing.T) {
	b, _, _ := newTestBridge()

	outer, err := b.Alloc(typedesc.PointerSize, "", "")
	if err != nil {
		t.Fatal(err)
	}
	inner, err := b.Alloc(16, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Write(inner, 8, typedesc.Int32(), int32(99)); err != nil {
		t.Fatal(err)
	}

	if err := b.WritePointer(outer, 0, inner); err != nil {
		t.Fatal(err)
	}
	elem, err := b.ReadPointer(outer, 0, 8)
	if err != nil {
		t.Fatal(err)
	}
	v, err := b.Read(elem, 0, typedesc.Int32())
	if err != nil || v != int32(99) {
		t.Fatalf("through-pointer read = %v, %v", v, err)
	}

	// NULL pointer dereferences as a nil handle, not an error.
	blank, err := b.Alloc(typedesc.PointerSize, "", "")
	if err != nil {
		t.Fatal(err)
	}
	h, err := b.ReadPointer(blank, 0, 4)
	if err != nil || !h.IsNil() {
		t.Fatalf("NULL pointer = %v, %v", h, err)
	}
}

func TestGValue_ScalarRoundTrip(t *testing.T) {
	b, _, _ := newTestBridge()

	cases := []struct {
		name string
		desc typedesc.Desc
		val  any
	}{
		{"bool", typedesc.Bool(), true},
		{"int32", typedesc.Int32(), int32(-7)},
		{"uint32", typedesc.Uint32(), uint32(12)},
		{"double", typedesc.Float64(), 3.5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			gv, err := b.NewGValue(c.desc)
			if err != nil {
				t.Fatal(err)
			}
			if err := b.GValueSet(gv, c.desc, c.val); err != nil {
				t.Fatal(err)
			}
			got, err := b.GValueGet(gv, c.desc)
			if err != nil {
				t.Fatal(err)
			}
			if got != c.val {
				t.Fatalf("round trip = %v, want %v", got, c.val)
			}
			if err := b.GValueUnset(gv); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestGValue_StringRoundTrip(t *testing.T) {
	b, _, _ := newTestBridge()

	d := typedesc.Str(typedesc.TransferNone)
	gv, err := b.NewGValue(d)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.GValueSet(gv, d, "status"); err != nil {
		t.Fatal(err)
	}
	got, err := b.GValueGet(gv, d)
	if err != nil || got != "status" {
		t.Fatalf("round trip = %v, %v", got, err)
	}
}

func TestGValue_RegisteredTypeUsesGetType(t *testing.T) {
	b, e, _ := newTestBridge()

	e.Register("gdk-4.0", "gdk_rgba_get_type", func(e *enginetest.Engine, args []uint64) uint64 {
		return 0xABCD
	})

	d := typedesc.BoxedDesc("GdkRGBA", "gdk-4.0", "gdk_rgba_get_type", typedesc.TransferNone)
	if _, err := b.NewGValue(d); err != nil {
		t.Fatal(err)
	}
	if e.CallCount("gdk-4.0", "gdk_rgba_get_type") != 1 {
		t.Fatal("registered types must obtain their runtime GType")
	}
}

func TestGValue_UnrepresentableKind(t *testing.T) {
	b, _, _ := newTestBridge()
	if _, err := b.NewGValue(typedesc.Void()); err == nil {
		t.Fatal("void has no GValue representation")
	}
}

func TestTakeError_CleanSlot(t *testing.T) {
	b, _, _ := newTestBridge()

	slot, err := b.NewErrorSlot()
	if err != nil {
		t.Fatal(err)
	}
	ge, err := b.TakeError(slot)
	if err != nil {
		t.Fatal(err)
	}
	if ge != nil {
		t.Fatalf("clean slot should drain to nil, got %v", ge)
	}
}

func TestTakeError_FilledSlot(t *testing.T) {
	b, e, _ := newTestBridge()

	e.Register("glib-2.0", "g_error_free", func(e *enginetest.Engine, args []uint64) uint64 {
		e.Free(uintptr(args[0]))
		return 0
	})

	// Build a native GError by hand: domain, code, message pointer.
	gerr, err := b.Alloc(16, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Write(gerr, gerrDomainOff, typedesc.Uint32(), uint32(131)); err != nil {
		t.Fatal(err)
	}
	if err := b.Write(gerr, gerrCodeOff, typedesc.Int32(), int32(2)); err != nil {
		t.Fatal(err)
	}
	msg := e.NewCString("No such file or directory")
	if err := b.WritePointer(gerr, gerrMessageOff, gobjectruntime.HandleAt(msg)); err != nil {
		t.Fatal(err)
	}

	slot, err := b.NewErrorSlot()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.WritePointer(slot, 0, gerr); err != nil {
		t.Fatal(err)
	}

	ge, err := b.TakeError(slot)
	if err != nil {
		t.Fatal(err)
	}
	if ge == nil {
		t.Fatal("filled slot must produce an error")
	}
	if ge.Domain != 131 || ge.Code != 2 || ge.Message != "No such file or directory" {
		t.Fatalf("drained error = %+v", ge)
	}
	if e.CallCount("glib-2.0", "g_error_free") != 1 {
		t.Fatal("native error must be freed after draining")
	}
}
