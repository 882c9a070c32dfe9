package enginetest

import (
	"errors"
	"testing"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	runtimeerrors "github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

func TestInvoke_UnknownSymbol(t *testing.T) {
	e := New()
	_, err := e.Invoke("glib-2.0", "g_nope", gobjectruntime.Signature{}, nil)
	if !errors.Is(err, runtimeerrors.UnknownSymbol("", "", nil)) {
		t.Fatalf("want unknown_symbol, got %v", err)
	}
}

func TestInvoke_CountsCalls(t *testing.T) {
	e := New()
	if e.CallCount("glib-2.0", "g_malloc0") != 0 {
		t.Fatal("counter should start at zero")
	}
	_, err := e.Invoke("glib-2.0", "g_malloc0", gobjectruntime.Signature{}, []uint64{16})
	if err != nil {
		t.Fatal(err)
	}
	if e.CallCount("glib-2.0", "g_malloc0") != 1 {
		t.Fatal("counter should increment per invoke")
	}
}

func TestHeap_Bounds(t *testing.T) {
	e := New()
	addr := e.Alloc(8)

	if err := e.Write(addr, 0, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatalf("in-bounds write: %v", err)
	}
	dst := make([]byte, 8)
	if err := e.Read(addr, 0, dst); err != nil {
		t.Fatalf("in-bounds read: %v", err)
	}
	if dst[0] != 1 || dst[7] != 8 {
		t.Fatalf("round trip lost data: %v", dst)
	}

	if err := e.Read(addr, 4, dst); err == nil {
		t.Error("read past allocation end must fail")
	}
	if err := e.Write(addr, -1, []byte{0}); err == nil {
		t.Error("write before allocation must fail")
	}

	e.Free(addr)
	if err := e.Read(addr, 0, dst[:1]); err == nil {
		t.Error("read after free must fail")
	}
}

func TestCString_RoundTrip(t *testing.T) {
	e := New()
	addr := e.NewCString("hello world")
	if got := e.CString(addr); got != "hello world" {
		t.Fatalf("got %q", got)
	}
	if e.CString(0) != "" {
		t.Fatal("NULL string should read empty")
	}
}

func TestObject_RefCountLifecycle(t *testing.T) {
	e := New()
	obj := e.NewObject("GtkLabel")

	sig := gobjectruntime.Signature{Ret: typedesc.SlotPointer, Args: []typedesc.SlotKind{typedesc.SlotPointer}}
	if _, err := e.Invoke("gobject-2.0", "g_object_ref", sig, []uint64{uint64(obj.Addr)}); err != nil {
		t.Fatal(err)
	}
	if obj.Refs != 2 {
		t.Fatalf("refs = %d, want 2", obj.Refs)
	}

	unref := gobjectruntime.Signature{Ret: typedesc.SlotVoid, Args: []typedesc.SlotKind{typedesc.SlotPointer}}
	e.Invoke("gobject-2.0", "g_object_unref", unref, []uint64{uint64(obj.Addr)})
	if e.Destroyed(obj.Addr) {
		t.Fatal("object destroyed while references remain")
	}
	e.Invoke("gobject-2.0", "g_object_unref", unref, []uint64{uint64(obj.Addr)})
	if !e.Destroyed(obj.Addr) {
		t.Fatal("object should be destroyed at zero refs")
	}
}

func TestObject_RefSinkFloating(t *testing.T) {
	e := New()
	obj := e.NewFloatingObject("GtkButton")

	sig := gobjectruntime.Signature{Ret: typedesc.SlotPointer, Args: []typedesc.SlotKind{typedesc.SlotPointer}}
	e.Invoke("gobject-2.0", "g_object_ref_sink", sig, []uint64{uint64(obj.Addr)})
	if obj.Floating || obj.Refs != 1 {
		t.Fatalf("sink should consume the floating ref: floating=%v refs=%d", obj.Floating, obj.Refs)
	}
	e.Invoke("gobject-2.0", "g_object_ref_sink", sig, []uint64{uint64(obj.Addr)})
	if obj.Refs != 2 {
		t.Fatalf("second sink should add a ref, refs=%d", obj.Refs)
	}
}

func TestObject_WeakNotifyOnDestroy(t *testing.T) {
	e := New()
	obj := e.NewObject("GtkLabel")

	fired := false
	fnptr, data, _ := e.WeakNotify(func() { fired = true })

	wr := gobjectruntime.Signature{Ret: typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer, typedesc.SlotPointer, typedesc.SlotPointer}}
	e.Invoke("gobject-2.0", "g_object_weak_ref", wr, []uint64{uint64(obj.Addr), uint64(fnptr), uint64(data)})

	unref := gobjectruntime.Signature{Ret: typedesc.SlotVoid, Args: []typedesc.SlotKind{typedesc.SlotPointer}}
	e.Invoke("gobject-2.0", "g_object_unref", unref, []uint64{uint64(obj.Addr)})

	if !fired {
		t.Fatal("weak notify must fire at finalization")
	}
}

func TestSignals_ConnectEmitDisconnect(t *testing.T) {
	e := New()
	obj := e.NewObject("GtkButton")

	var got []uint64
	fnptr, release, err := e.NewClosure(gobjectruntime.Signature{
		Ret:  typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer, typedesc.SlotPointer},
	}, func(args []uint64) uint64 {
		got = append(got, args...)
		return 0
	})
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	name := e.NewCString("clicked")
	connect := gobjectruntime.Signature{Ret: typedesc.SlotU64, Args: make([]typedesc.SlotKind, 6)}
	id, err := e.Invoke("gobject-2.0", "g_signal_connect_data", connect,
		[]uint64{uint64(obj.Addr), uint64(name), uint64(fnptr), 77, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("handler id must be non-zero")
	}

	e.Emit(obj, "clicked")
	if len(got) != 2 || got[0] != uint64(obj.Addr) || got[1] != 77 {
		t.Fatalf("handler args = %v", got)
	}

	disc := gobjectruntime.Signature{Ret: typedesc.SlotVoid, Args: make([]typedesc.SlotKind, 2)}
	e.Invoke("gobject-2.0", "g_signal_handler_disconnect", disc, []uint64{uint64(obj.Addr), id})
	got = nil
	e.Emit(obj, "clicked")
	if len(got) != 0 {
		t.Fatal("disconnected handler must not fire")
	}
	if obj.ConnectionCount("clicked") != 0 {
		t.Fatal("connection should be gone")
	}
}

func TestGValue_PropertyCells(t *testing.T) {
	e := New()
	obj := e.NewObject("GtkLabel")

	gv := e.Alloc(24)
	init := gobjectruntime.Signature{Ret: typedesc.SlotPointer, Args: make([]typedesc.SlotKind, 2)}
	e.Invoke("gobject-2.0", "g_value_init", init, []uint64{uint64(gv), uint64(typedesc.GTypeInt)})

	set := gobjectruntime.Signature{Ret: typedesc.SlotVoid, Args: make([]typedesc.SlotKind, 2)}
	e.Invoke("gobject-2.0", "g_value_set_int", set, []uint64{uint64(gv), 42})

	name := e.NewCString("margin")
	setProp := gobjectruntime.Signature{Ret: typedesc.SlotVoid, Args: make([]typedesc.SlotKind, 3)}
	e.Invoke("gobject-2.0", "g_object_set_property", setProp, []uint64{uint64(obj.Addr), uint64(name), uint64(gv)})

	if v, ok := obj.Property("margin"); !ok || v != 42 {
		t.Fatalf("property cell = %d, %v", v, ok)
	}

	gv2 := e.Alloc(24)
	e.Invoke("gobject-2.0", "g_value_init", init, []uint64{uint64(gv2), uint64(typedesc.GTypeInt)})
	e.Invoke("gobject-2.0", "g_object_get_property", setProp, []uint64{uint64(obj.Addr), uint64(name), uint64(gv2)})

	get := gobjectruntime.Signature{Ret: typedesc.SlotS32, Args: make([]typedesc.SlotKind, 1)}
	v, err := e.Invoke("gobject-2.0", "g_value_get_int", get, []uint64{uint64(gv2)})
	if err != nil || v != 42 {
		t.Fatalf("get = %d, %v", v, err)
	}
}
