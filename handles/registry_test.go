package handles

import (
	stderrors "errors"
	"testing"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/internal/enginetest"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

type widget struct {
	h gobjectruntime.Handle
}

func (w *widget) Native() gobjectruntime.Handle { return w.h }

type button struct {
	widget
}

func newTestRegistry() (*Registry, *enginetest.Engine) {
	e := enginetest.New()
	r := New(e)
	r.RegisterClass(Class{Name: "GtkWidget", New: func(h gobjectruntime.Handle) gobjectruntime.Wrapper {
		return &widget{h: h}
	}})
	r.RegisterClass(Class{Name: "GtkButton", New: func(h gobjectruntime.Handle) gobjectruntime.Wrapper {
		return &button{widget{h: h}}
	}})
	r.RegisterClass(Class{Name: "GtkLabel", New: func(h gobjectruntime.Handle) gobjectruntime.Wrapper {
		return &widget{h: h}
	}})
	return r, e
}

func nativeUnref(e *enginetest.Engine, addr uintptr) {
	sig := gobjectruntime.Signature{Ret: typedesc.SlotVoid, Args: []typedesc.SlotKind{typedesc.SlotPointer}}
	e.Invoke("gobject-2.0", "g_object_unref", sig, []uint64{uint64(addr)})
}

func nativeRef(e *enginetest.Engine, addr uintptr) {
	sig := gobjectruntime.Signature{Ret: typedesc.SlotPointer, Args: []typedesc.SlotKind{typedesc.SlotPointer}}
	e.Invoke("gobject-2.0", "g_object_ref", sig, []uint64{uint64(addr)})
}

func TestWrap_IdentityDeduplicates(t *testing.T) {
	r, e := newTestRegistry()
	obj := e.NewObject("GtkLabel")
	h := gobjectruntime.HandleAt(obj.Addr)

	w1, err := r.Wrap(h, "GtkLabel", typedesc.TransferNone)
	if err != nil {
		t.Fatal(err)
	}
	w2, err := r.Wrap(h, "GtkLabel", typedesc.TransferNone)
	if err != nil {
		t.Fatal(err)
	}
	if w1 != w2 {
		t.Fatal("same native address must yield the same wrapper")
	}
	if !r.SameObject(w1, w2) {
		t.Fatal("SameObject must hold for one native instance")
	}
	if r.Len() != 1 {
		t.Fatalf("registry holds %d entries, want 1", r.Len())
	}
}

func TestWrap_TransferNoneTakesOneReference(t *testing.T) {
	r, e := newTestRegistry()
	obj := e.NewObject("GtkLabel")
	h := gobjectruntime.HandleAt(obj.Addr)

	if _, err := r.Wrap(h, "GtkLabel", typedesc.TransferNone); err != nil {
		t.Fatal(err)
	}
	if obj.Refs != 2 {
		t.Fatalf("refs = %d, want caller's plus registry's", obj.Refs)
	}
	// A repeat sighting takes nothing further.
	if _, err := r.Wrap(h, "GtkLabel", typedesc.TransferNone); err != nil {
		t.Fatal(err)
	}
	if obj.Refs != 2 {
		t.Fatalf("refs = %d after repeat wrap, want 2", obj.Refs)
	}
}

func TestWrap_TransferFullAdoptsReference(t *testing.T) {
	r, e := newTestRegistry()
	obj := e.NewObject("GtkLabel")
	h := gobjectruntime.HandleAt(obj.Addr)

	if _, err := r.Wrap(h, "GtkLabel", typedesc.TransferFull); err != nil {
		t.Fatal(err)
	}
	if obj.Refs != 1 {
		t.Fatalf("refs = %d, adoption must not add a reference", obj.Refs)
	}

	// A second transfer-full sighting hands over another reference the
	// registry does not need.
	nativeRef(e, obj.Addr)
	if _, err := r.Wrap(h, "GtkLabel", typedesc.TransferFull); err != nil {
		t.Fatal(err)
	}
	if obj.Refs != 1 {
		t.Fatalf("refs = %d, duplicate full transfer must be dropped", obj.Refs)
	}
}

func TestWrap_SinksFloatingReference(t *testing.T) {
	r, e := newTestRegistry()
	obj := e.NewFloatingObject("GtkButton")
	h := gobjectruntime.HandleAt(obj.Addr)

	if _, err := r.Wrap(h, "GtkButton", typedesc.TransferNone); err != nil {
		t.Fatal(err)
	}
	if obj.Floating {
		t.Fatal("wrapping must sink the floating reference")
	}
	if obj.Refs != 1 {
		t.Fatalf("refs = %d, sink must consume rather than add", obj.Refs)
	}
}

func TestWrap_RuntimeTypeWins(t *testing.T) {
	r, e := newTestRegistry()
	obj := e.NewObject("GtkButton")

	w, err := r.Wrap(gobjectruntime.HandleAt(obj.Addr), "GtkWidget", typedesc.TransferNone)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := w.(*button); !ok {
		t.Fatalf("declared GtkWidget, runtime GtkButton: wrapper is %T, want *button", w)
	}
}

func TestWrap_UnregisteredRuntimeTypeFallsBack(t *testing.T) {
	r, e := newTestRegistry()
	obj := e.NewObject("GtkLabelAccessible")

	w, err := r.Wrap(gobjectruntime.HandleAt(obj.Addr), "GtkLabel", typedesc.TransferNone)
	if err != nil {
		t.Fatal(err)
	}
	if w == nil {
		t.Fatal("fallback to the declared class must produce a wrapper")
	}
}

func TestWrap_UnknownTypeFailsLoudly(t *testing.T) {
	r, e := newTestRegistry()
	obj := e.NewObject("GtkMysteryWidget")

	_, err := r.Wrap(gobjectruntime.HandleAt(obj.Addr), "GtkAlsoUnknown", typedesc.TransferNone)
	var re *errors.Error
	if !stderrors.As(err, &re) || re.Kind != errors.KindUnknownType {
		t.Fatalf("want unknown_type, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatal("failed wrap must not leave an entry behind")
	}
}

func TestWrap_NilHandle(t *testing.T) {
	r, _ := newTestRegistry()
	if _, err := r.Wrap(gobjectruntime.NilHandle, "GtkLabel", typedesc.TransferNone); err == nil {
		t.Fatal("nil handle must be rejected")
	}
}

func TestRelease_ExactlyOnce(t *testing.T) {
	r, e := newTestRegistry()
	obj := e.NewObject("GtkLabel")
	w, err := r.Wrap(gobjectruntime.HandleAt(obj.Addr), "GtkLabel", typedesc.TransferNone)
	if err != nil {
		t.Fatal(err)
	}
	if obj.Refs != 2 {
		t.Fatalf("setup refs = %d", obj.Refs)
	}

	r.Release(w)
	if obj.Refs != 1 {
		t.Fatalf("refs = %d after release, want 1", obj.Refs)
	}
	if r.Len() != 0 {
		t.Fatal("released wrapper must leave the registry")
	}

	r.Release(w)
	if obj.Refs != 1 {
		t.Fatalf("refs = %d after double release, reference must go exactly once", obj.Refs)
	}
}

func TestWeakNotify_InvalidatesIdentity(t *testing.T) {
	r, e := newTestRegistry()
	obj := e.NewObject("GtkLabel")
	w, err := r.Wrap(gobjectruntime.HandleAt(obj.Addr), "GtkLabel", typedesc.TransferNone)
	if err != nil {
		t.Fatal(err)
	}

	// The native side tears the object down regardless of our
	// reference (the fake finalizes at zero either way).
	nativeUnref(e, obj.Addr)
	nativeUnref(e, obj.Addr)
	if !e.Destroyed(obj.Addr) {
		t.Fatal("setup: object should be gone")
	}

	if r.Len() != 0 {
		t.Fatal("weak notification must retire the identity")
	}
	// Releasing the stale wrapper after invalidation is a safe no-op.
	r.Release(w)
}

func TestReset_ReleasesEverything(t *testing.T) {
	r, e := newTestRegistry()
	a := e.NewObject("GtkLabel")
	b := e.NewObject("GtkButton")
	if _, err := r.Wrap(gobjectruntime.HandleAt(a.Addr), "GtkLabel", typedesc.TransferNone); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Wrap(gobjectruntime.HandleAt(b.Addr), "GtkButton", typedesc.TransferNone); err != nil {
		t.Fatal(err)
	}

	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("registry holds %d entries after reset", r.Len())
	}
	if a.Refs != 1 || b.Refs != 1 {
		t.Fatalf("refs after reset = %d, %d; registry references must be gone", a.Refs, b.Refs)
	}
}

func TestObserver_SeesLifecycleEvents(t *testing.T) {
	r, e := newTestRegistry()
	var events []string
	r.SetObserver(func(event, typeName string, addr uintptr) {
		events = append(events, event+":"+typeName)
	})

	obj := e.NewObject("GtkButton")
	w, err := r.Wrap(gobjectruntime.HandleAt(obj.Addr), "GtkButton", typedesc.TransferNone)
	if err != nil {
		t.Fatal(err)
	}
	r.Release(w)

	if len(events) != 2 || events[0] != "wrap:GtkButton" || events[1] != "release:GtkButton" {
		t.Fatalf("events = %v", events)
	}
}
