package signals

import (
	"testing"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/handles"
	"github.com/gtkflux/gobject-runtime/internal/enginetest"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

type widget struct {
	h gobjectruntime.Handle
}

func (w *widget) Native() gobjectruntime.Handle { return w.h }

func newTestManager() (*Manager, *handles.Registry, *enginetest.Engine) {
	e := enginetest.New()
	reg := handles.New(e)
	reg.RegisterClass(handles.Class{Name: "GtkButton", New: func(h gobjectruntime.Handle) gobjectruntime.Wrapper {
		return &widget{h: h}
	}})
	return New(e, reg), reg, e
}

func TestConnect_DispatchesWithEmitterLast(t *testing.T) {
	m, reg, e := newTestManager()
	obj := e.NewObject("GtkButton")
	w, err := reg.Wrap(gobjectruntime.HandleAt(obj.Addr), "GtkButton", typedesc.TransferNone)
	if err != nil {
		t.Fatal(err)
	}

	var got []any
	err = m.Connect(w, w, "clicked", ShapeVoid, func(args []any) any {
		got = args
		return nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	e.Emit(obj, "clicked")
	if len(got) != 1 {
		t.Fatalf("handler args = %v, want just the emitter", got)
	}
	if got[0] != w {
		t.Fatalf("emitter should resolve to its managed wrapper, got %T", got[0])
	}
}

func TestConnect_ReplacesExistingConnection(t *testing.T) {
	m, _, e := newTestManager()
	obj := e.NewObject("GtkButton")
	w := &widget{h: gobjectruntime.HandleAt(obj.Addr)}

	var fired []string
	if err := m.Connect(w, w, "clicked", ShapeVoid, func([]any) any {
		fired = append(fired, "a")
		return nil
	}, nil); err != nil {
		t.Fatal(err)
	}
	if err := m.Connect(w, w, "clicked", ShapeVoid, func([]any) any {
		fired = append(fired, "b")
		return nil
	}, nil); err != nil {
		t.Fatal(err)
	}

	if obj.ConnectionCount("clicked") != 1 {
		t.Fatalf("live native connections = %d, want exactly 1", obj.ConnectionCount("clicked"))
	}
	e.Emit(obj, "clicked")
	if len(fired) != 1 || fired[0] != "b" {
		t.Fatalf("fired = %v, only the replacement may run", fired)
	}
	if m.Count() != 1 {
		t.Fatalf("manager tracks %d connections, want 1", m.Count())
	}
}

func TestDisconnect_ThenReconnect(t *testing.T) {
	m, _, e := newTestManager()
	obj := e.NewObject("GtkButton")
	w := &widget{h: gobjectruntime.HandleAt(obj.Addr)}

	// Disconnecting something never connected is a no-op.
	m.Disconnect(w, w, "clicked")

	var fired []string
	if err := m.Connect(w, w, "clicked", ShapeVoid, func([]any) any {
		fired = append(fired, "a")
		return nil
	}, nil); err != nil {
		t.Fatal(err)
	}
	m.Disconnect(w, w, "clicked")
	e.Emit(obj, "clicked")
	if len(fired) != 0 {
		t.Fatal("disconnected handler must not fire")
	}

	if err := m.Connect(w, w, "clicked", ShapeVoid, func([]any) any {
		fired = append(fired, "b")
		return nil
	}, nil); err != nil {
		t.Fatal(err)
	}
	e.Emit(obj, "clicked")
	if len(fired) != 1 || fired[0] != "b" {
		t.Fatalf("fired = %v after reconnect", fired)
	}
}

func TestBlockAll_NestsAndExemptsLifecycle(t *testing.T) {
	m, _, e := newTestManager()
	obj := e.NewObject("GtkButton")
	w := &widget{h: gobjectruntime.HandleAt(obj.Addr)}

	var clicks, resizes, notifies int
	if err := m.Connect(w, w, "clicked", ShapeVoid, func([]any) any { clicks++; return nil }, nil); err != nil {
		t.Fatal(err)
	}
	if err := m.Connect(w, w, "resize", ShapeIntInt, func([]any) any { resizes++; return nil }, nil); err != nil {
		t.Fatal(err)
	}
	if err := m.Connect(w, w, "notify::label", ShapePtr, func([]any) any { notifies++; return nil }, nil); err != nil {
		t.Fatal(err)
	}

	m.BlockAll()
	m.BlockAll()

	e.Emit(obj, "clicked")
	e.Emit(obj, "notify::label", 0)
	e.Emit(obj, "resize", 800, 600)
	if clicks != 0 || notifies != 0 {
		t.Fatalf("blocked dispatch ran: clicks=%d notifies=%d", clicks, notifies)
	}
	if resizes != 1 {
		t.Fatalf("lifecycle signal suppressed while blocked: resizes=%d", resizes)
	}

	m.UnblockAll()
	e.Emit(obj, "clicked")
	if clicks != 0 {
		t.Fatal("nested block must stay in effect until fully unwound")
	}

	m.UnblockAll()
	e.Emit(obj, "clicked")
	e.Emit(obj, "notify::label", 0)
	if clicks != 1 || notifies != 1 {
		t.Fatalf("dispatch did not resume: clicks=%d notifies=%d", clicks, notifies)
	}
}

func TestForceUnblockAll_ResetsDepth(t *testing.T) {
	m, _, _ := newTestManager()
	m.BlockAll()
	m.BlockAll()
	m.BlockAll()
	m.ForceUnblockAll()
	if m.Blocked() {
		t.Fatal("force unblock must clear any nesting depth")
	}
}

func TestDispatch_IntArguments(t *testing.T) {
	m, _, e := newTestManager()
	obj := e.NewObject("GtkButton")
	w := &widget{h: gobjectruntime.HandleAt(obj.Addr)}

	var gotW, gotH int32
	if err := m.Connect(w, w, "resize", ShapeIntInt, func(args []any) any {
		gotW = args[0].(int32)
		gotH = args[1].(int32)
		return nil
	}, nil); err != nil {
		t.Fatal(err)
	}

	e.Emit(obj, "resize", 1024, 768)
	if gotW != 1024 || gotH != 768 {
		t.Fatalf("resize args = %d x %d", gotW, gotH)
	}
}

func TestDispatch_BooleanReturn(t *testing.T) {
	m, _, e := newTestManager()
	obj := e.NewObject("GtkWindow")
	w := &widget{h: gobjectruntime.HandleAt(obj.Addr)}

	if err := m.Connect(w, w, "close-request", ShapeBool, func([]any) any {
		return true
	}, nil); err != nil {
		t.Fatal(err)
	}
	if ret := e.Emit(obj, "close-request"); ret != 1 {
		t.Fatalf("handler returned true, native side saw %d", ret)
	}
}

func TestNativeFinalization_RetiresConnection(t *testing.T) {
	m, _, e := newTestManager()
	obj := e.NewObject("GtkButton")
	w := &widget{h: gobjectruntime.HandleAt(obj.Addr)}

	if err := m.Connect(w, w, "clicked", ShapeVoid, func([]any) any { return nil }, nil); err != nil {
		t.Fatal(err)
	}
	if m.Count() != 1 {
		t.Fatal("setup: connection missing")
	}

	unref := gobjectruntime.Signature{Ret: typedesc.SlotVoid, Args: []typedesc.SlotKind{typedesc.SlotPointer}}
	e.Invoke("gobject-2.0", "g_object_unref", unref, []uint64{uint64(obj.Addr)})

	if m.Count() != 0 {
		t.Fatal("destroy notification must retire the connection")
	}
	// Disconnecting the stale wrapper afterwards is a safe no-op.
	m.Disconnect(w, w, "clicked")
}

func TestClear_DropsSelfOwnedConnections(t *testing.T) {
	m, _, e := newTestManager()
	a := e.NewObject("GtkButton")
	b := e.NewObject("GtkButton")
	wa := &widget{h: gobjectruntime.HandleAt(a.Addr)}
	wb := &widget{h: gobjectruntime.HandleAt(b.Addr)}

	for _, sig := range []string{"clicked", "notify::label"} {
		shape := ShapeVoid
		if sig != "clicked" {
			shape = ShapePtr
		}
		if err := m.Connect(wa, wa, sig, shape, func([]any) any { return nil }, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Connect(wb, wb, "clicked", ShapeVoid, func([]any) any { return nil }, nil); err != nil {
		t.Fatal(err)
	}

	m.Clear(wa)
	if m.Count() != 1 {
		t.Fatalf("connections after clear = %d, want only the other owner's", m.Count())
	}
	if a.ConnectionCount("clicked") != 0 || a.ConnectionCount("notify::label") != 0 {
		t.Fatal("native connections on the cleared object must be gone")
	}
	if b.ConnectionCount("clicked") != 1 {
		t.Fatal("other owners' connections must survive")
	}
}

func TestClear_ReleasesEveryConnectionOfOwner(t *testing.T) {
	m, _, e := newTestManager()
	x := e.NewObject("GtkButton")
	y := e.NewObject("GtkButton")
	owner := &widget{h: gobjectruntime.HandleAt(e.NewObject("GtkBox").Addr)}
	other := &widget{h: gobjectruntime.HandleAt(e.NewObject("GtkBox").Addr)}
	wx := &widget{h: gobjectruntime.HandleAt(x.Addr)}
	wy := &widget{h: gobjectruntime.HandleAt(y.Addr)}

	// One owner listening on two different objects, a second owner on
	// one of them.
	if err := m.Connect(owner, wx, "clicked", ShapeVoid, func([]any) any { return nil }, nil); err != nil {
		t.Fatal(err)
	}
	if err := m.Connect(owner, wy, "notify::label", ShapePtr, func([]any) any { return nil }, nil); err != nil {
		t.Fatal(err)
	}
	if err := m.Connect(other, wx, "clicked", ShapeVoid, func([]any) any { return nil }, nil); err != nil {
		t.Fatal(err)
	}

	m.Clear(owner)
	if m.Count() != 1 {
		t.Fatalf("connections after owner teardown = %d, want 1", m.Count())
	}
	if y.ConnectionCount("notify::label") != 0 {
		t.Fatal("owner's connection on the second object must be released")
	}
	if x.ConnectionCount("clicked") != 1 {
		t.Fatal("the other owner's connection must survive")
	}
}

func TestDisconnect_ScopedToOwner(t *testing.T) {
	m, _, e := newTestManager()
	obj := e.NewObject("GtkButton")
	w := &widget{h: gobjectruntime.HandleAt(obj.Addr)}
	owner := &widget{h: gobjectruntime.HandleAt(e.NewObject("GtkBox").Addr)}
	other := &widget{h: gobjectruntime.HandleAt(e.NewObject("GtkBox").Addr)}

	var fired []string
	if err := m.Connect(owner, w, "clicked", ShapeVoid, func([]any) any {
		fired = append(fired, "owner")
		return nil
	}, nil); err != nil {
		t.Fatal(err)
	}
	if err := m.Connect(other, w, "clicked", ShapeVoid, func([]any) any {
		fired = append(fired, "other")
		return nil
	}, nil); err != nil {
		t.Fatal(err)
	}

	// Distinct owners hold distinct connections on the same signal.
	if obj.ConnectionCount("clicked") != 2 {
		t.Fatalf("native connections = %d, want one per owner", obj.ConnectionCount("clicked"))
	}

	m.Disconnect(owner, w, "clicked")
	e.Emit(obj, "clicked")
	if len(fired) != 1 || fired[0] != "other" {
		t.Fatalf("fired = %v, only the remaining owner's handler may run", fired)
	}
}

func TestConnect_InvalidShape(t *testing.T) {
	m, _, e := newTestManager()
	obj := e.NewObject("GtkButton")
	w := &widget{h: gobjectruntime.HandleAt(obj.Addr)}

	if err := m.Connect(w, w, "clicked", 99, func([]any) any { return nil }, nil); err == nil {
		t.Fatal("unknown trampoline shape must be rejected")
	}
}

func TestConnectAfter_SetsFlag(t *testing.T) {
	m, _, e := newTestManager()
	obj := e.NewObject("GtkButton")
	w := &widget{h: gobjectruntime.HandleAt(obj.Addr)}

	if err := m.Connect(w, w, "clicked", ShapeVoid, func([]any) any { return nil },
		&ConnectOptions{After: true}); err != nil {
		t.Fatal(err)
	}
	// The fake records G_CONNECT_AFTER from the flags word.
	if obj.ConnectionCount("clicked") != 1 {
		t.Fatal("connection missing")
	}
}

func TestAsyncReady_FiresExactlyOnce(t *testing.T) {
	m, _, e := newTestManager()

	var calls int
	var gotSrc, gotRes gobjectruntime.Handle
	fnptr, data, _, err := m.ConnectAsyncReady(func(source, result gobjectruntime.Handle) {
		calls++
		gotSrc, gotRes = source, result
	})
	if err != nil {
		t.Fatal(err)
	}

	src := e.Alloc(8)
	res := e.Alloc(8)
	if _, ok := e.InvokeClosure(fnptr, []uint64{uint64(src), uint64(res), uint64(data)}); !ok {
		t.Fatal("trampoline should be invocable")
	}
	e.InvokeClosure(fnptr, []uint64{uint64(src), uint64(res), uint64(data)})

	if calls != 1 {
		t.Fatalf("one-shot callback ran %d times", calls)
	}
	if gotSrc.Addr() != src || gotRes.Addr() != res {
		t.Fatalf("callback saw %#x, %#x", gotSrc.Addr(), gotRes.Addr())
	}
}

func TestAsyncReady_CancelRetiresToken(t *testing.T) {
	m, _, e := newTestManager()

	fired := false
	fnptr, data, cancel, err := m.ConnectAsyncReady(func(_, _ gobjectruntime.Handle) { fired = true })
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	e.InvokeClosure(fnptr, []uint64{0, 0, uint64(data)})
	if fired {
		t.Fatal("canceled completion must not dispatch")
	}
}

func TestAsyncReady_RunsWhileBlocked(t *testing.T) {
	m, _, e := newTestManager()

	fired := false
	fnptr, data, _, err := m.ConnectAsyncReady(func(_, _ gobjectruntime.Handle) { fired = true })
	if err != nil {
		t.Fatal(err)
	}
	m.BlockAll()
	defer m.UnblockAll()
	e.InvokeClosure(fnptr, []uint64{0, 0, uint64(data)})
	if !fired {
		t.Fatal("async completion must not be suppressed by blocking")
	}
}

func TestNewCallback_StandingDispatch(t *testing.T) {
	m, _, e := newTestManager()

	var calls int
	fnptr, data, _, _, err := m.NewCallback(ShapePtrBool, func([]any) any {
		calls++
		return true
	})
	if err != nil {
		t.Fatal(err)
	}

	widget := e.Alloc(8)
	clock := e.Alloc(8)
	ret, ok := e.InvokeClosure(fnptr, []uint64{uint64(widget), uint64(clock), uint64(data)})
	if !ok {
		t.Fatal("trampoline should be invocable")
	}
	if ret != 1 {
		t.Fatalf("handler returned true, native side saw %d", ret)
	}
	// Unlike async completions the callback stands until destroyed.
	e.InvokeClosure(fnptr, []uint64{uint64(widget), uint64(clock), uint64(data)})
	if calls != 2 {
		t.Fatalf("standing callback ran %d times, want 2", calls)
	}
}

func TestNewCallback_NativeDestroyRetires(t *testing.T) {
	m, _, e := newTestManager()

	var calls int
	fnptr, data, destroy, _, err := m.NewCallback(ShapeBool, func([]any) any {
		calls++
		return false
	})
	if err != nil {
		t.Fatal(err)
	}

	e.FireNotify(destroy, data)
	if _, ok := e.InvokeClosure(fnptr, []uint64{0, uint64(data)}); !ok {
		t.Fatal("shared trampoline must survive individual callbacks")
	}
	if calls != 0 {
		t.Fatal("destroyed callback must not dispatch")
	}
}

func TestNewCallback_CancelRetires(t *testing.T) {
	m, _, e := newTestManager()

	fired := false
	fnptr, data, _, cancel, err := m.NewCallback(ShapeVoid, func([]any) any {
		fired = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	e.InvokeClosure(fnptr, []uint64{0, uint64(data)})
	if fired {
		t.Fatal("canceled callback must not dispatch")
	}
}

func TestNewCallback_Validation(t *testing.T) {
	m, _, _ := newTestManager()
	if _, _, _, _, err := m.NewCallback(99, func([]any) any { return nil }); err == nil {
		t.Fatal("unknown trampoline shape must be rejected")
	}
	if _, _, _, _, err := m.NewCallback(ShapeVoid, nil); err == nil {
		t.Fatal("nil handler must be rejected")
	}
}

func TestReset_DropsEverything(t *testing.T) {
	m, _, e := newTestManager()
	obj := e.NewObject("GtkButton")
	w := &widget{h: gobjectruntime.HandleAt(obj.Addr)}

	if err := m.Connect(w, w, "clicked", ShapeVoid, func([]any) any { return nil }, nil); err != nil {
		t.Fatal(err)
	}
	m.BlockAll()
	m.Reset()
	if m.Count() != 0 || m.Blocked() {
		t.Fatal("reset must drop connections and block depth")
	}
}
