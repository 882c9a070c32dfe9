//go:build linux

package engine

import (
	"testing"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// Smoke tests against the real GLib when it is installed; skipped on
// machines without the toolkit stack.

func TestDL_InvokeGLib(t *testing.T) {
	d := NewDL(Config{})
	defer d.Close()

	sig := gobjectruntime.Signature{
		Ret:  typedesc.SlotU32,
		Args: []typedesc.SlotKind{typedesc.SlotPointer},
	}
	// g_str_hash of NULL would crash; allocate a real string first.
	alloc := gobjectruntime.Signature{
		Ret:  typedesc.SlotPointer,
		Args: []typedesc.SlotKind{typedesc.SlotU64},
	}
	addr, err := d.Invoke("glib-2.0", "g_malloc0", alloc, []uint64{8})
	if err != nil {
		t.Skipf("glib not available: %v", err)
	}
	if addr == 0 {
		t.Fatal("g_malloc0 returned NULL")
	}
	if err := d.Write(uintptr(addr), 0, []byte("gtk\x00")); err != nil {
		t.Fatalf("write: %v", err)
	}

	h1, err := d.Invoke("glib-2.0", "g_str_hash", sig, []uint64{addr})
	if err != nil {
		t.Fatalf("g_str_hash: %v", err)
	}
	h2, _ := d.Invoke("glib-2.0", "g_str_hash", sig, []uint64{addr})
	if h1 == 0 || h1 != h2 {
		t.Errorf("hash not stable: %#x %#x", h1, h2)
	}

	free := gobjectruntime.Signature{
		Ret:  typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer},
	}
	if _, err := d.Invoke("glib-2.0", "g_free", free, []uint64{addr}); err != nil {
		t.Fatalf("g_free: %v", err)
	}
}

func TestDL_UnknownSymbol(t *testing.T) {
	d := NewDL(Config{})
	defer d.Close()

	_, err := d.Invoke("glib-2.0", "g_definitely_not_a_symbol", gobjectruntime.Signature{
		Ret: typedesc.SlotVoid,
	}, nil)
	if err == nil {
		t.Fatal("unknown symbol must fail")
	}
}
