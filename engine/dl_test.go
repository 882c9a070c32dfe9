package engine

import (
	"testing"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

func TestSoname(t *testing.T) {
	tests := []struct {
		library string
		direct  bool
	}{
		{"glib-2.0", false},
		{"gobject-2.0", false},
		{"gtk-4.0", false},
		{"gdk-4.0", false},
		{"adwaita-1", false},
		{"libcustom.so.3", true},
		{"/opt/lib/libfoo.so", true},
	}
	for _, tt := range tests {
		got := soname(tt.library)
		if tt.direct {
			if got != tt.library {
				t.Errorf("soname(%q) = %q, want pass-through", tt.library, got)
			}
		} else if got == tt.library {
			t.Errorf("soname(%q) not mapped", tt.library)
		}
	}

	// gdk and gsk live inside libgtk-4.
	if soname("gdk-4.0") != soname("gtk-4.0") || soname("gsk-4.0") != soname("gtk-4.0") {
		t.Error("gdk/gsk must map to the gtk object")
	}
}

func TestSigKey(t *testing.T) {
	a := gobjectruntime.Signature{Ret: typedesc.SlotVoid, Args: []typedesc.SlotKind{typedesc.SlotPointer}}
	b := gobjectruntime.Signature{Ret: typedesc.SlotPointer, Args: []typedesc.SlotKind{typedesc.SlotVoid}}
	c := gobjectruntime.Signature{Ret: typedesc.SlotVoid, Args: []typedesc.SlotKind{typedesc.SlotPointer}}
	if sigKey(a) == sigKey(b) {
		t.Error("distinct signatures must have distinct keys")
	}
	if sigKey(a) != sigKey(c) {
		t.Error("equal signatures must share a key")
	}
}

func TestNarrow(t *testing.T) {
	tests := []struct {
		v    uint64
		slot typedesc.SlotKind
		want uint64
	}{
		{0xFFFFFFFF_FFFFFF01, typedesc.SlotU8, 0x01},
		{0xFFFFFFFF_FFFF0102, typedesc.SlotS16, 0x0102},
		{0xFFFFFFFF_01020304, typedesc.SlotS32, 0x01020304},
		{0xFFFFFFFF_01020304, typedesc.SlotF32, 0x01020304},
		{0xA1B2C3D4_01020304, typedesc.SlotU64, 0xA1B2C3D4_01020304},
		{0xA1B2C3D4_01020304, typedesc.SlotF64, 0xA1B2C3D4_01020304},
	}
	for _, tt := range tests {
		if got := narrow(tt.v, tt.slot); got != tt.want {
			t.Errorf("narrow(%#x, %v) = %#x, want %#x", tt.v, tt.slot, got, tt.want)
		}
	}
}

func TestFFIType_WidthsMatchSlots(t *testing.T) {
	// Every descriptor slot must map onto a libffi type; slot widths
	// are the ABI contract so a silent mismatch is memory corruption.
	slots := []typedesc.SlotKind{
		typedesc.SlotVoid, typedesc.SlotU8, typedesc.SlotS8,
		typedesc.SlotU16, typedesc.SlotS16, typedesc.SlotU32,
		typedesc.SlotS32, typedesc.SlotU64, typedesc.SlotS64,
		typedesc.SlotF32, typedesc.SlotF64, typedesc.SlotPointer,
	}
	for _, s := range slots {
		if ffiType(s) == nil {
			t.Errorf("ffiType(%v) = nil", s)
		}
	}
}

func TestDL_CloseIdempotent(t *testing.T) {
	d := NewDL(Config{})
	if err := d.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := d.Invoke("glib-2.0", "g_strdup", gobjectruntime.Signature{
		Ret:  typedesc.SlotPointer,
		Args: []typedesc.SlotKind{typedesc.SlotPointer},
	}, []uint64{0}); err == nil {
		t.Error("invoke after close must fail")
	}
}
