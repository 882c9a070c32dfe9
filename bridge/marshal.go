package bridge

import (
	"math"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// marshal converts one argument into its ABI slot. The returned cleanup
// (possibly nil) runs after the native call completes; it frees string
// copies the caller still owns under transfer-none.
func (b *Bridge) marshal(library, symbol string, index int, a Arg) (uint64, func(), error) {
	d := a.Desc

	if a.Value == nil {
		// Only reachable for optional arguments; NULL for pointer
		// kinds, zero for scalars.
		return 0, nil, nil
	}

	switch d.Kind {
	case typedesc.KindVoid:
		return 0, nil, errors.TypeMismatch(library, symbol, index, "void is not a valid argument kind")

	case typedesc.KindBool:
		v, ok := a.Value.(bool)
		if !ok {
			return 0, nil, errors.TypeMismatch(library, symbol, index, "expected bool")
		}
		if v {
			return 1, nil, nil
		}
		return 0, nil, nil

	case typedesc.KindInt8, typedesc.KindInt16, typedesc.KindInt32, typedesc.KindInt64, typedesc.KindEnum:
		v, ok := toInt64(a.Value)
		if !ok {
			return 0, nil, errors.TypeMismatch(library, symbol, index, "expected signed integer")
		}
		return uint64(v), nil, nil

	case typedesc.KindUint8, typedesc.KindUint16, typedesc.KindUint32, typedesc.KindUint64, typedesc.KindFlags:
		v, ok := toUint64(a.Value)
		if !ok {
			return 0, nil, errors.TypeMismatch(library, symbol, index, "expected unsigned integer")
		}
		return v, nil, nil

	case typedesc.KindFloat32:
		v, ok := toFloat64(a.Value)
		if !ok {
			return 0, nil, errors.TypeMismatch(library, symbol, index, "expected float")
		}
		return uint64(math.Float32bits(float32(v))), nil, nil

	case typedesc.KindFloat64:
		v, ok := toFloat64(a.Value)
		if !ok {
			return 0, nil, errors.TypeMismatch(library, symbol, index, "expected float")
		}
		return math.Float64bits(v), nil, nil

	case typedesc.KindString:
		s, ok := a.Value.(string)
		if !ok {
			return 0, nil, errors.TypeMismatch(library, symbol, index, "expected string")
		}
		addr, err := b.newCString(s)
		if err != nil {
			return 0, nil, err
		}
		if d.Transfer == typedesc.TransferFull {
			// Ownership passes to the callee; it frees the copy.
			return uint64(addr), nil, nil
		}
		return uint64(addr), func() { b.freeNative(addr) }, nil

	case typedesc.KindCallback:
		switch v := a.Value.(type) {
		case uintptr:
			return uint64(v), nil, nil
		case uint64:
			return v, nil, nil
		}
		return 0, nil, errors.TypeMismatch(library, symbol, index, "expected callback function pointer")

	default:
		// Object, boxed, record, variant, param, pointer: a wrapper or
		// a raw handle.
		switch v := a.Value.(type) {
		case gobjectruntime.Wrapper:
			return uint64(v.Native().Addr()), nil, nil
		case gobjectruntime.Handle:
			return uint64(v.Addr()), nil, nil
		case uintptr:
			return uint64(v), nil, nil
		}
		return 0, nil, errors.TypeMismatch(library, symbol, index, "expected wrapper or handle")
	}
}

// unmarshal converts a raw return slot into the Go value ret describes.
// Pointer-typed returns come back as handles; the ownership recorded on
// ret governs who releases them, which is the caller's (generated
// code's) responsibility via the handles registry.
func (b *Bridge) unmarshal(ret typedesc.Desc, raw uint64) (any, error) {
	switch ret.Kind {
	case typedesc.KindVoid:
		return nil, nil
	case typedesc.KindBool:
		return int32(raw) != 0, nil
	case typedesc.KindInt8:
		return int8(raw), nil
	case typedesc.KindUint8:
		return uint8(raw), nil
	case typedesc.KindInt16:
		return int16(raw), nil
	case typedesc.KindUint16:
		return uint16(raw), nil
	case typedesc.KindInt32, typedesc.KindEnum:
		return int32(raw), nil
	case typedesc.KindUint32, typedesc.KindFlags:
		return uint32(raw), nil
	case typedesc.KindInt64:
		return int64(raw), nil
	case typedesc.KindUint64:
		return raw, nil
	case typedesc.KindFloat32:
		return math.Float32frombits(uint32(raw)), nil
	case typedesc.KindFloat64:
		return math.Float64frombits(raw), nil
	case typedesc.KindString:
		if raw == 0 {
			return "", nil
		}
		s, err := b.readCString(uintptr(raw))
		if err != nil {
			return nil, err
		}
		if ret.Transfer == typedesc.TransferFull {
			// The native side handed us ownership; the Go copy is
			// made, release the native one.
			b.freeNative(uintptr(raw))
		}
		return s, nil
	default:
		return gobjectruntime.HandleAt(uintptr(raw)), nil
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	// Generated flags constants are frequently typed as int.
	case int:
		if n >= 0 {
			return uint64(n), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
