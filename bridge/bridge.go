package bridge

import (
	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// Guard reports whether the runtime is started. Every bridge entry
// point consults it before touching native memory; the event loop and
// allocator context only exist between Start and Stop, so the check is
// centralized here instead of being re-implemented per call site.
type Guard interface {
	Started() bool
}

// Arg pairs one argument value with its descriptor.
type Arg struct {
	Desc  typedesc.Desc
	Value any
}

// CallSpec is one void-returning call inside a batch.
type CallSpec struct {
	Library string
	Symbol  string
	Args    []Arg
}

// Bridge performs marshaled calls and native memory access on top of an
// Engine. It is the only layer that converts between Go values and ABI
// slots; generated wrapper code calls it with descriptor literals.
type Bridge struct {
	eng   gobjectruntime.Engine
	guard Guard
}

// New creates a bridge over eng gated by guard.
func New(eng gobjectruntime.Engine, guard Guard) *Bridge {
	return &Bridge{eng: eng, guard: guard}
}

// Engine returns the underlying engine.
func (b *Bridge) Engine() gobjectruntime.Engine {
	return b.eng
}

func (b *Bridge) started(op, library, symbol string) error {
	if b.guard.Started() {
		return nil
	}
	return errors.NotStarted(op, library, symbol)
}

// Call resolves symbol in library, marshals args per their descriptors,
// invokes, and unmarshals the return value per ret.
//
// Validation happens before any native work: a nil value for an
// argument not marked optional fails with the offending index, library
// and symbol. Passing garbage to native code risks memory corruption,
// so this is a fail-fast error, never a warning.
func (b *Bridge) Call(library, symbol string, args []Arg, ret typedesc.Desc) (any, error) {
	if err := b.started("call", library, symbol); err != nil {
		return nil, err
	}
	if err := validateArgs(library, symbol, args); err != nil {
		return nil, err
	}

	slots := make([]uint64, len(args))
	sig := gobjectruntime.Signature{
		Ret:  ret.Slot(),
		Args: make([]typedesc.SlotKind, len(args)),
	}
	var cleanups []func()
	defer func() {
		for _, fn := range cleanups {
			fn()
		}
	}()

	for i, a := range args {
		slot, cleanup, err := b.marshal(library, symbol, i, a)
		if err != nil {
			return nil, err
		}
		if cleanup != nil {
			cleanups = append(cleanups, cleanup)
		}
		slots[i] = slot
		sig.Args[i] = a.Desc.Slot()
	}

	raw, err := b.eng.Invoke(library, symbol, sig, slots)
	if err != nil {
		return nil, err
	}
	return b.unmarshal(ret, raw)
}

// BatchCall executes a sequence of void-returning calls in order,
// amortizing per-call overhead for bulk mutations. Every call is
// validated up front; execution aborts on the first engine failure with
// the failing index and symbol in the error, never silently continuing.
func (b *Bridge) BatchCall(calls []CallSpec) error {
	if err := b.started("batch_call", "", ""); err != nil {
		return err
	}
	for i := range calls {
		if err := validateArgs(calls[i].Library, calls[i].Symbol, calls[i].Args); err != nil {
			return errors.Wrap(errors.PhaseMarshal, errors.KindUndefinedArgument, err,
				"batch call "+calls[i].Symbol)
		}
	}
	for i := range calls {
		if _, err := b.Call(calls[i].Library, calls[i].Symbol, calls[i].Args, typedesc.Void()); err != nil {
			return errors.New(errors.PhaseInvoke, errors.KindNativeError).
				Op("batch_call").
				Symbol(calls[i].Library, calls[i].Symbol).
				Detail("batch aborted at call %d", i).
				Cause(err).
				Build()
		}
	}
	return nil
}

func validateArgs(library, symbol string, args []Arg) error {
	for i, a := range args {
		if a.Value == nil && !a.Desc.Optional {
			return errors.UndefinedArgument(library, symbol, i)
		}
	}
	return nil
}
