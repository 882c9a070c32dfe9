package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseResolve   Phase = "resolve"   // library/symbol resolution
	PhaseMarshal   Phase = "marshal"   // Go value to native representation
	PhaseInvoke    Phase = "invoke"    // native call execution
	PhaseMemory    Phase = "memory"    // native memory access
	PhaseIdentity  Phase = "identity"  // wrapper identity registry
	PhaseSignal    Phase = "signal"    // signal connect/dispatch
	PhaseLifecycle Phase = "lifecycle" // runtime start/stop ordering
	PhaseGenerate  Phase = "generate"  // binding generation
	PhaseParse     Phase = "parse"     // GIR decoding
)

// Kind categorizes the error
type Kind string

const (
	KindNotStarted          Kind = "not_started"
	KindUndefinedArgument   Kind = "undefined_argument"
	KindInvalidAppID        Kind = "invalid_app_id"
	KindUnknownType         Kind = "unknown_type"
	KindUnknownSymbol       Kind = "unknown_symbol"
	KindUnsupportedCallback Kind = "unsupported_callback"
	KindInvalidHandle       Kind = "invalid_handle"
	KindOutOfRange          Kind = "out_of_range"
	KindNativeError         Kind = "native_error"
	KindTypeMismatch        Kind = "type_mismatch"
	KindInvalidData         Kind = "invalid_data"
	KindClosed              Kind = "closed"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Op       string
	Library  string
	Symbol   string
	ArgIndex int // -1 when not applicable
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Library != "" || e.Symbol != "" {
		b.WriteString(" (")
		b.WriteString(e.Library)
		b.WriteByte(':')
		b.WriteString(e.Symbol)
		if e.ArgIndex >= 0 {
			fmt.Fprintf(&b, " arg %d", e.ArgIndex)
		}
		b.WriteByte(')')
	} else if e.ArgIndex >= 0 {
		fmt.Fprintf(&b, " (arg %d)", e.ArgIndex)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:    phase,
			Kind:     kind,
			ArgIndex: -1,
		},
	}
}

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Symbol sets the library and symbol context
func (b *Builder) Symbol(library, symbol string) *Builder {
	b.err.Library = library
	b.err.Symbol = symbol
	return b
}

// Arg sets the offending argument index
func (b *Builder) Arg(index int) *Builder {
	b.err.ArgIndex = index
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotStarted reports a native-touching operation attempted while the
// runtime is not running. The operation and symbol context are embedded
// so lifecycle ordering bugs are diagnosable from the message alone.
func NotStarted(op, library, symbol string) *Error {
	return &Error{
		Phase:    PhaseLifecycle,
		Kind:     KindNotStarted,
		Op:       op,
		Library:  library,
		Symbol:   symbol,
		ArgIndex: -1,
		Detail:   "runtime not started",
	}
}

// UndefinedArgument reports a required argument that was nil at the call
// boundary. Raised before any native work happens.
func UndefinedArgument(library, symbol string, index int) *Error {
	return &Error{
		Phase:    PhaseMarshal,
		Kind:     KindUndefinedArgument,
		Op:       "call",
		Library:  library,
		Symbol:   symbol,
		ArgIndex: index,
		Detail:   "required argument is nil",
	}
}

// InvalidAppID reports an application id that is not a reverse-DNS name
func InvalidAppID(id, reason string) *Error {
	return &Error{
		Phase:    PhaseLifecycle,
		Kind:     KindInvalidAppID,
		Op:       "start",
		ArgIndex: -1,
		Detail:   fmt.Sprintf("application id %q: %s", id, reason),
	}
}

// UnknownType reports a native runtime type name with no registered wrapper class
func UnknownType(name string) *Error {
	return &Error{
		Phase:    PhaseIdentity,
		Kind:     KindUnknownType,
		ArgIndex: -1,
		Detail:   fmt.Sprintf("no wrapper class registered for native type %q", name),
	}
}

// UnknownSymbol reports a symbol that could not be resolved in a library
func UnknownSymbol(library, symbol string, cause error) *Error {
	return &Error{
		Phase:    PhaseResolve,
		Kind:     KindUnknownSymbol,
		Library:  library,
		Symbol:   symbol,
		ArgIndex: -1,
		Cause:    cause,
	}
}

// UnsupportedCallback reports a callback type the generator has no trampoline for
func UnsupportedCallback(name string) *Error {
	return &Error{
		Phase:    PhaseGenerate,
		Kind:     KindUnsupportedCallback,
		ArgIndex: -1,
		Detail:   fmt.Sprintf("no trampoline for callback type %q", name),
	}
}

// InvalidHandle reports an operation on a nil or foreign handle
func InvalidHandle(op string) *Error {
	return &Error{
		Phase:    PhaseMemory,
		Kind:     KindInvalidHandle,
		Op:       op,
		ArgIndex: -1,
		Detail:   "nil native handle",
	}
}

// OutOfRange reports a native memory access outside a known allocation
func OutOfRange(op string, addr uintptr, off int64, length int) *Error {
	return &Error{
		Phase:    PhaseMemory,
		Kind:     KindOutOfRange,
		Op:       op,
		ArgIndex: -1,
		Detail:   fmt.Sprintf("access at %#x+%d (%d bytes) outside any allocation", addr, off, length),
	}
}

// TypeMismatch reports a value whose Go type does not fit its descriptor
func TypeMismatch(library, symbol string, index int, detail string) *Error {
	return &Error{
		Phase:    PhaseMarshal,
		Kind:     KindTypeMismatch,
		Op:       "call",
		Library:  library,
		Symbol:   symbol,
		ArgIndex: index,
		Detail:   detail,
	}
}

// ParseFailed creates a GIR decoding error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:    PhaseParse,
		Kind:     KindInvalidData,
		ArgIndex: -1,
		Detail:   fmt.Sprintf("parse %s", what),
		Cause:    cause,
	}
}

// InvalidData creates an invalid data error in the given phase
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindInvalidData,
		ArgIndex: -1,
		Detail:   detail,
	}
}

// Closed reports use of an engine or registry after Close
func Closed(op string) *Error {
	return &Error{
		Phase:    PhaseLifecycle,
		Kind:     KindClosed,
		Op:       op,
		ArgIndex: -1,
		Detail:   "engine closed",
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     kind,
		ArgIndex: -1,
		Detail:   detail,
		Cause:    cause,
	}
}
