package signals

import (
	"strings"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/handles"
	"github.com/gtkflux/gobject-runtime/typedesc"
	"go.uber.org/zap"
)

// Handler is a Go signal handler. Signal parameters come first in
// native order; the emitting object is moved to the end, where most
// handlers that ignore it can leave it unnamed. The return value is
// consulted only for boolean-returning shapes.
type Handler func(args []any) any

// ConnectOptions tunes one connection.
type ConnectOptions struct {
	// After runs the handler in the after stage (G_CONNECT_AFTER).
	After bool
}

const connectAfterFlag = 1

type entry struct {
	token     uintptr
	ownerAddr uintptr
	objAddr   uintptr
	signal    string
	shape     int
	handlerID uint64
	fn        Handler
	oneShot   bool

	cancelDestroy func()
}

type trampoline struct {
	fnptr   uintptr
	release func()
}

// Manager owns every signal connection and callback trampoline. One
// native closure exists per dispatch shape; connections multiplex over
// it through the user-data token, so connecting never allocates native
// code.
//
// Like the registry, the manager is confined to the dispatch goroutine
// and unsynchronized.
type Manager struct {
	eng gobjectruntime.Engine
	reg *handles.Registry

	tramps [shapeCount]*trampoline

	byToken map[uintptr]*entry
	byConn  map[connID]*entry

	blockDepth int
}

// New creates a manager dispatching through eng and resolving object
// arguments through reg.
func New(eng gobjectruntime.Engine, reg *handles.Registry) *Manager {
	return &Manager{
		eng:     eng,
		reg:     reg,
		byToken: make(map[uintptr]*entry),
		byConn:  make(map[connID]*entry),
	}
}

// connID keys a managed connection. Owner and object are distinct
// dimensions: the component that registered the handler clears by
// owner, while native finalization retires by object.
type connID struct {
	owner  uintptr
	obj    uintptr
	signal string
}

// Connect attaches fn to signal on obj, registered under owner: the
// Go-side party responsible for the connection, usually the component
// whose state the handler touches. A nil owner makes obj its own
// owner. An existing connection for the same owner, object and signal
// is disconnected first, so there is never more than one live
// connection per key; reconnecting with a new handler is therefore
// always safe, never additive.
func (m *Manager) Connect(owner, obj gobjectruntime.Wrapper, signal string, shape int, fn Handler, opts *ConnectOptions) error {
	if obj == nil || obj.Native().IsNil() {
		return errors.InvalidHandle("connect")
	}
	if owner == nil {
		owner = obj
	}
	if owner.Native().IsNil() {
		return errors.InvalidHandle("connect")
	}
	if !ValidShape(shape) {
		return errors.UnsupportedCallback(signal)
	}
	if fn == nil {
		return errors.InvalidData(errors.PhaseSignal, "nil handler for "+signal)
	}

	ownerAddr := owner.Native().Addr()
	addr := obj.Native().Addr()
	m.Disconnect(owner, obj, signal)

	fnptr, err := m.trampoline(shape)
	if err != nil {
		return err
	}

	e := &entry{
		ownerAddr: ownerAddr,
		objAddr:   addr,
		signal:    signal,
		shape:     shape,
		fn:        fn,
	}

	// The user-data slot is shared between the handler and the destroy
	// notification, so the engine's notify token doubles as the
	// connection token. The notification retires it when the native side
	// drops the connection (object finalized, or our own disconnect);
	// either path removes the entry exactly once.
	destroyPtr, destroyData, cancel := m.eng.DestroyNotify(func() {
		m.forget(e)
	})
	e.token = destroyData
	e.cancelDestroy = cancel

	nameAddr, err := m.newCString(signal)
	if err != nil {
		cancel()
		return err
	}
	defer m.free(nameAddr)

	var flags uint64
	if opts != nil && opts.After {
		flags = connectAfterFlag
	}

	sig := gobjectruntime.Signature{
		Ret: typedesc.SlotU64,
		Args: []typedesc.SlotKind{
			typedesc.SlotPointer, typedesc.SlotPointer, typedesc.SlotPointer,
			typedesc.SlotPointer, typedesc.SlotPointer, typedesc.SlotU32,
		},
	}
	id, err := m.eng.Invoke("gobject-2.0", "g_signal_connect_data", sig, []uint64{
		uint64(addr), uint64(nameAddr), uint64(fnptr),
		uint64(e.token), uint64(destroyPtr), flags,
	})
	if err != nil {
		cancel()
		return err
	}
	if id == 0 {
		cancel()
		return errors.InvalidData(errors.PhaseSignal, "no signal "+signal+" on instance")
	}

	e.handlerID = id
	m.byToken[e.token] = e
	m.byConn[connID{ownerAddr, addr, signal}] = e
	logger().Debug("signal connected",
		zap.String("signal", signal), zap.Uint64("handler_id", id))
	return nil
}

// Disconnect removes owner's connection for signal on obj.
// Disconnecting a signal that is not connected, or one held by a
// different owner, is a no-op.
func (m *Manager) Disconnect(owner, obj gobjectruntime.Wrapper, signal string) {
	if obj == nil || obj.Native().IsNil() {
		return
	}
	if owner == nil {
		owner = obj
	}
	e, ok := m.byConn[connID{owner.Native().Addr(), obj.Native().Addr(), signal}]
	if !ok {
		return
	}
	sig := gobjectruntime.Signature{
		Ret:  typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer, typedesc.SlotU64},
	}
	_, _ = m.eng.Invoke("gobject-2.0", "g_signal_handler_disconnect", sig,
		[]uint64{uint64(e.objAddr), e.handlerID})
	// The native disconnect fires the destroy-data notification, which
	// forgets the entry. Forget directly as well in case the native
	// side skipped the notification.
	m.forget(e)
}

// Clear disconnects every connection owner holds, across however many
// objects it connected to. Called when a component is torn down so its
// handlers cannot outlive it; every native handler id the owner holds
// is released exactly once.
func (m *Manager) Clear(owner gobjectruntime.Wrapper) {
	if owner == nil || owner.Native().IsNil() {
		return
	}
	m.ClearAddr(owner.Native().Addr())
}

// ClearAddr is Clear for call sites that only hold the owner's native
// address, such as the registry release observer.
func (m *Manager) ClearAddr(addr uintptr) {
	if addr == 0 {
		return
	}
	var doomed []*entry
	for _, e := range m.byConn {
		if e.ownerAddr == addr {
			doomed = append(doomed, e)
		}
	}
	for _, e := range doomed {
		sig := gobjectruntime.Signature{
			Ret:  typedesc.SlotVoid,
			Args: []typedesc.SlotKind{typedesc.SlotPointer, typedesc.SlotU64},
		}
		_, _ = m.eng.Invoke("gobject-2.0", "g_signal_handler_disconnect", sig,
			[]uint64{uint64(e.objAddr), e.handlerID})
		m.forget(e)
	}
}

// lifecycleSignals may never be suppressed: blocking them would corrupt
// widget state machines (a widget that misses unrealize tears down
// wrong) and factory item recycling (setup/bind/unbind/teardown).
var lifecycleSignals = map[string]bool{
	"realize": true, "unrealize": true,
	"map": true, "unmap": true,
	"show": true, "hide": true,
	"destroy": true, "resize": true, "render": true,
	"setup": true, "bind": true, "unbind": true, "teardown": true,
}

func baseSignal(signal string) string {
	if i := strings.Index(signal, "::"); i >= 0 {
		return signal[:i]
	}
	return signal
}

// BlockAll suppresses non-lifecycle handler dispatch until the matching
// UnblockAll. Calls nest; dispatch resumes when the depth returns to
// zero. Used around batched mutations so intermediate states do not
// leak out as notify storms.
func (m *Manager) BlockAll() {
	m.blockDepth++
}

// UnblockAll undoes one BlockAll.
func (m *Manager) UnblockAll() {
	if m.blockDepth > 0 {
		m.blockDepth--
	}
}

// ForceUnblockAll resets the block depth to zero regardless of nesting,
// for error recovery paths that cannot know how deep they are.
func (m *Manager) ForceUnblockAll() {
	m.blockDepth = 0
}

// Blocked reports whether non-lifecycle dispatch is currently
// suppressed.
func (m *Manager) Blocked() bool {
	return m.blockDepth > 0
}

// ConnectAsyncReady registers a one-shot GAsyncReadyCallback and returns the
// function pointer and user data to pass to the async call. The
// callback runs once when the operation finishes and the token retires
// itself; cancel retires it without running.
func (m *Manager) ConnectAsyncReady(fn func(source, result gobjectruntime.Handle)) (fnptr, data uintptr, cancel func(), err error) {
	tramp, err := m.trampoline(ShapePtr)
	if err != nil {
		return 0, 0, nil, err
	}

	// Mint the token from the engine's notify space so it can never
	// collide with a connection token. The notify function itself is
	// never handed to native code here.
	_, token, engCancel := m.eng.DestroyNotify(func() {})
	e := &entry{
		token:   token,
		signal:  "async-ready",
		shape:   ShapePtr,
		oneShot: true,
		fn: func(args []any) any {
			// ShapePtr order after reordering: result, source.
			res := asHandle(args[0])
			src := asHandle(args[1])
			fn(src, res)
			return nil
		},
	}
	e.cancelDestroy = engCancel
	m.byToken[e.token] = e
	return tramp, e.token, func() {
		engCancel()
		delete(m.byToken, e.token)
	}, nil
}

// NewCallback registers a standing callback for native APIs that take a
// function pointer with a destroy notifier (tick callbacks, sort and
// filter functions). It returns the function pointer, user data and
// destroy-notify pointer to pass to the native call; the notifier
// retires the callback when the native side drops it, and cancel
// retires it from the Go side.
func (m *Manager) NewCallback(shape int, fn Handler) (fnptr, data, destroy uintptr, cancel func(), err error) {
	if !ValidShape(shape) {
		return 0, 0, 0, nil, errors.UnsupportedCallback("callback")
	}
	if fn == nil {
		return 0, 0, 0, nil, errors.InvalidData(errors.PhaseSignal, "nil callback")
	}
	tramp, err := m.trampoline(shape)
	if err != nil {
		return 0, 0, 0, nil, err
	}

	e := &entry{
		signal: "callback",
		shape:  shape,
		fn:     fn,
	}
	destroyPtr, token, engCancel := m.eng.DestroyNotify(func() {
		m.forget(e)
	})
	e.token = token
	e.cancelDestroy = engCancel
	m.byToken[token] = e
	return tramp, token, destroyPtr, func() { m.forget(e) }, nil
}

// Count returns the number of live connections, for leak checks.
func (m *Manager) Count() int {
	return len(m.byConn)
}

// Reset drops every connection and block without touching native state.
// Runs at runtime shutdown, after which the native objects are gone
// anyway.
func (m *Manager) Reset() {
	for _, e := range m.byToken {
		if e.cancelDestroy != nil {
			e.cancelDestroy()
		}
	}
	m.byToken = make(map[uintptr]*entry)
	m.byConn = make(map[connID]*entry)
	m.blockDepth = 0
}

// Close additionally releases the shared trampolines. The manager is
// unusable afterwards.
func (m *Manager) Close() {
	m.Reset()
	for i, t := range m.tramps {
		if t != nil {
			t.release()
			m.tramps[i] = nil
		}
	}
}

func (m *Manager) forget(e *entry) {
	stored, ok := m.byToken[e.token]
	if !ok || stored != e {
		return
	}
	if e.cancelDestroy != nil {
		e.cancelDestroy()
	}
	delete(m.byToken, e.token)
	key := connID{e.ownerAddr, e.objAddr, e.signal}
	if cur := m.byConn[key]; cur == e {
		delete(m.byConn, key)
	}
}

func (m *Manager) trampoline(shape int) (uintptr, error) {
	if t := m.tramps[shape]; t != nil {
		return t.fnptr, nil
	}
	fnptr, release, err := m.eng.NewClosure(shapeSigs[shape], func(args []uint64) uint64 {
		return m.dispatch(shape, args)
	})
	if err != nil {
		return 0, err
	}
	m.tramps[shape] = &trampoline{fnptr: fnptr, release: release}
	return fnptr, nil
}

// dispatch is the single entry point for every native callback
// invocation. The last argument is the connection token; a token with
// no entry means the connection was torn down after the emission was
// queued, which is dropped silently rather than crashing inside a C
// stack frame.
func (m *Manager) dispatch(shape int, args []uint64) uint64 {
	if len(args) != len(shapeSigs[shape].Args) {
		logger().Warn("callback arity mismatch", zap.Int("shape", shape), zap.Int("argc", len(args)))
		return 0
	}

	token := uintptr(args[len(args)-1])
	e, ok := m.byToken[token]
	if !ok {
		return 0
	}
	if e.oneShot {
		delete(m.byToken, token)
	}

	// One-shot completions are never suppressed; losing one would leak
	// the pending operation forever.
	if m.blockDepth > 0 && !e.oneShot && !lifecycleSignals[baseSignal(e.signal)] {
		return 0
	}

	// Native order is (instance, params..., data). Handlers get the
	// params first and the emitting object last.
	slots := shapeSigs[shape].Args
	goArgs := make([]any, 0, len(args)-1)
	for i := 1; i < len(args)-1; i++ {
		goArgs = append(goArgs, m.convert(slots[i], args[i]))
	}
	goArgs = append(goArgs, m.resolve(uintptr(args[0])))

	ret := e.fn(goArgs)

	if shapeSigs[shape].Ret == typedesc.SlotVoid {
		return 0
	}
	switch v := ret.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case int:
		return uint64(int64(v))
	case int32:
		return uint64(v)
	default:
		return 0
	}
}

func (m *Manager) convert(k typedesc.SlotKind, raw uint64) any {
	switch k {
	case typedesc.SlotS32:
		return int32(raw)
	case typedesc.SlotPointer:
		return m.resolve(uintptr(raw))
	default:
		return raw
	}
}

// resolve maps a native object address to its managed wrapper when one
// exists, falling back to a bare handle for objects the registry has
// never seen.
func (m *Manager) resolve(addr uintptr) any {
	if addr == 0 {
		return gobjectruntime.NilHandle
	}
	if w, ok := m.reg.Lookup(addr); ok {
		return w
	}
	return gobjectruntime.HandleAt(addr)
}

func asHandle(v any) gobjectruntime.Handle {
	switch x := v.(type) {
	case gobjectruntime.Handle:
		return x
	case gobjectruntime.Wrapper:
		return x.Native()
	}
	return gobjectruntime.NilHandle
}

func (m *Manager) newCString(s string) (uintptr, error) {
	sig := gobjectruntime.Signature{
		Ret:  typedesc.SlotPointer,
		Args: []typedesc.SlotKind{typedesc.SlotU64},
	}
	raw, err := m.eng.Invoke("glib-2.0", "g_malloc0", sig, []uint64{uint64(len(s) + 1)})
	if err != nil {
		return 0, err
	}
	addr := uintptr(raw)
	if len(s) > 0 {
		if err := m.eng.Write(addr, 0, []byte(s)); err != nil {
			m.free(addr)
			return 0, err
		}
	}
	return addr, nil
}

func (m *Manager) free(addr uintptr) {
	if addr == 0 {
		return
	}
	sig := gobjectruntime.Signature{
		Ret:  typedesc.SlotVoid,
		Args: []typedesc.SlotKind{typedesc.SlotPointer},
	}
	_, _ = m.eng.Invoke("glib-2.0", "g_free", sig, []uint64{uint64(addr)})
}
