package runtime

import (
	"time"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/bridge"
	"github.com/gtkflux/gobject-runtime/engine"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/handles"
	"github.com/gtkflux/gobject-runtime/signals"
	"github.com/gtkflux/gobject-runtime/typedesc"
	"go.uber.org/zap"
)

// Config configures a Runtime.
type Config struct {
	// Engine overrides the native substrate. Nil selects the dlopen
	// engine; tests inject fakes here.
	Engine gobjectruntime.Engine

	// LibraryPaths overrides shared-library locations by logical name,
	// forwarded to the dlopen engine.
	LibraryPaths map[string]string

	// Logger receives structured logs from every layer. Nil disables
	// logging.
	Logger *zap.Logger

	// PumpInterval is the idle delay between main-context iterations of
	// the background pump. Zero selects the default.
	PumpInterval time.Duration
}

const defaultPumpInterval = 5 * time.Millisecond

// Runtime ties the layers together: engine, bridge, identity registry
// and signal manager, plus the start/stop lifecycle every bridge
// operation is gated on.
type Runtime struct {
	eng    gobjectruntime.Engine
	bridge *bridge.Bridge
	reg    *handles.Registry
	sig    *signals.Manager

	pumpInterval time.Duration

	started  bool
	stopping bool
	app      *Application

	quit chan struct{}
	done chan struct{}
}

// New assembles a runtime from cfg. Nothing native happens until Start.
func New(cfg Config) *Runtime {
	if cfg.Logger != nil {
		engine.SetLogger(cfg.Logger.Named("engine"))
		handles.SetLogger(cfg.Logger.Named("handles"))
		signals.SetLogger(cfg.Logger.Named("signals"))
		SetLogger(cfg.Logger.Named("runtime"))
	}

	eng := cfg.Engine
	if eng == nil {
		eng = engine.NewDL(engine.Config{LibraryPaths: cfg.LibraryPaths})
	}

	r := &Runtime{
		eng:          eng,
		pumpInterval: cfg.PumpInterval,
	}
	if r.pumpInterval <= 0 {
		r.pumpInterval = defaultPumpInterval
	}
	r.bridge = bridge.New(eng, r)
	r.reg = handles.New(eng)
	r.sig = signals.New(eng, r.reg)

	// A wrapper leaving the registry takes the connections it owns with
	// it; connections on the object itself retire through the native
	// destroy notification instead.
	r.reg.SetObserver(func(event, _ string, addr uintptr) {
		if event == "release" || event == "invalidate" {
			r.sig.ClearAddr(addr)
		}
	})

	r.reg.RegisterClass(handles.Class{
		Name: "GtkApplication",
		New: func(h gobjectruntime.Handle) gobjectruntime.Wrapper {
			return &Application{h: h, rt: r}
		},
	})
	return r
}

// Started implements the bridge lifecycle guard.
func (r *Runtime) Started() bool {
	return r.started
}

// Bridge returns the marshaling layer.
func (r *Runtime) Bridge() *bridge.Bridge { return r.bridge }

// Objects returns the identity registry.
func (r *Runtime) Objects() *handles.Registry { return r.reg }

// Signals returns the signal manager.
func (r *Runtime) Signals() *signals.Manager { return r.sig }

// Engine returns the native substrate.
func (r *Runtime) Engine() gobjectruntime.Engine { return r.eng }

// Start initializes the toolkit and creates the application object.
// appID must be a reverse-DNS name; flags are GApplicationFlags.
//
// Start is idempotent: a started runtime returns its existing
// application regardless of the arguments, so component code can call
// it defensively without spawning second applications.
func (r *Runtime) Start(appID string, flags uint32) (*Application, error) {
	if r.started {
		return r.app, nil
	}
	if err := ValidateAppID(appID); err != nil {
		return nil, err
	}

	// The guard opens before the first native call and closes again on
	// any failure below.
	r.started = true
	ok := false
	defer func() {
		if !ok {
			r.started = false
		}
	}()

	if _, err := r.bridge.Call("gtk-4.0", "gtk_init", nil, typedesc.Void()); err != nil {
		return nil, err
	}

	// Adwaita styling is optional; a platform without it still runs.
	if _, err := r.bridge.Call("adwaita-1", "adw_init", nil, typedesc.Void()); err != nil {
		logger().Info("adwaita unavailable, continuing without it", zap.Error(err))
	}

	raw, err := r.bridge.Call("gtk-4.0", "gtk_application_new", []bridge.Arg{
		{Desc: typedesc.Str(typedesc.TransferNone), Value: appID},
		{Desc: typedesc.FlagsDesc("GApplicationFlags"), Value: flags},
	}, typedesc.ObjectDesc("GtkApplication", typedesc.TransferFull))
	if err != nil {
		return nil, err
	}
	appHandle, _ := raw.(gobjectruntime.Handle)
	if appHandle.IsNil() {
		return nil, errors.InvalidData(errors.PhaseLifecycle, "gtk_application_new returned NULL")
	}

	w, err := r.reg.Wrap(appHandle, "GtkApplication", typedesc.TransferFull)
	if err != nil {
		return nil, err
	}
	app, _ := w.(*Application)
	if app == nil {
		app = &Application{h: appHandle, rt: r}
	}
	app.id = appID

	if err := r.register(app); err != nil {
		r.reg.Reset()
		return nil, err
	}

	r.app = app
	r.quit = make(chan struct{})
	r.done = make(chan struct{})
	go r.pump(r.quit, r.done)

	ok = true
	logger().Info("runtime started", zap.String("app_id", appID))
	return app, nil
}

// register announces the application to the session bus. A refused
// registration is fatal; the id is taken or the bus rejected us.
func (r *Runtime) register(app *Application) error {
	slot, err := r.bridge.NewErrorSlot()
	if err != nil {
		return err
	}
	raw, err := r.bridge.Call("gio-2.0", "g_application_register", []bridge.Arg{
		{Desc: typedesc.ObjectDesc("GtkApplication", typedesc.TransferNone), Value: app},
		{Desc: typedesc.Ptr().AsOptional(), Value: nil},
		{Desc: typedesc.Ptr(), Value: slot},
	}, typedesc.Bool())
	if err != nil {
		return err
	}

	gerr, err := r.bridge.TakeError(slot)
	if err != nil {
		return err
	}
	if gerr != nil {
		return errors.Wrap(errors.PhaseLifecycle, errors.KindNativeError, gerr,
			"application registration failed")
	}
	if ok, _ := raw.(bool); !ok {
		return errors.InvalidData(errors.PhaseLifecycle, "application registration refused")
	}
	return nil
}

// pump drives the native main context from a background goroutine,
// draining pending events and idling between bursts.
func (r *Runtime) pump(quit, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			return
		default:
		}
		// Drain everything ready, then sleep briefly.
		for r.eng.IterateMain(false) {
		}
		select {
		case <-quit:
			return
		case <-time.After(r.pumpInterval):
		}
	}
}

// Wait blocks until Stop.
func (r *Runtime) Wait() {
	if !r.started || r.done == nil {
		return
	}
	<-r.done
}

// Stop tears the runtime down: the pump exits, connections and wrapper
// identities are released, and the guard closes. Stopping a stopped or
// already-stopping runtime is a no-op. The engine stays open so a later
// Start reuses resolved libraries.
func (r *Runtime) Stop() {
	if !r.started || r.stopping {
		return
	}
	r.stopping = true

	close(r.quit)
	<-r.done

	r.sig.Reset()
	r.reg.Reset()

	r.app = nil
	r.quit = nil
	r.done = nil
	r.started = false
	r.stopping = false
	logger().Info("runtime stopped")
}

// Close stops the runtime and releases the engine. The runtime is
// unusable afterwards.
func (r *Runtime) Close() error {
	r.Stop()
	r.sig.Close()
	return r.eng.Close()
}
