package runtime

import (
	stderrors "errors"
	"testing"
	"time"

	gobjectruntime "github.com/gtkflux/gobject-runtime"
	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/handles"
	"github.com/gtkflux/gobject-runtime/internal/enginetest"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

func newTestRuntime() (*Runtime, *enginetest.Engine) {
	e := enginetest.New()
	r := New(Config{Engine: e, PumpInterval: time.Millisecond})
	return r, e
}

func TestValidateAppID(t *testing.T) {
	tests := []struct {
		id string
		ok bool
	}{
		{"com.example.App", true},
		{"org.gnome.TextEditor", true},
		{"io.github.someproject.Demo_1", true},
		{"a.b", true},
		{"", false},
		{"io.github.some-project.Demo", false},
		{"single", false},
		{"com.", false},
		{".example", false},
		{"com..example", false},
		{"1com.example", false},
		{"com.2example", false},
		{"com.exa mple", false},
		{"com.exam!ple", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateAppID(tt.id)
			if tt.ok && err != nil {
				t.Fatalf("want valid, got %v", err)
			}
			if !tt.ok {
				var re *errors.Error
				if !stderrors.As(err, &re) || re.Kind != errors.KindInvalidAppID {
					t.Fatalf("want invalid_app_id, got %v", err)
				}
			}
		})
	}
}

func TestStart_CreatesAndRegistersApplication(t *testing.T) {
	r, e := newTestRuntime()
	defer r.Stop()

	app, err := r.Start("com.example.Demo", 0)
	if err != nil {
		t.Fatal(err)
	}
	if app == nil || app.ID() != "com.example.Demo" {
		t.Fatalf("app = %+v", app)
	}
	if e.CallCount("gtk-4.0", "gtk_init") != 1 {
		t.Fatal("toolkit must be initialized")
	}
	if e.CallCount("gio-2.0", "g_application_register") != 1 {
		t.Fatal("application must be registered")
	}

	native := e.Object(app.Native().Addr())
	if native == nil || native.AppID != "com.example.Demo" {
		t.Fatalf("native application = %+v", native)
	}
}

func TestStart_Idempotent(t *testing.T) {
	r, e := newTestRuntime()
	defer r.Stop()

	app1, err := r.Start("com.example.Demo", 0)
	if err != nil {
		t.Fatal(err)
	}
	app2, err := r.Start("com.example.Other", 4)
	if err != nil {
		t.Fatal(err)
	}
	if app1 != app2 {
		t.Fatal("second start must return the same application")
	}
	if e.CallCount("gtk-4.0", "gtk_application_new") != 1 {
		t.Fatal("second start must not create a second application")
	}
}

func TestStart_RejectsInvalidID(t *testing.T) {
	r, _ := newTestRuntime()

	if _, err := r.Start("not-reverse-dns", 0); err == nil {
		t.Fatal("invalid id must fail")
	}
	if r.Started() {
		t.Fatal("failed start must leave the runtime stopped")
	}
}

func TestStart_SurvivesMissingAdwaita(t *testing.T) {
	r, e := newTestRuntime()
	defer r.Stop()

	// The fake engine has no adw_init on purpose.
	if _, err := r.Start("com.example.Demo", 0); err != nil {
		t.Fatalf("optional styling init must not be fatal: %v", err)
	}
	if e.CallCount("adwaita-1", "adw_init") != 0 {
		t.Fatal("unexpected adw_init registration in the fake")
	}
}

func TestGuard_BlocksOutsideLifecycle(t *testing.T) {
	r, _ := newTestRuntime()
	notStarted := errors.NotStarted("", "", "")

	if _, err := r.Bridge().Call("gtk-4.0", "gtk_init", nil, typedesc.Void()); !stderrors.Is(err, notStarted) {
		t.Fatalf("before start: %v", err)
	}

	if _, err := r.Start("com.example.Demo", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Bridge().Alloc(8, "", ""); err != nil {
		t.Fatalf("while started: %v", err)
	}

	r.Stop()
	if _, err := r.Bridge().Alloc(8, "", ""); !stderrors.Is(err, notStarted) {
		t.Fatalf("after stop: %v", err)
	}
}

func TestStop_Idempotent(t *testing.T) {
	r, _ := newTestRuntime()

	r.Stop() // never started

	if _, err := r.Start("com.example.Demo", 0); err != nil {
		t.Fatal(err)
	}
	r.Stop()
	r.Stop()
	if r.Started() {
		t.Fatal("runtime should be stopped")
	}
}

func TestStop_ResetsIdentityAndSignals(t *testing.T) {
	r, e := newTestRuntime()

	if _, err := r.Start("com.example.Demo", 0); err != nil {
		t.Fatal(err)
	}
	r.Objects().RegisterClass(handles.Class{Name: "GtkLabel",
		New: func(h gobjectruntime.Handle) gobjectruntime.Wrapper { return &testLabel{h} }})

	obj := e.NewObject("GtkLabel")
	w, err := r.Objects().Wrap(gobjectruntime.HandleAt(obj.Addr), "GtkLabel", typedesc.TransferNone)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Signals().Connect(w, w, "clicked", 0, func([]any) any { return nil }, nil); err != nil {
		t.Fatal(err)
	}

	r.Stop()
	if r.Objects().Len() != 0 || r.Signals().Count() != 0 {
		t.Fatal("stop must clear wrappers and connections")
	}
}

func TestRelease_ClearsOwnedConnections(t *testing.T) {
	r, e := newTestRuntime()
	defer r.Stop()

	if _, err := r.Start("com.example.Demo", 0); err != nil {
		t.Fatal(err)
	}
	r.Objects().RegisterClass(handles.Class{Name: "GtkLabel",
		New: func(h gobjectruntime.Handle) gobjectruntime.Wrapper { return &testLabel{h} }})

	ownerObj := e.NewObject("GtkLabel")
	target := e.NewObject("GtkLabel")
	owner, err := r.Objects().Wrap(gobjectruntime.HandleAt(ownerObj.Addr), "GtkLabel", typedesc.TransferNone)
	if err != nil {
		t.Fatal(err)
	}
	w, err := r.Objects().Wrap(gobjectruntime.HandleAt(target.Addr), "GtkLabel", typedesc.TransferNone)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Signals().Connect(owner, w, "clicked", 0, func([]any) any { return nil }, nil); err != nil {
		t.Fatal(err)
	}

	r.Objects().Release(owner)
	if r.Signals().Count() != 0 {
		t.Fatal("releasing the owner must release the connections it holds")
	}
	if target.ConnectionCount("clicked") != 0 {
		t.Fatal("native handler on the target must be disconnected")
	}
}

func TestPump_IteratesMainContext(t *testing.T) {
	r, e := newTestRuntime()

	if _, err := r.Start("com.example.Demo", 0); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	if e.Iterations == 0 {
		t.Fatal("pump never iterated the main context")
	}
}

func TestRestart_AfterStop(t *testing.T) {
	r, _ := newTestRuntime()

	if _, err := r.Start("com.example.Demo", 0); err != nil {
		t.Fatal(err)
	}
	r.Stop()

	app, err := r.Start("com.example.Second", 0)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if app.ID() != "com.example.Second" {
		t.Fatalf("restarted app id = %q", app.ID())
	}
	r.Stop()
}

type testLabel struct {
	h gobjectruntime.Handle
}

func (l *testLabel) Native() gobjectruntime.Handle { return l.h }

func TestProperty_SyntheticSetterRoundTrip(t *testing.T) {
	r, e := newTestRuntime()
	defer r.Stop()

	if _, err := r.Start("com.example.Demo", 0); err != nil {
		t.Fatal(err)
	}
	r.Objects().RegisterClass(handles.Class{Name: "GtkLabel",
		New: func(h gobjectruntime.Handle) gobjectruntime.Wrapper { return &testLabel{h} }})

	obj := e.NewObject("GtkLabel")
	w, err := r.Objects().Wrap(gobjectruntime.HandleAt(obj.Addr), "GtkLabel", typedesc.TransferNone)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name     string
		typeName string
		value    any
	}{
		{"use-markup", "gboolean", true},
		{"margin-top", "gint", int32(12)},
		{"width-chars", "guint", uint32(80)},
		{"opacity", "gdouble", 0.75},
		{"label", "utf8", "Ready"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := typedesc.DescribeSyntheticSetterPrimitive(c.typeName)
			if d == nil {
				t.Fatalf("no synthetic setter descriptor for %q", c.typeName)
			}
			if err := r.SetProperty(w, c.name, *d, c.value); err != nil {
				t.Fatal(err)
			}
			got, err := r.GetProperty(w, c.name, *d)
			if err != nil {
				t.Fatal(err)
			}
			if got != c.value {
				t.Fatalf("round trip = %v (%T), want %v", got, got, c.value)
			}
		})
	}
}

func TestDefault_RoutesThroughDefaultRuntime(t *testing.T) {
	r, _ := newTestRuntime()
	SetDefault(r)
	defer SetDefault(nil)

	notStarted := errors.NotStarted("", "", "")
	if _, err := Alloc(8, "", ""); !stderrors.Is(err, notStarted) {
		t.Fatalf("package-level ops must fail before start: %v", err)
	}
	if _, err := Wrap(gobjectruntime.HandleAt(1), "GtkLabel", typedesc.TransferNone); !stderrors.Is(err, notStarted) {
		t.Fatalf("wrap must fail before start: %v", err)
	}

	if _, err := Start("com.example.Demo", 0); err != nil {
		t.Fatal(err)
	}
	defer Stop()
	if _, err := Alloc(8, "", ""); err != nil {
		t.Fatalf("package-level alloc after start: %v", err)
	}
}
