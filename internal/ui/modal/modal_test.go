package modal

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Its-donkey/quill/internal/auth"
	"github.com/Its-donkey/quill/internal/notify"
)

func fieldNames(fields []Field) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}

type recordingDispatcher struct {
	actions []auth.Action
}

func (r *recordingDispatcher) dispatch(a auth.Action) {
	r.actions = append(r.actions, a)
}

func TestModeToggleSwitchesRequiredFields(t *testing.T) {
	m := New()
	if diff := cmp.Diff([]string{"email", "password"}, fieldNames(m.Fields())); diff != "" {
		t.Fatalf("login fields mismatch (-want +got):\n%s", diff)
	}

	m.SetMode(ModeRegister)
	fields := m.Fields()
	if diff := cmp.Diff([]string{"name", "lastname", "email", "password"}, fieldNames(fields)); diff != "" {
		t.Fatalf("register fields mismatch (-want +got):\n%s", diff)
	}
	for _, f := range fields {
		if !f.Required {
			t.Fatalf("expected %s to be required", f.Name)
		}
	}

	m.SetMode(ModeLogin)
	if got := fieldNames(m.Fields()); len(got) != 2 {
		t.Fatalf("expected name/lastname to disappear, got %v", got)
	}
}

func TestChangeKeepsDraftAcrossModes(t *testing.T) {
	m := New()
	m.Change("email", "ada@example.com")
	m.SetMode(ModeRegister)
	m.Change("name", "Ada")
	m.Change("lastname", "Lovelace")
	if m.Change("nickname", "x") {
		t.Fatalf("unknown field should be rejected")
	}

	want := Draft{Name: "Ada", Lastname: "Lovelace", Email: "ada@example.com"}
	if diff := cmp.Diff(want, m.Draft()); diff != "" {
		t.Fatalf("draft mismatch (-want +got):\n%s", diff)
	}
}

func TestPasswordIsNotEchoed(t *testing.T) {
	m := New()
	m.Change("password", "hunter2")
	for _, f := range m.Fields() {
		if f.Name == "password" && f.Value != "" {
			t.Fatalf("password value rendered: %q", f.Value)
		}
	}
}

func TestLoginSubmitClosesImmediately(t *testing.T) {
	m := New()
	m.Change("email", "ada@example.com")
	m.Change("password", "pw")

	rec := &recordingDispatcher{}
	closed := 0
	m.Submit(rec.dispatch, func() {
		if len(rec.actions) != 1 {
			t.Fatalf("expected dispatch before close")
		}
		closed++
	})

	if closed != 1 {
		t.Fatalf("expected close callback once, got %d", closed)
	}
	if diff := cmp.Diff([]auth.Action{auth.Login{Email: "ada@example.com", Password: "pw"}}, rec.actions); diff != "" {
		t.Fatalf("dispatched actions mismatch (-want +got):\n%s", diff)
	}
}

func TestLoginSubmitClosesEvenWhenStoreWillFail(t *testing.T) {
	m := New()
	closed := false
	store := auth.NewStore(auth.Options{})
	m.Submit(store.Dispatch, func() { closed = true })
	if !closed {
		t.Fatalf("close must not wait for the outcome")
	}
	store.Wait()
	if store.Snapshot().Error == "" {
		t.Fatalf("expected the store to report the failure")
	}
}

func TestRegisterSubmitDoesNotClose(t *testing.T) {
	m := New()
	m.SetMode(ModeRegister)
	m.Change("name", "Ada")
	m.Change("lastname", "Lovelace")
	m.Change("email", "ada@example.com")
	m.Change("password", "pw")

	rec := &recordingDispatcher{}
	closed := false
	m.Submit(rec.dispatch, func() { closed = true })

	if closed {
		t.Fatalf("register must leave the modal open")
	}
	want := []auth.Action{auth.Register{Name: "Ada", Email: "ada@example.com", Password: "pw"}}
	if diff := cmp.Diff(want, rec.actions); diff != "" {
		t.Fatalf("dispatched actions mismatch (-want +got):\n%s", diff)
	}
}

func TestObserveNotifiesOncePerTransition(t *testing.T) {
	m := New()
	var q notify.Queue
	authed := auth.State{IsAuthenticated: true, Message: "Registration successful"}

	if m.Observe(true, auth.State{}, &q) {
		t.Fatalf("no notification expected while unauthenticated")
	}
	if !m.Observe(true, authed, &q) {
		t.Fatalf("expected notification on transition")
	}
	for i := 0; i < 3; i++ {
		if m.Observe(true, authed, &q) {
			t.Fatalf("re-render %d must not notify again", i)
		}
	}
	toasts := q.Drain()
	if len(toasts) != 1 || toasts[0].Message != "Registration successful" || toasts[0].Kind != notify.KindSuccess {
		t.Fatalf("unexpected toasts %+v", toasts)
	}

	m.Observe(true, auth.State{}, &q)
	m.Observe(true, auth.State{IsAuthenticated: true}, &q)
	if toasts := q.Drain(); len(toasts) != 1 || toasts[0].Message != DefaultSuccessMessage {
		t.Fatalf("expected default message on second transition, got %+v", toasts)
	}
}

func TestObserveWhileClosedConsumesTransition(t *testing.T) {
	m := New()
	var q notify.Queue
	authed := auth.State{IsAuthenticated: true}

	if m.Observe(false, authed, &q) {
		t.Fatalf("closed modal must not notify")
	}
	if m.Observe(true, authed, &q) {
		t.Fatalf("reopening after the transition must not notify")
	}
	if q.Len() != 0 {
		t.Fatalf("expected no toasts, got %d", q.Len())
	}
}

func TestViewSubmitLabels(t *testing.T) {
	cases := []struct {
		mode    Mode
		loading bool
		want    string
	}{
		{ModeLogin, false, "Log In"},
		{ModeLogin, true, "Logging in..."},
		{ModeRegister, false, "Sign Up"},
		{ModeRegister, true, "Signing up..."},
	}
	for _, tc := range cases {
		m := New()
		m.SetMode(tc.mode)
		v := m.View(true, auth.State{IsLoading: tc.loading, Error: "bad"})
		if v.SubmitLabel != tc.want {
			t.Fatalf("mode %s loading %v: got %q want %q", tc.mode, tc.loading, v.SubmitLabel, tc.want)
		}
		if v.Error != "bad" || !v.Open || v.Mode != tc.mode.String() {
			t.Fatalf("unexpected view %+v", v)
		}
	}
}

func TestParseMode(t *testing.T) {
	if mode, ok := ParseMode(" Register "); !ok || mode != ModeRegister {
		t.Fatalf("expected register, got %v %v", mode, ok)
	}
	if _, ok := ParseMode("signup"); ok {
		t.Fatalf("unknown mode should not parse")
	}
}
