// Package modal implements the login/register modal: its local form state,
// the mode toggle, submit dispatch and the success notification effect.
package modal

import (
	"strings"
	"sync"

	"github.com/Its-donkey/quill/internal/auth"
	"github.com/Its-donkey/quill/internal/notify"
)

// DefaultSuccessMessage is shown when the store reports success without a message.
const DefaultSuccessMessage = "Login successful!"

// Mode selects which form the modal shows.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "login"
}

// ParseMode maps "login" or "register" onto a Mode.
func ParseMode(raw string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "login":
		return ModeLogin, true
	case "register":
		return ModeRegister, true
	default:
		return ModeLogin, false
	}
}

// Draft is the in-progress form input. It lives as long as the modal does.
type Draft struct {
	Name     string
	Lastname string
	Email    string
	Password string
}

// Field describes one rendered input.
type Field struct {
	Name        string
	Type        string
	Placeholder string
	Value       string
	Required    bool
}

// View is everything the template needs to draw the modal.
type View struct {
	Open        bool
	Mode        string
	IsLogin     bool
	Fields      []Field
	SubmitLabel string
	Loading     bool
	Error       string
}

// Modal holds one visitor's modal state. Visibility and closing belong to the caller.
type Modal struct {
	mu    sync.Mutex
	mode  Mode
	draft Draft
	// authenticated is the last IsAuthenticated value seen by Observe.
	authenticated bool
}

// New returns a modal in login mode with an empty draft.
func New() *Modal {
	return &Modal{}
}

// Mode returns the current mode.
func (m *Modal) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// SetMode switches between login and register. The draft is kept.
func (m *Modal) SetMode(mode Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}

// Change updates one draft field by input name. It reports whether the name was known.
func (m *Modal) Change(name, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch name {
	case "name":
		m.draft.Name = value
	case "lastname":
		m.draft.Lastname = value
	case "email":
		m.draft.Email = value
	case "password":
		m.draft.Password = value
	default:
		return false
	}
	return true
}

// Draft returns a copy of the current input.
func (m *Modal) Draft() Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft
}

// Fields lists the inputs for the current mode, in display order.
func (m *Modal) Fields() []Field {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fieldsLocked()
}

func (m *Modal) fieldsLocked() []Field {
	fields := make([]Field, 0, 4)
	if m.mode == ModeRegister {
		fields = append(fields,
			Field{Name: "name", Type: "text", Placeholder: "Name", Value: m.draft.Name, Required: true},
			Field{Name: "lastname", Type: "text", Placeholder: "Last name", Value: m.draft.Lastname, Required: true},
		)
	}
	// The password is never echoed back into the page.
	return append(fields,
		Field{Name: "email", Type: "email", Placeholder: "Email", Value: m.draft.Email, Required: true},
		Field{Name: "password", Type: "password", Placeholder: "Password", Required: true},
	)
}

// Submit dispatches the action for the current mode. In login mode onClose
// runs straight after the dispatch, before the outcome is known. Register
// leaves the modal open. Lastname is not part of the register payload.
func (m *Modal) Submit(dispatch auth.Dispatcher, onClose func()) {
	m.mu.Lock()
	mode := m.mode
	draft := m.draft
	m.mu.Unlock()

	if mode == ModeLogin {
		if dispatch != nil {
			dispatch(auth.Login{Email: draft.Email, Password: draft.Password})
		}
		if onClose != nil {
			onClose()
		}
		return
	}
	if dispatch != nil {
		dispatch(auth.Register{Name: draft.Name, Email: draft.Email, Password: draft.Password})
	}
}

// Observe feeds the latest store state to the modal. When IsAuthenticated
// flips to true while the modal is open it raises one success notification.
// It never closes the modal. It reports whether a notification was raised.
func (m *Modal) Observe(open bool, st auth.State, sink notify.Sink) bool {
	m.mu.Lock()
	flipped := st.IsAuthenticated && !m.authenticated
	m.authenticated = st.IsAuthenticated
	m.mu.Unlock()

	if !flipped || !open || sink == nil {
		return false
	}
	msg := st.Message
	if msg == "" {
		msg = DefaultSuccessMessage
	}
	sink.Success(msg)
	return true
}

// View builds the render model for the modal.
func (m *Modal) View(open bool, st auth.State) View {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := View{
		Open:    open,
		Mode:    m.mode.String(),
		IsLogin: m.mode == ModeLogin,
		Fields:  m.fieldsLocked(),
		Loading: st.IsLoading,
		Error:   st.Error,
	}
	switch {
	case v.IsLogin && st.IsLoading:
		v.SubmitLabel = "Logging in..."
	case v.IsLogin:
		v.SubmitLabel = "Log In"
	case st.IsLoading:
		v.SubmitLabel = "Signing up..."
	default:
		v.SubmitLabel = "Sign Up"
	}
	return v
}
