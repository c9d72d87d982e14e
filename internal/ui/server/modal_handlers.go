package server

import (
	"net/http"

	"github.com/Its-donkey/quill/internal/auth"
	"github.com/Its-donkey/quill/internal/ui/modal"
	"github.com/Its-donkey/quill/logging"
)

var modalFields = []string{"name", "lastname", "email", "password"}

func (s *server) handleModalOpen(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess := s.sessions.get(w, r)
	sess.setOpen(true)
	http.Redirect(w, r, safeReturn(r.FormValue("return")), http.StatusSeeOther)
}

func (s *server) handleModalClose(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if sess, ok := s.sessions.peek(r); ok {
		sess.setOpen(false)
	}
	http.Redirect(w, r, safeReturn(r.FormValue("return")), http.StatusSeeOther)
}

// handleModalMode switches between login and register. Anything typed so far
// is kept in the draft.
func (s *server) handleModalMode(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sess := s.sessions.get(w, r)
	captureDraft(sess.modal, r)
	if mode, ok := modal.ParseMode(r.PostForm.Get("mode")); ok {
		sess.modal.SetMode(mode)
	} else {
		s.logger.Warn("modal", "unknown mode", map[string]any{"mode": r.PostForm.Get("mode")})
	}
	http.Redirect(w, r, safeReturn(r.PostForm.Get("return")), http.StatusSeeOther)
}

func (s *server) handleModalSubmit(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sess := s.sessions.get(w, r)
	captureDraft(sess.modal, r)
	mode := sess.modal.Mode()
	if !s.allowAuthAttempt(r) {
		sess.store.Reject(auth.ErrRateLimited)
		sess.setOpen(true)
		http.Redirect(w, r, safeReturn(r.PostForm.Get("return")), http.StatusSeeOther)
		return
	}
	sess.modal.Submit(sess.store.Dispatcher(), func() { sess.setOpen(false) })
	s.logger.WithRequestID(logging.RequestIDFromContext(r.Context())).
		WithCategory("modal").
		WithField("mode", mode.String()).
		Info("submitted")
	http.Redirect(w, r, safeReturn(r.PostForm.Get("return")), http.StatusSeeOther)
}

// allowAuthAttempt counts one login or register attempt against the
// client's budget.
func (s *server) allowAuthAttempt(r *http.Request) bool {
	if s.limiter == nil || s.rateAttempts <= 0 {
		return true
	}
	key := s.clientKey(r)
	decision := s.limiter.Allow(key+":"+r.URL.Path, s.rateAttempts, s.rateWindow)
	if !decision.Allowed {
		s.logger.Warn("auth", "rate limit exceeded", map[string]any{"path": r.URL.Path, "key": key})
	}
	return decision.Allowed
}

func captureDraft(m *modal.Modal, r *http.Request) {
	for _, name := range modalFields {
		if values, ok := r.PostForm[name]; ok && len(values) > 0 {
			m.Change(name, values[0])
		}
	}
}
