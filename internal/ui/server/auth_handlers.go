package server

import (
	"encoding/json"
	"net/http"

	"github.com/Its-donkey/quill/internal/auth"
)

type authStateResponse struct {
	auth.State
	ModalOpen bool   `json:"modalOpen"`
	Mode      string `json:"mode"`
}

// handleAuthState reports the visitor's auth snapshot for polling clients.
// The token never leaves the server.
func (s *server) handleAuthState(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	sess := s.sessions.view(r)
	resp := authStateResponse{
		State:     sess.store.Snapshot(),
		ModalOpen: sess.isOpen(),
		Mode:      sess.modal.Mode().String(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if sess, ok := s.sessions.peek(r); ok {
		user := sess.store.Snapshot().User
		sess.store.Logout()
		sess.setOpen(false)
		s.logger.Info("auth", "logged out", map[string]any{"user_id": user.ID})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
