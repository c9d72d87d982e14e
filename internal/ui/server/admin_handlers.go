package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Its-donkey/quill/internal/auth"
	"github.com/Its-donkey/quill/internal/posts"
	"github.com/Its-donkey/quill/internal/ui/admin"
	"github.com/Its-donkey/quill/logging"
)

const sessionExpiredText = "Your session has expired. Please log in again."

// requireAuth returns the session when its store is authenticated and its
// token still checks out. Otherwise it sends the visitor home with the login
// modal open.
func (s *server) requireAuth(w http.ResponseWriter, r *http.Request) (*uiSession, bool) {
	sess, ok := s.sessions.peek(r)
	if !ok || !sess.store.Snapshot().IsAuthenticated {
		http.Redirect(w, r, "/?modal=open", http.StatusSeeOther)
		return nil, false
	}
	if s.authz == nil {
		return sess, true
	}

	st := sess.store.Snapshot()
	ctx, cancel := context.WithTimeout(r.Context(), s.actionTimeout)
	defer cancel()
	if _, err := s.authz.Authorize(ctx, st.Token); err != nil {
		if errors.Is(err, auth.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("auth", "token check failed", err, map[string]any{"user_id": st.User.ID})
			http.Error(w, "Authentication is currently unavailable.", http.StatusServiceUnavailable)
			return nil, false
		}
		s.logger.Info("auth", "session token rejected", map[string]any{"user_id": st.User.ID})
		sess.store.Logout()
		sess.toasts.Error(sessionExpiredText)
		sess.setOpen(true)
		http.Redirect(w, r, "/?modal=open", http.StatusSeeOther)
		return nil, false
	}
	return sess, true
}

func (s *server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	sess, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	base := s.buildBasePageData(r, sess, "Admin · "+s.siteName, "")
	data := adminPageData{
		basePageData: base,
		Tabs:         sess.panel.Tabs(),
		Content:      sess.panel.Content(),
		Flash:        strings.TrimSpace(r.URL.Query().Get("msg")),
		Error:        strings.TrimSpace(r.URL.Query().Get("err")),
	}
	s.render(w, "admin", data)
}

func (s *server) handleAdminTab(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	label := r.FormValue("tab")
	tab, known := admin.ParseTab(label)
	if !known {
		s.logger.Warn("admin", "unknown tab", map[string]any{"tab": label})
		redirectWith(w, r, "/admin", "", "Unknown tab.")
		return
	}
	sess.panel.Select(tab)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *server) handleAdminPosts(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/admin", "", "Invalid post form.")
		return
	}
	form := admin.ParsePostForm(r.PostForm)
	form.Errors = form.Validate()
	if form.Errors.Any() {
		sess.panel.SetPostForm(form)
		redirectWith(w, r, "/admin", "", "Title and body are required.")
		return
	}
	if s.posts == nil {
		sess.panel.SetPostForm(form)
		redirectWith(w, r, "/admin", "", "Post storage is not configured.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	user := sess.store.Snapshot().User
	logCtx := s.logger.WithRequestID(logging.RequestIDFromContext(r.Context())).
		WithCategory("admin").
		WithField("user_id", user.ID)
	created, err := s.posts.Create(ctx, form.Post(user.ID))
	if err != nil {
		sess.panel.SetPostForm(form)
		if errors.Is(err, posts.ErrInvalidPost) {
			redirectWith(w, r, "/admin", "", "Title and body are required.")
			return
		}
		logCtx.Error("create post failed", err)
		redirectWith(w, r, "/admin", "", "Could not save the post. Please try again.")
		return
	}
	logCtx.WithField("post_id", created.ID).Info("post created")
	sess.panel.ResetPostForm()
	redirectWith(w, r, "/admin", "Post created.", "")
}
