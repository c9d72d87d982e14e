package server

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/Its-donkey/quill/internal/auth"
	"github.com/Its-donkey/quill/internal/notify"
	"github.com/Its-donkey/quill/internal/ui/admin"
	"github.com/Its-donkey/quill/internal/ui/blog"
	"github.com/Its-donkey/quill/internal/ui/modal"
)

type basePageData struct {
	PageTitle       string
	StylesheetPath  string
	SiteName        string
	MetaDescription string
	CurrentYear     int
	ReturnPath      string
	Auth            auth.State
	Modal           modal.View
	Toasts          []notify.Toast
}

type homePageData struct {
	basePageData
}

type blogPageData struct {
	basePageData
	Article blog.Article
	Body    template.HTML
}

type adminPageData struct {
	basePageData
	Tabs    []admin.TabLink
	Content admin.Content
	Flash   string
	Error   string
}

// buildBasePageData feeds the current auth snapshot to the session's modal
// before anything is drawn, then drains the toasts it may have raised.
func (s *server) buildBasePageData(r *http.Request, sess *uiSession, title, description string) basePageData {
	if strings.TrimSpace(title) == "" {
		title = s.siteName
	}
	st := sess.store.Snapshot()
	open := sess.isOpen()
	if sess.modal.Observe(open, st, sess.toasts) {
		s.logger.Info("modal", "authentication succeeded while modal open", map[string]any{"user_id": st.User.ID})
	}
	return basePageData{
		PageTitle:       title,
		StylesheetPath:  s.stylesPath,
		SiteName:        s.siteName,
		MetaDescription: description,
		CurrentYear:     s.currentYear,
		ReturnPath:      returnPath(r),
		Auth:            st,
		Modal:           sess.modal.View(open, st),
		Toasts:          sess.toasts.Drain(),
	}
}

// render executes the named page into a buffer so a template failure never
// leaves a half-written response.
func (s *server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.templates[name]
	if !ok {
		s.logger.Error("server", "template missing", nil, map[string]any{"template": name})
		http.Error(w, name+" template missing", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "document", data); err != nil {
		s.logger.Error("server", "template error", err, map[string]any{"template": name})
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
