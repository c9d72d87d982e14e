package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Its-donkey/quill/internal/ui/blog"
)

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	var sess *uiSession
	if r.URL.Query().Get("modal") == "open" {
		sess = s.sessions.get(w, r)
		sess.setOpen(true)
	} else {
		sess = s.sessions.view(r)
	}
	data := homePageData{
		basePageData: s.buildBasePageData(r, sess, s.siteName, "Articles on frontend tooling and build systems."),
	}
	s.render(w, "home", data)
}

// handleBlog serves /blog/{id}. Every id renders the same article.
func (s *server) handleBlog(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/blog/"), "/")
	s.logger.Debug("blog", "detail requested", map[string]any{"id": id})

	article := blog.Detail(id)
	body, err := blog.RenderBody(article.Body)
	if err != nil {
		s.logger.Error("blog", "render body failed", err, nil)
		http.Error(w, "failed to render article", http.StatusInternalServerError)
		return
	}
	sess := s.sessions.view(r)
	data := blogPageData{
		basePageData: s.buildBasePageData(r, sess, article.Title+" · "+s.siteName, article.Subtitle),
		Article:      article,
		Body:         body,
	}
	s.render(w, "blog", data)
}

// stylesHandler serves styles.css from the assets dir, falling back to the
// stylesheet compiled into the binary.
func (s *server) stylesHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		if s.assetsDir != "" {
			path := filepath.Join(s.assetsDir, "styles.css")
			if _, err := os.Stat(path); err == nil {
				http.ServeFile(w, r, path)
				return
			}
		}
		http.ServeFileFS(w, r, embedded, "static/styles.css")
	})
}

func (s *server) imagesHandler() http.Handler {
	if s.assetsDir == "" {
		return http.NotFoundHandler()
	}
	return http.StripPrefix("/Images/", http.FileServer(http.Dir(filepath.Join(s.assetsDir, "Images"))))
}
