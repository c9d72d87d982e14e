package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Its-donkey/quill/logging"
)

const (
	defaultListen        = "127.0.0.1:4173"
	defaultSiteName      = "quill"
	defaultSessionTTL    = 24 * time.Hour
	defaultMaxSessions   = 10000
	defaultRateAttempts  = 10
	defaultRateWindow    = time.Minute
	defaultActionTimeout = 10 * time.Second
)

func applyDefaults(opts Options) Options {
	if strings.TrimSpace(opts.Listen) == "" {
		opts.Listen = defaultListen
	}
	if strings.TrimSpace(opts.SiteName) == "" {
		opts.SiteName = defaultSiteName
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.RateAttempts == 0 {
		opts.RateAttempts = defaultRateAttempts
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = defaultRateWindow
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaultActionTimeout
	}
	return opts
}

// safeReturn keeps post/redirect/get targets on this site.
func safeReturn(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return u.RequestURI()
}

// returnPath is the page a form on r should come back to.
func returnPath(r *http.Request) string {
	return safeReturn(r.URL.Path)
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func redirectWith(w http.ResponseWriter, r *http.Request, target, msg, errMsg string) {
	values := make(urlValues)
	values.setIf("msg", msg)
	values.setIf("err", errMsg)
	if encoded := values.encode(); encoded != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + encoded
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type urlValues map[string]string

func (v urlValues) setIf(key, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	v[key] = value
}

func (v urlValues) encode() string {
	if len(v) == 0 {
		return ""
	}
	q := url.Values{}
	for k, val := range v {
		q.Set(k, val)
	}
	return q.Encode()
}
