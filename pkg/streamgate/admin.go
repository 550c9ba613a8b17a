package streamgate

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/render"
)

// adminUser is the fixed Basic-Auth user for the operator panel.
const adminUser = "admin"

// defaultLinkPrefix is the path prefix under which bare resource keys are
// served, e.g. /v/movie.mp4.
const defaultLinkPrefix = "v"

// AdminPanel serves the operator entry point: a Basic-Auth gated HTML page
// for generating master links, plus a JSON endpoint for scripting the same.
// It handles requests from which no resource key could be resolved.
type AdminPanel struct {
	password string
	signer   *Signer
	prefix   string
	logger   *slog.Logger
}

// AdminOption is a functional option for configuring an AdminPanel
type AdminOption func(*AdminPanel)

// WithLinkPrefix sets the path prefix used when composing master links.
func WithLinkPrefix(prefix string) AdminOption {
	return func(a *AdminPanel) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

// WithAdminLogger sets the structured logger.
func WithAdminLogger(logger *slog.Logger) AdminOption {
	return func(a *AdminPanel) {
		a.logger = logger
	}
}

// NewAdminPanel creates the operator panel. The password gates both the HTML
// page and the JSON mint endpoint.
func NewAdminPanel(password string, signer *Signer, opts ...AdminOption) *AdminPanel {
	a := &AdminPanel{
		password: password,
		signer:   signer,
		prefix:   defaultLinkPrefix,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// authorized checks HTTP Basic credentials in constant time. An empty
// configured password disables the panel entirely rather than opening it.
func (a *AdminPanel) authorized(r *http.Request) bool {
	if a.password == "" {
		return false
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(adminUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(a.password)) == 1
	return userOK && passOK
}

func (a *AdminPanel) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="Admin Access"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// ServeHTTP serves the link-generator page.
func (a *AdminPanel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !a.authorized(r) {
		a.unauthorized(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := strings.ReplaceAll(adminPageHTML, "{prefix}", a.prefix)
	_, _ = w.Write([]byte(page))
}

// MintLinkRequest asks for a master and signed link for a resource key.
type MintLinkRequest struct {
	Key      string `json:"key"`
	Download bool   `json:"download,omitempty"`
}

// MintLinkResponse carries the generated links.
type MintLinkResponse struct {
	MasterURL string `json:"master_url"`
	SignedURL string `json:"signed_url"`
	ExpiresAt int64  `json:"expires_at"`
}

// MintLink is the scripting counterpart of the HTML page: POST a resource
// key, receive the master link and a freshly signed link for it.
func (a *AdminPanel) MintLink(w http.ResponseWriter, r *http.Request) {
	if !a.authorized(r) {
		a.unauthorized(w)
		return
	}

	var req MintLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}

	expiry, sig, err := a.signer.Issue(req.Key)
	if err != nil {
		a.logger.Error("failed to sign link", "key", req.Key, "error", err)
		http.Error(w, "failed to sign link", http.StatusInternalServerError)
		return
	}

	master, err := a.masterURL(r, req.Key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	signed, err := url.Parse(master)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	q := signed.Query()
	q.Set("expiry", strconv.FormatInt(expiry, 10))
	q.Set("sig", sig)
	if req.Download {
		q.Set("dl", "true")
	}
	signed.RawQuery = q.Encode()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, MintLinkResponse{
		MasterURL: master,
		SignedURL: signed.String(),
		ExpiresAt: expiry,
	})
}

// masterURL composes the unsigned master link for a key against the host the
// operator reached the panel on. Bare filenames ride the path form; keys
// that are themselves URLs ride the query form, since they cannot live in a
// path segment.
func (a *AdminPanel) masterURL(r *http.Request, key string) (string, error) {
	base := requestBaseURL(r)
	if strings.Contains(key, "://") {
		return base + "/?file=" + url.QueryEscape(key), nil
	}
	return base + "/" + a.prefix + "/" + url.PathEscape(key), nil
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fp := r.Header.Get("X-Forwarded-Proto"); fp != "" {
		scheme = fp
	}
	return scheme + "://" + r.Host
}

const adminPageHTML = `<!DOCTYPE html>
<html>
<head>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Link Generator</title>
<style>
body{padding:20px;font-family:sans-serif;background:#f4f4f9;max-width:480px;margin:0 auto}
input{width:100%;padding:12px;margin:10px 0;border:1px solid #ccc;border-radius:4px;box-sizing:border-box}
button{width:100%;padding:12px;background:#007bff;color:white;border:none;border-radius:4px;font-weight:bold;cursor:pointer}
.copy-btn{background:#28a745}
</style>
</head>
<body>
<h3>Direct Link Generator</h3>
<label>File name (e.g. movie.mp4) or full URL</label>
<input id="key" placeholder="movie.mp4">
<button onclick="gen()">Get Master Link</button>
<input id="out" style="margin-top:20px" readonly onclick="this.select()">
<button class="copy-btn" style="margin-top:10px" onclick="copy()">Copy Link</button>
<script>
function gen() {
  var val = document.getElementById('key').value.trim();
  if (!val) return;
  var base = window.location.href.replace(/\/+$/, "").split('?')[0];
  var link;
  if (val.indexOf('://') >= 0) {
    link = base + "/?file=" + encodeURIComponent(val);
  } else {
    link = base + "/{prefix}/" + encodeURIComponent(val);
  }
  document.getElementById('out').value = link;
}
function copy() {
  var el = document.getElementById('out');
  if (!el.value) return;
  el.select();
  navigator.clipboard.writeText(el.value).then(function(){ alert("Copied!"); });
}
</script>
</body>
</html>
`
