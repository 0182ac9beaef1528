package proxy

import (
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"github.com/hhftechnology/wordpress-docker/internal/config"
)

// Rule labels, in evaluation order. First match wins.
const (
	ruleQuietStatic = "quiet_static"
	ruleStaticAsset = "static_asset"
	rulePHP         = "php"
	ruleRateLimited = "rate_limited"
	ruleDenyHidden  = "deny_hidden"
	ruleFallback    = "fallback"
)

var staticAssetExtensions = map[string]struct{}{
	".js": {}, ".css": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {},
	".ico": {}, ".svg": {}, ".webp": {}, ".woff": {}, ".woff2": {}, ".ttf": {},
	".eot": {}, ".otf": {}, ".mp4": {}, ".webm": {},
}

const farFutureMaxAge = "public, max-age=31536000, immutable"

// Handler evaluates the ordered route table against each request.
type Handler struct {
	staticRoot  string
	php         http.Handler
	limiter     RateLimiter
	logger      *slog.Logger
	metrics     *metrics
	maxPost     int64
	loginLimit  int
	loginWindow time.Duration
}

// NewHandler assembles the route table handler. php is the FastCGI
// forwarding handler; limiter may be nil to disable login throttling.
func NewHandler(cfg config.Stack, php http.Handler, limiter RateLimiter, logger *slog.Logger, m *metrics) *Handler {
	return &Handler{
		staticRoot:  cfg.WordPressHome,
		php:         php,
		limiter:     limiter,
		logger:      logger,
		metrics:     m,
		maxPost:     cfg.Upload.MaxPostSize.Bytes(),
		loginLimit:  cfg.RateLimit.LoginLimit,
		loginWindow: cfg.RateLimit.LoginWindow,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	rec.Header().Set("X-Content-Type-Options", "nosniff")
	rec.Header().Set("X-Frame-Options", "SAMEORIGIN")

	rule := h.dispatch(rec, r)

	if h.metrics != nil {
		h.metrics.recordRequest(r.Method, rule, rec.status, time.Since(start))
	}
	if rule != ruleQuietStatic && h.logger != nil {
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"rule", rule,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// dispatch walks the route table in order and returns the matched rule.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) string {
	requestPath := path.Clean("/" + r.URL.Path)

	switch {
	case requestPath == "/favicon.ico" || requestPath == "/robots.txt":
		h.serveFile(w, r, requestPath, false)
		return ruleQuietStatic

	case isStaticAsset(requestPath):
		h.serveFile(w, r, requestPath, true)
		return ruleStaticAsset

	case isPHPPath(requestPath):
		if requestPath == "/wp-login.php" && !h.allowLogin(w, r) {
			return ruleRateLimited
		}
		h.forwardPHP(w, r)
		return rulePHP

	case hasHiddenSegment(requestPath):
		http.Error(w, "403 Forbidden", http.StatusForbidden)
		return ruleDenyHidden

	default:
		if h.tryFile(w, r, requestPath) {
			return ruleFallback
		}
		if index, ok := h.directoryIndex(requestPath); ok {
			r.URL.Path = index
		}
		h.forwardPHP(w, r)
		return ruleFallback
	}
}

func isStaticAsset(requestPath string) bool {
	ext := strings.ToLower(path.Ext(requestPath))
	_, ok := staticAssetExtensions[ext]
	return ok
}

func isPHPPath(requestPath string) bool {
	script, _ := splitPathInfo(requestPath)
	return script != ""
}

// hasHiddenSegment matches any path segment starting with ".ht", the
// classic Apache control files that must never be served.
func hasHiddenSegment(requestPath string) bool {
	for _, segment := range strings.Split(requestPath, "/") {
		if strings.HasPrefix(segment, ".ht") {
			return true
		}
	}
	return false
}

func (h *Handler) allowLogin(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil || h.loginLimit <= 0 {
		return true
	}
	key := rateLimitKeyIP(r)
	decision := h.limiter.Allow(key, h.loginLimit, h.loginWindow)
	if decision.allowed {
		return true
	}
	if h.metrics != nil {
		h.metrics.recordRateLimitHit(rulePHP, "ip")
	}
	retryAfter := time.Until(decision.windowEnd)
	if retryAfter > 0 {
		w.Header().Set("Retry-After", retryAfter.Round(time.Second).String())
	}
	http.Error(w, "429 Too Many Requests", http.StatusTooManyRequests)
	return false
}

// forwardPHP applies the POST-size ceiling, then hands the request to the
// FastCGI handler.
func (h *Handler) forwardPHP(w http.ResponseWriter, r *http.Request) {
	if h.maxPost > 0 {
		if r.ContentLength > h.maxPost {
			http.Error(w, "413 Request Entity Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		if r.ContentLength < 0 {
			if !h.spoolBody(w, r) {
				return
			}
		} else {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxPost)
		}
	}
	h.php.ServeHTTP(w, r)
}

// spoolBody buffers a chunked request body to a temp file so the size
// ceiling is enforced before anything reaches the application server and
// the upstream sees a concrete CONTENT_LENGTH.
func (h *Handler) spoolBody(w http.ResponseWriter, r *http.Request) bool {
	tmp, err := os.CreateTemp("", "wpstack-body-*")
	if err != nil {
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return false
	}
	discard := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	n, err := io.Copy(tmp, io.LimitReader(r.Body, h.maxPost+1))
	if err != nil {
		discard()
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return false
	}
	if n > h.maxPost {
		discard()
		http.Error(w, "413 Request Entity Too Large", http.StatusRequestEntityTooLarge)
		return false
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		discard()
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return false
	}
	r.Body = &spooledBody{File: tmp}
	r.ContentLength = n
	return true
}

// spooledBody removes its backing file on close.
type spooledBody struct {
	*os.File
}

func (b *spooledBody) Close() error {
	err := b.File.Close()
	os.Remove(b.File.Name())
	return err
}

// serveFile serves a file from the local document root mirror. cache adds
// the far-future directives used for fingerprinted assets.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, requestPath string, cache bool) {
	local, ok := h.localPath(requestPath)
	if !ok {
		http.NotFound(w, r)
		return
	}
	info, err := os.Stat(local)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	if cache {
		w.Header().Set("Cache-Control", farFutureMaxAge)
		w.Header().Set("Expires", time.Now().AddDate(1, 0, 0).UTC().Format(http.TimeFormat))
	}
	http.ServeFile(w, r, local)
}

// directoryIndex maps a request for a directory holding an index.php onto
// that script, the $uri/ step of try_files. Without it /wp-admin/ would
// execute the front controller instead of /wp-admin/index.php.
func (h *Handler) directoryIndex(requestPath string) (string, bool) {
	local, ok := h.localPath(requestPath)
	if !ok {
		return "", false
	}
	info, err := os.Stat(local)
	if err != nil || !info.IsDir() {
		return "", false
	}
	index, err := os.Stat(filepath.Join(local, "index.php"))
	if err != nil || index.IsDir() {
		return "", false
	}
	return path.Join(requestPath, "index.php"), true
}

// tryFile serves the request path when it maps to an existing regular file.
func (h *Handler) tryFile(w http.ResponseWriter, r *http.Request, requestPath string) bool {
	local, ok := h.localPath(requestPath)
	if !ok {
		return false
	}
	info, err := os.Stat(local)
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeFile(w, r, local)
	return true
}

// localPath maps a cleaned request path into the static root, rejecting
// anything that escapes it.
func (h *Handler) localPath(requestPath string) (string, bool) {
	if h.staticRoot == "" {
		return "", false
	}
	local := filepath.Join(h.staticRoot, filepath.FromSlash(requestPath))
	root := filepath.Clean(h.staticRoot)
	if local != root && !strings.HasPrefix(local, root+string(filepath.Separator)) {
		return "", false
	}
	return local, true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
