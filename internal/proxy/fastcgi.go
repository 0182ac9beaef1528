package proxy

import (
	"net/http"
	"path"
	"regexp"
	"time"

	"github.com/yookoala/gofast"
)

// phpPathPattern splits a request path into the PHP script and trailing
// path info, matching the proxy config's `^(.+\.php)(/.*)$` split.
var phpPathPattern = regexp.MustCompile(`^(.+\.php)(/.*)?$`)

// splitPathInfo returns the script path and path info for a request path.
// A path without a .php segment yields an empty script.
func splitPathInfo(requestPath string) (script, pathInfo string) {
	m := phpPathPattern.FindStringSubmatch(requestPath)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

// newPHPHandler builds the FastCGI forwarding handler. docRoot is the
// document root inside the php-fpm container: SCRIPT_FILENAME must resolve
// there, not on the proxy host.
func newPHPHandler(network, addr, docRoot string, timeout time.Duration) http.Handler {
	connFactory := gofast.SimpleConnFactory(network, addr)
	sess := gofast.Chain(
		gofast.BasicParamsMap,
		gofast.MapHeader,
		phpParams(docRoot),
	)(gofast.BasicSession)
	handler := gofast.NewHandler(sess, gofast.SimpleClientFactory(connFactory))
	if timeout > 0 {
		return http.TimeoutHandler(handler, timeout, "upstream timed out")
	}
	return handler
}

// phpParams sets the script-execution parameters the application server
// expects: SCRIPT_FILENAME, SCRIPT_NAME and PATH_INFO derived from the
// matched path, falling back to the front controller for pretty permalinks.
func phpParams(docRoot string) gofast.Middleware {
	return func(inner gofast.SessionHandler) gofast.SessionHandler {
		return func(client gofast.Client, req *gofast.Request) (*gofast.ResponsePipe, error) {
			script, pathInfo := splitPathInfo(req.Raw.URL.Path)
			if script == "" {
				script = "/index.php"
				pathInfo = ""
			}
			req.Params["SCRIPT_FILENAME"] = path.Join(docRoot, script)
			req.Params["SCRIPT_NAME"] = script
			req.Params["DOCUMENT_ROOT"] = docRoot
			if pathInfo != "" {
				req.Params["PATH_INFO"] = pathInfo
				req.Params["PATH_TRANSLATED"] = path.Join(docRoot, pathInfo)
			}
			return inner(client, req)
		}
	}
}
