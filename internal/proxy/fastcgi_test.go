package proxy

import (
	"net/http/httptest"
	"testing"

	"github.com/yookoala/gofast"
)

func TestSplitPathInfo(t *testing.T) {
	cases := []struct {
		in       string
		script   string
		pathInfo string
	}{
		{"/index.php", "/index.php", ""},
		{"/index.php/2026/08/hello", "/index.php", "/2026/08/hello"},
		{"/wp-admin/admin-ajax.php", "/wp-admin/admin-ajax.php", ""},
		{"/wp-login.php/", "/wp-login.php", "/"},
		{"/2026/08/hello-world/", "", ""},
		{"/style.css", "", ""},
		{"/", "", ""},
	}
	for _, tc := range cases {
		script, pathInfo := splitPathInfo(tc.in)
		if script != tc.script || pathInfo != tc.pathInfo {
			t.Fatalf("splitPathInfo(%q) = (%q, %q), want (%q, %q)", tc.in, script, pathInfo, tc.script, tc.pathInfo)
		}
	}
}

// capturedParams runs the param middleware for a request path and returns
// the FastCGI params it would send upstream.
func capturedParams(t *testing.T, docRoot, requestPath string) map[string]string {
	t.Helper()
	var params map[string]string
	inner := func(client gofast.Client, req *gofast.Request) (*gofast.ResponsePipe, error) {
		params = req.Params
		return nil, nil
	}
	req := gofast.NewRequest(httptest.NewRequest("GET", requestPath, nil))
	if _, err := phpParams(docRoot)(inner)(nil, req); err != nil {
		t.Fatalf("session handler: %v", err)
	}
	return params
}

func TestPHPParamsScriptResolution(t *testing.T) {
	cases := []struct {
		path           string
		scriptFilename string
		scriptName     string
		pathInfo       string
	}{
		{"/index.php", "/var/www/html/index.php", "/index.php", ""},
		{"/wp-admin/index.php", "/var/www/html/wp-admin/index.php", "/wp-admin/index.php", ""},
		{"/index.php/2026/08/hello", "/var/www/html/index.php", "/index.php", "/2026/08/hello"},
		{"/2026/08/hello-world/", "/var/www/html/index.php", "/index.php", ""},
	}
	for _, tc := range cases {
		params := capturedParams(t, "/var/www/html", tc.path)
		if got := params["SCRIPT_FILENAME"]; got != tc.scriptFilename {
			t.Fatalf("%s: SCRIPT_FILENAME = %q, want %q", tc.path, got, tc.scriptFilename)
		}
		if got := params["SCRIPT_NAME"]; got != tc.scriptName {
			t.Fatalf("%s: SCRIPT_NAME = %q, want %q", tc.path, got, tc.scriptName)
		}
		if got := params["PATH_INFO"]; got != tc.pathInfo {
			t.Fatalf("%s: PATH_INFO = %q, want %q", tc.path, got, tc.pathInfo)
		}
		if got := params["DOCUMENT_ROOT"]; got != "/var/www/html" {
			t.Fatalf("%s: DOCUMENT_ROOT = %q", tc.path, got)
		}
	}
}
