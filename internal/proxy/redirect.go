package proxy

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// RedirectHandler answers every plaintext request with a permanent redirect
// to the encrypted listener, preserving path and query.
func RedirectHandler(httpsPort int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if host == "" {
			host = "localhost"
		}
		// An IPv6 literal comes back from SplitHostPort unbracketed.
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		target := "https://" + host
		if httpsPort != 0 && httpsPort != 443 {
			target += ":" + strconv.Itoa(httpsPort)
		}
		target += r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
}
