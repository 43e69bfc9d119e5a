package session

import (
	"net/http"
	"net/url"
	"strings"
)

// cookieDomain derives the registrable domain for the session cookie from
// the request's Origin (or Referer) header, so the cookie is shared across
// subdomains of one deployment. Empty means a host-only cookie.
func cookieDomain(r *http.Request) string {
	origin := requestOrigin(r)
	if origin == "" {
		return ""
	}
	if !strings.HasPrefix(origin, "http") {
		origin = "https://" + origin
	}
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	// Hostname() strips any port, "gate.example.com:3000" -> "gate.example.com"
	host := u.Hostname()
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		// "localhost" or already a bare "example.com"
		return host
	}
	n := len(parts)
	return parts[n-2] + "." + parts[n-1]
}

func requestOrigin(r *http.Request) string {
	if v := r.Header.Get("Origin"); v != "" {
		return v
	}
	if v := r.Header.Get("Referer"); v != "" {
		return v
	}
	return ""
}
