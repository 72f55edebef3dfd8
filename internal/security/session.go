package security

import (
	"net/http"
	"strings"
	"time"
)

// IsSecureRequest reports whether the client reached us over HTTPS, either directly or
// through a TLS-terminating proxy
func IsSecureRequest(r *http.Request) bool {
	switch {
	case r.TLS != nil:
		return true
	case strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https"):
		return true
	default:
		return r.URL.Scheme == "https"
	}
}

// StateCookie carries the signed OAuth state across the provider redirect
func StateCookie(r *http.Request, name, value string, ttl time.Duration) *http.Cookie {
	return flowCookie(r, name, value, int(ttl.Seconds()))
}

// DeleteCookie expires a cookie set by StateCookie
func DeleteCookie(r *http.Request, name string) *http.Cookie {
	return flowCookie(r, name, "", -1)
}

func flowCookie(r *http.Request, name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}
