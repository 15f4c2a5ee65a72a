package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	DefaultCookieName = "jwt"
	DefaultCookiePath = "/auth"
)

// CookieOptions describes the cookie that carries the refresh token.
type CookieOptions struct {
	Name   string
	Path   string
	Domain string
	Secure bool
	MaxAge time.Duration
}

func (o CookieOptions) withDefaults() CookieOptions {
	if o.Name == "" {
		o.Name = DefaultCookieName
	}
	if o.Path == "" {
		o.Path = DefaultCookiePath
	}

	return o
}

func (o CookieOptions) refreshCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     o.Name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   int(o.MaxAge / time.Second),
		Expires:  time.Now().Add(o.MaxAge),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteNoneMode,
	}
}

// expiredCookie must match the name, path and domain of refreshCookie or browsers keep the old one.
func (o CookieOptions) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteNoneMode,
	}
}

func (r *Routers) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(r.cookie.refreshCookie(token))
}

func (r *Routers) clearRefreshCookie(c echo.Context) {
	c.SetCookie(r.cookie.expiredCookie())
}

// refreshToken returns the refresh token from the request cookie, or "" when absent.
func (r *Routers) refreshToken(c echo.Context) string {
	cookie, err := c.Cookie(r.cookie.Name)
	if err != nil {
		return ""
	}

	return cookie.Value
}
