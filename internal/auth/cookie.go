package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// CookieName is the session cookie carrying the token.
const CookieName = "token"

// CookieManager sets and clears the session cookie. All attributes are fixed
// at construction from one environment switch; Attach and Clear always emit
// the identical attribute set, since a clear with mismatched attributes is
// silently ignored by browsers.
type CookieManager struct {
	secure   bool
	sameSite http.SameSite
	maxAge   time.Duration
}

// NewCookieManager builds a manager for the given deployment posture.
// Development: Secure off, SameSite=Lax. Production: Secure on, and
// SameSite=None when the frontend is served cross-origin, else Lax.
func NewCookieManager(production, crossOrigin bool, maxAge time.Duration) *CookieManager {
	sameSite := http.SameSiteLaxMode
	if production && crossOrigin {
		sameSite = http.SameSiteNoneMode
	}
	return &CookieManager{
		secure:   production,
		sameSite: sameSite,
		maxAge:   maxAge,
	}
}

// Attach sets the session cookie on the response. The cookie lifetime mirrors
// the token lifetime.
func (m *CookieManager) Attach(c echo.Context, token string) {
	cookie := m.base()
	cookie.Value = token
	cookie.MaxAge = int(m.maxAge.Seconds())
	cookie.Expires = time.Now().Add(m.maxAge)
	c.SetCookie(cookie)
}

// Clear removes the session cookie using the same attributes Attach set it
// with.
func (m *CookieManager) Clear(c echo.Context) {
	cookie := m.base()
	cookie.Value = ""
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	c.SetCookie(cookie)
}

func (m *CookieManager) base() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite,
	}
}
