package auth

import (
	"github.com/labstack/echo/v4"

	"adminpanel/internal/model"
)

// ContextUserKey is where the session middleware stores the resolved user on
// the request context.
const ContextUserKey = "currentUser"

// CurrentUser returns the user resolved by the session middleware, or nil if
// the request is unauthenticated.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(ContextUserKey).(*model.User)
	return user
}
