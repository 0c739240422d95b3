package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"adminpanel/internal/auth"
	"adminpanel/internal/config"
	apperrors "adminpanel/internal/errors"
	"adminpanel/internal/handler"
	"adminpanel/internal/repository"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	jwtService *auth.JWTService,
	userRepo repository.UserRepository,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.ContextTimeout(cfg.RequestTimeout))

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)

	// Authenticated routes: the JWT gate verifies signature and expiry, then
	// sessionUser re-resolves the subject from the store on every request so
	// a deleted user's still-valid token is rejected.
	secured := api.Group("", jwtGate(jwtService), sessionUser(userRepo))

	secured.GET("/auth/me", authHandler.Me)
	secured.PUT("/auth/profile", authHandler.UpdateProfile)
	secured.PUT("/auth/change-password", authHandler.ChangePassword)

	// Admin routes
	admin := secured.Group("/users", requireAdmin)
	admin.GET("", userHandler.ListUsers)
	admin.GET("/:id", userHandler.GetUser)
	admin.PUT("/:id/role", userHandler.UpdateRole)
	admin.DELETE("/:id", userHandler.DeleteUser)
}

// jwtGate verifies the session token from the cookie, or a bearer
// authorization header for non-browser clients.
func jwtGate(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "cookie:" + auth.CookieName + ",header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, tokenString string) (interface{}, error) {
			return jwtService.Verify(tokenString)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			httpErr := apperrors.MapErrorToHTTP(apperrors.ErrUnauthorized)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		},
	})
}

// sessionUser resolves the token subject against the credential store and
// attaches the user to the request context. Token claims are not trusted as
// ground truth for current state.
func sessionUser(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("user").(*auth.Claims)
			if !ok {
				return unauthorized()
			}

			user, err := userRepo.FindByID(c.Request().Context(), claims.UserID)
			if err != nil {
				// A vanished user and a store failure are both terminal for
				// this request; only the former is the client's fault.
				httpErr := apperrors.MapErrorToHTTP(err)
				if httpErr.StatusCode == http.StatusNotFound {
					return unauthorized()
				}
				return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
			}

			c.Set(auth.ContextUserKey, user)
			return next(c)
		}
	}
}

// requireAdmin gates admin-only routes.
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := auth.CurrentUser(c)
		if user == nil {
			return unauthorized()
		}
		if !user.IsAdmin() {
			httpErr := apperrors.MapErrorToHTTP(apperrors.ErrForbidden)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		return next(c)
	}
}

func unauthorized() error {
	httpErr := apperrors.MapErrorToHTTP(apperrors.ErrUnauthorized)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
