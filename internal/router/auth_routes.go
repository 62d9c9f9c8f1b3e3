package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-platform/internal/handler"
	"github.com/iliyamo/listing-platform/internal/middleware"
)

// RegisterAuth maps the account endpoints under /api/auth. Register and
// login are open; the rest need a Token or Bearer credential. Profile
// additionally resolves the account in middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authn middleware.Authenticator) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	cred := middleware.RequireCredential()
	g.POST("/logout", a.Logout, cred)
	g.GET("/profile", a.Profile, middleware.RequireAccount(authn))
	g.PUT("/profile/update", a.UpdateProfile, cred)
	g.PATCH("/profile/update", a.UpdateProfile, cred)
	g.POST("/verify", a.Verify, cred)
}
