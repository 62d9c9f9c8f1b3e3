package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-platform/internal/apperror"
	"github.com/iliyamo/listing-platform/internal/middleware"
	"github.com/iliyamo/listing-platform/internal/service"
)

// AuthHandler exposes the account endpoints of the auth service.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(s *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: s}
}

// bind decodes the JSON body into v, rejecting bodies echo cannot parse.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperror.Validation("invalid body")
	}
	return nil
}

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// Register: create an account and return it with its first token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	acct, token, err := h.Auth.Register(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User created successfully",
		"user":    acct.Profile(),
		"token":   token,
	})
}

// Login: check credentials and hand out a fresh token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	acct, token, err := h.Auth.Login(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful",
		"user":    acct.Profile(),
		"token":   token,
	})
}

// Logout destroys the presented token.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Auth.Logout(ctx, middleware.TokenFrom(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logout successful"})
}

// Profile returns the caller's account. The account is loaded by
// middleware.RequireAccount.
func (h *AuthHandler) Profile(c echo.Context) error {
	acct, ok := middleware.AccountFrom(c)
	if !ok {
		return apperror.Unauthenticated("Invalid token")
	}
	return c.JSON(http.StatusOK, acct.Profile())
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req service.UpdateProfileInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	acct, err := h.Auth.UpdateProfile(ctx, middleware.TokenFrom(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Profile updated successfully",
		"user":    acct.Profile(),
	})
}

// Verify answers {valid, user} for the presented token. Unknown or
// inactive tokens are a 200 with valid=false.
func (h *AuthHandler) Verify(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	res, err := h.Auth.Verify(ctx, middleware.TokenFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
