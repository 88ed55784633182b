package handler

import (
	"ai-build-shop/internal/dto"
	"ai-build-shop/internal/middleware"
	"ai-build-shop/internal/service"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

type UserHandler struct {
	authService  service.AuthService
	cookieName   string
	secureCookie bool
}

func NewUserHandler(authService service.AuthService, cookieName string, secureCookie bool) *UserHandler {
	return &UserHandler{
		authService:  authService,
		cookieName:   cookieName,
		secureCookie: secureCookie,
	}
}

func (h *UserHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	if _, err := h.authService.Register(ctx, &service.RegisterInput{
		Email:          req.Email,
		Password:       req.Password,
		AdminSetupCode: req.AdminSetupCode,
	}); err != nil {
		return err
	}

	session, err := h.authService.Login(ctx, h.loginInput(c, req.Email, req.Password))
	if err != nil {
		return err
	}

	h.setSessionCookie(c, session.Token, session.ExpiresAt)
	return c.JSON(http.StatusCreated, &dto.AuthResponse{User: session.User, ExpiresAt: session.ExpiresAt})
}

func (h *UserHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.authService.Login(ctx, h.loginInput(c, req.Email, req.Password))
	if err != nil {
		return err
	}

	h.setSessionCookie(c, session.Token, session.ExpiresAt)
	return c.JSON(http.StatusOK, &dto.AuthResponse{User: session.User, ExpiresAt: session.ExpiresAt})
}

func (h *UserHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	if cookie, err := c.Cookie(h.cookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(ctx, cookie.Value); err != nil {
			return err
		}
	}

	h.setSessionCookie(c, "", time.Unix(0, 0))
	return c.JSON(http.StatusOK, &dto.MessageResponse{Message: "logged out"})
}

func (h *UserHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, service.NewUserResponse(middleware.CurrentUser(c)))
}

func (h *UserHandler) loginInput(c echo.Context, email, password string) *service.LoginInput {
	return &service.LoginInput{
		Email:     email,
		Password:  password,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

func (h *UserHandler) setSessionCookie(c echo.Context, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		cookie.MaxAge = -1
	}
	c.SetCookie(cookie)
}
