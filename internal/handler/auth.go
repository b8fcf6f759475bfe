package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/edugenius/edugenius-api/internal/apperror"
	"github.com/edugenius/edugenius-api/internal/middleware"
	"github.com/edugenius/edugenius-api/internal/model"
	"github.com/edugenius/edugenius-api/internal/provider"
	"github.com/edugenius/edugenius-api/internal/service"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Auth          *service.AuthService
	SecureCookies bool
	RefreshTTL    time.Duration
}

func NewAuthHandler(auth *service.AuthService, secureCookies bool, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{Auth: auth, SecureCookies: secureCookies, RefreshTTL: refreshTTL}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginReq struct {
	Email               string `json:"email"`
	Password            string `json:"password"`
	Provider            string `json:"provider"`
	GoogleAccessToken   string `json:"googleAccessToken"`
	FacebookAccessToken string `json:"facebookAccessToken"`
}

type forgotPasswordReq struct {
	Email string `json:"email"`
}

type verifyResetCodeReq struct {
	Email     string      `json:"email"`
	ResetCode json.Number `json:"resetCode"`
}

type resetPasswordReq struct {
	ResetToken string `json:"resetToken"`
	Password   string `json:"password"`
}

type changePasswordReq struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Register creates a local account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return apperror.New(apperror.BadRequest, "Invalid request parameters!")
	}

	user, err := h.Auth.Register(c.Request().Context(), service.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Provider: model.ProviderLocal,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Register successfully!", user)
}

// Login authenticates through the requested provider and opens a session:
// the token pair lands in http-only cookies, the profile in the body.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperror.New(apperror.BadRequest, "Invalid request parameters!")
	}

	user, pair, err := h.Auth.Login(c.Request().Context(), service.LoginInput{
		Provider: req.Provider,
		Credentials: provider.Credentials{
			Email:               req.Email,
			Password:            req.Password,
			GoogleAccessToken:   req.GoogleAccessToken,
			FacebookAccessToken: req.FacebookAccessToken,
		},
	})
	if err != nil {
		return err
	}

	middleware.SetAuthCookies(c, pair.AccessToken, pair.RefreshToken, h.SecureCookies, h.RefreshTTL)
	return respond(c, http.StatusOK, "Login successfully!", user)
}

// Logout revokes the caller's current session and clears both cookies.
// Runs behind the guard, so the identity and jit come from the context.
func (h *AuthHandler) Logout(c echo.Context) error {
	id, ok := middleware.CurrentUser(c)
	if !ok {
		return apperror.New(apperror.Unauthorized, "Authentication is needed before authorization")
	}

	accessToken := cookieValue(c, middleware.AccessCookie)
	refreshToken := cookieValue(c, middleware.RefreshCookie)

	if err := h.Auth.Logout(c.Request().Context(), id.Email, accessToken, refreshToken, id.Jit); err != nil {
		return err
	}

	middleware.ClearAuthCookies(c)
	return respond(c, http.StatusOK, "Logout successfully!", nil)
}

// VerifyToken reports the identity the guard attached; clients use it to
// restore a session on page load.
func (h *AuthHandler) VerifyToken(c echo.Context) error {
	id, ok := middleware.CurrentUser(c)
	if !ok {
		return apperror.New(apperror.Unauthorized, "Authentication is needed before authorization")
	}
	return respond(c, http.StatusOK, "Token verified successfully!", echo.Map{
		"email":            id.Email,
		"role":             id.Role,
		"registerProvider": id.RegisterProvider,
	})
}

// ForgotPassword emails a one-time reset code.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordReq
	if err := c.Bind(&req); err != nil {
		return apperror.New(apperror.BadRequest, "Invalid request parameters!")
	}
	if err := h.Auth.SendResetCode(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Reset code has been sent to your email!", nil)
}

// VerifyResetCode exchanges a valid code for a short-lived reset token.
func (h *AuthHandler) VerifyResetCode(c echo.Context) error {
	var req verifyResetCodeReq
	if err := c.Bind(&req); err != nil {
		return apperror.New(apperror.BadRequest, "Invalid request parameters!")
	}

	resetToken, err := h.Auth.VerifyResetCode(c.Request().Context(), req.Email, req.ResetCode.String())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Reset code verified!", echo.Map{"resetToken": resetToken})
}

// ResetPassword sets a new password using the bearer reset token.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return apperror.New(apperror.BadRequest, "Invalid request parameters!")
	}
	if err := h.Auth.ResetPassword(c.Request().Context(), req.ResetToken, req.Password); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Password has been reset!", nil)
}

// ChangePassword rotates the authenticated caller's password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	id, ok := middleware.CurrentUser(c)
	if !ok {
		return apperror.New(apperror.Unauthorized, "Authentication is needed before authorization")
	}

	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return apperror.New(apperror.BadRequest, "Invalid request parameters!")
	}
	if req.NewPassword == "" {
		return apperror.New(apperror.BadRequest, "Password is required")
	}

	user, err := h.Auth.ChangePassword(c.Request().Context(), id.Email, req.OldPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Password has been changed!", user)
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil || ck == nil {
		return ""
	}
	return ck.Value
}
