package handler

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/diagramstudio/diagram-api/internal/api/metrics"
	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user account and signs the user in.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	metrics.RegistrationsTotal.Inc()
	return c.JSON(http.StatusCreated, authResponse{Token: res.Token, User: res.User})
}

// Login authenticates a user. When the account has 2FA enabled and no code
// was supplied the response only carries require2FA.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		TOTPCode: req.TOTP,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			metrics.LoginAttemptsTotal.WithLabelValues("session_error").Inc()
		}
		return err
	}

	if res.Require2FA {
		metrics.LoginAttemptsTotal.WithLabelValues("require_2fa").Inc()
		return c.JSON(http.StatusOK, authResponse{Require2FA: true})
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, authResponse{Token: res.Token, User: res.User})
}

// SetupTwoFactor starts a TOTP enrollment for the caller.
//
// @Summary      Start 2FA enrollment
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  setupTwoFactorResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /setup-2fa [post]
func (h *AuthHandler) SetupTwoFactor(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	enrollment, err := h.authService.SetupTwoFactor(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, setupTwoFactorResponse{
		Secret:     enrollment.Secret,
		OTPAuthURL: enrollment.URI,
		QRCode:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(enrollment.QRCodePNG),
	})
}

// VerifyTwoFactor confirms a pending enrollment with a code from the
// authenticator app.
//
// @Summary      Confirm 2FA enrollment
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      verifyTwoFactorRequest  true  "Verification code"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /verify-2fa [post]
func (h *AuthHandler) VerifyTwoFactor(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req verifyTwoFactorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.VerifyTwoFactor(c.Request().Context(), userID, req.Code); err != nil {
		metrics.TwoFactorVerificationsTotal.WithLabelValues("rejected").Inc()
		return err
	}

	metrics.TwoFactorVerificationsTotal.WithLabelValues("enabled").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "two-factor authentication enabled"})
}

// DisableTwoFactor removes the caller's second factor after re-checking the
// password.
//
// @Summary      Disable 2FA
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      disableTwoFactorRequest  true  "Current password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /users/me/disable-2fa [post]
func (h *AuthHandler) DisableTwoFactor(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req disableTwoFactorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.DisableTwoFactor(c.Request().Context(), userID, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "two-factor authentication disabled"})
}
