package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sundayrunners/attendapi/qr"
)

// QRCode issues a fresh QR token for an active run session and returns the
// registration URL the frontend encodes into the image. Admin only.
func (h *Handler) QRCode(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}

	sessionID := c.Param("sessionID")
	run, err := h.runs.FindActiveBySession(c.Request().Context(), sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve session")
	}
	if run == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found or run not active")
	}

	token, err := qr.IssueToken(h.JWTKey(), run.SessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id":       run.SessionID,
		"run_date":         run.Date,
		"token":            token,
		"registration_url": h.cfg.BaseURL + "/register?token=" + token,
		"expires_in_hours": int(qr.TokenTTL.Hours()),
	})
}

// ValidateQR resolves a presented QR token back to its session, confirming
// the bound run is still active.
func (h *Handler) ValidateQR(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	sessionID, err := qr.ValidateToken(h.JWTKey(), token)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, qr.ErrExpired) {
			msg = "token expired"
		}
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"valid":   false,
			"message": msg,
		})
	}

	run, err := h.runs.FindActiveBySession(c.Request().Context(), sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve session")
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"valid":   false,
			"message": "session not found or run not active",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"valid":      true,
		"session_id": run.SessionID,
		"run_date":   run.Date,
	})
}
