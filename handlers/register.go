package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sundayrunners/attendapi/registration"
)

type registerRequest struct {
	SessionID  string `json:"session_id"`
	RunnerName string `json:"runner_name"`
}

// Register records a runner's attendance against a scanned session.
// Expected rejections come back as structured bodies with the live count:
// 404 for an unknown/inactive session, 409 for a duplicate, 400 for a bad
// name. Never a raw constraint error.
func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.SessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}

	res, err := h.engine.Register(c.Request().Context(), req.SessionID, req.RunnerName)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to process registration")
	}

	switch res.Outcome {
	case registration.OutcomeAccepted:
		return c.JSON(http.StatusOK, res)
	case registration.OutcomeInvalidSession:
		return c.JSON(http.StatusNotFound, res)
	case registration.OutcomeDuplicate:
		return c.JSON(http.StatusConflict, res)
	default:
		return c.JSON(http.StatusBadRequest, res)
	}
}

// TodayAttendance returns the live count for today's run.
func (h *Handler) TodayAttendance(c echo.Context) error {
	res, err := h.engine.TodayAttendanceCount(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to retrieve attendance count")
	}
	return c.JSON(http.StatusOK, res)
}
