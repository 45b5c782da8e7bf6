package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type configureRequest struct {
	Date   string `json:"date"`
	HasRun bool   `json:"has_run"`
}

// ConfigureRunDay marks a date as a run day or clears it. Admin only.
func (h *Handler) ConfigureRunDay(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}

	var req configureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}

	res, err := h.calendar.ConfigureRunDay(c.Request().Context(), req.Date, req.HasRun)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update calendar")
	}
	if !res.Success {
		return c.JSON(http.StatusBadRequest, res)
	}
	return c.JSON(http.StatusOK, res)
}

// Calendar returns configured days, optionally bounded by start_date/end_date.
func (h *Handler) Calendar(c echo.Context) error {
	days, err := h.calendar.Configuration(c.Request().Context(),
		c.QueryParam("start_date"), c.QueryParam("end_date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to retrieve calendar")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    days,
	})
}

// CalendarToday returns today's run status for the public dashboard.
func (h *Handler) CalendarToday(c echo.Context) error {
	status, err := h.calendar.Today(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get today's status")
	}
	return c.JSON(http.StatusOK, status)
}
