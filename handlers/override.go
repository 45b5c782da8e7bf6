package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sundayrunners/attendapi/override"
)

type overrideAddRequest struct {
	RunnerName   string `json:"runner_name"`
	RunDate      string `json:"run_date"`
	RegisteredAt string `json:"registered_at,omitempty"`
}

type overrideEditRequest struct {
	RunnerName   *string `json:"runner_name,omitempty"`
	RegisteredAt *string `json:"registered_at,omitempty"`
}

// OverrideAdd manually records attendance, creating the day's run if needed.
func (h *Handler) OverrideAdd(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}

	var req overrideAddRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var registeredAt time.Time
	if req.RegisteredAt != "" {
		t, err := time.Parse(time.RFC3339, req.RegisteredAt)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "registered_at must be RFC3339")
		}
		registeredAt = t
	}

	att, err := h.override.Add(c.Request().Context(), req.RunnerName, req.RunDate, registeredAt)
	if err != nil {
		return overrideError(err)
	}
	return c.JSON(http.StatusCreated, att)
}

// OverrideEdit updates a record's runner name and/or timestamp.
func (h *Handler) OverrideEdit(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid attendance id")
	}

	var req overrideEditRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var registeredAt *time.Time
	if req.RegisteredAt != nil {
		t, err := time.Parse(time.RFC3339, *req.RegisteredAt)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "registered_at must be RFC3339")
		}
		registeredAt = &t
	}

	att, err := h.override.Edit(c.Request().Context(), id, req.RunnerName, registeredAt)
	if err != nil {
		return overrideError(err)
	}
	return c.JSON(http.StatusOK, att)
}

// OverrideDelete removes a single attendance record.
func (h *Handler) OverrideDelete(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid attendance id")
	}

	if err := h.override.Delete(c.Request().Context(), id); err != nil {
		return overrideError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// OverrideDeleteRun removes a run and all its attendance rows.
func (h *Handler) OverrideDeleteRun(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}

	date := c.Param("date")
	if err := h.override.DeleteRun(c.Request().Context(), date); err != nil {
		return overrideError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// OverrideList returns attendance rows, optionally filtered to a run date.
func (h *Handler) OverrideList(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}

	atts, err := h.override.List(c.Request().Context(), c.QueryParam("run_date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list attendance")
	}
	return c.JSON(http.StatusOK, atts)
}

func overrideError(err error) error {
	switch {
	case errors.Is(err, override.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, override.ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, override.ErrBadName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
