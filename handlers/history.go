package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sundayrunners/attendapi/history"
)

// AttendanceHistory returns a page of past registrations. Bad page numbers
// clamp rather than error; bad date filters are ignored.
func (h *Handler) AttendanceHistory(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page == 0 {
		page = 1
	}

	res, err := h.history.History(c.Request().Context(),
		c.QueryParam("start_date"), c.QueryParam("end_date"), page, pageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to retrieve attendance history")
	}
	return c.JSON(http.StatusOK, res)
}

// ExportAttendance streams the full matching range as a CSV download.
// Admin only.
func (h *Handler) ExportAttendance(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}

	startDate := c.QueryParam("start_date")
	endDate := c.QueryParam("end_date")

	csvData, err := h.history.ExportCSV(c.Request().Context(), startDate, endDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate export")
	}

	filename := history.ExportFilename(startDate, endDate)
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(csvData))
}
