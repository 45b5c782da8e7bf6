package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/sundayrunners/attendapi/calendar"
	"github.com/sundayrunners/attendapi/config"
	"github.com/sundayrunners/attendapi/dbtest"
	"github.com/sundayrunners/attendapi/handlers"
	"github.com/sundayrunners/attendapi/qr"
)

func newHandler(t *testing.T) (*handlers.Handler, *bun.DB, *config.Config) {
	t.Helper()
	db := dbtest.New(t)
	cfg := &config.Config{
		JWTSecret:  "test-secret",
		BaseURL:    "http://localhost:9000",
		AdminUsers: []string{"admin"},
	}
	return handlers.New(db, cfg, zap.NewNop()), db, cfg
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := h(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

// configureDay drives the calendar service directly and returns the live
// session id for the date.
func configureDay(t *testing.T, db *bun.DB, date string) string {
	t.Helper()
	svc := calendar.New(db, nil)
	res, err := svc.ConfigureRunDay(context.Background(), date, true)
	require.NoError(t, err)
	require.True(t, res.Success)

	days, err := svc.Configuration(context.Background(), date, date)
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.NotNil(t, days[0].SessionID)
	return *days[0].SessionID
}

func TestRegisterEndpointLifecycle(t *testing.T) {
	h, db, _ := newHandler(t)
	sessionID := configureDay(t, db, "2024-01-15")

	// First registration succeeds.
	rec := doJSON(t, h.Register, http.MethodPost, "/api/register",
		`{"session_id":"`+sessionID+`","runner_name":"Jane Doe"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["current_count"])

	// Different case is a distinct identity.
	rec = doJSON(t, h.Register, http.MethodPost, "/api/register",
		`{"session_id":"`+sessionID+`","runner_name":"jane doe"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Repeat is a conflict carrying the live count.
	rec = doJSON(t, h.Register, http.MethodPost, "/api/register",
		`{"session_id":"`+sessionID+`","runner_name":"Jane Doe"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, 2, body["current_count"])

	// Deactivating the day invalidates the session id for registration.
	svc := calendar.New(db, nil)
	res, err := svc.ConfigureRunDay(context.Background(), "2024-01-15", false)
	require.NoError(t, err)
	require.True(t, res.Success)

	rec = doJSON(t, h.Register, http.MethodPost, "/api/register",
		`{"session_id":"`+sessionID+`","runner_name":"New Runner"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterEndpointValidation(t *testing.T) {
	h, _, _ := newHandler(t)

	rec := doJSON(t, h.Register, http.MethodPost, "/api/register",
		`{"runner_name":"Jane Doe"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h.Register, http.MethodPost, "/api/register",
		`{"session_id":"nope","runner_name":"Jane Doe"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportEndpointRequiresAdmin(t *testing.T) {
	h, _, _ := newHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/attendance/export", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	// No username in context: the JWT middleware never ran.
	err := h.ExportAttendance(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)

	// Authenticated but not in the admin list.
	c = e.NewContext(req, rec)
	c.Set("username", "runner")
	err = h.ExportAttendance(c)
	require.Error(t, err)
	httpErr = err.(*echo.HTTPError)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestExportEndpointReturnsCSV(t *testing.T) {
	h, db, _ := newHandler(t)
	sessionID := configureDay(t, db, "2024-01-15")

	rec := doJSON(t, h.Register, http.MethodPost, "/api/register",
		`{"session_id":"`+sessionID+`","runner_name":"Jane Doe"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/attendance/export", nil)
	out := httptest.NewRecorder()
	c := e.NewContext(req, out)
	c.Set("username", "admin")
	require.NoError(t, h.ExportAttendance(c))

	assert.Equal(t, http.StatusOK, out.Code)
	assert.Contains(t, out.Header().Get(echo.HeaderContentDisposition), "attendance_export")
	lines := strings.Split(strings.TrimRight(out.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Runner Name,Run Date,Registration Time,Session ID,Attendance ID", lines[0])
	assert.Contains(t, lines[1], "Jane Doe")
}

func TestQRTokenEndpoints(t *testing.T) {
	h, db, cfg := newHandler(t)
	sessionID := configureDay(t, db, "2024-01-15")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("sessionID")
	c.SetParamValues(sessionID)
	c.Set("username", "admin")
	require.NoError(t, h.QRCode(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.Contains(t, body["registration_url"], cfg.BaseURL)

	// The issued token validates back to the same session.
	resolved, err := qr.ValidateToken(cfg.JWTKey(), token)
	require.NoError(t, err)
	assert.Equal(t, sessionID, resolved)

	req = httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	require.NoError(t, h.ValidateQR(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, sessionID, body["session_id"])

	req = httptest.NewRequest(http.MethodGet, "/?token=garbage", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	require.NoError(t, h.ValidateQR(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistoryEndpointClampsParams(t *testing.T) {
	h, db, _ := newHandler(t)
	sessionID := configureDay(t, db, "2024-01-15")
	rec := doJSON(t, h.Register, http.MethodPost, "/api/register",
		`{"session_id":"`+sessionID+`","runner_name":"Jane Doe"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?page=0&page_size=5000", nil)
	out := httptest.NewRecorder()
	c := e.NewContext(req, out)
	require.NoError(t, h.AttendanceHistory(c))
	assert.Equal(t, http.StatusOK, out.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, 50, body["page_size"])
	assert.EqualValues(t, 1, body["total_count"])
}
