package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func TestHandler_RegisterStaff(t *testing.T) {
	h, e := newTestHandler()

	body := `{"email":"doc@hospital.org","password":"s3cure-pass","full_name":"Dr. Gray","role":"doctor"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.RegisterStaff(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var got StaffUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "doc@hospital.org", got.Email)
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func TestHandler_RegisterStaff_Conflict(t *testing.T) {
	h, e := newTestHandler()

	u := &StaffUser{Email: "doc@hospital.org", FullName: "Dr. Gray", Role: RoleDoctor}
	require.NoError(t, h.svc.RegisterStaff(context.Background(), u, "s3cure-pass"))

	body := `{"email":"doc@hospital.org","password":"s3cure-pass","full_name":"Dr. Other","role":"nurse"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.RegisterStaff(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestHandler_Login(t *testing.T) {
	h, e := newTestHandler()

	u := &StaffUser{Email: "doc@hospital.org", FullName: "Dr. Gray", Role: RoleDoctor}
	require.NoError(t, h.svc.RegisterStaff(context.Background(), u, "s3cure-pass"))

	body := `{"email":"doc@hospital.org","password":"s3cure-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.Token)
	assert.Equal(t, u.ID, got.User.ID)
}

func TestHandler_Login_BadCredentials(t *testing.T) {
	h, e := newTestHandler()

	body := `{"email":"ghost@hospital.org","password":"whatever-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Login(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestHandler_RegisterPatient(t *testing.T) {
	h, e := newTestHandler()

	body := `{"name":"John Doe","gender":"male","blood_group":"O+"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.RegisterPatient(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var got Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, strings.HasPrefix(got.MRN, "MRN-"))
}

func TestHandler_GetPatient_ByMRN(t *testing.T) {
	h, e := newTestHandler()

	p := &Patient{Name: "John Doe"}
	require.NoError(t, h.svc.RegisterPatient(context.Background(), p))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.MRN)

	require.NoError(t, h.GetPatient(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_GetPatient_NotFound(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.GetPatient(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestHandler_ListPatients(t *testing.T) {
	h, e := newTestHandler()

	require.NoError(t, h.svc.RegisterPatient(context.Background(), &Patient{Name: "John Doe"}))
	require.NoError(t, h.svc.RegisterPatient(context.Background(), &Patient{Name: "Jane Roe"}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.ListPatients(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data  []Patient `json:"data"`
		Total int       `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, e := newTestHandler()
	api := e.Group("/api/v1")

	h.RegisterAuthRoutes(api)
	h.RegisterRoutes(api)

	routePaths := make(map[string]bool)
	for _, r := range e.Routes() {
		routePaths[r.Method+":"+r.Path] = true
	}

	for _, path := range []string{
		"POST:/api/v1/auth/login",
		"POST:/api/v1/auth/register",
		"GET:/api/v1/patients",
		"POST:/api/v1/patients",
		"PUT:/api/v1/patients/:id",
	} {
		assert.True(t, routePaths[path], "missing route %s", path)
	}
}
