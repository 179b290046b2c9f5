package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/config"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/container"
)

func testServer(t *testing.T) (*Server, *container.Container) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Log.Level = "error"
	cfg.Log.Format = "text"
	cfg.Database.Path = ":memory:"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTLMinutes = 60
	cfg.Auth.Issuer = "himalai-test"
	cfg.Upload.MaxSizeMB = 4

	deps, err := container.NewContainer(cfg)
	require.NoError(t, err)
	return New(deps), deps
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)

	var parsed map[string]interface{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 && strings.Contains(resp.Header.Get("Content-Type"), "json") {
		require.NoError(t, json.Unmarshal(data, &parsed))
	}
	return resp, parsed
}

// registerAndLogin walks a user through register, verify and login,
// returning a bearer token.
func registerAndLogin(t *testing.T, srv *Server, deps *container.Container, email string) string {
	t.Helper()

	resp, _ := doJSON(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"username": strings.Split(email, "@")[0],
		"password": "longenoughpassword",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	user, err := deps.Store().GetUserByEmail(email)
	require.NoError(t, err)

	resp, _ = doJSON(t, srv, http.MethodPost, "/auth/verify", "", map[string]string{
		"email": email,
		"code":  user.VerifyCode,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "longenoughpassword",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	resp, body := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthFlow(t *testing.T) {
	srv, deps := testServer(t)
	token := registerAndLogin(t, srv, deps, "alice@example.com")

	resp, body := doJSON(t, srv, http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice@example.com", user["email"])
	assert.NotNil(t, body["profile"])
}

func TestLoginBeforeVerificationRejected(t *testing.T) {
	srv, _ := testServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "bob@example.com",
		"username": "bob",
		"password": "longenoughpassword",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "bob@example.com",
		"password": "longenoughpassword",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv, _ := testServer(t)

	resp, body := doJSON(t, srv, http.MethodGet, "/transactions/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, _ = doJSON(t, srv, http.MethodGet, "/transactions/", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestManualTransactionLifecycle(t *testing.T) {
	srv, deps := testServer(t)
	token := registerAndLogin(t, srv, deps, "carol@example.com")

	resp, body := doJSON(t, srv, http.MethodPost, "/transactions/", token, map[string]string{
		"date":        "2024-01-05",
		"description": "Grocery Store",
		"category":    "Food & Dining",
		"dr":          "500",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := body["transaction"].(map[string]interface{})
	assert.Equal(t, "Manual", created["source"])

	resp, body = doJSON(t, srv, http.MethodGet, "/transactions/", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["count"])

	resp, _ = doJSON(t, srv, http.MethodDelete, "/transactions/"+created["id"].(string), token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, srv, http.MethodGet, "/transactions/", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["count"])
}

func TestManualTransactionRejectsBadInput(t *testing.T) {
	srv, deps := testServer(t)
	token := registerAndLogin(t, srv, deps, "dave@example.com")

	resp, _ := doJSON(t, srv, http.MethodPost, "/transactions/", token, map[string]string{
		"date":        "not a date",
		"description": "x",
		"dr":          "10",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/transactions/", token, map[string]string{
		"date":        "2024-01-05",
		"description": "no amounts",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadEndpoint(t *testing.T) {
	srv, deps := testServer(t)
	token := registerAndLogin(t, srv, deps, "erin@example.com")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Date", "Description", "Debit", "Credit"},
		{"2024-01-05", "Grocery Store", "500", ""},
		{"Total", "", "", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	workbook, err := f.WriteToBuffer()
	require.NoError(t, err)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "statement.xlsx")
	require.NoError(t, err)
	_, err = part.Write(workbook.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/files/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, true, summary["success"])
	assert.EqualValues(t, 1, summary["count"])

	// AI is disabled in the test config, so the fallback category applies.
	resp, body := doJSON(t, srv, http.MethodGet, "/transactions/", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	transactions := body["transactions"].([]interface{})
	require.Len(t, transactions, 1)
	assert.Equal(t, "Other", transactions[0].(map[string]interface{})["category"])
}

func TestExportEndpoint(t *testing.T) {
	srv, deps := testServer(t)
	token := registerAndLogin(t, srv, deps, "frank@example.com")

	resp, _ := doJSON(t, srv, http.MethodPost, "/transactions/", token, map[string]string{
		"date":        "2024-01-05",
		"description": "Coffee",
		"category":    "Food & Dining",
		"dr":          "150",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/transactions/export", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/csv", res.Header.Get("Content-Type"))

	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Coffee")
}

func TestVoucherEndpoints(t *testing.T) {
	srv, deps := testServer(t)
	token := registerAndLogin(t, srv, deps, "grace@example.com")

	// Ordinary users cannot create vouchers.
	resp, _ := doJSON(t, srv, http.MethodPost, "/vouchers/", token, map[string]interface{}{
		"title": "Nope", "amount": "100", "type": "FIXED",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Promote to admin and retry.
	user, err := deps.Store().GetUserByEmail("grace@example.com")
	require.NoError(t, err)
	user.IsAdmin = true
	require.NoError(t, deps.Store().UpdateUser(user))
	adminToken := loginAgain(t, srv, "grace@example.com")

	resp, body := doJSON(t, srv, http.MethodPost, "/vouchers/", adminToken, map[string]interface{}{
		"title":       "Movie ticket",
		"amount":      "500",
		"type":        "FIXED",
		"points_cost": 100,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	voucherBody := body["voucher"].(map[string]interface{})
	code := voucherBody["code"].(string)
	require.NotEmpty(t, code)

	resp, body = doJSON(t, srv, http.MethodGet, "/vouchers/", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["count"])

	// No points yet.
	resp, _ = doJSON(t, srv, http.MethodPost, "/vouchers/redeem", adminToken, map[string]string{"code": code})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/vouchers/redeem", adminToken, map[string]string{"code": "NOSUCH"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func loginAgain(t *testing.T, srv *Server, email string) string {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "longenoughpassword",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["access_token"].(string)
}
