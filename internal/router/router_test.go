package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/stockplus-backend/internal/config"
	"github.com/onegreenvn/stockplus-backend/internal/database/testutil"
	"github.com/onegreenvn/stockplus-backend/internal/router"
	"github.com/onegreenvn/stockplus-backend/internal/services"
)

type capturedOTPs struct {
	mu    sync.Mutex
	codes map[string]string
}

func (n *capturedOTPs) SendOTP(msg services.OTPMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[msg.Contact] = msg.Code
	return nil
}

// codeFor waits until the delivery worker has handed over a code for contact
func (n *capturedOTPs) codeFor(t *testing.T, contact string) string {
	t.Helper()
	var code string
	require.Eventually(t, func() bool {
		n.mu.Lock()
		defer n.mu.Unlock()
		code = n.codes[contact]
		return code != ""
	}, 2*time.Second, 5*time.Millisecond)
	return code
}

type testAPI struct {
	t          *testing.T
	handler    http.Handler
	otps       *capturedOTPs
	exportsDir string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := &config.Config{
		GinMode: gin.TestMode,
		JWT: config.JWTConfig{
			Secret:          "test-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: time.Hour,
		},
		StaffQuota:  5,
		ExportsDir:  t.TempDir(),
		ShopName:    "Test Shop",
		CORSOrigins: []string{"*"},
	}
	otps := &capturedOTPs{codes: map[string]string{}}
	otpService := services.NewOTPService(db, otps)
	otpService.Start()
	t.Cleanup(otpService.Stop)
	return &testAPI{
		t:          t,
		handler:    router.SetupRouter(cfg, db, otpService),
		otps:       otps,
		exportsDir: cfg.ExportsDir,
	}
}

func (a *testAPI) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func (a *testAPI) login(login, password string) string {
	a.t.Helper()
	w, body := a.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": login, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return body["data"].(map[string]interface{})["access_token"].(string)
}

func data(body map[string]interface{}) map[string]interface{} {
	return body["data"].(map[string]interface{})
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	w, body := api.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestProtectedRoutesNeedAToken(t *testing.T) {
	api := newTestAPI(t)

	w, body := api.do(http.MethodGet, "/api/v1/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "missing_token", body["code"])

	w, body = api.do(http.MethodGet, "/api/v1/auth/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_token", body["code"])
}

func TestErrorEnvelope(t *testing.T) {
	api := newTestAPI(t)

	w, body := api.do(http.MethodPost, "/api/v1/superuser/create", "", gin.H{"email": "root@example.com", "password": "supersecret"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "root", data(body)["username"])

	w, body = api.do(http.MethodPost, "/api/v1/superuser/create", "", gin.H{"email": "other@example.com", "password": "supersecret"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "superuser_exists", body["code"])
	assert.NotEmpty(t, body["error"])

	w, body = api.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": "root", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", body["code"])

	w, body = api.do(http.MethodPost, "/api/v1/signup/send-otp", "", gin.H{"username": "newbie", "phone_number": "12ab"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", body["code"])
	assert.Contains(t, body["details"], "phone")

	token := api.login("root", "supersecret")
	w, body = api.do(http.MethodGet, "/api/v1/stock-batches/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_id", body["code"])

	w, body = api.do(http.MethodGet, "/api/v1/sales/bill?no=INV/2026/99999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "sale_not_found", body["code"])
}

func TestSignupOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	w, _ := api.do(http.MethodPost, "/api/v1/signup/send-otp", "", gin.H{"username": "asha", "email": "asha@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	code := api.otps.codeFor(t, "asha@example.com")
	require.Len(t, code, 6)

	w, body := api.do(http.MethodPost, "/api/v1/signup/complete", "", gin.H{
		"username": "asha", "email": "asha@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "code not verified yet")
	assert.NotEqual(t, "invalid_request", body["code"])

	w, _ = api.do(http.MethodPost, "/api/v1/signup/verify-otp", "", gin.H{"email": "asha@example.com", "otp": code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body = api.do(http.MethodPost, "/api/v1/signup/complete", "", gin.H{
		"username": "asha", "email": "asha@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := data(body)["access_token"].(string)

	w, body = api.do(http.MethodGet, "/api/v1/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "asha", data(body)["username"])
	assert.Equal(t, "staff", data(body)["role"])

	w, body = api.do(http.MethodPost, "/api/v1/auth/check-username", "", gin.H{"username": "ASHA"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, data(body)["available"])
}

func TestStockToSaleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	_, _ = api.do(http.MethodPost, "/api/v1/superuser/create", "", gin.H{"email": "root@example.com", "password": "supersecret"})
	root := api.login("root", "supersecret")

	w, body := api.do(http.MethodPost, "/api/v1/locations", root, gin.H{"name": "Main"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	locationID := data(body)["id"]

	w, body = api.do(http.MethodPost, "/api/v1/product-groups", root, gin.H{
		"name": "Shirts", "hsn_code": "6109", "sgst_rate": "2.5", "cgst_rate": "2.5",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	groupID := data(body)["id"]

	w, body = api.do(http.MethodPost, "/api/v1/product-subgroups", root, gin.H{"group": groupID, "name": "M"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	subID := data(body)["id"]

	w, _ = api.do(http.MethodPost, "/api/v1/staff", root, gin.H{
		"email": "clerk@example.com", "password": "clerkpass", "location": locationID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	clerk := api.login("clerk@example.com", "clerkpass")

	w, body = api.do(http.MethodPost, "/api/v1/locations", clerk, gin.H{"name": "Back Room"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "role_not_allowed", body["code"])

	w, body = api.do(http.MethodPost, "/api/v1/stock-batches", clerk, gin.H{
		"group": groupID, "sub_group": subID, "no_of_pieces": 2, "price_with_gst": "1050", "cost_price": "700",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	codes := data(body)["barcodes"].([]interface{})
	require.Len(t, codes, 2)
	first := codes[0].(string)

	w, body = api.do(http.MethodGet, "/api/v1/units/lookup?code="+first, clerk, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Shirts", data(body)["group_name"])

	w, _ = api.do(http.MethodGet, "/api/v1/units/"+first+"/barcode.png", clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w, body = api.do(http.MethodPost, "/api/v1/sales", clerk, gin.H{"items": []gin.H{{"barcode": first}}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	billNo := data(body)["bill_no"].(string)
	assert.Regexp(t, `^INV/\d{4}/00001$`, billNo)

	w, body = api.do(http.MethodPost, "/api/v1/sales", clerk, gin.H{"items": []gin.H{{"barcode": first}}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "unit_already_sold", body["code"])

	w, body = api.do(http.MethodGet, "/api/v1/units/lookup?code="+first, clerk, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "unit_inactive", body["code"])

	w, body = api.do(http.MethodGet, "/api/v1/sales/bill?no="+billNo, clerk, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, billNo, data(body)["bill_no"])

	w, body = api.do(http.MethodGet, "/api/v1/reports/dashboard", clerk, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, data(body)["current_stock"])
	assert.EqualValues(t, 1, data(body)["bill_count"])

	w, _ = api.do(http.MethodGet, "/api/v1/reports/detailed/export?type=inventory", clerk, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(http.MethodGet, "/api/v1/reports/detailed/export?type=sales", root, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=sales_report_")
	assert.NotZero(t, w.Body.Len())

	left, err := os.ReadDir(api.exportsDir)
	require.NoError(t, err)
	assert.Empty(t, left, "served exports are removed")
}

func TestCategoriesOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	_, _ = api.do(http.MethodPost, "/api/v1/superuser/create", "", gin.H{"email": "root@example.com", "password": "supersecret"})
	root := api.login("Root@Example.com", "supersecret")

	w, body := api.do(http.MethodPost, "/api/v1/categories", root, gin.H{"name": "Apparel", "description": "Clothing"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := data(body)["id"]

	w, body = api.do(http.MethodPost, "/api/v1/categories", root, gin.H{"name": "Apparel"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "category_exists", body["code"])

	w, body = api.do(http.MethodGet, "/api/v1/categories?search=app", root, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 1)

	w, _ = api.do(http.MethodDelete, fmt.Sprintf("/api/v1/categories/%v", id), root, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body = api.do(http.MethodGet, fmt.Sprintf("/api/v1/categories/%v", id), root, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "category_not_found", body["code"])
}
