package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/specialisthub/internal/config"
	mware "github.com/sudo-init-do/specialisthub/internal/middleware"
	"github.com/sudo-init-do/specialisthub/internal/specialist"
)

func newTestApp(t *testing.T) (*echo.Echo, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Env:  "test",
		Port: "0",
		DB: config.DBConfig{
			Backend:    config.BackendGorm,
			Dialect:    config.DialectSQLite,
			SQLitePath: filepath.Join(dir, "specialists.db"),
		},
		UploadDir:   filepath.Join(dir, "uploads"),
		CORSOrigins: []string{"http://localhost:3000"},
	}

	store, closeStore, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(closeStore)

	uploader, local, err := NewUploader(cfg)
	if err != nil {
		t.Fatalf("NewUploader: %v", err)
	}
	if local == nil {
		t.Fatalf("expected the local uploader without cloudinary credentials")
	}

	v := mware.NewValidator()
	return New(cfg, specialist.NewService(store, v), uploader, local, v), cfg
}

func get(t *testing.T, e *echo.Echo, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body := map[string]any{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec, body
}

func TestServer_RootAndHealth(t *testing.T) {
	e, _ := newTestApp(t)

	rec, body := get(t, e, "/")
	if rec.Code != http.StatusOK || body["message"] != "Anycomp Backend API" || body["version"] != "1.0.0" {
		t.Fatalf("unexpected root response %d %v", rec.Code, body)
	}

	rec, body = get(t, e, "/api/health")
	if rec.Code != http.StatusOK || body["status"] != "success" {
		t.Fatalf("unexpected health response %d %v", rec.Code, body)
	}

	rec, body = get(t, e, "/api/ready")
	if rec.Code != http.StatusOK || body["status"] != "ready" {
		t.Fatalf("unexpected ready response %d %v", rec.Code, body)
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	e, _ := newTestApp(t)

	rec, body := get(t, e, "/api/does-not-exist")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body["status"] != "fail" || body["message"] != "Not Found - /api/does-not-exist" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestServer_SpecialistRoundTrip(t *testing.T) {
	e, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/specialists",
		strings.NewReader(`{"title":"Tax Advisor","base_price":100,"platform_fee":10,"duration_days":5}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, body := get(t, e, "/api/specialists?search=tax")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := body["data"].(map[string]any)
	if items := data["specialists"].([]any); len(items) != 1 {
		t.Fatalf("expected 1 specialist, got %d", len(items))
	}

	rec, body = get(t, e, "/api/upload/cloudinary-signature")
	if rec.Code != http.StatusInternalServerError || body["message"] != "Cloudinary is not configured" {
		t.Fatalf("unexpected signature response %d %v", rec.Code, body)
	}

	rec, _ = get(t, e, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `endpoint="/api/specialists"`) {
		t.Fatalf("expected request metrics for /api/specialists")
	}
}

func TestServer_ServesLocalUploads(t *testing.T) {
	e, cfg := newTestApp(t)
	if err := os.WriteFile(filepath.Join(cfg.UploadDir, "specialist-x.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}

	rec, _ := get(t, e, "/uploads/specialist-x.txt")
	if rec.Code != http.StatusOK || rec.Body.String() != "hello" {
		t.Fatalf("unexpected static response %d %q", rec.Code, rec.Body.String())
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	e, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/specialists", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPatch)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPatch) {
		t.Fatalf("PATCH missing from allowed methods: %q", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	}
}
