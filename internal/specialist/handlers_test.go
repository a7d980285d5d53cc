package specialist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/specialisthub/internal/middleware"
	"github.com/sudo-init-do/specialisthub/internal/upload"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

// fakeUploader validates like the real backends and hands out local paths.
type fakeUploader struct {
	n int
}

func (u *fakeUploader) Upload(_ context.Context, fh *multipart.FileHeader) (*upload.File, error) {
	mt, err := upload.Check(fh)
	if err != nil {
		return nil, err
	}
	u.n++
	return &upload.File{
		OriginalName: fh.Filename,
		FileName:     fmt.Sprintf("specialist-%d.png", u.n),
		Size:         fh.Size,
		MimeType:     mt,
	}, nil
}

func newTestServer(t *testing.T) (*echo.Echo, *fixture) {
	t.Helper()
	e, f, _ := newTestServerWithUploader(t)
	return e, f
}

func newTestServerWithUploader(t *testing.T) (*echo.Echo, *fixture, *fakeUploader) {
	t.Helper()
	f := newFixture(t)
	up := &fakeUploader{}
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(false)
	RegisterRoutes(e.Group("/api"), NewHandler(f.svc, up))
	return e, f, up
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, e *echo.Echo, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func specialistOf(t *testing.T, env envelope) Specialist {
	t.Helper()
	var data struct {
		Specialist Specialist `json:"specialist"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode specialist: %v", err)
	}
	return data.Specialist
}

type part struct {
	field, filename string
	content         []byte
}

func multipartBody(t *testing.T, method, target string, fields map[string]string, files []part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, p := range files {
		fw, err := w.CreateFormFile(p.field, p.filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(p.content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestHandler_CreateJSON(t *testing.T) {
	e, _ := newTestServer(t)

	rec, env := doRequest(t, e, jsonRequest(http.MethodPost, "/api/specialists",
		`{"title":"Tax Advisor","base_price":"100","platform_fee":"10","duration_days":"5"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.Status != "success" {
		t.Fatalf("expected success envelope, got %q", env.Status)
	}
	sp := specialistOf(t, env)
	if sp.Slug != "tax-advisor" || sp.FinalPrice != 110 || !sp.IsDraft {
		t.Fatalf("unexpected specialist: %+v", sp)
	}
	if sp.Media == nil || sp.ServiceOfferings == nil {
		t.Fatalf("relations must serialize as empty arrays")
	}
}

func TestHandler_CreateValidationIs400(t *testing.T) {
	e, _ := newTestServer(t)

	rec, env := doRequest(t, e, jsonRequest(http.MethodPost, "/api/specialists", `{"base_price":1,"duration_days":1}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if env.Status != "fail" || env.Message != "Title is required" {
		t.Fatalf("unexpected error envelope: %+v", env)
	}

	rec, env = doRequest(t, e, jsonRequest(http.MethodPost, "/api/specialists", `{"title":"A","base_price":-1,"duration_days":1}`))
	if rec.Code != http.StatusBadRequest || !strings.Contains(env.Message, "base_price") {
		t.Fatalf("expected base_price validation failure, got %d %+v", rec.Code, env)
	}
}

func TestHandler_CreateMultipartWithImages(t *testing.T) {
	e, _ := newTestServer(t)

	req := multipartBody(t, http.MethodPost, "/api/specialists",
		map[string]string{"data": `{"title":"Company Secretary","base_price":200,"duration_days":14}`},
		[]part{
			{"images", "a.png", pngBytes},
			{"images", "b.png", pngBytes},
		})
	rec, env := doRequest(t, e, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	sp := specialistOf(t, env)
	if len(sp.Media) != 2 {
		t.Fatalf("expected 2 media, got %d", len(sp.Media))
	}
	for _, m := range sp.Media {
		if !strings.HasPrefix(m.FilePath, "/uploads/specialist-") {
			t.Fatalf("unexpected media path %q", m.FilePath)
		}
		if m.MimeType == nil || *m.MimeType != "image/png" {
			t.Fatalf("expected sniffed image/png, got %v", m.MimeType)
		}
	}
}

func TestHandler_CreateRejectsNonImage(t *testing.T) {
	e, _ := newTestServer(t)

	req := multipartBody(t, http.MethodPost, "/api/specialists",
		map[string]string{"data": `{"title":"X","base_price":1,"duration_days":1}`},
		[]part{{"images", "notes.png", []byte("just some text")}})
	rec, env := doRequest(t, e, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if env.Message != upload.ErrInvalidType.Error() {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestHandler_CreateTooManyImages(t *testing.T) {
	e, _ := newTestServer(t)

	var files []part
	for i := 0; i <= maxCreateImages; i++ {
		files = append(files, part{"images", fmt.Sprintf("%d.png", i), pngBytes})
	}
	req := multipartBody(t, http.MethodPost, "/api/specialists",
		map[string]string{"data": `{"title":"X","base_price":1,"duration_days":1}`}, files)
	rec, _ := doRequest(t, e, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_UpdateSlotUpload(t *testing.T) {
	e, f := newTestServer(t)
	sp := f.create(t, `{"title":"Design","base_price":1,"duration_days":1,"media_urls":["https://cdn/0.png","https://cdn/1.png"]}`)

	req := multipartBody(t, http.MethodPut, "/api/specialists/"+sp.ID,
		map[string]string{"data": `{"base_price":20}`, "platform_fee": "5"},
		[]part{{"image1", "new.png", pngBytes}})
	rec, env := doRequest(t, e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := specialistOf(t, env)
	if got.FinalPrice != 25 {
		t.Fatalf("expected final_price 25, got %v", got.FinalPrice)
	}
	for _, m := range got.Media {
		if m.DisplayOrder == 0 && m.FilePath != "https://cdn/0.png" {
			t.Fatalf("slot 0 changed: %+v", m)
		}
		if m.DisplayOrder == 1 && !strings.HasPrefix(m.FilePath, "/uploads/") {
			t.Fatalf("slot 1 not replaced: %+v", m)
		}
	}
}

func TestHandler_InvalidInputStoresNoImages(t *testing.T) {
	e, _, up := newTestServerWithUploader(t)

	req := multipartBody(t, http.MethodPost, "/api/specialists",
		map[string]string{"data": `{"title":"X","base_price":-1,"duration_days":1}`},
		[]part{{"images", "a.png", pngBytes}})
	rec, _ := doRequest(t, e, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	req = multipartBody(t, http.MethodPut, "/api/specialists/6f1c2b53-3c55-4d6e-9a39-0b0a2a8f5e11",
		map[string]string{"data": `{"base_price":20}`},
		[]part{{"image0", "new.png", pngBytes}})
	rec, env := doRequest(t, e, req)
	if rec.Code != http.StatusNotFound || env.Message != "Specialist not found" {
		t.Fatalf("expected 404, got %d %+v", rec.Code, env)
	}

	if up.n != 0 {
		t.Fatalf("expected no uploads, got %d", up.n)
	}
}

func TestHandler_PublishToggleAndDelete(t *testing.T) {
	e, f := newTestServer(t)
	sp := f.create(t, `{"title":"Tax Advisor","base_price":1,"duration_days":1}`)

	rec, env := doRequest(t, e, httptest.NewRequest(http.MethodPatch, "/api/specialists/"+sp.ID+"/publish", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if specialistOf(t, env).IsDraft {
		t.Fatalf("expected published after toggle")
	}

	rec, env = doRequest(t, e, jsonRequest(http.MethodPatch, "/api/specialists/"+sp.ID+"/publish", `{"is_draft":true}`))
	if rec.Code != http.StatusOK || !specialistOf(t, env).IsDraft {
		t.Fatalf("expected explicit draft, got %d", rec.Code)
	}

	rec, _ = doRequest(t, e, httptest.NewRequest(http.MethodDelete, "/api/specialists/"+sp.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec, env = doRequest(t, e, httptest.NewRequest(http.MethodGet, "/api/specialists/"+sp.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
	if env.Status != "fail" || env.Message != "Specialist not found" {
		t.Fatalf("unexpected 404 envelope: %+v", env)
	}
}

func TestHandler_GetInvalidID(t *testing.T) {
	e, _ := newTestServer(t)
	rec, _ := doRequest(t, e, httptest.NewRequest(http.MethodGet, "/api/specialists/not-a-uuid", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_ListEnvelope(t *testing.T) {
	e, f := newTestServer(t)
	for i := 0; i < 3; i++ {
		f.create(t, fmt.Sprintf(`{"title":"Listing %d","base_price":1,"duration_days":1}`, i))
	}

	rec, env := doRequest(t, e, httptest.NewRequest(http.MethodGet, "/api/specialists?page=2&limit=2&status=draft", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var data struct {
		Specialists []Specialist `json:"specialists"`
		Pagination  struct {
			Page       int   `json:"page"`
			Limit      int   `json:"limit"`
			Total      int64 `json:"total"`
			TotalPages int64 `json:"totalPages"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(data.Specialists) != 1 {
		t.Fatalf("expected 1 specialist on page 2, got %d", len(data.Specialists))
	}
	p := data.Pagination
	if p.Page != 2 || p.Limit != 2 || p.Total != 3 || p.TotalPages != 2 {
		t.Fatalf("unexpected pagination: %+v", p)
	}

	rec, env = doRequest(t, e, httptest.NewRequest(http.MethodGet, "/api/specialists?status=published", nil))
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if rec.Code != http.StatusOK || len(data.Specialists) != 0 || data.Pagination.TotalPages != 0 {
		t.Fatalf("expected empty published page, got %d items", len(data.Specialists))
	}
}

func TestHandler_ListPageBeyondRange(t *testing.T) {
	e, f := newTestServer(t)
	f.create(t, `{"title":"Listing A","base_price":1,"duration_days":1}`)
	f.create(t, `{"title":"Listing B","base_price":1,"duration_days":1}`)

	rec, env := doRequest(t, e, httptest.NewRequest(http.MethodGet, "/api/specialists?page=9223372036854775807&limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var data struct {
		Specialists []Specialist `json:"specialists"`
		Pagination  struct {
			Total      int64 `json:"total"`
			TotalPages int64 `json:"totalPages"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(data.Specialists) != 0 {
		t.Fatalf("expected an empty page, got %d specialists", len(data.Specialists))
	}
	if data.Pagination.Total != 2 || data.Pagination.TotalPages != 1 {
		t.Fatalf("unexpected pagination: %+v", data.Pagination)
	}
}

func TestHandler_PlatformFees(t *testing.T) {
	e, _ := newTestServer(t)
	rec, env := doRequest(t, e, httptest.NewRequest(http.MethodGet, "/api/platform-fees", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(string(env.Data), `"platform_fees":[]`) {
		t.Fatalf("expected empty platform_fees array, got %s", env.Data)
	}
}
