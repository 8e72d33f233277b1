package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/admin"
	"github.com/kozaktomas/face-attendance/internal/assets"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/extractor/fake"
	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/kozaktomas/face-attendance/internal/store/filestore"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	black = color.RGBA{A: 255}
)

// testEnv is a fully wired service over temp dirs and a fake detector.
type testEnv struct {
	svc      *attendance.Service
	creds    *admin.Credentials
	sm       *middleware.SessionManager
	detector *fake.Detector
	assets   *assets.DirStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	dir, err := assets.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create asset store: %v", err)
	}

	now := func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local) }
	det := fake.New()
	svc := attendance.NewService(attendance.Deps{
		Index:    identity.NewIndex(),
		Roster:   roster.New(backend),
		Ledger:   ledger.New(backend, ledger.WithClock(now)),
		Assets:   dir,
		Detector: det,
		Images: config.ImagesConfig{
			Extensions:        []string{".jpg", ".jpeg", ".png"},
			FallbackExtension: ".jpg",
			MaxProbeSize:      1280,
		},
		Analytics: config.AnalyticsConfig{TopStudents: 5, RecentRecords: 20},
		Now:       now,
	})

	creds := admin.New(backend)
	if _, err := creds.Seed(context.Background(), admin.Credential{Username: "admin", Password: "s3cret"}); err != nil {
		t.Fatalf("failed to seed credentials: %v", err)
	}

	sm := middleware.NewSessionManager("test-secret", nil)
	t.Cleanup(sm.Stop)

	return &testEnv{svc: svc, creds: creds, sm: sm, detector: det, assets: dir}
}

// register enrolls a student through the service.
func (e *testEnv) register(t *testing.T, regNo, name, dept string, c color.Color) {
	t.Helper()
	_, err := e.svc.Register(context.Background(), attendance.RegisterRequest{
		Name: name, RegNo: regNo, Dept: dept, Filename: "photo.png", Photo: fake.Face(c),
	})
	if err != nil {
		t.Fatalf("failed to register %s: %v", regNo, err)
	}
}

// adminRequest attaches an admin session to the request context.
func (e *testEnv) adminRequest(t *testing.T, r *http.Request) *http.Request {
	t.Helper()
	session, err := e.sm.CreateSession(r.Context(), "admin")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return r.WithContext(middleware.SetSessionInContext(r.Context(), session))
}

func dataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// jsonRequest builds a request with body marshalled as JSON.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a registration form. A nil photo omits the file part.
func multipartRequest(t *testing.T, path string, fields map[string]string, filename string, photo []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if photo != nil {
		part, err := mw.CreateFormFile("photo", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(photo)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a failed {ok, message} body
// with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result okResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result.OK {
		t.Error("expected ok to be false")
	}
	if result.Message != expectedMessage {
		t.Errorf("expected message '%s', got '%s'", expectedMessage, result.Message)
	}
}
