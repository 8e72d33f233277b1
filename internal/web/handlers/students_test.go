package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/extractor/fake"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

func registrationFields(regNo string) map[string]string {
	return map[string]string{"name": "Ava", "reg_no": regNo, "dept": "CS"}
}

func listStudents(t *testing.T, h *StudentsHandler, query string) []roster.Student {
	t.Helper()
	recorder := httptest.NewRecorder()
	h.List(recorder, httptest.NewRequest("GET", "/api/v1/students"+query, nil))
	assertStatusCode(t, recorder, http.StatusOK)
	var students []roster.Student
	parseJSONResponse(t, recorder, &students)
	return students
}

func TestStudentsHandler_Register(t *testing.T) {
	env := newTestEnv(t)
	h := NewStudentsHandler(env.svc)

	recorder := httptest.NewRecorder()
	h.Register(recorder, multipartRequest(t, "/api/v1/students", registrationFields("S001"), "ava.PNG", fake.Face(red)))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp okResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.OK || resp.Message != "Ava registered" {
		t.Errorf("unexpected response %+v", resp)
	}

	students := listStudents(t, h, "")
	if len(students) != 1 || students[0].Photo != "S001.png" || students[0].Dept != "CS" {
		t.Errorf("unexpected roster %+v", students)
	}
}

func TestStudentsHandler_Register_Failures(t *testing.T) {
	tests := []struct {
		name        string
		fields      map[string]string
		photo       []byte
		wantCode    int
		wantMessage string
	}{
		{"missing dept", map[string]string{"name": "Ava", "reg_no": "S001"}, fake.Face(red), http.StatusBadRequest, "All fields required"},
		{"missing photo", registrationFields("S001"), nil, http.StatusBadRequest, "All fields required"},
		{"no face", registrationFields("S001"), fake.Face(black), http.StatusBadRequest, "No face detected in uploaded photo"},
		{"unsafe reg no", registrationFields("a/b"), fake.Face(red), http.StatusBadRequest, "Invalid registration number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			h := NewStudentsHandler(env.svc)

			recorder := httptest.NewRecorder()
			h.Register(recorder, multipartRequest(t, "/api/v1/students", tt.fields, "photo.jpg", tt.photo))

			assertStatusCode(t, recorder, tt.wantCode)
			assertJSONError(t, recorder, tt.wantMessage)
			if len(listStudents(t, h, "")) != 0 {
				t.Error("failed registration must not add a student")
			}
		})
	}
}

func TestStudentsHandler_Register_NotMultipart(t *testing.T) {
	env := newTestEnv(t)
	h := NewStudentsHandler(env.svc)

	recorder := httptest.NewRecorder()
	h.Register(recorder, jsonRequest(t, "POST", "/api/v1/students", registrationFields("S001")))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "failed to parse multipart form")
}

func TestStudentsHandler_Register_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "S001", "Ava", "CS", red)
	h := NewStudentsHandler(env.svc)

	recorder := httptest.NewRecorder()
	h.Register(recorder, multipartRequest(t, "/api/v1/students", registrationFields("S001"), "x.jpg", fake.Face(blue)))

	assertStatusCode(t, recorder, http.StatusConflict)
	assertJSONError(t, recorder, "Student already registered")
}

func TestStudentsHandler_ListSearch(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "S001", "Ava Dvořák", "CS", red)
	env.register(t, "S002", "Ben", "Physics", blue)
	h := NewStudentsHandler(env.svc)

	if n := len(listStudents(t, h, "")); n != 2 {
		t.Errorf("expected 2 students, got %d", n)
	}
	got := listStudents(t, h, "?q=dvorak")
	if len(got) != 1 || got[0].RegNo != "S001" {
		t.Errorf("unexpected search result %+v", got)
	}
}

func TestStudentsHandler_Delete(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "S001", "Ava", "CS", red)
	h := NewStudentsHandler(env.svc)
	a := NewAttendanceHandler(env.svc)

	for range 2 {
		recorder := httptest.NewRecorder()
		req := env.adminRequest(t, jsonRequest(t, "POST", "/api/v1/students/delete", map[string]string{"reg_no": "S001"}))
		h.Delete(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var resp okResponse
		parseJSONResponse(t, recorder, &resp)
		if !resp.OK {
			t.Error("expected ok to be true")
		}
	}

	if len(listStudents(t, h, "")) != 0 {
		t.Error("student should be gone")
	}
	var resp MarkResponse
	parseJSONResponse(t, mark(t, a, dataURL(fake.Face(red))), &resp)
	if resp.Status != "unknown" {
		t.Errorf("deleted student should be unknown, got %q", resp.Status)
	}
}

func TestStudentsHandler_Delete_MissingRegNo(t *testing.T) {
	env := newTestEnv(t)
	h := NewStudentsHandler(env.svc)

	for _, body := range []string{``, `{}`, `{"reg_no": ""}`} {
		recorder := httptest.NewRecorder()
		req := env.adminRequest(t, httptest.NewRequest("POST", "/api/v1/students/delete", bytes.NewBufferString(body)))
		h.Delete(recorder, req)

		assertStatusCode(t, recorder, http.StatusBadRequest)
		assertJSONError(t, recorder, "reg_no required")
	}
}

func TestStudentsHandler_Photo(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "S001", "Ava", "CS", red)
	h := NewStudentsHandler(env.svc)

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/students/photo/S001.png", nil),
		map[string]string{"filename": "S001.png"})
	h.Photo(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "image/png")
	if !bytes.Equal(recorder.Body.Bytes(), fake.Face(red)) {
		t.Error("photo bytes differ from the uploaded photo")
	}

	for _, name := range []string{"S002.png", "..", "S001.exe"} {
		recorder := httptest.NewRecorder()
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/students/photo/x", nil),
			map[string]string{"filename": name})
		h.Photo(recorder, req)
		assertStatusCode(t, recorder, http.StatusNotFound)
	}
}
