package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics handler returned %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.Mark("success")
	m.Mark("success")
	m.Mark("unknown")
	m.Register("ok")
	m.Delete()
	m.SetIndexEntries(7)

	out := scrape(t, m)
	for _, want := range []string{
		`attendance_mark_total{status="success"} 2`,
		`attendance_mark_total{status="unknown"} 1`,
		`attendance_register_total{result="ok"} 1`,
		`attendance_delete_total 1`,
		`attendance_index_entries 7`,
		`go_goroutines`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Mark("success")
	m.Register("ok")
	m.Delete()
	m.SetIndexEntries(1)
}
