package ops

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mvidal/repobot/internal/fsx"
	"github.com/mvidal/repobot/internal/session"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	base := t.TempDir()
	log := logrus.New()
	log.SetOutput(io.Discard)
	guard := fsx.NewGuard(base)
	return NewHandler(session.NewSearchCache(), session.NewTracker(), fsx.NewExplorer(guard, base+"/temp"), log)
}

func TestHandler_Health(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Health: code %d", rec.Code)
	}
	if body := rec.Body.String(); body != "ok" {
		t.Errorf("Health: body %q", body)
	}
}

func TestHandler_Stats(t *testing.T) {
	h := newTestHandler(t)
	h.tracker.Set(1, session.KindMkdir, nil)
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Stats: code %d body %s", rec.Code, rec.Body.String())
	}
	var res StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("Stats: decode %v", err)
	}
	if res.PendingOps != 1 {
		t.Errorf("Stats: pendingOps %d", res.PendingOps)
	}
	if res.SearchSessions != 0 {
		t.Errorf("Stats: searchSessions %d", res.SearchSessions)
	}
}

func TestRouter_authGuardsStatsNotHealth(t *testing.T) {
	h := newTestHandler(t)
	router := NewRouter(h, BasicAuth("admin", "secret"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health without auth: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /stats without auth: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /stats with auth: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /stats with bad password: %d", rec.Code)
	}
}

func TestRouter_noAuth(t *testing.T) {
	h := newTestHandler(t)
	router := NewRouter(h, nil)
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /stats without middleware: %d", rec.Code)
	}
}
