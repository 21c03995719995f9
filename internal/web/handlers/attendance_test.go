package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/kozaktomas/face-attendance/internal/store/mock"
)

func testRouter(rosterSrc roster.Source, ledgerStore ledger.Store) *chi.Mux {
	h := NewAttendanceHandler(rosterSrc, ledgerStore, "")
	r := chi.NewRouter()
	r.Get("/api/v1/health", HealthCheck)
	r.Get("/api/v1/roster", h.Roster)
	r.Get("/api/v1/attendance/{date}", h.Attendance)
	r.Get("/api/v1/report/{date}", h.Report)
	return r
}

func embedding16() []float32 {
	v := make([]float32, 16)
	v[0] = 1
	return v
}

func TestHealthCheck(t *testing.T) {
	r := testRouter(&mock.RosterSource{}, mock.NewLedgerStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestRoster(t *testing.T) {
	src := &mock.RosterSource{Records: []roster.Record{
		{ID: "1", DisplayName: "Alice", Embedding: embedding16()},
		{ID: "2", DisplayName: "Bob"},
	}}
	r := testRouter(src, mock.NewLedgerStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/roster", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var entries []RosterEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if !entries[0].HasEmbedding || entries[1].HasEmbedding {
		t.Errorf("has_embedding flags wrong: %+v", entries)
	}
}

func TestRoster_StoreError(t *testing.T) {
	src := &mock.RosterSource{ListError: context.DeadlineExceeded}
	r := testRouter(src, mock.NewLedgerStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/roster", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestAttendance(t *testing.T) {
	store := mock.NewLedgerStore()
	store.Seed("2026-09-01", []ledger.Entry{
		{ID: "1", DisplayName: "Alice", Timestamp: time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC)},
	})
	r := testRouter(&mock.RosterSource{}, store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/2026-09-01", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp AttendanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Date != "2026-09-01" || resp.Count != 1 {
		t.Errorf("response = %+v, want date 2026-09-01 count 1", resp)
	}
}

func TestAttendance_EmptyDayReturnsEmptyList(t *testing.T) {
	r := testRouter(&mock.RosterSource{}, mock.NewLedgerStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/2026-09-01", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp AttendanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Entries == nil || len(resp.Entries) != 0 {
		t.Errorf("entries = %v, want empty list, not null", resp.Entries)
	}
}

func TestAttendance_InvalidDate(t *testing.T) {
	r := testRouter(&mock.RosterSource{}, mock.NewLedgerStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/not-a-date", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestReport(t *testing.T) {
	src := &mock.RosterSource{Records: []roster.Record{
		{ID: "1", DisplayName: "Alice", Embedding: embedding16()},
		{ID: "2", DisplayName: "Bob", Embedding: embedding16()},
	}}
	store := mock.NewLedgerStore()
	store.Seed("2026-09-01", []ledger.Entry{
		{ID: "2", DisplayName: "Bob", Timestamp: time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC)},
	})
	r := testRouter(src, store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/report/2026-09-01", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp ReportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(resp.Present) != 1 || resp.Present[0].ID != "2" {
		t.Errorf("present = %v, want [2]", resp.Present)
	}
	if len(resp.Absent) != 1 || resp.Absent[0].ID != "1" {
		t.Errorf("absent = %v, want [1]", resp.Absent)
	}
}
