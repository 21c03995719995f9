package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/report"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// AttendanceHandler serves roster and ledger reads.
type AttendanceHandler struct {
	rosterSrc   roster.Source
	ledgerStore ledger.Store
	dateFormat  string
}

// NewAttendanceHandler creates the handler over the given stores.
func NewAttendanceHandler(rosterSrc roster.Source, ledgerStore ledger.Store, dateFormat string) *AttendanceHandler {
	if dateFormat == "" {
		dateFormat = ledger.DefaultDateFormat
	}
	return &AttendanceHandler{rosterSrc: rosterSrc, ledgerStore: ledgerStore, dateFormat: dateFormat}
}

// RosterEntry is one identity in the roster listing.
type RosterEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	HasEmbedding bool   `json:"has_embedding"`
}

// Roster handles GET /api/v1/roster.
func (h *AttendanceHandler) Roster(w http.ResponseWriter, r *http.Request) {
	records, err := h.rosterSrc.ListRecords(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list roster")
		return
	}

	out := make([]RosterEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, RosterEntry{
			ID:           rec.ID,
			Name:         rec.DisplayName,
			HasEmbedding: len(rec.Embedding) >= roster.MinEmbeddingLength,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// AttendanceResponse lists the ledger entries for one date.
type AttendanceResponse struct {
	Date    string         `json:"date"`
	Count   int            `json:"count"`
	Entries []ledger.Entry `json:"entries"`
}

// Attendance handles GET /api/v1/attendance/{date}.
func (h *AttendanceHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	dateKey, ok := h.parseDate(w, r)
	if !ok {
		return
	}

	entries, err := h.ledgerStore.LoadEntries(r.Context(), dateKey)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load attendance")
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	respondJSON(w, http.StatusOK, AttendanceResponse{Date: dateKey, Count: len(entries), Entries: entries})
}

// ReportResponse is the present/absent report for one date.
type ReportResponse struct {
	Date    string          `json:"date"`
	Present []report.Person `json:"present"`
	Absent  []report.Person `json:"absent"`
}

// Report handles GET /api/v1/report/{date}.
func (h *AttendanceHandler) Report(w http.ResponseWriter, r *http.Request) {
	dateKey, ok := h.parseDate(w, r)
	if !ok {
		return
	}

	records, err := h.rosterSrc.ListRecords(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list roster")
		return
	}

	led, err := ledger.Open(r.Context(), h.ledgerStore, dateKey)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load attendance")
		return
	}

	people := report.FromRecords(records)
	snap := led.Snapshot()
	respondJSON(w, http.StatusOK, ReportResponse{
		Date:    dateKey,
		Present: report.Present(people, snap),
		Absent:  report.Absent(people, snap),
	})
}

// parseDate validates the {date} URL parameter against the configured
// date key format.
func (h *AttendanceHandler) parseDate(w http.ResponseWriter, r *http.Request) (string, bool) {
	dateKey := chi.URLParam(r, "date")
	if _, err := time.Parse(h.dateFormat, dateKey); err != nil {
		respondError(w, http.StatusBadRequest, "invalid date")
		return "", false
	}
	return dateKey, true
}
