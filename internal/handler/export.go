package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/pkordes/trucklog/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"journey_id", "status", "start_date", "start_time", "start_country", "start_km",
	"end_date", "end_time", "end_country", "end_km", "distance_km", "created_at",
	"event_kind", "event_time", "event_location", "event_note",
}

// ExportRow is one row of the JSON export. Empty strings are omitted.
type ExportRow struct {
	JourneyID     string               `json:"journey_id"`
	Status        domain.JourneyStatus `json:"status"`
	StartDate     string               `json:"start_date"`
	StartTime     string               `json:"start_time"`
	StartCountry  string               `json:"start_country"`
	StartKm       float64              `json:"start_km"`
	EndDate       string               `json:"end_date,omitempty"`
	EndTime       string               `json:"end_time,omitempty"`
	EndCountry    string               `json:"end_country,omitempty"`
	EndKm         *float64             `json:"end_km,omitempty"`
	DistanceKm    float64              `json:"distance_km"`
	CreatedAt     time.Time            `json:"created_at"`
	EventKind     domain.EventKind     `json:"event_kind,omitempty"`
	EventTime     string               `json:"event_time,omitempty"`
	EventLocation string               `json:"event_location,omitempty"`
	EventNote     string               `json:"event_note,omitempty"`
}

// GetExport handles GET /export.
// It returns a flat table with one row per event across every journey.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format != "" && format != "csv" && format != "json" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("format must be csv or json"))
		return
	}

	rows, err := s.export.Export(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	if format == "csv" {
		writeCSV(w, rows)
		return
	}
	out := make([]ExportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, ExportRow(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// writeCSV encodes rows as CSV with a header line.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	// bytes.Buffer writes never fail.
	_ = cw.Write(csvHeaders)
	for _, r := range rows {
		_ = cw.Write(rowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="journeys.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// rowToCSVRecord encodes a domain.ExportRow as a flat string slice.
// A nil end odometer is encoded as an empty string.
func rowToCSVRecord(r domain.ExportRow) []string {
	endKm := ""
	if r.EndKm != nil {
		endKm = formatKm(*r.EndKm)
	}
	return []string{
		r.JourneyID,
		string(r.Status),
		r.StartDate,
		r.StartTime,
		r.StartCountry,
		formatKm(r.StartKm),
		r.EndDate,
		r.EndTime,
		r.EndCountry,
		endKm,
		formatKm(r.DistanceKm),
		r.CreatedAt.UTC().Format(time.RFC3339),
		string(r.EventKind),
		r.EventTime,
		r.EventLocation,
		r.EventNote,
	}
}

func formatKm(km float64) string {
	return strconv.FormatFloat(km, 'f', -1, 64)
}
