package api

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/agrodata/plantio/internal/analytics"
	"github.com/agrodata/plantio/internal/dataset"
)

// analysisPayload renders the chart set and summary for a table, with chart
// bytes base64-encoded for JSON transport.
func (s *Server) analysisPayload(t *dataset.Table) (map[string]string, *analytics.Summary) {
	images := make(map[string]string)
	for name, png := range s.charts.RenderAll(t) {
		images[name] = base64.StdEncoding.EncodeToString(png)
	}
	return images, analytics.BuildSummary(t)
}

// handleUpload ingests a delimited text file, normalizes it, and replaces
// the stored dataset generation.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "missing 'file' form field")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("expected a .csv file, got %q", header.Filename))
		return
	}

	table, err := dataset.ReadCSV(file)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("could not parse file: %v", err))
		return
	}

	normalized := dataset.Normalize(table)
	saved, err := s.db.SaveTable(normalized, s.cfg.GetTableName())
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store dataset: %v", err))
		return
	}

	images, summary := s.analysisPayload(normalized)
	s.writeJSON(w, map[string]any{
		"rows_saved": saved,
		"images":     images,
		"summary":    summary,
	})
}

// handleAnalyze recomputes charts and summary over the stored dataset.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	table, err := s.db.LoadTable(s.cfg.GetTableName())
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load dataset: %v", err))
		return
	}
	if table.Empty() {
		s.writeJSONError(w, http.StatusBadRequest, "no dataset stored; upload a file first")
		return
	}

	images, summary := s.analysisPayload(table)
	s.writeJSON(w, map[string]any{
		"images":  images,
		"summary": summary,
	})
}
