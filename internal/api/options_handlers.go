package api

import (
	"fmt"
	"net/http"

	"github.com/agrodata/plantio/internal/analytics"
)

// handleCropOptions returns the distinct crop values in the stored dataset.
func (s *Server) handleCropOptions(w http.ResponseWriter, r *http.Request) {
	s.handleOptions(w, r, "crop", "crops")
}

// handleSeasonOptions returns the distinct season values in the stored
// dataset.
func (s *Server) handleSeasonOptions(w http.ResponseWriter, r *http.Request) {
	s.handleOptions(w, r, "season", "seasons")
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request, column, key string) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	values, err := s.db.DistinctValues(s.cfg.GetTableName(), column)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list %s: %v", key, err))
		return
	}
	if values == nil {
		values = []string{}
	}
	s.writeJSON(w, map[string]any{key: values})
}

// handleProductionChart serves an interactive production-by-year chart for
// the requested crop. Debugging aid; the PNG chart set is the API contract.
func (s *Server) handleProductionChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	crop := r.URL.Query().Get("crop")
	if crop == "" {
		crop = s.cfg.GetChartCrop()
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

	years, totals, matched := s.charts.AggregateProduction(table, crop)
	if len(years) == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "dataset has no usable year/production columns")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := analytics.RenderProductionHTML(w, matched, years, totals); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
	}
}
