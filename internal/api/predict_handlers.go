package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/agrodata/plantio/internal/analytics"
	"github.com/agrodata/plantio/internal/dataset"
	"github.com/agrodata/plantio/internal/ml"
)

type predictRequest struct {
	Record map[string]any `json:"record"`
}

// expectedDefaults are injected for fields the trained schema expects but
// callers routinely omit. A record predicted with these placeholders uses no
// real state or season information; the prediction still succeeds because
// unknown categories encode to zeros.
var expectedDefaults = dataset.Row{
	"id":           int64(0),
	"state":        "dummy",
	"season_macro": "dummy",
}

// handlePredict produces a point prediction plus a multi-year forecast from
// the latest trained model.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req predictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if req.Record == nil {
		s.writeJSONError(w, http.StatusBadRequest, "missing 'record' object")
		return
	}

	record := make(dataset.Row, len(req.Record)+len(expectedDefaults))
	for k, v := range req.Record {
		record[k] = v
	}
	for k, v := range expectedDefaults {
		if _, ok := record[k]; !ok {
			record[k] = v
		}
	}

	prediction, err := s.pred.PredictOne(record)
	if err != nil {
		s.predictError(w, err)
		return
	}

	forecast, err := s.pred.ForecastYears(record, s.cfg.GetForecastYears())
	if err != nil {
		s.predictError(w, err)
		return
	}

	years := make([]int64, len(forecast))
	values := make([]float64, len(forecast))
	for i, yp := range forecast {
		years[i] = yp.Year
		values[i] = yp.Value
	}

	s.writeJSON(w, map[string]any{
		"prediction": prediction,
		"forecast": map[string]any{
			"years":  years,
			"values": values,
		},
		"forecast_chart": base64.StdEncoding.EncodeToString(analytics.ForecastChart(years, values)),
	})
}

func (s *Server) predictError(w http.ResponseWriter, err error) {
	if errors.Is(err, ml.ErrNoModel) {
		s.writeJSONError(w, http.StatusBadRequest, "no trained model; train first")
		return
	}
	s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("prediction failed: %v", err))
}
