package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/agrodata/plantio/internal/ml"
)

type trainRequest struct {
	Target      string   `json:"target"`
	TestSize    *float64 `json:"test_size"`
	RandomState *int64   `json:"random_state"`
	ModelType   string   `json:"model_type"`
}

// handleTrain fits a new model over the stored dataset and replaces the
// latest artifact. Serves both the train and retrain routes.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req trainRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
			return
		}
	}

	opts := ml.TrainOptions{
		Target:       s.cfg.GetDefaultTarget(),
		ModelKind:    ml.ModelRandomForest,
		TestFraction: s.cfg.GetDefaultTestSize(),
		Seed:         s.cfg.GetDefaultSeed(),
		ForestTrees:  s.cfg.GetForestTrees(),
		MinLabeled:   s.cfg.GetMinLabeledRows(),
	}
	if req.Target != "" {
		opts.Target = req.Target
	}
	if req.ModelType != "" {
		opts.ModelKind = req.ModelType
	}
	if req.TestSize != nil {
		if *req.TestSize <= 0 || *req.TestSize >= 1 {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("test_size must be in (0,1), got %v", *req.TestSize))
			return
		}
		opts.TestFraction = *req.TestSize
	}
	if req.RandomState != nil {
		opts.Seed = *req.RandomState
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

	artifact, metrics, err := s.trainer.Train(table, opts)
	switch {
	case err == nil:
	case errors.Is(err, ml.ErrInsufficientData),
		errors.Is(err, ml.ErrUnknownTarget),
		errors.Is(err, ml.ErrUnknownModel):
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	default:
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("training failed: %v", err))
		return
	}

	s.writeJSON(w, map[string]any{
		"model_id": artifact.ID,
		"metrics":  metrics,
	})
}
