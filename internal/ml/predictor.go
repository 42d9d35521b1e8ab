package ml

import (
	"errors"
	"fmt"
	"time"

	"github.com/agrodata/plantio/internal/dataset"
)

// ErrNoModel is returned when prediction is requested before any training
// run has completed.
var ErrNoModel = errors.New("no trained model available")

// YearPrediction is one point of a forecast sequence.
type YearPrediction struct {
	Year  int64   `json:"year"`
	Value float64 `json:"value"`
}

// Predictor serves point predictions and year forecasts from the latest
// persisted artifact.
type Predictor struct {
	Store ArtifactStore
}

// PredictOne encodes the record with the stored preprocessor and returns the
// model's point estimate. Categorical values unseen during training encode
// to zeros rather than failing.
func (p *Predictor) PredictOne(record dataset.Row) (float64, error) {
	a, err := p.load()
	if err != nil {
		return 0, err
	}
	return a.Model.Predict(a.Pre.TransformRow(record)), nil
}

// ForecastYears predicts the target for horizon consecutive years starting
// at the record's year, holding every other field constant. When the record
// carries no parseable year, the current calendar year is the base.
func (p *Predictor) ForecastYears(record dataset.Row, horizon int) ([]YearPrediction, error) {
	a, err := p.load()
	if err != nil {
		return nil, err
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("forecast horizon %d", horizon)
	}

	base, ok := dataset.AsInt(record["year"])
	if !ok {
		base = int64(time.Now().Year())
	}

	scratch := make(dataset.Row, len(record)+1)
	for k, v := range record {
		scratch[k] = v
	}

	out := make([]YearPrediction, horizon)
	for i := range out {
		year := base + int64(i)
		scratch["year"] = year
		out[i] = YearPrediction{
			Year:  year,
			Value: a.Model.Predict(a.Pre.TransformRow(scratch)),
		}
	}
	return out, nil
}

func (p *Predictor) load() (*Artifact, error) {
	a, err := p.Store.Latest()
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if a == nil {
		return nil, ErrNoModel
	}
	return a, nil
}
