// Package ml implements the training and prediction pipeline: a numeric/
// categorical preprocessing transform, two regression estimators, and the
// persisted "latest model" artifact consumed by the predictor.
package ml

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/agrodata/plantio/internal/dataset"
)

// Preprocessor is the fitted feature transform: numeric columns are scaled
// by their training standard deviation (no mean centering, mirroring the
// behaviour needed for sparse-friendly scaling), categorical columns are
// one-hot encoded. Categories never seen during training encode to all
// zeros rather than failing. All fields are exported for gob serialization.
type Preprocessor struct {
	NumericCols     []string
	CategoricalCols []string

	// Scales holds one divisor per numeric column (1 when the column has
	// zero variance).
	Scales []float64

	// Categories holds the sorted training vocabulary per categorical
	// column.
	Categories [][]string
}

// FitPreprocessor learns scaling factors and categorical vocabularies from
// the given rows.
func FitPreprocessor(rows []dataset.Row, numeric, categorical []string) *Preprocessor {
	p := &Preprocessor{
		NumericCols:     append([]string(nil), numeric...),
		CategoricalCols: append([]string(nil), categorical...),
		Scales:          make([]float64, len(numeric)),
		Categories:      make([][]string, len(categorical)),
	}

	for i, col := range numeric {
		var vals []float64
		for _, row := range rows {
			if f, ok := dataset.AsFloat(row[col]); ok {
				vals = append(vals, f)
			}
		}
		scale := stat.StdDev(vals, nil)
		if len(vals) < 2 || scale == 0 || math.IsNaN(scale) {
			scale = 1
		}
		p.Scales[i] = scale
	}

	for i, col := range categorical {
		seen := make(map[string]bool)
		for _, row := range rows {
			s, ok := dataset.AsString(row[col])
			if !ok {
				continue
			}
			seen[s] = true
		}
		cats := make([]string, 0, len(seen))
		for s := range seen {
			cats = append(cats, s)
		}
		sort.Strings(cats)
		p.Categories[i] = cats
	}

	return p
}

// Width returns the length of the encoded feature vector.
func (p *Preprocessor) Width() int {
	w := len(p.NumericCols)
	for _, cats := range p.Categories {
		w += len(cats)
	}
	return w
}

// TransformRow encodes one record. Missing numeric cells encode as zero;
// missing or unknown categorical values produce an all-zero block.
func (p *Preprocessor) TransformRow(row dataset.Row) []float64 {
	out := make([]float64, 0, p.Width())
	for i, col := range p.NumericCols {
		f, ok := dataset.AsFloat(row[col])
		if !ok {
			f = 0
		}
		out = append(out, f/p.Scales[i])
	}
	for i, col := range p.CategoricalCols {
		block := make([]float64, len(p.Categories[i]))
		if s, ok := dataset.AsString(row[col]); ok {
			if idx := sort.SearchStrings(p.Categories[i], s); idx < len(p.Categories[i]) && p.Categories[i][idx] == s {
				block[idx] = 1
			}
		}
		out = append(out, block...)
	}
	return out
}

// Transform encodes a batch of rows into a dense feature matrix.
func (p *Preprocessor) Transform(rows []dataset.Row) *mat.Dense {
	w := p.Width()
	X := mat.NewDense(len(rows), w, nil)
	for i, row := range rows {
		X.SetRow(i, p.TransformRow(row))
	}
	return X
}
