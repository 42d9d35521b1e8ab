package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/agrodata/plantio/internal/dataset"
	"github.com/agrodata/plantio/internal/monitoring"
)

// Supported model kinds.
const (
	ModelLinear       = "linear"
	ModelRandomForest = "random_forest"
)

var (
	// ErrUnknownTarget is returned when the requested target column does
	// not exist or is not numeric.
	ErrUnknownTarget = errors.New("unknown or non-numeric target column")

	// ErrInsufficientData is returned when too few labeled rows exist to
	// fit a model.
	ErrInsufficientData = errors.New("not enough labeled rows to train")

	// ErrUnknownModel is returned for an unrecognized model kind.
	ErrUnknownModel = errors.New("unknown model type")
)

// Metrics reports holdout performance of a training run.
type Metrics struct {
	R2        float64 `json:"r2"`
	MAE       float64 `json:"mae"`
	NTrain    int     `json:"n_train"`
	NTest     int     `json:"n_test"`
	ModelKind string  `json:"model_type"`
	Target    string  `json:"target"`
}

// TrainOptions parameterizes one training run. Zero values fall back to the
// service defaults supplied by the caller's config.
type TrainOptions struct {
	Target       string
	ModelKind    string
	TestFraction float64
	Seed         int64
	ForestTrees  int
	MinLabeled   int

	// Progress receives coarse percentage milestones during the run.
	// When nil, milestones go to the monitoring logger.
	Progress func(pct int, msg string)
}

// Trainer fits models from a normalized table and persists the winner.
type Trainer struct {
	Store ArtifactStore
}

// Train fits a model on the labeled subset of t, evaluates it on a held-out
// partition, and stores the resulting artifact as the latest model.
func (tr *Trainer) Train(t *dataset.Table, opts TrainOptions) (*Artifact, *Metrics, error) {
	progress := opts.Progress
	if progress == nil {
		progress = func(pct int, msg string) {
			monitoring.Logf("train %3d%% %s", pct, msg)
		}
	}
	if opts.TestFraction <= 0 || opts.TestFraction >= 1 {
		opts.TestFraction = 0.2
	}
	if opts.ModelKind == "" {
		opts.ModelKind = ModelRandomForest
	}
	if opts.MinLabeled <= 0 {
		opts.MinLabeled = 20
	}
	if opts.ModelKind != ModelLinear && opts.ModelKind != ModelRandomForest {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownModel, opts.ModelKind)
	}

	progress(0, "starting")

	if !t.HasColumn(opts.Target) || !t.IsNumericColumn(opts.Target) {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownTarget, opts.Target)
	}
	progress(5, "dataset loaded")

	// Only rows with a usable target value participate.
	var labeled []dataset.Row
	var targets []float64
	for _, row := range t.Rows {
		if f, ok := dataset.AsFloat(row[opts.Target]); ok {
			labeled = append(labeled, row)
			targets = append(targets, f)
		}
	}
	if len(labeled) < opts.MinLabeled {
		return nil, nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(labeled), opts.MinLabeled)
	}
	progress(15, fmt.Sprintf("%d labeled rows prepared", len(labeled)))

	numeric, categorical := featureColumns(t, opts.Target)
	if len(numeric)+len(categorical) == 0 {
		return nil, nil, fmt.Errorf("%w: no feature columns besides %q", ErrInsufficientData, opts.Target)
	}

	// Deterministic shuffle split: the seed fixes the permutation, the
	// first ceil(n*fraction) indices form the test partition.
	n := len(labeled)
	nTest := int(math.Ceil(float64(n) * opts.TestFraction))
	if nTest >= n {
		nTest = n - 1
	}
	perm := rand.New(rand.NewSource(opts.Seed)).Perm(n)

	trainRows := make([]dataset.Row, 0, n-nTest)
	trainY := make([]float64, 0, n-nTest)
	testRows := make([]dataset.Row, 0, nTest)
	testY := make([]float64, 0, nTest)
	for i, p := range perm {
		if i < nTest {
			testRows = append(testRows, labeled[p])
			testY = append(testY, targets[p])
		} else {
			trainRows = append(trainRows, labeled[p])
			trainY = append(trainY, targets[p])
		}
	}
	progress(25, fmt.Sprintf("split %d train / %d test", len(trainRows), len(testRows)))

	pre := FitPreprocessor(trainRows, numeric, categorical)
	progress(35, "preprocessor fitted")

	var model Estimator
	switch opts.ModelKind {
	case ModelLinear:
		model = NewLinearRegression()
	case ModelRandomForest:
		trees := opts.ForestTrees
		if trees <= 0 {
			trees = 50
		}
		model = NewRandomForest(trees, opts.Seed)
	}
	progress(45, fmt.Sprintf("fitting %s model", opts.ModelKind))

	X := pre.Transform(trainRows)
	if err := model.Fit(X, trainY); err != nil {
		return nil, nil, err
	}
	progress(60, "model fitted")

	var absErr float64
	pred := make([]float64, len(testRows))
	for i, row := range testRows {
		pred[i] = model.Predict(pre.TransformRow(row))
		absErr += math.Abs(pred[i] - testY[i])
	}
	metrics := &Metrics{
		R2:        stat.RSquaredFrom(pred, testY, nil),
		MAE:       absErr / float64(len(testRows)),
		NTrain:    len(trainRows),
		NTest:     len(testRows),
		ModelKind: opts.ModelKind,
		Target:    opts.Target,
	}
	progress(85, fmt.Sprintf("evaluated r2=%.4f mae=%.4f", metrics.R2, metrics.MAE))

	artifact := &Artifact{
		ID:              uuid.NewString(),
		Target:          opts.Target,
		ModelKind:       opts.ModelKind,
		NumericCols:     numeric,
		CategoricalCols: categorical,
		Pre:             pre,
		Model:           model,
		TrainedAtUnix:   time.Now().Unix(),
	}
	if tr.Store != nil {
		if err := tr.Store.Put(artifact); err != nil {
			return nil, nil, fmt.Errorf("persist model: %w", err)
		}
	}
	progress(92, "artifact persisted")
	progress(100, "done")

	return artifact, metrics, nil
}

// featureColumns partitions the table's non-target columns into numeric and
// categorical feature sets.
func featureColumns(t *dataset.Table, target string) (numeric, categorical []string) {
	for _, col := range t.Columns {
		if col == target {
			continue
		}
		if t.IsNumericColumn(col) {
			numeric = append(numeric, col)
		} else {
			categorical = append(categorical, col)
		}
	}
	return numeric, categorical
}
