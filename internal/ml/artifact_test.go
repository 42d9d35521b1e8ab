package ml

import (
	"testing"

	"github.com/agrodata/plantio/internal/dataset"
)

func TestArtifactEncodeDecode(t *testing.T) {
	store := &MemoryStore{}
	tr := &Trainer{Store: store}
	opts := baseOptions()
	opts.ModelKind = ModelRandomForest
	opts.ForestTrees = 5

	artifact, _, err := tr.Train(makeYieldTable(30), opts)
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}

	blob, err := EncodeArtifact(artifact)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := DecodeArtifact(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded.ID != artifact.ID || decoded.Target != artifact.Target ||
		decoded.ModelKind != artifact.ModelKind {
		t.Errorf("decoded identity = %q/%q/%q, want %q/%q/%q",
			decoded.ID, decoded.Target, decoded.ModelKind,
			artifact.ID, artifact.Target, artifact.ModelKind)
	}

	probe := dataset.Row{
		"id": int64(7), "crop": "milho", "year": int64(2019), "state": "PR",
		"season_macro": "Chuvosa", "area": 115.0, "rain_mm": 870.0,
	}
	before := artifact.Model.Predict(artifact.Pre.TransformRow(probe))
	after := decoded.Model.Predict(decoded.Pre.TransformRow(probe))
	if before != after {
		t.Errorf("round-tripped model predicts %v, original %v", after, before)
	}
}

func TestDecodeArtifactRejectsGarbage(t *testing.T) {
	if _, err := DecodeArtifact([]byte("not a gzip stream")); err == nil {
		t.Fatal("expected error for malformed blob")
	}
}
