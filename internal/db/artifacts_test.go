package db

import (
	"bytes"
	"testing"
)

func TestLatestModelBlobEmpty(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	m, err := db.LatestModelBlob()
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil artifact before any training, got %+v", m)
	}
}

func TestPutModelBlobKeepsSingleLatest(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	first := &ModelBlob{ArtifactID: "a1", Target: "yield_kg_ha", ModelKind: "linear", Blob: []byte("one")}
	if err := db.PutModelBlob(first); err != nil {
		t.Fatalf("first put failed: %v", err)
	}
	second := &ModelBlob{ArtifactID: "a2", Target: "yield_kg_ha", ModelKind: "random_forest", Blob: []byte("two")}
	if err := db.PutModelBlob(second); err != nil {
		t.Fatalf("second put failed: %v", err)
	}

	m, err := db.LatestModelBlob()
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if m == nil || m.ArtifactID != "a2" || m.ModelKind != "random_forest" {
		t.Fatalf("latest = %+v, want artifact a2", m)
	}
	if !bytes.Equal(m.Blob, []byte("two")) {
		t.Errorf("blob = %q, want two", m.Blob)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM model_artifacts`).Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("artifact rows = %d, want exactly 1", n)
	}
}
