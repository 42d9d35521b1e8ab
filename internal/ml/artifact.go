package ml

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"

	"github.com/agrodata/plantio/internal/db"
)

func init() {
	gob.Register(&LinearRegression{})
	gob.Register(&RandomForest{})
}

// Artifact bundles everything needed to serve predictions: the fitted
// preprocessor, the fitted estimator, and the column lists that map raw
// records onto the encoded feature space.
type Artifact struct {
	ID              string
	Target          string
	ModelKind       string
	NumericCols     []string
	CategoricalCols []string
	Pre             *Preprocessor
	Model           Estimator
	TrainedAtUnix   int64
}

// EncodeArtifact serializes an artifact with gob and compresses it with gzip
// for blob storage.
func EncodeArtifact(a *Artifact) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(zw).Encode(a); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeArtifact reverses EncodeArtifact.
func DecodeArtifact(blob []byte) (*Artifact, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decompress artifact: %w", err)
	}
	defer zr.Close()

	var a Artifact
	if err := gob.NewDecoder(zr).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &a, nil
}

// ArtifactStore persists and retrieves the single latest trained artifact.
type ArtifactStore interface {
	Put(a *Artifact) error
	Latest() (*Artifact, error)
}

// SQLStore keeps the latest artifact as a compressed blob in sqlite.
type SQLStore struct {
	DB *db.DB
}

func (s *SQLStore) Put(a *Artifact) error {
	blob, err := EncodeArtifact(a)
	if err != nil {
		return err
	}
	return s.DB.PutModelBlob(&db.ModelBlob{
		ArtifactID: a.ID,
		Target:     a.Target,
		ModelKind:  a.ModelKind,
		Blob:       blob,
	})
}

func (s *SQLStore) Latest() (*Artifact, error) {
	m, err := s.DB.LatestModelBlob()
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	return DecodeArtifact(m.Blob)
}

// MemoryStore is an in-process ArtifactStore used by tests.
type MemoryStore struct {
	artifact *Artifact
}

func (s *MemoryStore) Put(a *Artifact) error {
	s.artifact = a
	return nil
}

func (s *MemoryStore) Latest() (*Artifact, error) {
	return s.artifact, nil
}
