// Package classifier defines the goal-probability model contract and its
// logistic regression implementation.
package classifier

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Model predicts the probability that each row's player scores.
type Model interface {
	// FeatureNames is the ordered feature contract the model was fit on.
	FeatureNames() []string
	// PredictProba returns one probability per row of x.
	PredictProba(x [][]float64) ([]float64, error)
}

// Logistic is a standardized logistic regression and its persisted artifact.
type Logistic struct {
	Names         []string  `json:"feature_names"`
	SchemaVersion int       `json:"schema_version"`
	Window        int       `json:"window"`
	Weights       []float64 `json:"weights"`
	Bias          float64   `json:"bias"`
	Mean          []float64 `json:"mean"`
	Scale         []float64 `json:"scale"`
	AUC           float64   `json:"auc"`
	TrainRows     int       `json:"train_rows"`
	TestRows      int       `json:"test_rows"`
	TrainedAt     time.Time `json:"trained_at"`
}

var _ Model = (*Logistic)(nil)

// FeatureNames implements Model.
func (m *Logistic) FeatureNames() []string { return slices.Clone(m.Names) }

// PredictProba implements Model.
func (m *Logistic) PredictProba(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	buf := make([]float64, len(m.Weights))
	for i, row := range x {
		if len(row) != len(m.Weights) {
			return nil, fmt.Errorf("%w: row %d has %d columns, model expects %d", ErrShape, i, len(row), len(m.Weights))
		}
		m.standardize(buf, row)
		out[i] = sigmoid(floats.Dot(m.Weights, buf) + m.Bias)
	}
	return out, nil
}

func (m *Logistic) standardize(dst, row []float64) {
	for j, v := range row {
		dst[j] = (v - m.Mean[j]) / m.Scale[j]
	}
}

// Validate checks the artifact is internally consistent.
func (m *Logistic) Validate() error {
	n := len(m.Names)
	switch {
	case n == 0:
		return fmt.Errorf("%w: no feature names", ErrInvalidArtifact)
	case len(m.Weights) != n, len(m.Mean) != n, len(m.Scale) != n:
		return fmt.Errorf("%w: %d names but %d weights, %d means, %d scales",
			ErrInvalidArtifact, n, len(m.Weights), len(m.Mean), len(m.Scale))
	}
	for j, s := range m.Scale {
		if s == 0 || math.IsNaN(s) {
			return fmt.Errorf("%w: zero scale for %s", ErrInvalidArtifact, m.Names[j])
		}
	}
	return nil
}

// Encode writes the artifact as JSON.
func (m *Logistic) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// Decode reads and validates a JSON artifact.
func Decode(r io.Reader) (*Logistic, error) {
	var m Logistic
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func sigmoid(z float64) float64 {
	// clamp keeps exp finite.
	if z > 30 {
		z = 30
	} else if z < -30 {
		z = -30
	}
	return 1 / (1 + math.Exp(-z))
}
