package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Default training hyperparameters.
const (
	defaultIterations   = 400
	defaultLearningRate = 0.15
	defaultTestFraction = 0.2
	defaultSeed         = 42
)

// Dataset is a labeled feature matrix with its contract.
type Dataset struct {
	Names         []string
	SchemaVersion int
	Window        int
	X             [][]float64
	Y             []bool
}

// Report summarizes a training run.
type Report struct {
	TrainRows int
	TestRows  int
	Positives int
	// AUC is the hold-out ROC AUC; 0.5 when the hold-out set has a single class.
	AUC float64
}

// TrainOption configures Train.
type TrainOption func(*trainer)

// WithIterations sets the number of gradient descent epochs.
func WithIterations(n int) TrainOption {
	return func(t *trainer) {
		if n > 0 {
			t.iterations = n
		}
	}
}

// WithLearningRate sets the gradient step size.
func WithLearningRate(lr float64) TrainOption {
	return func(t *trainer) {
		if lr > 0 {
			t.learningRate = lr
		}
	}
}

// WithTestFraction sets the hold-out share, in (0,1).
func WithTestFraction(f float64) TrainOption {
	return func(t *trainer) {
		if f > 0 && f < 1 {
			t.testFraction = f
		}
	}
}

// WithSeed sets the split seed.
func WithSeed(seed int64) TrainOption {
	return func(t *trainer) {
		t.seed = seed
	}
}

// WithClock overrides the artifact timestamp source.
func WithClock(now func() time.Time) TrainOption {
	return func(t *trainer) {
		if now != nil {
			t.now = now
		}
	}
}

type trainer struct {
	iterations   int
	learningRate float64
	testFraction float64
	seed         int64
	now          func() time.Time
}

// Train fits a logistic regression on a seeded train/test split of ds and
// scores it on the hold-out rows.
func Train(ctx context.Context, ds Dataset, opts ...TrainOption) (*Logistic, Report, error) {
	t := &trainer{
		iterations:   defaultIterations,
		learningRate: defaultLearningRate,
		testFraction: defaultTestFraction,
		seed:         defaultSeed,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	d := len(ds.Names)
	if len(ds.X) != len(ds.Y) {
		return nil, Report{}, fmt.Errorf("%w: %d rows but %d labels", ErrShape, len(ds.X), len(ds.Y))
	}
	for i, row := range ds.X {
		if len(row) != d {
			return nil, Report{}, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrShape, i, len(row), d)
		}
	}

	train, test := t.split(len(ds.X))
	if len(train) < 2 || len(test) < 1 {
		return nil, Report{}, fmt.Errorf("%w: %d rows", ErrNotEnoughData, len(ds.X))
	}
	pos := 0
	for _, i := range train {
		if ds.Y[i] {
			pos++
		}
	}
	if pos == 0 || pos == len(train) {
		return nil, Report{}, fmt.Errorf("%w: training split has a single class", ErrNotEnoughData)
	}

	m := &Logistic{
		Names:         append([]string(nil), ds.Names...),
		SchemaVersion: ds.SchemaVersion,
		Window:        ds.Window,
		Weights:       make([]float64, d),
		Mean:          make([]float64, d),
		Scale:         make([]float64, d),
		TrainRows:     len(train),
		TestRows:      len(test),
	}
	fitScaler(m, ds.X, train)

	// standardized training matrix and 0/1 labels.
	xs := make([][]float64, len(train))
	ys := make([]float64, len(train))
	for k, i := range train {
		xs[k] = make([]float64, d)
		m.standardize(xs[k], ds.X[i])
		if ds.Y[i] {
			ys[k] = 1
		}
	}

	grad := make([]float64, d)
	row := make([]float64, d)
	n := float64(len(xs))
	for it := 0; it < t.iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, Report{}, err
		}
		for j := range grad {
			grad[j] = 0
		}
		var gradBias float64
		for k, x := range xs {
			diff := sigmoid(floats.Dot(m.Weights, x)+m.Bias) - ys[k]
			copy(row, x)
			floats.Scale(diff, row)
			floats.Add(grad, row)
			gradBias += diff
		}
		floats.AddScaled(m.Weights, -t.learningRate/n, grad)
		m.Bias -= t.learningRate * gradBias / n
	}

	testX := make([][]float64, len(test))
	testY := make([]bool, len(test))
	for k, i := range test {
		testX[k] = ds.X[i]
		testY[k] = ds.Y[i]
	}
	probs, err := m.PredictProba(testX)
	if err != nil {
		return nil, Report{}, err
	}
	m.AUC = AUC(probs, testY)
	m.TrainedAt = t.now().UTC()

	return m, Report{TrainRows: len(train), TestRows: len(test), Positives: pos, AUC: m.AUC}, nil
}

// split returns shuffled train and test row indices. The same seed and n
// always produce the same split.
func (t *trainer) split(n int) (train, test []int) {
	perm := rand.New(rand.NewSource(t.seed)).Perm(n) //nolint:gosec // reproducible split, not security
	nTest := int(math.Ceil(t.testFraction * float64(n)))
	if nTest >= n {
		nTest = n - 1
	}
	if nTest < 0 {
		nTest = 0
	}
	return perm[nTest:], perm[:nTest]
}

func fitScaler(m *Logistic, x [][]float64, rows []int) {
	col := make([]float64, len(rows))
	for j := range m.Mean {
		for k, i := range rows {
			col[k] = x[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		m.Mean[j] = mean
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		m.Scale[j] = std
	}
}

// AUC returns the ROC area under curve of scores against labels, or 0.5 when
// labels hold a single class.
func AUC(scores []float64, labels []bool) float64 {
	var pos int
	for _, l := range labels {
		if l {
			pos++
		}
	}
	if pos == 0 || pos == len(labels) {
		return 0.5
	}
	y := append([]float64(nil), scores...)
	classes := append([]bool(nil), labels...)
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}
