package classifier_test

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/goalcast/internal/domain/classifier"
	. "github.com/smartystreets/goconvey/convey"
)

// separable returns rows where the first column alone decides the label.
func separable(n int) classifier.Dataset {
	r := rand.New(rand.NewSource(7))
	ds := classifier.Dataset{Names: []string{"signal", "noise"}, SchemaVersion: 2, Window: 10}
	for i := 0; i < n; i++ {
		signal := r.Float64()
		ds.X = append(ds.X, []float64{signal * 4, r.Float64()})
		ds.Y = append(ds.Y, signal > 0.5)
	}
	return ds
}

func TestAUC(t *testing.T) {
	Convey("Given scores and labels", t, func() {
		So(classifier.AUC([]float64{0.1, 0.2, 0.8, 0.9}, []bool{false, false, true, true}), ShouldAlmostEqual, 1.0)
		So(classifier.AUC([]float64{0.9, 0.8, 0.2, 0.1}, []bool{false, false, true, true}), ShouldAlmostEqual, 0.0)
		So(classifier.AUC([]float64{0.1, 0.4, 0.35, 0.8}, []bool{false, false, true, true}), ShouldAlmostEqual, 0.75)
		So(classifier.AUC([]float64{0.3, 0.6}, []bool{true, true}), ShouldEqual, 0.5)
	})
}

func TestTrain(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given a separable dataset", t, func() {
		ds := separable(400)

		Convey("When training with the default split", func() {
			m, rep, err := classifier.Train(ctx, ds, classifier.WithClock(func() time.Time { return fixed }))
			So(err, ShouldBeNil)

			Convey("Then the split is 80/20 and the hold-out AUC is high", func() {
				So(rep.TrainRows, ShouldEqual, 320)
				So(rep.TestRows, ShouldEqual, 80)
				So(rep.AUC, ShouldBeGreaterThan, 0.95)
				So(m.AUC, ShouldEqual, rep.AUC)
				So(m.TrainedAt.Equal(fixed), ShouldBeTrue)
			})

			Convey("Then the artifact carries its feature contract", func() {
				So(m.FeatureNames(), ShouldResemble, []string{"signal", "noise"})
				So(m.SchemaVersion, ShouldEqual, 2)
				So(m.Window, ShouldEqual, 10)
			})

			Convey("Then probabilities follow the signal", func() {
				p, err := m.PredictProba([][]float64{{0.2, 0.5}, {3.8, 0.5}})
				So(err, ShouldBeNil)
				So(p[0], ShouldBeLessThan, 0.5)
				So(p[1], ShouldBeGreaterThan, 0.5)
			})

			Convey("Then a row of the wrong width is rejected", func() {
				_, err := m.PredictProba([][]float64{{1}})
				So(errors.Is(err, classifier.ErrShape), ShouldBeTrue)
			})

			Convey("Then training again with the same seed is identical", func() {
				again, _, err := classifier.Train(ctx, ds, classifier.WithClock(func() time.Time { return fixed }))
				So(err, ShouldBeNil)
				So(again.Weights, ShouldResemble, m.Weights)
				So(again.Bias, ShouldEqual, m.Bias)
			})

			Convey("Then the artifact round trips through JSON", func() {
				var buf bytes.Buffer
				So(m.Encode(&buf), ShouldBeNil)
				back, err := classifier.Decode(&buf)
				So(err, ShouldBeNil)
				So(back.FeatureNames(), ShouldResemble, m.FeatureNames())

				p1, _ := m.PredictProba([][]float64{{2, 0.1}})
				p2, _ := back.PredictProba([][]float64{{2, 0.1}})
				So(p2[0], ShouldAlmostEqual, p1[0])
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, _, err := classifier.Train(cctx, ds)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given a dataset with a single class", t, func() {
		ds := classifier.Dataset{Names: []string{"a"}}
		for i := 0; i < 20; i++ {
			ds.X = append(ds.X, []float64{float64(i)})
			ds.Y = append(ds.Y, false)
		}
		_, _, err := classifier.Train(ctx, ds)
		So(errors.Is(err, classifier.ErrNotEnoughData), ShouldBeTrue)
	})

	Convey("Given ragged rows", t, func() {
		ds := classifier.Dataset{Names: []string{"a", "b"}, X: [][]float64{{1, 2}, {1}}, Y: []bool{true, false}}
		_, _, err := classifier.Train(ctx, ds)
		So(errors.Is(err, classifier.ErrShape), ShouldBeTrue)
	})

	Convey("Given an inconsistent artifact", t, func() {
		_, err := classifier.Decode(bytes.NewBufferString(`{"feature_names":["a","b"],"weights":[1]}`))
		So(errors.Is(err, classifier.ErrInvalidArtifact), ShouldBeTrue)

		_, err = classifier.Decode(bytes.NewBufferString(`not json`))
		So(errors.Is(err, classifier.ErrInvalidArtifact), ShouldBeTrue)
	})
}
