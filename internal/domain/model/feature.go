package model

// FeatureRow is one Observation extended with its label, resolved opponent and
// feature values. Values is ordered by the feature schema that produced it.
type FeatureRow struct {
	Observation
	Opponent string
	Values   []float64
}
