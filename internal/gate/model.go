// Package gate scores feature vectors against the deployed model and admits
// or discards candidates.
package gate

import (
	"math"

	"solana-sniper/internal/domain"
)

// LogisticModel is a trained logistic regression over the fixed feature
// schema. Immutable after construction.
type LogisticModel struct {
	weights [domain.FeatureDim]float64
	bias    float64
}

// NewLogisticModel creates a model from weights in FeatureNames order.
func NewLogisticModel(weights [domain.FeatureDim]float64, bias float64) *LogisticModel {
	return &LogisticModel{weights: weights, bias: bias}
}

// FromArtifact rebuilds the model from its persisted form.
func FromArtifact(a *domain.ModelArtifact) *LogisticModel {
	return NewLogisticModel(a.Weights, a.Bias)
}

// Predict returns the admission probability in [0,1].
func (m *LogisticModel) Predict(v domain.FeatureVector) float64 {
	z := m.bias
	for i, w := range m.weights {
		z += w * v[i]
	}
	return sigmoid(z)
}

// Weights returns a copy of the model weights.
func (m *LogisticModel) Weights() [domain.FeatureDim]float64 {
	return m.weights
}

// Bias returns the model intercept.
func (m *LogisticModel) Bias() float64 {
	return m.bias
}

// Compile-time interface check.
var _ domain.Model = (*LogisticModel)(nil)

// sigmoid with the argument clamped to avoid overflow in Exp.
func sigmoid(z float64) float64 {
	if z > 20 {
		z = 20
	} else if z < -20 {
		z = -20
	}
	return 1.0 / (1.0 + math.Exp(-z))
}
