package domain

import "time"

// Model scores a feature vector into an admission probability in [0,1].
// Implementations must be immutable after construction so a ModelState
// snapshot can be shared across goroutines without locking.
type Model interface {
	Predict(v FeatureVector) float64
}

// ModelState is the immutable (model, threshold) pair the ML gate reads.
// It is replaced as one unit through an atomic handle; fields are never
// mutated in place, so a reader can never observe a model from one
// deployment paired with a threshold from another.
type ModelState struct {
	Model     Model
	Threshold float64
	Metric    float64 // holdout ROC-AUC of the deployed model
	TrainedAt time.Time
}

// ModelArtifact is the persisted form of a deployed model: logistic weights
// in FeatureNames order plus the recommended threshold and its holdout
// metric. Written by the retrain scheduler, read at startup.
type ModelArtifact struct {
	Weights     [FeatureDim]float64
	Bias        float64
	Threshold   float64
	Metric      float64
	GeneratedAt time.Time
}
