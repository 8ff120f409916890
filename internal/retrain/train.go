// Package retrain rebuilds the gate model from labeled feature history and
// decides whether the new model is good enough to deploy.
package retrain

import (
	"errors"
	"math"
	"sort"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/gate"
)

// Training errors. Both leave the active model untouched.
var (
	// ErrInsufficientData is returned when the corpus is too small.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrDegenerateLabels is returned when the corpus holds one class only.
	ErrDegenerateLabels = errors.New("labels contain a single class")
)

// MinTrainingSamples is the smallest corpus worth fitting.
const MinTrainingSamples = 50

const (
	trainEpochs   = 300
	learningRate  = 0.01
	holdoutShare  = 0.2
	thresholdStep = 0.01
)

// SplitChronological returns train/holdout sets with the newest holdoutShare
// of records held out. The input must already be ordered by RecordedAt.
func SplitChronological(data []*domain.LabeledFeature) (train, holdout []*domain.LabeledFeature) {
	cut := len(data) - int(math.Round(float64(len(data))*holdoutShare))
	if cut <= 0 || cut >= len(data) {
		return data, nil
	}
	return data[:cut], data[cut:]
}

// Train fits a logistic regression with batch gradient descent. Features are
// standardized internally; the scaling is folded back into the returned
// weights so the model applies to raw vectors.
func Train(data []*domain.LabeledFeature) (*gate.LogisticModel, error) {
	if len(data) < MinTrainingSamples {
		return nil, ErrInsufficientData
	}
	if !hasBothClasses(data) {
		return nil, ErrDegenerateLabels
	}

	mean, std := standardize(data)

	n := float64(len(data))
	var w [domain.FeatureDim]float64
	var b float64

	for epoch := 0; epoch < trainEpochs; epoch++ {
		var gradW [domain.FeatureDim]float64
		var gradB float64

		for _, row := range data {
			z := b
			for i := 0; i < domain.FeatureDim; i++ {
				z += w[i] * scaled(row.Features[i], mean[i], std[i])
			}
			err := logistic(z) - float64(row.Label)
			for i := 0; i < domain.FeatureDim; i++ {
				gradW[i] += err * scaled(row.Features[i], mean[i], std[i])
			}
			gradB += err
		}

		for i := 0; i < domain.FeatureDim; i++ {
			w[i] -= learningRate * gradW[i] / n
		}
		b -= learningRate * gradB / n
	}

	// Fold the standardization into the weights: w'x' = w(x-mean)/std.
	var rawW [domain.FeatureDim]float64
	rawB := b
	for i := 0; i < domain.FeatureDim; i++ {
		rawW[i] = w[i] / std[i]
		rawB -= w[i] * mean[i] / std[i]
	}

	return gate.NewLogisticModel(rawW, rawB), nil
}

// AUC computes the ROC area via the rank-sum formulation. Ties share ranks.
func AUC(probs []float64, labels []int8) float64 {
	type scored struct {
		p     float64
		label int8
	}
	rows := make([]scored, len(probs))
	for i := range probs {
		rows[i] = scored{probs[i], labels[i]}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].p < rows[j].p })

	var pos, neg float64
	ranks := make([]float64, len(rows))
	for i := 0; i < len(rows); {
		j := i
		for j < len(rows) && rows[j].p == rows[i].p {
			j++
		}
		avgRank := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[k] = avgRank
		}
		i = j
	}

	var posRankSum float64
	for i, r := range rows {
		if r.label == 1 {
			pos++
			posRankSum += ranks[i]
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}
	return (posRankSum - pos*(pos+1)/2) / (pos * neg)
}

// BestF1Threshold sweeps a probability grid and returns the threshold with
// the best F1 on the given scores. Ties keep the lower threshold, admitting
// more candidates.
func BestF1Threshold(probs []float64, labels []int8) float64 {
	bestT, bestF1 := thresholdStep, -1.0
	for t := thresholdStep; t < 1.0; t += thresholdStep {
		f1 := f1At(probs, labels, t)
		if f1 > bestF1 {
			bestF1 = f1
			bestT = t
		}
	}
	return math.Round(bestT*100) / 100
}

func f1At(probs []float64, labels []int8, threshold float64) float64 {
	var tp, fp, fn float64
	for i, p := range probs {
		predicted := p >= threshold
		actual := labels[i] == 1
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		}
	}
	if tp == 0 {
		return 0
	}
	precision := tp / (tp + fp)
	recall := tp / (tp + fn)
	return 2 * precision * recall / (precision + recall)
}

func hasBothClasses(data []*domain.LabeledFeature) bool {
	var seenWin, seenLoss bool
	for _, row := range data {
		if row.Label == 1 {
			seenWin = true
		} else {
			seenLoss = true
		}
		if seenWin && seenLoss {
			return true
		}
	}
	return false
}

func standardize(data []*domain.LabeledFeature) (mean, std [domain.FeatureDim]float64) {
	n := float64(len(data))
	for _, row := range data {
		for i := 0; i < domain.FeatureDim; i++ {
			mean[i] += row.Features[i]
		}
	}
	for i := range mean {
		mean[i] /= n
	}
	for _, row := range data {
		for i := 0; i < domain.FeatureDim; i++ {
			d := row.Features[i] - mean[i]
			std[i] += d * d
		}
	}
	for i := range std {
		std[i] = math.Sqrt(std[i] / n)
		if std[i] == 0 {
			std[i] = 1 // constant feature contributes nothing
		}
	}
	return mean, std
}

func scaled(x, mean, std float64) float64 {
	return (x - mean) / std
}

func logistic(z float64) float64 {
	if z > 20 {
		z = 20
	} else if z < -20 {
		z = -20
	}
	return 1.0 / (1.0 + math.Exp(-z))
}
