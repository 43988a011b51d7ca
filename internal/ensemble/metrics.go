package ensemble

import (
	"math/rand"
	"strconv"

	"github.com/chainsift/fraudscore-engine/pkg/models"
)

// TrainValSplit shuffles row indices with the given seed and partitions them
// into a training and a held-out validation set. valFrac is clamped so both
// sides keep at least one row whenever the input has two or more.
func TrainValSplit(n int, valFrac float64, seed int64) (train, val []int) {
	if n <= 1 {
		train = make([]int, n)
		for i := range train {
			train[i] = i
		}
		return train, nil
	}

	nVal := int(float64(n) * valFrac)
	if nVal < 1 {
		nVal = 1
	}
	if nVal >= n {
		nVal = n - 1
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nVal:], perm[:nVal]
}

// ClassificationReport computes per-class precision, recall and F1 from
// predicted probabilities against ground-truth labels, cutting at the
// given threshold. Classes with zero predicted positives report precision 0
// rather than NaN.
func ClassificationReport(model string, probs []float64, y []int, threshold float64) models.ValidationReport {
	report := models.ValidationReport{
		Model:   model,
		Classes: make(map[string]models.ClassMetrics, 2),
		Support: len(y),
	}
	if len(probs) != len(y) || len(y) == 0 {
		return report
	}

	// Contingency counts per class: tp, fp, fn
	correct := 0
	var tp, fp, fn [2]int
	for i, p := range probs {
		pred := 0
		if p > threshold {
			pred = 1
		}
		actual := y[i]
		if pred == actual {
			correct++
			tp[actual]++
		} else {
			fp[pred]++
			fn[actual]++
		}
	}
	report.Accuracy = float64(correct) / float64(len(y))

	for class := 0; class <= 1; class++ {
		support := tp[class] + fn[class]
		m := models.ClassMetrics{Support: support}
		if tp[class]+fp[class] > 0 {
			m.Precision = float64(tp[class]) / float64(tp[class]+fp[class])
		}
		if support > 0 {
			m.Recall = float64(tp[class]) / float64(support)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.Classes[strconv.Itoa(class)] = m
	}
	return report
}
