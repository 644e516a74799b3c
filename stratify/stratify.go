// Package stratify splits labeled samples into folds or train/test partitions whose
// label distributions approximate the distribution of the whole set.
//
// MultilabelKFold implements iterative stratification for multi-label data
// (Sechidis, Tsoumakas and Vlahavas, 2011): labels are distributed rarest first, each
// positive sample going to the fold that still needs the most of that label.
// TrainTestSplit is the single-label, two-way counterpart.
package stratify

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// MultilabelKFold assigns every row of labels a fold in [0, k).
//
// A label is considered present in a row when its value is non-zero, so mean
// target vectors of groups can be used directly. Rows are shuffled with seed before
// stratification, so the same inputs and seed always give the same folds.
func MultilabelKFold(labels [][]float32, k int, seed int64) ([]int, error) {
	n := len(labels)
	if k < 2 {
		return nil, errors.Errorf("number of folds must be at least 2, got %d", k)
	}
	if n < k {
		return nil, errors.Errorf("cannot split %d samples into %d folds", n, k)
	}
	numLabels := len(labels[0])
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	positive := make([][]bool, n)
	for pos, row := range perm {
		if len(labels[row]) != numLabels {
			return nil, errors.Errorf("row %d has %d labels, expected %d", row, len(labels[row]), numLabels)
		}
		positive[pos] = make([]bool, numLabels)
		for l, v := range labels[row] {
			positive[pos][l] = v != 0
		}
	}

	shuffledFolds := iterativeStratification(positive, numLabels, k, rng)
	folds := make([]int, n)
	for pos, row := range perm {
		folds[row] = shuffledFolds[pos]
	}
	return folds, nil
}

func iterativeStratification(positive [][]bool, numLabels, k int, rng *rand.Rand) []int {
	n := len(positive)

	// Desired number of samples per fold, and per (fold, label).
	sampleDemand := make([]float64, k)
	for f := range sampleDemand {
		sampleDemand[f] = float64(n) / float64(k)
	}
	remainingPerLabel := make([]int, numLabels)
	for _, row := range positive {
		for l, p := range row {
			if p {
				remainingPerLabel[l]++
			}
		}
	}
	labelDemand := make([][]float64, k)
	for f := range labelDemand {
		labelDemand[f] = make([]float64, numLabels)
		for l, total := range remainingPerLabel {
			labelDemand[f][l] = float64(total) / float64(k)
		}
	}

	folds := make([]int, n)
	assigned := make([]bool, n)
	numRemaining := n
	assign := func(i, f int) {
		folds[i] = f
		assigned[i] = true
		numRemaining--
		sampleDemand[f]--
		for l, p := range positive[i] {
			if p {
				labelDemand[f][l]--
				remainingPerLabel[l]--
			}
		}
	}

	allFolds := make([]int, k)
	for f := range allFolds {
		allFolds[f] = f
	}

	for numRemaining > 0 {
		label := rarestLabel(remainingPerLabel, rng)
		if label < 0 {
			// Only rows without any positive label are left.
			for i := range positive {
				if !assigned[i] {
					assign(i, pickMax(allFolds, sampleDemand, rng))
				}
			}
			break
		}
		for i, row := range positive {
			if assigned[i] || !row[label] {
				continue
			}
			candidates := argMax(allFolds, func(f int) float64 { return labelDemand[f][label] })
			assign(i, pickMax(candidates, sampleDemand, rng))
		}
	}
	return folds
}

// rarestLabel returns the label with the fewest remaining positive rows, ignoring
// exhausted labels, breaking ties at random. It returns -1 if all labels are exhausted.
func rarestLabel(remaining []int, rng *rand.Rand) int {
	var candidates []int
	minCount := 0
	for l, c := range remaining {
		if c == 0 {
			continue
		}
		switch {
		case len(candidates) == 0 || c < minCount:
			minCount = c
			candidates = append(candidates[:0], l)
		case c == minCount:
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	return candidates[rng.Intn(len(candidates))]
}

// argMax returns the elements of candidates with the largest score.
func argMax(candidates []int, score func(int) float64) []int {
	var best []int
	bestScore := math.Inf(-1)
	for _, c := range candidates {
		s := score(c)
		switch {
		case s > bestScore:
			bestScore = s
			best = append(best[:0:0], c)
		case s == bestScore:
			best = append(best, c)
		}
	}
	return best
}

// pickMax picks, among candidate folds, one with the largest remaining sample demand,
// breaking ties at random.
func pickMax(candidates []int, sampleDemand []float64, rng *rand.Rand) int {
	best := argMax(candidates, func(f int) float64 { return sampleDemand[f] })
	if len(best) == 1 {
		return best[0]
	}
	return best[rng.Intn(len(best))]
}

// TrainTestSplit splits rows 0..len(classes)-1 into a train and a test partition,
// keeping the class proportions of both close to those of the whole set.
//
// The train partition holds floor(trainFraction*n) rows. The test quota is spread
// over classes proportionally to their size, the leftover rows going to the classes
// with the largest fractional share. Both returned slices are sorted.
func TrainTestSplit(classes []int, trainFraction float64, seed int64) (train, test []int, err error) {
	n := len(classes)
	if trainFraction <= 0 || trainFraction >= 1 {
		return nil, nil, errors.Errorf("train fraction must be in (0, 1), got %g", trainFraction)
	}
	numTrain := int(math.Floor(trainFraction * float64(n)))
	numTest := n - numTrain
	if numTrain == 0 || numTest == 0 {
		return nil, nil, errors.Errorf("train fraction %g of %d rows leaves an empty partition", trainFraction, n)
	}

	members := make(map[int][]int)
	for row, c := range classes {
		members[c] = append(members[c], row)
	}
	classIDs := make([]int, 0, len(members))
	for c := range members {
		classIDs = append(classIDs, c)
	}
	sort.Ints(classIDs)

	quotas := make([]int, len(classIDs))
	remainders := make([]float64, len(classIDs))
	allocated := 0
	for i, c := range classIDs {
		share := float64(numTest) * float64(len(members[c])) / float64(n)
		quotas[i] = int(math.Floor(share))
		remainders[i] = share - float64(quotas[i])
		allocated += quotas[i]
	}
	byRemainder := make([]int, len(classIDs))
	for i := range byRemainder {
		byRemainder[i] = i
	}
	sort.SliceStable(byRemainder, func(a, b int) bool {
		return remainders[byRemainder[a]] > remainders[byRemainder[b]]
	})
	for _, i := range byRemainder[:numTest-allocated] {
		quotas[i]++
	}

	rng := rand.New(rand.NewSource(seed))
	for i, c := range classIDs {
		rows := append([]int(nil), members[c]...)
		rng.Shuffle(len(rows), func(a, b int) { rows[a], rows[b] = rows[b], rows[a] })
		test = append(test, rows[:quotas[i]]...)
		train = append(train, rows[quotas[i]:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}
