package datasets

import (
	"sort"

	"github.com/Noofbiz/tabsets/stratify"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// SmallDrugMaxSamples is the largest number of samples of a drug for which all of
	// its samples are kept in a single fold.
	SmallDrugMaxSamples = 18

	// FoldSeed seeds the stratified fold assignment of the MoA dataset.
	FoldSeed = 42
)

// assignDrugFolds assigns a fold in [0, nFolds) to every sample i, described by
// drugIDs[i], sigIDs[i] and its binary targets[i].
//
// Drugs with at most SmallDrugMaxSamples samples are stratified as a whole, using the
// mean of their samples' targets, so all samples of a small drug share a fold. The
// samples of larger drugs are stratified individually. A sample's fold is looked up
// by its drug first, then by its sig_id.
func assignDrugFolds(drugIDs, sigIDs []string, targets [][]float32, nFolds int, seed int64) ([]int, error) {
	members := make(map[string][]int)
	for i, drug := range drugIDs {
		members[drug] = append(members[drug], i)
	}
	var smallDrugs, largeDrugs []string
	for drug, rows := range members {
		if len(rows) <= SmallDrugMaxSamples {
			smallDrugs = append(smallDrugs, drug)
		} else {
			largeDrugs = append(largeDrugs, drug)
		}
	}
	sort.Strings(smallDrugs)
	sort.Strings(largeDrugs)
	klog.V(1).Infof("Stratifying %d drugs with <= %d samples as groups and %d larger drugs by sample",
		len(smallDrugs), SmallDrugMaxSamples, len(largeDrugs))

	drugFold := make(map[string]int, len(smallDrugs))
	if len(smallDrugs) > 0 {
		means := make([][]float32, len(smallDrugs))
		for g, drug := range smallDrugs {
			means[g] = meanTargets(targets, members[drug])
		}
		folds, err := stratify.MultilabelKFold(means, nFolds, seed)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to stratify %d drugs with <= %d samples",
				len(smallDrugs), SmallDrugMaxSamples)
		}
		for g, drug := range smallDrugs {
			drugFold[drug] = folds[g]
		}
	}

	sigFold := make(map[string]int)
	if len(largeDrugs) > 0 {
		isLarge := make(map[string]bool, len(largeDrugs))
		for _, drug := range largeDrugs {
			isLarge[drug] = true
		}
		var rows []int
		var labels [][]float32
		for i, drug := range drugIDs {
			if isLarge[drug] {
				rows = append(rows, i)
				labels = append(labels, targets[i])
			}
		}
		folds, err := stratify.MultilabelKFold(labels, nFolds, seed)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to stratify %d samples of drugs with > %d samples",
				len(rows), SmallDrugMaxSamples)
		}
		for i, row := range rows {
			sigFold[sigIDs[row]] = folds[i]
		}
	}

	return resolveFolds(drugIDs, sigIDs, drugFold, sigFold)
}

// resolveFolds looks up the fold of each sample by drug, falling back to sig_id.
// Every sample must resolve.
func resolveFolds(drugIDs, sigIDs []string, drugFold, sigFold map[string]int) ([]int, error) {
	folds := make([]int, len(drugIDs))
	for i, drug := range drugIDs {
		if f, found := drugFold[drug]; found {
			folds[i] = f
			continue
		}
		if f, found := sigFold[sigIDs[i]]; found {
			folds[i] = f
			continue
		}
		return nil, errors.Errorf("no fold assigned to sig_id %q (drug_id %q)", sigIDs[i], drug)
	}
	return folds, nil
}

// meanTargets averages the target rows at indices.
func meanTargets(targets [][]float32, indices []int) []float32 {
	mean := make([]float32, len(targets[indices[0]]))
	for _, i := range indices {
		for t, v := range targets[i] {
			mean[t] += v
		}
	}
	for t := range mean {
		mean[t] /= float32(len(indices))
	}
	return mean
}
