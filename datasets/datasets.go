// Package datasets loads tabular benchmark datasets (MoA drug-response screening and
// the UCI Adult, Letter Recognition and Yeast datasets) from their raw delimited files
// and presents them as in-memory examples suitable for model training.
//
// Every loader reads and encodes its files once, at construction, and keeps the
// resulting feature matrix and labels in contiguous float32 buffers:
//
//   - MoA: multi-label targets, with grouped stratified folds on drug_id.
//   - Adult: schema-driven one-hot encoding plus fixed min-max normalization.
//   - Letter: fixed positional train/test boundary.
//   - Yeast: stratified 70/30 split, cached next to the source file.
package datasets

import "github.com/gomlx/gomlx/pkg/core/tensors"

// Dataset is implemented by every loader in this package.
//
// Example and Batch address rows by their index in [0, Len()). Shuffle only changes
// the order in which Yield walks the rows.
type Dataset interface {
	Name() string
	Len() int
	Example(i int) (inputs []float32, labels []float32, err error)
	Batch(indices []int) (inputs [][]float32, labels [][]float32, err error)
	Shuffle(seed int64)

	// To implement gomlx's train.Dataset interface
	Reset()
	Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error)
}

// ClassDataset is a Dataset whose label is a single class index per example.
type ClassDataset interface {
	Dataset
	Class(i int) int
	NumClasses() int
}

var (
	_ ClassDataset = (*Adult)(nil)
	_ ClassDataset = (*Letter)(nil)
	_ ClassDataset = (*Yeast)(nil)
	_ Dataset      = (*MoA)(nil)
)
