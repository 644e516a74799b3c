package datasets

import (
	"io"
	"math/rand"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// DefaultBatchSize is the BatchSize of a freshly loaded dataset.
const DefaultBatchSize = 32

// table holds a fully loaded dataset in flat contiguous buffers and implements
// the Dataset interface on top of them. The loaders embed it.
type table struct {
	// BatchSize for yielding batches
	BatchSize int

	name string

	// inputs is shaped [numRows, inputDim], labels [numRows, labelDim].
	inputs   []float32
	inputDim int
	labels   []float32
	labelDim int

	// numClasses is > 0 when labels hold a single class index per row.
	numClasses int

	// order is the row order walked by Yield, pos the next position in it.
	order []int
	pos   int
}

func newTable(name string, inputs []float32, inputDim int, labels []float32, labelDim int) *table {
	t := &table{
		BatchSize: DefaultBatchSize,
		name:      name,
		inputs:    inputs,
		inputDim:  inputDim,
		labels:    labels,
		labelDim:  labelDim,
	}
	t.order = make([]int, t.Len())
	for i := range t.order {
		t.order[i] = i
	}
	return t
}

// classTable is a table with a single class index per row. Only class datasets embed
// it, so multi-label datasets don't satisfy ClassDataset.
type classTable struct {
	*table
}

func newClassTable(name string, inputs []float32, inputDim int, classes []int, numClasses int) *classTable {
	labels := make([]float32, len(classes))
	for i, c := range classes {
		labels[i] = float32(c)
	}
	t := newTable(name, inputs, inputDim, labels, 1)
	t.numClasses = numClasses
	return &classTable{table: t}
}

// Name returns the name of the dataset, including the split.
func (t *table) Name() string {
	return t.name
}

// Len returns the number of examples.
func (t *table) Len() int {
	return len(t.labels) / t.labelDim
}

// InputDim is the width of an input vector.
func (t *table) InputDim() int { return t.inputDim }

// LabelDim is the width of a label vector: 1 for class datasets.
func (t *table) LabelDim() int { return t.labelDim }

// Inputs returns the flat [Len(), InputDim()] feature buffer. It must not be modified.
func (t *table) Inputs() []float32 { return t.inputs }

// Labels returns the flat [Len(), LabelDim()] label buffer. It must not be modified.
func (t *table) Labels() []float32 { return t.labels }

// NumClasses returns the number of classes.
func (c *classTable) NumClasses() int { return c.numClasses }

// Class returns the class index of example i.
func (c *classTable) Class(i int) int {
	return int(c.labels[i])
}

func (t *table) inputRow(i int) []float32 {
	return t.inputs[i*t.inputDim : (i+1)*t.inputDim]
}

func (t *table) labelRow(i int) []float32 {
	return t.labels[i*t.labelDim : (i+1)*t.labelDim]
}

// Example returns copies of the inputs and labels of example idx.
func (t *table) Example(idx int) (inputs []float32, labels []float32, err error) {
	if idx < 0 || idx >= t.Len() {
		return nil, nil, errors.Errorf("index %d out of range [0, %d)", idx, t.Len())
	}
	inputs = append([]float32(nil), t.inputRow(idx)...)
	labels = append([]float32(nil), t.labelRow(idx)...)
	return inputs, labels, nil
}

// Batch reads multiple examples by their indices
func (t *table) Batch(indices []int) ([][]float32, [][]float32, error) {
	inputs := make([][]float32, len(indices))
	labels := make([][]float32, len(indices))
	for batchPos, idx := range indices {
		in, la, err := t.Example(idx)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "%s: batch position %d", t.name, batchPos)
		}
		inputs[batchPos] = in
		labels[batchPos] = la
	}
	return inputs, labels, nil
}

// Shuffle permutes the order in which Yield walks the examples and rewinds it.
// The same seed always produces the same order.
func (t *table) Shuffle(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range t.order {
		t.order[i] = i
	}
	rng.Shuffle(len(t.order), func(i, j int) {
		t.order[i], t.order[j] = t.order[j], t.order[i]
	})
	t.pos = 0
}

// Reset restarts the epoch walked by Yield.
func (t *table) Reset() {
	t.pos = 0
}

// Yield returns the next batch as gomlx tensors, or io.EOF at the end of the epoch.
// Inputs are float32 [batch, InputDim()]. Labels are int32 [batch, 1] for class
// datasets and float32 [batch, LabelDim()] otherwise. The last batch may be smaller
// than BatchSize.
func (t *table) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if t.pos >= len(t.order) {
		return nil, nil, nil, io.EOF
	}
	batchSize := t.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	end := min(t.pos+batchSize, len(t.order))
	n := end - t.pos
	in, la := t.flatBatch(t.order[t.pos:end])
	t.pos = end

	inputs = []*tensors.Tensor{tensors.FromFlatDataAndDimensions(in, n, t.inputDim)}
	if t.numClasses > 0 {
		classes := make([]int32, len(la))
		for i, v := range la {
			classes[i] = int32(v)
		}
		labels = []*tensors.Tensor{tensors.FromFlatDataAndDimensions(classes, n, 1)}
	} else {
		labels = []*tensors.Tensor{tensors.FromFlatDataAndDimensions(la, n, t.labelDim)}
	}
	return nil, inputs, labels, nil
}

// flatBatch copies the rows at indices into contiguous buffers.
func (t *table) flatBatch(indices []int) (inputs, labels []float32) {
	inputs = make([]float32, 0, len(indices)*t.inputDim)
	labels = make([]float32, 0, len(indices)*t.labelDim)
	for _, idx := range indices {
		inputs = append(inputs, t.inputRow(idx)...)
		labels = append(labels, t.labelRow(idx)...)
	}
	return inputs, labels
}
