package datasets

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable() *classTable {
	// 5 examples of 2 inputs; input row i is {i, 10*i}.
	inputs := []float32{0, 0, 1, 10, 2, 20, 3, 30, 4, 40}
	return newClassTable("test", inputs, 2, []int{0, 1, 2, 1, 0}, 3)
}

func TestTable_ExampleAndBatch(t *testing.T) {
	tab := newTestTable()
	require.Equal(t, 5, tab.Len())
	assert.Equal(t, 2, tab.InputDim())
	assert.Equal(t, 1, tab.LabelDim())
	assert.Equal(t, 3, tab.NumClasses())

	in, la, err := tab.Example(3)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 30}, in)
	assert.Equal(t, []float32{1}, la)
	assert.Equal(t, 1, tab.Class(3))

	// Returned slices are copies.
	in[0] = 99
	again, _, err := tab.Example(3)
	require.NoError(t, err)
	assert.Equal(t, float32(3), again[0])

	_, _, err = tab.Example(5)
	assert.Error(t, err)
	_, _, err = tab.Example(-1)
	assert.Error(t, err)

	inputs, labels, err := tab.Batch([]int{4, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{4, 40}, {0, 0}, {2, 20}}, inputs)
	assert.Equal(t, [][]float32{{0}, {0}, {2}}, labels)

	_, _, err = tab.Batch([]int{0, 7})
	assert.Error(t, err)
}

func TestTable_YieldEpoch(t *testing.T) {
	tab := newTestTable()
	tab.BatchSize = 2

	var batchSizes []int
	for {
		_, inputs, labels, err := tab.Yield()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Len(t, inputs, 1)
		require.Len(t, labels, 1)
		dims := inputs[0].Shape().Dimensions
		require.Len(t, dims, 2)
		assert.Equal(t, 2, dims[1])
		assert.Equal(t, []int{dims[0], 1}, labels[0].Shape().Dimensions)
		batchSizes = append(batchSizes, dims[0])
	}
	assert.Equal(t, []int{2, 2, 1}, batchSizes)

	// Exhausted until reset.
	_, _, _, err := tab.Yield()
	assert.Equal(t, io.EOF, err)
	tab.Reset()
	_, inputs, _, err := tab.Yield()
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 0}, {1, 10}}, inputs[0].Value(), "first batch restarts at row 0")
}

func TestTable_ShuffleIsDeterministic(t *testing.T) {
	a, b := newTestTable(), newTestTable()
	a.Shuffle(7)
	b.Shuffle(7)
	assert.Equal(t, a.order, b.order)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, a.order)

	// Shuffle doesn't change the index space of Example.
	in, _, err := a.Example(2)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 20}, in)
}

func TestTable_MultiLabelYield(t *testing.T) {
	tab := newTable("multi", []float32{1, 2, 3, 4}, 2, []float32{1, 0, 1, 0, 1, 1}, 3)
	require.Equal(t, 2, tab.Len())
	_, isClass := any(tab).(ClassDataset)
	assert.False(t, isClass)
	_, _, labels, err := tab.Yield()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, labels[0].Shape().Dimensions)
}
