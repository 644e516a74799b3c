// Command inspect loads one of the tabular datasets and prints a summary of it: size,
// input and label widths, label distribution and, for MoA, the fold sizes. It walks one
// epoch through Yield to check batching, and can save a bar chart of the labels.
//
// Usage:
//
//	go run ./cmd/inspect -dataset=adult -root=~/work/uci -plot=plots/adult.png
//
// Defaults for -root, -folds, -fold and -batch-size are read from the TABSETS_ROOT,
// TABSETS_FOLDS, TABSETS_FOLD and TABSETS_BATCH_SIZE environment variables.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/Noofbiz/tabsets/datasets"
	"github.com/dustin/go-humanize"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Config holds the defaults of the command line flags.
type Config struct {
	Root      string `envconfig:"ROOT" default:"."`
	Folds     int    `envconfig:"FOLDS" default:"5"`
	Fold      int    `envconfig:"FOLD" default:"0"`
	BatchSize int    `envconfig:"BATCH_SIZE" default:"32"`
}

// table is implemented by every loader of the datasets package.
type table interface {
	datasets.Dataset
	InputDim() int
	LabelDim() int
	Labels() []float32
}

func main() {
	var cfg Config
	if err := envconfig.Process("tabsets", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment configuration: %v\n", err)
		os.Exit(1)
	}

	klog.InitFlags(nil)
	datasetFlag := flag.String("dataset", "adult", "dataset to load: moa, adult, letter or yeast")
	rootFlag := flag.String("root", cfg.Root, "directory holding the dataset files; a leading ~ is expanded")
	trainFlag := flag.Bool("train", true, "load the train split; false loads the test (or MoA validation) split")
	foldsFlag := flag.Int("folds", cfg.Folds, "MoA: number of folds")
	foldFlag := flag.Int("fold", cfg.Fold, "MoA: fold held out for validation")
	batchSizeFlag := flag.Int("batch-size", cfg.BatchSize, "batch size used to walk one epoch")
	plotFlag := flag.String("plot", "", "if set, save a bar chart of the label distribution to this PNG path")
	headFlag := flag.Int("head", 0, "print the first N examples")
	flag.Parse()
	defer klog.Flush()

	start := time.Now()
	ds, err := load(*datasetFlag, *rootFlag, *trainFlag, *foldsFlag, *foldFlag, *batchSizeFlag)
	if err != nil {
		klog.Exitf("failed to load dataset %q: %+v", *datasetFlag, err)
	}
	fmt.Printf("%s: %s examples, %d inputs, %d labels (loaded in %s)\n",
		ds.Name(), humanize.Comma(int64(ds.Len())), ds.InputDim(), ds.LabelDim(),
		time.Since(start).Round(time.Millisecond))
	if p, ok := ds.(interface{ Path() string }); ok {
		if info, err := os.Stat(p.Path()); err == nil {
			fmt.Printf("  file: %s (%s)\n", p.Path(), humanize.Bytes(uint64(info.Size())))
		}
	}

	names, counts := labelCounts(ds)
	fmt.Println("Label distribution:")
	for i, name := range names {
		if counts[i] == 0 {
			continue
		}
		fmt.Printf("  %-40s %10s  %5.1f%%\n", name, humanize.Comma(int64(counts[i])),
			100*float64(counts[i])/float64(max(ds.Len(), 1)))
	}

	if moa, ok := ds.(*datasets.MoA); ok {
		printFolds(moa)
	}

	if err := printHead(ds, *headFlag); err != nil {
		klog.Exitf("failed to read examples: %+v", err)
	}

	numBatches, numExamples, err := walkEpoch(ds)
	if err != nil {
		klog.Exitf("failed to walk %s: %+v", ds.Name(), err)
	}
	fmt.Printf("One epoch: %s batches, %s examples\n", humanize.Comma(int64(numBatches)), humanize.Comma(int64(numExamples)))

	if *plotFlag != "" {
		if err := plotLabels(*plotFlag, ds.Name(), names, counts); err != nil {
			klog.Exitf("failed to generate plot: %+v", err)
		}
		klog.Infof("Saved label distribution to %s", *plotFlag)
	}
}

// load creates the named dataset with the given batch size.
func load(name, root string, train bool, nFolds, fold, batchSize int) (table, error) {
	switch name {
	case "moa":
		ds, err := datasets.NewMoA(root, train, nFolds, fold)
		if err != nil {
			return nil, err
		}
		ds.BatchSize = batchSize
		return ds, nil
	case "adult":
		ds, err := datasets.NewAdult(root, train)
		if err != nil {
			return nil, err
		}
		ds.BatchSize = batchSize
		return ds, nil
	case "letter":
		ds, err := datasets.NewLetter(root, train)
		if err != nil {
			return nil, err
		}
		ds.BatchSize = batchSize
		return ds, nil
	case "yeast":
		ds, err := datasets.NewYeast(root, train)
		if err != nil {
			return nil, err
		}
		ds.BatchSize = batchSize
		return ds, nil
	}
	return nil, errors.Errorf("unknown dataset %q, expected one of moa, adult, letter or yeast", name)
}

// labelCounts returns the number of examples per class for class datasets, or the
// number of positive examples per target for multi-label ones.
func labelCounts(ds table) (names []string, counts []int) {
	if cds, ok := ds.(datasets.ClassDataset); ok {
		names = classNames(ds)
		counts = make([]int, cds.NumClasses())
		for i := range cds.Len() {
			counts[cds.Class(i)]++
		}
		return names, counts
	}

	labelDim := ds.LabelDim()
	counts = make([]int, labelDim)
	for i, v := range ds.Labels() {
		if v != 0 {
			counts[i%labelDim]++
		}
	}
	if moa, ok := ds.(*datasets.MoA); ok {
		names = moa.TargetNames()
	} else {
		names = make([]string, labelDim)
		for i := range names {
			names[i] = fmt.Sprintf("label %d", i)
		}
	}
	return names, counts
}

func classNames(ds table) []string {
	switch ds.(type) {
	case *datasets.Adult:
		return []string{"<=50K", ">50K"}
	case *datasets.Yeast:
		return datasets.YeastClasses
	case *datasets.Letter:
		names := make([]string, 26)
		for i := range names {
			names[i] = string(rune('A' + i))
		}
		return names
	}
	return nil
}

// printFolds prints the number of treated samples and drugs per fold.
func printFolds(moa *datasets.MoA) {
	samples := make([]int, moa.NumFolds())
	drugs := make([]map[string]bool, moa.NumFolds())
	for _, a := range moa.Assignments() {
		samples[a.Fold]++
		if drugs[a.Fold] == nil {
			drugs[a.Fold] = make(map[string]bool)
		}
		drugs[a.Fold][a.DrugID] = true
	}
	fmt.Println("Folds:")
	for fold := range samples {
		marker := ""
		if fold == moa.Fold() {
			marker = " (validation)"
		}
		fmt.Printf("  fold %d: %s samples, %s drugs%s\n", fold,
			humanize.Comma(int64(samples[fold])), humanize.Comma(int64(len(drugs[fold]))), marker)
	}
}

func printHead(ds table, n int) error {
	n = min(n, ds.Len())
	if n <= 0 {
		return nil
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	inputs, labels, err := ds.Batch(indices)
	if err != nil {
		return err
	}
	for i := range indices {
		fmt.Printf("  #%d: inputs=%v labels=%v\n", i, inputs[i], labels[i])
	}
	return nil
}

// walkEpoch resets ds and yields batches until io.EOF.
func walkEpoch(ds table) (numBatches, numExamples int, err error) {
	ds.Reset()
	for {
		_, inputs, _, err := ds.Yield()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, err
		}
		numBatches++
		numExamples += inputs[0].Shape().Dimensions[0]
	}
	ds.Reset()
	return numBatches, numExamples, nil
}

// topCounts keeps the n largest counts, in their original order.
func topCounts(names []string, counts []int, n int) ([]string, []int) {
	if len(counts) <= n {
		return names, counts
	}
	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] > counts[order[b]] })
	order = order[:n]
	sort.Ints(order)
	topNames, top := make([]string, n), make([]int, n)
	for i, idx := range order {
		topNames[i], top[i] = names[idx], counts[idx]
	}
	return topNames, top
}
