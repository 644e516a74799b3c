package main

// Example command that loads the train split of every dataset found under a root
// directory, walks a few batches of each as gomlx tensors, the way a gomlx training
// loop would consume them, and round-trips one raw Adult row through the encoder.
//
// Usage:
//   go run ./datasets/example -root=~/work/tabsets
//
// Each dataset is expected in its own subdirectory of root: moa/, adult/, letter/ and
// yeast/. Missing datasets are reported and skipped.

import (
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/Noofbiz/tabsets/datasets"
)

func main() {
	root := flag.String("root", "~/work/tabsets", "directory with one subdirectory per dataset")
	flag.Parse()

	loaders := []struct {
		dir  string
		load func(root string) (datasets.Dataset, error)
	}{
		{"moa", func(root string) (datasets.Dataset, error) { return datasets.NewMoA(root, true, 5, 0) }},
		{"adult", func(root string) (datasets.Dataset, error) { return datasets.NewAdult(root, true) }},
		{"letter", func(root string) (datasets.Dataset, error) { return datasets.NewLetter(root, true) }},
		{"yeast", func(root string) (datasets.Dataset, error) { return datasets.NewYeast(root, true) }},
	}
	for _, l := range loaders {
		ds, err := l.load(filepath.Join(*root, l.dir))
		if err != nil {
			fmt.Printf("Note: skipping %s: %v\n", l.dir, err)
			continue
		}
		fmt.Printf("%s: %d examples\n", ds.Name(), ds.Len())

		// Walk the first batches of a shuffled epoch.
		ds.Shuffle(42)
		for i := 0; i < 2; i++ {
			_, inputs, labels, err := ds.Yield()
			if err == io.EOF {
				break
			}
			if err != nil {
				log.Fatalf("failed to yield batch: %v", err)
			}
			fmt.Printf("  batch %d: inputs %s, labels %s\n", i, inputs[0].Shape(), labels[0].Shape())
		}
	}

	// Encode a raw Adult row and map it back.
	row := "39, State-gov, 77516, Bachelors, 13, Never-married, Adm-clerical, Not-in-family, White, Male, 2174, 0, 40, United-States, <=50K"
	features, class, err := datasets.EncodeAdultRow(row)
	if err != nil {
		log.Fatalf("failed to encode row: %v", err)
	}
	values, err := datasets.DecodeAdultFeatures(features)
	if err != nil {
		log.Fatalf("failed to decode row: %v", err)
	}
	fmt.Printf("Adult row of class %d decodes to %v\n", class, values)
}
