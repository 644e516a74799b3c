package datasets

import (
	"fmt"
	"path/filepath"

	"k8s.io/klog/v2"
)

const (
	// LetterFile is the UCI Letter Recognition data file.
	LetterFile = "letter-recognition.data"

	// LetterTrainRows is the number of leading rows of LetterFile used for training;
	// the remaining rows are the test split.
	LetterTrainRows = 16000

	letterNumFeatures = 16
	letterNumClasses  = 26
)

// Letter is the UCI Letter Recognition dataset: 16 integer attributes of a glyph
// image, and the letter as class 0 ('A') to 25 ('Z').
type Letter struct {
	*classTable
}

// NewLetter loads the train (first 16000 rows) or test (remaining rows) split of
// letter-recognition.data in root.
//
// Parsing is best-effort: lines with the wrong number of fields, a label outside A-Z or
// a non-numeric attribute are skipped with a warning, and don't count towards the
// train boundary.
func NewLetter(root string, train bool) (*Letter, error) {
	root, err := expandRoot(root)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(root, LetterFile)
	rows, lineNums, err := readFields(path, splitComma)
	if err != nil {
		return nil, err
	}

	inputs := make([]float32, 0, len(rows)*letterNumFeatures)
	classes := make([]int, 0, len(rows))
	for i, row := range rows {
		features, class, ok := parseLetterRow(row)
		if !ok {
			klog.Warningf("%s:%d: skipping malformed row %q", path, lineNums[i], row)
			continue
		}
		inputs = append(inputs, features...)
		classes = append(classes, class)
	}

	split := "test"
	boundary := min(LetterTrainRows, len(classes))
	if train {
		split = "train"
		inputs, classes = inputs[:boundary*letterNumFeatures], classes[:boundary]
	} else {
		inputs, classes = inputs[boundary*letterNumFeatures:], classes[boundary:]
	}
	klog.Infof("Loaded %d Letter %s examples from %s", len(classes), split, path)
	return &Letter{
		classTable: newClassTable(fmt.Sprintf("UCI Letter [%s]", split), inputs, letterNumFeatures, classes, letterNumClasses),
	}, nil
}

func parseLetterRow(row []string) (features []float32, class int, ok bool) {
	if len(row) != letterNumFeatures+1 || len(row[0]) != 1 {
		return nil, 0, false
	}
	class = int(row[0][0]) - 'A'
	if class < 0 || class >= letterNumClasses {
		return nil, 0, false
	}
	features = make([]float32, letterNumFeatures)
	for j, field := range row[1:] {
		v, err := parseFloat32(field)
		if err != nil {
			return nil, 0, false
		}
		features[j] = v
	}
	return features, class, true
}
