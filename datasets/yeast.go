package datasets

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Noofbiz/tabsets/stratify"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// UCI Yeast file names. YeastTrainFile and YeastTestFile are generated from
// YeastFile the first time the dataset is loaded.
const (
	YeastFile      = "yeast.data"
	YeastTrainFile = "yeast.train"
	YeastTestFile  = "yeast.test"
)

const (
	yeastNumFeatures   = 8
	yeastTrainFraction = 0.7
	yeastSplitSeed     = 0

	// yeastPlaceholderID replaces the sequence name in the generated split files.
	yeastPlaceholderID = "placeholder"
)

// YeastClasses are the localization sites, in class index order.
var YeastClasses = []string{"CYT", "NUC", "MIT", "ME3", "ME2", "ME1", "EXC", "VAC", "POX", "ERL"}

var yeastClassIdx = func() map[string]int {
	m := make(map[string]int, len(YeastClasses))
	for i, c := range YeastClasses {
		m[c] = i
	}
	return m
}()

// Yeast is the UCI Yeast protein localization dataset: 8 numeric features and one of
// the YeastClasses.
type Yeast struct {
	*classTable
	path string
}

// NewYeast loads the train or test split of the Yeast dataset in root.
//
// The split is a stratified 70/30 random split of yeast.data with a fixed seed. It is
// computed once and cached as yeast.train and yeast.test next to yeast.data; later
// loads read the cached files. If either cache file is missing both are regenerated.
//
// Parsing is best-effort: rows with the wrong number of fields, a non-numeric feature
// or an unknown class are skipped with a warning.
func NewYeast(root string, train bool) (*Yeast, error) {
	root, err := expandRoot(root)
	if err != nil {
		return nil, err
	}
	if err := ensureYeastSplit(root); err != nil {
		return nil, err
	}

	fileName, split := YeastTestFile, "test"
	if train {
		fileName, split = YeastTrainFile, "train"
	}
	path := filepath.Join(root, fileName)
	inputs, classes, err := loadYeastFile(path)
	if err != nil {
		return nil, err
	}
	klog.Infof("Loaded %d Yeast %s examples from %s", len(classes), split, path)
	return &Yeast{
		classTable: newClassTable(fmt.Sprintf("UCI Yeast [%s]", split), inputs, yeastNumFeatures, classes, len(YeastClasses)),
		path:  path,
	}, nil
}

// Path of the split file the dataset was loaded from.
func (y *Yeast) Path() string { return y.path }

// ensureYeastSplit generates the cached train/test files if any of them is missing.
//
// Two processes may find the cache missing at the same time and both write it. Since
// the split is deterministic they write the same contents, and each file is renamed
// into place atomically, so readers never observe a partial file.
func ensureYeastSplit(root string) error {
	trainPath := filepath.Join(root, YeastTrainFile)
	testPath := filepath.Join(root, YeastTestFile)
	trainFound, err := fileExists(trainPath)
	if err != nil {
		return err
	}
	testFound, err := fileExists(testPath)
	if err != nil {
		return err
	}
	if trainFound && testFound {
		return nil
	}

	sourcePath := filepath.Join(root, YeastFile)
	inputs, classes, err := loadYeastFile(sourcePath)
	if err != nil {
		return err
	}
	trainIdx, testIdx, err := stratify.TrainTestSplit(classes, yeastTrainFraction, yeastSplitSeed)
	if err != nil {
		return errors.WithMessagef(err, "failed to split %q", sourcePath)
	}
	if err := writeYeastFile(trainPath, inputs, classes, trainIdx); err != nil {
		return err
	}
	if err := writeYeastFile(testPath, inputs, classes, testIdx); err != nil {
		return err
	}
	klog.V(1).Infof("Split %s into %d train and %d test rows", sourcePath, len(trainIdx), len(testIdx))
	return nil
}

// loadYeastFile parses whitespace separated rows: an identifier, the features and the
// class name.
func loadYeastFile(path string) (inputs []float32, classes []int, err error) {
	rows, lineNums, err := readFields(path, strings.Fields)
	if err != nil {
		return nil, nil, err
	}
	inputs = make([]float32, 0, len(rows)*yeastNumFeatures)
	classes = make([]int, 0, len(rows))
nextRow:
	for i, row := range rows {
		if len(row) != yeastNumFeatures+2 {
			klog.Warningf("%s:%d: skipping row with %d fields, expected %d", path, lineNums[i], len(row), yeastNumFeatures+2)
			continue
		}
		class, found := yeastClassIdx[row[len(row)-1]]
		if !found {
			klog.Warningf("%s:%d: skipping row with unknown class %q", path, lineNums[i], row[len(row)-1])
			continue
		}
		features := make([]float32, yeastNumFeatures)
		for j, field := range row[1 : len(row)-1] {
			v, err := parseFloat32(field)
			if err != nil {
				klog.Warningf("%s:%d: skipping row: feature %d: %v", path, lineNums[i], j, err)
				continue nextRow
			}
			features[j] = v
		}
		inputs = append(inputs, features...)
		classes = append(classes, class)
	}
	return inputs, classes, nil
}

// writeYeastFile writes the rows at indices to path through a temporary file in the
// same directory, renamed into place once complete.
func writeYeastFile(path string, inputs []float32, classes []int, indices []int) (err error) {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temporary file for %q", path)
	}
	tmpName := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmpFile)
	fields := make([]string, yeastNumFeatures)
	for _, idx := range indices {
		for j, v := range inputs[idx*yeastNumFeatures : (idx+1)*yeastNumFeatures] {
			fields[j] = formatFloat32(v)
		}
		if _, err = fmt.Fprintf(w, "%s %s %s\n", yeastPlaceholderID, strings.Join(fields, " "), YeastClasses[classes[idx]]); err != nil {
			return errors.Wrapf(err, "failed to write %q", tmpName)
		}
	}
	if err = w.Flush(); err != nil {
		return errors.Wrapf(err, "failed to write %q", tmpName)
	}
	if err = tmpFile.Chmod(0o644); err != nil {
		return errors.Wrapf(err, "failed to chmod %q", tmpName)
	}
	if err = tmpFile.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync %q", tmpName)
	}
	if err = tmpFile.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %q", tmpName)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "failed to rename %q to %q", tmpName, path)
	}
	return nil
}
