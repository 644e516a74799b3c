package datasets

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// MoA (Mechanisms of Action) file names.
const (
	MoAFeaturesFile = "train_features.csv"
	MoATargetsFile  = "train_targets_scored.csv"
	MoADrugFile     = "train_drug.csv"
)

// MoA column names.
const (
	SigIDCol  = "sig_id"
	DrugIDCol = "drug_id"
	CpTypeCol = "cp_type"
	CpTimeCol = "cp_time"
	CpDoseCol = "cp_dose"

	// TreatmentCpType marks treated samples; every other cp_type is a control.
	TreatmentCpType = "trt_cp"

	cellColPrefix = "c-"
	geneColPrefix = "g-"
)

// moaDoses encodes cp_dose.
var moaDoses = map[string]float32{"D1": 0, "D2": 1}

// FoldAssignment is the fold of one treated MoA sample.
type FoldAssignment struct {
	SigID  string
	DrugID string
	Fold   int
}

// MoA is the Mechanisms of Action drug-response dataset: per sample, cp_time, cp_dose
// and the cell viability and gene expression columns as inputs, and one binary label
// per scored target.
//
// Samples are assigned to folds before the control samples are dropped, and the
// dataset exposes either the samples of one fold (validation) or all the others
// (train).
type MoA struct {
	*table

	nFolds, fold int
	featureNames []string
	targetNames  []string
	sigIDs       []string
	assignments  []FoldAssignment
}

// moaSample is a joined row of the three MoA files.
type moaSample struct {
	sigID, drugID string
	control       bool
	inputs        []float32
	targets       []float32
}

// NewMoA loads the MoA training files from root, assigns nFolds stratified folds
// grouped by drug and returns the validation split for fold (train == false) or the
// samples of all other folds (train == true).
//
// Samples without targets or drug_id, or with missing values, are dropped before the
// folds are assigned. Control samples are dropped afterwards.
func NewMoA(root string, train bool, nFolds, fold int) (*MoA, error) {
	if nFolds < 2 {
		return nil, errors.Errorf("nFolds must be at least 2, got %d", nFolds)
	}
	if fold < 0 || fold >= nFolds {
		return nil, errors.Errorf("fold must be in [0, %d), got %d", nFolds, fold)
	}
	root, err := expandRoot(root)
	if err != nil {
		return nil, err
	}

	samples, featureNames, targetNames, err := loadMoASamples(root)
	if err != nil {
		return nil, err
	}

	drugIDs := make([]string, len(samples))
	sigIDs := make([]string, len(samples))
	targets := make([][]float32, len(samples))
	for i, s := range samples {
		drugIDs[i], sigIDs[i], targets[i] = s.drugID, s.sigID, s.targets
	}
	folds, err := assignDrugFolds(drugIDs, sigIDs, targets, nFolds, FoldSeed)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to assign MoA folds")
	}

	m := &MoA{
		nFolds:       nFolds,
		fold:         fold,
		featureNames: featureNames,
		targetNames:  targetNames,
	}
	var inputs, labels []float32
	for i, s := range samples {
		if s.control {
			continue
		}
		m.assignments = append(m.assignments, FoldAssignment{SigID: s.sigID, DrugID: s.drugID, Fold: folds[i]})
		if (folds[i] == fold) == train {
			continue
		}
		inputs = append(inputs, s.inputs...)
		labels = append(labels, s.targets...)
		m.sigIDs = append(m.sigIDs, s.sigID)
	}

	split := "valid"
	if train {
		split = "train"
	}
	m.table = newTable(fmt.Sprintf("MoA [%s fold %d/%d]", split, fold, nFolds),
		inputs, len(featureNames), labels, len(targetNames))
	klog.Infof("Loaded %d MoA %s samples (fold %d of %d, %d treated samples in total)",
		m.Len(), split, fold, nFolds, len(m.assignments))
	return m, nil
}

// FeatureNames are the input columns, in order.
func (m *MoA) FeatureNames() []string { return m.featureNames }

// TargetNames are the scored target columns, in label order.
func (m *MoA) TargetNames() []string { return m.targetNames }

// SigID returns the sig_id of example i.
func (m *MoA) SigID(i int) string { return m.sigIDs[i] }

// Assignments lists the fold of every treated sample, in both splits, in file order.
func (m *MoA) Assignments() []FoldAssignment { return m.assignments }

// Fold is the fold held out for validation.
func (m *MoA) Fold() int { return m.fold }

// NumFolds is the number of folds the samples were assigned to.
func (m *MoA) NumFolds() int { return m.nFolds }

// readFrame reads a CSV file with header into a DataFrame. Columns listed in
// stringCols are kept as strings, other column types are detected.
func readFrame(path string, stringCols ...string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "failed to open %q", path)
	}
	defer f.Close()

	types := make(map[string]series.Type, len(stringCols))
	for _, col := range stringCols {
		types[col] = series.String
	}
	df := dataframe.ReadCSV(f, dataframe.HasHeader(true), dataframe.WithTypes(types))
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(df.Err, "failed to parse %q", path)
	}
	names := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		names[name] = true
	}
	for _, col := range stringCols {
		if !names[col] {
			return dataframe.DataFrame{}, errors.Errorf("%q: required column %q not found", path, col)
		}
	}
	return df, nil
}

// floatColumn returns the values of a numeric column, with missing values as NaN.
func floatColumn(df dataframe.DataFrame, name string) ([]float64, error) {
	col := df.Col(name)
	if col.Err != nil {
		return nil, errors.Wrapf(col.Err, "column %q", name)
	}
	values := col.Float()
	for i, isNaN := range col.IsNaN() {
		if isNaN {
			values[i] = math.NaN()
		}
	}
	return values, nil
}

// stringColumn returns the values of a string column, with missing values ("NA",
// "NaN") as empty strings.
func stringColumn(df dataframe.DataFrame, name string) []string {
	col := df.Col(name)
	values := col.Records()
	for i, isNaN := range col.IsNaN() {
		if isNaN {
			values[i] = ""
		}
	}
	return values
}

// keyIndex maps each non-empty value of a key column to its first row.
func keyIndex(keys []string) map[string]int {
	idx := make(map[string]int, len(keys))
	for row, key := range keys {
		if key == "" {
			continue
		}
		if _, found := idx[key]; !found {
			idx[key] = row
		}
	}
	return idx
}

// loadMoASamples reads and joins the three MoA files on sig_id, dropping incomplete
// samples. Samples are returned in the order of the features file.
func loadMoASamples(root string) (samples []moaSample, featureNames, targetNames []string, err error) {
	featuresPath := filepath.Join(root, MoAFeaturesFile)
	features, err := readFrame(featuresPath, SigIDCol, CpTypeCol, CpDoseCol)
	if err != nil {
		return nil, nil, nil, err
	}
	targetsPath := filepath.Join(root, MoATargetsFile)
	targetsDF, err := readFrame(targetsPath, SigIDCol)
	if err != nil {
		return nil, nil, nil, err
	}
	drugPath := filepath.Join(root, MoADrugFile)
	drugs, err := readFrame(drugPath, SigIDCol, DrugIDCol)
	if err != nil {
		return nil, nil, nil, err
	}

	// Inputs: cp_time, cp_dose, then the cell and the gene columns.
	var cellCols, geneCols []string
	for _, name := range features.Names() {
		switch {
		case strings.HasPrefix(name, cellColPrefix):
			cellCols = append(cellCols, name)
		case strings.HasPrefix(name, geneColPrefix):
			geneCols = append(geneCols, name)
		}
	}
	featureNames = append([]string{CpTimeCol, CpDoseCol}, cellCols...)
	featureNames = append(featureNames, geneCols...)
	numericCols := make([][]float64, len(featureNames))
	for j, name := range featureNames {
		if name == CpDoseCol {
			continue
		}
		if numericCols[j], err = floatColumn(features, name); err != nil {
			return nil, nil, nil, errors.WithMessagef(err, "%q", featuresPath)
		}
	}

	// Targets: every column of the targets file but the leading sig_id.
	for _, name := range targetsDF.Names() {
		if name != SigIDCol {
			targetNames = append(targetNames, name)
		}
	}
	if len(targetNames) == 0 {
		return nil, nil, nil, errors.Errorf("%q: no target columns", targetsPath)
	}
	targetCols := make([][]float64, len(targetNames))
	for t, name := range targetNames {
		if targetCols[t], err = floatColumn(targetsDF, name); err != nil {
			return nil, nil, nil, errors.WithMessagef(err, "%q", targetsPath)
		}
	}

	targetRow := keyIndex(stringColumn(targetsDF, SigIDCol))
	drugRow := keyIndex(stringColumn(drugs, SigIDCol))
	drugIDs := stringColumn(drugs, DrugIDCol)
	sigIDs := stringColumn(features, SigIDCol)
	cpTypes := stringColumn(features, CpTypeCol)
	cpDoses := stringColumn(features, CpDoseCol)

	var dropped int
	samples = make([]moaSample, 0, len(sigIDs))
nextSample:
	for row, sigID := range sigIDs {
		tRow, hasTargets := targetRow[sigID]
		dRow, hasDrug := drugRow[sigID]
		dose, knownDose := moaDoses[cpDoses[row]]
		if sigID == "" || !hasTargets || !hasDrug || drugIDs[dRow] == "" || cpTypes[row] == "" || !knownDose {
			dropped++
			continue
		}
		s := moaSample{
			sigID:   sigID,
			drugID:  drugIDs[dRow],
			control: cpTypes[row] != TreatmentCpType,
			inputs:  make([]float32, len(featureNames)),
			targets: make([]float32, len(targetNames)),
		}
		for j, col := range numericCols {
			if col == nil {
				s.inputs[j] = dose
				continue
			}
			if math.IsNaN(col[row]) {
				dropped++
				continue nextSample
			}
			s.inputs[j] = float32(col[row])
		}
		for t, col := range targetCols {
			if math.IsNaN(col[tRow]) {
				dropped++
				continue nextSample
			}
			s.targets[t] = float32(col[tRow])
		}
		samples = append(samples, s)
	}
	if dropped > 0 {
		klog.V(1).Infof("Dropped %d incomplete MoA samples of %d", dropped, len(sigIDs))
	}
	return samples, featureNames, targetNames, nil
}
