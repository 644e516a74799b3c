package datasets

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	moaFixtureFeaturesHeader = "sig_id,cp_type,cp_time,cp_dose,g-0,g-1,c-0"
	moaFixtureTargetsHeader  = "sig_id,t_a,t_b,t_c"
	moaFixtureDrugHeader     = "sig_id,drug_id"

	moaFixtureSmallDrugs = 20
	moaFixtureControlID  = "cacb2b860"
)

// moaFixture describes the generated MoA files.
type moaFixture struct {
	dir string

	// drugOf maps every treated, complete sig_id to its drug.
	drugOf map[string]string
	// controls and incomplete are sig_ids that must not be loaded.
	controls, incomplete []string
}

// writeMoAFixture writes 20 small drugs of 2 to 4 samples, two large drugs of 25 and
// 20 samples, a control drug and a few incomplete samples, including "NA" drug_id and
// cp_type values.
func writeMoAFixture(t *testing.T) *moaFixture {
	t.Helper()
	fx := &moaFixture{dir: fixtureDir(t), drugOf: make(map[string]string)}
	var features, targets, drugs []string
	n := 0
	add := func(drug, cpType, dose string, label int, withDrug bool) string {
		sigID := fmt.Sprintf("id_%03d", n)
		features = append(features, fmt.Sprintf("%s,%s,%d,%s,%.2f,%.2f,%.2f",
			sigID, cpType, 24*(1+n%3), dose, float64(n)/10, -float64(n)/10, 0.5))
		oneHot := []string{"0", "0", "0"}
		oneHot[label] = "1"
		targets = append(targets, sigID+","+strings.Join(oneHot, ","))
		if withDrug {
			drugs = append(drugs, sigID+","+drug)
		}
		n++
		return sigID
	}

	for g := range moaFixtureSmallDrugs {
		drug := fmt.Sprintf("small%02d", g)
		for range 2 + g%3 {
			fx.drugOf[add(drug, "trt_cp", "D1", g%3, true)] = drug
		}
	}
	for i := range 25 {
		fx.drugOf[add("bigA", "trt_cp", "D2", i%3, true)] = "bigA"
	}
	for i := range 20 {
		fx.drugOf[add("bigB", "trt_cp", "D1", (i+1)%3, true)] = "bigB"
	}
	for i := range 6 {
		fx.controls = append(fx.controls, add(moaFixtureControlID, "ctl_vehicle", "D1", i%3, true))
	}
	fx.incomplete = append(fx.incomplete,
		add("small00", "trt_cp", "D1", 0, false),
		add("small01", "trt_cp", "D3", 0, true),
		add("NA", "trt_cp", "D1", 1, true),
		add("small03", "NA", "D1", 2, true),
	)

	// A sample with a missing gene expression value.
	nanID := fmt.Sprintf("id_%03d", n)
	features = append(features, nanID+",trt_cp,24,D1,NaN,0.1,0.1")
	targets = append(targets, nanID+",1,0,0")
	drugs = append(drugs, nanID+",small02")
	fx.incomplete = append(fx.incomplete, nanID)

	writeCSV(t, filepath.Join(fx.dir, MoAFeaturesFile), moaFixtureFeaturesHeader, features)
	writeCSV(t, filepath.Join(fx.dir, MoATargetsFile), moaFixtureTargetsHeader, targets)
	writeCSV(t, filepath.Join(fx.dir, MoADrugFile), moaFixtureDrugHeader, drugs)
	return fx
}

func TestNewMoA_Splits(t *testing.T) {
	fx := writeMoAFixture(t)
	const nFolds = 5
	treated := len(fx.drugOf)
	require.Equal(t, 104, treated)

	totalValid := 0
	for fold := range nFolds {
		train, err := NewMoA(fx.dir, true, nFolds, fold)
		require.NoError(t, err)
		valid, err := NewMoA(fx.dir, false, nFolds, fold)
		require.NoError(t, err)
		assert.Equal(t, treated, train.Len()+valid.Len(), "fold %d", fold)
		assert.Greater(t, valid.Len(), 0, "fold %d", fold)
		assert.Equal(t, fold, valid.Fold())
		assert.Equal(t, nFolds, valid.NumFolds())
		totalValid += valid.Len()

		foldOf := make(map[string]int)
		for _, a := range valid.Assignments() {
			foldOf[a.SigID] = a.Fold
		}
		for i := range valid.Len() {
			assert.Equal(t, fold, foldOf[valid.SigID(i)], "valid sample %s", valid.SigID(i))
		}
		for i := range train.Len() {
			assert.NotEqual(t, fold, foldOf[train.SigID(i)], "train sample %s", train.SigID(i))
		}
	}
	assert.Equal(t, treated, totalValid, "every treated sample is validated exactly once")
}

func TestNewMoA_Assignments(t *testing.T) {
	fx := writeMoAFixture(t)
	m, err := NewMoA(fx.dir, true, 5, 0)
	require.NoError(t, err)

	assignments := m.Assignments()
	require.Len(t, assignments, len(fx.drugOf))
	drugFolds := make(map[string]map[int]bool)
	for _, a := range assignments {
		assert.Equal(t, fx.drugOf[a.SigID], a.DrugID, "sig_id %s", a.SigID)
		assert.GreaterOrEqual(t, a.Fold, 0)
		assert.Less(t, a.Fold, 5)
		if drugFolds[a.DrugID] == nil {
			drugFolds[a.DrugID] = make(map[int]bool)
		}
		drugFolds[a.DrugID][a.Fold] = true
	}
	for drug, folds := range drugFolds {
		if strings.HasPrefix(drug, "small") {
			assert.Len(t, folds, 1, "all samples of drug %s share a fold", drug)
		}
	}
	assert.Greater(t, len(drugFolds["bigA"]), 1, "large drugs are split by sample")

	loaded := make(map[string]bool)
	for _, a := range assignments {
		loaded[a.SigID] = true
	}
	for _, sigID := range append(fx.controls, fx.incomplete...) {
		assert.False(t, loaded[sigID], "sig_id %s", sigID)
	}

	// The fold assignment is deterministic.
	again, err := NewMoA(fx.dir, false, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, assignments, again.Assignments())
}

func TestNewMoA_Columns(t *testing.T) {
	fx := writeMoAFixture(t)
	m, err := NewMoA(fx.dir, false, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"cp_time", "cp_dose", "c-0", "g-0", "g-1"}, m.FeatureNames())
	assert.Equal(t, []string{"t_a", "t_b", "t_c"}, m.TargetNames())
	assert.Equal(t, 5, m.InputDim())
	assert.Equal(t, 3, m.LabelDim())
	_, isClass := any(m).(ClassDataset)
	assert.False(t, isClass, "MoA labels are multi-label")

	byID := make(map[string]int)
	for i := range m.Len() {
		byID[m.SigID(i)] = i
	}
	for _, a := range m.Assignments() {
		i, found := byID[a.SigID]
		if !found {
			continue
		}
		var n int
		_, err := fmt.Sscanf(a.SigID, "id_%d", &n)
		require.NoError(t, err)
		inputs, labels, err := m.Example(i)
		require.NoError(t, err)
		dose := float32(0)
		if a.DrugID == "bigA" {
			dose = 1
		}
		want := []float32{float32(24 * (1 + n%3)), dose, 0.5, float32(n) / 10, -float32(n) / 10}
		assert.InDeltaSlice(t, want, inputs, 1e-4, "sig_id %s", a.SigID)
		var sum float32
		for _, v := range labels {
			sum += v
		}
		assert.Equal(t, float32(1), sum, "sig_id %s", a.SigID)
	}
}

func TestNewMoA_Errors(t *testing.T) {
	fx := writeMoAFixture(t)
	for _, tc := range []struct {
		nFolds, fold int
	}{{1, 0}, {5, 5}, {5, -1}} {
		_, err := NewMoA(fx.dir, true, tc.nFolds, tc.fold)
		assert.Error(t, err, "nFolds=%d fold=%d", tc.nFolds, tc.fold)
	}

	_, err := NewMoA(fixtureDir(t), true, 5, 0)
	assert.Error(t, err, "missing files")

	dir := fixtureDir(t)
	writeCSV(t, filepath.Join(dir, MoAFeaturesFile), "sig_id,cp_time,cp_dose,g-0", []string{"id_000,24,D1,0.1"})
	writeCSV(t, filepath.Join(dir, MoATargetsFile), moaFixtureTargetsHeader, []string{"id_000,1,0,0"})
	writeCSV(t, filepath.Join(dir, MoADrugFile), moaFixtureDrugHeader, []string{"id_000,d"})
	_, err = NewMoA(dir, true, 5, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cp_type")

	// A targets file without any target column.
	dir = fixtureDir(t)
	writeCSV(t, filepath.Join(dir, MoAFeaturesFile), moaFixtureFeaturesHeader, []string{"id_000,trt_cp,24,D1,0.1,0.2,0.3"})
	writeCSV(t, filepath.Join(dir, MoATargetsFile), "sig_id", []string{"id_000"})
	writeCSV(t, filepath.Join(dir, MoADrugFile), moaFixtureDrugHeader, []string{"id_000,d"})
	_, err = NewMoA(dir, true, 5, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no target columns")
}

func TestAssignDrugFolds(t *testing.T) {
	var drugIDs, sigIDs []string
	var targets [][]float32
	for i := range 40 {
		drug := fmt.Sprintf("d%d", i/2)
		if i >= 20 {
			drug = "big"
		}
		label := []float32{0, 0}
		label[i%2] = 1
		drugIDs = append(drugIDs, drug)
		sigIDs = append(sigIDs, fmt.Sprintf("s%d", i))
		targets = append(targets, label)
	}

	folds, err := assignDrugFolds(drugIDs, sigIDs, targets, 4, FoldSeed)
	require.NoError(t, err)
	require.Len(t, folds, 40)
	for i := 0; i < 20; i += 2 {
		assert.Equal(t, folds[i], folds[i+1], "drug %s", drugIDs[i])
	}
	counts := make([]int, 4)
	for _, f := range folds[20:] {
		counts[f]++
	}
	assert.Equal(t, []int{5, 5, 5, 5}, counts, "big drug samples are spread evenly")

	again, err := assignDrugFolds(drugIDs, sigIDs, targets, 4, FoldSeed)
	require.NoError(t, err)
	assert.Equal(t, folds, again)

	// 10 small drugs can't fill 12 folds.
	_, err = assignDrugFolds(drugIDs, sigIDs, targets, 12, FoldSeed)
	assert.Error(t, err)
}

func TestResolveFolds(t *testing.T) {
	folds, err := resolveFolds([]string{"a", "b"}, []string{"s0", "s1"}, map[string]int{"a": 2}, map[string]int{"s1": 1})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, folds)

	_, err = resolveFolds([]string{"a", "c"}, []string{"s0", "s2"}, map[string]int{"a": 2}, map[string]int{"s1": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s2")
}

func TestAssignDrugFolds_SmallDrugBoundary(t *testing.T) {
	var drugIDs, sigIDs []string
	var targets [][]float32
	add := func(drug string, count int) {
		for range count {
			label := []float32{0, 0}
			label[len(sigIDs)%2] = 1
			drugIDs = append(drugIDs, drug)
			sigIDs = append(sigIDs, fmt.Sprintf("s%d", len(sigIDs)))
			targets = append(targets, label)
		}
	}
	add("at-limit", SmallDrugMaxSamples)
	add("over-limit", SmallDrugMaxSamples+1)
	for g := range 3 {
		add(fmt.Sprintf("single%d", g), 1)
	}

	folds, err := assignDrugFolds(drugIDs, sigIDs, targets, 3, FoldSeed)
	require.NoError(t, err)
	drugFolds := make(map[string]map[int]int)
	for i, drug := range drugIDs {
		if drugFolds[drug] == nil {
			drugFolds[drug] = make(map[int]int)
		}
		drugFolds[drug][folds[i]]++
	}
	assert.Len(t, drugFolds["at-limit"], 1, "a drug of %d samples is kept in one fold", SmallDrugMaxSamples)
	assert.Len(t, drugFolds["over-limit"], 3, "a drug of %d samples is split by sample", SmallDrugMaxSamples+1)
	for fold, count := range drugFolds["over-limit"] {
		assert.InDelta(t, 19.0/3.0, count, 1, "fold %d", fold)
	}
}
