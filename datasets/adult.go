package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// UCI Adult file names.
const (
	AdultTrainFile = "adult.data"
	AdultTestFile  = "adult.test"
)

// adultNumFields is the number of comma separated fields of an Adult row: 14 inputs
// and the label.
const adultNumFields = 15

// adultLabelFalse prefixes the label of the "<=50K" class (class 0). adult.test
// labels carry a trailing ".", hence the prefix match.
const adultLabelFalse = "<=50K"

// ErrMalformedRow is returned (wrapped) when a row of a strictly parsed file does not
// have the expected fields.
var ErrMalformedRow = errors.New("malformed row")

// AdultSchema lists the 14 input fields of the Adult dataset, in file order.
var AdultSchema = Schema{
	NumericField("age"),
	CategoricalField("workclass", Unknown, "Private", "Self-emp-not-inc", "Self-emp-inc", "Federal-gov", "Local-gov",
		"State-gov", "Without-pay", "Never-worked"),
	NumericField("fnlwgt"),
	CategoricalField("education", Unknown, "Bachelors", "Some-college", "11th", "HS-grad", "Prof-school",
		"Assoc-acdm", "Assoc-voc", "9th", "7th-8th", "12th", "Masters", "1st-4th", "10th", "Doctorate",
		"5th-6th", "Preschool"),
	NumericField("education-num"),
	CategoricalField("marital-status", Unknown, "Married-civ-spouse", "Divorced", "Never-married", "Separated",
		"Widowed", "Married-spouse-absent", "Married-AF-spouse"),
	CategoricalField("occupation", Unknown, "Tech-support", "Craft-repair", "Other-service", "Sales",
		"Exec-managerial", "Prof-specialty", "Handlers-cleaners", "Machine-op-inspct", "Adm-clerical",
		"Farming-fishing", "Transport-moving", "Priv-house-serv", "Protective-serv", "Armed-Forces"),
	CategoricalField("relationship", Unknown, "Wife", "Own-child", "Husband", "Not-in-family", "Other-relative",
		"Unmarried"),
	CategoricalField("race", Unknown, "White", "Asian-Pac-Islander", "Amer-Indian-Eskimo", "Other", "Black"),
	CategoricalField("sex", Unknown, "Female", "Male"),
	NumericField("capital-gain"),
	NumericField("capital-loss"),
	NumericField("hours-per-week"),
	CategoricalField("native-country", Unknown, "United-States", "Cambodia", "England", "Puerto-Rico", "Canada",
		"Germany", "Outlying-US(Guam-USVI-etc)", "India", "Japan", "Greece", "South", "China", "Cuba", "Iran",
		"Honduras", "Philippines", "Italy", "Poland", "Jamaica", "Vietnam", "Mexico", "Portugal", "Ireland",
		"France", "Dominican-Republic", "Laos", "Ecuador", "Taiwan", "Haiti", "Columbia", "Hungary", "Guatemala",
		"Nicaragua", "Scotland", "Thailand", "Yugoslavia", "El-Salvador", "Trinadad&Tobago", "Peru", "Hong",
		"Holand-Netherlands"),
}

// AdultBounds are the per-column bounds of the encoded training file. They are applied
// unchanged to the test file, whose values may therefore fall outside [0, 1].
var AdultBounds = MinMax{
	Min: []float32{
		17, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		12285, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 1, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		1, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0,
	},
	Max: []float32{
		90, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1484705, 0, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, 16, 0,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 0, 1, 1, 1, 1, 1, 1, 0,
		1, 1, 1, 1, 1, 0, 1, 1, 99999, 4356,
		99, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1,
	},
}

// Adult is the UCI Adult census income dataset: 113 normalized features per example
// and class 1 for ">50K", 0 for "<=50K".
type Adult struct {
	*classTable
	path string
}

// NewAdult loads adult.data (train) or adult.test from root.
//
// Unknown categorical values fall into the "unk" column of their field, but a row
// that doesn't have exactly 15 fields, or whose numeric fields don't parse, fails the
// whole load with an error wrapping ErrMalformedRow.
func NewAdult(root string, train bool) (*Adult, error) {
	root, err := expandRoot(root)
	if err != nil {
		return nil, err
	}
	fileName, split := AdultTestFile, "test"
	if train {
		fileName, split = AdultTrainFile, "train"
	}
	path := filepath.Join(root, fileName)
	inputs, classes, err := loadAdultFile(path)
	if err != nil {
		return nil, err
	}
	klog.Infof("Loaded %d Adult %s examples from %s", len(classes), split, path)
	return &Adult{
		classTable: newClassTable(fmt.Sprintf("UCI Adult [%s]", split), inputs, AdultSchema.Width(), classes, 2),
		path:  path,
	}, nil
}

// Path of the file the dataset was loaded from.
func (a *Adult) Path() string { return a.path }

func loadAdultFile(path string) (inputs []float32, classes []int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open Adult file %q", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comment = '|'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	width := AdultSchema.Width()
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to read %q", path)
		}
		line, _ := reader.FieldPos(0)
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		row := make([]float32, width)
		class, err := encodeAdultRecord(record, row)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "%s:%d", path, line)
		}
		inputs = append(inputs, row...)
		classes = append(classes, class)
	}
	return inputs, classes, nil
}

// encodeAdultRecord encodes and normalizes one raw Adult record into row and returns
// its class.
func encodeAdultRecord(record []string, row []float32) (int, error) {
	if len(record) != adultNumFields {
		return 0, errors.Wrapf(ErrMalformedRow, "got %d fields, expected %d", len(record), adultNumFields)
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	if err := AdultSchema.Encode(record[:adultNumFields-1], row); err != nil {
		return 0, err
	}
	AdultBounds.Normalize(row)
	if strings.HasPrefix(record[adultNumFields-1], adultLabelFalse) {
		return 0, nil
	}
	return 1, nil
}

// EncodeAdultRow encodes a raw comma separated Adult line, including its label, into
// the normalized feature vector and class used by the Adult dataset.
func EncodeAdultRow(line string) (features []float32, class int, err error) {
	features = make([]float32, AdultSchema.Width())
	class, err = encodeAdultRecord(splitComma(line), features)
	if err != nil {
		return nil, 0, err
	}
	return features, class, nil
}

// DecodeAdultFeatures maps a normalized Adult feature vector back to the raw field
// values (without the label).
func DecodeAdultFeatures(features []float32) ([]string, error) {
	raw := append([]float32(nil), features...)
	if len(raw) != len(AdultBounds.Min) {
		return nil, errors.Errorf("feature vector has %d columns, expected %d", len(raw), len(AdultBounds.Min))
	}
	AdultBounds.Denormalize(raw)
	return AdultSchema.Decode(raw)
}
