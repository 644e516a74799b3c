package datasets

import (
	"github.com/pkg/errors"
)

// FieldKind tells how a raw field is encoded.
type FieldKind int

const (
	// Numeric fields are parsed as a float into a single column.
	Numeric FieldKind = iota
	// Categorical fields are one-hot encoded over their Choices.
	Categorical
)

// Unknown is the reserved first choice of every categorical field: values not in the
// choice list are encoded at its index 0.
const Unknown = "unk"

// Field describes one raw input field.
type Field struct {
	Name    string
	Kind    FieldKind
	Choices []string

	choiceIdx map[string]int
}

// NumericField creates a Numeric field.
func NumericField(name string) *Field {
	return &Field{Name: name, Kind: Numeric}
}

// CategoricalField creates a Categorical field. choices[0] is the bucket for unknown
// values and should be Unknown.
func CategoricalField(name string, choices ...string) *Field {
	f := &Field{Name: name, Kind: Categorical, Choices: choices, choiceIdx: make(map[string]int, len(choices))}
	for i, c := range choices {
		f.choiceIdx[c] = i
	}
	return f
}

// Width is the number of encoded columns of the field.
func (f *Field) Width() int {
	if f.Kind == Numeric {
		return 1
	}
	return len(f.Choices)
}

// ChoiceIndex returns the index of value in Choices, or 0 if it is not a known choice.
func (f *Field) ChoiceIndex(value string) int {
	return f.choiceIdx[value]
}

// Schema is the ordered list of fields of a raw row.
type Schema []*Field

// Width is the number of encoded columns of a row.
func (s Schema) Width() int {
	width := 0
	for _, f := range s {
		width += f.Width()
	}
	return width
}

// Offset returns the first encoded column of the field at position fieldIdx.
func (s Schema) Offset(fieldIdx int) int {
	offset := 0
	for _, f := range s[:fieldIdx] {
		offset += f.Width()
	}
	return offset
}

// Encode writes the encoding of values into dst, which must have Width() columns and
// be zeroed. values must have exactly one entry per field.
func (s Schema) Encode(values []string, dst []float32) error {
	if len(values) != len(s) {
		return errors.Wrapf(ErrMalformedRow, "got %d fields, expected %d", len(values), len(s))
	}
	if len(dst) != s.Width() {
		return errors.Errorf("destination has %d columns, expected %d", len(dst), s.Width())
	}
	offset := 0
	for i, f := range s {
		switch f.Kind {
		case Numeric:
			v, err := parseFloat32(values[i])
			if err != nil {
				return errors.Wrapf(ErrMalformedRow, "field %q: %v", f.Name, err)
			}
			dst[offset] = v
		case Categorical:
			dst[offset+f.ChoiceIndex(values[i])] = 1
		}
		offset += f.Width()
	}
	return nil
}

// Decode is the inverse of Encode: numeric columns are formatted back to strings and
// each one-hot block is mapped to its largest column's choice.
func (s Schema) Decode(encoded []float32) ([]string, error) {
	if len(encoded) != s.Width() {
		return nil, errors.Errorf("encoded vector has %d columns, expected %d", len(encoded), s.Width())
	}
	values := make([]string, len(s))
	offset := 0
	for i, f := range s {
		switch f.Kind {
		case Numeric:
			values[i] = formatFloat32(encoded[offset])
		case Categorical:
			best := 0
			for j := 1; j < f.Width(); j++ {
				if encoded[offset+j] > encoded[offset+best] {
					best = j
				}
			}
			values[i] = f.Choices[best]
		}
		offset += f.Width()
	}
	return values, nil
}

// minDenominator keeps constant columns from dividing by zero in MinMax.
const minDenominator = 1e-6

// MinMax is an affine per-column normalization with fixed bounds:
// x' = (x - Min) / max(Max - Min, 1e-6).
type MinMax struct {
	Min, Max []float32
}

func (m MinMax) scale(col int) float32 {
	return max(m.Max[col]-m.Min[col], minDenominator)
}

// Normalize rescales row in place.
func (m MinMax) Normalize(row []float32) {
	for col := range row {
		row[col] = (row[col] - m.Min[col]) / m.scale(col)
	}
}

// Denormalize undoes Normalize in place.
func (m MinMax) Denormalize(row []float32) {
	for col := range row {
		row[col] = row[col]*m.scale(col) + m.Min[col]
	}
}
