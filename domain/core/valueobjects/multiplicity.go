package valueobjects

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "ontograph/pkg/errors"
)

// MultiplicityPreset names one of the cardinality shortcuts offered by the editor
type MultiplicityPreset string

const (
	PresetNone       MultiplicityPreset = "none"
	PresetExactlyOne MultiplicityPreset = "exactly-one"
	PresetZeroOrOne  MultiplicityPreset = "zero-or-one"
	PresetMany       MultiplicityPreset = "many"
	PresetOneOrMany  MultiplicityPreset = "one-or-many"
	PresetCustom     MultiplicityPreset = "custom"
)

// Presets lists the fixed presets in menu order. Custom is not included.
var Presets = []MultiplicityPreset{
	PresetNone,
	PresetExactlyOne,
	PresetZeroOrOne,
	PresetMany,
	PresetOneOrMany,
}

// Multiplicity is the min/max count constraint on an object property.
// A nil bound means unbounded.
type Multiplicity struct {
	min *int
	max *int
}

// NewMultiplicity validates and creates a multiplicity
func NewMultiplicity(min, max *int) (Multiplicity, error) {
	if min != nil && *min < 0 {
		return Multiplicity{}, pkgerrors.ErrInvalidMultiplicity.WithDetail("min", *min)
	}
	if max != nil && *max < 0 {
		return Multiplicity{}, pkgerrors.ErrInvalidMultiplicity.WithDetail("max", *max)
	}
	if min != nil && max != nil && *min > *max {
		return Multiplicity{}, pkgerrors.ErrInvalidMultiplicity.
			WithDetail("min", *min).
			WithDetail("max", *max)
	}
	return Multiplicity{min: copyInt(min), max: copyInt(max)}, nil
}

// Unbounded returns the (nil, nil) multiplicity
func Unbounded() Multiplicity {
	return Multiplicity{}
}

// MultiplicityFromPreset returns the bounds a fixed preset stands for
func MultiplicityFromPreset(p MultiplicityPreset) (Multiplicity, error) {
	switch p {
	case PresetNone:
		return Multiplicity{}, nil
	case PresetExactlyOne:
		return Multiplicity{min: intPtr(1), max: intPtr(1)}, nil
	case PresetZeroOrOne:
		return Multiplicity{min: intPtr(0), max: intPtr(1)}, nil
	case PresetMany:
		return Multiplicity{min: intPtr(0)}, nil
	case PresetOneOrMany:
		return Multiplicity{min: intPtr(1)}, nil
	case PresetCustom:
		return Multiplicity{}, pkgerrors.NewValidationError("custom multiplicity needs explicit bounds")
	default:
		return Multiplicity{}, pkgerrors.NewValidationError(fmt.Sprintf("unknown multiplicity preset %q", p))
	}
}

// ParseMultiplicity reads the text form typed into the custom entry:
// "", "n", "n..m" or "n..*".
func ParseMultiplicity(text string) (Multiplicity, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Multiplicity{}, nil
	}

	lo, hi, ranged := strings.Cut(text, "..")
	min, err := parseBound(lo, false)
	if err != nil {
		return Multiplicity{}, err
	}
	if !ranged {
		if min == nil {
			return Multiplicity{}, pkgerrors.NewValidationError("a single bound must be a number")
		}
		return NewMultiplicity(min, min)
	}

	max, err := parseBound(hi, true)
	if err != nil {
		return Multiplicity{}, err
	}
	return NewMultiplicity(min, max)
}

func parseBound(s string, allowStar bool) (*int, error) {
	s = strings.TrimSpace(s)
	if allowStar && (s == "*" || s == "n") {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid multiplicity bound %q", s)).WithCause(err)
	}
	return &v, nil
}

// Min returns the lower bound, or nil when unbounded
func (m Multiplicity) Min() *int {
	return copyInt(m.min)
}

// Max returns the upper bound, or nil when unbounded
func (m Multiplicity) Max() *int {
	return copyInt(m.max)
}

// IsUnbounded reports whether neither bound is set
func (m Multiplicity) IsUnbounded() bool {
	return m.min == nil && m.max == nil
}

// Equals compares both bounds by value
func (m Multiplicity) Equals(other Multiplicity) bool {
	return intPtrEqual(m.min, other.min) && intPtrEqual(m.max, other.max)
}

// Preset maps the bounds back onto a preset name, or PresetCustom
func (m Multiplicity) Preset() MultiplicityPreset {
	for _, p := range Presets {
		candidate, _ := MultiplicityFromPreset(p)
		if candidate.Equals(m) {
			return p
		}
	}
	return PresetCustom
}

// Label renders the edge target label derived from the bounds
func (m Multiplicity) Label() string {
	switch m.Preset() {
	case PresetNone:
		return ""
	case PresetExactlyOne:
		return "1"
	case PresetZeroOrOne:
		return "0..1"
	case PresetMany:
		return "0..*"
	case PresetOneOrMany:
		return "1..*"
	}

	lo := "0"
	if m.min != nil {
		lo = strconv.Itoa(*m.min)
	}
	hi := "*"
	if m.max != nil {
		hi = strconv.Itoa(*m.max)
	}
	return lo + ".." + hi
}

// String implements fmt.Stringer
func (m Multiplicity) String() string {
	return m.Label()
}

func intPtr(v int) *int {
	return &v
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
