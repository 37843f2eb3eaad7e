package params

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors for parameter operations.
var (
	// ErrInvalidValue indicates an assignment outside the declared domain.
	ErrInvalidValue = errors.New("params: value out of domain")

	// ErrDuplicateParameter indicates a name registered twice within one Set.
	ErrDuplicateParameter = errors.New("params: duplicate parameter name")

	// ErrUnknownParameter indicates a lookup of a name absent from the Set.
	ErrUnknownParameter = errors.New("params: unknown parameter name")

	// ErrWrongKind indicates a typed accessor applied to the wrong parameter kind.
	ErrWrongKind = errors.New("params: wrong parameter kind")

	// ErrUnknownEnum indicates an enumeration assignment with an unmapped string.
	ErrUnknownEnum = errors.New("params: unknown enumeration value")

	// ErrVersionMismatch indicates a serialized stream newer than the library.
	ErrVersionMismatch = errors.New("params: stream version newer than library")

	// ErrCorruptStream indicates a truncated or malformed binary stream.
	ErrCorruptStream = errors.New("params: corrupt stream")
)

// Tag marks one side of a parameter domain as closed (LE) or open (LT).
type Tag uint8

const (
	// LE admits the bound itself: lo <= value or value <= hi.
	LE Tag = iota

	// LT excludes the bound: lo < value or value < hi.
	LT
)

// String returns the comparison glyph of the tag.
func (t Tag) String() string {
	if t == LE {
		return "<="
	}
	return "<"
}

// Kind discriminates the value stored by a Parameter.
type Kind uint8

const (
	// Integer parameters hold an int64 within an integral domain.
	Integer Kind = iota + 1

	// Float parameters hold a float64 within a real domain.
	Float

	// Enum parameters hold one string out of a fixed string↔int mapping.
	Enum
)

// EnumValue is one admissible (name, value) pair of an enumeration parameter.
type EnumValue struct {
	Name  string
	Value int64
}

// Parameter is a named value cell with a validated domain.
//
// The zero Parameter is invalid; use NewInteger, NewFloat or NewEnum.
type Parameter struct {
	name  string
	kind  Kind
	lotag Tag
	hitag Tag

	ival int64
	ilo  int64
	ihi  int64

	fval float64
	flo  float64
	fhi  float64

	eval  string
	enums []EnumValue
}

// NewInteger builds an integer parameter with the domain [lo, hi] whose
// sides are tagged by lotag and hitag, initialized to value.
// The argument order mirrors the domain: lo <=|< value <=|< hi.
func NewInteger(name string, lo int64, lotag Tag, value int64, hitag Tag, hi int64) (Parameter, error) {
	p := Parameter{name: name, kind: Integer, lotag: lotag, hitag: hitag, ilo: lo, ihi: hi}
	if err := p.SetInt(value); err != nil {
		return Parameter{}, err
	}
	return p, nil
}

// NewFloat builds a floating-point parameter with the domain [lo, hi] whose
// sides are tagged by lotag and hitag, initialized to value.
func NewFloat(name string, lo float64, lotag Tag, value float64, hitag Tag, hi float64) (Parameter, error) {
	p := Parameter{name: name, kind: Float, lotag: lotag, hitag: hitag, flo: lo, fhi: hi}
	if err := p.SetFloat(value); err != nil {
		return Parameter{}, err
	}
	return p, nil
}

// NewEnum builds an enumeration parameter over the given (name, value)
// pairs, initialized to value. The pair order is preserved by serialization.
func NewEnum(name string, value string, values ...EnumValue) (Parameter, error) {
	if len(values) == 0 {
		return Parameter{}, fmt.Errorf("params: enum %q without values: %w", name, ErrInvalidValue)
	}
	p := Parameter{name: name, kind: Enum, enums: values}
	if err := p.SetString(value); err != nil {
		return Parameter{}, err
	}
	return p, nil
}

// MustInteger is NewInteger that panics on error; intended for literal
// registrations whose domains are fixed at compile time.
func MustInteger(name string, lo int64, lotag Tag, value int64, hitag Tag, hi int64) Parameter {
	p, err := NewInteger(name, lo, lotag, value, hitag, hi)
	if err != nil {
		panic(err)
	}
	return p
}

// MustFloat is NewFloat that panics on error.
func MustFloat(name string, lo float64, lotag Tag, value float64, hitag Tag, hi float64) Parameter {
	p, err := NewFloat(name, lo, lotag, value, hitag, hi)
	if err != nil {
		panic(err)
	}
	return p
}

// MustEnum is NewEnum that panics on error.
func MustEnum(name string, value string, values ...EnumValue) Parameter {
	p, err := NewEnum(name, value, values...)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the unique parameter name.
func (p *Parameter) Name() string { return p.name }

// Kind returns the parameter kind.
func (p *Parameter) Kind() Kind { return p.kind }

// Int returns the integer value; ErrWrongKind unless the kind is Integer or Enum.
// For enumerations it returns the mapped integer of the current string.
func (p *Parameter) Int() (int64, error) {
	switch p.kind {
	case Integer:
		return p.ival, nil
	case Enum:
		for _, ev := range p.enums {
			if ev.Name == p.eval {
				return ev.Value, nil
			}
		}
		return 0, fmt.Errorf("params: %q: %w", p.name, ErrUnknownEnum)
	default:
		return 0, fmt.Errorf("params: %q is not integral: %w", p.name, ErrWrongKind)
	}
}

// Float returns the floating-point value; integer parameters are widened.
func (p *Parameter) Float() (float64, error) {
	switch p.kind {
	case Float:
		return p.fval, nil
	case Integer:
		return float64(p.ival), nil
	default:
		return 0, fmt.Errorf("params: %q is not numeric: %w", p.name, ErrWrongKind)
	}
}

// String returns the enumeration string; ErrWrongKind for numeric kinds.
func (p *Parameter) String() (string, error) {
	if p.kind != Enum {
		return "", fmt.Errorf("params: %q is not an enumeration: %w", p.name, ErrWrongKind)
	}
	return p.eval, nil
}

// SetInt assigns an integer value, validating the domain bit-exactly.
func (p *Parameter) SetInt(value int64) error {
	if p.kind != Integer {
		return fmt.Errorf("params: %q is not integral: %w", p.name, ErrWrongKind)
	}
	if !inIntDomain(value, p.ilo, p.lotag, p.ihi, p.hitag) {
		return fmt.Errorf("params: %q: %d not in %d %s v %s %d: %w",
			p.name, value, p.ilo, p.lotag, p.hitag, p.ihi, ErrInvalidValue)
	}
	p.ival = value
	return nil
}

// SetFloat assigns a floating-point value, validating the domain bit-exactly.
// NaN is always rejected.
func (p *Parameter) SetFloat(value float64) error {
	if p.kind != Float {
		if p.kind == Integer && value == math.Trunc(value) && !math.IsInf(value, 0) {
			return p.SetInt(int64(value))
		}
		return fmt.Errorf("params: %q is not floating: %w", p.name, ErrWrongKind)
	}
	if math.IsNaN(value) || !inFloatDomain(value, p.flo, p.lotag, p.fhi, p.hitag) {
		return fmt.Errorf("params: %q: %g not in %g %s v %s %g: %w",
			p.name, value, p.flo, p.lotag, p.hitag, p.fhi, ErrInvalidValue)
	}
	p.fval = value
	return nil
}

// SetString assigns an enumeration value; unknown strings fail with ErrUnknownEnum.
func (p *Parameter) SetString(value string) error {
	if p.kind != Enum {
		return fmt.Errorf("params: %q is not an enumeration: %w", p.name, ErrWrongKind)
	}
	for _, ev := range p.enums {
		if ev.Name == value {
			p.eval = value
			return nil
		}
	}
	return fmt.Errorf("params: %q: %q: %w", p.name, value, ErrUnknownEnum)
}

// Enums returns the admissible (name, value) pairs of an enumeration parameter.
func (p *Parameter) Enums() []EnumValue { return p.enums }

func inIntDomain(v, lo int64, lotag Tag, hi int64, hitag Tag) bool {
	if lotag == LE && v < lo || lotag == LT && v <= lo {
		return false
	}
	if hitag == LE && v > hi || hitag == LT && v >= hi {
		return false
	}
	return true
}

func inFloatDomain(v, lo float64, lotag Tag, hi float64, hitag Tag) bool {
	if lotag == LE && v < lo || lotag == LT && v <= lo {
		return false
	}
	if hitag == LE && v > hi || hitag == LT && v >= hi {
		return false
	}
	return true
}
