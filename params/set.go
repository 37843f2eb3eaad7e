package params

import "fmt"

// Set is an ordered collection of parameters with unique names.
//
// Lookup accessors (Int, Float, Enum) address parameters that the owner is
// known to have registered; a missing name or kind mismatch is a programming
// error and panics. The Set* mutators return errors instead since they carry
// client-provided values.
type Set struct {
	list []Parameter
}

// Register appends a parameter; a duplicate name fails with ErrDuplicateParameter.
func (s *Set) Register(p Parameter) error {
	if s.find(p.name) >= 0 {
		return fmt.Errorf("params: %q: %w", p.name, ErrDuplicateParameter)
	}
	s.list = append(s.list, p)
	return nil
}

// MustRegister is Register that panics on duplicates; intended for the fixed
// registrations performed by solver constructors.
func (s *Set) MustRegister(p Parameter) {
	if err := s.Register(p); err != nil {
		panic(err)
	}
}

// Get returns a pointer to the named parameter, or ErrUnknownParameter.
func (s *Set) Get(name string) (*Parameter, error) {
	if i := s.find(name); i >= 0 {
		return &s.list[i], nil
	}
	return nil, fmt.Errorf("params: %q: %w", name, ErrUnknownParameter)
}

// Has reports whether the named parameter is registered.
func (s *Set) Has(name string) bool { return s.find(name) >= 0 }

// Len returns the number of registered parameters.
func (s *Set) Len() int { return len(s.list) }

// All returns the parameters in registration order.
func (s *Set) All() []Parameter { return s.list }

// Int returns the integer value of a registered parameter; panics on a
// missing name or kind mismatch.
func (s *Set) Int(name string) int64 {
	p, err := s.Get(name)
	if err != nil {
		panic(err)
	}
	v, err := p.Int()
	if err != nil {
		panic(err)
	}
	return v
}

// Float returns the floating-point value of a registered parameter; panics
// on a missing name or kind mismatch.
func (s *Set) Float(name string) float64 {
	p, err := s.Get(name)
	if err != nil {
		panic(err)
	}
	v, err := p.Float()
	if err != nil {
		panic(err)
	}
	return v
}

// Enum returns the enumeration string of a registered parameter; panics on
// a missing name or kind mismatch.
func (s *Set) Enum(name string) string {
	p, err := s.Get(name)
	if err != nil {
		panic(err)
	}
	v, err := p.String()
	if err != nil {
		panic(err)
	}
	return v
}

// SetInt assigns an integer value to the named parameter.
func (s *Set) SetInt(name string, value int64) error {
	p, err := s.Get(name)
	if err != nil {
		return err
	}
	return p.SetInt(value)
}

// SetFloat assigns a floating-point value to the named parameter.
func (s *Set) SetFloat(name string, value float64) error {
	p, err := s.Get(name)
	if err != nil {
		return err
	}
	return p.SetFloat(value)
}

// SetString assigns an enumeration value to the named parameter.
func (s *Set) SetString(name string, value string) error {
	p, err := s.Get(name)
	if err != nil {
		return err
	}
	return p.SetString(value)
}

// Clone returns a deep copy of the Set.
func (s *Set) Clone() Set {
	out := Set{list: make([]Parameter, len(s.list))}
	copy(out.list, s.list)
	for i := range out.list {
		if n := len(out.list[i].enums); n > 0 {
			enums := make([]EnumValue, n)
			copy(enums, out.list[i].enums)
			out.list[i].enums = enums
		}
	}
	return out
}

func (s *Set) find(name string) int {
	for i := range s.list {
		if s.list[i].name == name {
			return i
		}
	}
	return -1
}
