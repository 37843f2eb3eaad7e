package params

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Library version persisted by every Configurable.
const (
	MajorVersion int32 = 1
	MinorVersion int32 = 0
	PatchVersion int32 = 0
)

// Configurable couples a parameter Set with the library version triple and
// supports a little-endian binary round-trip.
type Configurable struct {
	major int32
	minor int32
	patch int32

	// Params is the owned parameter collection.
	Params Set
}

// NewConfigurable returns a Configurable stamped with the library version.
func NewConfigurable() Configurable {
	return Configurable{major: MajorVersion, minor: MinorVersion, patch: PatchVersion}
}

// Version returns the (major, minor, patch) triple of the configurable.
func (c *Configurable) Version() (int32, int32, int32) { return c.major, c.minor, c.patch }

// WriteTo serializes the version triple followed by the length-prefixed
// parameter list, little-endian fixed width throughout.
func (c *Configurable) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	for _, v := range []int32{c.major, c.minor, c.patch} {
		if err := binary.Write(cw, binary.LittleEndian, v); err != nil {
			return cw.n, errors.Wrap(err, "params: write version")
		}
	}
	if err := binary.Write(cw, binary.LittleEndian, int32(c.Params.Len())); err != nil {
		return cw.n, errors.Wrap(err, "params: write count")
	}
	for i := range c.Params.list {
		if err := writeParameter(cw, &c.Params.list[i]); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

// ReadFrom deserializes a stream produced by WriteTo. A major version
// strictly greater than the library's fails with ErrVersionMismatch; any
// truncation or malformed payload fails with ErrCorruptStream.
func (c *Configurable) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}

	var major, minor, patch, count int32
	for _, dst := range []*int32{&major, &minor, &patch, &count} {
		if err := binary.Read(cr, binary.LittleEndian, dst); err != nil {
			return cr.n, fmt.Errorf("params: short header: %w", ErrCorruptStream)
		}
	}
	if major > MajorVersion {
		return cr.n, fmt.Errorf("params: stream v%d.%d.%d: %w", major, minor, patch, ErrVersionMismatch)
	}
	if count < 0 {
		return cr.n, fmt.Errorf("params: negative parameter count: %w", ErrCorruptStream)
	}

	set := Set{}
	for i := int32(0); i < count; i++ {
		p, err := readParameter(cr)
		if err != nil {
			return cr.n, err
		}
		if err := set.Register(p); err != nil {
			return cr.n, err
		}
	}

	c.major, c.minor, c.patch = major, minor, patch
	c.Params = set
	return cr.n, nil
}

func writeParameter(w io.Writer, p *Parameter) error {
	if err := writeString(w, p.name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(p.kind)); err != nil {
		return errors.Wrapf(err, "params: write %q", p.name)
	}
	switch p.kind {
	case Integer:
		data := []int64{int64(p.lotag), int64(p.hitag), p.ilo, p.ihi, p.ival}
		return errors.Wrapf(binary.Write(w, binary.LittleEndian, data), "params: write %q", p.name)
	case Float:
		if err := binary.Write(w, binary.LittleEndian, []int64{int64(p.lotag), int64(p.hitag)}); err != nil {
			return errors.Wrapf(err, "params: write %q", p.name)
		}
		bits := []uint64{math.Float64bits(p.flo), math.Float64bits(p.fhi), math.Float64bits(p.fval)}
		return errors.Wrapf(binary.Write(w, binary.LittleEndian, bits), "params: write %q", p.name)
	default: // Enum
		if err := writeString(w, p.eval); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, int32(len(p.enums))); err != nil {
			return errors.Wrapf(err, "params: write %q", p.name)
		}
		for _, ev := range p.enums {
			if err := writeString(w, ev.Name); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, ev.Value); err != nil {
				return errors.Wrapf(err, "params: write %q", p.name)
			}
		}
		return nil
	}
}

func readParameter(r io.Reader) (Parameter, error) {
	name, err := readString(r)
	if err != nil {
		return Parameter{}, err
	}
	var kind uint8
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return Parameter{}, fmt.Errorf("params: %q: short kind: %w", name, ErrCorruptStream)
	}
	switch Kind(kind) {
	case Integer:
		data := make([]int64, 5)
		if err := binary.Read(r, binary.LittleEndian, data); err != nil {
			return Parameter{}, fmt.Errorf("params: %q: short payload: %w", name, ErrCorruptStream)
		}
		return NewInteger(name, data[2], Tag(data[0]), data[4], Tag(data[1]), data[3])
	case Float:
		tags := make([]int64, 2)
		if err := binary.Read(r, binary.LittleEndian, tags); err != nil {
			return Parameter{}, fmt.Errorf("params: %q: short payload: %w", name, ErrCorruptStream)
		}
		bits := make([]uint64, 3)
		if err := binary.Read(r, binary.LittleEndian, bits); err != nil {
			return Parameter{}, fmt.Errorf("params: %q: short payload: %w", name, ErrCorruptStream)
		}
		return NewFloat(name,
			math.Float64frombits(bits[0]), Tag(tags[0]),
			math.Float64frombits(bits[2]), Tag(tags[1]),
			math.Float64frombits(bits[1]))
	case Enum:
		value, err := readString(r)
		if err != nil {
			return Parameter{}, err
		}
		var count int32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil || count <= 0 {
			return Parameter{}, fmt.Errorf("params: %q: bad enum count: %w", name, ErrCorruptStream)
		}
		values := make([]EnumValue, count)
		for i := range values {
			if values[i].Name, err = readString(r); err != nil {
				return Parameter{}, err
			}
			if err := binary.Read(r, binary.LittleEndian, &values[i].Value); err != nil {
				return Parameter{}, fmt.Errorf("params: %q: short enum: %w", name, ErrCorruptStream)
			}
		}
		return NewEnum(name, value, values...)
	default:
		return Parameter{}, fmt.Errorf("params: %q: kind %d: %w", name, kind, ErrCorruptStream)
	}
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return errors.Wrap(err, "params: write string")
	}
	_, err := w.Write([]byte(s))
	return errors.Wrap(err, "params: write string")
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("params: short string: %w", ErrCorruptStream)
	}
	const maxLen = 1 << 20
	if n > maxLen {
		return "", fmt.Errorf("params: string of %d bytes: %w", n, ErrCorruptStream)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("params: short string: %w", ErrCorruptStream)
	}
	return string(buf), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
