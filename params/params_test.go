// Package params_test validates domain checking, duplicate detection and
// the binary round-trip of configurables.
package params_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/optkit/optkit/params"
)

func TestParameter_IntegerDomain(t *testing.T) {
	p, err := params.NewInteger("solver::lbfgs::history", 1, params.LE, 20, params.LE, 1000)
	require.NoError(t, err)

	require.NoError(t, p.SetInt(1))
	require.NoError(t, p.SetInt(1000))
	require.ErrorIs(t, p.SetInt(0), params.ErrInvalidValue)
	require.ErrorIs(t, p.SetInt(1001), params.ErrInvalidValue)

	v, err := p.Int()
	require.NoError(t, err)
	require.Equal(t, int64(1000), v)
}

func TestParameter_OpenBounds(t *testing.T) {
	// (0, 1) on both sides: the bounds themselves are excluded bit-exactly.
	p, err := params.NewFloat("solver::gs::gamma", 0, params.LT, 0.9, params.LT, 1)
	require.NoError(t, err)

	require.ErrorIs(t, p.SetFloat(0), params.ErrInvalidValue)
	require.ErrorIs(t, p.SetFloat(1), params.ErrInvalidValue)
	require.NoError(t, p.SetFloat(1-0x1p-53))

	// closed on the right admits the bound exactly
	q, err := params.NewFloat("solver::gs::theta", 0, params.LT, 0.9, params.LE, 1)
	require.NoError(t, err)
	require.NoError(t, q.SetFloat(1))
}

func TestParameter_RejectsNaN(t *testing.T) {
	p, err := params.NewFloat("solver::epsilon", 0, params.LT, 1e-8, params.LT, 1)
	require.NoError(t, err)
	require.ErrorIs(t, p.SetFloat(math.NaN()), params.ErrInvalidValue)
}

func TestParameter_BadInitialValue(t *testing.T) {
	_, err := params.NewFloat("solver::epsilon", 0, params.LT, -1, params.LT, 1)
	require.ErrorIs(t, err, params.ErrInvalidValue)
}

func TestParameter_Enum(t *testing.T) {
	p, err := params.NewEnum("solver::quasi::initialization", "identity",
		params.EnumValue{Name: "identity", Value: 0},
		params.EnumValue{Name: "scaled", Value: 1})
	require.NoError(t, err)

	require.NoError(t, p.SetString("scaled"))
	require.ErrorIs(t, p.SetString("diagonal"), params.ErrUnknownEnum)

	v, err := p.Int()
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
}

func TestSet_DuplicateRegistration(t *testing.T) {
	var s params.Set
	require.NoError(t, s.Register(params.MustInteger("a", 0, params.LE, 1, params.LE, 10)))
	err := s.Register(params.MustInteger("a", 0, params.LE, 2, params.LE, 10))
	require.ErrorIs(t, err, params.ErrDuplicateParameter)
}

func TestSet_UnknownName(t *testing.T) {
	var s params.Set
	_, err := s.Get("missing")
	require.ErrorIs(t, err, params.ErrUnknownParameter)
	require.ErrorIs(t, s.SetFloat("missing", 1), params.ErrUnknownParameter)
}

func TestConfigurable_RoundTrip(t *testing.T) {
	c := params.NewConfigurable()
	c.Params.MustRegister(params.MustInteger("max_evals", 1, params.LE, 5000, params.LE, 1_000_000))
	c.Params.MustRegister(params.MustFloat("epsilon", 0, params.LT, 1e-8, params.LT, 1))
	c.Params.MustRegister(params.MustEnum("mode", "scaled",
		params.EnumValue{Name: "identity", Value: 0},
		params.EnumValue{Name: "scaled", Value: 1}))

	var buf bytes.Buffer
	_, err := c.WriteTo(&buf)
	require.NoError(t, err)

	d := params.NewConfigurable()
	_, err = d.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	require.Equal(t, int64(5000), d.Params.Int("max_evals"))
	require.Equal(t, 1e-8, d.Params.Float("epsilon"))
	require.Equal(t, "scaled", d.Params.Enum("mode"))

	// the restored domains still validate
	require.ErrorIs(t, d.Params.SetInt("max_evals", 0), params.ErrInvalidValue)
}

func TestConfigurable_RejectsNewerMajor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian,
		[]int32{params.MajorVersion + 1, 0, 0, 0}))

	c := params.NewConfigurable()
	_, err := c.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.ErrorIs(t, err, params.ErrVersionMismatch)
}

func TestConfigurable_TruncatedStream(t *testing.T) {
	c := params.NewConfigurable()
	c.Params.MustRegister(params.MustFloat("epsilon", 0, params.LT, 1e-8, params.LT, 1))

	var buf bytes.Buffer
	_, err := c.WriteTo(&buf)
	require.NoError(t, err)

	for _, cut := range []int{1, 4, 12, buf.Len() - 1} {
		d := params.NewConfigurable()
		_, err = d.ReadFrom(bytes.NewReader(buf.Bytes()[:cut]))
		require.ErrorIs(t, err, params.ErrCorruptStream, "cut=%d", cut)
	}
}
