package settings

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fields struct {
	Label   string
	Enabled bool
	Step    int
	Ratio   float64
	Extra   []string

	raw map[string]string
}

func (p *fields) DescribeSettings() []Field {
	return []Field{
		String("Label", &p.Label),
		Bool("Enabled", &p.Enabled),
		Int("Step", &p.Step),
		Float("Ratio", &p.Ratio),
		Declared("Extra", KindUnsupported, func(v any) { p.Extra = append(p.Extra, v.(string)) }),
	}
}

func (p *fields) SetRawSettings(values map[string]string) { p.raw = values }

func TestBindAppliesDeclaredFields(t *testing.T) {
	p := &fields{Step: 1}
	warnings := Bind(map[string]string{
		"Label":   "Counter",
		"Enabled": "true",
		"Step":    " 5 ",
		"Ratio":   "0.25",
		"Other":   "kept raw",
	}, p)

	assert.Empty(t, warnings)
	assert.Equal(t, "Counter", p.Label)
	assert.True(t, p.Enabled)
	assert.Equal(t, 5, p.Step)
	assert.InDelta(t, 0.25, p.Ratio, 1e-9)
	assert.Equal(t, "kept raw", p.raw["Other"])
}

func TestBindKeepsDefaultsForMissingValues(t *testing.T) {
	p := &fields{Label: "default", Step: 3}
	assert.Empty(t, Bind(map[string]string{"Enabled": "1"}, p))

	assert.Equal(t, "default", p.Label)
	assert.Equal(t, 3, p.Step)
	assert.True(t, p.Enabled)
}

func TestBindReportsCoercionFailures(t *testing.T) {
	p := &fields{Step: 7, Ratio: 1.5}
	warnings := Bind(map[string]string{
		"Step":  "seven",
		"Ratio": "wide",
		"Label": "still applied",
	}, p)

	require.Len(t, warnings, 2)
	assert.Equal(t, 7, p.Step)
	assert.InDelta(t, 1.5, p.Ratio, 1e-9)
	assert.Equal(t, "still applied", p.Label)

	var ce *CoercionError
	require.True(t, errors.As(warnings[0], &ce))
	assert.Equal(t, "Step", ce.Field)
	assert.Equal(t, KindInt, ce.Kind)
	assert.ErrorIs(t, warnings[0], strconv.ErrSyntax)
}

func TestBindUnsupportedKind(t *testing.T) {
	p := &fields{}
	warnings := Bind(map[string]string{"Extra": "a"}, p)

	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], ErrUnsupportedKind)
	assert.Empty(t, p.Extra)
}

func TestBindStoresRawCopy(t *testing.T) {
	values := map[string]string{"Label": "x"}
	p := &fields{}
	Bind(values, p)

	values["Label"] = "changed"
	assert.Equal(t, "x", p.raw["Label"])
}

func TestBindNilInputs(t *testing.T) {
	assert.Nil(t, Bind(map[string]string{"Label": "x"}, nil))

	p := &fields{Label: "keep"}
	assert.Empty(t, Bind(nil, p))
	assert.Equal(t, "keep", p.Label)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"string", KindString},
		{"Boolean", KindBool},
		{"int", KindInt},
		{"number", KindFloat},
		{" float ", KindFloat},
		{"table", KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKind(tt.in))
		})
	}
}
