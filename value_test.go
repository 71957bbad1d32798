package homie5

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// valueCase is one entry of the fixtures in testdata/values.
type valueCase struct {
	Name     string  `yaml:"name"`
	Datatype string  `yaml:"datatype"`
	Format   string  `yaml:"format"`
	Input    string  `yaml:"input"`
	Want     *string `yaml:"want"`
	Error    string  `yaml:"error"`
}

var valueErrorKinds = map[string]ValueErrorKind{
	"InvalidColorFormat":     InvalidColorFormat,
	"InvalidIntegerFormat":   InvalidIntegerFormat,
	"InvalidFloatFormat":     InvalidFloatFormat,
	"InvalidEnumFormat":      InvalidEnumFormat,
	"IntegerOutOfRange":      IntegerOutOfRange,
	"FloatOutOfRange":        FloatOutOfRange,
	"InvalidDateTimeFormat":  InvalidDateTimeFormat,
	"InvalidDurationFormat":  InvalidDurationFormat,
	"UnsupportedColorFormat": UnsupportedColorFormat,
	"InvalidBooleanFormat":   InvalidBooleanFormat,
	"JSONParseError":         JSONParseError,
}

func loadValueCases(t *testing.T) []valueCase {
	t.Helper()

	files, err := filepath.Glob(filepath.Join("testdata", "values", "*.yml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	var all []valueCase
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)

		var cases []valueCase
		require.NoError(t, yaml.Unmarshal(data, &cases), f)
		for i := range cases {
			cases[i].Name = filepath.Base(f) + "/" + cases[i].Name
		}
		all = append(all, cases...)
	}
	return all
}

func TestParseValueFixtures(t *testing.T) {
	for _, tc := range loadValueCases(t) {
		t.Run(tc.Name, func(t *testing.T) {
			dt, err := ParseDataType(tc.Datatype)
			require.NoError(t, err)
			format, err := ParseFormat(tc.Format, dt)
			require.NoError(t, err)
			desc := NewPropertyDescriptionBuilder(dt).Format(format).Build()

			v, err := ParseValue(tc.Input, desc)
			if tc.Error != "" {
				kind, ok := valueErrorKinds[tc.Error]
				require.True(t, ok, "unknown error kind %s", tc.Error)

				var verr *ValueError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, kind, verr.Kind)
				assert.ErrorIs(t, err, ErrInvalidHomieValue)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, tc.Want, "fixture needs want or error")
			assert.Equal(t, *tc.Want, v.String())
			assert.Equal(t, dt, v.Datatype())

			// the canonical string parses back to the same value
			again, err := ParseValue(v.String(), desc)
			require.NoError(t, err)
			assert.True(t, ValuesEqual(v, again), "%v != %v", v, again)
			// parsing tolerates a missing enum or color format, validation does not
			strict := (dt == DataTypeEnum || dt == DataTypeColor) && (format == nil || format.IsEmpty())
			assert.Equal(t, !strict, ValidateValue(v, desc))
		})
	}
}

func TestOutOfRangeError(t *testing.T) {
	format, err := ParseFormat("5:15:3", DataTypeInteger)
	require.NoError(t, err)
	desc := NewPropertyDescriptionBuilder(DataTypeInteger).Format(format).Build()

	_, err = ParseValue("16", desc)
	var verr *ValueError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "16", verr.Value)
	assert.Equal(t, "5:15:3", verr.Range)
	assert.EqualError(t, err, "Integer '16' is out of allowed range: 5:15:3")
}

func TestEnumError(t *testing.T) {
	desc := NewPropertyDescriptionBuilder(DataTypeEnum).Format(EnumFormat{"a", "b"}).Build()
	_, err := ParseValue("c", desc)
	var verr *ValueError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"a", "b"}, verr.Allowed)
}

func TestParseValueEmptyEnumFormat(t *testing.T) {
	// without a format any enum value is accepted
	desc := NewPropertyDescription(DataTypeEnum)
	v, err := ParseValue("whatever", desc)
	require.NoError(t, err)
	assert.Equal(t, EnumValue("whatever"), v)
}

func TestTypedValues(t *testing.T) {
	desc := NewPropertyDescription(DataTypeDuration)
	v, err := ParseValue("PT2M", desc)
	require.NoError(t, err)
	assert.Equal(t, DurationValue(2*time.Minute), v)

	desc = NewPropertyDescription(DataTypeDateTime)
	v, err = ParseValue("2024-03-01T12:00:00+01:00", desc)
	require.NoError(t, err)
	dt, ok := v.(DateTimeValue)
	require.True(t, ok)
	assert.Equal(t, time.UTC, dt.Location())
	assert.Equal(t, 11, dt.Hour())

	desc = NewPropertyDescription(DataTypeColor)
	v, err = ParseValue("xyz,0.2,0.3", desc)
	require.NoError(t, err)
	xyz, ok := v.(XYZ)
	require.True(t, ok)
	assert.InDelta(t, 0.5, xyz.Z, 1e-9)
}

func TestDurationString(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "PT0S"},
		{time.Hour, "PT1H"},
		{time.Hour + 5*time.Second, "PT1H5S"},
		{26 * time.Hour, "PT26H"},
		{-90 * time.Second, "-PT1M30S"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DurationValue(tt.d).String())
	}
}

func TestParseDurationOverflow(t *testing.T) {
	desc := NewPropertyDescription(DataTypeDuration)
	for _, in := range []string{"PT3000000H", "PT99999999999999999M", "PT9223372036854775807S"} {
		_, err := ParseValue(in, desc)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrInvalidHomieValue), in)
		var verr *ValueError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, InvalidDurationFormat, verr.Kind, in)
	}

	v, err := ParseValue("PT2562047H", desc)
	require.NoError(t, err)
	assert.Equal(t, DurationValue(2562047*time.Hour), v)
}

func TestValidateValue(t *testing.T) {
	steps := NewPropertyDescriptionBuilder(DataTypeInteger).
		Format(IntegerRange{Min: Ptr[int64](5), Max: Ptr[int64](15), Step: Ptr[int64](3)}).
		Build()
	colors := NewPropertyDescriptionBuilder(DataTypeColor).Format(ColorFormats{ColorFormatRGB}).Build()
	enum := NewPropertyDescriptionBuilder(DataTypeEnum).Format(EnumFormat{"a"}).Build()

	tests := []struct {
		name string
		v    Value
		desc PropertyDescription
		want bool
	}{
		{"on step", IntegerValue(8), steps, true},
		{"off step", IntegerValue(7), steps, false},
		{"out of range", IntegerValue(17), steps, false},
		{"wrong type", FloatValue(8), steps, false},
		{"rgb allowed", RGB{1, 2, 3}, colors, true},
		{"hsv not allowed", HSV{1, 2, 3}, colors, false},
		{"color without format", NewXYZ(0.1, 0.1), NewPropertyDescription(DataTypeColor), false},
		{"color with empty format", RGB{1, 2, 3}, NewPropertyDescriptionBuilder(DataTypeColor).Format(ColorFormats{}).Build(), false},
		{"enum member", EnumValue("a"), enum, true},
		{"enum non member", EnumValue("b"), enum, false},
		{"enum without format", EnumValue("b"), NewPropertyDescription(DataTypeEnum), false},
		{"enum with empty format", EnumValue("b"), NewPropertyDescriptionBuilder(DataTypeEnum).Format(EnumFormat{}).Build(), false},
		{"string", StringValue("x"), NewPropertyDescription(DataTypeString), true},
		{"empty", EmptyValue{}, NewPropertyDescription(DataTypeString), true},
		{"bool", BoolValue(true), NewPropertyDescription(DataTypeBoolean), true},
		{"json", JSONValue{Data: map[string]any{}}, NewPropertyDescription(DataTypeJSON), true},
		{"nil", nil, NewPropertyDescription(DataTypeString), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateValue(tt.v, tt.desc))
		})
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		a, b   Value
		cmp    int
		compOK bool
	}{
		{EmptyValue{}, IntegerValue(1), -1, true},
		{IntegerValue(1), EmptyValue{}, 1, true},
		{IntegerValue(1), IntegerValue(2), -1, true},
		{FloatValue(2.5), FloatValue(2.5), 0, true},
		{StringValue("b"), EnumValue("a"), 1, true},
		{BoolValue(false), BoolValue(true), -1, true},
		{NewXYZ(0.1, 0.2), XYZ{X: 0.1, Y: 0.2, Z: 0.7000000001}, 0, true},
		{RGB{1, 2, 3}, RGB{1, 2, 4}, 0, false},
		{IntegerValue(1), FloatValue(1), 0, false},
		{DurationValue(time.Second), DurationValue(time.Minute), -1, true},
	}

	for _, tt := range tests {
		cmp, ok := CompareValues(tt.a, tt.b)
		assert.Equal(t, tt.compOK, ok, "%v vs %v", tt.a, tt.b)
		if ok {
			assert.Equal(t, tt.cmp, cmp, "%v vs %v", tt.a, tt.b)
		}
	}

	assert.True(t, ValuesEqual(RGB{1, 2, 3}, RGB{1, 2, 3}))
	assert.False(t, ValuesEqual(StringValue("a"), EnumValue("a")))
	assert.True(t, MatchesDatatype(HSV{}, DataTypeColor))
	assert.False(t, MatchesDatatype(nil, DataTypeColor))
}

func TestEncodeString(t *testing.T) {
	// an empty value must not be sent as an empty retained payload
	if p := EncodeString(""); len(p) != 1 || p[0] != 0 {
		t.Errorf("EncodeString(\"\") = %v", p)
	}
	if s := DecodeString([]byte{0}); s != "" {
		t.Errorf("DecodeString(0x00) = %q", s)
	}
	if s := DecodeString([]byte("on")); s != "on" {
		t.Errorf("DecodeString(on) = %q", s)
	}
	assert.Equal(t, []byte("rgb,1,2,3"), EncodeValue(RGB{1, 2, 3}))
	assert.Equal(t, []byte{0}, EncodeValue(StringValue("")))
}

func TestValueErrorIs(t *testing.T) {
	err := error(&ValueError{Kind: JSONParseError, Value: "x"})
	if !errors.Is(err, ErrInvalidHomieValue) {
		t.Errorf("ValueError does not match ErrInvalidHomieValue")
	}
}
