package homie5

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		raw  string
		dt   DataType
		want PropertyFormat
	}{
		{"", DataTypeInteger, EmptyFormat{}},
		{"::", DataTypeInteger, EmptyFormat{}},
		{"1:10", DataTypeInteger, IntegerRange{Min: Ptr[int64](1), Max: Ptr[int64](10)}},
		{"5:15:3", DataTypeInteger, IntegerRange{Min: Ptr[int64](5), Max: Ptr[int64](15), Step: Ptr[int64](3)}},
		{"::2", DataTypeInteger, IntegerRange{Step: Ptr[int64](2)}},
		{"0::0.5", DataTypeFloat, FloatRange{Min: Ptr(0.0), Step: Ptr(0.5)}},
		{":10.5", DataTypeFloat, FloatRange{Max: Ptr(10.5)}},
		{"a,b,c", DataTypeEnum, EnumFormat{"a", "b", "c"}},
		{"rgb,xyz", DataTypeColor, ColorFormats{ColorFormatRGB, ColorFormatXYZ}},
		{"off,on", DataTypeBoolean, BooleanFormat{FalseVal: "off", TrueVal: "on"}},
		{`{"type":"object"}`, DataTypeJSON, JSONFormat(`{"type":"object"}`)},
		{"anything", DataTypeString, CustomFormat("anything")},
	}

	for _, tt := range tests {
		f, err := ParseFormat(tt.raw, tt.dt)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, f, tt.raw)
	}
}

func TestParseFormatErrors(t *testing.T) {
	tests := []struct {
		raw  string
		dt   DataType
		want error
	}{
		{"1:2:3:4", DataTypeInteger, ErrInvalidNumberRangeFormat},
		{"a:10", DataTypeInteger, ErrInvalidNumberRangeFormat},
		{"1.5:10", DataTypeInteger, ErrInvalidNumberRangeFormat},
		{"10:1", DataTypeInteger, ErrInvalidNumberRangeFormat},
		{"0:10:0", DataTypeInteger, ErrInvalidNumberRangeFormat},
		{"0:10:-1", DataTypeFloat, ErrInvalidNumberRangeFormat},
		{"0:1:2", DataTypeFloat, ErrInvalidNumberRangeFormat},
		{"rgb,cmyk", DataTypeColor, ErrInvalidColorFormatSpec},
		{"on", DataTypeBoolean, ErrInvalidBooleanFormatSpec},
		{"on,on", DataTypeBoolean, ErrInvalidBooleanFormatSpec},
		{",on", DataTypeBoolean, ErrInvalidBooleanFormatSpec},
		{"a,b,c", DataTypeBoolean, ErrInvalidBooleanFormatSpec},
	}

	for _, tt := range tests {
		_, err := ParseFormat(tt.raw, tt.dt)
		assert.ErrorIs(t, err, tt.want, tt.raw)
	}
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		f    PropertyFormat
		want string
	}{
		{IntegerRange{Min: Ptr[int64](1), Max: Ptr[int64](10)}, "1:10"},
		{IntegerRange{Min: Ptr[int64](1)}, "1:"},
		{IntegerRange{Max: Ptr[int64](10)}, ":10"},
		{IntegerRange{Step: Ptr[int64](2)}, "::2"},
		{IntegerRange{Min: Ptr[int64](1), Step: Ptr[int64](2)}, "1::2"},
		{IntegerRange{Min: Ptr[int64](5), Max: Ptr[int64](15), Step: Ptr[int64](3)}, "5:15:3"},
		{FloatRange{Min: Ptr(0.0), Step: Ptr(0.5)}, "0::0.5"},
		{FloatRange{Min: Ptr(-1.25), Max: Ptr(2.0)}, "-1.25:2"},
		{EnumFormat{"a", "b"}, "a,b"},
		{ColorFormats{ColorFormatHSV}, "hsv"},
		{BooleanFormat{FalseVal: "closed", TrueVal: "open"}, "closed,open"},
		{EmptyFormat{}, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.f.String())
	}
}

func TestFormatRoundTrip(t *testing.T) {
	// every display string parses back to the same format
	for _, raw := range []string{"1:10", "1:", ":10", "::2", "1::2", "-5:5:5"} {
		f, err := ParseFormat(raw, DataTypeInteger)
		require.NoError(t, err)
		again, err := ParseFormat(f.String(), DataTypeInteger)
		require.NoError(t, err)
		assert.Equal(t, f, again, raw)
	}
}

func TestDataType(t *testing.T) {
	for _, name := range []string{"integer", "float", "boolean", "string", "enum", "color", "datetime", "duration", "json"} {
		dt, err := ParseDataType(name)
		require.NoError(t, err)
		assert.Equal(t, name, dt.String())
	}
	_, err := ParseDataType("number")
	assert.ErrorIs(t, err, ErrInvalidHomieDataType)
}

func TestUnits(t *testing.T) {
	assert.True(t, IsRecommendedUnit(UnitPercent))
	assert.True(t, IsRecommendedUnit(UnitDegreeCelsius))
	assert.False(t, IsRecommendedUnit("furlongs"))
}
