package homie5

import (
	"strconv"
	"strings"
)

// PropertyFormat is the parsed $format of a property.  The concrete type
// depends on the property's datatype:
//
//	FloatRange, IntegerRange  float and integer
//	EnumFormat                enum
//	ColorFormats              color
//	BooleanFormat             boolean
//	JSONFormat                json (raw schema, not validated)
//	CustomFormat              anything else
//	EmptyFormat               no format given
type PropertyFormat interface {
	String() string
	IsEmpty() bool
	isPropertyFormat()
}

// ParseFormat parses raw as the format of a property of type dt.
func ParseFormat(raw string, dt DataType) (PropertyFormat, error) {
	if raw == "" {
		return EmptyFormat{}, nil
	}
	switch dt {
	case DataTypeFloat:
		fr, err := ParseFloatRange(raw)
		if err != nil {
			return nil, err
		}
		if fr.IsEmpty() {
			return EmptyFormat{}, nil
		}
		return fr, nil
	case DataTypeInteger:
		ir, err := ParseIntegerRange(raw)
		if err != nil {
			return nil, err
		}
		if ir.IsEmpty() {
			return EmptyFormat{}, nil
		}
		return ir, nil
	case DataTypeEnum:
		return EnumFormat(strings.Split(raw, ",")), nil
	case DataTypeColor:
		var formats ColorFormats
		for _, token := range strings.Split(raw, ",") {
			cf, err := ParseColorFormat(token)
			if err != nil {
				return nil, err
			}
			formats = append(formats, cf)
		}
		return formats, nil
	case DataTypeBoolean:
		return ParseBooleanFormat(raw)
	case DataTypeJSON:
		return JSONFormat(raw), nil
	}
	return CustomFormat(raw), nil
}

// EmptyFormat means the property has no $format.
type EmptyFormat struct{}

func (EmptyFormat) String() string { return "" }
func (EmptyFormat) IsEmpty() bool { return true }
func (EmptyFormat) isPropertyFormat() {}

// EnumFormat lists the allowed values of an enum property.
type EnumFormat []string

func (f EnumFormat) String() string { return strings.Join(f, ",") }
func (f EnumFormat) IsEmpty() bool { return len(f) == 0 }
func (EnumFormat) isPropertyFormat() {}

// Contains reports whether v is an allowed enum value.
func (f EnumFormat) Contains(v string) bool {
	for _, s := range f {
		if s == v {
			return true
		}
	}
	return false
}

// ColorFormat is one of the supported color spaces.
type ColorFormat string

const (
	ColorFormatRGB ColorFormat = "rgb"
	ColorFormatHSV ColorFormat = "hsv"
	ColorFormatXYZ ColorFormat = "xyz"
)

// ParseColorFormat accepts "rgb", "hsv" and "xyz".
func ParseColorFormat(s string) (ColorFormat, error) {
	switch ColorFormat(s) {
	case ColorFormatRGB, ColorFormatHSV, ColorFormatXYZ:
		return ColorFormat(s), nil
	}
	return "", ErrInvalidColorFormatSpec
}

func (c ColorFormat) String() string { return string(c) }

// ColorFormats lists the color spaces a color property accepts.
type ColorFormats []ColorFormat

func (f ColorFormats) String() string { return strings.Join(f.names(), ",") }

func (f ColorFormats) IsEmpty() bool { return len(f) == 0 }
func (ColorFormats) isPropertyFormat() {}

func (f ColorFormats) Contains(c ColorFormat) bool {
	for _, x := range f {
		if x == c {
			return true
		}
	}
	return false
}

func (f ColorFormats) names() []string {
	out := make([]string, len(f))
	for i, c := range f {
		out[i] = string(c)
	}
	return out
}

// BooleanFormat gives display labels for false and true, e.g. "off,on".
type BooleanFormat struct {
	FalseVal string
	TrueVal  string
}

// ParseBooleanFormat requires exactly two distinct, non-empty labels.
func ParseBooleanFormat(raw string) (BooleanFormat, error) {
	tokens := strings.Split(raw, ",")
	if len(tokens) != 2 {
		return BooleanFormat{}, ErrInvalidBooleanFormatSpec
	}
	if tokens[0] == "" || tokens[1] == "" || tokens[0] == tokens[1] {
		return BooleanFormat{}, ErrInvalidBooleanFormatSpec
	}
	return BooleanFormat{FalseVal: tokens[0], TrueVal: tokens[1]}, nil
}

func (f BooleanFormat) String() string { return f.FalseVal + "," + f.TrueVal }
func (f BooleanFormat) IsEmpty() bool { return f.FalseVal == "" && f.TrueVal == "" }
func (BooleanFormat) isPropertyFormat() {}

// JSONFormat holds a raw JSON schema.  It is kept but never evaluated.
type JSONFormat string

func (f JSONFormat) String() string { return string(f) }
func (f JSONFormat) IsEmpty() bool { return f == "" }
func (JSONFormat) isPropertyFormat() {}

// CustomFormat is the format of a string, datetime or duration property.
type CustomFormat string

func (f CustomFormat) String() string { return string(f) }
func (f CustomFormat) IsEmpty() bool { return f == "" }
func (CustomFormat) isPropertyFormat() {}

// FloatRange is a "min:max:step" format of a float property.  Any part may be nil.
type FloatRange struct {
	Min  *float64
	Max  *float64
	Step *float64
}

// ParseFloatRange parses "min:max:step".  Empty parts are left nil.
func ParseFloatRange(raw string) (FloatRange, error) {
	parts, err := parseRange(raw, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
	if err != nil {
		return FloatRange{}, err
	}
	return FloatRange{Min: parts[0], Max: parts[1], Step: parts[2]}, nil
}

func (r FloatRange) String() string {
	return formatRange(r.Min, r.Max, r.Step, func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	})
}

func (r FloatRange) IsEmpty() bool { return r.Min == nil && r.Max == nil && r.Step == nil }
func (FloatRange) isPropertyFormat() {}

// IntegerRange is a "min:max:step" format of an integer property.  Any part may be nil.
type IntegerRange struct {
	Min  *int64
	Max  *int64
	Step *int64
}

func ParseIntegerRange(raw string) (IntegerRange, error) {
	parts, err := parseRange(raw, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
	if err != nil {
		return IntegerRange{}, err
	}
	return IntegerRange{Min: parts[0], Max: parts[1], Step: parts[2]}, nil
}

func (r IntegerRange) String() string {
	return formatRange(r.Min, r.Max, r.Step, func(v int64) string {
		return strconv.FormatInt(v, 10)
	})
}

func (r IntegerRange) IsEmpty() bool { return r.Min == nil && r.Max == nil && r.Step == nil }
func (IntegerRange) isPropertyFormat() {}

type number interface {
	~int64 | ~float64
}

func parseRange[T number](raw string, parse func(string) (T, error)) ([3]*T, error) {
	var res [3]*T

	segments := strings.Split(raw, ":")
	if len(segments) > 3 {
		return res, ErrInvalidNumberRangeFormat
	}
	for i, s := range segments {
		if s == "" {
			continue
		}
		v, err := parse(s)
		if err != nil {
			return res, ErrInvalidNumberRangeFormat
		}
		res[i] = &v
	}

	if !validRange(res[0], res[1], res[2]) {
		return res, ErrInvalidNumberRangeFormat
	}
	return res, nil
}

func validRange[T number](min, max, step *T) bool {
	if step != nil && *step <= 0 {
		return false
	}
	if min != nil && max != nil {
		if *min > *max {
			return false
		}
		if step != nil && *step > *max-*min {
			return false
		}
	}
	return true
}

func formatRange[T number](min, max, step *T, format func(T) string) string {
	var b strings.Builder

	if min != nil {
		b.WriteString(format(*min))
		if max == nil && step == nil {
			b.WriteString(":")
		}
	}
	if max != nil {
		b.WriteString(":" + format(*max))
	} else if step != nil {
		b.WriteString(":")
	}
	if step != nil {
		b.WriteString(":" + format(*step))
	}
	return b.String()
}

// Ptr returns a pointer to v.  It is handy for filling in range bounds.
func Ptr[T any](v T) *T { return &v }
