package homie5

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Value is a typed property value.  The concrete types are EmptyValue,
// StringValue, IntegerValue, FloatValue, BoolValue, EnumValue, the ColorValue
// types RGB, HSV and XYZ, DateTimeValue, DurationValue and JSONValue.
//
// String returns the wire representation, which ParseValue accepts again.
type Value interface {
	String() string
	Datatype() DataType
	isValue()
}

type (
	EmptyValue    struct{}
	StringValue   string
	IntegerValue  int64
	FloatValue    float64
	BoolValue     bool
	EnumValue     string
	DurationValue time.Duration // whole seconds
)

// DateTimeValue is a point in time, kept in UTC.
type DateTimeValue struct {
	time.Time
}

// NewDateTimeValue converts t to UTC.
func NewDateTimeValue(t time.Time) DateTimeValue {
	return DateTimeValue{Time: t.UTC()}
}

// JSONValue holds a decoded JSON document.  Numbers are kept as json.Number
// so they are written back exactly as received.
type JSONValue struct {
	Data any
}

func (EmptyValue) String() string { return "" }
func (v StringValue) String() string { return string(v) }
func (v IntegerValue) String() string { return strconv.FormatInt(int64(v), 10) }
func (v FloatValue) String() string { return strconv.FormatFloat(float64(v), 'f', -1, 64) }
func (v BoolValue) String() string { return strconv.FormatBool(bool(v)) }
func (v EnumValue) String() string { return string(v) }
func (v DateTimeValue) String() string { return v.Time.UTC().Format(time.RFC3339Nano) }

func (v DurationValue) String() string {
	secs := int64(time.Duration(v) / time.Second)
	sign := ""
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	if secs == 0 {
		return "PT0S"
	}

	var b strings.Builder
	b.WriteString(sign + "PT")
	if h := secs / 3600; h > 0 {
		b.WriteString(strconv.FormatInt(h, 10) + "H")
	}
	if m := secs % 3600 / 60; m > 0 {
		b.WriteString(strconv.FormatInt(m, 10) + "M")
	}
	if s := secs % 60; s > 0 {
		b.WriteString(strconv.FormatInt(s, 10) + "S")
	}
	return b.String()
}

func (v JSONValue) String() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v.Data); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func (EmptyValue) Datatype() DataType { return DataTypeString }
func (StringValue) Datatype() DataType { return DataTypeString }
func (IntegerValue) Datatype() DataType { return DataTypeInteger }
func (FloatValue) Datatype() DataType { return DataTypeFloat }
func (BoolValue) Datatype() DataType { return DataTypeBoolean }
func (EnumValue) Datatype() DataType { return DataTypeEnum }
func (DateTimeValue) Datatype() DataType { return DataTypeDateTime }
func (DurationValue) Datatype() DataType { return DataTypeDuration }
func (JSONValue) Datatype() DataType { return DataTypeJSON }

func (EmptyValue) isValue() {}
func (StringValue) isValue() {}
func (IntegerValue) isValue() {}
func (FloatValue) isValue() {}
func (BoolValue) isValue() {}
func (EnumValue) isValue() {}
func (DateTimeValue) isValue() {}
func (DurationValue) isValue() {}
func (JSONValue) isValue() {}

// MatchesDatatype reports whether v is a value of type dt.
func MatchesDatatype(v Value, dt DataType) bool {
	return v != nil && v.Datatype() == dt
}

// ParseValue converts raw into a Value of the property's datatype, honoring
// its format.  Numeric values are snapped to the range's step.  Errors are
// *ValueError.
func ParseValue(raw string, desc PropertyDescription) (Value, error) {
	switch desc.Datatype {
	case DataTypeInteger:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &ValueError{Kind: InvalidIntegerFormat, Value: raw}
		}
		r, _ := desc.Format.(IntegerRange)
		q, ok := quantizeInt(i, r)
		if !ok {
			return nil, &ValueError{Kind: IntegerOutOfRange, Value: IntegerValue(i).String(), Range: r.String()}
		}
		return IntegerValue(q), nil
	case DataTypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &ValueError{Kind: InvalidFloatFormat, Value: raw}
		}
		r, _ := desc.Format.(FloatRange)
		q, ok := quantizeFloat(f, r)
		if !ok {
			return nil, &ValueError{Kind: FloatOutOfRange, Value: FloatValue(f).String(), Range: r.String()}
		}
		return FloatValue(q), nil
	case DataTypeBoolean:
		switch raw {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
		return nil, &ValueError{Kind: InvalidBooleanFormat, Value: raw}
	case DataTypeString:
		return StringValue(raw), nil
	case DataTypeEnum:
		if values, ok := desc.Format.(EnumFormat); ok && !values.Contains(raw) {
			return nil, &ValueError{Kind: InvalidEnumFormat, Value: raw, Allowed: values}
		}
		return EnumValue(raw), nil
	case DataTypeColor:
		c, err := ParseColor(raw)
		if err != nil {
			return nil, err
		}
		if formats, ok := desc.Format.(ColorFormats); ok && !formats.IsEmpty() && !formats.Contains(c.ColorFormat()) {
			return nil, &ValueError{Kind: UnsupportedColorFormat, Value: string(c.ColorFormat()), Allowed: formats.names()}
		}
		return c, nil
	case DataTypeDateTime:
		t, err := parseDateTime(raw)
		if err != nil {
			return nil, err
		}
		return DateTimeValue{Time: t}, nil
	case DataTypeDuration:
		d, err := parseDuration(raw)
		if err != nil {
			return nil, err
		}
		return DurationValue(d), nil
	case DataTypeJSON:
		return parseJSON(raw)
	}
	return nil, ErrInvalidHomieDataType
}

// ValidateValue re-checks an already constructed value against desc.  Numeric
// values must already sit on a step of the range.
func ValidateValue(v Value, desc PropertyDescription) bool {
	switch val := v.(type) {
	case EmptyValue, StringValue:
		return desc.Datatype == DataTypeString
	case IntegerValue:
		if desc.Datatype != DataTypeInteger {
			return false
		}
		r, _ := desc.Format.(IntegerRange)
		q, ok := quantizeInt(int64(val), r)
		return ok && q == int64(val)
	case FloatValue:
		if desc.Datatype != DataTypeFloat {
			return false
		}
		r, _ := desc.Format.(FloatRange)
		q, ok := quantizeFloat(float64(val), r)
		return ok && q == float64(val)
	case EnumValue:
		if desc.Datatype != DataTypeEnum {
			return false
		}
		// enum requires a format listing the allowed values
		values, ok := desc.Format.(EnumFormat)
		return ok && values.Contains(string(val))
	case ColorValue:
		if desc.Datatype != DataTypeColor {
			return false
		}
		formats, ok := desc.Format.(ColorFormats)
		return ok && formats.Contains(val.ColorFormat())
	case nil:
		return false
	}
	return v.Datatype() == desc.Datatype
}

// CompareValues orders two values of the same kind.  Empty sorts before
// everything, enums and strings compare with each other, and colors only
// compare as equal or not.  ok is false when the values are not comparable.
func CompareValues(a, b Value) (cmp int, ok bool) {
	_, aEmpty := a.(EmptyValue)
	_, bEmpty := b.(EmptyValue)
	switch {
	case aEmpty && bEmpty:
		return 0, true
	case aEmpty:
		return -1, true
	case bEmpty:
		return 1, true
	}

	switch x := a.(type) {
	case StringValue, EnumValue:
		switch b.(type) {
		case StringValue, EnumValue:
			return strings.Compare(x.String(), b.String()), true
		}
	case IntegerValue:
		if y, isInt := b.(IntegerValue); isInt {
			return compareOrdered(x, y), true
		}
	case FloatValue:
		if y, isFloat := b.(FloatValue); isFloat {
			if math.IsNaN(float64(x)) || math.IsNaN(float64(y)) {
				return 0, false
			}
			return compareOrdered(x, y), true
		}
	case BoolValue:
		if y, isBool := b.(BoolValue); isBool {
			return compareOrdered(boolInt(bool(x)), boolInt(bool(y))), true
		}
	case ColorValue:
		if y, isColor := b.(ColorValue); isColor && colorEqual(x, y) {
			return 0, true
		}
	case DateTimeValue:
		if y, isTime := b.(DateTimeValue); isTime {
			return x.Time.Compare(y.Time), true
		}
	case DurationValue:
		if y, isDur := b.(DurationValue); isDur {
			return compareOrdered(x, y), true
		}
	case JSONValue:
		if y, isJSON := b.(JSONValue); isJSON {
			return strings.Compare(x.String(), y.String()), true
		}
	}
	return 0, false
}

// ValuesEqual reports whether a and b are the same value, using the XYZ tolerance.
func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Datatype() != b.Datatype() {
		return false
	}
	c, ok := CompareValues(a, b)
	return ok && c == 0
}

func compareOrdered[T ~int64 | ~float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// quantizeInt snaps v to the range's step grid, anchored at min, else max,
// else v itself, and checks the bounds.
func quantizeInt(v int64, r IntegerRange) (int64, bool) {
	base := v
	if r.Min != nil {
		base = *r.Min
	} else if r.Max != nil {
		base = *r.Max
	}

	rounded := v
	if r.Step != nil && *r.Step > 0 {
		s := *r.Step
		rounded = int64(math.Round(float64(v-base)/float64(s)))*s + base
	}

	if (r.Min != nil && rounded < *r.Min) || (r.Max != nil && rounded > *r.Max) {
		return 0, false
	}
	return rounded, true
}

func quantizeFloat(v float64, r FloatRange) (float64, bool) {
	base := v
	if r.Min != nil {
		base = *r.Min
	} else if r.Max != nil {
		base = *r.Max
	}

	rounded := v
	if r.Step != nil && *r.Step > 0 {
		s := *r.Step
		rounded = math.Round((v-base)/s)*s + base
	}

	if (r.Min != nil && rounded < *r.Min) || (r.Max != nil && rounded > *r.Max) {
		return 0, false
	}
	return rounded, true
}

var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

func parseDuration(s string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, &ValueError{Kind: InvalidDurationFormat, Value: s}
	}

	const maxSecs = math.MaxInt64 / int64(time.Second)
	var secs int64
	for i, mult := range []int64{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil || n > (maxSecs-secs)/mult {
			return 0, &ValueError{Kind: InvalidDurationFormat, Value: s}
		}
		secs += n * mult
	}
	return time.Duration(secs) * time.Second, nil
}

const (
	naiveDateTime         = "2006-01-02T15:04:05"
	naiveDateTimeFraction = "2006-01-02T15:04:05.999999999"
)

// parseDateTime accepts RFC 3339, then falls back to a zone-less timestamp
// with optional fractional seconds and an optional trailing Z, read as UTC.
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}

	naive := strings.TrimSuffix(s, "Z")
	if t, err := time.ParseInLocation(naiveDateTime, naive, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(naiveDateTimeFraction, naive, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, &ValueError{Kind: InvalidDateTimeFormat, Value: naive}
}

func parseJSON(raw string) (JSONValue, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return JSONValue{}, &ValueError{Kind: JSONParseError, Value: err.Error()}
	}
	if _, err := dec.Token(); err != io.EOF {
		return JSONValue{}, &ValueError{Kind: JSONParseError, Value: "trailing characters after json value"}
	}
	return JSONValue{Data: data}, nil
}

// EncodeString returns the payload for s.  An empty string is sent as a single
// zero byte, since an empty retained payload deletes the topic.
func EncodeString(s string) []byte {
	if s == "" {
		return []byte{0}
	}
	return []byte(s)
}

// EncodeValue returns the payload for v.
func EncodeValue(v Value) []byte {
	if v == nil {
		return EncodeString("")
	}
	return EncodeString(v.String())
}

// DecodeString reverses EncodeString.
func DecodeString(payload []byte) string {
	if len(payload) == 1 && payload[0] == 0 {
		return ""
	}
	return string(payload)
}
