package homie5

import (
	"math"
	"strconv"
	"strings"
)

// ColorValue is a color property value in one of the supported color spaces.
type ColorValue interface {
	Value
	ColorFormat() ColorFormat
	isColor()
}

// RGB color, each channel 0-255.
type RGB struct {
	R, G, B int64
}

// HSV color, hue 0-360, saturation and value 0-100.
type HSV struct {
	H, S, V int64
}

// XYZ is a CIE 1931 color.  Z is always 1-X-Y; build one with NewXYZ.
type XYZ struct {
	X, Y, Z float64
}

// NewXYZ derives Z from x and y.
func NewXYZ(x, y float64) XYZ {
	return XYZ{X: x, Y: y, Z: 1 - x - y}
}

const xyzEpsilon = 1e-6

func (c RGB) String() string {
	return "rgb," + strconv.FormatInt(c.R, 10) + "," + strconv.FormatInt(c.G, 10) + "," + strconv.FormatInt(c.B, 10)
}

func (c HSV) String() string {
	return "hsv," + strconv.FormatInt(c.H, 10) + "," + strconv.FormatInt(c.S, 10) + "," + strconv.FormatInt(c.V, 10)
}

func (c XYZ) String() string {
	return "xyz," + strconv.FormatFloat(c.X, 'f', -1, 64) + "," + strconv.FormatFloat(c.Y, 'f', -1, 64)
}

func (RGB) ColorFormat() ColorFormat { return ColorFormatRGB }
func (HSV) ColorFormat() ColorFormat { return ColorFormatHSV }
func (XYZ) ColorFormat() ColorFormat { return ColorFormatXYZ }

func (RGB) Datatype() DataType { return DataTypeColor }
func (HSV) Datatype() DataType { return DataTypeColor }
func (XYZ) Datatype() DataType { return DataTypeColor }

func (RGB) isValue() {}
func (HSV) isValue() {}
func (XYZ) isValue() {}

func (RGB) isColor() {}
func (HSV) isColor() {}
func (XYZ) isColor() {}

// Equal compares with a tolerance, since Z is derived.
func (c XYZ) Equal(o XYZ) bool {
	return math.Abs(c.X-o.X) < xyzEpsilon &&
		math.Abs(c.Y-o.Y) < xyzEpsilon &&
		math.Abs(c.Z-o.Z) < xyzEpsilon
}

// ParseColor parses "rgb,r,g,b", "hsv,h,s,v" or "xyz,x,y".  Tokens beyond the
// required ones are ignored.
func ParseColor(s string) (ColorValue, error) {
	tokens := strings.Split(s, ",")
	fail := &ValueError{Kind: InvalidColorFormat, Value: s}

	switch tokens[0] {
	case "rgb", "hsv":
		if len(tokens) < 4 {
			return nil, fail
		}
		var v [3]int64
		for i := range v {
			n, err := strconv.ParseInt(tokens[i+1], 10, 64)
			if err != nil {
				return nil, fail
			}
			v[i] = n
		}
		if tokens[0] == "rgb" {
			return RGB{R: v[0], G: v[1], B: v[2]}, nil
		}
		return HSV{H: v[0], S: v[1], V: v[2]}, nil
	case "xyz":
		if len(tokens) < 3 {
			return nil, fail
		}
		x, err := strconv.ParseFloat(tokens[1], 64)
		if err != nil {
			return nil, fail
		}
		y, err := strconv.ParseFloat(tokens[2], 64)
		if err != nil {
			return nil, fail
		}
		return NewXYZ(x, y), nil
	}
	return nil, fail
}

func colorEqual(a, b ColorValue) bool {
	switch x := a.(type) {
	case XYZ:
		y, ok := b.(XYZ)
		return ok && x.Equal(y)
	default:
		return a == b
	}
}
