package homie5

// DataType is the $datatype of a property.  The zero value is DataTypeInteger.
type DataType uint8

const (
	DataTypeInteger DataType = iota
	DataTypeFloat
	DataTypeBoolean
	DataTypeString
	DataTypeEnum
	DataTypeColor
	DataTypeDateTime
	DataTypeDuration
	DataTypeJSON
)

var dataTypeNames = [...]string{
	DataTypeInteger:  "integer",
	DataTypeFloat:    "float",
	DataTypeBoolean:  "boolean",
	DataTypeString:   "string",
	DataTypeEnum:     "enum",
	DataTypeColor:    "color",
	DataTypeDateTime: "datetime",
	DataTypeDuration: "duration",
	DataTypeJSON:     "json",
}

// ParseDataType converts a $datatype name.
func ParseDataType(s string) (DataType, error) {
	for i, name := range dataTypeNames {
		if name == s {
			return DataType(i), nil
		}
	}
	return 0, ErrInvalidHomieDataType
}

func (dt DataType) String() string {
	if int(dt) < len(dataTypeNames) {
		return dataTypeNames[dt]
	}
	return "unknown"
}

func (dt DataType) MarshalText() ([]byte, error) {
	if int(dt) >= len(dataTypeNames) {
		return nil, ErrInvalidHomieDataType
	}
	return []byte(dataTypeNames[dt]), nil
}

func (dt *DataType) UnmarshalText(text []byte) error {
	d, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*dt = d
	return nil
}
