package homie5

import (
	"errors"
	"fmt"
	"strings"
)

// Protocol errors.  Typed errors below unwrap to one of these so callers can
// test the category with errors.Is.
var (
	ErrInvalidTopic              = errors.New("Message for invalid homie MQTT topic received.")
	ErrInvalidDeviceDescription  = errors.New("Cannot parse DeviceDescription. Invalid format.")
	ErrInvalidPayload            = errors.New("Invalid message payload received.")
	ErrRootMismatch              = errors.New("Publish request for wrong homie root topic.")
	ErrNonEmptyRootForRootDevice = errors.New("Root device cannot refer to another root device. root attribute must be empty.")
	ErrPropertyNotFound          = errors.New("The requested property does not exist in the device description.")
	ErrInvalidHomieDataType      = errors.New("Invalid homie datatype.")
	ErrInvalidHomieID            = errors.New("invalid homie id")
	ErrInvalidHomieDomain        = errors.New("invalid homie domain")
	ErrInvalidDeviceState        = errors.New("invalid device state")
	ErrInvalidDeviceLogLevel     = errors.New("invalid device log level")
	ErrInvalidHomieValue         = errors.New("invalid homie value")
	ErrPayloadConversion         = errors.New("payload is not valid utf-8")
	ErrInvalidNumberRangeFormat  = errors.New("Cannot parse number range format")
	ErrInvalidColorFormatSpec    = errors.New("Cannot parse color format")
	ErrInvalidBooleanFormatSpec  = errors.New("Cannot parse boolean format")
)

// InvalidHomieIDError describes why a string is not a valid HomieID.
type InvalidHomieIDError struct {
	ID      string
	Details string
}

func (e *InvalidHomieIDError) Error() string { return e.Details }

func (e *InvalidHomieIDError) Is(target error) bool { return target == ErrInvalidHomieID }

// InvalidHomieDomainError describes why a string is not a valid homie-domain.
type InvalidHomieDomainError struct {
	Domain  string
	Details string
}

func (e *InvalidHomieDomainError) Error() string { return e.Details }

func (e *InvalidHomieDomainError) Is(target error) bool { return target == ErrInvalidHomieDomain }

// InvalidDeviceStateError is returned for a $state payload outside the known states.
type InvalidDeviceStateError struct {
	State string
}

func (e *InvalidDeviceStateError) Error() string {
	return fmt.Sprintf("Invalid device state: [%s]! Only: init, ready, disconnected, sleeping and lost are allowed.", e.State)
}

func (e *InvalidDeviceStateError) Is(target error) bool { return target == ErrInvalidDeviceState }

// InvalidDeviceLogLevelError is returned for an unknown $log level segment.
type InvalidDeviceLogLevelError struct {
	Level string
}

func (e *InvalidDeviceLogLevelError) Error() string {
	return "Invalid device log level: " + e.Level
}

func (e *InvalidDeviceLogLevelError) Is(target error) bool { return target == ErrInvalidDeviceLogLevel }

// protocolError attaches a protocol-level prefix to a lower level error while
// keeping both reachable through errors.Is and errors.As.
type protocolError struct {
	prefix string
	err    error
}

func (e *protocolError) Error() string { return e.prefix + e.err.Error() }

func (e *protocolError) Unwrap() error { return e.err }

func wrapHomieID(err error) error {
	return &protocolError{prefix: "Invalid homie id: ", err: err}
}

func wrapHomieDomain(err error) error {
	return &protocolError{prefix: "Invalid homie domain: ", err: err}
}

// ValueErrorKind classifies a value conversion failure.
type ValueErrorKind int

const (
	InvalidColorFormat ValueErrorKind = iota
	InvalidIntegerFormat
	InvalidFloatFormat
	InvalidEnumFormat
	IntegerOutOfRange
	FloatOutOfRange
	InvalidDateTimeFormat
	InvalidDurationFormat
	UnsupportedColorFormat
	InvalidBooleanFormat
	JSONParseError
)

// ValueError is returned when a raw string cannot be converted into a Value
// for a property description.
type ValueError struct {
	Kind    ValueErrorKind
	Value   string   // offending input, formatted
	Range   string   // allowed range for the out of range kinds
	Allowed []string // allowed enum values or color formats
}

func (e *ValueError) Error() string {
	switch e.Kind {
	case InvalidColorFormat:
		return fmt.Sprintf("'%s' is not a valid color value", e.Value)
	case InvalidIntegerFormat:
		return fmt.Sprintf("'%s' is not a valid integer value", e.Value)
	case InvalidFloatFormat:
		return fmt.Sprintf("'%s' is not a valid float value", e.Value)
	case InvalidEnumFormat:
		return fmt.Sprintf("'%s' is not allowed enum values: %s", e.Value, strings.Join(e.Allowed, ","))
	case IntegerOutOfRange:
		return fmt.Sprintf("Integer '%s' is out of allowed range: %s", e.Value, e.Range)
	case FloatOutOfRange:
		return fmt.Sprintf("Float '%s' is out of allowed range: %s", e.Value, e.Range)
	case InvalidDateTimeFormat:
		return fmt.Sprintf("'%s' is not a valid date/time value", e.Value)
	case InvalidDurationFormat:
		return fmt.Sprintf("'%s' is not a valid duration value", e.Value)
	case UnsupportedColorFormat:
		return fmt.Sprintf("'%s' is not in supported formats: %s", e.Value, strings.Join(e.Allowed, ","))
	case InvalidBooleanFormat:
		return fmt.Sprintf("'%s' is not a valid boolean value", e.Value)
	case JSONParseError:
		return fmt.Sprintf("Error parsing json value: %s", e.Value)
	}
	return "invalid value: " + e.Value
}

func (e *ValueError) Is(target error) bool { return target == ErrInvalidHomieValue }
