package homie5

// DeviceStatus is the value of a device's $state attribute.
type DeviceStatus string

const (
	StatusInit         DeviceStatus = "init"
	StatusReady        DeviceStatus = "ready"
	StatusDisconnected DeviceStatus = "disconnected"
	StatusSleeping     DeviceStatus = "sleeping"
	StatusLost         DeviceStatus = "lost"
)

// ParseDeviceStatus converts a $state payload into a DeviceStatus.
func ParseDeviceStatus(s string) (DeviceStatus, error) {
	switch DeviceStatus(s) {
	case StatusInit, StatusReady, StatusDisconnected, StatusSleeping, StatusLost:
		return DeviceStatus(s), nil
	}
	return "", &InvalidDeviceStateError{State: s}
}

func (s DeviceStatus) String() string { return string(s) }

func (s *DeviceStatus) UnmarshalText(text []byte) error {
	st, err := ParseDeviceStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// DeviceLogLevel is the level segment of a $log/<level> topic.
type DeviceLogLevel string

const (
	LogLevelDebug DeviceLogLevel = "debug"
	LogLevelInfo  DeviceLogLevel = "info"
	LogLevelWarn  DeviceLogLevel = "warn"
	LogLevelError DeviceLogLevel = "error"
	LogLevelFatal DeviceLogLevel = "fatal"
)

// ParseDeviceLogLevel converts a topic segment into a DeviceLogLevel.
func ParseDeviceLogLevel(s string) (DeviceLogLevel, error) {
	switch DeviceLogLevel(s) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelFatal:
		return DeviceLogLevel(s), nil
	}
	return "", &InvalidDeviceLogLevelError{Level: s}
}

func (l DeviceLogLevel) String() string { return string(l) }
