package homie5

// Topic and attribute constants of the Homie v5 convention.
const (
	DefaultHomieDomain = "homie"
	HomieVersion       = "5"
	HomieVersionFull   = "5.0"

	TopicBroadcast = "$broadcast"

	DeviceAttributeState       = "$state"
	DeviceAttributeLog         = "$log"
	DeviceAttributeDescription = "$description"
	DeviceAttributeAlert       = "$alert"

	PropertySetTopic        = "set"
	PropertyAttributeTarget = "$target"
)

// DeviceAttributes lists the device level attribute topics. $state comes first.
var DeviceAttributes = [...]string{
	DeviceAttributeState,
	DeviceAttributeLog,
	DeviceAttributeAlert,
	DeviceAttributeDescription,
}
