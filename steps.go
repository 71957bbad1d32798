package homie5

// DevicePublishStep is one stage of bringing a device online.
type DevicePublishStep int

const (
	PublishStepStateInit DevicePublishStep = iota
	PublishStepDescription
	PublishStepPropertyValues
	PublishStepSubscribeProperties
	PublishStepStateReady
)

func (s DevicePublishStep) String() string {
	switch s {
	case PublishStepStateInit:
		return "state-init"
	case PublishStepDescription:
		return "description"
	case PublishStepPropertyValues:
		return "property-values"
	case PublishStepSubscribeProperties:
		return "subscribe-properties"
	case PublishStepStateReady:
		return "state-ready"
	}
	return "unknown"
}

// PublishSteps returns the order in which a device announces itself.
func PublishSteps() []DevicePublishStep {
	return []DevicePublishStep{
		PublishStepStateInit,
		PublishStepDescription,
		PublishStepPropertyValues,
		PublishStepSubscribeProperties,
		PublishStepStateReady,
	}
}

// DeviceReconfigureStep is one stage of republishing a changed description.
type DeviceReconfigureStep int

const (
	ReconfigureStepStateInit DeviceReconfigureStep = iota
	ReconfigureStepUnsubscribeProperties
	ReconfigureStepReconfigure
	ReconfigureStepDescription
	ReconfigureStepPropertyValues
	ReconfigureStepSubscribeProperties
	ReconfigureStepStateReady
)

func (s DeviceReconfigureStep) String() string {
	switch s {
	case ReconfigureStepStateInit:
		return "state-init"
	case ReconfigureStepUnsubscribeProperties:
		return "unsubscribe-properties"
	case ReconfigureStepReconfigure:
		return "reconfigure"
	case ReconfigureStepDescription:
		return "description"
	case ReconfigureStepPropertyValues:
		return "property-values"
	case ReconfigureStepSubscribeProperties:
		return "subscribe-properties"
	case ReconfigureStepStateReady:
		return "state-ready"
	}
	return "unknown"
}

// ReconfigureSteps returns the order for swapping a live device's description.
// The application changes its description during ReconfigureStepReconfigure.
func ReconfigureSteps() []DeviceReconfigureStep {
	return []DeviceReconfigureStep{
		ReconfigureStepStateInit,
		ReconfigureStepUnsubscribeProperties,
		ReconfigureStepReconfigure,
		ReconfigureStepDescription,
		ReconfigureStepPropertyValues,
		ReconfigureStepSubscribeProperties,
		ReconfigureStepStateReady,
	}
}

// DeviceDisconnectStep is one stage of a clean shutdown.
type DeviceDisconnectStep int

const (
	DisconnectStepStateDisconnect DeviceDisconnectStep = iota
	DisconnectStepUnsubscribeProperties
)

func (s DeviceDisconnectStep) String() string {
	switch s {
	case DisconnectStepStateDisconnect:
		return "state-disconnect"
	case DisconnectStepUnsubscribeProperties:
		return "unsubscribe-properties"
	}
	return "unknown"
}

func DisconnectSteps() []DeviceDisconnectStep {
	return []DeviceDisconnectStep{
		DisconnectStepStateDisconnect,
		DisconnectStepUnsubscribeProperties,
	}
}
