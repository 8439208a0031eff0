package mqtt

import "fmt"

// Topic roots for the access daemon.
const (
	// TopicPrefix is the root shared with the rest of the Gray Logic bus.
	TopicPrefix = "graylogic"

	// TopicPrefixHardware carries device commands and their replies.
	TopicPrefixHardware = "graylogic/hw"

	// TopicPrefixAccess carries decoded credentials and pulse streams.
	TopicPrefixAccess = "graylogic/access"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for the topics this daemon publishes and
// subscribes to.
//
//	topics := mqtt.Topics{}
//	topics.AccessCredential("door-front")
//	// Returns: "graylogic/access/credential/door-front"
type Topics struct{}

// HardwareCommand returns the topic a device actor receives commands on.
//
// Example: graylogic/hw/cmd/led-front
func (Topics) HardwareCommand(device string) string {
	return fmt.Sprintf("%s/cmd/%s", TopicPrefixHardware, device)
}

// HardwareReply returns the topic a device actor answers on.
//
// Example: graylogic/hw/reply/led-front
func (Topics) HardwareReply(device string) string {
	return fmt.Sprintf("%s/reply/%s", TopicPrefixHardware, device)
}

// AccessCredential returns the topic decoded credentials of a reader are
// published on.
//
// Example: graylogic/access/credential/door-front
func (Topics) AccessCredential(reader string) string {
	return fmt.Sprintf("%s/credential/%s", TopicPrefixAccess, reader)
}

// AccessPulses returns the topic raw Wiegand pulses of a remote reader
// arrive on. Payloads are strings of '0' and '1'.
//
// Example: graylogic/access/pulses/door-front
func (Topics) AccessPulses(reader string) string {
	return fmt.Sprintf("%s/pulses/%s", TopicPrefixAccess, reader)
}

// AccessHealth returns the topic daemon health is published on.
//
// Example: graylogic/access/health
func (Topics) AccessHealth() string {
	return fmt.Sprintf("%s/health", TopicPrefixAccess)
}

// SystemStatus returns the online/offline status topic.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllAccessCredentials returns a pattern matching every reader's credentials.
//
// Pattern: graylogic/access/credential/+
func (Topics) AllAccessCredentials() string {
	return fmt.Sprintf("%s/credential/+", TopicPrefixAccess)
}

// AllHardwareCommands returns a pattern matching commands to any device.
//
// Pattern: graylogic/hw/cmd/+
func (Topics) AllHardwareCommands() string {
	return fmt.Sprintf("%s/cmd/+", TopicPrefixHardware)
}

// AllTopics returns a pattern matching all Gray Logic topics.
//
// Pattern: graylogic/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
