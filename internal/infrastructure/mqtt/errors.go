package mqtt

import "errors"

// Errors returned by the broker client. Callers match them with errors.Is;
// the broker's own error is wrapped alongside where there is one.
var (
	// ErrNotConnected means the broker link is down. Publishes of access
	// events and hardware commands fail fast instead of queueing.
	ErrNotConnected = errors.New("mqtt: broker link down")

	// ErrConnectionFailed means the daemon could not reach the broker at
	// startup.
	ErrConnectionFailed = errors.New("mqtt: cannot reach broker")

	// ErrPublishFailed means the broker did not acknowledge a publish, or
	// the payload was too large to send.
	ErrPublishFailed = errors.New("mqtt: publish not acknowledged")

	// ErrSubscribeFailed means a command, reply or pulse subscription was
	// refused.
	ErrSubscribeFailed = errors.New("mqtt: subscription refused")

	// ErrUnsubscribeFailed means the broker did not acknowledge an
	// unsubscribe.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe not acknowledged")

	// ErrInvalidQoS rejects a QoS outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidTopic rejects an empty topic.
	ErrInvalidTopic = errors.New("mqtt: empty topic")

	// ErrTimeout means the broker did not answer within the wait bound.
	ErrTimeout = errors.New("mqtt: broker did not answer in time")
)
