// Package driver holds the device actors answering facade commands.
//
// Each enabled device gets one actor registered on the command transport
// under the device name:
//
//   - GPIO drives a Pin (periph on real hardware, MemoryPin otherwise)
//   - Blinker backs LEDs and buzzers and runs the blink state machine
//   - ReaderFeedback maps reader verbs onto its green LED and buzzer
//   - Alarm tracks raised alarms and drives a siren GPIO
//   - ExternalServer mirrors virtual devices to a remote MQTT broker
//
// Manager builds the actors from the device registry.
package driver
