// Package hardware is the catalogue of physical and virtual devices driven by
// the access daemon: GPIO lines, LEDs, buzzers, alarms, Wiegand readers and
// external MQTT servers.
//
// # Devices
//
// A Device carries the fields every device has (ID, Name, Enabled, Version)
// and one Spec value. The Spec's concrete type is the device class:
//
//	switch s := dev.Spec.(type) {
//	case hardware.LEDSpec:
//	    // s.GPIOID, s.DefaultBlinkDuration ...
//	case hardware.RFIDReaderSpec:
//	    // s.Mode, s.GPIOHighID ...
//	}
//
// # Writes
//
// SQLiteRepository runs every write in one transaction:
//
//  1. assign the ID (new devices)
//  2. ValidateBeforeWrite: the name is not used by another device
//  3. insert or update the row
//  4. ValidateAfterWrite: non-empty name and class-specific checks, then
//     every referenced device exists with the right class
//  5. commit
//
// A failure at any step rolls back. Updates are optimistic: the caller's
// Version must match the stored one or ErrVersionConflict is returned.
//
// Registry wraps a Repository with a read-through cache and is what the API
// and the device actors use.
package hardware
