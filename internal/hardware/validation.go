package hardware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-access/internal/validation"
	"github.com/nerrad567/gray-logic-access/internal/wiegand"
)

// NameLookup finds a device by name. It returns ErrNotFound when no device
// has that name.
type NameLookup interface {
	FindByName(ctx context.Context, name string) (*Device, error)
}

// ValidateBeforeWrite runs before a device row is written.
//
// The device must already carry its ID: a device found under the same name
// is only a conflict if it is a different device.
func ValidateBeforeWrite(ctx context.Context, lookup NameLookup, dev *Device) error {
	existing, err := lookup.FindByName(ctx, dev.Name)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up device name: %w", err)
	}
	if existing.ID != dev.ID {
		return validation.New(PointerName, fmt.Sprintf("name %q already used", dev.Name), ErrNameAlreadyUsed)
	}
	return nil
}

// ValidateAfterWrite runs once the row is written, before commit. Every
// problem found is reported.
func ValidateAfterWrite(dev *Device) error {
	var errs validation.List
	if strings.TrimSpace(dev.Name) == "" {
		errs = append(errs, validation.New(PointerName, "name must be non-empty", ErrEmptyName))
	}
	if dev.Spec == nil {
		errs = append(errs, validation.New(PointerClass, "device class is required", ErrInvalidDevice))
		return errs.Err()
	}
	errs = append(errs, validateSpec(dev.Spec)...)
	return errs.Err()
}

func specError(field, message string) *validation.Error {
	return validation.New(pointerSpec+field, message, ErrInvalidDevice)
}

func validateSpec(spec Spec) validation.List { //nolint:gocognit,gocyclo // one case per device class
	var errs validation.List
	switch s := spec.(type) {
	case GPIOSpec:
		if s.Number < 0 {
			errs = append(errs, specError("number", "GPIO number must be >= 0"))
		}
		if s.Direction != DirectionIn && s.Direction != DirectionOut {
			errs = append(errs, specError("direction", `direction must be "in" or "out"`))
		}
	case LEDSpec:
		errs = append(errs, validateOutput(s.GPIOID, s.DefaultBlinkDuration, s.DefaultBlinkSpeed)...)
	case BuzzerSpec:
		errs = append(errs, validateOutput(s.GPIOID, s.DefaultBlinkDuration, s.DefaultBlinkSpeed)...)
	case AlarmSpec:
		if s.GPIOID == "" {
			errs = append(errs, specError("gpio_id", "alarm needs a GPIO"))
		}
		if s.Severity > SeverityCritical {
			errs = append(errs, specError("severity", "severity must be between 0 and 4"))
		}
	case RFIDReaderSpec:
		if !wiegand.Mode(s.Mode).Valid() {
			errs = append(errs, specError("mode", fmt.Sprintf("unknown reader mode %q", s.Mode)))
		}
		if s.PinTimeout <= 0 {
			errs = append(errs, specError("pin_timeout", "pin timeout must be > 0"))
		}
		if len(s.PinEndKey) != 1 || !strings.Contains("0123456789*#", s.PinEndKey) {
			errs = append(errs, specError("pin_end_key", "pin end key must be one keypad character"))
		}
	case ExternalServerSpec:
		if strings.TrimSpace(s.Host) == "" {
			errs = append(errs, specError("host", "host is required"))
		}
		if s.Port < 1 || s.Port > 65535 {
			errs = append(errs, specError("port", "port must be between 1 and 65535"))
		}
	case ExternalMessageSpec:
		if s.ServerID == "" {
			errs = append(errs, specError("server_id", "external message needs a server"))
		}
		if s.Subject == "" {
			errs = append(errs, specError("subject", "subject is required"))
		}
		if s.Direction != DirectionSubscribe && s.Direction != DirectionPublish {
			errs = append(errs, specError("direction", `direction must be "subscribe" or "publish"`))
		}
		switch s.VirtualClass {
		case ClassGPIO, ClassLED, ClassBuzzer, ClassRFIDReader:
		default:
			errs = append(errs, specError("virtual_class", fmt.Sprintf("%q cannot be mirrored", s.VirtualClass)))
		}
	default:
		errs = append(errs, validation.New(PointerClass, fmt.Sprintf("unsupported spec %T", spec), ErrUnknownClass))
	}
	return errs
}

func validateOutput(gpioID string, duration, speed int64) validation.List {
	var errs validation.List
	if gpioID == "" {
		errs = append(errs, specError("gpio_id", "a GPIO is required"))
	}
	if duration <= 0 {
		errs = append(errs, specError("default_blink_duration", "blink duration must be > 0"))
	}
	if speed <= 0 || speed > duration {
		errs = append(errs, specError("default_blink_speed", "blink speed must be > 0 and <= duration"))
	}
	return errs
}

// referenceClasses lists the class each reference of dev must point to.
func referenceClasses(dev *Device) map[string]Class {
	refs := make(map[string]Class)
	set := func(id string, c Class) {
		if id != "" {
			refs[id] = c
		}
	}
	switch s := dev.Spec.(type) {
	case LEDSpec:
		set(s.GPIOID, ClassGPIO)
	case BuzzerSpec:
		set(s.GPIOID, ClassGPIO)
	case AlarmSpec:
		set(s.GPIOID, ClassGPIO)
	case RFIDReaderSpec:
		set(s.GPIOHighID, ClassGPIO)
		set(s.GPIOLowID, ClassGPIO)
		set(s.GreenLEDID, ClassLED)
		set(s.BuzzerID, ClassBuzzer)
	case ExternalMessageSpec:
		set(s.ServerID, ClassExternalServer)
	}
	return refs
}
