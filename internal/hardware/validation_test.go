package hardware

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-access/internal/validation"
)

// mapLookup is a NameLookup over a fixed set of devices.
type mapLookup map[string]*Device

func (m mapLookup) FindByName(_ context.Context, name string) (*Device, error) {
	if d, ok := m[name]; ok {
		return d, nil
	}
	return nil, ErrNotFound
}

type failingLookup struct{}

func (failingLookup) FindByName(context.Context, string) (*Device, error) {
	return nil, errors.New("disk on fire")
}

func TestValidateBeforeWrite(t *testing.T) {
	existing := &Device{ID: "dev-1", Name: "front-led"}
	lookup := mapLookup{"front-led": existing}
	ctx := context.Background()

	tests := []struct {
		name    string
		dev     *Device
		wantErr error
	}{
		{"new name", &Device{ID: "dev-2", Name: "back-led"}, nil},
		{"same device", &Device{ID: "dev-1", Name: "front-led"}, nil},
		{"other device", &Device{ID: "dev-2", Name: "front-led"}, ErrNameAlreadyUsed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBeforeWrite(ctx, lookup, tt.dev)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateBeforeWrite() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				var ve *validation.Error
				if !errors.As(err, &ve) || ve.Pointer != PointerName {
					t.Errorf("error = %#v, want pointer %s", err, PointerName)
				}
			}
		})
	}

	if err := ValidateBeforeWrite(ctx, failingLookup{}, &Device{Name: "x"}); err == nil {
		t.Error("lookup failures must propagate")
	}
}

func TestValidateAfterWrite(t *testing.T) {
	tests := []struct {
		name    string
		dev     *Device
		wantErr error
		pointer string
	}{
		{"valid gpio", newGPIO("g", 3), nil, ""},
		{"empty name", newGPIO("", 3), ErrEmptyName, PointerName},
		{"blank name", newGPIO(" \t", 3), ErrEmptyName, PointerName},
		{"no spec", &Device{Name: "x"}, ErrInvalidDevice, PointerClass},
		{"bad direction", &Device{Name: "g", Spec: GPIOSpec{Direction: "sideways"}}, ErrInvalidDevice, "data/attributes/spec/direction"},
		{"led without gpio", &Device{Name: "l", Spec: LEDSpec{DefaultBlinkDuration: 1000, DefaultBlinkSpeed: 100}}, ErrInvalidDevice, "data/attributes/spec/gpio_id"},
		{"led speed over duration", &Device{Name: "l", Spec: LEDSpec{GPIOID: "g", DefaultBlinkDuration: 100, DefaultBlinkSpeed: 200}}, ErrInvalidDevice, "data/attributes/spec/default_blink_speed"},
		{"alarm severity", &Device{Name: "a", Spec: AlarmSpec{GPIOID: "g", Severity: 5}}, ErrInvalidDevice, "data/attributes/spec/severity"},
		{"reader pin stream mode", &Device{Name: "r", Spec: RFIDReaderSpec{Mode: "WIEGAND_PIN_4BITS_STREAM", PinTimeout: 1, PinEndKey: "#"}}, nil, ""},
		{"reader mode", &Device{Name: "r", Spec: RFIDReaderSpec{Mode: "MAGSTRIPE", PinTimeout: 1, PinEndKey: "#"}}, ErrInvalidDevice, "data/attributes/spec/mode"},
		{"reader end key", &Device{Name: "r", Spec: RFIDReaderSpec{Mode: "SIMPLE_WIEGAND", PinTimeout: 1, PinEndKey: "x"}}, ErrInvalidDevice, "data/attributes/spec/pin_end_key"},
		{"server port", &Device{Name: "s", Spec: ExternalServerSpec{Host: "h", Port: 70000}}, ErrInvalidDevice, "data/attributes/spec/port"},
		{"message class", &Device{Name: "m", Spec: ExternalMessageSpec{ServerID: "s", Subject: "t", Direction: DirectionPublish, VirtualClass: ClassAlarm}}, ErrInvalidDevice, "data/attributes/spec/virtual_class"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAfterWrite(tt.dev)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateAfterWrite() error = %v, want %v", err, tt.wantErr)
			}
			if tt.pointer == "" {
				return
			}
			list, ok := validation.Collect(err)
			if !ok {
				t.Fatalf("error %v carries no validation failures", err)
			}
			if list[0].Pointer != tt.pointer {
				t.Errorf("Pointer = %q, want %q", list[0].Pointer, tt.pointer)
			}
		})
	}
}

func TestValidateAfterWrite_ReportsEverything(t *testing.T) {
	err := ValidateAfterWrite(&Device{Name: "", Spec: ExternalServerSpec{Port: 0}})
	list, ok := validation.Collect(err)
	if !ok || len(list) != 3 {
		t.Fatalf("Collect() = %v, want name, host and port failures", list)
	}
}
