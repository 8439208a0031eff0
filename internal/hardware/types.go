package hardware

import (
	"encoding/json"
	"fmt"
	"time"
)

// Class identifies the kind of hardware device.
type Class string

// Device classes.
const (
	ClassGPIO            Class = "gpio"
	ClassLED             Class = "led"
	ClassBuzzer          Class = "buzzer"
	ClassAlarm           Class = "alarm"
	ClassRFIDReader      Class = "rfid_reader"
	ClassExternalServer  Class = "external_server"
	ClassExternalMessage Class = "external_message"
)

// AllClasses returns every device class.
func AllClasses() []Class {
	return []Class{
		ClassGPIO, ClassLED, ClassBuzzer, ClassAlarm,
		ClassRFIDReader, ClassExternalServer, ClassExternalMessage,
	}
}

// Blink defaults for LEDs and buzzers, in milliseconds.
const (
	DefaultBlinkDuration = 1000
	DefaultBlinkSpeed    = 100
)

// Device is a piece of hardware known to the daemon.
//
// The common fields are shared by every class. Spec holds exactly one of the
// *Spec types below and determines the device class.
type Device struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Enabled   bool      `json:"enabled"`
	Version   int       `json:"version"`
	Spec      Spec      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Class returns the class of the device's spec, or "" if it has none.
func (d *Device) Class() Class {
	if d.Spec == nil {
		return ""
	}
	return d.Spec.Class()
}

// Spec is the closed set of per-class attributes.
type Spec interface {
	Class() Class
	sealed()
}

// Direction of a GPIO line.
type Direction string

// GPIO directions.
const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// GPIOSpec is a single digital line.
type GPIOSpec struct {
	Number       int       `json:"number"`
	Direction    Direction `json:"direction"`
	DefaultValue bool      `json:"default_value"`
}

// LEDSpec is a LED driven by a GPIO.
// Blink values are in milliseconds.
type LEDSpec struct {
	GPIOID               string `json:"gpio_id"`
	DefaultBlinkDuration int64  `json:"default_blink_duration"`
	DefaultBlinkSpeed    int64  `json:"default_blink_speed"`
}

// BuzzerSpec is a buzzer driven by a GPIO.
// Blink values are in milliseconds.
type BuzzerSpec struct {
	GPIOID               string `json:"gpio_id"`
	DefaultBlinkDuration int64  `json:"default_blink_duration"`
	DefaultBlinkSpeed    int64  `json:"default_blink_speed"`
}

// Severity ranks an alarm.
type Severity uint8

// Alarm severities.
const (
	SeverityLowest Severity = iota
	SeverityLow
	SeverityNormal
	SeverityImportant
	SeverityCritical
)

var severityNames = [...]string{"lowest", "low", "normal", "important", "critical"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", s)
}

// AlarmSpec is an alarm output.
type AlarmSpec struct {
	GPIOID   string   `json:"gpio_id"`
	Severity Severity `json:"severity"`
}

// RFIDReaderSpec is a Wiegand reader with its data lines and feedback devices.
type RFIDReaderSpec struct {
	Mode       string `json:"mode"`
	GPIOHighID string `json:"gpio_high_id"`
	GPIOLowID  string `json:"gpio_low_id"`
	GreenLEDID string `json:"green_led_id,omitempty"`
	BuzzerID   string `json:"buzzer_id,omitempty"`
	PinTimeout int64  `json:"pin_timeout"`
	PinEndKey  string `json:"pin_end_key"`
	NoWait     bool   `json:"no_wait"`
}

// ExternalServerSpec is an MQTT broker devices can be mirrored to.
type ExternalServerSpec struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	ClientID        string `json:"client_id,omitempty"`
	Username        string `json:"username,omitempty"`
	Password        string `json:"password,omitempty"`
	TLS             bool   `json:"tls"`
	PublishPrefix   string `json:"publish_prefix,omitempty"`
	SubscribePrefix string `json:"subscribe_prefix,omitempty"`
}

// MessageDirection says whether an external message is read or written.
type MessageDirection string

// Message directions.
const (
	DirectionSubscribe MessageDirection = "subscribe"
	DirectionPublish   MessageDirection = "publish"
)

// ExternalMessageSpec maps a topic on an external server to a virtual device.
type ExternalMessageSpec struct {
	ServerID     string           `json:"server_id"`
	Subject      string           `json:"subject"`
	Direction    MessageDirection `json:"direction"`
	VirtualClass Class            `json:"virtual_class"`
	Payload      string           `json:"payload,omitempty"`
}

func (GPIOSpec) Class() Class            { return ClassGPIO }
func (LEDSpec) Class() Class             { return ClassLED }
func (BuzzerSpec) Class() Class          { return ClassBuzzer }
func (AlarmSpec) Class() Class           { return ClassAlarm }
func (RFIDReaderSpec) Class() Class      { return ClassRFIDReader }
func (ExternalServerSpec) Class() Class  { return ClassExternalServer }
func (ExternalMessageSpec) Class() Class { return ClassExternalMessage }

func (GPIOSpec) sealed()            {}
func (LEDSpec) sealed()             {}
func (BuzzerSpec) sealed()          {}
func (AlarmSpec) sealed()           {}
func (RFIDReaderSpec) sealed()      {}
func (ExternalServerSpec) sealed()  {}
func (ExternalMessageSpec) sealed() {}

// newSpec returns a zero spec of class c with class defaults applied.
func newSpec(c Class) (Spec, error) {
	switch c {
	case ClassGPIO:
		return &GPIOSpec{Direction: DirectionOut}, nil
	case ClassLED:
		return &LEDSpec{DefaultBlinkDuration: DefaultBlinkDuration, DefaultBlinkSpeed: DefaultBlinkSpeed}, nil
	case ClassBuzzer:
		return &BuzzerSpec{DefaultBlinkDuration: DefaultBlinkDuration, DefaultBlinkSpeed: DefaultBlinkSpeed}, nil
	case ClassAlarm:
		return &AlarmSpec{Severity: SeverityNormal}, nil
	case ClassRFIDReader:
		return &RFIDReaderSpec{Mode: "SIMPLE_WIEGAND", PinTimeout: 2500, PinEndKey: "#"}, nil
	case ClassExternalServer:
		return &ExternalServerSpec{Port: 1883}, nil
	case ClassExternalMessage:
		return &ExternalMessageSpec{Direction: DirectionSubscribe}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, c)
	}
}

// deref turns the pointer produced by newSpec back into a value spec.
func deref(s Spec) Spec {
	switch v := s.(type) {
	case *GPIOSpec:
		return *v
	case *LEDSpec:
		return *v
	case *BuzzerSpec:
		return *v
	case *AlarmSpec:
		return *v
	case *RFIDReaderSpec:
		return *v
	case *ExternalServerSpec:
		return *v
	case *ExternalMessageSpec:
		return *v
	default:
		return s
	}
}

// DecodeSpec decodes raw JSON attributes for class c.
func DecodeSpec(c Class, raw []byte) (Spec, error) {
	s, err := newSpec(c)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, s); err != nil {
			return nil, fmt.Errorf("decoding %s spec: %w", c, err)
		}
	}
	return deref(s), nil
}

// deviceJSON is the wire form of a Device.
type deviceJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Class     Class           `json:"class"`
	Enabled   bool            `json:"enabled"`
	Version   int             `json:"version"`
	Spec      json.RawMessage `json:"spec,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MarshalJSON renders the device with its class and spec.
func (d Device) MarshalJSON() ([]byte, error) {
	out := deviceJSON{
		ID:        d.ID,
		Name:      d.Name,
		Class:     d.Class(),
		Enabled:   d.Enabled,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Spec != nil {
		raw, err := json.Marshal(d.Spec)
		if err != nil {
			return nil, err
		}
		out.Spec = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a device, picking the spec type from the class.
func (d *Device) UnmarshalJSON(data []byte) error {
	var in deviceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	spec, err := DecodeSpec(in.Class, in.Spec)
	if err != nil {
		return err
	}
	*d = Device{
		ID:        in.ID,
		Name:      in.Name,
		Enabled:   in.Enabled,
		Version:   in.Version,
		Spec:      spec,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}
	return nil
}

// References returns the IDs of the devices d depends on.
func (d *Device) References() []string {
	var refs []string
	add := func(ids ...string) {
		for _, id := range ids {
			if id != "" {
				refs = append(refs, id)
			}
		}
	}
	switch s := d.Spec.(type) {
	case LEDSpec:
		add(s.GPIOID)
	case BuzzerSpec:
		add(s.GPIOID)
	case AlarmSpec:
		add(s.GPIOID)
	case RFIDReaderSpec:
		add(s.GPIOHighID, s.GPIOLowID, s.GreenLEDID, s.BuzzerID)
	case ExternalMessageSpec:
		add(s.ServerID)
	}
	return refs
}

// gpioRef returns the GPIO owned through the gpio_id column, if any.
func (d *Device) gpioRef() string {
	switch s := d.Spec.(type) {
	case LEDSpec:
		return s.GPIOID
	case BuzzerSpec:
		return s.GPIOID
	case AlarmSpec:
		return s.GPIOID
	default:
		return ""
	}
}

// Metadata is the short description of a device used in events.
type Metadata struct {
	ID   string `json:"id"`
	Type Class  `json:"type"`
}

// DeviceMetadata returns the id and type of dev, or the zero value for nil.
func DeviceMetadata(dev *Device) Metadata {
	if dev == nil {
		return Metadata{}
	}
	return Metadata{ID: dev.ID, Type: dev.Class()}
}

// Clone returns a copy of d. Specs are plain values, so a shallow copy is
// deep.
func (d *Device) Clone() *Device {
	c := *d
	return &c
}
