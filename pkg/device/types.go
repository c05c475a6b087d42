package device

import (
	"strings"
	"time"
)

// Type is the closed set of device kinds the adapter knows how to control.
type Type string

// Device type constants
const (
	TypeSwitch        Type = "Switch"
	TypeFan           Type = "Fan"
	TypeDimmableLight Type = "DimmableLight"
	TypeRGB           Type = "RGB"
)

// Display categories advertised during discovery
const (
	CategoryLight  = "LIGHT"
	CategorySwitch = "SWITCH"
)

// SliderMax is the top of the device-native brightness range.
const SliderMax = 90

// ParseType maps the free-form type strings stored by the registration app
// ("Dimmable light", "rgb", "fan", ...) onto a Type. Unknown values are
// treated as plain switches.
func ParseType(s string) Type {
	norm := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s))
	switch norm {
	case "fan":
		return TypeFan
	case "dimmablelight", "dimmable", "light":
		return TypeDimmableLight
	case "rgb", "rgblight", "colorlight":
		return TypeRGB
	default:
		return TypeSwitch
	}
}

// SupportsBrightness reports whether the type exposes a slider.
func (t Type) SupportsBrightness() bool {
	return t == TypeFan || t == TypeDimmableLight
}

// SupportsColor reports whether the type accepts color commands.
// Brightness and color are mutually exclusive.
func (t Type) SupportsColor() bool {
	return t == TypeRGB
}

// DisplayCategory returns the discovery display category for the type.
func (t Type) DisplayCategory() string {
	switch t {
	case TypeDimmableLight, TypeRGB:
		return CategoryLight
	default:
		return CategorySwitch
	}
}

// Descriptor is a persisted device owned by exactly one user.
type Descriptor struct {
	DeviceID       string    `json:"deviceId" yaml:"device_id"`
	OwnerUserID    string    `json:"ownerUserId" yaml:"owner_user_id"`
	DisplayName    string    `json:"displayName" yaml:"name"`
	Type           Type      `json:"deviceType" yaml:"type"`
	RegistrationID string    `json:"registrationId" yaml:"registration_id"`
	PowerState     bool      `json:"powerState" yaml:"power_state"`
	SliderValue    int       `json:"sliderValue" yaml:"slider_value"`
	ColorHex       *string   `json:"colorHex,omitempty" yaml:"color_hex"`
	Connectivity   bool      `json:"connectivity" yaml:"connectivity"`
	Revision       int64     `json:"revision" yaml:"-"`
	UpdatedAt      time.Time `json:"updatedAt" yaml:"-"`
}

// User is an account that owns devices and, once linked, holds the
// credential used to push change reports to the platform.
type User struct {
	UserID         string     `json:"userId" yaml:"id"`
	Email          string     `json:"email" yaml:"email"`
	AccessToken    *string    `json:"-" yaml:"access_token"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty" yaml:"token_expires_at"`
}

// StateUpdate is a partial write against a device. Nil fields are left untouched.
type StateUpdate struct {
	PowerState   *bool
	SliderValue  *int
	ColorHex     *string
	Connectivity *bool
}

// IsEmpty reports whether the update would change nothing.
func (u StateUpdate) IsEmpty() bool {
	return u.PowerState == nil && u.SliderValue == nil && u.ColorHex == nil && u.Connectivity == nil
}

// Apply copies the populated fields of u onto d.
func (u StateUpdate) Apply(d *Descriptor) {
	if u.PowerState != nil {
		d.PowerState = *u.PowerState
	}
	if u.SliderValue != nil {
		d.SliderValue = *u.SliderValue
	}
	if u.ColorHex != nil {
		c := *u.ColorHex
		d.ColorHex = &c
	}
	if u.Connectivity != nil {
		d.Connectivity = *u.Connectivity
	}
}

// Ptr returns a pointer to v. Handy for building StateUpdates.
func Ptr[T any](v T) *T {
	return &v
}
