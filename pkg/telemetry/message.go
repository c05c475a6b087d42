package telemetry

import (
	"math"
	"time"

	"github.com/urmzd/homai-alexa/pkg/alexa"
	"github.com/urmzd/homai-alexa/pkg/device"
	"github.com/urmzd/homai-alexa/pkg/translate"
)

// Message is a device state report. Every field is optional. Some firmware
// reports the slider as a fractional number, so it is decoded as one and
// rounded.
type Message struct {
	State       *bool    `json:"state,omitempty"`
	SliderValue *float64 `json:"sliderValue,omitempty"`
	DeviceType  string   `json:"deviceType,omitempty"`
	Color       *string  `json:"color,omitempty"`
}

// Translate turns the message into platform properties and the matching
// directory update. Brightness and color are keyed by the message's own
// deviceType tag; without a tag every present field is taken at face value.
func (m Message) Translate(at time.Time) ([]alexa.Property, device.StateUpdate, []error) {
	var (
		props  []alexa.Property
		update device.StateUpdate
		errs   []error
	)

	tagged := m.DeviceType != ""
	typ := device.ParseType(m.DeviceType)

	if m.State != nil {
		on := *m.State
		update.PowerState = &on
		props = append(props, alexa.NewProperty(alexa.NamespacePowerController, alexa.PropertyPowerState, alexa.PowerValue(on), at))
	}

	if m.SliderValue != nil && (!tagged || typ.SupportsBrightness()) {
		slider := int(math.Max(0, math.Min(math.Round(*m.SliderValue), device.SliderMax)))
		update.SliderValue = &slider
		props = append(props, alexa.NewProperty(alexa.NamespaceBrightnessController, alexa.PropertyBrightness,
			translate.SliderToBrightness(slider), at))
	}

	if m.Color != nil && (!tagged || typ.SupportsColor()) {
		hsv, err := translate.HexToHSV(*m.Color)
		if err != nil {
			errs = append(errs, err)
		} else {
			hex, _ := translate.NormalizeHex(*m.Color)
			update.ColorHex = &hex
			props = append(props, alexa.NewProperty(alexa.NamespaceColorController, alexa.PropertyColor, alexa.Color(hsv), at))
		}
	}

	return props, update, errs
}
