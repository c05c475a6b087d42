package directive

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-alexa/pkg/alexa"
	"github.com/urmzd/homai-alexa/pkg/broker"
	"github.com/urmzd/homai-alexa/pkg/device"
	"github.com/urmzd/homai-alexa/pkg/translate"
)

func (d *Dispatcher) discover(ctx context.Context, c *call) (*alexa.Response, error) {
	devices, err := d.directory.ListDevicesForUser(ctx, c.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	endpoints := make([]alexa.DiscoveredEndpoint, 0, len(devices))
	for i := range devices {
		endpoints = append(endpoints, describeEndpoint(&devices[i]))
	}

	return &alexa.Response{
		Event: alexa.Event{
			Header:  alexa.ResponseHeader(c.directive.Header, alexa.NamespaceDiscovery, "Discover.Response"),
			Payload: alexa.DiscoveryPayload{Endpoints: endpoints},
		},
	}, nil
}

func (d *Dispatcher) reportState(ctx context.Context, c *call) (*alexa.Response, error) {
	dev, err := d.scopedDevice(ctx, c)
	if err != nil {
		return nil, err
	}

	now := d.now()
	props := []alexa.Property{
		alexa.NewProperty(alexa.NamespacePowerController, alexa.PropertyPowerState, alexa.PowerValue(dev.PowerState), now),
	}
	if dev.Type.SupportsBrightness() {
		props = append(props, alexa.NewProperty(alexa.NamespaceBrightnessController, alexa.PropertyBrightness,
			translate.SliderToBrightness(dev.SliderValue), now))
	}
	if dev.Type.SupportsColor() && dev.ColorHex != nil {
		hsv, err := translate.HexToHSV(*dev.ColorHex)
		if err != nil {
			log.Warn().Err(err).Str("device_id", dev.DeviceID).Msg("Stored color is unreadable, omitting from state report")
		} else {
			props = append(props, alexa.NewProperty(alexa.NamespaceColorController, alexa.PropertyColor, alexa.Color(hsv), now))
		}
	}
	props = append(props, d.connectivity(dev))

	return d.respond(c, "StateReport", props), nil
}

func (d *Dispatcher) setPower(ctx context.Context, c *call) (*alexa.Response, error) {
	dev, err := d.scopedDevice(ctx, c)
	if err != nil {
		return nil, err
	}

	on := c.directive.Header.Name == "TurnOn"
	d.publisher.Publish(ctx, broker.NewCommand(dev, on))

	if err := d.persist(ctx, c, dev, device.StateUpdate{PowerState: &on}); err != nil {
		return nil, err
	}

	return d.respond(c, "Response", []alexa.Property{
		alexa.NewProperty(alexa.NamespacePowerController, alexa.PropertyPowerState, alexa.PowerValue(on), d.now()),
		d.connectivity(dev),
	}), nil
}

func (d *Dispatcher) setBrightness(ctx context.Context, c *call) (*alexa.Response, error) {
	if c.payload.Brightness == nil {
		return nil, fmt.Errorf("%w: brightness is required", ErrInvalidValue)
	}
	return d.applyBrightness(ctx, c, *c.payload.Brightness, nil)
}

func (d *Dispatcher) adjustBrightness(ctx context.Context, c *call) (*alexa.Response, error) {
	if c.payload.BrightnessDelta == nil {
		return nil, fmt.Errorf("%w: brightnessDelta is required", ErrInvalidValue)
	}
	delta := *c.payload.BrightnessDelta
	return d.applyBrightness(ctx, c, 0, &delta)
}

// applyBrightness sets an absolute percentage, or a delta from the stored
// value when delta is non-nil. The response echoes the requested percentage.
func (d *Dispatcher) applyBrightness(ctx context.Context, c *call, percent int, delta *int) (*alexa.Response, error) {
	dev, err := d.scopedDevice(ctx, c)
	if err != nil {
		return nil, err
	}
	if !dev.Type.SupportsBrightness() {
		return nil, fmt.Errorf("%w: %s devices have no brightness control", device.ErrUnsupported, dev.Type)
	}
	if delta != nil {
		percent = translate.AdjustBrightness(dev.SliderValue, *delta)
	}
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("%w: brightness %d outside 0-100", ErrInvalidValue, percent)
	}

	slider := translate.BrightnessToSlider(percent)
	cmd := broker.NewCommand(dev, true)
	cmd.SliderValue = &slider
	d.publisher.Publish(ctx, cmd)

	on := true
	if err := d.persist(ctx, c, dev, device.StateUpdate{PowerState: &on, SliderValue: &slider}); err != nil {
		return nil, err
	}

	return d.respond(c, "Response", []alexa.Property{
		alexa.NewProperty(alexa.NamespaceBrightnessController, alexa.PropertyBrightness, percent, d.now()),
		d.connectivity(dev),
	}), nil
}

func (d *Dispatcher) setColor(ctx context.Context, c *call) (*alexa.Response, error) {
	if c.payload.Color == nil {
		return nil, fmt.Errorf("%w: color is required", ErrInvalidValue)
	}
	requested := *c.payload.Color

	dev, err := d.scopedDevice(ctx, c)
	if err != nil {
		return nil, err
	}
	if !dev.Type.SupportsColor() {
		return nil, fmt.Errorf("%w: %s devices have no color control", device.ErrUnsupported, dev.Type)
	}

	hex := translate.HSVToHex(translate.HSV(requested))
	cmd := broker.NewCommand(dev, true)
	cmd.Color = &hex
	d.publisher.Publish(ctx, cmd)

	on := true
	if err := d.persist(ctx, c, dev, device.StateUpdate{PowerState: &on, ColorHex: &hex}); err != nil {
		return nil, err
	}

	return d.respond(c, "Response", []alexa.Property{
		alexa.NewProperty(alexa.NamespaceColorController, alexa.PropertyColor, requested, d.now()),
		d.connectivity(dev),
	}), nil
}

// acceptGrant acknowledges account linking. Exchanging the grant code for an
// event gateway token belongs to the account-linking server, which stores the
// result through the access-token API.
func (d *Dispatcher) acceptGrant(ctx context.Context, c *call) (*alexa.Response, error) {
	log.Info().Str("user_id", c.userID).Msg("Accepted authorization grant")
	return &alexa.Response{
		Event: alexa.Event{
			Header:  alexa.ResponseHeader(c.directive.Header, alexa.NamespaceAuthorization, "AcceptGrant.Response"),
			Payload: struct{}{},
		},
	}, nil
}

func (d *Dispatcher) scopedDevice(ctx context.Context, c *call) (*device.Descriptor, error) {
	endpointID := c.directive.EndpointID()
	if endpointID == "" {
		return nil, fmt.Errorf("%w: directive has no endpoint", device.ErrNotFound)
	}
	return d.directory.GetDeviceForUser(ctx, c.userID, endpointID)
}

func (d *Dispatcher) persist(ctx context.Context, c *call, dev *device.Descriptor, update device.StateUpdate) error {
	if err := d.directory.UpdateDeviceState(ctx, c.userID, dev.DeviceID, update); err != nil {
		return fmt.Errorf("failed to persist device state: %w", err)
	}
	return nil
}

func (d *Dispatcher) connectivity(dev *device.Descriptor) alexa.Property {
	return alexa.NewProperty(alexa.NamespaceEndpointHealth, alexa.PropertyConnectivity, alexa.ConnectivityValue(dev.Connectivity), d.now())
}

func (d *Dispatcher) respond(c *call, name string, props []alexa.Property) *alexa.Response {
	return &alexa.Response{
		Context: &alexa.Context{Properties: props},
		Event: alexa.Event{
			Header:   alexa.ResponseHeader(c.directive.Header, alexa.NamespaceAlexa, name),
			Endpoint: &alexa.Endpoint{EndpointID: c.directive.EndpointID()},
			Payload:  struct{}{},
		},
	}
}

// describeEndpoint derives the discovery descriptor from the device type tag.
func describeEndpoint(dev *device.Descriptor) alexa.DiscoveredEndpoint {
	caps := []alexa.Capability{
		alexa.BaseCapability(),
		alexa.NewCapability(alexa.NamespacePowerController, alexa.PropertyPowerState),
		alexa.NewCapability(alexa.NamespaceEndpointHealth, alexa.PropertyConnectivity),
	}
	switch {
	case dev.Type.SupportsBrightness():
		caps = append(caps, alexa.NewCapability(alexa.NamespaceBrightnessController, alexa.PropertyBrightness))
	case dev.Type.SupportsColor():
		caps = append(caps, alexa.NewCapability(alexa.NamespaceColorController, alexa.PropertyColor))
	}

	name := dev.DisplayName
	if name == "" {
		name = dev.DeviceID
	}

	return alexa.DiscoveredEndpoint{
		EndpointID:        dev.DeviceID,
		ManufacturerName:  alexa.ManufacturerName,
		FriendlyName:      name,
		Description:       fmt.Sprintf("Smart %s", dev.Type),
		DisplayCategories: []string{dev.Type.DisplayCategory()},
		Cookie:            map[string]string{"registrationId": dev.RegistrationID},
		Capabilities:      caps,
	}
}
