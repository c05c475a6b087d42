package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-alexa/pkg/alexa/schema"
	"github.com/urmzd/homai-alexa/pkg/device"
	"github.com/urmzd/homai-alexa/pkg/diag"
)

// Command is the payload sent to a device.
type Command struct {
	DeviceID       string      `json:"deviceId"`
	RegistrationID string      `json:"registrationId"`
	DeviceType     device.Type `json:"deviceType"`
	State          bool        `json:"state"`
	SliderValue    *int        `json:"sliderValue,omitempty"`
	Color          *string     `json:"color,omitempty"`
}

// NewCommand seeds a command with the device's identity.
func NewCommand(d *device.Descriptor, state bool) Command {
	return Command{
		DeviceID:       d.DeviceID,
		RegistrationID: d.RegistrationID,
		DeviceType:     d.Type,
		State:          state,
	}
}

// Publisher sends commands to devices without waiting for acknowledgement.
// Publish never returns an error: failures are logged and reported to the
// diagnostic sink, and callers must not assume the device got the command.
type Publisher struct {
	conn      Conn
	subjects  Subjects
	validator *schema.Validator
	sink      diag.Sink
}

// NewPublisher creates a Publisher. validator may be nil to skip payload checks.
func NewPublisher(conn Conn, subjects Subjects, validator *schema.Validator, sink diag.Sink) *Publisher {
	if sink == nil {
		sink = diag.Discard
	}
	return &Publisher{conn: conn, subjects: subjects, validator: validator, sink: sink}
}

// Publish sends cmd to the device's command subject.
func (p *Publisher) Publish(ctx context.Context, cmd Command) {
	if err := p.publish(ctx, cmd); err != nil {
		log.Error().Err(err).Str("device_id", cmd.DeviceID).Msg("Failed to publish device command")
		p.sink.Report(diag.Event{Kind: diag.CommandPublishFailed, DeviceID: cmd.DeviceID, Err: err, At: time.Now()})
		return
	}
	log.Debug().Str("device_id", cmd.DeviceID).Bool("state", cmd.State).Msg("Published device command")
}

func (p *Publisher) publish(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.conn == nil || !p.conn.IsConnected() {
		return device.ErrNotConnected
	}

	subject, err := p.subjects.Command(cmd.DeviceID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	if p.validator != nil {
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to decode command: %w", err)
		}
		if err := p.validator.Validate(schema.CommandSchema, doc); err != nil {
			return fmt.Errorf("command rejected: %w", err)
		}
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// IsConnected reports broker connectivity.
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}
