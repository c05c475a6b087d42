package broker

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// StateHandler receives one telemetry message.
type StateHandler func(deviceID string, payload []byte)

// Subscription can be torn down.
type Subscription interface {
	Unsubscribe() error
}

// SubscribeStates subscribes handler to every device's state subject.
// Messages on malformed subjects are logged and skipped.
func SubscribeStates(conn Conn, subjects Subjects, handler StateHandler) (Subscription, error) {
	sub, err := conn.Subscribe(subjects.AllStates(), func(msg *nats.Msg) {
		deviceID, err := subjects.DeviceIDFromState(msg.Subject)
		if err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("Ignoring telemetry on unexpected subject")
			return
		}
		handler(deviceID, msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subjects.AllStates(), err)
	}
	log.Info().Str("subject", subjects.AllStates()).Msg("Subscribed to device telemetry")
	return sub, nil
}
