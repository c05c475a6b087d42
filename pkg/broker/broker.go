// Package broker connects the adapter to the device message bus. Commands go
// out on one subject per device; devices report state back on another.
package broker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// DefaultPrefix is the root of every device subject.
const DefaultPrefix = "devices"

const (
	commandSuffix = "command"
	stateSuffix   = "state"
)

// ErrInvalidDeviceID indicates a device id that cannot be used as a subject token.
var ErrInvalidDeviceID = errors.New("invalid device id")

// Conn is the subset of *nats.Conn the adapter uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	IsConnected() bool
}

// Connect dials the broker with reconnect handling and zerolog hooks.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Broker disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Broker reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			ev := log.Error().Err(err)
			if sub != nil {
				ev = ev.Str("subject", sub.Subject)
			}
			ev.Msg("Broker async error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	return nc, nil
}

// Subjects builds and parses per-device subjects under a prefix.
type Subjects struct {
	Prefix string
}

// Command returns the subject a device listens on for commands.
func (s Subjects) Command(deviceID string) (string, error) {
	if err := ValidateDeviceID(deviceID); err != nil {
		return "", err
	}
	return s.prefix() + "." + deviceID + "." + commandSuffix, nil
}

// State returns the subject a device reports its state on.
func (s Subjects) State(deviceID string) (string, error) {
	if err := ValidateDeviceID(deviceID); err != nil {
		return "", err
	}
	return s.prefix() + "." + deviceID + "." + stateSuffix, nil
}

// AllStates is the wildcard subscription covering every device's state subject.
func (s Subjects) AllStates() string {
	return s.prefix() + ".*." + stateSuffix
}

// DeviceIDFromState extracts the device id from a state subject.
func (s Subjects) DeviceIDFromState(subject string) (string, error) {
	rest, ok := strings.CutPrefix(subject, s.prefix()+".")
	if !ok {
		return "", fmt.Errorf("%w: subject %q outside prefix", ErrInvalidDeviceID, subject)
	}
	id, ok := strings.CutSuffix(rest, "."+stateSuffix)
	if !ok {
		return "", fmt.Errorf("%w: subject %q is not a state subject", ErrInvalidDeviceID, subject)
	}
	if err := ValidateDeviceID(id); err != nil {
		return "", err
	}
	return id, nil
}

func (s Subjects) prefix() string {
	if s.Prefix == "" {
		return DefaultPrefix
	}
	return strings.TrimSuffix(s.Prefix, ".")
}

// ValidateDeviceID rejects ids that would break subject tokenisation.
func ValidateDeviceID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidDeviceID)
	}
	if strings.ContainsAny(id, ".*> \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidDeviceID, id)
	}
	return nil
}
