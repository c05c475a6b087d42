// Package directive routes inbound platform directives to handlers, drives
// the device directory and command publisher, and builds response envelopes.
package directive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-alexa/pkg/alexa"
	"github.com/urmzd/homai-alexa/pkg/broker"
	"github.com/urmzd/homai-alexa/pkg/device"
	"github.com/urmzd/homai-alexa/pkg/identity"
)

// DefaultTimeout bounds the directory and broker work of a single directive.
const DefaultTimeout = 5 * time.Second

var (
	// ErrUnsupportedDirective indicates no handler is registered for the (namespace, name) pair.
	ErrUnsupportedDirective = errors.New("unsupported directive")

	// ErrInvalidValue indicates a required payload value is missing or unusable.
	ErrInvalidValue = errors.New("invalid value")
)

// Resolver maps a bearer token to a user id.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// Publisher sends a command to a device. It never fails from the caller's
// point of view.
type Publisher interface {
	Publish(ctx context.Context, cmd broker.Command)
}

// call is the per-invocation state handed to handlers.
type call struct {
	directive alexa.Directive
	payload   alexa.DirectivePayload
	userID    string
}

type handlerFunc func(ctx context.Context, c *call) (*alexa.Response, error)

type route struct {
	namespace string
	name      string
}

// Dispatcher is stateless across calls and safe for concurrent use.
type Dispatcher struct {
	resolver  Resolver
	directory device.Directory
	publisher Publisher
	timeout   time.Duration
	now       func() time.Time
	routes    map[route]handlerFunc
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithClock overrides the sampling clock.
func WithClock(now func() time.Time) Option {
	return func(disp *Dispatcher) { disp.now = now }
}

// NewDispatcher creates a Dispatcher with the standard handler table.
func NewDispatcher(resolver Resolver, directory device.Directory, publisher Publisher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver:  resolver,
		directory: directory,
		publisher: publisher,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.routes = map[route]handlerFunc{
		{alexa.NamespaceDiscovery, "Discover"}:                    d.discover,
		{alexa.NamespaceAlexa, "ReportState"}:                     d.reportState,
		{alexa.NamespacePowerController, "TurnOn"}:                d.setPower,
		{alexa.NamespacePowerController, "TurnOff"}:               d.setPower,
		{alexa.NamespaceBrightnessController, "SetBrightness"}:    d.setBrightness,
		{alexa.NamespaceBrightnessController, "AdjustBrightness"}: d.adjustBrightness,
		{alexa.NamespaceColorController, "SetColor"}:              d.setColor,
		{alexa.NamespaceAuthorization, "AcceptGrant"}:             d.acceptGrant,
	}
	return d
}

// Handle runs one directive to completion. It always returns a well-formed
// envelope: either the success response or an Alexa.ErrorResponse.
func (d *Dispatcher) Handle(ctx context.Context, dir alexa.Directive) *alexa.Response {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ns := alexa.NormalizeNamespace(dir.Header.Namespace)
	logger := log.With().
		Str("namespace", ns).
		Str("name", dir.Header.Name).
		Str("message_id", dir.Header.MessageID).
		Str("endpoint_id", dir.EndpointID()).
		Logger()

	resp, err := d.handle(ctx, ns, dir)
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", device.ErrTimeout, err)
		}
		errType, msg := classify(err)
		logger.Warn().Err(err).Str("error_type", errType).Msg("Directive failed")
		return alexa.NewErrorResponse(dir, errType, msg)
	}

	logger.Info().Msg("Directive handled")
	return resp
}

func (d *Dispatcher) handle(ctx context.Context, ns string, dir alexa.Directive) (*alexa.Response, error) {
	payload, err := dir.ParsePayload()
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrInvalidValue, err)
	}

	userID, err := d.resolver.Resolve(ctx, dir.BearerToken(payload))
	if err != nil {
		return nil, err
	}

	h, ok := d.routes[route{ns, dir.Header.Name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnsupportedDirective, ns, dir.Header.Name)
	}

	return h(ctx, &call{directive: dir, payload: payload, userID: userID})
}

// classify maps an error onto the platform error taxonomy.
func classify(err error) (string, string) {
	switch {
	case errors.Is(err, identity.ErrUnauthorized):
		return alexa.ErrorInvalidAuthorization, "the bearer token could not be resolved to a user"
	case errors.Is(err, device.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return alexa.ErrorInternal, "timed out handling directive"
	case errors.Is(err, device.ErrNotFound):
		return alexa.ErrorNoSuchEndpoint, "endpoint not found"
	case errors.Is(err, ErrUnsupportedDirective), errors.Is(err, device.ErrUnsupported):
		return alexa.ErrorInvalidDirective, err.Error()
	case errors.Is(err, ErrInvalidValue):
		return alexa.ErrorInvalidValue, err.Error()
	default:
		return alexa.ErrorInternal, "internal error"
	}
}
