// Package telemetry consumes device state reports from the broker, mirrors
// them into the directory and forwards them to the platform as change reports.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-alexa/pkg/alexa"
	"github.com/urmzd/homai-alexa/pkg/broker"
	"github.com/urmzd/homai-alexa/pkg/device"
	"github.com/urmzd/homai-alexa/pkg/diag"
)

// Defaults
const (
	DefaultWorkers   = 8
	DefaultQueueSize = 64
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("telemetry listener closed")

// Forwarder delivers a change report with the owner's credential.
type Forwarder interface {
	Forward(ctx context.Context, report alexa.ChangeReport, token string) error
}

// Source starts a subscription that feeds handler.
type Source func(handler broker.StateHandler) (broker.Subscription, error)

// Listener processes telemetry. Messages for one device are handled in
// arrival order on a single shard; different devices run concurrently.
type Listener struct {
	directory device.Directory
	forwarder Forwarder
	sink      diag.Sink
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
	shards []chan job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type job struct {
	deviceID string
	payload  []byte
}

// Option configures a Listener.
type Option func(*config)

type config struct {
	workers   int
	queueSize int
	now       func() time.Time
}

// WithWorkers sets the number of shards.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueueSize sets the buffer per shard.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithClock overrides the sampling clock.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// NewListener creates a Listener and starts its workers.
func NewListener(directory device.Directory, forwarder Forwarder, sink diag.Sink, opts ...Option) *Listener {
	cfg := config{workers: DefaultWorkers, queueSize: DefaultQueueSize, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if sink == nil {
		sink = diag.Discard
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{
		directory: directory,
		forwarder: forwarder,
		sink:      sink,
		now:       cfg.now,
		shards:    make([]chan job, cfg.workers),
		ctx:       ctx,
		cancel:    cancel,
	}
	for i := range l.shards {
		ch := make(chan job, cfg.queueSize)
		l.shards[i] = ch
		l.wg.Add(1)
		go l.work(ch)
	}
	return l
}

// Run subscribes through src and blocks until ctx is cancelled, then
// unsubscribes and drains queued messages.
func (l *Listener) Run(ctx context.Context, src Source) error {
	sub, err := src(func(deviceID string, payload []byte) {
		if err := l.Enqueue(deviceID, payload); err != nil {
			log.Warn().Err(err).Str("device_id", deviceID).Msg("Dropping telemetry")
		}
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		log.Warn().Err(err).Msg("Failed to unsubscribe from telemetry")
	}
	l.Close()
	return nil
}

// Enqueue hands a message to the shard owning deviceID. It blocks when that
// shard's queue is full.
func (l *Listener) Enqueue(deviceID string, payload []byte) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	l.shards[shardFor(deviceID, len(l.shards))] <- job{deviceID: deviceID, payload: payload}
	return nil
}

// Close stops accepting messages and waits for queued ones to finish.
func (l *Listener) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.wg.Wait()
		return
	}
	l.closed = true
	for _, ch := range l.shards {
		close(ch)
	}
	l.mu.Unlock()

	l.wg.Wait()
	l.cancel()
}

func (l *Listener) work(ch <-chan job) {
	defer l.wg.Done()
	for j := range ch {
		l.Process(l.ctx, j.deviceID, j.payload)
	}
}

// Process handles one message synchronously. Failures are reported to the
// diagnostic sink and never returned.
func (l *Listener) Process(ctx context.Context, deviceID string, payload []byte) {
	logger := log.With().Str("device_id", deviceID).Logger()

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		l.report(diag.TelemetryDecodeFailed, deviceID, "", fmt.Errorf("failed to decode telemetry: %w", err))
		return
	}

	props, update, errs := msg.Translate(l.now())
	for _, err := range errs {
		l.report(diag.TelemetryDecodeFailed, deviceID, "", err)
	}

	_, owner, err := l.directory.FindDeviceGlobally(ctx, deviceID)
	if err != nil {
		l.report(diag.ReportDroppedNoOwner, deviceID, "", err)
		return
	}

	update.Connectivity = device.Ptr(true)
	if err := l.directory.UpdateDeviceState(ctx, owner, deviceID, update); err != nil {
		l.report(diag.StatePersistFailed, deviceID, owner, err)
	}

	if len(props) == 0 {
		return
	}

	token, ok, err := l.directory.AccessTokenForUser(ctx, owner)
	if err != nil {
		l.report(diag.ReportDroppedNoToken, deviceID, owner, fmt.Errorf("failed to read access token: %w", err))
		return
	}
	if !ok {
		l.report(diag.ReportDroppedNoToken, deviceID, owner, errors.New("owner has no platform credential"))
		return
	}

	for _, prop := range props {
		report := alexa.NewChangeReport(deviceID, alexa.CausePhysicalInteraction, prop)
		if err := l.forwarder.Forward(ctx, report, token); err != nil {
			l.report(diag.EventForwardFailed, deviceID, owner, err)
			continue
		}
		logger.Debug().Str("property", prop.Name).Msg("Forwarded change report")
	}
}

func (l *Listener) report(kind diag.Kind, deviceID, userID string, err error) {
	l.sink.Report(diag.Event{Kind: kind, DeviceID: deviceID, UserID: userID, Err: err, At: l.now()})
}

func shardFor(deviceID string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID))
	return int(h.Sum32() % uint32(n))
}
