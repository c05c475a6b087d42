package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/homai-alexa/pkg/alexa"
	"github.com/urmzd/homai-alexa/pkg/broker"
	"github.com/urmzd/homai-alexa/pkg/device"
	"github.com/urmzd/homai-alexa/pkg/diag"
)

type forwarded struct {
	report alexa.ChangeReport
	token  string
}

type recordingForwarder struct {
	mu   sync.Mutex
	sent []forwarded
	err  error
}

func (f *recordingForwarder) Forward(ctx context.Context, report alexa.ChangeReport, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, forwarded{report: report, token: token})
	return nil
}

func (f *recordingForwarder) all() []forwarded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]forwarded(nil), f.sent...)
}

var sampleTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newDirectory() *device.MemoryDirectory {
	dir := device.NewMemoryDirectory()
	dir.PutUser(device.User{UserID: "u1", Email: "ada@example.com", AccessToken: device.Ptr("amzn-token")})
	dir.PutUser(device.User{UserID: "u2", Email: "bob@example.com"})
	dir.PutDevice(device.Descriptor{DeviceID: "dev-1", OwnerUserID: "u1", Type: device.TypeSwitch, PowerState: true})
	dir.PutDevice(device.Descriptor{DeviceID: "dim-1", OwnerUserID: "u1", Type: device.TypeDimmableLight})
	dir.PutDevice(device.Descriptor{DeviceID: "rgb-1", OwnerUserID: "u1", Type: device.TypeRGB})
	dir.PutDevice(device.Descriptor{DeviceID: "other-1", OwnerUserID: "u2", Type: device.TypeSwitch})
	return dir
}

func newListener(dir device.Directory, fwd Forwarder, sink diag.Sink) *Listener {
	return NewListener(dir, fwd, sink, WithWorkers(2), WithClock(func() time.Time { return sampleTime }))
}

func TestProcessPowerOff(t *testing.T) {
	dir := newDirectory()
	fwd := &recordingForwarder{}
	l := newListener(dir, fwd, nil)
	defer l.Close()

	l.Process(context.Background(), "dev-1", []byte(`{"state":false}`))

	sent := fwd.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "amzn-token", sent[0].token)
	assert.Equal(t, "dev-1", sent[0].report.EndpointID())
	assert.Equal(t, "ChangeReport", sent[0].report.Event.Header.Name)

	props := sent[0].report.Properties()
	require.Len(t, props, 1)
	assert.Equal(t, alexa.NamespacePowerController, props[0].Namespace)
	assert.Equal(t, "OFF", props[0].Value)

	payload := sent[0].report.Event.Payload.(alexa.ChangeReportPayload)
	assert.Equal(t, alexa.CausePhysicalInteraction, payload.Change.Cause.Type)

	d, err := dir.GetDeviceForUser(context.Background(), "u1", "dev-1")
	require.NoError(t, err)
	assert.False(t, d.PowerState)
	assert.True(t, d.Connectivity)
}

func TestProcessOneReportPerProperty(t *testing.T) {
	fwd := &recordingForwarder{}
	dir := newDirectory()
	l := newListener(dir, fwd, nil)
	defer l.Close()

	l.Process(context.Background(), "dim-1", []byte(`{"state":true,"sliderValue":45,"deviceType":"Dimmable light"}`))

	sent := fwd.all()
	require.Len(t, sent, 2)
	assert.Equal(t, alexa.PropertyPowerState, sent[0].report.Properties()[0].Name)
	brightness := sent[1].report.Properties()[0]
	assert.Equal(t, alexa.PropertyBrightness, brightness.Name)
	assert.Equal(t, 50, brightness.Value)

	d, err := dir.GetDeviceForUser(context.Background(), "u1", "dim-1")
	require.NoError(t, err)
	assert.Equal(t, 45, d.SliderValue)
}

func TestProcessFractionalSlider(t *testing.T) {
	fwd := &recordingForwarder{}
	rec := diag.NewRecorder(10)
	dir := newDirectory()
	l := newListener(dir, fwd, rec)
	defer l.Close()

	l.Process(context.Background(), "dim-1", []byte(`{"state":true,"sliderValue":44.6,"deviceType":"Dimmable light"}`))

	sent := fwd.all()
	require.Len(t, sent, 2)
	assert.Equal(t, "ON", sent[0].report.Properties()[0].Value)
	assert.Equal(t, 50, sent[1].report.Properties()[0].Value)
	assert.Zero(t, rec.Count(diag.TelemetryDecodeFailed))

	d, err := dir.GetDeviceForUser(context.Background(), "u1", "dim-1")
	require.NoError(t, err)
	assert.True(t, d.PowerState)
	assert.Equal(t, 45, d.SliderValue)
}

func TestProcessColorForRGB(t *testing.T) {
	fwd := &recordingForwarder{}
	dir := newDirectory()
	l := newListener(dir, fwd, nil)
	defer l.Close()

	l.Process(context.Background(), "rgb-1", []byte(`{"color":"#00FF00","sliderValue":30,"deviceType":"rgb"}`))

	sent := fwd.all()
	require.Len(t, sent, 1)
	prop := sent[0].report.Properties()[0]
	assert.Equal(t, alexa.PropertyColor, prop.Name)
	assert.Equal(t, alexa.Color{Hue: 120, Saturation: 1, Brightness: 1}, prop.Value)

	d, err := dir.GetDeviceForUser(context.Background(), "u1", "rgb-1")
	require.NoError(t, err)
	require.NotNil(t, d.ColorHex)
	assert.Equal(t, "00ff00", *d.ColorHex)
	assert.Equal(t, 0, d.SliderValue)
}

func TestProcessDropsWithoutToken(t *testing.T) {
	fwd := &recordingForwarder{}
	rec := diag.NewRecorder(10)
	dir := newDirectory()
	l := newListener(dir, fwd, rec)
	defer l.Close()

	l.Process(context.Background(), "other-1", []byte(`{"state":true}`))

	assert.Empty(t, fwd.all())
	assert.Equal(t, 1, rec.Count(diag.ReportDroppedNoToken))

	d, err := dir.GetDeviceForUser(context.Background(), "u2", "other-1")
	require.NoError(t, err)
	assert.True(t, d.PowerState)
}

func TestProcessUnknownDevice(t *testing.T) {
	fwd := &recordingForwarder{}
	rec := diag.NewRecorder(10)
	l := newListener(newDirectory(), fwd, rec)
	defer l.Close()

	l.Process(context.Background(), "ghost", []byte(`{"state":true}`))

	assert.Empty(t, fwd.all())
	assert.Equal(t, 1, rec.Count(diag.ReportDroppedNoOwner))
}

func TestProcessMalformedPayload(t *testing.T) {
	fwd := &recordingForwarder{}
	rec := diag.NewRecorder(10)
	l := newListener(newDirectory(), fwd, rec)
	defer l.Close()

	l.Process(context.Background(), "dev-1", []byte(`not json`))
	l.Process(context.Background(), "rgb-1", []byte(`{"color":"zzz","deviceType":"rgb"}`))

	assert.Empty(t, fwd.all())
	assert.Equal(t, 2, rec.Count(diag.TelemetryDecodeFailed))
}

func TestProcessForwardFailureIsReported(t *testing.T) {
	fwd := &recordingForwarder{err: errors.New("gateway down")}
	rec := diag.NewRecorder(10)
	l := newListener(newDirectory(), fwd, rec)
	defer l.Close()

	l.Process(context.Background(), "dev-1", []byte(`{"state":true}`))

	assert.Equal(t, 1, rec.Count(diag.EventForwardFailed))
}

func TestEnqueuePreservesPerDeviceOrder(t *testing.T) {
	fwd := &recordingForwarder{}
	l := newListener(newDirectory(), fwd, nil)

	for i := 0; i < 20; i++ {
		require.NoError(t, l.Enqueue("dev-1", []byte(fmt.Sprintf(`{"state":%t}`, i%2 == 0))))
	}
	l.Close()

	sent := fwd.all()
	require.Len(t, sent, 20)
	for i, f := range sent {
		want := alexa.PowerValue(i%2 == 0)
		assert.Equal(t, want, f.report.Properties()[0].Value, "message %d", i)
	}
	assert.ErrorIs(t, l.Enqueue("dev-1", []byte(`{}`)), ErrClosed)
}

type fakeSubscription struct{ unsubscribed bool }

func (s *fakeSubscription) Unsubscribe() error {
	s.unsubscribed = true
	return nil
}

func TestRunDeliversUntilCancelled(t *testing.T) {
	fwd := &recordingForwarder{}
	l := newListener(newDirectory(), fwd, nil)
	sub := &fakeSubscription{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx, func(h broker.StateHandler) (broker.Subscription, error) {
			h("dev-1", []byte(`{"state":false}`))
			return sub, nil
		})
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}

	assert.True(t, sub.unsubscribed)
	assert.Len(t, fwd.all(), 1)
}

func TestTranslateUntagged(t *testing.T) {
	msg := Message{SliderValue: device.Ptr(120.0), Color: device.Ptr("ff0000")}
	props, update, errs := msg.Translate(sampleTime)

	assert.Empty(t, errs)
	require.Len(t, props, 2)
	assert.Equal(t, 100, props[0].Value)
	require.NotNil(t, update.SliderValue)
	assert.Equal(t, device.SliderMax, *update.SliderValue)
	require.NotNil(t, update.ColorHex)
	assert.Equal(t, "ff0000", *update.ColorHex)
}

func TestTranslateSwitchIgnoresSlider(t *testing.T) {
	msg := Message{State: device.Ptr(true), SliderValue: device.Ptr(40.0), DeviceType: "switch"}
	props, update, _ := msg.Translate(sampleTime)

	require.Len(t, props, 1)
	assert.Nil(t, update.SliderValue)
}
