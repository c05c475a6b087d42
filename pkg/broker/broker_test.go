package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/homai-alexa/pkg/alexa/schema"
	"github.com/urmzd/homai-alexa/pkg/device"
	"github.com/urmzd/homai-alexa/pkg/diag"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu         sync.Mutex
	connected  bool
	publishErr error
	published  []published
	subject    string
	handler    nats.MsgHandler
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{subject, data})
	return nil
}

func (f *fakeConn) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	f.subject = subject
	f.handler = cb
	return nil, nil
}

func (f *fakeConn) IsConnected() bool { return f.connected }

func TestSubjects(t *testing.T) {
	s := Subjects{Prefix: "home"}

	cmd, err := s.Command("dev-1")
	require.NoError(t, err)
	assert.Equal(t, "home.dev-1.command", cmd)

	state, err := s.State("dev-1")
	require.NoError(t, err)
	assert.Equal(t, "home.dev-1.state", state)
	assert.Equal(t, "home.*.state", s.AllStates())

	id, err := s.DeviceIDFromState("home.dev-1.state")
	require.NoError(t, err)
	assert.Equal(t, "dev-1", id)

	for _, bad := range []string{"other.dev-1.state", "home.dev-1.command", "home..state", "home.a.b.state"} {
		_, err := s.DeviceIDFromState(bad)
		assert.ErrorIs(t, err, ErrInvalidDeviceID, bad)
	}

	assert.Equal(t, "devices.*.state", Subjects{}.AllStates())
}

func TestValidateDeviceID(t *testing.T) {
	assert.NoError(t, ValidateDeviceID("esp32-AB12"))
	for _, bad := range []string{"", "a.b", "a*", "a>", "a b"} {
		assert.ErrorIs(t, ValidateDeviceID(bad), ErrInvalidDeviceID, bad)
	}
}

func TestPublisher_Publish(t *testing.T) {
	conn := &fakeConn{connected: true}
	rec := diag.NewRecorder(0)
	p := NewPublisher(conn, Subjects{}, schema.NewValidator(), rec)

	d := &device.Descriptor{DeviceID: "dev-1", RegistrationID: "reg-1", Type: device.TypeDimmableLight}
	cmd := NewCommand(d, true)
	cmd.SliderValue = device.Ptr(45)
	p.Publish(context.Background(), cmd)

	require.Len(t, conn.published, 1)
	assert.Equal(t, "devices.dev-1.command", conn.published[0].subject)

	var got map[string]any
	require.NoError(t, json.Unmarshal(conn.published[0].data, &got))
	assert.Equal(t, "dev-1", got["deviceId"])
	assert.Equal(t, "reg-1", got["registrationId"])
	assert.Equal(t, "DimmableLight", got["deviceType"])
	assert.Equal(t, true, got["state"])
	assert.Equal(t, float64(45), got["sliderValue"])
	assert.NotContains(t, got, "color")
	assert.Equal(t, 0, rec.Count(diag.CommandPublishFailed))
}

func TestPublisher_FailuresAreSwallowed(t *testing.T) {
	tests := []struct {
		name string
		conn *fakeConn
		cmd  Command
	}{
		{"disconnected", &fakeConn{connected: false}, Command{DeviceID: "dev-1"}},
		{"publish error", &fakeConn{connected: true, publishErr: errors.New("boom")}, Command{DeviceID: "dev-1", DeviceType: device.TypeSwitch}},
		{"bad id", &fakeConn{connected: true}, Command{DeviceID: "a.b"}},
		{"schema", &fakeConn{connected: true}, Command{DeviceID: "dev-1", DeviceType: device.TypeFan, SliderValue: device.Ptr(200)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := diag.NewRecorder(0)
			p := NewPublisher(tt.conn, Subjects{}, schema.NewValidator(), rec)
			p.Publish(context.Background(), tt.cmd)

			assert.Empty(t, tt.conn.published)
			assert.Equal(t, 1, rec.Count(diag.CommandPublishFailed))
		})
	}
}

func TestSubscribeStates(t *testing.T) {
	conn := &fakeConn{connected: true}
	var gotID string
	var gotPayload []byte
	_, err := SubscribeStates(conn, Subjects{}, func(id string, payload []byte) {
		gotID, gotPayload = id, payload
	})
	require.NoError(t, err)
	assert.Equal(t, "devices.*.state", conn.subject)

	conn.handler(&nats.Msg{Subject: "devices.dev-9.state", Data: []byte(`{"state":true}`)})
	assert.Equal(t, "dev-9", gotID)
	assert.JSONEq(t, `{"state":true}`, string(gotPayload))

	gotID = ""
	conn.handler(&nats.Msg{Subject: "devices.dev-9.other"})
	assert.Empty(t, gotID)
}
