package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/homai-alexa/pkg/device"
)

const fixtureYAML = `
users:
  - id: u1
    email: Ada@Example.com
    access_token: amzn-1
  - id: u2
    email: bob@example.com
devices:
  - device_id: dim-1
    owner_user_id: u1
    name: Desk lamp
    type: Dimmable light
    registration_id: reg-1
    slider_value: 45
  - device_id: rgb-1
    owner_user_id: u1
    name: Strip
    type: rgb
    color_hex: ff0000
  - device_id: sw-1
    owner_user_id: u2
    name: Kettle
    type: switch
`

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedTestDB(t *testing.T, db *DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o600))
	f, err := LoadFixture(path)
	require.NoError(t, err)
	require.NoError(t, db.Seed(context.Background(), f))
}

func TestOpenMigrates(t *testing.T) {
	db := openTestDB(t)

	version, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	// second migrate is a no-op
	require.NoError(t, db.Migrate(context.Background()))
}

func TestOpenInMemory(t *testing.T) {
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	devices, err := db.Directory().ListDevicesForUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)
}

func TestListAndGet(t *testing.T) {
	db := openTestDB(t)
	seedTestDB(t, db)
	dir := db.Directory()
	ctx := context.Background()

	devices, err := dir.ListDevicesForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "dim-1", devices[0].DeviceID)
	assert.Equal(t, device.TypeDimmableLight, devices[0].Type)
	assert.Equal(t, 45, devices[0].SliderValue)
	assert.Equal(t, device.TypeRGB, devices[1].Type)
	require.NotNil(t, devices[1].ColorHex)
	assert.Equal(t, "ff0000", *devices[1].ColorHex)

	d, err := dir.GetDeviceForUser(ctx, "u1", "dim-1")
	require.NoError(t, err)
	assert.Equal(t, "Desk lamp", d.DisplayName)
	assert.Equal(t, "reg-1", d.RegistrationID)

	_, err = dir.GetDeviceForUser(ctx, "u1", "sw-1")
	assert.ErrorIs(t, err, device.ErrNotFound)
}

func TestFindDeviceGlobally(t *testing.T) {
	db := openTestDB(t)
	seedTestDB(t, db)
	dir := db.Directory()

	d, owner, err := dir.FindDeviceGlobally(context.Background(), "sw-1")
	require.NoError(t, err)
	assert.Equal(t, "u2", owner)
	assert.Equal(t, device.TypeSwitch, d.Type)

	_, _, err = dir.FindDeviceGlobally(context.Background(), "ghost")
	assert.ErrorIs(t, err, device.ErrNotFound)
}

func TestUpdateDeviceState(t *testing.T) {
	db := openTestDB(t)
	seedTestDB(t, db)
	dir := db.Directory()
	ctx := context.Background()

	err := dir.UpdateDeviceState(ctx, "u1", "dim-1", device.StateUpdate{
		PowerState:   device.Ptr(true),
		Connectivity: device.Ptr(true),
	})
	require.NoError(t, err)

	d, err := dir.GetDeviceForUser(ctx, "u1", "dim-1")
	require.NoError(t, err)
	assert.True(t, d.PowerState)
	assert.True(t, d.Connectivity)
	assert.Equal(t, 45, d.SliderValue, "untouched fields keep their value")
	assert.Equal(t, int64(1), d.Revision)

	require.NoError(t, dir.UpdateDeviceState(ctx, "u1", "dim-1", device.StateUpdate{SliderValue: device.Ptr(27)}))
	d, err = dir.GetDeviceForUser(ctx, "u1", "dim-1")
	require.NoError(t, err)
	assert.Equal(t, 27, d.SliderValue)
	assert.Equal(t, int64(2), d.Revision)

	err = dir.UpdateDeviceState(ctx, "u2", "dim-1", device.StateUpdate{PowerState: device.Ptr(false)})
	assert.ErrorIs(t, err, device.ErrNotFound)
}

func TestAccessTokens(t *testing.T) {
	db := openTestDB(t)
	seedTestDB(t, db)
	dir := db.Directory()
	ctx := context.Background()

	token, ok, err := dir.AccessTokenForUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "amzn-1", token)

	_, ok, err = dir.AccessTokenForUser(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = dir.AccessTokenForUser(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, dir.SetAccessToken(ctx, "u2", "amzn-2", time.Now().Add(time.Hour)))
	token, ok, err = dir.AccessTokenForUser(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "amzn-2", token)

	require.NoError(t, dir.SetAccessToken(ctx, "u2", "amzn-old", time.Now().Add(-time.Minute)))
	_, ok, err = dir.AccessTokenForUser(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, ok, "expired tokens are not returned")

	assert.ErrorIs(t, dir.SetAccessToken(ctx, "ghost", "x", time.Time{}), device.ErrUserNotFound)
}

func TestUserByEmail(t *testing.T) {
	db := openTestDB(t)
	seedTestDB(t, db)
	dir := db.Directory()

	u, err := dir.UserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)

	_, err = dir.UserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, device.ErrUserNotFound)
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	seedTestDB(t, db)
	dir := db.Directory()
	ctx := context.Background()

	require.NoError(t, dir.UpdateDeviceState(ctx, "u1", "dim-1", device.StateUpdate{SliderValue: device.Ptr(10)}))
	seedTestDB(t, db)

	d, err := dir.GetDeviceForUser(ctx, "u1", "dim-1")
	require.NoError(t, err)
	assert.Equal(t, 10, d.SliderValue, "reseeding keeps observed state")
}

func TestSeedRejectsIncompleteEntries(t *testing.T) {
	db := openTestDB(t)
	err := db.Seed(context.Background(), &Fixture{Devices: []device.Descriptor{{DisplayName: "no id"}}})
	assert.ErrorIs(t, err, ErrInvalidFixture)
}
