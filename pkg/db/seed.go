package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-alexa/pkg/device"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFixture is returned for fixtures that reference unknown users or
// omit required ids.
var ErrInvalidFixture = errors.New("invalid fixture")

// Fixture is a set of users and devices to preload, usually read from YAML:
//
//	users:
//	  - id: u1
//	    email: ada@example.com
//	devices:
//	  - device_id: esp-01
//	    owner_user_id: u1
//	    name: Desk lamp
//	    type: Dimmable light
type Fixture struct {
	Users   []device.User       `yaml:"users"`
	Devices []device.Descriptor `yaml:"devices"`
}

// LoadFixture reads a YAML fixture from path.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Seed upserts the fixture. Descriptor fields are overwritten on conflict;
// observed state is only set when a device is first inserted.
func (db *DB) Seed(ctx context.Context, f *Fixture) error {
	if f == nil {
		return nil
	}

	err := db.Tx(ctx, func(tx *sql.Tx) error {
		for _, u := range f.Users {
			if u.UserID == "" || u.Email == "" {
				return fmt.Errorf("%w: user needs id and email", ErrInvalidFixture)
			}
			var expires any
			if u.TokenExpiresAt != nil {
				expires = formatTime(*u.TokenExpiresAt)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO users (id, email, access_token, token_expires_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					email = excluded.email,
					access_token = COALESCE(excluded.access_token, users.access_token),
					token_expires_at = COALESCE(excluded.token_expires_at, users.token_expires_at)
			`, u.UserID, u.Email, nullable(u.AccessToken), expires); err != nil {
				return fmt.Errorf("failed to seed user %s: %w", u.UserID, err)
			}
		}

		for _, d := range f.Devices {
			if d.DeviceID == "" || d.OwnerUserID == "" {
				return fmt.Errorf("%w: device needs device_id and owner_user_id", ErrInvalidFixture)
			}
			typ := device.ParseType(string(d.Type))
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO devices (device_id, user_id, name, type, registration_id,
					power_state, slider_value, color_hex, connectivity, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(device_id) DO UPDATE SET
					user_id = excluded.user_id,
					name = excluded.name,
					type = excluded.type,
					registration_id = excluded.registration_id
			`, d.DeviceID, d.OwnerUserID, d.DisplayName, string(typ), d.RegistrationID,
				d.PowerState, d.SliderValue, nullable(d.ColorHex), d.Connectivity, formatTime(timeNow())); err != nil {
				return fmt.Errorf("failed to seed device %s: %w", d.DeviceID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Int("users", len(f.Users)).Int("devices", len(f.Devices)).Msg("Seeded directory")
	return nil
}
