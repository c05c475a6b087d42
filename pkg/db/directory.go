package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/urmzd/homai-alexa/pkg/device"
)

// Directory returns a device.Directory backed by this database.
func (db *DB) Directory() *Directory {
	return &Directory{db: db, now: timeNow}
}

// Directory implements device.Directory on SQLite.
type Directory struct {
	db  *DB
	now func() time.Time
}

var _ device.Directory = (*Directory)(nil)

const deviceColumns = `device_id, user_id, name, type, registration_id, power_state,
	slider_value, color_hex, connectivity, revision, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*device.Descriptor, error) {
	var (
		d        device.Descriptor
		typ      string
		colorHex sql.NullString
		updated  string
	)
	if err := row.Scan(&d.DeviceID, &d.OwnerUserID, &d.DisplayName, &typ, &d.RegistrationID,
		&d.PowerState, &d.SliderValue, &colorHex, &d.Connectivity, &d.Revision, &updated); err != nil {
		return nil, err
	}
	d.Type = device.ParseType(typ)
	if colorHex.Valid {
		hex := colorHex.String
		d.ColorHex = &hex
	}
	d.UpdatedAt = parseTime(updated)
	return &d, nil
}

func (s *Directory) ListDevicesForUser(ctx context.Context, userID string) ([]device.Descriptor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+deviceColumns+`
		FROM devices WHERE user_id = ?
		ORDER BY device_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	devices := []device.Descriptor{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

func (s *Directory) GetDeviceForUser(ctx context.Context, userID, deviceID string) (*device.Descriptor, error) {
	d, err := scanDevice(s.db.QueryRowContext(ctx, `
		SELECT `+deviceColumns+`
		FROM devices WHERE device_id = ? AND user_id = ?
	`, deviceID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, device.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return d, nil
}

func (s *Directory) FindDeviceGlobally(ctx context.Context, deviceID string) (*device.Descriptor, string, error) {
	d, err := scanDevice(s.db.QueryRowContext(ctx, `
		SELECT `+deviceColumns+`
		FROM devices WHERE device_id = ?
	`, deviceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", device.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to find device: %w", err)
	}
	return d, d.OwnerUserID, nil
}

// UpdateDeviceState applies the non-nil fields of update. Concurrent writers
// are last-write-wins; every write bumps the revision.
func (s *Directory) UpdateDeviceState(ctx context.Context, userID, deviceID string, update device.StateUpdate) error {
	var colorHex any
	if update.ColorHex != nil {
		colorHex = *update.ColorHex
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE devices SET
			power_state  = COALESCE(?, power_state),
			slider_value = COALESCE(?, slider_value),
			color_hex    = COALESCE(?, color_hex),
			connectivity = COALESCE(?, connectivity),
			revision     = revision + 1,
			updated_at   = ?
		WHERE device_id = ? AND user_id = ?
	`, nullable(update.PowerState), nullable(update.SliderValue), colorHex, nullable(update.Connectivity),
		formatTime(s.now()), deviceID, userID)
	if err != nil {
		return fmt.Errorf("failed to update device state: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update device state: %w", err)
	}
	if n == 0 {
		return device.ErrNotFound
	}
	return nil
}

func (s *Directory) AccessTokenForUser(ctx context.Context, userID string) (string, bool, error) {
	var token, expires sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT access_token, token_expires_at FROM users WHERE id = ?
	`, userID).Scan(&token, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read access token: %w", err)
	}
	if !token.Valid || token.String == "" {
		return "", false, nil
	}
	if expires.Valid && !s.now().Before(parseTime(expires.String)) {
		return "", false, nil
	}
	return token.String, true, nil
}

func (s *Directory) UserByEmail(ctx context.Context, email string) (*device.User, error) {
	var (
		u       device.User
		token   sql.NullString
		expires sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, access_token, token_expires_at FROM users WHERE email = ?
	`, email).Scan(&u.UserID, &u.Email, &token, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, device.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if token.Valid {
		u.AccessToken = &token.String
	}
	if expires.Valid {
		t := parseTime(expires.String)
		u.TokenExpiresAt = &t
	}
	return &u, nil
}

// SetAccessToken stores the event gateway credential. A zero expiresAt means
// the token does not expire.
func (s *Directory) SetAccessToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	var expires any
	if !expiresAt.IsZero() {
		expires = formatTime(expiresAt)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET access_token = ?, token_expires_at = ? WHERE id = ?
	`, token, expires, userID)
	if err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if n == 0 {
		return device.ErrUserNotFound
	}
	return nil
}

// timeNow is swapped in tests.
var timeNow = time.Now

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.DateTime, s)
	return t
}
