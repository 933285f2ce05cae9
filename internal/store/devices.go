// Package store provides the persistent device registry and the
// in-memory store that suppresses re-delivered commands.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"spotiskill/internal/core"
)

const deviceSchema = `
CREATE TABLE IF NOT EXISTS device (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	spotify_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	room TEXT NOT NULL,
	is_main INTEGER NOT NULL DEFAULT 0,
	default_volume INTEGER NOT NULL DEFAULT 55,
	ip TEXT
);
`

// DeviceStore is the SQLite-backed registry of playback devices. The
// registry owns room assignment, main flag and default volume; device
// discovery only inserts, operators edit the rest directly.
type DeviceStore struct {
	db *sql.DB
}

func NewDeviceStore(path string) (*DeviceStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open device registry: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach device registry: %w", err)
	}

	if _, err := db.Exec(deviceSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create device schema: %w", err)
	}

	return &DeviceStore{db: db}, nil
}

// FindBySpotifyID returns the registered device, or (nil, nil) when no
// record exists for the given streaming-service ID.
func (s *DeviceStore) FindBySpotifyID(ctx context.Context, spotifyID string) (*core.Device, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, spotify_id, name, room, is_main, default_volume, COALESCE(ip, '')
		 FROM device WHERE spotify_id = ?`, spotifyID)

	var device core.Device
	err := row.Scan(&device.ID, &device.SpotifyID, &device.Name,
		&device.Room, &device.IsMain, &device.DefaultVolume, &device.IP)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device %q: %w", spotifyID, err)
	}

	return &device, nil
}

// Insert stores a new device and fills in its assigned ID. An empty IP
// is stored as NULL.
func (s *DeviceStore) Insert(ctx context.Context, device *core.Device) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO device (spotify_id, name, room, is_main, default_volume, ip)
		 VALUES (?, ?, ?, ?, ?, NULLIF(?, ''))`,
		device.SpotifyID, device.Name, device.Room,
		device.IsMain, device.DefaultVolume, device.IP)
	if err != nil {
		return fmt.Errorf("failed to insert device %q: %w", device.SpotifyID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get device ID: %w", err)
	}
	device.ID = id

	return nil
}

func (s *DeviceStore) Close() error {
	return s.db.Close()
}
