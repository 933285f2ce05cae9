// Package catalog maintains an in-memory snapshot of the user's
// playlists and registered playback devices, refreshed periodically
// from the streaming API and the device registry.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"spotiskill/internal/core"
)

const (
	refreshOK     = "ok"
	refreshFailed = "failed"
)

// Cache holds the current catalog snapshot. Readers get a consistent,
// immutable view; Refresh swaps the whole snapshot in one step so a
// failed refresh leaves the previous view intact.
type Cache struct {
	music    core.MusicClient
	store    core.DeviceStore
	logger   *zap.Logger
	interval time.Duration
	metrics  core.MetricsRecorder

	snapshot atomic.Pointer[core.Snapshot]
}

func New(music core.MusicClient, store core.DeviceStore, interval time.Duration, metrics core.MetricsRecorder, logger *zap.Logger) *Cache {
	c := &Cache{
		music:    music,
		store:    store,
		logger:   logger,
		interval: interval,
		metrics:  metrics,
	}
	c.snapshot.Store(&core.Snapshot{})
	return c
}

// Snapshot returns the current catalog view. Never nil, never blocks.
func (c *Cache) Snapshot() *core.Snapshot {
	return c.snapshot.Load()
}

// Run refreshes the cache on the configured interval until the context
// is cancelled. Refresh failures are logged and the loop continues with
// the previous snapshot.
func (c *Cache) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Error("Catalog refresh failed", zap.Error(err))
			}
		}
	}
}

// Refresh fetches playlists and devices and swaps the snapshot once,
// after both fetches succeeded. Devices unknown to the registry are
// registered on first sighting; devices whose name does not parse are
// skipped with a warning.
func (c *Cache) Refresh(ctx context.Context) error {
	playlists, err := c.music.ListPlaylists(ctx)
	if err != nil {
		c.recordRefresh(refreshFailed)
		return fmt.Errorf("list playlists: %w", err)
	}
	sort.Slice(playlists, func(i, j int) bool {
		return playlists[i].ID < playlists[j].ID
	})

	playerDevices, err := c.music.ListDevices(ctx)
	if err != nil {
		c.recordRefresh(refreshFailed)
		return fmt.Errorf("list devices: %w", err)
	}

	devices := make([]core.Device, 0, len(playerDevices))
	for _, pd := range playerDevices {
		device, err := c.registerDevice(ctx, pd)
		if err != nil {
			c.recordRefresh(refreshFailed)
			return fmt.Errorf("register device %q: %w", pd.Name, err)
		}
		if device == nil {
			continue
		}
		devices = append(devices, *device)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].SpotifyID < devices[j].SpotifyID
	})

	c.snapshot.Store(&core.Snapshot{
		Playlists: playlists,
		Devices:   devices,
	})

	c.logger.Info("Catalog refreshed",
		zap.Int("playlists", len(playlists)),
		zap.Int("devices", len(devices)))
	c.recordRefresh(refreshOK)
	if c.metrics != nil {
		c.metrics.SetCatalogSize(len(playlists), len(devices))
	}
	return nil
}

// registerDevice joins an API-reported device against the registry,
// inserting a record on first sighting. A nil device without error
// means the device was skipped.
func (c *Cache) registerDevice(ctx context.Context, pd core.PlayerDevice) (*core.Device, error) {
	existing, err := c.store.FindBySpotifyID(ctx, pd.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Keep the registry's room assignment but follow name changes
		// on the streaming side. The cache carries only the name part
		// after the room prefix; that is how users address the device.
		if _, name, ok := parseDeviceName(pd.Name); ok {
			existing.Name = name
		}
		return existing, nil
	}

	room, name, ok := parseDeviceName(pd.Name)
	if !ok {
		c.logger.Warn("Skipping device with unparseable name",
			zap.String("name", pd.Name),
			zap.String("spotifyID", pd.ID))
		return nil, nil
	}

	device := &core.Device{
		SpotifyID:     pd.ID,
		Name:          name,
		Room:          room,
		DefaultVolume: core.DefaultDeviceVolume,
	}
	if err := c.store.Insert(ctx, device); err != nil {
		return nil, err
	}

	c.logger.Info("Registered new playback device",
		zap.String("name", pd.Name),
		zap.String("room", room))
	return device, nil
}

// parseDeviceName splits a "room-name" device name into its room and
// name parts. Underscores in the room part are dropped so
// "living_room-speaker" lands in room "livingroom", matching how rooms
// arrive on commands.
func parseDeviceName(full string) (room, name string, ok bool) {
	room, name, ok = strings.Cut(full, "-")
	if !ok || room == "" || name == "" {
		return "", "", false
	}
	return strings.ReplaceAll(room, "_", ""), name, true
}

func (c *Cache) recordRefresh(status string) {
	if c.metrics != nil {
		c.metrics.RecordCacheRefresh(status)
	}
}
