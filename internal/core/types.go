package core

import (
	"context"
	"time"
)

// DefaultDeviceVolume is the volume assigned to a device record on first
// sighting; operators adjust it in the device registry afterwards.
const DefaultDeviceVolume = 55

// Playlist is one Spotify playlist as cached from the Web API.
type Playlist struct {
	ID   string
	Name string
}

// Device is a playback device joined with its registry attributes. The
// registry is the system of record for Room, IsMain and DefaultVolume.
type Device struct {
	ID            int64
	SpotifyID     string
	Name          string
	Room          string
	IsMain        bool
	DefaultVolume int
	IP            string
}

// PlayerDevice is a device exactly as reported by the streaming API,
// before it is joined against the device registry.
type PlayerDevice struct {
	ID     string
	Name   string
	Active bool
}

// PlaybackState is the subset of the player state the dispatcher needs.
type PlaybackState struct {
	Playing  bool
	DeviceID string
}

// NumberEntity is a number found in the command text together with the
// word immediately preceding it.
type NumberEntity struct {
	Value    int
	Previous string
}

// Command is one parsed voice command delivered by the message bus.
// It is consumed once and never persisted.
type Command struct {
	ID          string
	Text        string
	Room        string
	OutputTopic string
	DeviceName  string
	Numbers     []NumberEntity
	Nouns       []string
}

// Snapshot is an immutable view of the catalog cache contents. Both
// lists are sorted by Spotify ID for stable index-based references.
type Snapshot struct {
	Playlists []Playlist
	Devices   []Device
}

// MusicClient is the capability set consumed from the streaming service.
// Every method may fail with a service error; callers contain those.
type MusicClient interface {
	ListPlaylists(ctx context.Context) ([]Playlist, error)
	ListDevices(ctx context.Context) ([]PlayerDevice, error)
	StartPlaylist(ctx context.Context, deviceID, playlistID string) error
	ResumePlayback(ctx context.Context, deviceID string) error
	PausePlayback(ctx context.Context) error
	NextTrack(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error
	SetShuffle(ctx context.Context, on bool) error
	TransferPlayback(ctx context.Context, deviceID string) error
	CurrentPlayback(ctx context.Context) (*PlaybackState, error)
}

// DeviceStore persists devices discovered from the streaming service.
// FindBySpotifyID returns (nil, nil) when no record exists.
type DeviceStore interface {
	FindBySpotifyID(ctx context.Context, spotifyID string) (*Device, error)
	Insert(ctx context.Context, device *Device) error
}

// CatalogView is the read side of the catalog cache. Snapshot never
// blocks and never returns nil.
type CatalogView interface {
	Snapshot() *Snapshot
}

// Responder delivers a rendered answer to the user-facing channel. An
// empty topic means the configured default response topic.
type Responder interface {
	Respond(ctx context.Context, topic, text string) error
}

// AnswerRenderer renders the acknowledgement text for an action.
type AnswerRenderer interface {
	Render(action Action, params Parameters) (string, error)
}

// SeenStore suppresses re-deliveries of already processed commands.
type SeenStore interface {
	Seen(id string) bool
	Mark(id string)
}

// RateLimiter throttles command processing per room.
type RateLimiter interface {
	Allow(room string) bool
}

// MetricsRecorder receives operational counters. Implementations must
// tolerate concurrent use; a nil recorder disables metrics.
type MetricsRecorder interface {
	RecordCommand(action, status string)
	RecordProcessingTime(action string, duration time.Duration)
	RecordAPIError(operation string)
	RecordCacheRefresh(status string)
	SetCatalogSize(playlists, devices int)
}
