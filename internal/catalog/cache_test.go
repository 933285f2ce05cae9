package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"spotiskill/internal/core"
)

type fakeMusic struct {
	playlists    []core.Playlist
	devices      []core.PlayerDevice
	playlistsErr error
	devicesErr   error
}

func (f *fakeMusic) ListPlaylists(_ context.Context) ([]core.Playlist, error) {
	return f.playlists, f.playlistsErr
}

func (f *fakeMusic) ListDevices(_ context.Context) ([]core.PlayerDevice, error) {
	return f.devices, f.devicesErr
}

func (f *fakeMusic) StartPlaylist(_ context.Context, _, _ string) error { return nil }
func (f *fakeMusic) ResumePlayback(_ context.Context, _ string) error   { return nil }
func (f *fakeMusic) PausePlayback(_ context.Context) error              { return nil }
func (f *fakeMusic) NextTrack(_ context.Context) error                  { return nil }
func (f *fakeMusic) SetVolume(_ context.Context, _ int) error           { return nil }
func (f *fakeMusic) SetShuffle(_ context.Context, _ bool) error         { return nil }
func (f *fakeMusic) TransferPlayback(_ context.Context, _ string) error { return nil }
func (f *fakeMusic) CurrentPlayback(_ context.Context) (*core.PlaybackState, error) {
	return nil, nil
}

type memoryDeviceStore struct {
	devices map[string]*core.Device
	inserts int
	nextID  int64
}

func newMemoryDeviceStore() *memoryDeviceStore {
	return &memoryDeviceStore{devices: make(map[string]*core.Device)}
}

func (m *memoryDeviceStore) FindBySpotifyID(_ context.Context, spotifyID string) (*core.Device, error) {
	device, ok := m.devices[spotifyID]
	if !ok {
		return nil, nil
	}
	copied := *device
	return &copied, nil
}

func (m *memoryDeviceStore) Insert(_ context.Context, device *core.Device) error {
	m.nextID++
	device.ID = m.nextID
	copied := *device
	m.devices[device.SpotifyID] = &copied
	m.inserts++
	return nil
}

func newTestCache(music *fakeMusic, store *memoryDeviceStore) *Cache {
	return New(music, store, time.Hour, nil, zap.NewNop())
}

func TestRefresh_SortsAndRegisters(t *testing.T) {
	music := &fakeMusic{
		playlists: []core.Playlist{
			{ID: "pl-z", Name: "Zebra"},
			{ID: "pl-a", Name: "Alpha"},
		},
		devices: []core.PlayerDevice{
			{ID: "dev-z", Name: "office-speaker"},
			{ID: "dev-a", Name: "kitchen-speaker"},
		},
	}
	store := newMemoryDeviceStore()
	cache := newTestCache(music, store)

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	snap := cache.Snapshot()

	if len(snap.Playlists) != 2 || snap.Playlists[0].ID != "pl-a" || snap.Playlists[1].ID != "pl-z" {
		t.Errorf("playlists not sorted by ID: %v", snap.Playlists)
	}
	if len(snap.Devices) != 2 || snap.Devices[0].SpotifyID != "dev-a" || snap.Devices[1].SpotifyID != "dev-z" {
		t.Errorf("devices not sorted by ID: %v", snap.Devices)
	}

	if snap.Devices[0].Room != "kitchen" {
		t.Errorf("Room = %q, want kitchen", snap.Devices[0].Room)
	}
	if snap.Devices[0].Name != "speaker" {
		t.Errorf("Name = %q, want the part after the room prefix", snap.Devices[0].Name)
	}
	if snap.Devices[0].DefaultVolume != core.DefaultDeviceVolume {
		t.Errorf("DefaultVolume = %d, want %d", snap.Devices[0].DefaultVolume, core.DefaultDeviceVolume)
	}
	if store.inserts != 2 {
		t.Errorf("inserts = %d, want 2", store.inserts)
	}
}

func TestRefresh_IsIdempotent(t *testing.T) {
	music := &fakeMusic{
		devices: []core.PlayerDevice{
			{ID: "dev-1", Name: "kitchen-speaker"},
		},
	}
	store := newMemoryDeviceStore()
	cache := newTestCache(music, store)

	for i := 0; i < 3; i++ {
		if err := cache.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() #%d failed: %v", i+1, err)
		}
	}

	if store.inserts != 1 {
		t.Errorf("inserts = %d, want 1 across repeated refreshes", store.inserts)
	}
}

func TestRefresh_SkipsUnparseableDeviceNames(t *testing.T) {
	music := &fakeMusic{
		devices: []core.PlayerDevice{
			{ID: "dev-1", Name: "kitchen-speaker"},
			{ID: "dev-2", Name: "NoRoomSeparator"},
		},
	}
	store := newMemoryDeviceStore()
	cache := newTestCache(music, store)

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	snap := cache.Snapshot()
	if len(snap.Devices) != 1 || snap.Devices[0].SpotifyID != "dev-1" {
		t.Errorf("devices = %v, want only dev-1", snap.Devices)
	}
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	music := &fakeMusic{
		playlists: []core.Playlist{{ID: "pl-a", Name: "Alpha"}},
	}
	store := newMemoryDeviceStore()
	cache := newTestCache(music, store)

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	music.devicesErr = errors.New("service unavailable")
	music.playlists = []core.Playlist{{ID: "pl-b", Name: "Beta"}}

	if err := cache.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() should fail when device listing fails")
	}

	snap := cache.Snapshot()
	if len(snap.Playlists) != 1 || snap.Playlists[0].ID != "pl-a" {
		t.Errorf("snapshot changed on failed refresh: %v", snap.Playlists)
	}
}

func TestRefresh_KeepsRegistryRoomAssignment(t *testing.T) {
	music := &fakeMusic{
		devices: []core.PlayerDevice{
			{ID: "dev-1", Name: "kitchen-speaker-renamed"},
		},
	}
	store := newMemoryDeviceStore()
	store.devices["dev-1"] = &core.Device{
		ID: 1, SpotifyID: "dev-1", Name: "speaker",
		Room: "bedroom", IsMain: true, DefaultVolume: 30,
	}
	cache := newTestCache(music, store)

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	snap := cache.Snapshot()
	if len(snap.Devices) != 1 {
		t.Fatalf("devices = %v, want one", snap.Devices)
	}
	device := snap.Devices[0]
	if device.Room != "bedroom" || !device.IsMain || device.DefaultVolume != 30 {
		t.Errorf("registry attributes lost: %+v", device)
	}
	if device.Name != "speaker-renamed" {
		t.Errorf("Name = %q, want the renamed name without the room prefix", device.Name)
	}
	if store.inserts != 0 {
		t.Errorf("inserts = %d, want 0 for a known device", store.inserts)
	}
}

func TestParseDeviceName(t *testing.T) {
	tests := []struct {
		name     string
		device   string
		wantRoom string
		wantName string
		wantOK   bool
	}{
		{"simple", "kitchen-speaker", "kitchen", "speaker", true},
		{"underscores dropped", "living_room-speaker", "livingroom", "speaker", true},
		{"extra dashes kept in name part", "office-desk-speaker", "office", "desk-speaker", true},
		{"no separator", "speaker", "", "", false},
		{"empty room", "-speaker", "", "", false},
		{"empty name", "kitchen-", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, name, ok := parseDeviceName(tt.device)
			if ok != tt.wantOK || room != tt.wantRoom || name != tt.wantName {
				t.Errorf("parseDeviceName(%q) = (%q, %q, %t), want (%q, %q, %t)",
					tt.device, room, name, ok, tt.wantRoom, tt.wantName, tt.wantOK)
			}
		})
	}
}
