package core

import (
	"strings"
)

// Parameters carries everything a single command's execution needs:
// the values extracted from the command text plus the catalog snapshot
// current at the time of construction. Index fields are 1-based as
// spoken ("playlist 2"); zero means unset.
type Parameters struct {
	PlaylistIndex int
	DeviceIndex   int
	DeviceName    string
	Volume        *int
	Room          string
	Playlists     []Playlist
	Devices       []Device
}

// BuildParameters extracts typed parameters from the command's tagged
// numbers for the given action. It is a pure function; missing values
// stay unset and never produce an error. When several numbers qualify
// for the same slot the first occurrence wins and the rest are
// discarded silently.
func BuildParameters(action Action, cmd *Command, snap *Snapshot) Parameters {
	params := Parameters{
		Room:      cmd.Room,
		Playlists: snap.Playlists,
		Devices:   snap.Devices,
	}

	switch action {
	case ActionPlayPlaylist:
		params.DeviceName = cmd.DeviceName
		for _, num := range cmd.Numbers {
			if params.PlaylistIndex == 0 && strings.Contains(num.Previous, "playlist") {
				params.PlaylistIndex = num.Value
			}
			if params.DeviceIndex == 0 && strings.Contains(num.Previous, "device") {
				params.DeviceIndex = num.Value
			}
		}
	case ActionSetVolume:
		for _, num := range cmd.Numbers {
			if params.Volume == nil && strings.Contains(num.Previous, "to") {
				volume := num.Value
				params.Volume = &volume
			}
		}
	}

	return params
}

// SelectedPlaylist returns the playlist addressed by the 1-based
// playlist index, or nil when the index is unset or out of range.
func (p Parameters) SelectedPlaylist() *Playlist {
	if p.PlaylistIndex < 1 || p.PlaylistIndex > len(p.Playlists) {
		return nil
	}
	return &p.Playlists[p.PlaylistIndex-1]
}

// TargetDevice resolves the playback target for these parameters using
// the resolver precedence, or nil when nothing resolves.
func (p Parameters) TargetDevice() *Device {
	return ResolveDevice(p.Devices, p.Room, p.DeviceIndex, p.DeviceName)
}

// CappedVolume is the requested volume clamped to MaxVolumePercent.
// Zero when no volume was requested.
func (p Parameters) CappedVolume() int {
	if p.Volume == nil {
		return 0
	}
	if *p.Volume > MaxVolumePercent {
		return MaxVolumePercent
	}
	return *p.Volume
}
