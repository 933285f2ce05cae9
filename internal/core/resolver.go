package core

import (
	"strings"
)

// ResolveDevice picks the concrete playback target for a command.
//
// Precedence, first match wins:
//  1. explicit 1-based index into the full device list
//  2. case-insensitive exact name match across the full list
//  3. the device flagged as main for the room
//  4. the first device registered for the room
//
// An explicit reference always outranks room inference because the user
// named a target; the main flag is only a room-level default. A nil
// return means nothing resolved.
func ResolveDevice(devices []Device, room string, explicitIndex int, explicitName string) *Device {
	if explicitIndex != 0 {
		return DeviceByIndex(explicitIndex, devices)
	}

	if explicitName != "" {
		for i := range devices {
			if strings.EqualFold(devices[i].Name, explicitName) {
				return &devices[i]
			}
		}
	}

	if device := MainDeviceForRoom(devices, room); device != nil {
		return device
	}

	for i := range devices {
		if devices[i].Room == room {
			return &devices[i]
		}
	}

	return nil
}

// DeviceByIndex returns the device at the given 1-based position in the
// full device list, or nil when the index is out of range.
func DeviceByIndex(index int, devices []Device) *Device {
	if index < 1 || index > len(devices) {
		return nil
	}
	return &devices[index-1]
}

// MainDeviceForRoom returns the first device flagged as main for the
// room, or nil when the room has none.
func MainDeviceForRoom(devices []Device, room string) *Device {
	for i := range devices {
		if devices[i].IsMain && devices[i].Room == room {
			return &devices[i]
		}
	}
	return nil
}

// PlaylistIDByIndex returns the Spotify ID of the playlist at the given
// 1-based position, or "" when the index is out of range.
func PlaylistIDByIndex(index int, playlists []Playlist) string {
	if index < 1 || index > len(playlists) {
		return ""
	}
	return playlists[index-1].ID
}
