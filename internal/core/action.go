package core

import (
	"strings"
	"unicode"
)

// Action is one of the fixed set of supported voice commands.
type Action int

const (
	// ActionUnknown means no keyword set matched the command text.
	ActionUnknown Action = iota
	ActionHelp
	ActionListPlaylists
	ActionListDevices
	ActionPlayPlaylist
	ActionStopPlayback
	ActionNextTrack
	ActionSetVolume
	ActionContinue
)

func (a Action) String() string {
	switch a {
	case ActionHelp:
		return "help"
	case ActionListPlaylists:
		return "list_playlists"
	case ActionListDevices:
		return "list_devices"
	case ActionPlayPlaylist:
		return "play_playlist"
	case ActionStopPlayback:
		return "stop_playback"
	case ActionNextTrack:
		return "next_track"
	case ActionSetVolume:
		return "set_volume"
	case ActionContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// actionKeywords pairs each action with the keywords that must all be
// present in the command text. Order defines the tie-break should two
// keyword sets ever overlap; the current set has no overlaps.
var actionKeywords = []struct {
	action   Action
	keywords []string
}{
	{ActionHelp, []string{"help"}},
	{ActionListPlaylists, []string{"list", "playlists"}},
	{ActionListDevices, []string{"list", "devices"}},
	{ActionPlayPlaylist, []string{"play", "playlist"}},
	{ActionStopPlayback, []string{"stop", "playback"}},
	{ActionNextTrack, []string{"next", "track"}},
	{ActionSetVolume, []string{"set", "volume"}},
	{ActionContinue, []string{"continue"}},
}

// ClassifyAction matches command text against each action's keyword set
// by subset containment over the punctuation-stripped, lower-cased
// tokens. The first action whose keywords are all present wins;
// ActionUnknown means the utterance is not for this skill.
func ClassifyAction(text string) Action {
	tokens := tokenSet(text)

	for _, entry := range actionKeywords {
		if containsAll(tokens, entry.keywords) {
			return entry.action
		}
	}
	return ActionUnknown
}

func tokenSet(text string) map[string]struct{} {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return r
	}, text)

	tokens := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(stripped)) {
		tokens[word] = struct{}{}
	}
	return tokens
}

func containsAll(tokens map[string]struct{}, keywords []string) bool {
	for _, keyword := range keywords {
		if _, ok := tokens[keyword]; !ok {
			return false
		}
	}
	return true
}
