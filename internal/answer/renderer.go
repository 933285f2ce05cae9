// Package answer renders the spoken acknowledgement for each action.
package answer

import (
	"fmt"
	"strings"
	"text/template"

	"spotiskill/internal/core"
)

// templateSources maps each action to its answer template. Templates
// branch on missing parameters so the acknowledgement doubles as the
// clarification question; execution independently skips the API call.
var templateSources = map[core.Action]string{
	core.ActionHelp: "I can play playlists, stop playback, skip tracks, " +
		"set the volume and list your playlists and devices. " +
		"For example, say: play playlist one.",
	core.ActionListPlaylists: "{{if .Playlists}}Your playlists are: " +
		"{{range $i, $p := .Playlists}}{{inc $i}}: {{$p.Name}}. {{end}}" +
		"{{else}}You have no playlists.{{end}}",
	core.ActionListDevices: "{{if .Devices}}Your devices are: " +
		"{{range $i, $d := .Devices}}{{inc $i}}: {{$d.Name}} in {{$d.Room}}. {{end}}" +
		"{{else}}You have no playback devices.{{end}}",
	core.ActionPlayPlaylist: "{{if not .SelectedPlaylist}}Please tell me which playlist to play." +
		"{{else if not .TargetDevice}}I could not find a playback device for {{.Room}}." +
		"{{else}}Playing playlist {{.SelectedPlaylist.Name}} on {{.TargetDevice.Name}}.{{end}}",
	core.ActionStopPlayback: "Stopping the playback.",
	core.ActionNextTrack:    "Skipping to the next track.",
	core.ActionSetVolume: "{{if .Volume}}Setting the volume to {{.CappedVolume}} percent." +
		"{{else}}Please tell me a volume level.{{end}}",
	core.ActionContinue: "Continuing the music in {{.Room}}.",
}

// Renderer holds the parsed answer templates. Parsing happens once at
// construction; Render never fails on template syntax.
type Renderer struct {
	templates map[core.Action]*template.Template
}

func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}

	templates := make(map[core.Action]*template.Template, len(templateSources))
	for action, source := range templateSources {
		tmpl, err := template.New(action.String()).Funcs(funcs).Parse(source)
		if err != nil {
			return nil, fmt.Errorf("failed to parse answer template %q: %w", action.String(), err)
		}
		templates[action] = tmpl
	}

	return &Renderer{templates: templates}, nil
}

// Render produces the answer text for the action with the given
// parameters.
func (r *Renderer) Render(action core.Action, params core.Parameters) (string, error) {
	tmpl, ok := r.templates[action]
	if !ok {
		return "", fmt.Errorf("no answer template for action %q", action.String())
	}

	var builder strings.Builder
	if err := tmpl.Execute(&builder, params); err != nil {
		return "", fmt.Errorf("failed to render answer for %q: %w", action.String(), err)
	}

	return strings.TrimSpace(builder.String()), nil
}
