package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MaxVolumePercent caps every volume request sent to the streaming
// service. Hearing protection; not configurable per request.
const MaxVolumePercent = 90

const (
	statusOK        = "ok"
	statusUnmatched = "unmatched"
	statusDropped   = "dropped"
	statusError     = "error"
)

// Deps bundles the collaborators a Dispatcher is constructed with.
// Seen, Limiter and Metrics may be nil to disable the concern.
type Deps struct {
	Config    *Config
	Music     MusicClient
	Catalog   CatalogView
	Answers   AnswerRenderer
	Responder Responder
	Seen      SeenStore
	Limiter   RateLimiter
	Metrics   MetricsRecorder
	Logger    *zap.Logger
}

// Dispatcher routes parsed voice commands to streaming-service actions.
// Each command is processed independently; the catalog snapshot is the
// only shared state it reads, so commands may be handled concurrently.
type Dispatcher struct {
	config    *Config
	music     MusicClient
	catalog   CatalogView
	answers   AnswerRenderer
	responder Responder
	seen      SeenStore
	limiter   RateLimiter
	metrics   MetricsRecorder
	logger    *zap.Logger
}

func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{
		config:    deps.Config,
		music:     deps.Music,
		catalog:   deps.Catalog,
		answers:   deps.Answers,
		responder: deps.Responder,
		seen:      deps.Seen,
		limiter:   deps.Limiter,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
}

// HandleCommand processes one command end to end: classify, build
// parameters, answer immediately, then execute the side effect. The
// answer is sent before execution so the user gets acknowledgement even
// when the streaming API later fails. Errors never escape this method.
func (d *Dispatcher) HandleCommand(ctx context.Context, cmd *Command) {
	start := time.Now()

	if d.seen != nil && cmd.ID != "" {
		if d.seen.Seen(cmd.ID) {
			d.logger.Debug("Dropping re-delivered command",
				zap.String("commandID", cmd.ID))
			return
		}
		d.seen.Mark(cmd.ID)
	}

	if !d.wantsCommand(cmd) {
		d.logger.Debug("Command is not addressed to this skill",
			zap.String("text", cmd.Text))
		return
	}

	if d.limiter != nil && !d.limiter.Allow(cmd.Room) {
		d.logger.Warn("Dropping command, room exceeded rate limit",
			zap.String("room", cmd.Room))
		d.recordCommand("unknown", statusDropped)
		return
	}

	action := ClassifyAction(cmd.Text)
	if action == ActionUnknown {
		// Deliberately silent towards the user: the utterance was
		// likely meant for a different skill.
		d.logger.Warn("Unrecognized command text",
			zap.String("text", cmd.Text))
		d.recordCommand("unknown", statusUnmatched)
		return
	}

	d.logger.Debug("Processing command",
		zap.String("commandID", cmd.ID),
		zap.String("action", action.String()),
		zap.String("room", cmd.Room))

	params := BuildParameters(action, cmd, d.catalog.Snapshot())

	d.respond(ctx, action, cmd, params)

	status := statusOK
	if err := d.execute(ctx, action, cmd, params); err != nil {
		d.logger.Error("Action execution failed",
			zap.String("action", action.String()),
			zap.String("room", cmd.Room),
			zap.Error(err))
		d.recordAPIError(action.String())
		status = statusError
	}

	d.recordCommand(action.String(), status)
	if d.metrics != nil {
		d.metrics.RecordProcessingTime(action.String(), time.Since(start))
	}
}

// wantsCommand applies the wake-keyword gate: the configured keyword
// must appear among the command's parsed nouns. An empty keyword
// disables the gate.
func (d *Dispatcher) wantsCommand(cmd *Command) bool {
	if d.config.App.WakeKeyword == "" {
		return true
	}
	for _, noun := range cmd.Nouns {
		if noun == d.config.App.WakeKeyword {
			return true
		}
	}
	return false
}

func (d *Dispatcher) respond(ctx context.Context, action Action, cmd *Command, params Parameters) {
	answer, err := d.answers.Render(action, params)
	if err != nil {
		d.logger.Error("Failed to render answer",
			zap.String("action", action.String()),
			zap.Error(err))
		return
	}

	if err := d.responder.Respond(ctx, cmd.OutputTopic, answer); err != nil {
		d.logger.Error("Failed to deliver answer",
			zap.String("action", action.String()),
			zap.String("topic", cmd.OutputTopic),
			zap.Error(err))
	}
}

// execute performs the action's external side effects. A returned error
// is always a streaming-API failure; parameter misses are logged here
// and produce no call (the clarification was already part of the
// rendered answer).
func (d *Dispatcher) execute(ctx context.Context, action Action, cmd *Command, params Parameters) error {
	switch action {
	case ActionHelp, ActionListPlaylists, ActionListDevices:
		// Answered purely from the catalog snapshot.
		return nil
	case ActionStopPlayback:
		if err := d.music.PausePlayback(ctx); err != nil {
			return fmt.Errorf("pause playback: %w", err)
		}
		d.logger.Info("Playback paused")
		return nil
	case ActionNextTrack:
		if err := d.music.NextTrack(ctx); err != nil {
			return fmt.Errorf("skip track: %w", err)
		}
		d.logger.Info("Skipped to next track")
		return nil
	case ActionSetVolume:
		return d.setVolume(ctx, params)
	case ActionPlayPlaylist:
		return d.playPlaylist(ctx, params)
	case ActionContinue:
		return d.continuePlayback(ctx, cmd.Room, params)
	default:
		return nil
	}
}

func (d *Dispatcher) setVolume(ctx context.Context, params Parameters) error {
	if params.Volume == nil {
		d.logger.Error("No volume level provided in the request")
		return nil
	}

	volume := params.CappedVolume()
	if err := d.music.SetVolume(ctx, volume); err != nil {
		return fmt.Errorf("set volume to %d: %w", volume, err)
	}

	d.logger.Info("Volume set",
		zap.Int("volume", volume),
		zap.Int("requested", *params.Volume))
	return nil
}

func (d *Dispatcher) playPlaylist(ctx context.Context, params Parameters) error {
	device := params.TargetDevice()
	playlist := params.SelectedPlaylist()

	if playlist == nil || device == nil {
		d.logger.Error("Playlist or target device could not be resolved",
			zap.Int("playlistIndex", params.PlaylistIndex),
			zap.Int("deviceIndex", params.DeviceIndex),
			zap.String("room", params.Room))
		return nil
	}

	return d.startPlaylist(ctx, device, playlist.ID)
}

// startPlaylist runs the fixed start sequence: begin playback on the
// target device, wait out the activation delay, then apply the device's
// default volume and enable shuffle. A failing step aborts the
// remaining ones; there is no rollback and no retry.
func (d *Dispatcher) startPlaylist(ctx context.Context, device *Device, playlistID string) error {
	if err := d.music.StartPlaylist(ctx, device.SpotifyID, playlistID); err != nil {
		return fmt.Errorf("start playlist %q on device %q: %w", playlistID, device.Name, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.config.App.ActivationDelay):
	}

	if err := d.music.SetVolume(ctx, device.DefaultVolume); err != nil {
		return fmt.Errorf("set default volume on device %q: %w", device.Name, err)
	}

	if err := d.music.SetShuffle(ctx, true); err != nil {
		return fmt.Errorf("enable shuffle on device %q: %w", device.Name, err)
	}

	d.logger.Info("Started playlist",
		zap.String("playlistID", playlistID),
		zap.String("device", device.Name))
	return nil
}

// continuePlayback resumes or relocates playback onto the room's main
// device. Running playback on another device is transferred; stopped
// playback is restarted on the main device.
func (d *Dispatcher) continuePlayback(ctx context.Context, room string, params Parameters) error {
	state, err := d.music.CurrentPlayback(ctx)
	if err != nil {
		return fmt.Errorf("get current playback: %w", err)
	}

	main := MainDeviceForRoom(params.Devices, room)

	switch {
	case state != nil && state.Playing:
		if main != nil && main.SpotifyID != state.DeviceID {
			if err := d.music.TransferPlayback(ctx, main.SpotifyID); err != nil {
				return fmt.Errorf("transfer playback to device %q: %w", main.Name, err)
			}
			d.logger.Info("Transferred playback",
				zap.String("device", main.Name),
				zap.String("room", room))
		} else {
			d.logger.Info("Playback already on the correct device",
				zap.String("room", room))
		}
	case main != nil:
		if err := d.music.ResumePlayback(ctx, main.SpotifyID); err != nil {
			return fmt.Errorf("resume playback on device %q: %w", main.Name, err)
		}
		d.logger.Info("Resumed playback",
			zap.String("device", main.Name),
			zap.String("room", room))
	default:
		d.logger.Error("No main device found in room",
			zap.String("room", room))
	}

	return nil
}

func (d *Dispatcher) recordCommand(action, status string) {
	if d.metrics != nil {
		d.metrics.RecordCommand(action, status)
	}
}

func (d *Dispatcher) recordAPIError(operation string) {
	if d.metrics != nil {
		d.metrics.RecordAPIError(operation)
	}
}
