// Package spotify provides the Spotify Web API integration for playlist
// and playback-device control.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"spotiskill/internal/core"
)

const (
	// FilePermission is the permission for token files
	FilePermission = 0600
	// PlaylistPageSize is the page size for playlist listing requests
	PlaylistPageSize = 50
)

type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
	auth   *spotifyauth.Authenticator
}

type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopeUserModifyPlaybackState,
			spotifyauth.ScopeUserReadPlaybackState,
		),
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
	)

	return &Client{
		config: config,
		logger: logger,
		auth:   auth,
	}
}

func (c *Client) Authenticate(ctx context.Context) error {
	token, err := c.loadToken()
	if err != nil {
		c.logger.Info("No saved token found, starting OAuth flow")
		return c.startOAuthFlow(ctx)
	}

	client := spotify.New(c.auth.Client(ctx, token))
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		c.logger.Warn("Saved token invalid, starting OAuth flow", zap.Error(err))
		return c.startOAuthFlow(ctx)
	}

	c.logger.Info("Authenticated successfully", zap.String("user", user.DisplayName))
	return nil
}

// ListPlaylists returns all playlists of the authenticated user.
func (c *Client) ListPlaylists(ctx context.Context) ([]core.Playlist, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not authenticated")
	}

	var playlists []core.Playlist
	offset := 0

	for {
		page, err := c.client.CurrentUsersPlaylists(ctx,
			spotify.Limit(PlaylistPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists: %w", err)
		}

		for i := range page.Playlists {
			playlists = append(playlists, core.Playlist{
				ID:   string(page.Playlists[i].ID),
				Name: page.Playlists[i].Name,
			})
		}

		if len(page.Playlists) < PlaylistPageSize {
			break
		}
		offset += PlaylistPageSize
	}

	c.logger.Debug("Retrieved playlists", zap.Int("count", len(playlists)))
	return playlists, nil
}

// ListDevices returns the playback devices currently visible to the
// user's account.
func (c *Client) ListDevices(ctx context.Context) ([]core.PlayerDevice, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not authenticated")
	}

	devices, err := c.client.PlayerDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get player devices: %w", err)
	}

	result := make([]core.PlayerDevice, 0, len(devices))
	for _, device := range devices {
		result = append(result, core.PlayerDevice{
			ID:     device.ID.String(),
			Name:   device.Name,
			Active: device.Active,
		})
	}

	c.logger.Debug("Retrieved player devices", zap.Int("count", len(result)))
	return result, nil
}

// StartPlaylist starts playback of the playlist on the given device.
func (c *Client) StartPlaylist(ctx context.Context, deviceID, playlistID string) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}

	device := spotify.ID(deviceID)
	playlistURI := spotify.URI("spotify:playlist:" + playlistID)

	err := c.client.PlayOpt(ctx, &spotify.PlayOptions{
		DeviceID:        &device,
		PlaybackContext: &playlistURI,
	})
	if err != nil {
		return fmt.Errorf("failed to start playlist: %w", err)
	}

	c.logger.Debug("Started playlist",
		zap.String("playlistID", playlistID),
		zap.String("deviceID", deviceID))
	return nil
}

// ResumePlayback resumes paused playback on the given device.
func (c *Client) ResumePlayback(ctx context.Context, deviceID string) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}

	device := spotify.ID(deviceID)
	err := c.client.PlayOpt(ctx, &spotify.PlayOptions{DeviceID: &device})
	if err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}

	c.logger.Debug("Resumed playback", zap.String("deviceID", deviceID))
	return nil
}

func (c *Client) PausePlayback(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}

	if err := c.client.Pause(ctx); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}

	c.logger.Debug("Paused playback")
	return nil
}

func (c *Client) NextTrack(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}

	if err := c.client.Next(ctx); err != nil {
		return fmt.Errorf("failed to skip track: %w", err)
	}

	c.logger.Debug("Skipped to next track")
	return nil
}

func (c *Client) SetVolume(ctx context.Context, percent int) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}

	if err := c.client.Volume(ctx, percent); err != nil {
		return fmt.Errorf("failed to set volume to %d: %w", percent, err)
	}

	c.logger.Debug("Set volume", zap.Int("percent", percent))
	return nil
}

func (c *Client) SetShuffle(ctx context.Context, on bool) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}

	if err := c.client.Shuffle(ctx, on); err != nil {
		return fmt.Errorf("failed to set shuffle to %t: %w", on, err)
	}

	c.logger.Debug("Set shuffle", zap.Bool("shuffle", on))
	return nil
}

// TransferPlayback moves the running playback onto the given device.
func (c *Client) TransferPlayback(ctx context.Context, deviceID string) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}

	if err := c.client.TransferPlayback(ctx, spotify.ID(deviceID), true); err != nil {
		return fmt.Errorf("failed to transfer playback: %w", err)
	}

	c.logger.Debug("Transferred playback", zap.String("deviceID", deviceID))
	return nil
}

// CurrentPlayback returns the current player state, or (nil, nil) when
// the account has no playback session at all.
func (c *Client) CurrentPlayback(ctx context.Context) (*core.PlaybackState, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not authenticated")
	}

	state, err := c.client.PlayerState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get player state: %w", err)
	}

	if state == nil {
		return nil, nil
	}

	return &core.PlaybackState{
		Playing:  state.Playing,
		DeviceID: state.Device.ID.String(),
	}, nil
}

func (c *Client) startOAuthFlow(ctx context.Context) error {
	state := "spotiskill-auth-state"
	authURL := c.auth.AuthURL(state)

	fmt.Printf("Please visit the following URL to authorize the application:\n%s\n", authURL)
	fmt.Print("Enter the authorization code: ")

	var code string
	if _, err := fmt.Scanln(&code); err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := c.auth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if saveErr := c.saveToken(token); saveErr != nil {
		c.logger.Warn("Failed to save token", zap.Error(saveErr))
	}

	client := spotify.New(c.auth.Client(ctx, token))
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	c.logger.Info("OAuth flow completed successfully", zap.String("user", user.DisplayName))
	return nil
}

func (c *Client) loadToken() (*oauth2.Token, error) {
	file, err := os.Open(c.config.TokenPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, err
	}

	return tokenData.Token, nil
}

func (c *Client) saveToken(token *oauth2.Token) error {
	tokenData := TokenData{Token: token}

	data, err := json.MarshalIndent(tokenData, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.config.TokenPath, data, FilePermission)
}
