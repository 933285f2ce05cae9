package core

import (
	"time"
)

const (
	// DefaultRefreshInterval is how often the catalog cache re-fetches
	// playlists and devices from the streaming API.
	DefaultRefreshInterval = time.Hour
	// DefaultActivationDelay is the wait between starting playback and
	// sending follow-up commands; the target device needs activation
	// time before the service accepts further calls for it.
	DefaultActivationDelay = 3 * time.Second
	// DefaultCommandsPerMinute limits commands processed per room.
	DefaultCommandsPerMinute = 10
	// DefaultWakeKeyword must appear among a command's parsed nouns for
	// the skill to claim the command.
	DefaultWakeKeyword = "spotify"
	// DefaultServerPort is the metrics/health HTTP port.
	DefaultServerPort = 8080
)

type Config struct {
	MQTT    MQTTConfig
	Spotify SpotifyConfig
	Store   StoreConfig
	Server  ServerConfig
	Log     LogConfig
	App     AppConfig
}

type MQTTConfig struct {
	Broker        string
	ClientID      string
	Username      string
	Password      string
	IntentTopic   string
	ResponseTopic string
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenPath    string
}

type StoreConfig struct {
	DevicePath string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level string
}

type AppConfig struct {
	WakeKeyword       string
	RefreshInterval   time.Duration
	ActivationDelay   time.Duration
	CommandsPerMinute int
}

func DefaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			ClientID:      "spotiskill",
			IntentTopic:   "assistant/intent/spotiskill",
			ResponseTopic: "assistant/response",
		},
		Spotify: SpotifyConfig{
			RedirectURL: "http://localhost:8080/callback",
			TokenPath:   "./spotify_token.json",
		},
		Store: StoreConfig{
			DevicePath: "./spotiskill.db",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         DefaultServerPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		App: AppConfig{
			WakeKeyword:       DefaultWakeKeyword,
			RefreshInterval:   DefaultRefreshInterval,
			ActivationDelay:   DefaultActivationDelay,
			CommandsPerMinute: DefaultCommandsPerMinute,
		},
	}
}
