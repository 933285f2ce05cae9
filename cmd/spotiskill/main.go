// Package main provides the spotiskill CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"spotiskill/internal/answer"
	"spotiskill/internal/catalog"
	"spotiskill/internal/core"
	"spotiskill/internal/flood"
	httpserver "spotiskill/internal/http"
	"spotiskill/internal/mqtt"
	"spotiskill/internal/spotify"
	"spotiskill/internal/store"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "spotiskill",
	Short: "Spotiskill - voice-assistant Spotify skill",
	Long: `Spotiskill is a voice-assistant skill that controls Spotify playback.
It consumes parsed intent messages from the assistant's MQTT bus, resolves
playlists and playback devices, and drives the Spotify Web API.`,
	RunE: runSkill,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("mqtt-broker", "", "MQTT broker address (host:port)")
	rootCmd.PersistentFlags().String("mqtt-username", "", "MQTT username")
	rootCmd.PersistentFlags().String("mqtt-password", "", "MQTT password")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().Int("server-port", core.DefaultServerPort, "HTTP server port")
	rootCmd.PersistentFlags().String("wake-keyword", core.DefaultWakeKeyword, "noun that addresses this skill")
	rootCmd.PersistentFlags().Duration("refresh-interval", core.DefaultRefreshInterval, "catalog refresh interval")
	rootCmd.PersistentFlags().Duration("activation-delay", core.DefaultActivationDelay, "device activation delay after starting playback")
	rootCmd.PersistentFlags().Int("commands-per-minute", core.DefaultCommandsPerMinute, "per-room command rate limit")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("SPOTISKILL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.MQTT.Broker = viper.GetString("mqtt-broker")
	cfg.MQTT.Username = viper.GetString("mqtt-username")
	cfg.MQTT.Password = viper.GetString("mqtt-password")
	if clientID := viper.GetString("mqtt-client-id"); clientID != "" {
		cfg.MQTT.ClientID = clientID
	}
	if topic := viper.GetString("mqtt-intent-topic"); topic != "" {
		cfg.MQTT.IntentTopic = topic
	}
	if topic := viper.GetString("mqtt-response-topic"); topic != "" {
		cfg.MQTT.ResponseTopic = topic
	}

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	if redirectURL := viper.GetString("spotify-redirect-url"); redirectURL != "" {
		cfg.Spotify.RedirectURL = redirectURL
	}
	if tokenPath := viper.GetString("spotify-token-path"); tokenPath != "" {
		cfg.Spotify.TokenPath = tokenPath
	}

	if devicePath := viper.GetString("device-registry-path"); devicePath != "" {
		cfg.Store.DevicePath = devicePath
	}

	if host := viper.GetString("server-host"); host != "" {
		cfg.Server.Host = host
	}
	cfg.Server.Port = viper.GetInt("server-port")

	cfg.Log.Level = viper.GetString("log-level")

	cfg.App.WakeKeyword = viper.GetString("wake-keyword")
	cfg.App.RefreshInterval = viper.GetDuration("refresh-interval")
	cfg.App.ActivationDelay = viper.GetDuration("activation-delay")
	cfg.App.CommandsPerMinute = viper.GetInt("commands-per-minute")

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runSkill(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting spotiskill",
		zap.String("broker", config.MQTT.Broker),
		zap.String("intent_topic", config.MQTT.IntentTopic))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	deviceStore, err := store.NewDeviceStore(config.Store.DevicePath)
	if err != nil {
		return fmt.Errorf("failed to open device registry: %w", err)
	}
	defer deviceStore.Close()

	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if err := spotifyClient.Authenticate(ctx); err != nil {
		return fmt.Errorf("failed to authenticate with Spotify: %w", err)
	}

	renderer, err := answer.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to build answer renderer: %w", err)
	}

	httpServer := httpserver.NewServer(&config.Server, logger.Named("http"))

	cache := catalog.New(spotifyClient, deviceStore,
		config.App.RefreshInterval, httpServer, logger.Named("catalog"))
	if err := cache.Refresh(ctx); err != nil {
		logger.Warn("Initial catalog refresh failed, starting with empty catalog",
			zap.Error(err))
	}

	seen := store.NewSeenStore(10000, 0.001)

	floodgate := flood.New(config.App.CommandsPerMinute)
	defer floodgate.Stop()

	bus := mqtt.NewClient(&config.MQTT, logger.Named("mqtt"))

	dispatcher := core.NewDispatcher(core.Deps{
		Config:    config,
		Music:     spotifyClient,
		Catalog:   cache,
		Answers:   renderer,
		Responder: bus,
		Seen:      seen,
		Limiter:   floodgate,
		Metrics:   httpServer,
		Logger:    logger.Named("dispatcher"),
	})

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return cache.Run(gCtx)
	})

	g.Go(func() error {
		return bus.Start(gCtx, dispatcher.HandleCommand)
	})

	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				snap := cache.Snapshot()
				httpServer.SetCatalogSize(len(snap.Playlists), len(snap.Devices))
			}
		}
	})

	logger.Info("Spotiskill started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("Spotiskill stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Spotiskill stopped gracefully")
	return nil
}

func validateConfig() error {
	if config.MQTT.Broker == "" {
		return fmt.Errorf("MQTT broker address is required")
	}

	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}

	if config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required")
	}

	if config.App.CommandsPerMinute < 1 {
		return fmt.Errorf("commands per minute must be at least 1")
	}

	return nil
}
