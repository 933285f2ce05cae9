package core

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.App.WakeKeyword != "spotify" {
		t.Errorf("WakeKeyword = %q, want spotify", cfg.App.WakeKeyword)
	}
	if cfg.App.RefreshInterval != time.Hour {
		t.Errorf("RefreshInterval = %v, want 1h", cfg.App.RefreshInterval)
	}
	if cfg.App.ActivationDelay != 3*time.Second {
		t.Errorf("ActivationDelay = %v, want 3s", cfg.App.ActivationDelay)
	}
	if cfg.App.CommandsPerMinute != DefaultCommandsPerMinute {
		t.Errorf("CommandsPerMinute = %d, want %d", cfg.App.CommandsPerMinute, DefaultCommandsPerMinute)
	}
	if cfg.MQTT.IntentTopic == "" {
		t.Error("IntentTopic must have a default")
	}
	if cfg.MQTT.ResponseTopic == "" {
		t.Error("ResponseTopic must have a default")
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Port = %d, want %d", cfg.Server.Port, DefaultServerPort)
	}
}
