package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.voxbank")

	viper.SetEnvPrefix("VOXBANK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Allow common env vars without the VOXBANK_ prefix
	viper.BindEnv("api.base_url", "API_BASE_URL", "VOXBANK_API_BASE_URL")
	viper.BindEnv("realtime.socket_url", "SOCKET_URL", "VOXBANK_REALTIME_SOCKET_URL")
	viper.BindEnv("dialogue.language", "VOXBANK_LANGUAGE", "VOXBANK_DIALOGUE_LANGUAGE")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults plus env vars carry the client
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app.name", "voxbank")
	viper.SetDefault("app.environment", "development")

	viper.SetDefault("api.base_url", "http://localhost:8000")
	viper.SetDefault("api.timeout", 30*time.Second)

	viper.SetDefault("realtime.socket_url", "ws://localhost:8000/ws/voice")
	viper.SetDefault("realtime.reconnect_base_delay", time.Second)
	viper.SetDefault("realtime.handshake_timeout", 10*time.Second)

	viper.SetDefault("audio.capture_sample_rate", 16000)
	viper.SetDefault("audio.capture_channels", 1)
	viper.SetDefault("audio.playback_sample_rate", 24000)
	viper.SetDefault("audio.playback_channels", 1)

	viper.SetDefault("dialogue.language", "en-IN")

	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", 60*time.Second)
	viper.SetDefault("circuit_breaker.timeout", 30*time.Second)
	viper.SetDefault("circuit_breaker.failure_threshold", 5)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
}
