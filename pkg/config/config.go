package config

import "time"

type Config struct {
	App            AppConfig            `mapstructure:"app"`
	API            APIConfig            `mapstructure:"api"`
	Realtime       RealtimeConfig       `mapstructure:"realtime"`
	Audio          AudioConfig          `mapstructure:"audio"`
	Dialogue       DialogueConfig       `mapstructure:"dialogue"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RealtimeConfig struct {
	SocketURL          string        `mapstructure:"socket_url"`
	ReconnectBaseDelay time.Duration `mapstructure:"reconnect_base_delay"`
	HandshakeTimeout   time.Duration `mapstructure:"handshake_timeout"`
}

type AudioConfig struct {
	CaptureSampleRate  uint32 `mapstructure:"capture_sample_rate"`
	CaptureChannels    uint32 `mapstructure:"capture_channels"`
	PlaybackSampleRate int    `mapstructure:"playback_sample_rate"`
	PlaybackChannels   int    `mapstructure:"playback_channels"`
}

type DialogueConfig struct {
	Language string `mapstructure:"language"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
