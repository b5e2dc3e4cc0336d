// Package config provides the configuration structure for the yomitan audio service.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/pelletier/go-toml/v2"

	"github.com/book-expert/yomitan-audio/internal/core"
	"github.com/book-expert/yomitan-audio/internal/tts"
)

// Synthesizer backends.
const (
	BackendHTTP   = "http"
	BackendGoogle = "google"
)

// Default values applied by Defaults.
const (
	defaultListenAddr         = ":8080"
	defaultReadHeaderTimeout  = 10
	defaultNATSURL            = "nats://127.0.0.1:4222"
	defaultObjectBucket       = "YOMITAN_AUDIO"
	defaultDatabasePath       = "yomitan-audio.db"
	defaultLanguage           = "ja-JP"
	defaultOutputFormat       = "mp3"
	defaultHTTPTimeoutSeconds = 30
	defaultBaseLogsDir        = "logs"
)

var (
	// ErrUnknownBackend indicates an unsupported tts.backend value.
	ErrUnknownBackend = errors.New("unknown tts backend")
	// ErrNoAPIKeys indicates authentication is enabled without any keys.
	ErrNoAPIKeys = errors.New("auth is enabled but api_keys is empty")
	// ErrHTTPURLEmpty indicates the http backend has no service URL.
	ErrHTTPURLEmpty = errors.New("tts.http_url cannot be empty for the http backend")
	// ErrUnsupportedFormat indicates an output format other than mp3.
	ErrUnsupportedFormat = errors.New("only mp3 output is supported")
	// ErrAlphabetUnsupported indicates a phoneme alphabet the backend cannot read.
	ErrAlphabetUnsupported = errors.New("phoneme alphabet is not supported by the tts backend")
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
	// PublicBaseURL overrides the request origin in playback URLs.
	PublicBaseURL            string `toml:"public_base_url"`
	ReadHeaderTimeoutSeconds int    `toml:"read_header_timeout_seconds"`
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                 string `toml:"url"`
	ObjectStoreBucket   string `toml:"object_store_bucket"`
	PrewarmSubject      string `toml:"prewarm_subject"`
	AudioCreatedSubject string `toml:"audio_created_subject"`
}

// DatabaseConfig holds the sqlite dataset location.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// AuthConfig holds the API-key allow-list.
type AuthConfig struct {
	Enabled bool     `toml:"enabled"`
	APIKeys []string `toml:"api_keys"`
}

// TTSConfig holds the synthesizer settings.
type TTSConfig struct {
	Enabled         bool   `toml:"enabled"`
	Backend         string `toml:"backend"`
	Voice           string `toml:"voice"`
	Language        string `toml:"language"`
	OutputFormat    string `toml:"output_format"`
	PhonemeAlphabet string `toml:"phoneme_alphabet"`
	InferReading    bool   `toml:"infer_reading"`
	HTTPURL         string `toml:"http_url"`
	HTTPTimeoutSecs int    `toml:"http_timeout_seconds"`
	CredentialsFile string `toml:"google_credentials_file"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	NATS     NATSConfig     `toml:"nats"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	TTS      TTSConfig      `toml:"tts"`
	Paths    PathsConfig    `toml:"paths"`
}

// Load loads the configuration through the central configurator.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return finish(&cfg)
}

// LoadFile loads the configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return Parse(data)
}

// Parse decodes TOML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	err := toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.Defaults()

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Defaults fills unset fields.
func (c *Config) Defaults() {
	setDefault(&c.Server.ListenAddr, defaultListenAddr)
	setDefault(&c.NATS.URL, defaultNATSURL)
	setDefault(&c.NATS.ObjectStoreBucket, defaultObjectBucket)
	setDefault(&c.Database.Path, defaultDatabasePath)
	setDefault(&c.TTS.Backend, BackendHTTP)
	setDefault(&c.TTS.Language, defaultLanguage)
	setDefault(&c.TTS.OutputFormat, defaultOutputFormat)

	if c.TTS.Backend == BackendGoogle {
		setDefault(&c.TTS.PhonemeAlphabet, tts.GooglePhonemeAlphabet)
	} else {
		setDefault(&c.TTS.PhonemeAlphabet, tts.DefaultPhonemeAlphabet)
	}

	setDefault(&c.Paths.BaseLogsDir, defaultBaseLogsDir)

	if c.Server.ReadHeaderTimeoutSeconds <= 0 {
		c.Server.ReadHeaderTimeoutSeconds = defaultReadHeaderTimeout
	}

	if c.TTS.HTTPTimeoutSecs <= 0 {
		c.TTS.HTTPTimeoutSecs = defaultHTTPTimeoutSeconds
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return ErrNoAPIKeys
	}

	if !c.TTS.Enabled {
		return nil
	}

	if c.TTS.OutputFormat != defaultOutputFormat {
		return fmt.Errorf("%w: got %q", ErrUnsupportedFormat, c.TTS.OutputFormat)
	}

	switch c.TTS.Backend {
	case BackendHTTP:
		if c.TTS.HTTPURL == "" {
			return ErrHTTPURLEmpty
		}
	case BackendGoogle:
		if c.TTS.PhonemeAlphabet == tts.DefaultPhonemeAlphabet {
			return fmt.Errorf("%w: %q with backend %q", ErrAlphabetUnsupported, c.TTS.PhonemeAlphabet, BackendGoogle)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.TTS.Backend)
	}

	return nil
}

// Switches returns the global feature toggles.
func (c *Config) Switches() core.Switches {
	return core.Switches{AuthEnabled: c.Auth.Enabled, TTSEnabled: c.TTS.Enabled}
}

// InputBuilder returns the synthesis markup builder for the configured backend.
func (c *Config) InputBuilder() tts.InputBuilder {
	if c.TTS.Backend == BackendGoogle {
		return tts.NewGoogleInputBuilder(c.TTS.PhonemeAlphabet)
	}

	return tts.NewInputBuilder(c.TTS.PhonemeAlphabet)
}

// ReadHeaderTimeout returns the HTTP read-header timeout.
func (c *Config) ReadHeaderTimeout() time.Duration {
	return time.Duration(c.Server.ReadHeaderTimeoutSeconds) * time.Second
}

// HTTPTimeout returns the timeout for the HTTP synthesizer backend.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.TTS.HTTPTimeoutSecs) * time.Second
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
