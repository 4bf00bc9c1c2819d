package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/StoryLoom/internal/graphmodel"
)

// Config is the storyloom.yaml document.
type Config struct {
	Version  int            `yaml:"version" validate:"eq=1"`
	Server   ServerConfig   `yaml:"server"`
	Engine   EngineConfig   `yaml:"engine"`
	Graph    GraphConfig    `yaml:"graph"`
	Playback PlaybackConfig `yaml:"playback"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Storage  StorageConfig  `yaml:"storage"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr" env:"STORYLOOM_ADDR"`
	TLSCert     string   `yaml:"tls_cert" env:"STORYLOOM_TLS_CERT"`
	TLSKey      string   `yaml:"tls_key" env:"STORYLOOM_TLS_KEY"`
	CORSOrigins []string `yaml:"cors_origins" env:"STORYLOOM_CORS_ORIGINS" envSeparator:","`

	EditorUser     string `yaml:"editor_user" env:"STORYLOOM_EDITOR_USER"`
	EditorPassword string `yaml:"-"`
	ViewerUser     string `yaml:"viewer_user" env:"STORYLOOM_VIEWER_USER"`
	ViewerPassword string `yaml:"-"`
}

// TLSEnabled reports whether both certificate and key are configured.
func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCert != "" && s.TLSKey != ""
}

type EngineConfig struct {
	// Story is a fixture file path or the name of a built-in example.
	Story       string        `yaml:"story" env:"STORYLOOM_STORY"`
	LoadTimeout time.Duration `yaml:"load_timeout" env:"STORYLOOM_ENGINE_LOAD_TIMEOUT" validate:"gte=0"`
}

type GraphConfig struct {
	Layout graphmodel.LayoutOptions `yaml:"layout"`
}

type PlaybackConfig struct {
	// MaxCommandChain caps consecutive COMMAND results per step. Zero, the
	// default, leaves chains unbounded.
	MaxCommandChain int           `yaml:"max_command_chain" env:"STORYLOOM_MAX_COMMAND_CHAIN" validate:"gte=0"`
	WatchDebounce   time.Duration `yaml:"watch_debounce" env:"STORYLOOM_WATCH_DEBOUNCE" validate:"gte=0"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker" env:"STORYLOOM_MQTT_BROKER"`
	ClientID string `yaml:"client_id" env:"STORYLOOM_MQTT_CLIENT_ID"`
	Prefix   string `yaml:"prefix" env:"STORYLOOM_MQTT_PREFIX" validate:"required"`
	Username string `yaml:"username" env:"STORYLOOM_MQTT_USERNAME"`
	Password string `yaml:"-"`

	BreakerFailures uint32        `yaml:"breaker_failures" validate:"gte=1"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout" validate:"gte=0"`
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORYLOOM_STORAGE_DRIVER" validate:"oneof=memory postgres sqlite"`
	DSN    string `yaml:"-"`
	Path   string `yaml:"path" env:"STORYLOOM_SQLITE_PATH"`
}

type AlertsConfig struct {
	WebhookURL      string        `yaml:"webhook_url" env:"STORYLOOM_ALERT_WEBHOOK_URL" validate:"omitempty,url"`
	DisconnectDelay time.Duration `yaml:"disconnect_delay" validate:"gte=0"`
}

type LogConfig struct {
	Level       string `yaml:"level" env:"STORYLOOM_LOG_LEVEL" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development" env:"STORYLOOM_LOG_DEVELOPMENT"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Engine.Story == "" {
		c.Engine.Story = "hello"
	}
	if c.Engine.LoadTimeout == 0 {
		c.Engine.LoadTimeout = 10 * time.Second
	}

	d := graphmodel.DefaultLayout()
	l := &c.Graph.Layout
	if l.Name == "" {
		l.Name = d.Name
	}
	if l.RankDir == "" {
		l.RankDir = d.RankDir
	}
	if l.NodeSep == 0 {
		l.NodeSep = d.NodeSep
	}
	if l.RankSep == 0 {
		l.RankSep = d.RankSep
	}
	if l.EdgeSep == 0 {
		l.EdgeSep = d.EdgeSep
	}
	if l.Padding == 0 {
		l.Padding = d.Padding
	}
	if l.FitPadding == 0 {
		l.FitPadding = d.FitPadding
	}

	if c.Playback.WatchDebounce == 0 {
		c.Playback.WatchDebounce = 250 * time.Millisecond
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "storyloom"
	}
	if c.MQTT.Prefix == "" {
		c.MQTT.Prefix = "storyloom"
	}
	if c.MQTT.BreakerFailures == 0 {
		c.MQTT.BreakerFailures = 5
	}
	if c.MQTT.BreakerTimeout == 0 {
		c.MQTT.BreakerTimeout = 30 * time.Second
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "storyloom.db"
	}

	if c.Alerts.DisconnectDelay == 0 {
		c.Alerts.DisconnectDelay = 60 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

var validate = validator.New()

// Load reads path (optional), applies defaults, then overrides from the
// environment and a .env file in the working directory, then validates.
func Load(path string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	cfg := &Config{Version: 1}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if cfg.Version != 1 {
			return nil, fmt.Errorf("unsupported storyloom.yaml version: %d", cfg.Version)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.resolveSecrets(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolveSecrets() error {
	secrets := []struct {
		env    string
		target *string
	}{
		{"STORYLOOM_EDITOR_PASSWORD", &c.Server.EditorPassword},
		{"STORYLOOM_VIEWER_PASSWORD", &c.Server.ViewerPassword},
		{"STORYLOOM_MQTT_PASSWORD", &c.MQTT.Password},
		{"STORYLOOM_STORAGE_DSN", &c.Storage.DSN},
	}
	for _, s := range secrets {
		v, err := ResolveSecret(s.env)
		if err != nil {
			return err
		}
		if v != "" {
			*s.target = v
		}
	}
	return nil
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.TrimPrefix(e.Namespace(), "Config."), e.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return errors.New("invalid config: storage driver postgres requires STORYLOOM_STORAGE_DSN")
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return errors.New("invalid config: tls_cert and tls_key must be set together")
	}
	return nil
}
