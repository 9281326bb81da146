// Package config loads genstudio settings from defaults, an optional YAML
// file, .env files and the process environment, in increasing precedence.
// Command-line flags are applied on top by the caller.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by Load when no provider credential is set.
var ErrMissingAPIKey = errors.New("API_KEY is not set")

// Environment variable names read for the provider credential.
const (
	APIKeyEnv         = "API_KEY"
	FallbackAPIKeyEnv = "GEMINI_API_KEY"
)

type Config struct {
	// APIKey is read from the environment only, never from the YAML file.
	APIKey string `env:"API_KEY" yaml:"-"`

	ChatModel  string `env:"GENSTUDIO_CHAT_MODEL" yaml:"chat_model"`
	ImageModel string `env:"GENSTUDIO_IMAGE_MODEL" yaml:"image_model"`

	// RequestTimeout bounds each provider call; zero disables it
	RequestTimeout  time.Duration `env:"GENSTUDIO_REQUEST_TIMEOUT" yaml:"request_timeout"`
	WaitOnRateLimit bool          `env:"GENSTUDIO_WAIT_ON_RATE_LIMIT" yaml:"wait_on_rate_limit"`

	LogLevel  string `env:"GENSTUDIO_LOG_LEVEL" yaml:"log_level"`   // trace|debug|info|warn|error
	LogFormat string `env:"GENSTUDIO_LOG_FORMAT" yaml:"log_format"` // console|json
	LogFile   string `env:"GENSTUDIO_LOG_FILE" yaml:"log_file"`     // empty: stderr for serve, discarded for tui

	// Addr is the listen address of the web front end
	Addr string `env:"GENSTUDIO_ADDR" yaml:"addr"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		ChatModel:      "gemini-2.5-flash",
		ImageModel:     "imagen-4.0-generate-001",
		RequestTimeout: 2 * time.Minute,
		LogLevel:       "info",
		LogFormat:      "console",
		Addr:           "127.0.0.1:8080",
	}
}

// Options controls where Load looks for settings.
type Options struct {
	// ConfigFile is an optional YAML file. A named file that does not exist
	// is an error.
	ConfigFile string

	// EnvFiles are dotenv files merged under the environment. Missing files
	// are skipped. Nil means ".env".
	EnvFiles []string

	// Environment replaces the process environment when non-nil.
	Environment map[string]string
}

// Load builds the configuration and checks that the credential is present.
func Load(opts Options) (*Config, error) {
	cfg := Defaults()

	if opts.ConfigFile != "" {
		if err := loadYAML(opts.ConfigFile, cfg); err != nil {
			return nil, err
		}
	}

	environment, err := mergeEnvironment(opts)
	if err != nil {
		return nil, err
	}

	if err := env.Parse(cfg, env.Options{Environment: environment}); err != nil {
		return nil, errors.Wrap(err, "parsing environment")
	}

	if strings.TrimSpace(cfg.APIKey) == "" {
		cfg.APIKey = environment[FallbackAPIKeyEnv]
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that make the studio unusable.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.ChatModel == "" {
		return errors.New("chat model is empty")
	}
	if c.ImageModel == "" {
		return errors.New("image model is empty")
	}
	if c.RequestTimeout < 0 {
		return errors.Errorf("request timeout %v is negative", c.RequestTimeout)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return errors.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config file %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parsing config file %s", path)
	}
	return nil
}

// mergeEnvironment returns the environment with dotenv values filled in
// for keys the environment does not set.
func mergeEnvironment(opts Options) (map[string]string, error) {
	environment := opts.Environment
	if environment == nil {
		environment = processEnvironment()
	} else {
		copied := make(map[string]string, len(environment))
		for k, v := range environment {
			copied[k] = v
		}
		environment = copied
	}

	files := opts.EnvFiles
	if files == nil {
		files = []string{".env"}
	}

	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if os.IsNotExist(errors.Cause(err)) {
				continue
			}
			return nil, errors.Wrapf(err, "reading %s", file)
		}
		for k, v := range values {
			if _, ok := environment[k]; !ok {
				environment[k] = v
			}
		}
	}
	return environment, nil
}

func processEnvironment() map[string]string {
	environment := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			environment[k] = v
		}
	}
	return environment
}
