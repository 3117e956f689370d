package authgate

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultHost        = "127.0.0.1"
	defaultPort        = 8080
	defaultTokenExpiry = "1 day"
	defaultMaxConns    = 10
	defaultMinIdle     = 1
)

// Settings holds everything the server needs to boot. Values come from the
// YAML config file when one is given, with env and built-in defaults below.
type Settings struct {
	Server ServerConfig `yaml:"server" json:"server"`
	SSL    *SSLConfig   `yaml:"ssl" json:"ssl,omitempty"`
	App    AppConfig    `yaml:"app" json:"app"`
}

type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
	// SecretKey seeds the tokenizer signing key. Left empty, the tokenizer
	// generates a random key, which invalidates all tokens on restart.
	SecretKey      string `yaml:"secret_key" json:"-"`
	JWTTokenExpiry string `yaml:"jwt_token_expiry" json:"jwt_token_expiry"`
}

type SSLConfig struct {
	Enabled            bool   `yaml:"enabled" json:"enabled"`
	GenerateSelfSigned bool   `yaml:"generate_self_signed" json:"generate_self_signed"`
	KeyFile            string `yaml:"key_file" json:"key_file"`
	CertFile           string `yaml:"cert_file" json:"cert_file"`
}

type AppConfig struct {
	// DBURL falls back to the DATABASE_URL env var.
	DBURL        string `yaml:"db_url" json:"db_url"`
	MaxConns     int    `yaml:"max_conns" json:"max_conns"`
	MinIdleConns int    `yaml:"min_idle_conns" json:"min_idle_conns"`
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Server: ServerConfig{
			Host:           defaultHost,
			Port:           defaultPort,
			JWTTokenExpiry: defaultTokenExpiry,
		},
		App: AppConfig{
			DBURL:        os.Getenv("DATABASE_URL"),
			MaxConns:     defaultMaxConns,
			MinIdleConns: defaultMinIdle,
		},
	}
}

// LoadSettings reads the YAML file at path, layering it over the defaults.
// An empty path yields the defaults unchanged.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path == "" {
		return settings, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "config file not found").
			WithTextCode(TextCodeConfiguration)
	}

	if err := yaml.Unmarshal(raw, settings); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "configuration error").
			WithTextCode(TextCodeConfiguration)
	}

	if settings.Server.Host == "" {
		settings.Server.Host = defaultHost
	}
	if settings.Server.Port == 0 {
		settings.Server.Port = defaultPort
	}
	if settings.Server.JWTTokenExpiry == "" {
		settings.Server.JWTTokenExpiry = defaultTokenExpiry
	}
	if settings.App.DBURL == "" {
		settings.App.DBURL = os.Getenv("DATABASE_URL")
	}
	if settings.App.MaxConns == 0 {
		settings.App.MaxConns = defaultMaxConns
	}
	if settings.App.MinIdleConns == 0 {
		settings.App.MinIdleConns = defaultMinIdle
	}

	return settings, nil
}

// Addr is the host:port listen address.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)
}

// TokenExpiry parses the configured expiry string.
func (s *Settings) TokenExpiry() (time.Duration, error) {
	return ParseExpiry(s.Server.JWTTokenExpiry)
}

// ParseExpiry accepts Go durations ("24h") plus human forms like
// "1 day", "2 weeks", "30 minutes".
func ParseExpiry(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)

	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}

	fields := strings.Fields(strings.ToLower(value))
	if len(fields) != 2 {
		return 0, errors.New("cannot parse token expiry: "+value, errors.CategoryOperation).
			WithTextCode(TextCodeConfiguration)
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0, errors.New("cannot parse token expiry: "+value, errors.CategoryOperation).
			WithTextCode(TextCodeConfiguration)
	}

	var unit time.Duration
	switch strings.TrimSuffix(fields[1], "s") {
	case "second", "sec":
		unit = time.Second
	case "minute", "min":
		unit = time.Minute
	case "hour":
		unit = time.Hour
	case "day":
		unit = 24 * time.Hour
	case "week":
		unit = 7 * 24 * time.Hour
	default:
		return 0, errors.New("cannot parse token expiry: "+value, errors.CategoryOperation).
			WithTextCode(TextCodeConfiguration)
	}

	return time.Duration(n) * unit, nil
}
