// Package config handles client configuration loading from a YAML file and environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "ideaboard/internal/utils"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable that points at the YAML config file
const ConfigFileEnv = "IDEABOARD_CONFIG_FILE"

// Config holds all configuration for the ideaboard client
type Config struct {
	// REST API connection
	API APIConfig `json:"api" yaml:"api"`

	// Session behaviour (polling, remember-me)
	Session SessionConfig `json:"session" yaml:"session"`

	// Client state files
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Role and signup rules applied on the client
	Auth AuthConfig `json:"auth" yaml:"auth"`

	// OpenTelemetry configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// APIConfig describes how to reach the idea backend
type APIConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url"` // Default: "http://localhost:5130/api"
	Timeout time.Duration `json:"timeout" yaml:"timeout"`   // Default: DefaultHTTPTimeout
}

// SessionConfig controls the logged-in session
type SessionConfig struct {
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"` // Default: 30s
	RememberMe   bool          `json:"remember_me" yaml:"remember_me"`     // Default for the login --remember flag
}

// StorageConfig locates the client state directory
type StorageConfig struct {
	Dir         string        `json:"dir" yaml:"dir"`                   // Default: $XDG_STATE_HOME/ideaboard
	LockTimeout time.Duration `json:"lock_timeout" yaml:"lock_timeout"` // Default: 5s
}

// AuthConfig represents client-side authentication rules
type AuthConfig struct {
	// AllowedEmailDomain is the suffix every signup email must carry. Empty accepts any domain.
	AllowedEmailDomain string `json:"allowed_email_domain" yaml:"allowed_email_domain"`
	// SuperadminEmail is forced to the superadmin role. Empty disables the override.
	SuperadminEmail string `json:"superadmin_email" yaml:"superadmin_email"`
	// CEOEmail is forced to the ceo role. Empty disables the override.
	CEOEmail string `json:"ceo_email" yaml:"ceo_email"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "ideactl"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`   // Default: false
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`   // Default: false
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`   // Default: false
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`       // Use the auto SDK tracer provider instead of the OTLP batcher
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"`     // Default: 1.0 (100%)
}

// IsPrivilegedRole reports whether role may manage ideas and users
func IsPrivilegedRole(role string) bool {
	return role == "admin" || role == "superadmin"
}

// RoleOverride returns the forced role for email, or "" when no override applies
func (c *Config) RoleOverride(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return ""
	}
	if c.Auth.SuperadminEmail != "" && strings.EqualFold(c.Auth.SuperadminEmail, normalized) {
		return "superadmin"
	}
	if c.Auth.CEOEmail != "" && strings.EqualFold(c.Auth.CEOEmail, normalized) {
		return "ceo"
	}
	return ""
}

// StatePath joins name onto the storage directory
func (c *Config) StatePath(name string) string {
	return filepath.Join(c.Storage.Dir, name)
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultHTTPTimeout,
		},
		Session: SessionConfig{
			PollInterval: NotificationPollInterval,
		},
		Storage: StorageConfig{
			Dir:         defaultStateDir(),
			LockTimeout: StateLockTimeout,
		},
		Auth: AuthConfig{
			AllowedEmailDomain: DefaultEmailDomain,
			SuperadminEmail:    DefaultSuperadminEmail,
			CEOEmail:           DefaultCEOEmail,
		},
		OpenTelemetry: OpenTelemetryConfig{
			Endpoint:     "localhost:4317",
			Protocol:     "grpc",
			Insecure:     true,
			ServiceName:  "ideactl",
			SamplingRate: 1.0,
		},
		LogLevel: "error",
	}
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "ideaboard")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "ideaboard")
	}
	return filepath.Join(os.TempDir(), "ideaboard")
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	// Load config from YAML file
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	// Override with environment variables
	config.overrideFromEnv()
	config.applyDefaults()

	return config, nil
}

// applyDefaults fills zero values that would otherwise leave the client unusable
func (c *Config) applyDefaults() {
	def := Default()
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Timeout <= 0 {
		c.API.Timeout = def.API.Timeout
	}
	if c.Session.PollInterval <= 0 {
		c.Session.PollInterval = def.Session.PollInterval
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = def.Storage.Dir
	}
	if c.Storage.LockTimeout <= 0 {
		c.Storage.LockTimeout = def.Storage.LockTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnv(c)
}

// overrideStructFromEnv recursively overrides struct fields with environment variables
func overrideStructFromEnv(v interface{}) {
	overrideStructFromEnvWithPrefix(v, "")
}

var durationType = reflect.TypeOf(time.Duration(0))

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		// Get the yaml tag for the field
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		// Convert yaml tag to environment variable name
		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		if field.Type() == durationType {
			if envVal := os.Getenv(envKey); envVal != "" {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if envVal, ok := os.LookupEnv(envKey); ok {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				if field.Type().Elem().Kind() == reflect.String {
					slice := strings.Split(envVal, ",")
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			// Recursively process nested structs with the field name as prefix
			if field.CanAddr() {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), fieldPrefix)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file named by IDEABOARD_CONFIG_FILE, else ./config.yaml, else defaults
func loadConfigWithOverrides() (result0 *Config, err error) {
	// An explicit path must exist
	if envPath := os.Getenv(ConfigFileEnv); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile("config.yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file on top of the defaults
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	return config, nil
}
