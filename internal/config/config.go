package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DefaultEnvFile      = ".env"
	DefaultEnvMountPath = "/app/.env"
	DefaultSetupAddress = ":3000"
	DefaultOAuthScope   = "write"
	DefaultBaseURL      = "https://app.misoca.jp"

	// ProductionEnv is the NODE_ENV value that marks a managed batch runtime
	ProductionEnv = "production"
)

// Config holds all settings for the job and the setup server
type Config struct {
	ClientID     string `env:"CLIENT_ID" validate:"required"`
	ClientSecret string `env:"CLIENT_SECRET" validate:"required"`
	RedirectURI  string `env:"REDIRECT_URI" validate:"required"`

	RefreshToken    string `env:"REFRESH_TOKEN"`
	SourceInvoiceID string `env:"SOURCE_INVOICE_ID" validate:"required"`

	GCSBucketName string
	NodeEnv       string
	EnvFile       string
	EnvMountPath  string

	MisocaBaseURL string
	SetupAddress  string
	OAuthScope    string
	Timezone      string
	LogLevel      string
}

// IsManagedBatch reports whether the process runs in a scheduled production batch runtime
func (c *Config) IsManagedBatch() bool {
	return c.NodeEnv == ProductionEnv
}

// Location returns the time zone used to compute invoice dates
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

var envMappings = map[string]string{
	"ClientID":        "CLIENT_ID",
	"ClientSecret":    "CLIENT_SECRET",
	"RedirectURI":     "REDIRECT_URI",
	"RefreshToken":    "REFRESH_TOKEN",
	"SourceInvoiceID": "SOURCE_INVOICE_ID",
	"GCSBucketName":   "GCS_BUCKET_NAME",
	"NodeEnv":         "NODE_ENV",
	"EnvFile":         "ENV_FILE",
	"EnvMountPath":    "ENV_MOUNT_PATH",
	"MisocaBaseURL":   "MISOCA_BASE_URL",
	"SetupAddress":    "SETUP_ADDRESS",
	"OAuthScope":      "OAUTH_SCOPE",
	"Timezone":        "TIMEZONE",
	"LogLevel":        "LOG_LEVEL",
}

// Load reads the env file (if present) into the process environment and then
// builds the configuration from environment variables and defaults.
// envFile overrides ENV_FILE when non-empty.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = envOrDefault("ENV_FILE", DefaultEnvFile)
	}

	if err := godotenv.Load(envFile); err != nil {
		log.Debug().Str("env_file", envFile).Msg("Env file not loaded, using process environment only")
	}

	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.EnvFile = envFile
	config.RefreshToken = strings.TrimSpace(config.RefreshToken)

	log.Debug().
		Str("source_invoice_id", config.SourceInvoiceID).
		Str("node_env", config.NodeEnv).
		Str("gcs_bucket", config.GCSBucketName).
		Bool("refresh_token_set", config.RefreshToken != "").
		Msg("Config loaded")

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("EnvMountPath", DefaultEnvMountPath)
	v.SetDefault("MisocaBaseURL", DefaultBaseURL)
	v.SetDefault("SetupAddress", DefaultSetupAddress)
	v.SetDefault("OAuthScope", DefaultOAuthScope)
	v.SetDefault("LogLevel", "info")
}

var (
	credentialFields = []string{"ClientID", "ClientSecret", "RedirectURI"}
	jobFields        = append(append([]string{}, credentialFields...), "SourceInvoiceID")
)

// validate reports failures by env var name instead of struct field name
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("env"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// ValidateForJob checks the settings the monthly duplication job cannot run without
func (c *Config) ValidateForJob() error {
	return c.validateFields(jobFields)
}

// ValidateForSetup checks the settings the authorization callback server needs
func (c *Config) ValidateForSetup() error {
	return c.validateFields(credentialFields)
}

func (c *Config) validateFields(fields []string) error {
	err := validate.StructPartial(c, fields...)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	missingVars := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		missingVars = append(missingVars, fieldErr.Field())
	}

	return missingVarsError(missingVars, c.EnvFile)
}

func missingVarsError(missingVars []string, envFile string) error {
	if len(missingVars) == 0 {
		return nil
	}

	return fmt.Errorf("missing required environment variables: %s\n\nSet them in your shell or in %s, for example:\n%s",
		strings.Join(missingVars, ", "),
		envFile,
		exampleEnv(missingVars))
}

func exampleEnv(missingVars []string) string {
	var b strings.Builder
	for _, name := range missingVars {
		fmt.Fprintf(&b, "%s=your_%s_here\n", name, strings.ToLower(name))
	}
	return b.String()
}

// envOrDefault returns the environment variable or a default when it is unset
func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
