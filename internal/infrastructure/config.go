package infrastructure

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration read from the environment.
type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	Region    string `envconfig:"AWS_REGION" required:"true"`
	TableName string `envconfig:"TABLE_NAME" required:"true"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	AuthMode          string        `envconfig:"AUTH_MODE" default:"simple"`
	JWTSecret         string        `envconfig:"JWT_SECRET"`
	JWTExpiration     time.Duration `envconfig:"JWT_EXPIRATION" default:"24h"`
	KeycloakServerURL string        `envconfig:"KEYCLOAK_SERVER_URL"`
	KeycloakRealm     string        `envconfig:"KEYCLOAK_REALM"`
	KeycloakAdminRole string        `envconfig:"KEYCLOAK_ADMIN_ROLE" default:"admin"`

	EncryptionKey string `envconfig:"ENCRYPTION_KEY" required:"true"`

	DefectDojoURL            string `envconfig:"DEFECTDOJO_URL"`
	DefectDojoAPIKey         string `envconfig:"DEFECTDOJO_API_KEY"`
	DefectDojoProvisionUsers bool   `envconfig:"DEFECTDOJO_PROVISION_USERS" default:"false"`

	SyncFetchTimeout time.Duration `envconfig:"SYNC_FETCH_TIMEOUT" default:"15s"`
	SyncOutboundRPS  float64       `envconfig:"SYNC_OUTBOUND_RPS" default:"5"`
	SyncOnStartup    bool          `envconfig:"SYNC_ON_STARTUP" default:"false"`

	BootstrapAdminPassword string `envconfig:"BOOTSTRAP_ADMIN_PASSWORD" default:"admin123"`
	XRayEnabled            bool   `envconfig:"XRAY_ENABLED" default:"false"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Region == "" || c.TableName == "" || c.EncryptionKey == "" {
		return errors.New("AWS_REGION, TABLE_NAME and ENCRYPTION_KEY must not be empty")
	}
	c.AuthMode = strings.ToLower(strings.TrimSpace(c.AuthMode))
	switch c.AuthMode {
	case "none":
	case "simple":
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required for simple auth mode")
		}
	case "keycloak":
		if c.KeycloakServerURL == "" || c.KeycloakRealm == "" {
			return errors.New("KEYCLOAK_SERVER_URL and KEYCLOAK_REALM are required for keycloak auth mode")
		}
	default:
		return fmt.Errorf("invalid AUTH_MODE %q", c.AuthMode)
	}
	if c.DefectDojoProvisionUsers && (c.DefectDojoURL == "" || c.DefectDojoAPIKey == "") {
		return errors.New("DEFECTDOJO_URL and DEFECTDOJO_API_KEY are required to provision users")
	}
	if c.SyncOutboundRPS < 0 {
		return errors.New("SYNC_OUTBOUND_RPS must not be negative")
	}
	return nil
}
