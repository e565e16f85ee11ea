// Package config resolves Zenodo access credentials from a TOML settings
// file overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"zenodep/internal/logging"
)

// SettingsName is the settings file looked up in the working directory and
// the user's home directory when no --config-file is given.
const SettingsName = ".zenodo-deposit-settings.toml"

// Section is the TOML table holding the access tokens.
const Section = "zenodo"

// DefaultToken is the placeholder shipped in example settings files; it is
// rejected by validation.
const DefaultToken = "Change me"

const (
	ProductionTokenKey = "ZENODO_ACCESS_TOKEN"
	SandboxTokenKey    = "ZENODO_SANDBOX_ACCESS_TOKEN"
)

// Environment selects one of the two isolated Zenodo deployments. A token
// is scoped to exactly one environment.
type Environment int

const (
	Sandbox Environment = iota
	Production
)

func (e Environment) String() string {
	if e == Production {
		return "production"
	}
	return "sandbox"
}

// BaseURL returns the API root for the environment.
func (e Environment) BaseURL() string {
	if e == Production {
		return "https://zenodo.org/api"
	}
	return "https://sandbox.zenodo.org/api"
}

// TokenKey returns the config/environment key holding the environment's
// access token.
func (e Environment) TokenKey() string {
	if e == Production {
		return ProductionTokenKey
	}
	return SandboxTokenKey
}

// TokenSettingsURL returns where a user can generate a token for the
// environment, used in error messages.
func (e Environment) TokenSettingsURL() string {
	if e == Production {
		return "https://zenodo.org/account/settings/tokens/"
	}
	return "https://sandbox.zenodo.org/account/settings/tokens/"
}

// Config holds the resolved access credentials. It is read once per
// invocation and treated as immutable afterwards.
type Config struct {
	AccessToken        string
	SandboxAccessToken string
}

// Token returns the credential scoped to env. An empty string means the
// token is absent.
func (c Config) Token(env Environment) string {
	if env == Production {
		return c.AccessToken
	}
	return c.SandboxAccessToken
}

var tokenPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Load reads the settings file (explicit path, else the standard locations)
// and overlays environment variables of the same names. A missing settings
// file is not an error: tokens may come entirely from the environment.
func Load(configFile string) (Config, error) {
	logger := logging.NewComponentLogger("config")

	v := viper.New()
	v.SetConfigType("toml")
	if configFile != "" {
		v.SetConfigFile(configFile)
		logger.Info("Reading config file: %s", configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("invalid config file %s: %w", configFile, err)
		}
	} else if path := firstSettingsFile(); path != "" {
		v.SetConfigFile(path)
		logger.Debug("Reading config file: %s", path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	} else {
		logger.Debug("No config file found, relying on environment variables")
	}

	cfg := Config{
		AccessToken:        v.GetString(Section + "." + ProductionTokenKey),
		SandboxAccessToken: v.GetString(Section + "." + SandboxTokenKey),
	}

	// Environment variables override file values.
	if env := os.Getenv(ProductionTokenKey); env != "" {
		cfg.AccessToken = env
	}
	if env := os.Getenv(SandboxTokenKey); env != "" {
		cfg.SandboxAccessToken = env
	}

	logger.Debug("Resolved %s=%s %s=%s",
		ProductionTokenKey, RedactToken(cfg.AccessToken),
		SandboxTokenKey, RedactToken(cfg.SandboxAccessToken))
	return cfg, nil
}

func firstSettingsFile() string {
	candidates := []string{SettingsName}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, SettingsName))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate checks that the token for env is present and plausibly a real
// Zenodo token. It runs before any network call so a bad credential never
// creates remote state.
func Validate(cfg Config, env Environment) error {
	key := env.TokenKey()
	token := strings.TrimSpace(cfg.Token(env))

	switch {
	case token == "":
		return fmt.Errorf("%s is not set or empty; set it in %s or as an environment variable, or generate one at %s",
			key, SettingsName, env.TokenSettingsURL())
	case token == DefaultToken:
		return fmt.Errorf("%s is set to the default placeholder (%q); replace it with a token from %s",
			key, DefaultToken, env.TokenSettingsURL())
	case len(token) < 32:
		return fmt.Errorf("%s is too short (length %d) to be a valid Zenodo token; generate one at %s",
			key, len(token), env.TokenSettingsURL())
	case !tokenPattern.MatchString(token):
		return fmt.Errorf("%s contains invalid characters; expected alphanumeric, underscore, or hyphen", key)
	}
	return nil
}

// RedactToken hides all but the first 4 characters of a token for logging.
func RedactToken(token string) string {
	if token == "" {
		return "<none>"
	}
	if len(token) <= 4 {
		return token + strings.Repeat("*", 4)
	}
	return token[:4] + strings.Repeat("*", len(token)-4)
}
