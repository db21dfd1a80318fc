package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("xpost version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	OAuth           OAuthConfig   `mapstructure:"oauth"`
	API             APIConfig     `mapstructure:"api"`
	Logging         LoggingConfig `mapstructure:"logging"`
	CredentialsFile string        `mapstructure:"credentials_file"`
}

// OAuthConfig holds everything the authorization-code flow needs. ClientID
// and ClientSecret are supplied at setup time via flags or environment.
type OAuthConfig struct {
	ClientID        string        `mapstructure:"client_id"`
	ClientSecret    string        `mapstructure:"client_secret"`
	Scopes          string        `mapstructure:"scopes"`
	AuthURL         string        `mapstructure:"auth_url"`
	TokenURL        string        `mapstructure:"token_url"`
	CallbackPort    int           `mapstructure:"callback_port"`
	CallbackTimeout time.Duration `mapstructure:"callback_timeout"`
}

// RedirectURI must match the value registered with the provider exactly.
func (c *OAuthConfig) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d/callback", c.CallbackPort)
}

type APIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	PermalinkHost  string `mapstructure:"permalink_host"`
	CharacterLimit int    `mapstructure:"character_limit"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// InitFlags initializes command line flags (without parsing)
func InitFlags() {
	pflag.String("credentials-file", "", "Path to the credentials file")
	pflag.String("client-id", "", "X app client ID")
	pflag.String("client-secret", "", "X app client secret")
	// Note: no pflag.Parse() here as cobra parses the shared flag set
}

func setDefaults() {
	viper.SetDefault("oauth.scopes", "tweet.read tweet.write users.read media.write offline.access")
	viper.SetDefault("oauth.auth_url", "https://x.com/i/oauth2/authorize")
	viper.SetDefault("oauth.token_url", "https://api.x.com/2/oauth2/token")
	viper.SetDefault("oauth.callback_port", 9877)
	viper.SetDefault("oauth.callback_timeout", 5*time.Minute)
	viper.SetDefault("api.base_url", "https://api.x.com/2")
	viper.SetDefault("api.permalink_host", "https://x.com")
	viper.SetDefault("api.character_limit", 280)
	viper.SetDefault("logging.level", "warn")
	viper.SetDefault("logging.format", "console")
}

func Load() (*Config, error) {
	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix("XPOST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	// ./config.yaml or ~/.xpost/config.yaml are optional; flags and
	// environment variables are enough to run every command.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".xpost"))
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Set client credentials from flags or environment
	if id := viper.GetString("client-id"); id != "" {
		config.OAuth.ClientID = id
	}
	if secret := viper.GetString("client-secret"); secret != "" {
		config.OAuth.ClientSecret = secret
	}

	// Set credentials file from flag or environment
	if path := viper.GetString("credentials-file"); path != "" {
		config.CredentialsFile = path
	}
	if config.CredentialsFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory for credentials file: %w", err)
		}
		config.CredentialsFile = filepath.Join(home, ".xpost", "credentials.md")
	}

	return &config, nil
}
