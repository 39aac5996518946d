package core

import (
	"fmt"
	"strings"
)

// ProviderConfig holds the OAuth client settings for one CRM provider.
type ProviderConfig struct {
	ClientID     string   `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string   `koanf:"client_secret" mapstructure:"client_secret"`
	AuthURL      string   `koanf:"auth_url" mapstructure:"auth_url"`
	TokenURL     string   `koanf:"token_url" mapstructure:"token_url"`
	RevokeURL    string   `koanf:"revoke_url" mapstructure:"revoke_url"`
	APIBaseURL   string   `koanf:"api_base_url" mapstructure:"api_base_url"`
	RedirectURI  string   `koanf:"redirect_uri" mapstructure:"redirect_uri"`
	Scopes       []string `koanf:"scopes" mapstructure:"scopes"`
}

type Config struct {
	ServiceName        string `koanf:"service_name" mapstructure:"service_name"`
	EncryptionKey      string `koanf:"encryption_key" mapstructure:"encryption_key"`
	RefreshLeadSeconds int    `koanf:"refresh_lead_seconds" mapstructure:"refresh_lead_seconds"`
	RequestTimeoutSecs int    `koanf:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
	MaxAttempts        int    `koanf:"max_attempts" mapstructure:"max_attempts"`
	RetryWrites        bool   `koanf:"retry_writes" mapstructure:"retry_writes"`

	Provider ProviderConfig `koanf:"provider" mapstructure:"provider"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:        "crmbridge",
		RefreshLeadSeconds: 300,
		RequestTimeoutSecs: 30,
		MaxAttempts:        3,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("core: max_attempts must be at least 1")
	}
	if c.RequestTimeoutSecs < 1 {
		return fmt.Errorf("core: request_timeout_seconds must be at least 1")
	}
	return nil
}
