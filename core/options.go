package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// NewStaticRawConfigLoader wraps a literal value map, mostly for tests and
// embedders that resolve configuration themselves.
func NewStaticRawConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.EncryptionKey) != "" {
		layer["encryption_key"] = cfg.EncryptionKey
	}
	if includeZero || cfg.RefreshLeadSeconds > 0 {
		layer["refresh_lead_seconds"] = cfg.RefreshLeadSeconds
	}
	if includeZero || cfg.RequestTimeoutSecs > 0 {
		layer["request_timeout_seconds"] = cfg.RequestTimeoutSecs
	}
	if includeZero || cfg.MaxAttempts > 0 {
		layer["max_attempts"] = cfg.MaxAttempts
	}
	if includeZero || cfg.RetryWrites {
		layer["retry_writes"] = cfg.RetryWrites
	}

	provider := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Provider.ClientID) != "" {
		provider["client_id"] = cfg.Provider.ClientID
	}
	if includeZero || strings.TrimSpace(cfg.Provider.ClientSecret) != "" {
		provider["client_secret"] = cfg.Provider.ClientSecret
	}
	if includeZero || strings.TrimSpace(cfg.Provider.AuthURL) != "" {
		provider["auth_url"] = cfg.Provider.AuthURL
	}
	if includeZero || strings.TrimSpace(cfg.Provider.TokenURL) != "" {
		provider["token_url"] = cfg.Provider.TokenURL
	}
	if includeZero || strings.TrimSpace(cfg.Provider.RevokeURL) != "" {
		provider["revoke_url"] = cfg.Provider.RevokeURL
	}
	if includeZero || strings.TrimSpace(cfg.Provider.APIBaseURL) != "" {
		provider["api_base_url"] = cfg.Provider.APIBaseURL
	}
	if includeZero || strings.TrimSpace(cfg.Provider.RedirectURI) != "" {
		provider["redirect_uri"] = cfg.Provider.RedirectURI
	}
	if includeZero || len(cfg.Provider.Scopes) > 0 {
		provider["scopes"] = append([]string(nil), cfg.Provider.Scopes...)
	}
	if len(provider) > 0 {
		layer["provider"] = provider
	}
	return layer
}
