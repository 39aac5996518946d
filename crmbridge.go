package crmbridge

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/estait/crmbridge/auth"
	"github.com/estait/crmbridge/core"
	"github.com/estait/crmbridge/providers/wiseagent"
	"github.com/estait/crmbridge/security"
	"github.com/estait/crmbridge/transport"
)

// Service is the embedding surface: credential lifecycle, encryption, and the
// CRM operation set for every registered provider. Construction wires the
// vault, token manager, transport client, and the Wise Agent adapter from one
// Config; options swap any piece for alternatives or fakes.
type Service struct {
	config   core.Config
	provider core.ProviderConfig
	logger   core.Logger
	registry *core.AdapterRegistry
	store    core.TokenStore
	secrets  core.SecretProvider
	http     core.HTTPDoer
	backoff  transport.BackoffScheduler

	tokens *auth.TokenManager
	client *transport.Client
}

type Option func(*Service)

func WithLogger(logger core.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTokenStore swaps the in-memory default for a persistent store, such as
// the sqlstore repository factory's TokenStore.
func WithTokenStore(store core.TokenStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

func WithSecretProvider(secrets core.SecretProvider) Option {
	return func(s *Service) {
		if secrets != nil {
			s.secrets = secrets
		}
	}
}

func WithHTTPClient(client core.HTTPDoer) Option {
	return func(s *Service) {
		if client != nil {
			s.http = client
		}
	}
}

func WithRegistry(registry *core.AdapterRegistry) Option {
	return func(s *Service) {
		if registry != nil {
			s.registry = registry
		}
	}
}

func WithBackoffScheduler(scheduler transport.BackoffScheduler) Option {
	return func(s *Service) {
		if scheduler != nil {
			s.backoff = scheduler
		}
	}
}

func New(config core.Config, options ...Option) (*Service, error) {
	defaults := core.DefaultConfig()
	if config.ServiceName == "" {
		config.ServiceName = defaults.ServiceName
	}
	if config.RefreshLeadSeconds <= 0 {
		config.RefreshLeadSeconds = defaults.RefreshLeadSeconds
	}
	if config.RequestTimeoutSecs <= 0 {
		config.RequestTimeoutSecs = defaults.RequestTimeoutSecs
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	service := &Service{
		config:   config,
		provider: wiseagent.ApplyDefaults(config.Provider),
		registry: core.NewAdapterRegistry(),
		backoff:  transport.ExponentialBackoffScheduler{},
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}

	if service.logger == nil {
		_, logger := glog.Resolve(config.ServiceName, nil, nil)
		service.logger = glog.Ensure(logger)
	}

	if service.secrets == nil {
		vault, err := security.NewVaultFromString(config.EncryptionKey)
		if err != nil {
			return nil, err
		}
		service.secrets = vault
	}
	if service.store == nil {
		service.store = core.NewMemoryTokenStore()
	}

	tokenOptions := []auth.Option{
		auth.WithLogger(service.logger),
		auth.WithRefreshLeadWindow(time.Duration(config.RefreshLeadSeconds) * time.Second),
	}
	if service.http != nil {
		tokenOptions = append(tokenOptions, auth.WithHTTPClient(service.http))
	}
	tokens, err := auth.NewTokenManager(wiseagent.ProviderID, service.provider, service.store, service.secrets, tokenOptions...)
	if err != nil {
		return nil, err
	}
	service.tokens = tokens

	clientOptions := []transport.Option{
		transport.WithLogger(service.logger),
		transport.WithProviderName("Wise Agent"),
		transport.WithTimeout(time.Duration(config.RequestTimeoutSecs) * time.Second),
		transport.WithMaxAttempts(config.MaxAttempts),
		transport.WithRetryWrites(config.RetryWrites),
		transport.WithBackoffScheduler(service.backoff),
	}
	if service.http != nil {
		clientOptions = append(clientOptions, transport.WithHTTPClient(service.http))
	}
	client, err := transport.NewClient(service.provider.APIBaseURL, tokens, clientOptions...)
	if err != nil {
		return nil, err
	}
	service.client = client

	adapter, err := wiseagent.NewAdapter(client, wiseagent.WithAdapterLogger(service.logger))
	if err != nil {
		return nil, err
	}
	if _, exists := service.registry.Get(adapter.ID()); !exists {
		if err := service.registry.Register(adapter); err != nil {
			return nil, err
		}
	}

	service.logger.Info("service configured",
		"service", config.ServiceName,
		"providers", len(service.registry.List()),
	)
	return service, nil
}

// CRM resolves a registered provider adapter by ID.
func (s *Service) CRM(providerID string) (core.Adapter, error) {
	adapter, ok := s.registry.Get(providerID)
	if !ok {
		return nil, core.NewNotFoundError("crmbridge: no adapter registered for provider " + providerID)
	}
	return adapter, nil
}

// DefaultCRM returns the Wise Agent adapter wired at construction.
func (s *Service) DefaultCRM() core.Adapter {
	adapter, _ := s.registry.Get(wiseagent.ProviderID)
	return adapter
}

func (s *Service) Registry() *core.AdapterRegistry {
	return s.registry
}

// BeginAuth starts the authorization code flow: a fresh CSRF state and the
// consent URL to redirect the user to. The caller stores the state and checks
// it in the callback with auth.ValidateState.
func (s *Service) BeginAuth() (authURL, state string, err error) {
	state, err = auth.GenerateState()
	if err != nil {
		return "", "", err
	}
	authURL, err = wiseagent.AuthorizationURL(s.provider, state)
	if err != nil {
		return "", "", err
	}
	return authURL, state, nil
}

// CompleteAuth exchanges the callback code and persists the user's tokens.
func (s *Service) CompleteAuth(ctx context.Context, userID, code string, scopes []string) (core.TokenSet, error) {
	return s.tokens.ExchangeCode(ctx, userID, code, scopes)
}

func (s *Service) GetValidAccessToken(ctx context.Context, userID string) (string, error) {
	return s.tokens.GetValidAccessToken(ctx, userID)
}

func (s *Service) RefreshAccessToken(ctx context.Context, userID string) (core.TokenSet, error) {
	return s.tokens.Refresh(ctx, userID)
}

func (s *Service) RevokeTokens(ctx context.Context, userID string) (bool, error) {
	return s.tokens.Revoke(ctx, userID)
}

func (s *Service) ConnectionStatus(ctx context.Context, userID string) (auth.ConnectionStatus, error) {
	return s.tokens.Status(ctx, userID)
}

func (s *Service) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	return s.secrets.Encrypt(ctx, plaintext)
}

func (s *Service) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return s.secrets.Decrypt(ctx, ciphertext)
}

func (s *Service) CreateContact(ctx context.Context, userID string, input core.ContactInput) (core.Contact, error) {
	return s.DefaultCRM().CreateContact(ctx, userID, input)
}

func (s *Service) UpdateContact(ctx context.Context, userID, contactID string, input core.ContactInput) (core.Contact, error) {
	return s.DefaultCRM().UpdateContact(ctx, userID, contactID, input)
}

func (s *Service) GetContact(ctx context.Context, userID, contactID string) (*core.Contact, error) {
	return s.DefaultCRM().GetContact(ctx, userID, contactID)
}

func (s *Service) SearchContacts(ctx context.Context, userID string, query core.SearchQuery) (core.SearchResult, error) {
	return s.DefaultCRM().SearchContacts(ctx, userID, query)
}

func (s *Service) CreateNote(ctx context.Context, userID, contactID, content, subject string, categories []string) (core.Note, error) {
	return s.DefaultCRM().CreateNote(ctx, userID, contactID, content, subject, categories)
}

func (s *Service) GetNotes(ctx context.Context, userID, contactID string) ([]core.Note, error) {
	return s.DefaultCRM().GetNotes(ctx, userID, contactID)
}

func (s *Service) CreateTask(ctx context.Context, userID string, input core.TaskInput) (core.Task, error) {
	return s.DefaultCRM().CreateTask(ctx, userID, input)
}

func (s *Service) GetTasks(ctx context.Context, userID, contactID string) ([]core.Task, error) {
	return s.DefaultCRM().GetTasks(ctx, userID, contactID)
}

func (s *Service) GetTeam(ctx context.Context, userID string) ([]core.TeamMember, error) {
	return s.DefaultCRM().GetTeam(ctx, userID)
}

func (s *Service) GetMarketingPrograms(ctx context.Context, userID string) ([]core.MarketingProgram, error) {
	return s.DefaultCRM().GetMarketingPrograms(ctx, userID)
}

func (s *Service) AddContactsToProgram(ctx context.Context, userID string, contactIDs []string, programID string) (bool, error) {
	return s.DefaultCRM().AddContactsToProgram(ctx, userID, contactIDs, programID)
}

func (s *Service) GetLeadSources(ctx context.Context, userID string) ([]core.LeadSource, error) {
	return s.DefaultCRM().GetLeadSources(ctx, userID)
}

func (s *Service) GenerateSSOLink(ctx context.Context, userID, targetPage string) (string, error) {
	return s.DefaultCRM().GenerateSSOLink(ctx, userID, targetPage)
}
