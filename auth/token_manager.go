package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/estait/crmbridge/core"
)

const defaultTokenExpiry = time.Hour

// TokenManager owns the credential lifecycle for one provider: load and
// decrypt stored tokens, refresh them ahead of expiry, exchange authorization
// codes, and revoke on disconnect. Refreshes for the same user are
// single-flight; concurrent callers share one upstream request.
type TokenManager struct {
	providerID string
	config     core.ProviderConfig
	store      core.TokenStore
	secrets    core.SecretProvider
	client     core.HTTPDoer
	logger     core.Logger
	now        func() time.Time
	leadWindow time.Duration

	mu       sync.Mutex
	inflight map[string]*refreshCall
}

type refreshCall struct {
	done   chan struct{}
	tokens core.TokenSet
	err    error
}

type Option func(*TokenManager)

func WithHTTPClient(client core.HTTPDoer) Option {
	return func(m *TokenManager) {
		if client != nil {
			m.client = client
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(m *TokenManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRefreshLeadWindow overrides how far ahead of expiry tokens refresh.
func WithRefreshLeadWindow(window time.Duration) Option {
	return func(m *TokenManager) {
		if window > 0 {
			m.leadWindow = window
		}
	}
}

func NewTokenManager(providerID string, config core.ProviderConfig, store core.TokenStore, secrets core.SecretProvider, options ...Option) (*TokenManager, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, core.NewBadInputError("auth: provider id is required")
	}
	if store == nil {
		return nil, core.NewConfigurationError("auth: token store is required")
	}
	if secrets == nil {
		return nil, core.NewConfigurationError("auth: secret provider is required")
	}
	if strings.TrimSpace(config.TokenURL) == "" {
		return nil, core.NewConfigurationError("auth: token endpoint is required")
	}

	manager := &TokenManager{
		providerID: providerID,
		config:     config,
		store:      store,
		secrets:    secrets,
		client:     http.DefaultClient,
		logger:     glog.Ensure(nil),
		now:        func() time.Time { return time.Now().UTC() },
		leadWindow: core.DefaultRefreshLeadWindow,
		inflight:   make(map[string]*refreshCall),
	}
	for _, option := range options {
		if option != nil {
			option(manager)
		}
	}
	return manager, nil
}

// GetValidAccessToken returns an access token ready for use, refreshing when
// the stored one expires within the lead window. A missing record or a failed
// refresh returns ("", nil): the connection is unusable but the condition is
// expected, so the caller decides whether that becomes an auth error.
func (m *TokenManager) GetValidAccessToken(ctx context.Context, userID string) (string, error) {
	tokens, found, err := m.loadTokens(ctx, userID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}

	state := core.ResolveTokenState(m.now(), tokens, m.leadWindow)
	if state.HasAccessToken && !state.IsExpired && !state.IsExpiringSoon {
		return tokens.AccessToken, nil
	}
	if !core.ShouldRefresh(state) {
		return "", nil
	}

	refreshed, err := m.refreshShared(ctx, userID, tokens)
	if err != nil {
		m.logger.Error("token refresh failed, keeping stale record",
			"provider", m.providerID,
			"user_id", userID,
			"error", err,
		)
		return "", nil
	}
	return refreshed.AccessToken, nil
}

// Refresh forces a refresh regardless of the stored token's freshness.
func (m *TokenManager) Refresh(ctx context.Context, userID string) (core.TokenSet, error) {
	tokens, found, err := m.loadTokens(ctx, userID)
	if err != nil {
		return core.TokenSet{}, err
	}
	if !found {
		return core.TokenSet{}, core.NewAuthRequiredError(m.providerID)
	}
	return m.refreshShared(ctx, userID, tokens)
}

// refreshShared deduplicates concurrent refreshes per user. The first caller
// performs the exchange; everyone else blocks on the same result.
func (m *TokenManager) refreshShared(ctx context.Context, userID string, tokens core.TokenSet) (core.TokenSet, error) {
	m.mu.Lock()
	if call, ok := m.inflight[userID]; ok {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.tokens.Clone(), call.err
		case <-ctx.Done():
			return core.TokenSet{}, ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	m.inflight[userID] = call
	m.mu.Unlock()

	call.tokens, call.err = m.refresh(ctx, userID, tokens)
	close(call.done)

	m.mu.Lock()
	delete(m.inflight, userID)
	m.mu.Unlock()

	return call.tokens.Clone(), call.err
}

func (m *TokenManager) refresh(ctx context.Context, userID string, tokens core.TokenSet) (core.TokenSet, error) {
	if strings.TrimSpace(tokens.RefreshToken) == "" {
		return core.TokenSet{}, core.NewAuthRequiredError(m.providerID)
	}

	response, err := m.tokenGrant(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": tokens.RefreshToken,
	})
	if err != nil {
		return core.TokenSet{}, err
	}

	updated := core.TokenSet{
		AccessToken:  response.AccessToken,
		RefreshToken: response.RefreshToken,
		ExpiresAt:    m.resolveExpiry(response),
		Scopes:       append([]string(nil), tokens.Scopes...),
	}
	// Some providers reuse refresh tokens and omit them from the response.
	if strings.TrimSpace(updated.RefreshToken) == "" {
		updated.RefreshToken = tokens.RefreshToken
	}

	if err := m.SaveTokens(ctx, userID, updated); err != nil {
		return core.TokenSet{}, err
	}
	m.logger.Info("access token refreshed",
		"provider", m.providerID,
		"user_id", userID,
		"expires_at", updated.ExpiresAt.Format(time.RFC3339),
	)
	return updated, nil
}

// ExchangeCode trades an authorization code for tokens and persists them,
// replacing any previous record for the user.
func (m *TokenManager) ExchangeCode(ctx context.Context, userID, code string, scopes []string) (core.TokenSet, error) {
	if strings.TrimSpace(code) == "" {
		return core.TokenSet{}, core.NewBadInputError("auth: authorization code is required")
	}

	response, err := m.tokenGrant(ctx, map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": m.config.RedirectURI,
	})
	if err != nil {
		return core.TokenSet{}, err
	}
	if strings.TrimSpace(response.AccessToken) == "" {
		return core.TokenSet{}, core.NewCreateFailedError("auth: token endpoint returned no access token")
	}

	if len(scopes) == 0 {
		scopes = append([]string(nil), m.config.Scopes...)
	}
	tokens := core.TokenSet{
		AccessToken:  response.AccessToken,
		RefreshToken: response.RefreshToken,
		ExpiresAt:    m.resolveExpiry(response),
		Scopes:       append([]string(nil), scopes...),
	}
	if err := m.SaveTokens(ctx, userID, tokens); err != nil {
		return core.TokenSet{}, err
	}
	m.logger.Info("authorization code exchanged",
		"provider", m.providerID,
		"user_id", userID,
	)
	return tokens, nil
}

// Revoke disconnects the user. Upstream revocation is best effort for both
// tokens; deleting the local record is the authoritative step.
func (m *TokenManager) Revoke(ctx context.Context, userID string) (bool, error) {
	tokens, found, err := m.loadTokens(ctx, userID)
	if err != nil {
		if core.HasTextCode(err, core.ErrorCodeCredentialCorrupt) {
			// Nothing recoverable upstream; drop the record.
			return true, m.store.Delete(ctx, userID, m.providerID)
		}
		return false, err
	}
	if !found {
		return true, nil
	}

	m.revokeToken(ctx, tokens.AccessToken, "access_token")
	m.revokeToken(ctx, tokens.RefreshToken, "refresh_token")

	if err := m.store.Delete(ctx, userID, m.providerID); err != nil {
		return false, err
	}
	m.logger.Info("tokens revoked", "provider", m.providerID, "user_id", userID)
	return true, nil
}

func (m *TokenManager) revokeToken(ctx context.Context, token, hint string) {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(m.config.RevokeURL) == "" {
		return
	}
	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", hint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		m.logger.Error("revoke request build failed", "provider", m.providerID, "hint", hint, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Error("revoke request failed", "provider", m.providerID, "hint", hint, "error", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.logger.Error("revoke rejected", "provider", m.providerID, "hint", hint, "status", resp.StatusCode)
	}
}

// ConnectionStatus summarizes a user's credential record without exposing
// token values.
type ConnectionStatus struct {
	Connected    bool
	ExpiresAt    time.Time
	NeedsRefresh bool
	Scopes       []string
}

func (m *TokenManager) Status(ctx context.Context, userID string) (ConnectionStatus, error) {
	tokens, found, err := m.loadTokens(ctx, userID)
	if err != nil {
		return ConnectionStatus{}, err
	}
	if !found {
		return ConnectionStatus{}, nil
	}
	state := core.ResolveTokenState(m.now(), tokens, m.leadWindow)
	return ConnectionStatus{
		Connected:    true,
		ExpiresAt:    state.ExpiresAt,
		NeedsRefresh: core.ShouldRefresh(state),
		Scopes:       append([]string(nil), tokens.Scopes...),
	}, nil
}

// SaveTokens encrypts and persists a token set for the user.
func (m *TokenManager) SaveTokens(ctx context.Context, userID string, tokens core.TokenSet) error {
	encryptedAccess, err := m.secrets.Encrypt(ctx, []byte(tokens.AccessToken))
	if err != nil {
		return err
	}
	encryptedRefresh, err := m.secrets.Encrypt(ctx, []byte(tokens.RefreshToken))
	if err != nil {
		return err
	}
	record := core.StoredTokenSet{
		AccessToken:  string(encryptedAccess),
		RefreshToken: string(encryptedRefresh),
		ExpiresAt:    tokens.ExpiresAt,
		Scopes:       append([]string(nil), tokens.Scopes...),
	}
	return m.store.Put(ctx, userID, m.providerID, record)
}

func (m *TokenManager) loadTokens(ctx context.Context, userID string) (core.TokenSet, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return core.TokenSet{}, false, core.NewBadInputError("auth: user id is required")
	}
	record, found, err := m.store.Get(ctx, userID, m.providerID)
	if err != nil {
		return core.TokenSet{}, false, err
	}
	if !found {
		return core.TokenSet{}, false, nil
	}

	access, err := m.secrets.Decrypt(ctx, []byte(record.AccessToken))
	if err != nil {
		return core.TokenSet{}, false, err
	}
	refresh, err := m.secrets.Decrypt(ctx, []byte(record.RefreshToken))
	if err != nil {
		return core.TokenSet{}, false, err
	}
	return core.TokenSet{
		AccessToken:  string(access),
		RefreshToken: string(refresh),
		ExpiresAt:    record.ExpiresAt,
		Scopes:       append([]string(nil), record.Scopes...),
	}, true, nil
}

type tokenEndpointResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
	ExpiresIn    int64  `json:"expires_in"`
}

// tokenGrant posts a grant request to the token endpoint. The endpoint takes a
// JSON body with client credentials as HTTP basic auth.
func (m *TokenManager) tokenGrant(ctx context.Context, grant map[string]string) (tokenEndpointResponse, error) {
	payload, err := json.Marshal(grant)
	if err != nil {
		return tokenEndpointResponse{}, fmt.Errorf("auth: encode grant: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return tokenEndpointResponse{}, fmt.Errorf("auth: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(m.config.ClientID, m.config.ClientSecret)

	resp, err := m.client.Do(req)
	if err != nil {
		return tokenEndpointResponse{}, core.NewRequestFailedError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return tokenEndpointResponse{}, core.NewRequestFailedError(err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return tokenEndpointResponse{}, core.NewUnauthorizedError("auth: token endpoint rejected client credentials")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tokenEndpointResponse{}, core.NewAPIError("auth: token grant failed", resp.StatusCode, string(body))
	}

	var response tokenEndpointResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return tokenEndpointResponse{}, core.NewAPIError("auth: token endpoint returned malformed JSON", resp.StatusCode, string(body))
	}
	return response, nil
}

// resolveExpiry prefers an explicit expires_at timestamp, then expires_in
// seconds, then falls back to one hour from now.
func (m *TokenManager) resolveExpiry(response tokenEndpointResponse) time.Time {
	if raw := strings.TrimSpace(response.ExpiresAt); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			return parsed.UTC()
		}
	}
	if response.ExpiresIn > 0 {
		return m.now().Add(time.Duration(response.ExpiresIn) * time.Second)
	}
	return m.now().Add(defaultTokenExpiry)
}

var _ core.TokenSource = (*TokenManager)(nil)
