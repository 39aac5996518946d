package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// SecretProvider encrypts and decrypts credential payloads at rest.
type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// StoredTokenSet is the persisted form of a credential record: both token
// fields are envelope-encrypted strings, expiry and scopes stay readable so
// freshness checks never need a decrypt round trip.
type StoredTokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
}

// TokenStore persists one credential record per (user, provider) pair.
// Put overwrites any existing record; last writer wins.
type TokenStore interface {
	Get(ctx context.Context, userID, providerID string) (StoredTokenSet, bool, error)
	Put(ctx context.Context, userID, providerID string, record StoredTokenSet) error
	Delete(ctx context.Context, userID, providerID string) error
}

// HTTPDoer abstracts the outbound HTTP client so tests can fake transports.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource resolves a usable access token for a user. An empty token with a
// nil error means "not usable right now" rather than a hard failure; callers
// decide whether that surfaces as an auth error.
type TokenSource interface {
	GetValidAccessToken(ctx context.Context, userID string) (string, error)
}

// Adapter is the full CRM operation surface for one provider.
type Adapter interface {
	ID() string
	Name() string

	CreateContact(ctx context.Context, userID string, input ContactInput) (Contact, error)
	UpdateContact(ctx context.Context, userID, contactID string, input ContactInput) (Contact, error)
	GetContact(ctx context.Context, userID, contactID string) (*Contact, error)
	SearchContacts(ctx context.Context, userID string, query SearchQuery) (SearchResult, error)

	CreateNote(ctx context.Context, userID, contactID, content, subject string, categories []string) (Note, error)
	GetNotes(ctx context.Context, userID, contactID string) ([]Note, error)

	CreateTask(ctx context.Context, userID string, input TaskInput) (Task, error)
	GetTasks(ctx context.Context, userID, contactID string) ([]Task, error)

	GetTeam(ctx context.Context, userID string) ([]TeamMember, error)
	GetMarketingPrograms(ctx context.Context, userID string) ([]MarketingProgram, error)
	AddContactsToProgram(ctx context.Context, userID string, contactIDs []string, programID string) (bool, error)
	GetLeadSources(ctx context.Context, userID string) ([]LeadSource, error)
	GenerateSSOLink(ctx context.Context, userID, targetPage string) (string, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
