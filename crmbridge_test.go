package crmbridge

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/estait/crmbridge/auth"
	"github.com/estait/crmbridge/core"
)

type routeDoer struct {
	handler func(req *http.Request, body string) (*http.Response, error)
	calls   int
}

func (d *routeDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls++
	var body string
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	return d.handler(req, body)
}

func respond(status int, body string) (*http.Response, error) {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func testConfig() core.Config {
	return core.Config{
		EncryptionKey: "service-test-key",
		Provider: core.ProviderConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURI:  "https://app.example.com/callback",
		},
	}
}

func TestNewRequiresEncryptionKey(t *testing.T) {
	_, err := New(core.Config{})
	if err == nil {
		t.Fatalf("expected configuration error without encryption key")
	}
	if !core.HasTextCode(err, core.ErrorCodeConfiguration) {
		t.Fatalf("expected %s, got %v", core.ErrorCodeConfiguration, err)
	}
}

func TestNewRegistersWiseAgentAdapter(t *testing.T) {
	service, err := New(testConfig())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	adapter, err := service.CRM("wise_agent")
	if err != nil {
		t.Fatalf("CRM returned error: %v", err)
	}
	if adapter.Name() != "Wise Agent" {
		t.Fatalf("adapter name = %q", adapter.Name())
	}
	if service.DefaultCRM() == nil {
		t.Fatalf("default adapter missing")
	}

	if _, err := service.CRM("unknown"); !core.HasTextCode(err, core.ErrorCodeNotFound) {
		t.Fatalf("expected %s for unknown provider, got %v", core.ErrorCodeNotFound, err)
	}
}

func TestBeginAuthProducesStateAndURL(t *testing.T) {
	service, err := New(testConfig())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	authURL, state, err := service.BeginAuth()
	if err != nil {
		t.Fatalf("BeginAuth returned error: %v", err)
	}
	if len(state) != 64 {
		t.Fatalf("state length = %d", len(state))
	}
	if !strings.Contains(authURL, "state="+state) {
		t.Fatalf("authURL missing state: %s", authURL)
	}
	if !auth.ValidateState(state, state) {
		t.Fatalf("generated state fails its own validation")
	}
}

func TestServiceEncryptDecryptRoundTrip(t *testing.T) {
	service, err := New(testConfig())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := context.Background()
	envelope, err := service.Encrypt(ctx, []byte("token-payload"))
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	plaintext, err := service.Decrypt(ctx, envelope)
	if err != nil {
		t.Fatalf("Decrypt returned error: %v", err)
	}
	if string(plaintext) != "token-payload" {
		t.Fatalf("round trip mismatch: %q", plaintext)
	}
}

func TestServiceEndToEndContactFlow(t *testing.T) {
	now := time.Now().UTC()
	doer := &routeDoer{handler: func(req *http.Request, body string) (*http.Response, error) {
		if strings.Contains(req.URL.Path, "webconnect.asp") {
			if strings.Contains(body, "requestType=webcontact") {
				return respond(http.StatusOK, `{"success": true, "data": {"ClientID": 12345}}`)
			}
			if strings.Contains(req.URL.RawQuery, "getSingleContact") {
				return respond(http.StatusOK, `[{"ClientID": 12345, "CFirst": "Ada", "CLast": "Lovelace"}]`)
			}
		}
		return respond(http.StatusNotFound, "unexpected request")
	}}

	service, err := New(testConfig(), WithHTTPClient(doer))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := context.Background()
	tokens := core.TokenSet{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    now.Add(time.Hour),
	}
	// Seed through the service's own encryption path.
	encAccess, err := service.Encrypt(ctx, []byte(tokens.AccessToken))
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	encRefresh, err := service.Encrypt(ctx, []byte(tokens.RefreshToken))
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	store := service.store
	if err := store.Put(ctx, "user-1", "wise_agent", core.StoredTokenSet{
		AccessToken:  string(encAccess),
		RefreshToken: string(encRefresh),
		ExpiresAt:    tokens.ExpiresAt,
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	token, err := service.GetValidAccessToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetValidAccessToken returned error: %v", err)
	}
	if token != "access" {
		t.Fatalf("token = %q", token)
	}

	contact, err := service.CreateContact(ctx, "user-1", core.ContactInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Source:    "chat",
	})
	if err != nil {
		t.Fatalf("CreateContact returned error: %v", err)
	}
	if contact.ID != "12345" {
		t.Fatalf("contact ID = %q", contact.ID)
	}

	fetched, err := service.GetContact(ctx, "user-1", "12345")
	if err != nil {
		t.Fatalf("GetContact returned error: %v", err)
	}
	if fetched == nil || fetched.FirstName != "Ada" {
		t.Fatalf("fetched = %+v", fetched)
	}
}

func TestServiceOperationsWithoutConnection(t *testing.T) {
	doer := &routeDoer{handler: func(*http.Request, string) (*http.Response, error) {
		t.Fatalf("no HTTP call expected without a connection")
		return nil, nil
	}}
	service, err := New(testConfig(), WithHTTPClient(doer))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = service.GetTeam(context.Background(), "stranger")
	if !core.HasTextCode(err, core.ErrorCodeAuthRequired) {
		t.Fatalf("expected %s, got %v", core.ErrorCodeAuthRequired, err)
	}
}
