package core

import (
	"testing"
	"time"
)

func TestResolveTokenStateFreshToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := ResolveTokenState(now, TokenSet{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    now.Add(10 * time.Minute),
	}, DefaultRefreshLeadWindow)

	if !state.HasAccessToken || !state.HasRefreshToken {
		t.Fatalf("token flags wrong: %+v", state)
	}
	if state.IsExpired || state.IsExpiringSoon {
		t.Fatalf("fresh token flagged stale: %+v", state)
	}
	if ShouldRefresh(state) {
		t.Fatalf("fresh token should not refresh")
	}
}

func TestResolveTokenStateInsideLeadWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := ResolveTokenState(now, TokenSet{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    now.Add(4 * time.Minute),
	}, DefaultRefreshLeadWindow)

	if state.IsExpired {
		t.Fatalf("token inside lead window is not expired yet")
	}
	if !state.IsExpiringSoon {
		t.Fatalf("token 4m from expiry must be expiring soon")
	}
	if !ShouldRefresh(state) {
		t.Fatalf("expiring token with refresh token should refresh")
	}
}

func TestResolveTokenStateExactLeadBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := ResolveTokenState(now, TokenSet{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    now.Add(DefaultRefreshLeadWindow),
	}, DefaultRefreshLeadWindow)

	// Expiry exactly at the window edge counts as expiring soon.
	if !state.IsExpiringSoon {
		t.Fatalf("boundary expiry must count as expiring soon")
	}
}

func TestResolveTokenStateExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := ResolveTokenState(now, TokenSet{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    now.Add(-time.Second),
	}, DefaultRefreshLeadWindow)

	if !state.IsExpired {
		t.Fatalf("past expiry must flag expired")
	}
	if !ShouldRefresh(state) {
		t.Fatalf("expired token with refresh token should refresh")
	}
}

func TestShouldRefreshWithoutRefreshToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := ResolveTokenState(now, TokenSet{
		AccessToken: "access",
		ExpiresAt:   now.Add(-time.Minute),
	}, DefaultRefreshLeadWindow)

	if ShouldRefresh(state) {
		t.Fatalf("no refresh token means no refresh attempt")
	}
}

func TestShouldRefreshMissingAccessToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := ResolveTokenState(now, TokenSet{
		RefreshToken: "refresh",
		ExpiresAt:    now.Add(time.Hour),
	}, DefaultRefreshLeadWindow)

	if !ShouldRefresh(state) {
		t.Fatalf("missing access token with usable refresh token should refresh")
	}
}

func TestResolveTokenStateZeroExpiry(t *testing.T) {
	state := ResolveTokenState(time.Time{}, TokenSet{
		AccessToken:  "access",
		RefreshToken: "refresh",
	}, 0)

	if state.IsExpired || state.IsExpiringSoon {
		t.Fatalf("zero expiry carries no freshness signal: %+v", state)
	}
}
