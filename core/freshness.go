package core

import (
	"strings"
	"time"
)

// DefaultRefreshLeadWindow is how far ahead of expiry a token is treated as
// unusable and proactively refreshed.
const DefaultRefreshLeadWindow = 5 * time.Minute

// TokenState captures access/refresh lifecycle flags derived from a record.
type TokenState struct {
	ExpiresAt       time.Time
	HasAccessToken  bool
	HasRefreshToken bool
	IsExpired       bool
	IsExpiringSoon  bool
}

// ResolveTokenState evaluates expiry flags for a credential record.
func ResolveTokenState(now time.Time, record TokenSet, leadWindow time.Duration) TokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if leadWindow <= 0 {
		leadWindow = DefaultRefreshLeadWindow
	}

	state := TokenState{
		HasAccessToken:  strings.TrimSpace(record.AccessToken) != "",
		HasRefreshToken: strings.TrimSpace(record.RefreshToken) != "",
	}
	if record.ExpiresAt.IsZero() {
		return state
	}
	expiresAt := record.ExpiresAt.UTC()
	state.ExpiresAt = expiresAt
	if !expiresAt.After(now) {
		state.IsExpired = true
		return state
	}
	state.IsExpiringSoon = !expiresAt.After(now.Add(leadWindow))
	return state
}

// ShouldRefresh returns true when a refresh should be attempted before the
// token is handed to a caller.
func ShouldRefresh(state TokenState) bool {
	if !state.HasRefreshToken {
		return false
	}
	if !state.HasAccessToken {
		return true
	}
	return state.IsExpired || state.IsExpiringSoon
}
