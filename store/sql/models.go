package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/estait/crmbridge/core"
)

// tokenRecord is one persisted CRM connection. Token columns hold envelope
// ciphertext; expiry and scopes stay readable for freshness queries.
type tokenRecord struct {
	bun.BaseModel `bun:"table:crm_connections,alias:cc"`

	ID           string    `bun:"id,pk"`
	UserID       string    `bun:"user_id,notnull"`
	ProviderID   string    `bun:"provider_id,notnull"`
	AccessToken  string    `bun:"access_token,notnull"`
	RefreshToken string    `bun:"refresh_token,notnull"`
	ExpiresAt    time.Time `bun:"expires_at,nullzero"`
	Scopes       []string  `bun:"scopes,type:jsonb"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *tokenRecord) toDomain() core.StoredTokenSet {
	if r == nil {
		return core.StoredTokenSet{}
	}
	return core.StoredTokenSet{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    r.ExpiresAt,
		Scopes:       append([]string(nil), r.Scopes...),
	}
}
