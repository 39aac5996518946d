package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/estait/crmbridge/core"
)

// TokenStore persists credential records in a crm_connections table, one row
// per (user, provider) pair. Put is an upsert; last writer wins.
type TokenStore struct {
	db   *bun.DB
	repo repository.Repository[*tokenRecord]
}

func (s *TokenStore) Get(ctx context.Context, userID, providerID string) (core.StoredTokenSet, bool, error) {
	if s == nil || s.repo == nil {
		return core.StoredTokenSet{}, false, fmt.Errorf("sqlstore: token store is not configured")
	}
	userID, providerID, err := normalizeKey(userID, providerID)
	if err != nil {
		return core.StoredTokenSet{}, false, err
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", userID),
		repository.SelectBy("provider_id", "=", providerID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.StoredTokenSet{}, false, err
	}
	if len(records) == 0 {
		return core.StoredTokenSet{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

func (s *TokenStore) Put(ctx context.Context, userID, providerID string, record core.StoredTokenSet) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	userID, providerID, err := normalizeKey(userID, providerID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := new(tokenRecord)
		err := tx.NewSelect().
			Model(existing).
			Where("user_id = ?", userID).
			Where("provider_id = ?", providerID).
			Limit(1).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if err == nil {
			existing.AccessToken = record.AccessToken
			existing.RefreshToken = record.RefreshToken
			existing.ExpiresAt = record.ExpiresAt
			existing.Scopes = scopesJSON(record.Scopes)
			existing.UpdatedAt = now
			_, updateErr := tx.NewUpdate().
				Model(existing).
				Column("access_token", "refresh_token", "expires_at", "scopes", "updated_at").
				WherePK().
				Exec(ctx)
			return updateErr
		}

		inserted := &tokenRecord{
			ID:           uuid.New().String(),
			UserID:       userID,
			ProviderID:   providerID,
			AccessToken:  record.AccessToken,
			RefreshToken: record.RefreshToken,
			ExpiresAt:    record.ExpiresAt,
			Scopes:       scopesJSON(append([]string(nil), record.Scopes...)),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		_, createErr := s.repo.CreateTx(ctx, tx, inserted)
		return createErr
	})
}

func (s *TokenStore) Delete(ctx context.Context, userID, providerID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	userID, providerID, err := normalizeKey(userID, providerID)
	if err != nil {
		return err
	}

	_, err = s.db.NewDelete().
		Model((*tokenRecord)(nil)).
		Where("user_id = ?", userID).
		Where("provider_id = ?", providerID).
		Exec(ctx)
	return err
}

func normalizeKey(userID, providerID string) (string, string, error) {
	userID = strings.TrimSpace(userID)
	providerID = strings.TrimSpace(providerID)
	if userID == "" {
		return "", "", fmt.Errorf("sqlstore: user id is required")
	}
	if providerID == "" {
		return "", "", fmt.Errorf("sqlstore: provider id is required")
	}
	return userID, providerID, nil
}

func scopesJSON(scopes []string) []string {
	if scopes == nil {
		return []string{}
	}
	return scopes
}

var _ core.TokenStore = (*TokenStore)(nil)
