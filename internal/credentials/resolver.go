package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/aetherblog/ai-service/internal/platform/logger"
	"github.com/aetherblog/ai-service/internal/store"
	"github.com/aetherblog/ai-service/internal/store/model"
	"github.com/aetherblog/ai-service/pkg/api"
)

// EnvCredential is one entry of the environment fallback table: when no
// stored credential matches a provider code, these supply the key.
type EnvCredential struct {
	ProviderCode string
	APIKey       string
	BaseURL      string
}

// Resolved is what dispatch needs to call upstream. Source tells where the
// key came from: "explicit", "user", "system" or "env".
type Resolved struct {
	APIKey       string
	BaseURL      string
	CredentialID *int64
	ProviderCode string
	APIType      string
	Source       string
}

// Resolver stores, decrypts and resolves provider credentials.
type Resolver struct {
	repo   store.Repository
	cipher *Cipher
	env    map[string]EnvCredential
}

func NewResolver(repo store.Repository, cipher *Cipher, env []EnvCredential) *Resolver {
	table := make(map[string]EnvCredential, len(env))
	for _, e := range env {
		if e.APIKey != "" {
			table[e.ProviderCode] = e
		}
	}
	return &Resolver{repo: repo, cipher: cipher, env: table}
}

// Save encrypts and stores a credential. Marking it default clears the
// default flag on the owner's other credentials for the provider, in the
// same transaction.
func (r *Resolver) Save(ctx context.Context, userID *int64, providerCode, apiKey, baseURL string, isDefault bool) (*model.Credential, error) {
	provider, err := r.repo.Providers().GetByCode(ctx, providerCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFoundError(fmt.Sprintf("provider '%s' not found", providerCode))
		}
		return nil, err
	}

	encrypted, err := r.cipher.Encrypt(apiKey)
	if err != nil {
		return nil, api.InternalError("failed to encrypt credential", err)
	}

	cred := &model.Credential{
		ProviderID:      provider.ID,
		APIKeyEncrypted: encrypted,
		APIKeyHint:      GenerateHint(apiKey),
		IsDefault:       isDefault,
	}
	if userID != nil {
		cred.UserID = sql.NullInt64{Int64: *userID, Valid: true}
	}
	if baseURL != "" {
		cred.BaseURL = sql.NullString{String: baseURL, Valid: true}
	}

	err = r.repo.WithTx(ctx, func(repo store.Repository) error {
		if isDefault {
			if err := repo.Credentials().ClearDefaults(ctx, userID, provider.ID); err != nil {
				return err
			}
		}
		return repo.Credentials().Insert(ctx, cred)
	})
	if err != nil {
		return nil, err
	}

	cred.ProviderCode = provider.Code
	return cred, nil
}

// Get resolves the credential for a provider, walking the tiers: explicit
// id, the caller's own credential, a system credential, then the
// environment table. A nil result with nil error means nothing matched.
func (r *Resolver) Get(ctx context.Context, providerCode string, userID *int64, credentialID *int64) (*Resolved, error) {
	provider, err := r.repo.Providers().GetByCode(ctx, providerCode)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if credentialID != nil {
		cred, err := r.repo.Credentials().GetVisible(ctx, *credentialID, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, api.NotFoundError(fmt.Sprintf("credential %d not found", *credentialID))
			}
			return nil, err
		}
		return r.resolve(cred, provider, "explicit")
	}

	if userID != nil {
		cred, err := r.repo.Credentials().FindForUser(ctx, providerCode, *userID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if cred != nil {
			return r.resolve(cred, provider, "user")
		}
	}

	cred, err := r.repo.Credentials().FindSystem(ctx, providerCode)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if cred != nil {
		return r.resolve(cred, provider, "system")
	}

	if env, ok := r.env[providerCode]; ok {
		apiType := model.APITypeOpenAICompat
		var caps model.JSONMap
		if provider != nil {
			apiType = provider.APIType
			caps = provider.Capabilities
		}
		baseURL := env.BaseURL
		if baseURL == "" && provider != nil && provider.BaseURL.Valid {
			baseURL = provider.BaseURL.String
		}
		return &Resolved{
			APIKey:       env.APIKey,
			BaseURL:      NormalizeAPIBase(baseURL, apiType, caps),
			ProviderCode: providerCode,
			APIType:      apiType,
			Source:       "env",
		}, nil
	}

	return nil, nil
}

func (r *Resolver) resolve(cred *model.Credential, provider *model.Provider, source string) (*Resolved, error) {
	apiKey, err := r.cipher.Decrypt(cred.APIKeyEncrypted)
	if err != nil {
		logger.Warn("credential decrypt failed",
			zap.Int64("credential_id", cred.ID), zap.Error(err))
		return nil, api.AppError(http.StatusInternalServerError, "failed to decrypt credential", err)
	}

	apiType := model.APITypeOpenAICompat
	var caps model.JSONMap
	providerCode := cred.ProviderCode
	baseURL := ""
	if provider != nil {
		apiType = provider.APIType
		caps = provider.Capabilities
		providerCode = provider.Code
		if provider.BaseURL.Valid {
			baseURL = provider.BaseURL.String
		}
	}
	if cred.BaseURL.Valid && cred.BaseURL.String != "" {
		baseURL = cred.BaseURL.String
	}

	id := cred.ID
	return &Resolved{
		APIKey:       apiKey,
		BaseURL:      NormalizeAPIBase(baseURL, apiType, caps),
		CredentialID: &id,
		ProviderCode: providerCode,
		APIType:      apiType,
		Source:       source,
	}, nil
}

// List returns the caller's credentials without secrets.
func (r *Resolver) List(ctx context.Context, userID *int64) ([]model.Credential, error) {
	return r.repo.Credentials().ListByUser(ctx, userID)
}

func (r *Resolver) Delete(ctx context.Context, id int64, userID *int64) error {
	return r.repo.Credentials().Delete(ctx, id, userID)
}

// MarkUsed stamps last_used_at and records the upstream error, if any.
// Telemetry only, so failures are logged and dropped.
func (r *Resolver) MarkUsed(ctx context.Context, credentialID *int64, callErr error) {
	if credentialID == nil {
		return
	}
	var msg *string
	if callErr != nil {
		s := callErr.Error()
		if len(s) > 500 {
			s = s[:500]
		}
		msg = &s
	}
	if err := r.repo.Credentials().UpdateLastUsed(ctx, *credentialID, msg); err != nil {
		logger.Warn("failed to update credential usage",
			zap.Int64("credential_id", *credentialID), zap.Error(err))
	}
}
