package store

import (
	"context"
	"errors"

	"github.com/aetherblog/ai-service/internal/store/model"
)

// ErrNotFound is returned by Get-style methods when no row matches.
var ErrNotFound = errors.New("store: not found")

// Repository is the main contract for the data layer.
type Repository interface {
	Providers() ProviderRepository
	Models() ModelRepository
	Credentials() CredentialRepository
	TaskTypes() TaskTypeRepository
	Routing() RoutingRepository
	Usage() UsageRepository

	// transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Close() error
}

type ProviderRepository interface {
	// List returns providers ordered by priority then code.
	List(ctx context.Context, enabledOnly bool) ([]model.Provider, error)
	GetByCode(ctx context.Context, code string) (*model.Provider, error)
	GetByID(ctx context.Context, id int64) (*model.Provider, error)
	Create(ctx context.Context, p *model.Provider) error
	Update(ctx context.Context, p *model.Provider) error
	// Delete removes the provider row only. Owned models cascade at the
	// storage layer; routing and credential cleanup is the caller's job,
	// inside the same transaction.
	Delete(ctx context.Context, id int64) error
}

// ListModelsParams filters List; zero values mean "no filter".
type ListModelsParams struct {
	ProviderCode string
	ModelType    string
	EnabledOnly  bool
}

type ModelRepository interface {
	List(ctx context.Context, params ListModelsParams) ([]model.Model, error)
	// Get looks a model up by its identifier string, optionally scoped to
	// one provider code.
	Get(ctx context.Context, modelID, providerCode string) (*model.Model, error)
	GetByID(ctx context.Context, id int64) (*model.Model, error)
	Create(ctx context.Context, m *model.Model) error
	Update(ctx context.Context, m *model.Model) error
	Delete(ctx context.Context, id int64) error
	// BulkInsert skips rows whose (provider_id, model_id) already exists
	// and reports how many were actually inserted.
	BulkInsert(ctx context.Context, models []model.Model) (int, error)
	// DeleteByProvider removes the provider's models, optionally only
	// those whose capabilities carry the given source marker.
	DeleteByProvider(ctx context.Context, providerID int64, source string) error
	BatchToggle(ctx context.Context, ids []int64, enabled bool) error
	UpdateSort(ctx context.Context, id int64, sort int) error
}

type CredentialRepository interface {
	// GetVisible returns the credential only when it belongs to the user
	// or is system-wide.
	GetVisible(ctx context.Context, id int64, userID *int64) (*model.Credential, error)
	// FindForUser picks the user's credential for the provider, preferring
	// the default-flagged one.
	FindForUser(ctx context.Context, providerCode string, userID int64) (*model.Credential, error)
	// FindSystem picks a null-user credential for the provider.
	FindSystem(ctx context.Context, providerCode string) (*model.Credential, error)
	ListByUser(ctx context.Context, userID *int64) ([]model.Credential, error)
	Insert(ctx context.Context, c *model.Credential) error
	// ClearDefaults drops the default flag on all credentials owned by the
	// same (user, provider) pair.
	ClearDefaults(ctx context.Context, userID *int64, providerID int64) error
	Delete(ctx context.Context, id int64, userID *int64) error
	UpdateLastUsed(ctx context.Context, id int64, lastError *string) error
	// DeleteByProvider removes all of the provider's credentials.
	DeleteByProvider(ctx context.Context, providerID int64) error
}

type TaskTypeRepository interface {
	List(ctx context.Context) ([]model.TaskType, error)
	GetByCode(ctx context.Context, code string) (*model.TaskType, error)
	Create(ctx context.Context, t *model.TaskType) error
}

type RoutingRepository interface {
	// Resolve joins routing, task type, models and providers, filtering to
	// rows owned by the user or by no user, user-specific first, and
	// returns the first enabled row. A nil result with a nil error means
	// no routing exists.
	Resolve(ctx context.Context, taskType string, userID *int64) (*model.ResolvedRouting, error)
	// GetRow fetches the raw routing row for an upsert, matching NULL user
	// to NULL.
	GetRow(ctx context.Context, userID *int64, taskTypeID int64) (*model.TaskRouting, error)
	Insert(ctx context.Context, r *model.TaskRouting) error
	Update(ctx context.Context, r *model.TaskRouting) error
	// NullModelRefs clears primary/fallback references to the model.
	NullModelRefs(ctx context.Context, modelID int64) error
	// NullProviderRefs clears credential and model references owned by the
	// provider.
	NullProviderRefs(ctx context.Context, providerID int64) error
}

type UsageRepository interface {
	Insert(ctx context.Context, l *model.UsageLog) error
	Recent(ctx context.Context, limit int) ([]model.UsageLog, error)
	Daily(ctx context.Context, days int) ([]model.DailyUsage, error)
}
