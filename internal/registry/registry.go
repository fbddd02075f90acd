package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aetherblog/ai-service/internal/store"
	"github.com/aetherblog/ai-service/internal/store/model"
	"github.com/aetherblog/ai-service/pkg/api"
)

// Registry is the provider/model catalog. Lookups by code are served from
// two in-memory caches; any mutation clears both wholesale rather than
// evicting selectively.
type Registry struct {
	repo store.Repository

	mu            sync.RWMutex
	providerCache map[string]*model.Provider
	modelCache    map[string]*model.Model
}

func New(repo store.Repository) *Registry {
	return &Registry{
		repo:          repo,
		providerCache: make(map[string]*model.Provider),
		modelCache:    make(map[string]*model.Model),
	}
}

func (r *Registry) ListProviders(ctx context.Context, enabledOnly bool) ([]model.Provider, error) {
	return r.repo.Providers().List(ctx, enabledOnly)
}

func (r *Registry) GetProvider(ctx context.Context, code string) (*model.Provider, error) {
	r.mu.RLock()
	if p, ok := r.providerCache[code]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	p, err := r.repo.Providers().GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFoundError(fmt.Sprintf("provider '%s' not found", code))
		}
		return nil, err
	}

	r.mu.Lock()
	r.providerCache[code] = p
	r.mu.Unlock()
	return p, nil
}

func (r *Registry) CreateProvider(ctx context.Context, p *model.Provider) error {
	if err := r.repo.Providers().Create(ctx, p); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *Registry) UpdateProvider(ctx context.Context, p *model.Provider) error {
	if err := r.repo.Providers().Update(ctx, p); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

// DeleteProvider removes a provider and everything hanging off it. Routing
// rows referencing its credentials or models are nulled first so they keep
// resolving (to the environment fallback) instead of dangling.
func (r *Registry) DeleteProvider(ctx context.Context, id int64) error {
	err := r.repo.WithTx(ctx, func(repo store.Repository) error {
		if err := repo.Routing().NullProviderRefs(ctx, id); err != nil {
			return err
		}
		if err := repo.Credentials().DeleteByProvider(ctx, id); err != nil {
			return err
		}
		// models cascade with the provider row
		return repo.Providers().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *Registry) ListModels(ctx context.Context, params store.ListModelsParams) ([]model.Model, error) {
	return r.repo.Models().List(ctx, params)
}

func (r *Registry) GetModel(ctx context.Context, modelID, providerCode string) (*model.Model, error) {
	key := modelID + "|" + providerCode

	r.mu.RLock()
	if m, ok := r.modelCache[key]; ok {
		r.mu.RUnlock()
		return m, nil
	}
	r.mu.RUnlock()

	m, err := r.repo.Models().Get(ctx, modelID, providerCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFoundError(fmt.Sprintf("model '%s' not found", modelID))
		}
		return nil, err
	}

	r.mu.Lock()
	r.modelCache[key] = m
	r.mu.Unlock()
	return m, nil
}

func (r *Registry) GetModelByID(ctx context.Context, id int64) (*model.Model, error) {
	m, err := r.repo.Models().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFoundError(fmt.Sprintf("model %d not found", id))
		}
		return nil, err
	}
	return m, nil
}

func (r *Registry) CreateModel(ctx context.Context, m *model.Model) error {
	if err := r.repo.Models().Create(ctx, m); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *Registry) UpdateModel(ctx context.Context, m *model.Model) error {
	if err := r.repo.Models().Update(ctx, m); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

// DeleteModel nulls routing references before removing the row.
func (r *Registry) DeleteModel(ctx context.Context, id int64) error {
	err := r.repo.WithTx(ctx, func(repo store.Repository) error {
		if err := repo.Routing().NullModelRefs(ctx, id); err != nil {
			return err
		}
		return repo.Models().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	r.invalidate()
	return nil
}

// BulkInsertModels skips duplicates and reports the number actually added.
func (r *Registry) BulkInsertModels(ctx context.Context, models []model.Model) (int, error) {
	var inserted int
	err := r.repo.WithTx(ctx, func(repo store.Repository) error {
		var err error
		inserted, err = repo.Models().BulkInsert(ctx, models)
		return err
	})
	if err != nil {
		return 0, err
	}
	r.invalidate()
	return inserted, nil
}

func (r *Registry) DeleteModelsByProvider(ctx context.Context, providerID int64, source string) error {
	if err := r.repo.Models().DeleteByProvider(ctx, providerID, source); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *Registry) BatchToggleModels(ctx context.Context, ids []int64, enabled bool) error {
	if err := r.repo.Models().BatchToggle(ctx, ids, enabled); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

// SortItem pairs a model id with its new sort hint.
type SortItem struct {
	ID   int64
	Sort int
}

func (r *Registry) UpdateModelsSort(ctx context.Context, items []SortItem) error {
	err := r.repo.WithTx(ctx, func(repo store.Repository) error {
		for _, item := range items {
			if err := repo.Models().UpdateSort(ctx, item.ID, item.Sort); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *Registry) invalidate() {
	r.mu.Lock()
	r.providerCache = make(map[string]*model.Provider)
	r.modelCache = make(map[string]*model.Model)
	r.mu.Unlock()
}
