package routing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aetherblog/ai-service/internal/store"
	"github.com/aetherblog/ai-service/internal/store/model"
	"github.com/aetherblog/ai-service/pkg/api"
)

// defaultTemperature applies when neither the routing override nor the
// task type supplies one.
const defaultTemperature = 0.7

// Config is the resolved routing for one request: which model to call,
// with which credential, prompt and generation parameters.
type Config struct {
	TaskType     string
	Model        string
	ProviderCode string
	APIType      string

	CredentialID *int64

	Temperature    float64
	MaxTokens      *int
	PromptTemplate string

	FallbackModel        string
	FallbackProviderCode string
	FallbackAPIType      string
}

// Router resolves (task type, user) pairs against the routing table.
type Router struct {
	repo store.Repository
}

func NewRouter(repo store.Repository) *Router {
	return &Router{repo: repo}
}

// Resolve returns the effective routing for the task, preferring the
// user's row over the system row. A nil Config with nil error means no
// routing exists and the caller should use the environment fallback.
func (r *Router) Resolve(ctx context.Context, taskType string, userID *int64) (*Config, error) {
	row, err := r.repo.Routing().Resolve(ctx, taskType, userID)
	if err != nil {
		return nil, err
	}
	if row == nil || !row.PrimaryModel.Valid || row.PrimaryModel.String == "" {
		return nil, nil
	}

	cfg := &Config{
		TaskType:     row.TaskTypeCode,
		Model:        row.PrimaryModel.String,
		ProviderCode: row.PrimaryProviderCode.String,
		APIType:      row.PrimaryAPIType.String,
		Temperature:  defaultTemperature,
	}

	if row.CredentialID.Valid {
		id := row.CredentialID.Int64
		cfg.CredentialID = &id
	}

	if t, ok := row.ConfigOverride.Float("temperature"); ok {
		cfg.Temperature = t
	} else if row.DefaultTemperature.Valid {
		cfg.Temperature = row.DefaultTemperature.Float64
	}

	if n, ok := row.ConfigOverride.Int("max_tokens"); ok {
		cfg.MaxTokens = &n
	} else if row.DefaultMaxTokens.Valid {
		n := int(row.DefaultMaxTokens.Int64)
		cfg.MaxTokens = &n
	}

	switch {
	case row.PromptTemplate.Valid && row.PromptTemplate.String != "":
		cfg.PromptTemplate = row.PromptTemplate.String
	case row.DefaultPrompt.Valid:
		cfg.PromptTemplate = row.DefaultPrompt.String
	}

	if row.FallbackModel.Valid && row.FallbackModel.String != "" {
		cfg.FallbackModel = row.FallbackModel.String
		cfg.FallbackProviderCode = row.FallbackProviderCode.String
		cfg.FallbackAPIType = row.FallbackAPIType.String
	}

	return cfg, nil
}

// ListTaskTypes returns all configured logical tasks.
func (r *Router) ListTaskTypes(ctx context.Context) ([]model.TaskType, error) {
	return r.repo.TaskTypes().List(ctx)
}

// UpdateParams is a partial routing update. Each Update* flag records
// whether the caller supplied the matching field at all, so an explicit
// null overwrites while an absent field is left alone.
type UpdateParams struct {
	TaskType string
	UserID   *int64

	PrimaryModelID  *int64
	UpdatePrimary   bool
	FallbackModelID *int64
	UpdateFallback  bool
	CredentialID    *int64
	UpdateCred      bool
	ConfigOverride  model.JSONMap
	UpdateConfig    bool
	PromptTemplate  *string
	UpdatePrompt    bool
	IsEnabled       *bool
}

// Update upserts the routing row keyed on (user, task type).
func (r *Router) Update(ctx context.Context, params UpdateParams) (*model.TaskRouting, error) {
	taskType, err := r.repo.TaskTypes().GetByCode(ctx, params.TaskType)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.NotFoundError(fmt.Sprintf("task type '%s' not found", params.TaskType))
		}
		return nil, err
	}

	var result *model.TaskRouting
	err = r.repo.WithTx(ctx, func(repo store.Repository) error {
		row, err := repo.Routing().GetRow(ctx, params.UserID, taskType.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if row == nil {
			row = &model.TaskRouting{TaskTypeID: taskType.ID, IsEnabled: true}
			if params.UserID != nil {
				row.UserID = sql.NullInt64{Int64: *params.UserID, Valid: true}
			}
			applyUpdate(row, params)
			result = row
			return repo.Routing().Insert(ctx, row)
		}

		applyUpdate(row, params)
		result = row
		return repo.Routing().Update(ctx, row)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func applyUpdate(row *model.TaskRouting, params UpdateParams) {
	if params.UpdatePrimary {
		row.PrimaryModelID = nullInt64(params.PrimaryModelID)
	}
	if params.UpdateFallback {
		row.FallbackModelID = nullInt64(params.FallbackModelID)
	}
	if params.UpdateCred {
		row.CredentialID = nullInt64(params.CredentialID)
	}
	if params.UpdateConfig {
		row.ConfigOverride = params.ConfigOverride
	}
	if params.UpdatePrompt {
		if params.PromptTemplate == nil {
			row.PromptTemplate = sql.NullString{}
		} else {
			row.PromptTemplate = sql.NullString{String: *params.PromptTemplate, Valid: true}
		}
	}
	if params.IsEnabled != nil {
		row.IsEnabled = *params.IsEnabled
	}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
