package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aetherblog/ai-service/internal/store"
	"github.com/aetherblog/ai-service/internal/store/model"
)

type modelRepo struct {
	db DB
}

const modelColumns = `
	m.*, p.code AS provider_code, p.api_type AS provider_api_type`

func (r *modelRepo) List(ctx context.Context, params store.ListModelsParams) ([]model.Model, error) {
	query := `
	SELECT ` + modelColumns + `
	FROM ai_models m
	JOIN ai_providers p ON p.id = m.provider_id
	WHERE 1 = 1`
	args := []interface{}{}

	if params.ProviderCode != "" {
		query += ` AND p.code = ?`
		args = append(args, params.ProviderCode)
	}
	if params.ModelType != "" {
		query += ` AND m.model_type = ?`
		args = append(args, params.ModelType)
	}
	if params.EnabledOnly {
		query += ` AND m.is_enabled = 1 AND p.is_enabled = 1`
	}

	// sort hint first, unsorted models sink to the bottom
	query += `
	ORDER BY COALESCE(json_extract(m.capabilities, '$.sort'), 999999) ASC,
		m.is_enabled DESC, p.priority DESC, m.model_id ASC`

	models := []model.Model{}
	err := r.db.SelectContext(ctx, &models, query, args...)
	return models, err
}

func (r *modelRepo) Get(ctx context.Context, modelID, providerCode string) (*model.Model, error) {
	query := `
	SELECT ` + modelColumns + `
	FROM ai_models m
	JOIN ai_providers p ON p.id = m.provider_id
	WHERE m.model_id = ?`
	args := []interface{}{modelID}

	if providerCode != "" {
		query += ` AND p.code = ?`
		args = append(args, providerCode)
	}
	query += ` ORDER BY m.is_enabled DESC, p.priority DESC LIMIT 1`

	var m model.Model
	if err := r.db.GetContext(ctx, &m, query, args...); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *modelRepo) GetByID(ctx context.Context, id int64) (*model.Model, error) {
	query := `
	SELECT ` + modelColumns + `
	FROM ai_models m
	JOIN ai_providers p ON p.id = m.provider_id
	WHERE m.id = ?`

	var m model.Model
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *modelRepo) Create(ctx context.Context, m *model.Model) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	query := `
	INSERT INTO ai_models (provider_id, model_id, name, model_type, context_window, max_tokens,
		input_cost_per_1k, output_cost_per_1k, capabilities, is_enabled, created_at, updated_at)
	VALUES (:provider_id, :model_id, :name, :model_type, :context_window, :max_tokens,
		:input_cost_per_1k, :output_cost_per_1k, :capabilities, :is_enabled, :created_at, :updated_at)`
	res, err := r.db.NamedExecContext(ctx, query, m)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (r *modelRepo) Update(ctx context.Context, m *model.Model) error {
	m.UpdatedAt = time.Now().UTC()

	query := `
	UPDATE ai_models SET
		model_id = :model_id, name = :name, model_type = :model_type,
		context_window = :context_window, max_tokens = :max_tokens,
		input_cost_per_1k = :input_cost_per_1k, output_cost_per_1k = :output_cost_per_1k,
		capabilities = :capabilities, is_enabled = :is_enabled, updated_at = :updated_at
	WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, m)
	return err
}

func (r *modelRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ai_models WHERE id = ?`, id)
	return err
}

func (r *modelRepo) BulkInsert(ctx context.Context, models []model.Model) (int, error) {
	inserted := 0
	for i := range models {
		m := &models[i]
		now := time.Now().UTC()
		m.CreatedAt = now
		m.UpdatedAt = now

		query := `
		INSERT INTO ai_models (provider_id, model_id, name, model_type, context_window, max_tokens,
			input_cost_per_1k, output_cost_per_1k, capabilities, is_enabled, created_at, updated_at)
		VALUES (:provider_id, :model_id, :name, :model_type, :context_window, :max_tokens,
			:input_cost_per_1k, :output_cost_per_1k, :capabilities, :is_enabled, :created_at, :updated_at)
		ON CONFLICT (provider_id, model_id) DO NOTHING`
		res, err := r.db.NamedExecContext(ctx, query, m)
		if err != nil {
			return inserted, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += int(n)
	}
	return inserted, nil
}

func (r *modelRepo) DeleteByProvider(ctx context.Context, providerID int64, source string) error {
	if source == "" {
		_, err := r.db.ExecContext(ctx, `DELETE FROM ai_models WHERE provider_id = ?`, providerID)
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM ai_models WHERE provider_id = ? AND json_extract(capabilities, '$.source') = ?`,
		providerID, source)
	return err
}

func (r *modelRepo) BatchToggle(ctx context.Context, ids []int64, enabled bool) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(
		`UPDATE ai_models SET is_enabled = ?, updated_at = ? WHERE id IN (?)`,
		enabled, time.Now().UTC(), ids)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *modelRepo) UpdateSort(ctx context.Context, id int64, sort int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE ai_models SET capabilities = json_set(COALESCE(capabilities, '{}'), '$.sort', ?), updated_at = ? WHERE id = ?`,
		sort, time.Now().UTC(), id)
	return err
}
