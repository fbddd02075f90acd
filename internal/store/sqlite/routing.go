package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aetherblog/ai-service/internal/store/model"
)

type routingRepo struct {
	db DB
}

func (r *routingRepo) Resolve(ctx context.Context, taskType string, userID *int64) (*model.ResolvedRouting, error) {
	// user-specific rows first, then the system (NULL user) row
	query := `
	SELECT
		r.*,
		t.code AS task_type_code,
		t.default_temperature AS default_temperature,
		t.default_max_tokens AS default_max_tokens,
		t.prompt_template AS default_prompt,
		pm.model_id AS primary_model,
		pp.code AS primary_provider_code,
		pp.api_type AS primary_api_type,
		fm.model_id AS fallback_model,
		fp.code AS fallback_provider_code,
		fp.api_type AS fallback_api_type
	FROM ai_task_routing r
	JOIN ai_task_types t ON t.id = r.task_type_id
	LEFT JOIN ai_models pm ON pm.id = r.primary_model_id
	LEFT JOIN ai_providers pp ON pp.id = pm.provider_id
	LEFT JOIN ai_models fm ON fm.id = r.fallback_model_id
	LEFT JOIN ai_providers fp ON fp.id = fm.provider_id
	WHERE t.code = ? AND r.is_enabled = 1 AND (r.user_id = ? OR r.user_id IS NULL)
	ORDER BY r.user_id IS NULL ASC
	LIMIT 1`

	var row model.ResolvedRouting
	err := r.db.GetContext(ctx, &row, query, taskType, userIDValue(userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *routingRepo) GetRow(ctx context.Context, userID *int64, taskTypeID int64) (*model.TaskRouting, error) {
	var row model.TaskRouting
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM ai_task_routing WHERE user_id IS ? AND task_type_id = ?`,
		userIDValue(userID), taskTypeID)
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (r *routingRepo) Insert(ctx context.Context, row *model.TaskRouting) error {
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now

	query := `
	INSERT INTO ai_task_routing (user_id, task_type_id, primary_model_id, fallback_model_id, credential_id, config_override, prompt_template, is_enabled, created_at, updated_at)
	VALUES (:user_id, :task_type_id, :primary_model_id, :fallback_model_id, :credential_id, :config_override, :prompt_template, :is_enabled, :created_at, :updated_at)`
	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return err
	}
	row.ID, err = res.LastInsertId()
	return err
}

func (r *routingRepo) Update(ctx context.Context, row *model.TaskRouting) error {
	row.UpdatedAt = time.Now().UTC()

	query := `
	UPDATE ai_task_routing SET
		primary_model_id = :primary_model_id, fallback_model_id = :fallback_model_id,
		credential_id = :credential_id, config_override = :config_override,
		prompt_template = :prompt_template, is_enabled = :is_enabled, updated_at = :updated_at
	WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, row)
	return err
}

func (r *routingRepo) NullModelRefs(ctx context.Context, modelID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE ai_task_routing SET primary_model_id = NULL WHERE primary_model_id = ?`, modelID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE ai_task_routing SET fallback_model_id = NULL WHERE fallback_model_id = ?`, modelID)
	return err
}

func (r *routingRepo) NullProviderRefs(ctx context.Context, providerID int64) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE ai_task_routing SET credential_id = NULL
		WHERE credential_id IN (SELECT id FROM ai_credentials WHERE provider_id = ?)`, providerID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `
		UPDATE ai_task_routing SET primary_model_id = NULL
		WHERE primary_model_id IN (SELECT id FROM ai_models WHERE provider_id = ?)`, providerID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE ai_task_routing SET fallback_model_id = NULL
		WHERE fallback_model_id IN (SELECT id FROM ai_models WHERE provider_id = ?)`, providerID)
	return err
}
