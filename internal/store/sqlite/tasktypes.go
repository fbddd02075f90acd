package sqlite

import (
	"context"
	"time"

	"github.com/aetherblog/ai-service/internal/store/model"
)

type taskTypeRepo struct {
	db DB
}

func (r *taskTypeRepo) List(ctx context.Context) ([]model.TaskType, error) {
	types := []model.TaskType{}
	err := r.db.SelectContext(ctx, &types, `SELECT * FROM ai_task_types ORDER BY code ASC`)
	return types, err
}

func (r *taskTypeRepo) GetByCode(ctx context.Context, code string) (*model.TaskType, error) {
	var t model.TaskType
	if err := r.db.GetContext(ctx, &t, `SELECT * FROM ai_task_types WHERE code = ?`, code); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *taskTypeRepo) Create(ctx context.Context, t *model.TaskType) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
	INSERT INTO ai_task_types (code, name, default_model, default_temperature, default_max_tokens, prompt_template, created_at, updated_at)
	VALUES (:code, :name, :default_model, :default_temperature, :default_max_tokens, :prompt_template, :created_at, :updated_at)`
	res, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}
