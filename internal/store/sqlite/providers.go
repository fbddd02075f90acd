package sqlite

import (
	"context"
	"time"

	"github.com/aetherblog/ai-service/internal/store/model"
)

type providerRepo struct {
	db DB
}

func (r *providerRepo) List(ctx context.Context, enabledOnly bool) ([]model.Provider, error) {
	query := `SELECT * FROM ai_providers`
	if enabledOnly {
		query += ` WHERE is_enabled = 1`
	}
	query += ` ORDER BY priority DESC, code ASC`

	providers := []model.Provider{}
	err := r.db.SelectContext(ctx, &providers, query)
	return providers, err
}

func (r *providerRepo) GetByCode(ctx context.Context, code string) (*model.Provider, error) {
	var p model.Provider
	err := r.db.GetContext(ctx, &p, `SELECT * FROM ai_providers WHERE code = ?`, code)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *providerRepo) GetByID(ctx context.Context, id int64) (*model.Provider, error) {
	var p model.Provider
	err := r.db.GetContext(ctx, &p, `SELECT * FROM ai_providers WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *providerRepo) Create(ctx context.Context, p *model.Provider) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
	INSERT INTO ai_providers (code, name, api_type, base_url, is_enabled, priority, capabilities, config_schema, created_at, updated_at)
	VALUES (:code, :name, :api_type, :base_url, :is_enabled, :priority, :capabilities, :config_schema, :created_at, :updated_at)`
	res, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (r *providerRepo) Update(ctx context.Context, p *model.Provider) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
	UPDATE ai_providers SET
		code = :code, name = :name, api_type = :api_type, base_url = :base_url,
		is_enabled = :is_enabled, priority = :priority,
		capabilities = :capabilities, config_schema = :config_schema,
		updated_at = :updated_at
	WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, p)
	return err
}

func (r *providerRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ai_providers WHERE id = ?`, id)
	return err
}
