package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/aetherblog/ai-service/internal/store/model"
)

type usageRepo struct {
	db DB
}

func (r *usageRepo) Insert(ctx context.Context, l *model.UsageLog) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO ai_usage_logs (user_id, endpoint, task_type, provider_code, model_id,
		tokens_in, tokens_out, total_tokens, latency_ms, estimated_cost,
		success, cached, error_code, request_id, created_at)
	VALUES (:user_id, :endpoint, :task_type, :provider_code, :model_id,
		:tokens_in, :tokens_out, :total_tokens, :latency_ms, :estimated_cost,
		:success, :cached, :error_code, :request_id, :created_at)`
	res, err := r.db.NamedExecContext(ctx, query, l)
	if err != nil {
		return err
	}
	l.ID, err = res.LastInsertId()
	return err
}

func (r *usageRepo) Recent(ctx context.Context, limit int) ([]model.UsageLog, error) {
	logs := []model.UsageLog{}
	err := r.db.SelectContext(ctx, &logs,
		`SELECT * FROM ai_usage_logs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	return logs, err
}

func (r *usageRepo) Daily(ctx context.Context, days int) ([]model.DailyUsage, error) {
	stats := []model.DailyUsage{}
	query := `
	SELECT date(created_at) AS day,
		COUNT(*) AS requests,
		SUM(CASE WHEN success THEN 0 ELSE 1 END) AS failures,
		SUM(CASE WHEN cached THEN 1 ELSE 0 END) AS cache_hits,
		COALESCE(SUM(total_tokens), 0) AS total_tokens,
		COALESCE(SUM(estimated_cost), 0) AS estimated_cost
	FROM ai_usage_logs
	WHERE created_at >= datetime('now', ?)
	GROUP BY date(created_at)
	ORDER BY day DESC`
	err := r.db.SelectContext(ctx, &stats, query, fmt.Sprintf("-%d days", days))
	return stats, err
}
