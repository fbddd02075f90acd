package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aetherblog/ai-service/internal/store/model"
)

type credentialRepo struct {
	db DB
}

const credentialColumns = `
	c.*, p.code AS provider_code`

func (r *credentialRepo) GetVisible(ctx context.Context, id int64, userID *int64) (*model.Credential, error) {
	// visible when owned by the caller or system-wide
	query := `
	SELECT ` + credentialColumns + `
	FROM ai_credentials c
	JOIN ai_providers p ON p.id = c.provider_id
	WHERE c.id = ? AND (c.user_id IS ? OR c.user_id IS NULL)`

	var c model.Credential
	if err := r.db.GetContext(ctx, &c, query, id, userIDValue(userID)); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *credentialRepo) FindForUser(ctx context.Context, providerCode string, userID int64) (*model.Credential, error) {
	query := `
	SELECT ` + credentialColumns + `
	FROM ai_credentials c
	JOIN ai_providers p ON p.id = c.provider_id
	WHERE p.code = ? AND c.user_id = ?
	ORDER BY c.is_default DESC, c.id ASC
	LIMIT 1`

	var c model.Credential
	if err := r.db.GetContext(ctx, &c, query, providerCode, userID); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *credentialRepo) FindSystem(ctx context.Context, providerCode string) (*model.Credential, error) {
	query := `
	SELECT ` + credentialColumns + `
	FROM ai_credentials c
	JOIN ai_providers p ON p.id = c.provider_id
	WHERE p.code = ? AND c.user_id IS NULL
	ORDER BY c.is_default DESC, c.id ASC
	LIMIT 1`

	var c model.Credential
	if err := r.db.GetContext(ctx, &c, query, providerCode); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *credentialRepo) ListByUser(ctx context.Context, userID *int64) ([]model.Credential, error) {
	query := `
	SELECT ` + credentialColumns + `
	FROM ai_credentials c
	JOIN ai_providers p ON p.id = c.provider_id
	WHERE c.user_id IS ?
	ORDER BY p.code ASC, c.is_default DESC, c.id ASC`

	creds := []model.Credential{}
	err := r.db.SelectContext(ctx, &creds, query, userIDValue(userID))
	return creds, err
}

func (r *credentialRepo) Insert(ctx context.Context, c *model.Credential) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
	INSERT INTO ai_credentials (user_id, provider_id, api_key_encrypted, api_key_hint, base_url, is_default, created_at, updated_at)
	VALUES (:user_id, :provider_id, :api_key_encrypted, :api_key_hint, :base_url, :is_default, :created_at, :updated_at)`
	res, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (r *credentialRepo) ClearDefaults(ctx context.Context, userID *int64, providerID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE ai_credentials SET is_default = 0, updated_at = ? WHERE provider_id = ? AND user_id IS ?`,
		time.Now().UTC(), providerID, userIDValue(userID))
	return err
}

func (r *credentialRepo) Delete(ctx context.Context, id int64, userID *int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM ai_credentials WHERE id = ? AND user_id IS ?`,
		id, userIDValue(userID))
	return err
}

func (r *credentialRepo) UpdateLastUsed(ctx context.Context, id int64, lastError *string) error {
	var lastErr sql.NullString
	if lastError != nil {
		lastErr = sql.NullString{String: *lastError, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE ai_credentials SET last_used_at = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), lastErr, time.Now().UTC(), id)
	return err
}

func (r *credentialRepo) DeleteByProvider(ctx context.Context, providerID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ai_credentials WHERE provider_id = ?`, providerID)
	return err
}

// userIDValue turns the optional user into a driver value so that "IS ?"
// matches NULL when no user is set.
func userIDValue(userID *int64) interface{} {
	if userID == nil {
		return nil
	}
	return *userID
}
