package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmoiron/sqlx"
)

type WorkspacesRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Workspace, error)
	Upsert(ctx context.Context, w model.Workspace) error
}

type WorkspacesRepositoryImpl struct {
	db *sqlx.DB
}

func NewWorkspacesRepository(db *sqlx.DB) *WorkspacesRepositoryImpl {
	return &WorkspacesRepositoryImpl{db: db}
}

var _ WorkspacesRepository = (*WorkspacesRepositoryImpl)(nil)

const workspaceColumns = `
	id, name, api_key, status, rate_limit_rps,
	space_id, source_id, twilio_account_sid, twilio_api_key_sid, twilio_api_key_secret,
	twilio_hostname, sendgrid_api_key, profile_api_environment, profile_api_access_token,
	region, webhook_url, connection_overrides, created_at, updated_at`

// GetByAPIKey returns nil, nil when no workspace owns apiKey.
func (r *WorkspacesRepositoryImpl) GetByAPIKey(ctx context.Context, apiKey string) (*model.Workspace, error) {
	var w model.Workspace
	err := r.db.GetContext(ctx, &w, `SELECT `+workspaceColumns+`
		  FROM workspaces
		 WHERE api_key = ? LIMIT 1
	`, apiKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Upsert inserts w or, when its api_key exists, updates it in place.
func (r *WorkspacesRepositoryImpl) Upsert(ctx context.Context, w model.Workspace) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.GetContext(ctx, &id, `SELECT id FROM workspaces WHERE api_key = ?`, w.APIKey)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO workspaces
			    (name, api_key, status, rate_limit_rps, space_id, source_id,
			     twilio_account_sid, twilio_api_key_sid, twilio_api_key_secret, twilio_hostname,
			     sendgrid_api_key, profile_api_environment, profile_api_access_token,
			     region, webhook_url, connection_overrides, created_at, updated_at)
			VALUES
			    (:name, :api_key, :status, :rate_limit_rps, :space_id, :source_id,
			     :twilio_account_sid, :twilio_api_key_sid, :twilio_api_key_secret, :twilio_hostname,
			     :sendgrid_api_key, :profile_api_environment, :profile_api_access_token,
			     :region, :webhook_url, :connection_overrides, :created_at, :updated_at)
		`, w)
	case err == nil:
		w.ID = id
		_, err = tx.NamedExecContext(ctx, `
			UPDATE workspaces SET
			    name = :name, status = :status, rate_limit_rps = :rate_limit_rps,
			    space_id = :space_id, source_id = :source_id,
			    twilio_account_sid = :twilio_account_sid, twilio_api_key_sid = :twilio_api_key_sid,
			    twilio_api_key_secret = :twilio_api_key_secret, twilio_hostname = :twilio_hostname,
			    sendgrid_api_key = :sendgrid_api_key, profile_api_environment = :profile_api_environment,
			    profile_api_access_token = :profile_api_access_token, region = :region,
			    webhook_url = :webhook_url, connection_overrides = :connection_overrides,
			    updated_at = :updated_at
			 WHERE id = :id
		`, w)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}
