package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE workspaces (
	id                       INTEGER PRIMARY KEY AUTOINCREMENT,
	name                     TEXT NOT NULL,
	api_key                  TEXT NOT NULL UNIQUE,
	status                   TEXT NOT NULL,
	rate_limit_rps           INTEGER NULL,
	space_id                 TEXT NOT NULL,
	source_id                TEXT NOT NULL,
	twilio_account_sid       TEXT NOT NULL DEFAULT '',
	twilio_api_key_sid       TEXT NOT NULL DEFAULT '',
	twilio_api_key_secret    TEXT NOT NULL DEFAULT '',
	twilio_hostname          TEXT NOT NULL DEFAULT '',
	sendgrid_api_key         TEXT NOT NULL DEFAULT '',
	profile_api_environment  TEXT NOT NULL DEFAULT '',
	profile_api_access_token TEXT NOT NULL DEFAULT '',
	region                   TEXT NOT NULL DEFAULT '',
	webhook_url              TEXT NOT NULL DEFAULT '',
	connection_overrides     TEXT NOT NULL DEFAULT '',
	created_at               DATETIME NOT NULL,
	updated_at               DATETIME NOT NULL
)`

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	db.SetMaxOpenConns(1)
	_, err = db.Exec(sqliteSchema)
	require.NoError(t, err)
	return db
}

func TestWorkspacesUpsertAndGet(t *testing.T) {
	repo := NewWorkspacesRepository(testDB(t))
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rps := 20
	w := model.Workspace{
		Name:         "Acme",
		APIKey:       "key-1",
		Status:       model.WorkspaceActive,
		RateLimitRPS: &rps,
		Settings: model.Settings{
			SpaceID:          "spa_1",
			SourceID:         "src_1",
			TwilioAccountSID: "AC1",
			Region:           "eu-west-1",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Upsert(ctx, w))

	got, err := repo.GetByAPIKey(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Active())
	assert.Equal(t, "spa_1", got.SpaceID)
	assert.Equal(t, "eu-west-1", got.Region)
	require.NotNil(t, got.RateLimitRPS)
	assert.Equal(t, 20, *got.RateLimitRPS)

	w.Status = model.WorkspaceSuspended
	w.RateLimitRPS = nil
	require.NoError(t, repo.Upsert(ctx, w))

	got, err = repo.GetByAPIKey(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, got.Active())
	assert.Nil(t, got.RateLimitRPS)
}

func TestWorkspacesGetUnknownKey(t *testing.T) {
	repo := NewWorkspacesRepository(testDB(t))

	got, err := repo.GetByAPIKey(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}
