package model

import "time"

type WorkspaceStatus string

const (
	WorkspaceActive    WorkspaceStatus = "active"
	WorkspaceSuspended WorkspaceStatus = "suspended"
)

// Workspace is an API tenant and the Settings it dispatches with.
type Workspace struct {
	ID           int64           `db:"id"`
	Name         string          `db:"name"`
	APIKey       string          `db:"api_key"`
	Status       WorkspaceStatus `db:"status"`
	RateLimitRPS *int            `db:"rate_limit_rps"`
	Settings
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (w Workspace) Active() bool { return w.Status == WorkspaceActive }
