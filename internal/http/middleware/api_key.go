package middleware

import (
	"net/http"
	"strings"

	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/repository"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const (
	ctxWorkspace    = "workspace"
	ctxWorkspaceRPS = "workspace_rps"
)

// WorkspaceFromCtx extracts the workspace set by APIKeyMiddleware.
func WorkspaceFromCtx(c echo.Context) (*model.Workspace, bool) {
	w, ok := c.Get(ctxWorkspace).(*model.Workspace)
	return w, ok && w != nil
}

// APIKeyMiddleware authenticates requests using X-API-Key header.
// On success it stores the workspace in context and blocks suspended workspaces.
func APIKeyMiddleware(workspaces repository.WorkspacesRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			w, err := workspaces.GetByAPIKey(c.Request().Context(), key)
			if err != nil {
				log.Errorf("workspace lookup failed: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if w == nil || !w.Active() {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			c.Set(ctxWorkspace, w)
			if w.RateLimitRPS != nil {
				c.Set(ctxWorkspaceRPS, *w.RateLimitRPS)
			}
			return next(c)
		}
	}
}
