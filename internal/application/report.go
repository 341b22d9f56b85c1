package application

import (
	"fmt"
	"time"

	"security-console/internal/domain"
)

func syncSucceeded(app domain.Application, synced int, at time.Time) domain.SyncResult {
	return domain.SyncResult{
		AppID:       app.ID,
		AppName:     app.Name,
		AppType:     app.Type,
		SyncedRoles: synced,
		Success:     true,
		Message:     fmt.Sprintf("Synced %d roles from %s", synced, app.Name),
		LastSync:    at,
	}
}

func syncFailed(app domain.Application, cause error, at time.Time) domain.SyncResult {
	return domain.SyncResult{
		AppID:    app.ID,
		AppName:  app.Name,
		AppType:  app.Type,
		Success:  false,
		Message:  fmt.Sprintf("Role sync with %s failed: %v", app.Name, cause),
		LastSync: at,
	}
}
