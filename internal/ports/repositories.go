package ports

import (
	"context"
	"time"

	"security-console/internal/domain"
)

type ApplicationRepository interface {
	Create(ctx context.Context, app domain.Application) error
	Update(ctx context.Context, app domain.Application) error
	GetByID(ctx context.Context, appID string) (domain.Application, error)
	List(ctx context.Context) ([]domain.Application, error)
	SetLastSync(ctx context.Context, appID string, at time.Time) error
}

type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) error
	// UpsertSynced writes an externally sourced role keyed by (AppType,
	// ExternalID) as one atomic store operation. The stored ID and CreatedAt
	// of an existing record are kept.
	UpsertSynced(ctx context.Context, role domain.Role) (domain.UpsertOutcome, error)
	List(ctx context.Context) ([]domain.Role, error)
}

type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	Update(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, userID string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}
