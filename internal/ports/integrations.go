package ports

import (
	"context"
	"time"

	"security-console/internal/domain"
)

// Cipher encrypts credentials at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Credentials is the authentication material for one outbound call.
// Scheme prefixes the API key in the Authorization header; empty sends the
// key as-is.
type Credentials struct {
	Style    domain.AuthStyle
	Scheme   string
	APIKey   string
	Username string
	Password string
}

// RoleFetcher performs a single authenticated read of an external system's
// role listing.
type RoleFetcher interface {
	FetchRoles(ctx context.Context, baseURL string, capability domain.Capability, creds Credentials) ([]domain.RemoteRole, error)
}

// UserProvisioner pushes a newly created local user to an external system.
type UserProvisioner interface {
	ProvisionUser(ctx context.Context, user domain.User) error
}

type SyncMetrics interface {
	ObserveSync(appType domain.AppType, outcome string, synced int, elapsed time.Duration)
}

type TokenIssuer interface {
	Issue(user domain.User) (token string, expiresAt time.Time, err error)
}

type CapabilityCatalog interface {
	Describe(t domain.AppType) (domain.Capability, bool)
	SupportsRoleSync(t domain.AppType) bool
	All() map[string]domain.Capability
}

// UserDirectory lists the accounts an external system already holds.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]domain.RemoteUser, error)
}
