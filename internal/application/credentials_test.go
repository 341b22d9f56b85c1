package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"security-console/internal/catalog"
	"security-console/internal/domain"
)

func capabilityOf(t *testing.T, typ domain.AppType) domain.Capability {
	t.Helper()
	c, ok := catalog.MustDefault().Describe(typ)
	if !ok {
		t.Fatalf("no capability for %s", typ)
	}
	return c
}

func TestCredentialResolver_DecryptsAPIKey(t *testing.T) {
	r := NewCredentialResolver(prefixCipher{}, nil)
	app := domain.Application{Type: domain.AppTypeDefectDojo, APIKey: "enc:abc123"}

	creds := r.Resolve(app, capabilityOf(t, domain.AppTypeDefectDojo))

	assert.Equal(t, domain.AuthAPIKey, creds.Style)
	assert.Equal(t, "Token", creds.Scheme)
	assert.Equal(t, "abc123", creds.APIKey)
}

func TestCredentialResolver_UndecryptableKeyPassesThrough(t *testing.T) {
	r := NewCredentialResolver(prefixCipher{}, nil)
	app := domain.Application{Type: domain.AppTypeDefectDojo, APIKey: "legacy-plaintext-key"}

	creds := r.Resolve(app, capabilityOf(t, domain.AppTypeDefectDojo))

	assert.Equal(t, "legacy-plaintext-key", creds.APIKey)
}

func TestCredentialResolver_FallsBackToDefaultKey(t *testing.T) {
	r := NewCredentialResolver(prefixCipher{}, map[domain.AppType]string{
		domain.AppTypeDefectDojo: "shared-integration-key",
		domain.AppTypeMISP:       "",
	})

	dojo := r.Resolve(domain.Application{Type: domain.AppTypeDefectDojo}, capabilityOf(t, domain.AppTypeDefectDojo))
	assert.Equal(t, "shared-integration-key", dojo.APIKey)

	misp := r.Resolve(domain.Application{Type: domain.AppTypeMISP}, capabilityOf(t, domain.AppTypeMISP))
	assert.Empty(t, misp.APIKey)
}

func TestCredentialResolver_BasicStylePairsUsernameAndPassword(t *testing.T) {
	r := NewCredentialResolver(prefixCipher{}, nil)
	app := domain.Application{
		Type:     domain.AppTypeOpenSearch,
		Username: "admin",
		Password: "enc:hunter2",
		APIKey:   "enc:ignored",
	}

	creds := r.Resolve(app, capabilityOf(t, domain.AppTypeOpenSearch))

	assert.Equal(t, domain.AuthBasic, creds.Style)
	assert.Equal(t, "admin", creds.Username)
	assert.Equal(t, "hunter2", creds.Password)
	assert.Empty(t, creds.APIKey)
}

func TestCredentialResolver_NoneStyle(t *testing.T) {
	r := NewCredentialResolver(prefixCipher{}, nil)
	creds := r.Resolve(domain.Application{Type: domain.AppTypeSuricata, APIKey: "enc:x"}, capabilityOf(t, domain.AppTypeSuricata))

	assert.Equal(t, domain.AuthNone, creds.Style)
	assert.Empty(t, creds.APIKey)
	assert.Empty(t, creds.Password)
}
