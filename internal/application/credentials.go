package application

import (
	"security-console/internal/domain"
	"security-console/internal/ports"
)

// CredentialResolver turns an application's stored secrets into the
// material for an outbound call. It has no side effects and never fails.
type CredentialResolver struct {
	cipher   ports.Cipher
	defaults map[domain.AppType]string
}

// NewCredentialResolver takes process-wide fallback API keys per type, used
// when an application carries no key of its own.
func NewCredentialResolver(cipher ports.Cipher, defaults map[domain.AppType]string) *CredentialResolver {
	d := make(map[domain.AppType]string, len(defaults))
	for t, k := range defaults {
		if k != "" {
			d[t] = k
		}
	}
	return &CredentialResolver{cipher: cipher, defaults: d}
}

func (r *CredentialResolver) Resolve(app domain.Application, capability domain.Capability) ports.Credentials {
	creds := ports.Credentials{Style: capability.AuthType}
	switch capability.AuthType {
	case domain.AuthBasic, domain.AuthCustom:
		creds.Username = app.Username
		creds.Password = r.decryptOrPassthrough(app.Password)
	case domain.AuthAPIKey:
		creds.Scheme = capability.APIKeyScheme
		creds.APIKey = r.decryptOrPassthrough(app.APIKey)
		if creds.APIKey == "" {
			creds.APIKey = r.defaults[app.Type]
		}
	}
	return creds
}

// decryptOrPassthrough treats a value that does not decrypt as plaintext.
// Records written before encryption was enabled hold raw secrets.
func (r *CredentialResolver) decryptOrPassthrough(stored string) string {
	if stored == "" || r.cipher == nil {
		return stored
	}
	plain, err := r.cipher.Decrypt(stored)
	if err != nil {
		return stored
	}
	return plain
}
