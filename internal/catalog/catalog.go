// Package catalog holds the capability registry of supported external
// security systems. The registry is built once at startup and never mutated.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
	"security-console/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Registry struct {
	entries map[domain.AppType]domain.Capability
}

// Default parses the embedded catalog.
func Default() (*Registry, error) {
	return Parse(defaultCatalog)
}

// MustDefault is Default for process startup. The catalog is compiled in, so
// a parse failure is a build defect.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Parse builds a Registry from YAML. Every AppType must be described exactly
// once and every sync-capable entry needs an endpoint and a response shape.
func Parse(raw []byte) (*Registry, error) {
	var list []domain.Capability
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	entries := make(map[domain.AppType]domain.Capability, len(list))
	for _, c := range list {
		if _, err := domain.ParseAppType(string(c.Type)); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		if _, dup := entries[c.Type]; dup {
			return nil, fmt.Errorf("catalog: duplicate entry for %s", c.Type)
		}
		switch c.AuthType {
		case domain.AuthNone, domain.AuthBasic, domain.AuthAPIKey:
		case domain.AuthCustom:
			if c.TokenEndpoint == "" {
				return nil, fmt.Errorf("catalog: %s uses custom auth without token_endpoint", c.Type)
			}
		default:
			return nil, fmt.Errorf("catalog: %s has unknown auth_type %q", c.Type, c.AuthType)
		}
		if c.SupportsRoleSync && (c.RoleEndpoint == "" || c.ResponseShape == "") {
			return nil, fmt.Errorf("catalog: %s supports role sync without role_endpoint/response_shape", c.Type)
		}
		entries[c.Type] = c
	}
	for _, t := range domain.AppTypes {
		if _, ok := entries[t]; !ok {
			return nil, fmt.Errorf("catalog: missing entry for %s", t)
		}
	}
	return &Registry{entries: entries}, nil
}

func (r *Registry) Describe(t domain.AppType) (domain.Capability, bool) {
	c, ok := r.entries[t]
	return c, ok
}

func (r *Registry) SupportsRoleSync(t domain.AppType) bool {
	c, ok := r.entries[t]
	return ok && c.SupportsRoleSync
}

// All returns the descriptors keyed by type name, the shape the templates
// endpoint serves.
func (r *Registry) All() map[string]domain.Capability {
	out := make(map[string]domain.Capability, len(r.entries))
	for t, c := range r.entries {
		out[string(t)] = c
	}
	return out
}
