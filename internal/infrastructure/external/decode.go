package external

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"security-console/internal/domain"
)

// decodeRoles normalizes one page of a role listing. more is the next page
// link for paginated shapes, empty otherwise.
func decodeRoles(shape domain.ResponseShape, body []byte) (roles []domain.RemoteRole, more string, err error) {
	switch shape {
	case domain.ShapeResultsEnvelope:
		return decodeResultsEnvelope(body)
	case domain.ShapeNamedMap:
		roles, err = decodeNamedMap(body)
	case domain.ShapeAffectedItems:
		roles, err = decodeAffectedItems(body)
	case domain.ShapeWrappedRoleList:
		roles, err = decodeWrappedRoleList(body)
	default:
		err = malformed("no decoder for response shape %q", shape)
	}
	return roles, "", err
}

func unmarshal(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return malformed("decode body: %v", err)
	}
	return nil
}

// idString accepts JSON strings and numbers as identifiers.
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

func stringField(obj map[string]any, k string) string {
	s, _ := obj[k].(string)
	return s
}

// remoteRole builds a role from a decoded object. An identifier is
// mandatory; a missing name falls back to the identifier.
func remoteRole(obj map[string]any, idKey string) (domain.RemoteRole, error) {
	id := idString(obj[idKey])
	if id == "" {
		return domain.RemoteRole{}, malformed("role without %q: %v", idKey, obj)
	}
	name := strings.TrimSpace(stringField(obj, "name"))
	if name == "" {
		name = id
	}
	return domain.RemoteRole{
		ExternalID:  id,
		Name:        name,
		Description: strings.TrimSpace(stringField(obj, "description")),
		Metadata:    obj,
	}, nil
}

func decodeResultsEnvelope(body []byte) ([]domain.RemoteRole, string, error) {
	var payload struct {
		Results []map[string]any `json:"results"`
		Next    *string          `json:"next"`
	}
	if err := unmarshal(body, &payload); err != nil {
		return nil, "", err
	}
	if payload.Results == nil {
		return nil, "", malformed("missing results array")
	}
	roles := make([]domain.RemoteRole, 0, len(payload.Results))
	for _, obj := range payload.Results {
		r, err := remoteRole(obj, "id")
		if err != nil {
			return nil, "", err
		}
		roles = append(roles, r)
	}
	next := ""
	if payload.Next != nil {
		next = *payload.Next
	}
	return roles, next, nil
}

// decodeNamedMap handles listings keyed by role name. The name is the
// identifier; cluster privileges become permissions.
func decodeNamedMap(body []byte) ([]domain.RemoteRole, error) {
	var payload map[string]map[string]any
	if err := unmarshal(body, &payload); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(payload))
	for name := range payload {
		names = append(names, name)
	}
	sort.Strings(names)
	roles := make([]domain.RemoteRole, 0, len(names))
	for _, name := range names {
		obj := payload[name]
		if obj == nil {
			obj = map[string]any{}
		}
		perms := stringList(obj["cluster_permissions"])
		if len(perms) == 0 {
			perms = stringList(obj["cluster"])
		}
		roles = append(roles, domain.RemoteRole{
			ExternalID:  name,
			Name:        name,
			Description: strings.TrimSpace(stringField(obj, "description")),
			Permissions: perms,
			Metadata:    obj,
		})
	}
	return roles, nil
}

func decodeAffectedItems(body []byte) ([]domain.RemoteRole, error) {
	var payload struct {
		Data *struct {
			AffectedItems []map[string]any `json:"affected_items"`
		} `json:"data"`
	}
	if err := unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.Data == nil || payload.Data.AffectedItems == nil {
		return nil, malformed("missing data.affected_items")
	}
	roles := make([]domain.RemoteRole, 0, len(payload.Data.AffectedItems))
	for _, obj := range payload.Data.AffectedItems {
		r, err := remoteRole(obj, "id")
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// decodeWrappedRoleList handles [{"Role": {...}}] listings where each
// enabled perm_* flag is a permission.
func decodeWrappedRoleList(body []byte) ([]domain.RemoteRole, error) {
	var payload []struct {
		Role map[string]any `json:"Role"`
	}
	if err := unmarshal(body, &payload); err != nil {
		return nil, err
	}
	roles := make([]domain.RemoteRole, 0, len(payload))
	for i, entry := range payload {
		if entry.Role == nil {
			return nil, malformed("entry %d has no Role object", i)
		}
		r, err := remoteRole(entry.Role, "id")
		if err != nil {
			return nil, err
		}
		r.Permissions = enabledFlags(entry.Role, "perm_")
		roles = append(roles, r)
	}
	return roles, nil
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func enabledFlags(obj map[string]any, prefix string) []string {
	var out []string
	for k, v := range obj {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if enabled, ok := v.(bool); ok && enabled {
			out = append(out, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(out)
	return out
}
