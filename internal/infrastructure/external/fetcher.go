// Package external talks to the security products registered in the console.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"security-console/internal/domain"
	"security-console/internal/ports"
)

const (
	maxBodyBytes = 10 << 20
	maxPages     = 50
)

type HTTPFetcher struct {
	client *http.Client
	logger ports.Logger
}

func NewHTTPFetcher(client *http.Client, logger ports.Logger) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, logger: logger}
}

// FetchRoles reads the role listing at capability.RoleEndpoint. Every failure
// is a *FetchError.
func (f *HTTPFetcher) FetchRoles(ctx context.Context, baseURL string, capability domain.Capability, creds ports.Credentials) ([]domain.RemoteRole, error) {
	roles, err := f.fetchRoles(ctx, baseURL, capability, creds)
	if err != nil {
		kind, _ := KindOf(err)
		f.logger.Debug(ctx, "remote role fetch failed", "app_type", string(capability.Type), "kind", string(kind))
		return nil, err
	}
	f.logger.Debug(ctx, "fetched remote roles", "app_type", string(capability.Type), "count", len(roles))
	return roles, nil
}

func (f *HTTPFetcher) fetchRoles(ctx context.Context, baseURL string, capability domain.Capability, creds ports.Credentials) ([]domain.RemoteRole, error) {
	if baseURL == "" {
		return nil, &FetchError{Kind: KindUnreachable, Err: fmt.Errorf("%s application has no address", capability.Type)}
	}
	auth, err := f.authorizer(ctx, baseURL, capability, creds)
	if err != nil {
		return nil, err
	}

	next := strings.TrimRight(baseURL, "/") + capability.RoleEndpoint
	var roles []domain.RemoteRole
	for page := 0; next != "" && page < maxPages; page++ {
		body, err := f.get(ctx, next, auth)
		if err != nil {
			return nil, err
		}
		batch, more, err := decodeRoles(capability.ResponseShape, body)
		if err != nil {
			return nil, err
		}
		roles = append(roles, batch...)
		next, err = sameOrigin(baseURL, more)
		if err != nil {
			return nil, err
		}
	}
	if next != "" {
		return nil, malformed("role listing exceeds %d pages", maxPages)
	}
	return roles, nil
}

// authorizer returns the function that decorates each role request.
func (f *HTTPFetcher) authorizer(ctx context.Context, baseURL string, capability domain.Capability, creds ports.Credentials) (func(*http.Request), error) {
	switch creds.Style {
	case domain.AuthBasic:
		return func(r *http.Request) { r.SetBasicAuth(creds.Username, creds.Password) }, nil
	case domain.AuthAPIKey:
		value := creds.APIKey
		if creds.Scheme != "" {
			value = creds.Scheme + " " + creds.APIKey
		}
		return func(r *http.Request) { r.Header.Set("Authorization", value) }, nil
	case domain.AuthCustom:
		token, err := f.exchangeToken(ctx, strings.TrimRight(baseURL, "/")+capability.TokenEndpoint, creds)
		if err != nil {
			return nil, err
		}
		return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, nil
	default:
		return func(*http.Request) {}, nil
	}
}

// exchangeToken trades basic credentials for a bearer token.
func (f *HTTPFetcher) exchangeToken(ctx context.Context, endpoint string, creds ports.Credentials) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", &FetchError{Kind: KindUnreachable, Err: err}
	}
	req.SetBasicAuth(creds.Username, creds.Password)
	req.Header.Set("Accept", "application/json")
	body, err := f.do(req)
	if err != nil {
		return "", err
	}
	var payload struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", malformed("token response: %v", err)
	}
	if payload.Data.Token == "" {
		return "", malformed("token response carries no token")
	}
	return payload.Data.Token, nil
}

func (f *HTTPFetcher) get(ctx context.Context, endpoint string, auth func(*http.Request)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindUnreachable, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	auth(req)
	return f.do(req)
}

func (f *HTTPFetcher) do(req *http.Request) ([]byte, error) {
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(resp, snippet(body))
	}
	return body, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// sameOrigin resolves a pagination link and refuses to follow it off-host,
// since the credentials travel with every page.
func sameOrigin(baseURL, link string) (string, error) {
	if link == "" {
		return "", nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", malformed("base url: %v", err)
	}
	next, err := base.Parse(link)
	if err != nil {
		return "", malformed("pagination link %q: %v", link, err)
	}
	if next.Host != base.Host {
		return "", malformed("pagination link points to another host: %s", next.Host)
	}
	return next.String(), nil
}
