package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"security-console/internal/domain"
)

const defectDojoUsersPath = "/api/v2/users/"

// DefectDojoClient reads and creates DefectDojo user accounts with the
// process-wide integration key.
type DefectDojoClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewDefectDojoClient(client *http.Client, baseURL, apiKey string) *DefectDojoClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &DefectDojoClient{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (p *DefectDojoClient) configured() error {
	if p.baseURL == "" || p.apiKey == "" {
		return fmt.Errorf("defectdojo integration is not configured: %w", domain.ErrUnsupportedOperation)
	}
	return nil
}

func (p *DefectDojoClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Accept", "application/json")
}

// ProvisionUser mirrors a newly created console user into DefectDojo.
func (p *DefectDojoClient) ProvisionUser(ctx context.Context, user domain.User) error {
	if err := p.configured(); err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]any{
		"username":   user.Username,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"is_active":  user.IsActive,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+defectDojoUsersPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	p.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classifyStatus(resp, snippet(body))
	}
	return nil
}

type dojoUserPage struct {
	Next    *string `json:"next"`
	Results []struct {
		ID        json.Number `json:"id"`
		Username  string      `json:"username"`
		Email     string      `json:"email"`
		FirstName string      `json:"first_name"`
		LastName  string      `json:"last_name"`
		IsActive  bool        `json:"is_active"`
	} `json:"results"`
}

// ListUsers reads every DefectDojo account, following the listing's next
// links on the same host.
func (p *DefectDojoClient) ListUsers(ctx context.Context) ([]domain.RemoteUser, error) {
	if err := p.configured(); err != nil {
		return nil, err
	}
	next := p.baseURL + defectDojoUsersPath
	users := []domain.RemoteUser{}
	for page := 0; next != "" && page < maxPages; page++ {
		body, err := p.get(ctx, next)
		if err != nil {
			return nil, err
		}
		var listing dojoUserPage
		if err := json.Unmarshal(body, &listing); err != nil {
			return nil, malformed("decode user listing: %v", err)
		}
		for _, u := range listing.Results {
			if u.ID == "" {
				return nil, malformed("user without id: %q", u.Username)
			}
			users = append(users, domain.RemoteUser{
				ID:        u.ID.String(),
				Username:  u.Username,
				Email:     u.Email,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				IsActive:  u.IsActive,
			})
		}
		more := ""
		if listing.Next != nil {
			more = *listing.Next
		}
		if next, err = sameOrigin(p.baseURL, more); err != nil {
			return nil, err
		}
	}
	if next != "" {
		return nil, malformed("user listing exceeds %d pages", maxPages)
	}
	return users, nil
}

func (p *DefectDojoClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, malformed("build request: %v", err)
	}
	p.authorize(req)
	resp, err := p.client.Do(req)
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
