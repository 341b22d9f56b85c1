package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"security-console/internal/domain"
	"security-console/internal/ports"
)

const connectionCheckTimeout = 5 * time.Second

// DefectDojoService reads the process-wide DefectDojo integration: its user
// directory and its role listing.
type DefectDojoService struct {
	directory ports.UserDirectory
	fetcher   ports.RoleFetcher
	catalog   ports.CapabilityCatalog
	baseURL   string
	apiKey    string
	timeout   time.Duration
	logger    ports.Logger
}

func NewDefectDojoService(
	directory ports.UserDirectory,
	fetcher ports.RoleFetcher,
	catalog ports.CapabilityCatalog,
	baseURL, apiKey string,
	timeout time.Duration,
	logger ports.Logger,
) *DefectDojoService {
	return &DefectDojoService{
		directory: directory,
		fetcher:   fetcher,
		catalog:   catalog,
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		timeout:   ClampFetchTimeout(timeout),
		logger:    logger,
	}
}

func (s *DefectDojoService) configured() error {
	if s.baseURL == "" || s.apiKey == "" {
		return fmt.Errorf("defectdojo integration is not configured: %w", domain.ErrUnsupportedOperation)
	}
	return nil
}

func (s *DefectDojoService) ListUsers(ctx context.Context) ([]domain.RemoteUser, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.directory.ListUsers(ctx)
}

// ListRoles fetches the DefectDojo role listing without storing it.
func (s *DefectDojoService) ListRoles(ctx context.Context) ([]domain.RemoteRole, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	capability, ok := s.catalog.Describe(domain.AppTypeDefectDojo)
	if !ok || !capability.SupportsRoleSync {
		return nil, fmt.Errorf("role listing for %s: %w", domain.AppTypeDefectDojo, domain.ErrUnsupportedOperation)
	}
	creds := ports.Credentials{Style: capability.AuthType, Scheme: capability.APIKeyScheme, APIKey: s.apiKey}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.fetcher.FetchRoles(ctx, s.baseURL, capability, creds)
}

// Connected is false when the integration is not configured or its role
// listing does not answer within a few seconds.
func (s *DefectDojoService) Connected(ctx context.Context) bool {
	if s.configured() != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, connectionCheckTimeout)
	defer cancel()
	if _, err := s.ListRoles(ctx); err != nil {
		s.logger.Debug(ctx, "defectdojo connection check failed", "error", err.Error())
		return false
	}
	return true
}
