package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
	"security-console/internal/domain"
	"security-console/internal/ports"
)

const (
	MinFetchTimeout     = 10 * time.Second
	MaxFetchTimeout     = 20 * time.Second
	DefaultFetchTimeout = 15 * time.Second
)

const (
	outcomeSuccess     = "success"
	outcomeFetchFailed = "fetch_failed"
	outcomeStoreFailed = "store_failed"
)

// SyncService runs one-way role synchronization for a registered application.
type SyncService struct {
	apps         ports.ApplicationRepository
	catalog      ports.CapabilityCatalog
	resolver     *CredentialResolver
	fetcher      ports.RoleFetcher
	reconciler   *RoleReconciler
	metrics      ports.SyncMetrics
	logger       ports.Logger
	fetchTimeout time.Duration
	now          func() time.Time

	inflight singleflight.Group
}

func NewSyncService(
	apps ports.ApplicationRepository,
	catalog ports.CapabilityCatalog,
	resolver *CredentialResolver,
	fetcher ports.RoleFetcher,
	reconciler *RoleReconciler,
	metrics ports.SyncMetrics,
	logger ports.Logger,
	fetchTimeout time.Duration,
) *SyncService {
	return &SyncService{
		apps:         apps,
		catalog:      catalog,
		resolver:     resolver,
		fetcher:      fetcher,
		reconciler:   reconciler,
		metrics:      metrics,
		logger:       logger,
		fetchTimeout: ClampFetchTimeout(fetchTimeout),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ClampFetchTimeout keeps the outbound fetch bound within 10-20 seconds.
func ClampFetchTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultFetchTimeout
	case d < MinFetchTimeout:
		return MinFetchTimeout
	case d > MaxFetchTimeout:
		return MaxFetchTimeout
	default:
		return d
	}
}

// SyncApplication pulls the application's remote roles and upserts them.
// Precondition failures (unknown or inactive application, type without
// sync support) are returned as errors. A failed fetch is not an error: it
// is reported in the result with Success=false. Concurrent calls for the
// same application share one run. The run is detached from the caller's
// cancellation so one caller leaving does not fail the others; the fetch
// timeout still bounds it.
func (s *SyncService) SyncApplication(ctx context.Context, appID string) (domain.SyncResult, error) {
	if appID == "" {
		return domain.SyncResult{}, domain.ErrInvalidInput
	}
	ch := s.inflight.DoChan(appID, func() (interface{}, error) {
		return s.run(context.WithoutCancel(ctx), appID)
	})
	select {
	case <-ctx.Done():
		return domain.SyncResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.SyncResult{}, res.Err
		}
		return res.Val.(domain.SyncResult), nil
	}
}

// syncTarget loads an application that can have its roles pulled.
func (s *SyncService) syncTarget(ctx context.Context, appID string) (domain.Application, domain.Capability, error) {
	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return domain.Application{}, domain.Capability{}, err
	}
	if !app.Active {
		return domain.Application{}, domain.Capability{}, fmt.Errorf("application %s is inactive: %w", appID, domain.ErrNotFound)
	}
	capability, ok := s.catalog.Describe(app.Type)
	if !ok {
		return domain.Application{}, domain.Capability{}, fmt.Errorf("%w: %q", domain.ErrUnknownAppType, app.Type)
	}
	if !capability.SupportsRoleSync {
		return domain.Application{}, domain.Capability{}, fmt.Errorf("role sync for %s: %w", app.Type, domain.ErrUnsupportedOperation)
	}
	return app, capability, nil
}

// PreviewRemoteRoles fetches the application's remote roles without storing
// them. Fetch failures are returned as errors matching domain.ErrUpstream.
func (s *SyncService) PreviewRemoteRoles(ctx context.Context, appID string) ([]domain.RemoteRole, error) {
	if appID == "" {
		return nil, domain.ErrInvalidInput
	}
	app, capability, err := s.syncTarget(ctx, appID)
	if err != nil {
		return nil, err
	}
	creds := s.resolver.Resolve(app, capability)

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	remote, err := s.fetcher.FetchRoles(fetchCtx, app.BaseURL(), capability, creds)
	if err != nil {
		s.logger.Warn(ctx, "remote role preview failed",
			"app_id", app.ID,
			"app_type", string(app.Type),
			"error", err.Error(),
		)
		return nil, err
	}
	return remote, nil
}

func (s *SyncService) run(ctx context.Context, appID string) (domain.SyncResult, error) {
	app, capability, err := s.syncTarget(ctx, appID)
	if err != nil {
		return domain.SyncResult{}, err
	}

	started := time.Now()
	creds := s.resolver.Resolve(app, capability)

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	remote, err := s.fetcher.FetchRoles(fetchCtx, app.BaseURL(), capability, creds)
	cancel()
	if err != nil {
		s.logger.Warn(ctx, "role fetch failed",
			"app_id", app.ID,
			"app_type", string(app.Type),
			"error", err.Error(),
		)
		s.observe(app.Type, outcomeFetchFailed, 0, started)
		return syncFailed(app, err, s.now()), nil
	}

	synced, err := s.reconciler.Reconcile(ctx, app.Type, remote)
	if err != nil {
		s.logger.Error(ctx, "role reconciliation aborted",
			"app_id", app.ID,
			"app_type", string(app.Type),
			"synced_roles", synced,
			"error", err.Error(),
		)
		s.observe(app.Type, outcomeStoreFailed, synced, started)
		return domain.SyncResult{}, err
	}

	completed := s.now()
	if err := s.apps.SetLastSync(ctx, app.ID, completed); err != nil {
		s.logger.Warn(ctx, "failed to record last role sync", "app_id", app.ID, "error", err.Error())
	}
	s.observe(app.Type, outcomeSuccess, synced, started)
	s.logger.Info(ctx, "role sync completed",
		"app_id", app.ID,
		"app_type", string(app.Type),
		"synced_roles", synced,
	)
	return syncSucceeded(app, synced, completed), nil
}

func (s *SyncService) observe(t domain.AppType, outcome string, synced int, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSync(t, outcome, synced, time.Since(started))
	}
}

// SyncAll syncs every active application whose type supports role sync.
// Per-application failures are logged and do not stop the loop.
func (s *SyncService) SyncAll(ctx context.Context) ([]domain.SyncResult, error) {
	apps, err := s.apps.List(ctx)
	if err != nil {
		return nil, err
	}
	var results []domain.SyncResult
	for _, app := range apps {
		if !app.Active || !s.catalog.SupportsRoleSync(app.Type) {
			continue
		}
		res, err := s.SyncApplication(ctx, app.ID)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return results, err
			}
			s.logger.Error(ctx, "role sync failed", "app_id", app.ID, "error", err.Error())
			continue
		}
		results = append(results, res)
	}
	return results, nil
}
