// Package wiring assembles the console from configuration. Both the HTTP
// server and the Lambda entry point serve the router it builds.
package wiring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/labstack/echo/v4"
	adaptermiddleware "security-console/internal/adapters/http/middleware"
	"security-console/internal/adapters/metrics"
	"security-console/internal/application"
	"security-console/internal/catalog"
	"security-console/internal/domain"
	"security-console/internal/infrastructure"
	"security-console/internal/infrastructure/auth"
	"security-console/internal/infrastructure/crypto"
	"security-console/internal/infrastructure/dynamodb"
	"security-console/internal/infrastructure/external"
	httpiface "security-console/internal/interfaces/http"
	"security-console/internal/ports"
)

const segmentName = "security-console"

type App struct {
	Echo   *echo.Echo
	Sync   *application.SyncService
	logger ports.Logger
}

// Build connects to DynamoDB, seeds default roles and the bootstrap admin,
// and returns the routed API.
func Build(ctx context.Context, cfg *infrastructure.Config, logger ports.Logger) (*App, error) {
	if cfg.XRayEnabled {
		if err := xray.Configure(xray.Config{LogLevel: "error"}); err != nil {
			return nil, fmt.Errorf("configure xray: %w", err)
		}
	}
	ddbClient, err := dynamodb.NewClient(ctx, cfg.Region, cfg.TableName, cfg.XRayEnabled)
	if err != nil {
		return nil, fmt.Errorf("initialize dynamodb client: %w", err)
	}
	appRepo := dynamodb.NewApplicationRepository(ddbClient)
	roleRepo := dynamodb.NewRoleRepository(ddbClient)
	userRepo := dynamodb.NewUserRepository(ddbClient)

	cipher, err := crypto.NewFernetCipher(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("initialize cipher: %w", err)
	}
	registry := catalog.MustDefault()

	outbound := external.NewHTTPClient(cfg.SyncOutboundRPS)
	if cfg.XRayEnabled {
		outbound = xray.Client(outbound)
	}
	promMetrics := metrics.New()

	resolver := application.NewCredentialResolver(cipher, map[domain.AppType]string{
		domain.AppTypeDefectDojo: cfg.DefectDojoAPIKey,
	})
	fetcher := external.NewHTTPFetcher(outbound, logger)
	syncSvc := application.NewSyncService(
		appRepo,
		registry,
		resolver,
		fetcher,
		application.NewRoleReconciler(roleRepo, logger),
		promMetrics,
		logger,
		cfg.SyncFetchTimeout,
	)

	dojoClient := external.NewDefectDojoClient(outbound, cfg.DefectDojoURL, cfg.DefectDojoAPIKey)
	dojoSvc := application.NewDefectDojoService(dojoClient, fetcher, registry, cfg.DefectDojoURL, cfg.DefectDojoAPIKey, cfg.SyncFetchTimeout, logger)
	var provisioner ports.UserProvisioner
	if cfg.DefectDojoProvisionUsers {
		provisioner = dojoClient
	}

	mode, err := adaptermiddleware.ParseAuthMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}
	var (
		issuer   ports.TokenIssuer
		verifier adaptermiddleware.TokenVerifier
	)
	if cfg.JWTSecret != "" {
		tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiration)
		if err != nil {
			return nil, err
		}
		issuer, verifier = tokens, tokens
	}
	if mode == adaptermiddleware.ModeKeycloak {
		verifier = auth.NewKeycloakVerifier(cfg.KeycloakServerURL, cfg.KeycloakRealm, cfg.KeycloakAdminRole, &http.Client{Timeout: 10 * time.Second})
	}
	authMiddleware, err := adaptermiddleware.AuthMiddleware(mode, verifier)
	if err != nil {
		return nil, fmt.Errorf("initialize auth middleware: %w", err)
	}

	appSvc := application.NewApplicationService(appRepo, registry, cipher, logger)
	roleSvc := application.NewRoleService(roleRepo, logger)
	userSvc := application.NewUserService(userRepo, provisioner, logger)
	authSvc := application.NewAuthService(userRepo, issuer, logger)

	if err := roleSvc.EnsureDefaults(ctx); err != nil {
		return nil, fmt.Errorf("seed default roles: %w", err)
	}
	if err := authSvc.EnsureDefaultAdmin(ctx, cfg.BootstrapAdminPassword); err != nil {
		return nil, fmt.Errorf("seed admin user: %w", err)
	}

	mw := httpiface.Middleware{
		Auth:          authMiddleware,
		RequestLogger: adaptermiddleware.RequestLogger(logger),
		Metrics:       promMetrics.Middleware(),
	}
	if cfg.XRayEnabled {
		mw.XRay = adaptermiddleware.XRayMiddleware(segmentName)
	}
	e := httpiface.NewMainRouter(httpiface.Handlers{
		Applications: httpiface.NewApplicationsHandler(appSvc, syncSvc),
		Templates:    httpiface.NewTemplatesHandler(registry),
		Roles:        httpiface.NewRolesHandler(roleSvc),
		Users:        httpiface.NewUsersHandler(userSvc),
		Auth:         httpiface.NewAuthHandler(authSvc),
		Dashboard:    httpiface.NewDashboardHandler(application.NewDashboardService(appRepo, userRepo, roleRepo, dojoSvc)),
		DefectDojo:   httpiface.NewDefectDojoHandler(dojoSvc),
		Metrics:      promMetrics.Handler(),
	}, mw)

	logger.Info(ctx, "security console assembled",
		"auth_mode", string(mode),
		"xray", cfg.XRayEnabled,
		"provision_users", cfg.DefectDojoProvisionUsers,
	)
	return &App{Echo: e, Sync: syncSvc, logger: logger}, nil
}

// SyncAll runs role sync for every eligible application and logs a summary.
func (a *App) SyncAll(ctx context.Context) {
	results, err := a.Sync.SyncAll(ctx)
	if err != nil {
		a.logger.Error(ctx, "startup role sync interrupted", "error", err.Error())
	}
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	a.logger.Info(ctx, "startup role sync finished", "applications", len(results), "failed", failed)
}
