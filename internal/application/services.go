package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"security-console/internal/domain"
	"security-console/internal/ports"
)

type ApplicationInput struct {
	Name        string
	Type        string
	Module      string
	RedirectURL string
	IP          string
	Username    string
	Password    string
	APIKey      string
	Description string
	DefaultPort int
}

// ApplicationPatch carries only the fields a caller set; nil means keep.
type ApplicationPatch struct {
	Name        *string
	Type        *string
	Module      *string
	RedirectURL *string
	IP          *string
	Username    *string
	Password    *string
	APIKey      *string
	Description *string
	DefaultPort *int
	Active      *bool
}

// ApplicationView is the caller-facing shape of an application.
type ApplicationView struct {
	domain.Application
	SyncRoles      bool `json:"sync_roles"`
	HasCredentials bool `json:"has_credentials"`
}

type ApplicationService struct {
	repo    ports.ApplicationRepository
	catalog ports.CapabilityCatalog
	cipher  ports.Cipher
	logger  ports.Logger
}

func NewApplicationService(repo ports.ApplicationRepository, catalog ports.CapabilityCatalog, cipher ports.Cipher, logger ports.Logger) *ApplicationService {
	return &ApplicationService{repo: repo, catalog: catalog, cipher: cipher, logger: logger}
}

func (s *ApplicationService) View(app domain.Application) ApplicationView {
	return ApplicationView{
		Application:    app,
		SyncRoles:      s.catalog.SupportsRoleSync(app.Type),
		HasCredentials: app.APIKey != "" || app.Password != "",
	}
}

// Create registers an application. Name, description and port left empty are
// taken from the capability catalog entry of its type.
func (s *ApplicationService) Create(ctx context.Context, in ApplicationInput) (domain.Application, error) {
	appType, err := domain.ParseAppType(in.Type)
	if err != nil {
		return domain.Application{}, err
	}
	module, err := domain.ParseModuleType(in.Module)
	if err != nil {
		return domain.Application{}, err
	}
	app := domain.Application{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Type:        appType,
		Module:      module,
		RedirectURL: strings.TrimSpace(in.RedirectURL),
		IP:          in.IP,
		Username:    in.Username,
		Description: in.Description,
		DefaultPort: in.DefaultPort,
		Active:      true,
	}
	if c, ok := s.catalog.Describe(appType); ok {
		if app.Name == "" {
			app.Name = c.Name
		}
		if app.Description == "" {
			app.Description = c.Description
		}
		if app.DefaultPort == 0 {
			app.DefaultPort = c.DefaultPort
		}
	}
	if app.Name == "" || app.RedirectURL == "" {
		return domain.Application{}, domain.ErrInvalidInput
	}
	if app.Password, err = s.seal(in.Password); err != nil {
		return domain.Application{}, err
	}
	if app.APIKey, err = s.seal(in.APIKey); err != nil {
		return domain.Application{}, err
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	if err := s.repo.Create(ctx, app); err != nil {
		return domain.Application{}, err
	}
	s.logger.Info(ctx, "application created", "app_id", app.ID, "app_type", string(app.Type))
	return app, nil
}

// Update merges the patch into the stored application.
func (s *ApplicationService) Update(ctx context.Context, appID string, patch ApplicationPatch) (domain.Application, error) {
	if appID == "" {
		return domain.Application{}, domain.ErrInvalidInput
	}
	app, err := s.repo.GetByID(ctx, appID)
	if err != nil {
		return domain.Application{}, err
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return domain.Application{}, domain.ErrInvalidInput
		}
		app.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Type != nil {
		if app.Type, err = domain.ParseAppType(*patch.Type); err != nil {
			return domain.Application{}, err
		}
	}
	if patch.Module != nil {
		if app.Module, err = domain.ParseModuleType(*patch.Module); err != nil {
			return domain.Application{}, err
		}
	}
	if patch.RedirectURL != nil {
		if strings.TrimSpace(*patch.RedirectURL) == "" {
			return domain.Application{}, domain.ErrInvalidInput
		}
		app.RedirectURL = strings.TrimSpace(*patch.RedirectURL)
	}
	if patch.IP != nil {
		app.IP = *patch.IP
	}
	if patch.Username != nil {
		app.Username = *patch.Username
	}
	if patch.Description != nil {
		app.Description = *patch.Description
	}
	if patch.DefaultPort != nil {
		app.DefaultPort = *patch.DefaultPort
	}
	if patch.Active != nil {
		app.Active = *patch.Active
	}
	if patch.Password != nil {
		if app.Password, err = s.seal(*patch.Password); err != nil {
			return domain.Application{}, err
		}
	}
	if patch.APIKey != nil {
		if app.APIKey, err = s.seal(*patch.APIKey); err != nil {
			return domain.Application{}, err
		}
	}
	app.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, app); err != nil {
		return domain.Application{}, err
	}
	return app, nil
}

// Deactivate is the delete operation: records are flagged, never removed.
func (s *ApplicationService) Deactivate(ctx context.Context, appID string) error {
	inactive := false
	_, err := s.Update(ctx, appID, ApplicationPatch{Active: &inactive})
	return err
}

func (s *ApplicationService) GetByID(ctx context.Context, appID string) (domain.Application, error) {
	if appID == "" {
		return domain.Application{}, domain.ErrInvalidInput
	}
	return s.repo.GetByID(ctx, appID)
}

func (s *ApplicationService) List(ctx context.Context) ([]domain.Application, error) {
	return s.repo.List(ctx)
}

func (s *ApplicationService) ListByModule(ctx context.Context, module string) ([]domain.Application, error) {
	m, err := domain.ParseModuleType(module)
	if err != nil {
		return nil, err
	}
	apps, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Application, 0, len(apps))
	for _, app := range apps {
		if app.Module == m {
			out = append(out, app)
		}
	}
	return out, nil
}

func (s *ApplicationService) seal(secret string) (string, error) {
	if secret == "" {
		return "", nil
	}
	sealed, err := s.cipher.Encrypt(secret)
	if err != nil {
		return "", fmt.Errorf("encrypt credential: %w", err)
	}
	return sealed, nil
}

type RoleService struct {
	repo   ports.RoleRepository
	logger ports.Logger
}

func NewRoleService(repo ports.RoleRepository, logger ports.Logger) *RoleService {
	return &RoleService{repo: repo, logger: logger}
}

// Create stores a locally authored role. Names shaped like synced role names
// are reserved for the sync engine.
func (s *RoleService) Create(ctx context.Context, role domain.Role) (domain.Role, error) {
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" || IsSyncedRoleName(role.Name) || role.ExternalID != "" {
		return domain.Role{}, domain.ErrInvalidInput
	}
	if role.AppType != "" {
		if _, err := domain.ParseAppType(string(role.AppType)); err != nil {
			return domain.Role{}, err
		}
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	role.ID = uuid.NewString()
	role.IsSynced = false
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now
	if err := s.repo.Create(ctx, role); err != nil {
		return domain.Role{}, err
	}
	return role, nil
}

func (s *RoleService) List(ctx context.Context) ([]domain.Role, error) {
	return s.repo.List(ctx)
}

// EnsureDefaults seeds Admin, User and Viewer into an empty role store.
func (s *RoleService) EnsureDefaults(ctx context.Context) error {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	if len(roles) > 0 {
		return nil
	}
	defaults := []domain.Role{
		{Name: "Admin", Description: "Full system access", Permissions: []string{"read", "write", "delete", "admin"}},
		{Name: "User", Description: "Basic user access", Permissions: []string{"read"}},
		{Name: "Viewer", Description: "Read-only access", Permissions: []string{"read"}},
	}
	for _, role := range defaults {
		if _, err := s.Create(ctx, role); err != nil {
			return fmt.Errorf("seed role %s: %w", role.Name, err)
		}
	}
	s.logger.Info(ctx, "initialized default roles")
	return nil
}

type UserInput struct {
	Username     string
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Roles        []string
	ModuleAccess []string
	IsAdmin      bool
}

type UserPatch struct {
	Email        *string
	FirstName    *string
	LastName     *string
	Roles        []string
	ModuleAccess []string
	IsAdmin      *bool
	IsActive     *bool
}

type UserService struct {
	repo        ports.UserRepository
	provisioner ports.UserProvisioner
	logger      ports.Logger
}

// NewUserService accepts a nil provisioner when users stay local.
func NewUserService(repo ports.UserRepository, provisioner ports.UserProvisioner, logger ports.Logger) *UserService {
	return &UserService{repo: repo, provisioner: provisioner, logger: logger}
}

func (s *UserService) Create(ctx context.Context, in UserInput) (domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Email == "" || in.Password == "" {
		return domain.User{}, domain.ErrInvalidInput
	}
	modules, err := parseModules(in.ModuleAccess)
	if err != nil {
		return domain.User{}, err
	}
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return domain.User{}, fmt.Errorf("username %q: %w", username, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: string(hash),
		Roles:        nonNil(in.Roles),
		ModuleAccess: modules,
		IsAdmin:      in.IsAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.provisionOrWarn(ctx, user)
	if err := s.repo.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// provisionOrWarn pushes the user to the external system; a failure there
// never blocks local creation.
func (s *UserService) provisionOrWarn(ctx context.Context, user domain.User) {
	if s.provisioner == nil {
		return
	}
	if err := s.provisioner.ProvisionUser(ctx, user); err != nil {
		s.logger.Warn(ctx, "external user provisioning failed, continuing with local user",
			"username", user.Username,
			"error", err.Error(),
		)
		return
	}
	s.logger.Info(ctx, "user provisioned externally", "username", user.Username)
}

func (s *UserService) Update(ctx context.Context, userID string, patch UserPatch) (domain.User, error) {
	if userID == "" {
		return domain.User{}, domain.ErrInvalidInput
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if patch.Email != nil {
		if *patch.Email == "" {
			return domain.User{}, domain.ErrInvalidInput
		}
		user.Email = *patch.Email
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Roles != nil {
		user.Roles = patch.Roles
	}
	if patch.ModuleAccess != nil {
		if user.ModuleAccess, err = parseModules(patch.ModuleAccess); err != nil {
			return domain.User{}, err
		}
	}
	if patch.IsAdmin != nil {
		user.IsAdmin = *patch.IsAdmin
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, userID string) (domain.User, error) {
	if userID == "" {
		return domain.User{}, domain.ErrInvalidInput
	}
	return s.repo.GetByID(ctx, userID)
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

func parseModules(raw []string) ([]domain.ModuleType, error) {
	out := make([]domain.ModuleType, 0, len(raw))
	for _, m := range raw {
		mt, err := domain.ParseModuleType(m)
		if err != nil {
			return nil, err
		}
		out = append(out, mt)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type DashboardStats struct {
	TotalApplications int                       `json:"total_applications"`
	TotalUsers        int                       `json:"total_users"`
	TotalRoles        int                       `json:"total_roles"`
	SyncedRoles       int                       `json:"synced_roles"`
	ModuleStats       map[domain.ModuleType]int `json:"module_stats"`
	LastSync          *time.Time                `json:"last_sync,omitempty"`

	DefectDojoConnected bool `json:"defectdojo_connected"`
}

// ConnectionChecker reports whether an external system answers.
type ConnectionChecker interface {
	Connected(ctx context.Context) bool
}

type DashboardService struct {
	apps  ports.ApplicationRepository
	users ports.UserRepository
	roles ports.RoleRepository
	dojo  ConnectionChecker
}

// NewDashboardService accepts a nil dojo checker; the flag then stays false.
func NewDashboardService(apps ports.ApplicationRepository, users ports.UserRepository, roles ports.RoleRepository, dojo ConnectionChecker) *DashboardService {
	return &DashboardService{apps: apps, users: users, roles: roles, dojo: dojo}
}

func (s *DashboardService) Stats(ctx context.Context) (DashboardStats, error) {
	apps, err := s.apps.List(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	roles, err := s.roles.List(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	stats := DashboardStats{
		TotalApplications: len(apps),
		TotalUsers:        len(users),
		TotalRoles:        len(roles),
		ModuleStats:       make(map[domain.ModuleType]int, len(domain.ModuleTypes)),
	}
	for _, m := range domain.ModuleTypes {
		stats.ModuleStats[m] = 0
	}
	for _, app := range apps {
		stats.ModuleStats[app.Module]++
		if app.LastRoleSync != nil && (stats.LastSync == nil || app.LastRoleSync.After(*stats.LastSync)) {
			last := *app.LastRoleSync
			stats.LastSync = &last
		}
	}
	for _, role := range roles {
		if role.IsSynced {
			stats.SyncedRoles++
		}
	}
	if s.dojo != nil {
		stats.DefectDojoConnected = s.dojo.Connected(ctx)
	}
	return stats, nil
}
