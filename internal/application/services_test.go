package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"security-console/internal/catalog"
	"security-console/internal/domain"
)

type appRepoMock struct{ mock.Mock }

func (m *appRepoMock) Create(ctx context.Context, app domain.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *appRepoMock) Update(ctx context.Context, app domain.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *appRepoMock) GetByID(ctx context.Context, appID string) (domain.Application, error) {
	args := m.Called(ctx, appID)
	return args.Get(0).(domain.Application), args.Error(1)
}

func (m *appRepoMock) List(ctx context.Context) ([]domain.Application, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Application), args.Error(1)
}

func (m *appRepoMock) SetLastSync(ctx context.Context, appID string, at time.Time) error {
	args := m.Called(ctx, appID, at)
	return args.Error(0)
}

type roleRepoMock struct{ mock.Mock }

func (m *roleRepoMock) Create(ctx context.Context, role domain.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *roleRepoMock) UpsertSynced(ctx context.Context, role domain.Role) (domain.UpsertOutcome, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(domain.UpsertOutcome), args.Error(1)
}

func (m *roleRepoMock) List(ctx context.Context) ([]domain.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Role), args.Error(1)
}

type userRepoMock struct{ mock.Mock }

func (m *userRepoMock) Create(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *userRepoMock) Update(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *userRepoMock) GetByID(ctx context.Context, userID string) (domain.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *userRepoMock) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *userRepoMock) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}

type provisionerMock struct{ mock.Mock }

func (m *provisionerMock) ProvisionUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func newApplicationService(repo *appRepoMock) *ApplicationService {
	return NewApplicationService(repo, catalog.MustDefault(), prefixCipher{}, nopLogger{})
}

func TestApplicationService_Create(t *testing.T) {
	repo := new(appRepoMock)
	svc := newApplicationService(repo)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(app domain.Application) bool {
		return app.ID != "" && app.Name == "Dojo" && app.Active &&
			app.APIKey == "enc:k-123" && app.DefaultPort == 8080 && !app.CreatedAt.IsZero()
	})).Return(nil)

	app, err := svc.Create(context.Background(), ApplicationInput{
		Name:        "Dojo",
		Type:        "DefectDojo",
		Module:      "XDR",
		RedirectURL: "https://dojo.local",
		APIKey:      "k-123",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.AppTypeDefectDojo, app.Type)
	assert.NotEmpty(t, app.Description, "description comes from the catalog")
	repo.AssertExpectations(t)
}

func TestApplicationService_CreateFillsNameFromCatalog(t *testing.T) {
	repo := new(appRepoMock)
	svc := newApplicationService(repo)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	app, err := svc.Create(context.Background(), ApplicationInput{Type: "Wazuh", Module: "GSOS", RedirectURL: "https://wazuh.local"})

	require.NoError(t, err)
	assert.Equal(t, "Wazuh", app.Name)
	assert.Equal(t, 55000, app.DefaultPort)
}

func TestApplicationService_CreateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		in   ApplicationInput
		want error
	}{
		{"unknown type", ApplicationInput{Name: "x", Type: "Nessus", Module: "XDR", RedirectURL: "https://x"}, domain.ErrUnknownAppType},
		{"unknown module", ApplicationInput{Name: "x", Type: "MISP", Module: "SIEM", RedirectURL: "https://x"}, domain.ErrInvalidInput},
		{"missing url", ApplicationInput{Name: "x", Type: "MISP", Module: "XDR"}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(appRepoMock)
			svc := newApplicationService(repo)

			_, err := svc.Create(context.Background(), tt.in)

			assert.ErrorIs(t, err, tt.want)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestApplicationService_UpdateMergesPatch(t *testing.T) {
	repo := new(appRepoMock)
	svc := newApplicationService(repo)
	stored := domain.Application{ID: "app-1", Name: "Old", Type: domain.AppTypeMISP, Module: domain.ModuleXDR, RedirectURL: "https://misp", APIKey: "enc:old", Active: true}
	name := "New"
	key := "fresh"

	repo.On("GetByID", mock.Anything, "app-1").Return(stored, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(app domain.Application) bool {
		return app.Name == "New" && app.APIKey == "enc:fresh" && app.RedirectURL == "https://misp" && app.Active
	})).Return(nil)

	_, err := svc.Update(context.Background(), "app-1", ApplicationPatch{Name: &name, APIKey: &key})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestApplicationService_DeactivateKeepsRecord(t *testing.T) {
	repo := new(appRepoMock)
	svc := newApplicationService(repo)
	repo.On("GetByID", mock.Anything, "app-1").Return(domain.Application{ID: "app-1", Name: "A", Active: true}, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(app domain.Application) bool {
		return app.ID == "app-1" && !app.Active
	})).Return(nil)

	require.NoError(t, svc.Deactivate(context.Background(), "app-1"))
	repo.AssertExpectations(t)
}

func TestApplicationService_UpdateNotFound(t *testing.T) {
	repo := new(appRepoMock)
	svc := newApplicationService(repo)
	repo.On("GetByID", mock.Anything, "missing").Return(domain.Application{}, domain.ErrNotFound)

	_, err := svc.Update(context.Background(), "missing", ApplicationPatch{})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplicationService_ListByModule(t *testing.T) {
	repo := new(appRepoMock)
	svc := newApplicationService(repo)
	repo.On("List", mock.Anything).Return([]domain.Application{
		{ID: "a", Module: domain.ModuleXDR},
		{ID: "b", Module: domain.ModuleGSOS},
		{ID: "c", Module: domain.ModuleXDR},
	}, nil)

	apps, err := svc.ListByModule(context.Background(), "XDR")

	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "a", apps[0].ID)
	assert.Equal(t, "c", apps[1].ID)
}

func TestApplicationService_View(t *testing.T) {
	svc := newApplicationService(new(appRepoMock))

	dojo := svc.View(domain.Application{Type: domain.AppTypeDefectDojo, APIKey: "enc:x"})
	ids := svc.View(domain.Application{Type: domain.AppTypeSuricata})

	assert.True(t, dojo.SyncRoles)
	assert.True(t, dojo.HasCredentials)
	assert.False(t, ids.SyncRoles)
	assert.False(t, ids.HasCredentials)
}

func TestRoleService_Create(t *testing.T) {
	repo := new(roleRepoMock)
	svc := NewRoleService(repo, nopLogger{})
	repo.On("Create", mock.Anything, mock.MatchedBy(func(r domain.Role) bool {
		return r.ID != "" && r.Name == "Analyst" && !r.IsSynced
	})).Return(nil)

	role, err := svc.Create(context.Background(), domain.Role{Name: " Analyst ", Permissions: []string{"read"}})

	require.NoError(t, err)
	assert.Equal(t, "Analyst", role.Name)
	repo.AssertExpectations(t)
}

func TestRoleService_CreateRejectsReservedNames(t *testing.T) {
	repo := new(roleRepoMock)
	svc := NewRoleService(repo, nopLogger{})

	_, err := svc.Create(context.Background(), domain.Role{Name: "DefectDojo:QA"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Create(context.Background(), domain.Role{Name: "QA", AppType: domain.AppTypeDefectDojo, ExternalID: "1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRoleService_EnsureDefaultsSeedsEmptyStore(t *testing.T) {
	repo := new(roleRepoMock)
	svc := NewRoleService(repo, nopLogger{})
	repo.On("List", mock.Anything).Return([]domain.Role{}, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.EnsureDefaults(context.Background()))
	repo.AssertNumberOfCalls(t, "Create", 3)
}

func TestRoleService_EnsureDefaultsSkipsPopulatedStore(t *testing.T) {
	repo := new(roleRepoMock)
	svc := NewRoleService(repo, nopLogger{})
	repo.On("List", mock.Anything).Return([]domain.Role{{ID: "r1", Name: "Admin"}}, nil)

	require.NoError(t, svc.EnsureDefaults(context.Background()))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_Create(t *testing.T) {
	repo := new(userRepoMock)
	svc := NewUserService(repo, nil, nopLogger{})
	repo.On("GetByUsername", mock.Anything, "jdoe").Return(domain.User{}, domain.ErrNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		return u.Username == "jdoe" && u.IsActive &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cretpass")) == nil
	})).Return(nil)

	user, err := svc.Create(context.Background(), UserInput{
		Username:     "jdoe",
		Email:        "jdoe@example.com",
		Password:     "s3cretpass",
		ModuleAccess: []string{"XDR", "OXDR"},
	})

	require.NoError(t, err)
	assert.Equal(t, []domain.ModuleType{domain.ModuleXDR, domain.ModuleOXDR}, user.ModuleAccess)
	assert.Equal(t, []string{}, user.Roles)
	repo.AssertExpectations(t)
}

func TestUserService_CreateDuplicateUsername(t *testing.T) {
	repo := new(userRepoMock)
	svc := NewUserService(repo, nil, nopLogger{})
	repo.On("GetByUsername", mock.Anything, "jdoe").Return(domain.User{ID: "u1", Username: "jdoe"}, nil)

	_, err := svc.Create(context.Background(), UserInput{Username: "jdoe", Email: "j@x", Password: "whatever1"})

	assert.ErrorIs(t, err, domain.ErrConflict)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_ProvisioningFailureDoesNotBlockCreation(t *testing.T) {
	repo := new(userRepoMock)
	provisioner := new(provisionerMock)
	svc := NewUserService(repo, provisioner, nopLogger{})
	repo.On("GetByUsername", mock.Anything, "jdoe").Return(domain.User{}, domain.ErrNotFound)
	provisioner.On("ProvisionUser", mock.Anything, mock.Anything).Return(errors.New("dojo unreachable"))
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Create(context.Background(), UserInput{Username: "jdoe", Email: "j@x", Password: "whatever1"})

	require.NoError(t, err)
	provisioner.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestUserService_UpdateRejectsUnknownModule(t *testing.T) {
	repo := new(userRepoMock)
	svc := NewUserService(repo, nil, nopLogger{})
	repo.On("GetByID", mock.Anything, "u1").Return(domain.User{ID: "u1"}, nil)

	_, err := svc.Update(context.Background(), "u1", UserPatch{ModuleAccess: []string{"EDR"}})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestDashboardService_Stats(t *testing.T) {
	apps := new(appRepoMock)
	users := new(userRepoMock)
	roles := new(roleRepoMock)
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	apps.On("List", mock.Anything).Return([]domain.Application{
		{ID: "a", Module: domain.ModuleXDR, LastRoleSync: &older},
		{ID: "b", Module: domain.ModuleXDR, LastRoleSync: &newer},
		{ID: "c", Module: domain.ModuleGSOS},
	}, nil)
	users.On("List", mock.Anything).Return([]domain.User{{ID: "u1"}}, nil)
	roles.On("List", mock.Anything).Return([]domain.Role{{ID: "r1"}, {ID: "r2", IsSynced: true}}, nil)

	stats, err := NewDashboardService(apps, users, roles, nil).Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalApplications)
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 2, stats.TotalRoles)
	assert.Equal(t, 1, stats.SyncedRoles)
	assert.Equal(t, 2, stats.ModuleStats[domain.ModuleXDR])
	assert.Equal(t, 0, stats.ModuleStats[domain.ModuleOXDR])
	require.NotNil(t, stats.LastSync)
	assert.Equal(t, newer, *stats.LastSync)
	assert.False(t, stats.DefectDojoConnected)
}

type fixedConnection bool

func (f fixedConnection) Connected(context.Context) bool { return bool(f) }

func TestDashboardService_ReportsDefectDojoConnection(t *testing.T) {
	apps := new(appRepoMock)
	users := new(userRepoMock)
	roles := new(roleRepoMock)
	apps.On("List", mock.Anything).Return([]domain.Application{}, nil)
	users.On("List", mock.Anything).Return([]domain.User{}, nil)
	roles.On("List", mock.Anything).Return([]domain.Role{}, nil)

	stats, err := NewDashboardService(apps, users, roles, fixedConnection(true)).Stats(context.Background())

	require.NoError(t, err)
	assert.True(t, stats.DefectDojoConnected)
}
