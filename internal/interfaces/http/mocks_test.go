package http

import (
	"context"

	"github.com/stretchr/testify/mock"
	"security-console/internal/application"
	"security-console/internal/domain"
)

type appServiceMock struct{ mock.Mock }

func (m *appServiceMock) List(ctx context.Context) ([]domain.Application, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Application), args.Error(1)
}

func (m *appServiceMock) ListByModule(ctx context.Context, module string) ([]domain.Application, error) {
	args := m.Called(ctx, module)
	return args.Get(0).([]domain.Application), args.Error(1)
}

func (m *appServiceMock) GetByID(ctx context.Context, appID string) (domain.Application, error) {
	args := m.Called(ctx, appID)
	return args.Get(0).(domain.Application), args.Error(1)
}

func (m *appServiceMock) Create(ctx context.Context, in application.ApplicationInput) (domain.Application, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Application), args.Error(1)
}

func (m *appServiceMock) Update(ctx context.Context, appID string, patch application.ApplicationPatch) (domain.Application, error) {
	args := m.Called(ctx, appID, patch)
	return args.Get(0).(domain.Application), args.Error(1)
}

func (m *appServiceMock) Deactivate(ctx context.Context, appID string) error {
	return m.Called(ctx, appID).Error(0)
}

func (m *appServiceMock) View(app domain.Application) application.ApplicationView {
	return application.ApplicationView{
		Application:    app,
		SyncRoles:      app.Type == domain.AppTypeDefectDojo,
		HasCredentials: app.APIKey != "" || app.Password != "",
	}
}

type syncerMock struct{ mock.Mock }

func (m *syncerMock) SyncApplication(ctx context.Context, appID string) (domain.SyncResult, error) {
	args := m.Called(ctx, appID)
	return args.Get(0).(domain.SyncResult), args.Error(1)
}

func (m *syncerMock) PreviewRemoteRoles(ctx context.Context, appID string) ([]domain.RemoteRole, error) {
	args := m.Called(ctx, appID)
	roles, _ := args.Get(0).([]domain.RemoteRole)
	return roles, args.Error(1)
}

type roleServiceMock struct{ mock.Mock }

func (m *roleServiceMock) Create(ctx context.Context, role domain.Role) (domain.Role, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(domain.Role), args.Error(1)
}

func (m *roleServiceMock) List(ctx context.Context) ([]domain.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Role), args.Error(1)
}

type userServiceMock struct{ mock.Mock }

func (m *userServiceMock) Create(ctx context.Context, in application.UserInput) (domain.User, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *userServiceMock) Update(ctx context.Context, userID string, patch application.UserPatch) (domain.User, error) {
	args := m.Called(ctx, userID, patch)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *userServiceMock) GetByID(ctx context.Context, userID string) (domain.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *userServiceMock) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}

type authServiceMock struct{ mock.Mock }

func (m *authServiceMock) Login(ctx context.Context, username, password string) (application.LoginResult, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(application.LoginResult), args.Error(1)
}

func (m *authServiceMock) Me(ctx context.Context, principal domain.Principal) (domain.User, error) {
	args := m.Called(ctx, principal)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *authServiceMock) ChangePassword(ctx context.Context, principal domain.Principal, current, next string) error {
	return m.Called(ctx, principal, current, next).Error(0)
}

type statsServiceMock struct{ mock.Mock }

func (m *statsServiceMock) Stats(ctx context.Context) (application.DashboardStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(application.DashboardStats), args.Error(1)
}

type dojoServiceMock struct{ mock.Mock }

func (m *dojoServiceMock) ListUsers(ctx context.Context) ([]domain.RemoteUser, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]domain.RemoteUser)
	return users, args.Error(1)
}

func (m *dojoServiceMock) ListRoles(ctx context.Context) ([]domain.RemoteRole, error) {
	args := m.Called(ctx)
	roles, _ := args.Get(0).([]domain.RemoteRole)
	return roles, args.Error(1)
}
