package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"security-console/internal/domain"
	"security-console/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Debug(context.Context, string, ...any) {}

var errNotCiphertext = errors.New("not ciphertext")

type prefixCipher struct{}

func (prefixCipher) Encrypt(plaintext string) (string, error) { return "enc:" + plaintext, nil }

func (prefixCipher) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", errNotCiphertext
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

// memRoleStore enforces the (AppType, ExternalID) key the way the DynamoDB
// sort key does.
type memRoleStore struct {
	mu      sync.Mutex
	local   []domain.Role
	synced  map[domain.RoleKey]domain.Role
	upserts int
	failAt  int
}

func newMemRoleStore() *memRoleStore {
	return &memRoleStore{synced: map[domain.RoleKey]domain.Role{}}
}

func (m *memRoleStore) Create(_ context.Context, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.local = append(m.local, role)
	return nil
}

func (m *memRoleStore) UpsertSynced(_ context.Context, role domain.Role) (domain.UpsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.failAt > 0 && m.upserts == m.failAt {
		return 0, errors.New("store unavailable")
	}
	key := domain.RoleKey{AppType: role.AppType, ExternalID: role.ExternalID}
	if existing, ok := m.synced[key]; ok {
		role.ID = existing.ID
		role.CreatedAt = existing.CreatedAt
		m.synced[key] = role
		return domain.Updated, nil
	}
	m.synced[key] = role
	return domain.Inserted, nil
}

func (m *memRoleStore) List(context.Context) ([]domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.Role(nil), m.local...)
	keys := make([]domain.RoleKey, 0, len(m.synced))
	for k := range m.synced {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ExternalID < keys[j].ExternalID })
	for _, k := range keys {
		out = append(out, m.synced[k])
	}
	return out, nil
}

func (m *memRoleStore) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

type memAppStore struct {
	mu        sync.Mutex
	apps      map[string]domain.Application
	lastSyncs int
}

func newMemAppStore(apps ...domain.Application) *memAppStore {
	m := &memAppStore{apps: map[string]domain.Application{}}
	for _, a := range apps {
		m.apps[a.ID] = a
	}
	return m
}

func (m *memAppStore) Create(_ context.Context, app domain.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[app.ID] = app
	return nil
}

func (m *memAppStore) Update(_ context.Context, app domain.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[app.ID]; !ok {
		return domain.ErrNotFound
	}
	m.apps[app.ID] = app
	return nil
}

func (m *memAppStore) GetByID(_ context.Context, id string) (domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return domain.Application{}, domain.ErrNotFound
	}
	return app, nil
}

func (m *memAppStore) List(context.Context) ([]domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Application, 0, len(m.apps))
	for _, a := range m.apps {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memAppStore) SetLastSync(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return domain.ErrNotFound
	}
	app.LastRoleSync = &at
	m.apps[id] = app
	m.lastSyncs++
	return nil
}

type stubFetcher struct {
	mu      sync.Mutex
	roles   []domain.RemoteRole
	err     error
	calls   int
	gotURL  string
	gotCred ports.Credentials
	block   chan struct{}
	// honorCtx makes a blocked fetch give up when its context ends.
	honorCtx bool
}

// FetchRoles holds on block, when set. It ignores ctx unless honorCtx is set.
func (f *stubFetcher) FetchRoles(ctx context.Context, baseURL string, _ domain.Capability, creds ports.Credentials) ([]domain.RemoteRole, error) {
	f.mu.Lock()
	f.calls++
	f.gotURL = baseURL
	f.gotCred = creds
	block := f.block
	honorCtx := f.honorCtx
	f.mu.Unlock()
	if block != nil {
		if honorCtx {
			select {
			case <-block:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		} else {
			<-block
		}
	}
	return f.roles, f.err
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordedSync struct {
	appType domain.AppType
	outcome string
	synced  int
}

type recordingMetrics struct {
	mu   sync.Mutex
	runs []recordedSync
}

func (r *recordingMetrics) ObserveSync(t domain.AppType, outcome string, synced int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, recordedSync{appType: t, outcome: outcome, synced: synced})
}
