package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"security-console/internal/domain"
	"security-console/internal/ports"
)

var defaultSyncedPermissions = []string{"read", "write"}

// SyncedRoleName is the local name of a remote role. Local role creation
// rejects names of this shape, so synced and local names never collide.
func SyncedRoleName(t domain.AppType, remoteName string) string {
	return string(t) + ":" + remoteName
}

// IsSyncedRoleName reports whether name carries a known AppType prefix.
func IsSyncedRoleName(name string) bool {
	for _, t := range domain.AppTypes {
		if strings.HasPrefix(name, string(t)+":") {
			return true
		}
	}
	return false
}

// RoleReconciler upserts remote roles into the local role store. It only
// inserts and updates; roles missing from the remote listing are left alone.
type RoleReconciler struct {
	roles  ports.RoleRepository
	logger ports.Logger
	now    func() time.Time
	newID  func() string
}

func NewRoleReconciler(roles ports.RoleRepository, logger ports.Logger) *RoleReconciler {
	return &RoleReconciler{
		roles:  roles,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
}

// Reconcile returns how many roles were upserted. Inserts and updates count
// the same. The first storage error aborts the batch; earlier upserts stay.
func (r *RoleReconciler) Reconcile(ctx context.Context, appType domain.AppType, remote []domain.RemoteRole) (int, error) {
	synced := 0
	for _, rr := range remote {
		role := r.candidate(appType, rr)
		outcome, err := r.roles.UpsertSynced(ctx, role)
		if err != nil {
			return synced, fmt.Errorf("upsert %s role %q: %w", appType, rr.ExternalID, err)
		}
		synced++
		r.logger.Debug(ctx, "role synced",
			"app_type", string(appType),
			"external_id", rr.ExternalID,
			"outcome", outcome.String(),
		)
	}
	return synced, nil
}

func (r *RoleReconciler) candidate(appType domain.AppType, rr domain.RemoteRole) domain.Role {
	description := fmt.Sprintf("%s role: %s", appType, rr.Name)
	if rr.Description != "" {
		description += " (" + rr.Description + ")"
	}
	permissions := defaultSyncedPermissions
	if len(rr.Permissions) > 0 {
		permissions = rr.Permissions
	}
	now := r.now()
	return domain.Role{
		ID:          r.newID(),
		Name:        SyncedRoleName(appType, rr.Name),
		Description: description,
		Permissions: append([]string(nil), permissions...),
		AppType:     appType,
		ExternalID:  rr.ExternalID,
		IsSynced:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
