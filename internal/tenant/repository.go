package tenant

import (
	"context"

	"github.com/tenantcore/tenantcore/internal/authz"
)

// Repository defines the interface for tenant storage
type Repository interface {
	// Create inserts a tenant; a taken slug yields ErrTenantNameUnavailable
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Tenant, error)

	// ConsumeSeat increments seatUsed only while it is below seatLimit,
	// otherwise ErrSeatLimitReached.
	ConsumeSeat(ctx context.Context, tenantID string) error
	ReleaseSeat(ctx context.Context, tenantID string) error
}

// MembershipRepository defines the interface for membership storage. The
// (tenantID, userID) pair is unique.
type MembershipRepository interface {
	Create(ctx context.Context, m *Membership) error
	Get(ctx context.Context, tenantID, userID string) (*Membership, error)
	UpdateRole(ctx context.Context, tenantID, userID string, role authz.Role) error
	Delete(ctx context.Context, tenantID, userID string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*Membership, error)
	ListByUser(ctx context.Context, userID string) ([]*Membership, error)
	CountByRole(ctx context.Context, tenantID string, role authz.Role) (int, error)
	RoleOf(ctx context.Context, tenantID, userID string) (authz.Role, bool, error)
}
