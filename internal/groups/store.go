package groups

import "context"

// Store is the persistence boundary for groups and membership edges.
// All queries are tenant-scoped. Implementations return the package
// sentinel errors for not-found and duplicate conditions.
type Store interface {
	// GroupByID returns the group or ErrGroupNotFound.
	GroupByID(ctx context.Context, tenantID, groupID string) (*Group, error)

	// GroupByOIDCName returns the OIDC-sourced group tracking the
	// given claim name, or ErrGroupNotFound.
	GroupByOIDCName(ctx context.Context, tenantID, oidcName string) (*Group, error)

	// SystemGroup returns the tenant's well-known all-users group, or
	// ErrGroupNotFound when the tenant has not been provisioned yet.
	SystemGroup(ctx context.Context, tenantID string) (*Group, error)

	// ListGroups returns all groups in the tenant.
	ListGroups(ctx context.Context, tenantID string) ([]*Group, error)

	// CreateGroup persists a new group.
	CreateGroup(ctx context.Context, group *Group) error

	// DeleteGroup removes the group and cascades the membership edges
	// it owns. Edges elsewhere that name the deleted group as a member
	// become dangling and are tolerated by the resolver.
	DeleteGroup(ctx context.Context, tenantID, groupID string) error

	// GroupsContainingMember returns the edges whose member side
	// matches, i.e. the direct containers of a user or group.
	GroupsContainingMember(ctx context.Context, tenantID string, memberType MemberType, memberID string) ([]*Membership, error)

	// GroupMembers returns the edges owned by the group, i.e. its
	// direct members.
	GroupMembers(ctx context.Context, tenantID, groupID string) ([]*Membership, error)

	// AddMembership persists an edge, or ErrDuplicateMember when the
	// tuple already exists.
	AddMembership(ctx context.Context, membership *Membership) error

	// RemoveMembership deletes the edge identified by its tuple, or
	// ErrMembershipNotFound.
	RemoveMembership(ctx context.Context, tenantID, groupID string, memberType MemberType, memberID string) error
}
