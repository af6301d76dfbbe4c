package groups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cklinker/emfgw/internal/audit"
	"github.com/cklinker/emfgw/internal/observability"
)

// SystemGroupName is the display name of the per-tenant well-known
// group containing all authenticated users.
const SystemGroupName = "All Users"

// Service owns group and membership mutations. Every mutation returns
// the user ids whose effective permissions may have changed so the
// caller can publish a cache invalidation for exactly those users.
type Service struct {
	store    Store
	resolver *Resolver
	logger   observability.Logger
	auditor  audit.Logger
	metrics  *Metrics
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(logger observability.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServiceAuditor sets the audit sink.
func WithServiceAuditor(auditor audit.Logger) ServiceOption {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithServiceMetrics sets the metrics recorder.
func WithServiceMetrics(metrics *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// NewService creates a group service.
func NewService(store Store, resolver *Resolver, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		resolver: resolver,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncResult describes what an OIDC reconciliation changed.
type SyncResult struct {
	JoinedGroupIDs  []string `json:"joinedGroupIds,omitempty"`
	LeftGroupIDs    []string `json:"leftGroupIds,omitempty"`
	CreatedGroupIDs []string `json:"createdGroupIds,omitempty"`
}

// Changed reports whether the reconciliation altered any membership.
func (r *SyncResult) Changed() bool {
	return len(r.JoinedGroupIDs) > 0 || len(r.LeftGroupIDs) > 0
}

// SyncOIDCGroups reconciles the user's OIDC-sourced memberships against
// the claim list: OIDC groups are found or created by claim name, the
// user joins groups newly present in the claims and leaves OIDC groups
// no longer listed. Memberships in MANUAL and SYSTEM groups are never
// touched. The call is idempotent.
func (s *Service) SyncOIDCGroups(ctx context.Context, tenantID, userID string, claimGroups []string) (*SyncResult, error) {
	result := &SyncResult{}

	if err := s.ensureSystemMembership(ctx, tenantID, userID, result); err != nil {
		s.metrics.RecordSync("error")
		return nil, err
	}

	current, err := s.currentOIDCGroups(ctx, tenantID, userID)
	if err != nil {
		s.metrics.RecordSync("error")
		return nil, err
	}

	desired := make(map[string]struct{}, len(claimGroups))
	for _, name := range claimGroups {
		if name == "" {
			continue
		}
		desired[name] = struct{}{}
	}

	for name := range desired {
		if _, member := current[name]; member {
			continue
		}
		group, created, err := s.findOrCreateOIDCGroup(ctx, tenantID, name)
		if err != nil {
			s.metrics.RecordSync("error")
			return nil, err
		}
		if created {
			result.CreatedGroupIDs = append(result.CreatedGroupIDs, group.ID)
		}
		if err := s.addMember(ctx, tenantID, group.ID, MemberTypeUser, userID); err != nil {
			s.metrics.RecordSync("error")
			return nil, err
		}
		result.JoinedGroupIDs = append(result.JoinedGroupIDs, group.ID)
	}

	for name, group := range current {
		if _, wanted := desired[name]; wanted {
			continue
		}
		err := s.store.RemoveMembership(ctx, tenantID, group.ID, MemberTypeUser, userID)
		if err != nil && !errors.Is(err, ErrMembershipNotFound) {
			s.metrics.RecordSync("error")
			return nil, fmt.Errorf("leaving group %s: %w", group.ID, err)
		}
		result.LeftGroupIDs = append(result.LeftGroupIDs, group.ID)
	}

	if result.Changed() {
		s.metrics.RecordSync("changed")
		s.recordMembershipEvent(ctx, audit.ActionGroupSync, tenantID, userID, map[string]any{
			"joined":  len(result.JoinedGroupIDs),
			"left":    len(result.LeftGroupIDs),
			"created": len(result.CreatedGroupIDs),
		})
	} else {
		s.metrics.RecordSync("unchanged")
	}

	return result, nil
}

// ensureSystemMembership provisions the tenant's all-users group on
// first contact and enrolls the user. SYSTEM-sourced membership is
// outside OIDC reconciliation, so later syncs leave it alone.
func (s *Service) ensureSystemMembership(ctx context.Context, tenantID, userID string, result *SyncResult) error {
	system, err := s.store.SystemGroup(ctx, tenantID)
	if errors.Is(err, ErrGroupNotFound) {
		system = &Group{
			ID:        uuid.NewString(),
			TenantID:  tenantID,
			Name:      SystemGroupName,
			Type:      GroupTypeSystem,
			Source:    SourceSystem,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if createErr := s.store.CreateGroup(ctx, system); createErr != nil {
			return fmt.Errorf("provisioning system group: %w", createErr)
		}
		result.CreatedGroupIDs = append(result.CreatedGroupIDs, system.ID)
	} else if err != nil {
		return fmt.Errorf("loading system group: %w", err)
	}

	err = s.addMember(ctx, tenantID, system.ID, MemberTypeUser, userID)
	if err == nil {
		result.JoinedGroupIDs = append(result.JoinedGroupIDs, system.ID)
		return nil
	}
	if errors.Is(err, errAlreadyMember) {
		return nil
	}
	return err
}

// currentOIDCGroups maps the claim names of the OIDC groups the user
// is currently a direct member of.
func (s *Service) currentOIDCGroups(ctx context.Context, tenantID, userID string) (map[string]*Group, error) {
	edges, err := s.store.GroupsContainingMember(ctx, tenantID, MemberTypeUser, userID)
	if err != nil {
		return nil, fmt.Errorf("listing memberships for user %s: %w", userID, err)
	}

	current := make(map[string]*Group)
	for _, edge := range edges {
		group, err := s.store.GroupByID(ctx, tenantID, edge.GroupID)
		if errors.Is(err, ErrGroupNotFound) {
			s.logger.WithContext(ctx).Warn("skipping dangling membership edge during sync",
				observability.String("membership_id", edge.ID),
				observability.String("group_id", edge.GroupID),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading group %s: %w", edge.GroupID, err)
		}
		if group.Source == SourceOIDC {
			current[group.OIDCGroupName] = group
		}
	}
	return current, nil
}

func (s *Service) findOrCreateOIDCGroup(ctx context.Context, tenantID, claimName string) (*Group, bool, error) {
	group, err := s.store.GroupByOIDCName(ctx, tenantID, claimName)
	if err == nil {
		return group, false, nil
	}
	if !errors.Is(err, ErrGroupNotFound) {
		return nil, false, fmt.Errorf("looking up OIDC group %q: %w", claimName, err)
	}

	group = &Group{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		Name:          claimName,
		Type:          GroupTypePublic,
		Source:        SourceOIDC,
		OIDCGroupName: claimName,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		// Lost a race with a concurrent sync for the same claim.
		if errors.Is(err, ErrDuplicateGroup) {
			existing, lookupErr := s.store.GroupByOIDCName(ctx, tenantID, claimName)
			if lookupErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("creating OIDC group %q: %w", claimName, err)
	}
	return group, true, nil
}

// errAlreadyMember signals an idempotent add that changed nothing.
var errAlreadyMember = errors.New("already a member")

func (s *Service) addMember(ctx context.Context, tenantID, groupID string, memberType MemberType, memberID string) error {
	membership := &Membership{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		GroupID:    groupID,
		MemberType: memberType,
		MemberID:   memberID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := membership.Validate(); err != nil {
		return err
	}
	err := s.store.AddMembership(ctx, membership)
	if errors.Is(err, ErrDuplicateMember) {
		return errAlreadyMember
	}
	if err != nil {
		return fmt.Errorf("adding member %s to group %s: %w", memberID, groupID, err)
	}
	return nil
}

// CreateGroup validates and persists a new manually managed group.
// SYSTEM groups are provisioned internally and cannot be created here.
func (s *Service) CreateGroup(ctx context.Context, group *Group) error {
	if group.Type == GroupTypeSystem || group.Source == SourceSystem {
		return fmt.Errorf("%w: cannot be created through the API", ErrSystemGroup)
	}
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now
	if err := group.Validate(); err != nil {
		return err
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return err
	}
	s.recordMembershipEvent(ctx, audit.ActionGroupChange, group.TenantID, "", map[string]any{
		"group_id": group.ID,
		"change":   "created",
	})
	return nil
}

// DeleteGroup removes a group and returns the users whose effective
// permissions may change. The affected set is computed before deletion
// while the member edges still exist. SYSTEM groups cannot be deleted.
func (s *Service) DeleteGroup(ctx context.Context, tenantID, groupID string) ([]string, error) {
	group, err := s.store.GroupByID(ctx, tenantID, groupID)
	if err != nil {
		return nil, err
	}
	if group.Type == GroupTypeSystem {
		return nil, fmt.Errorf("%w: %s", ErrSystemGroup, groupID)
	}

	affected, err := s.resolver.EffectiveUserIDs(ctx, tenantID, groupID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteGroup(ctx, tenantID, groupID); err != nil {
		return nil, err
	}

	s.recordMembershipEvent(ctx, audit.ActionGroupChange, tenantID, "", map[string]any{
		"group_id": groupID,
		"change":   "deleted",
	})
	return affected, nil
}

// AddUserToGroup adds a direct USER edge and returns the affected user.
func (s *Service) AddUserToGroup(ctx context.Context, tenantID, groupID, userID string) ([]string, error) {
	if _, err := s.store.GroupByID(ctx, tenantID, groupID); err != nil {
		return nil, err
	}
	err := s.addMember(ctx, tenantID, groupID, MemberTypeUser, userID)
	if errors.Is(err, errAlreadyMember) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []string{userID}, nil
}

// RemoveUserFromGroup removes a direct USER edge.
func (s *Service) RemoveUserFromGroup(ctx context.Context, tenantID, groupID, userID string) ([]string, error) {
	err := s.store.RemoveMembership(ctx, tenantID, groupID, MemberTypeUser, userID)
	if errors.Is(err, ErrMembershipNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []string{userID}, nil
}

// AddChildGroup nests child inside parent. Direct self containment is
// rejected at this boundary; longer cycles are legal and bounded by the
// resolver. Affected users are everyone effectively inside the child,
// since they all gain the parent's grants.
func (s *Service) AddChildGroup(ctx context.Context, tenantID, parentID, childID string) ([]string, error) {
	if _, err := s.store.GroupByID(ctx, tenantID, parentID); err != nil {
		return nil, fmt.Errorf("parent: %w", err)
	}
	if _, err := s.store.GroupByID(ctx, tenantID, childID); err != nil {
		return nil, fmt.Errorf("child: %w", err)
	}

	err := s.addMember(ctx, tenantID, parentID, MemberTypeGroup, childID)
	if errors.Is(err, errAlreadyMember) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.resolver.EffectiveUserIDs(ctx, tenantID, childID)
}

// RemoveChildGroup unnests child from parent. The affected set is
// computed before the edge is removed so it still reflects the users
// who are about to lose the parent's grants.
func (s *Service) RemoveChildGroup(ctx context.Context, tenantID, parentID, childID string) ([]string, error) {
	affected, err := s.resolver.EffectiveUserIDs(ctx, tenantID, childID)
	if err != nil {
		return nil, err
	}

	err = s.store.RemoveMembership(ctx, tenantID, parentID, MemberTypeGroup, childID)
	if errors.Is(err, ErrMembershipNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return affected, nil
}

func (s *Service) recordMembershipEvent(ctx context.Context, action audit.Action, tenantID, userID string, details map[string]any) {
	if s.auditor == nil {
		return
	}
	event := audit.NewEvent(audit.EventTypeMembership, action, audit.OutcomeApplied)
	event.TenantID = tenantID
	event.UserID = userID
	event.Details = details
	s.auditor.Record(ctx, event)
}
