package groups

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cklinker/emfgw/internal/observability"
)

// DefaultMaxDepth bounds membership graph traversal. Groups discovered
// beyond this depth stay in the result but are not expanded further.
const DefaultMaxDepth = 10

// Resolver flattens the membership graph. Traversal is iterative with
// an explicit queue and visited set, so cycles and diamonds cost each
// group a single expansion and the call always terminates.
type Resolver struct {
	store    Store
	maxDepth int
	logger   observability.Logger
	metrics  *Metrics
}

// ResolverOption configures the resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(logger observability.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResolverMetrics sets the metrics recorder.
func WithResolverMetrics(metrics *Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = metrics
	}
}

// WithMaxDepth overrides the traversal depth bound.
func WithMaxDepth(depth int) ResolverOption {
	return func(r *Resolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// NewResolver creates a membership resolver backed by store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:    store,
		maxDepth: DefaultMaxDepth,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// frontier is one pending expansion.
type frontier struct {
	groupID string
	depth   int
}

// EffectiveGroupIDs returns every group containing the user directly
// or transitively through nested group edges, as a sorted, deduplicated
// set of group ids. Cycles and depth overruns are bounded conditions,
// not errors; dangling edges are skipped and logged.
func (r *Resolver) EffectiveGroupIDs(ctx context.Context, tenantID, userID string) ([]string, error) {
	start := time.Now()

	visited := make(map[string]struct{})
	var queue []frontier
	truncated := false

	direct, err := r.store.GroupsContainingMember(ctx, tenantID, MemberTypeUser, userID)
	if err != nil {
		return nil, fmt.Errorf("listing direct groups for user %s: %w", userID, err)
	}
	for _, edge := range direct {
		ok, err := r.admitContainer(ctx, tenantID, edge, visited)
		if err != nil {
			return nil, err
		}
		if ok {
			queue = append(queue, frontier{groupID: edge.GroupID, depth: 1})
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= r.maxDepth {
			truncated = true
			continue
		}

		containers, err := r.store.GroupsContainingMember(ctx, tenantID, MemberTypeGroup, current.groupID)
		if err != nil {
			return nil, fmt.Errorf("listing containers of group %s: %w", current.groupID, err)
		}
		for _, edge := range containers {
			ok, err := r.admitContainer(ctx, tenantID, edge, visited)
			if err != nil {
				return nil, err
			}
			if ok {
				queue = append(queue, frontier{groupID: edge.GroupID, depth: current.depth + 1})
			}
		}
	}

	if truncated {
		r.metrics.RecordDepthTruncation()
		r.logger.WithContext(ctx).Debug("membership traversal reached depth limit",
			observability.String("tenant_id", tenantID),
			observability.String("user_id", userID),
			observability.Int("max_depth", r.maxDepth),
		)
	}
	r.metrics.RecordResolve("groups", time.Since(start))

	return sortedKeys(visited), nil
}

// EffectiveUserIDs returns every user contained in the group directly
// or through nested member groups, sorted and deduplicated. Used to
// compute the affected-user set when a group or grant changes.
func (r *Resolver) EffectiveUserIDs(ctx context.Context, tenantID, groupID string) ([]string, error) {
	start := time.Now()

	users := make(map[string]struct{})
	visited := map[string]struct{}{groupID: {}}
	queue := []frontier{{groupID: groupID, depth: 0}}
	truncated := false

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= r.maxDepth {
			truncated = true
			continue
		}

		members, err := r.store.GroupMembers(ctx, tenantID, current.groupID)
		if err != nil {
			return nil, fmt.Errorf("listing members of group %s: %w", current.groupID, err)
		}
		for _, edge := range members {
			switch edge.MemberType {
			case MemberTypeUser:
				users[edge.MemberID] = struct{}{}
			case MemberTypeGroup:
				if _, seen := visited[edge.MemberID]; seen {
					continue
				}
				exists, err := r.groupExists(ctx, tenantID, edge.MemberID)
				if err != nil {
					return nil, err
				}
				if !exists {
					r.skipDangling(ctx, edge, edge.MemberID)
					continue
				}
				visited[edge.MemberID] = struct{}{}
				queue = append(queue, frontier{groupID: edge.MemberID, depth: current.depth + 1})
			}
		}
	}

	if truncated {
		r.metrics.RecordDepthTruncation()
		r.logger.WithContext(ctx).Debug("member traversal reached depth limit",
			observability.String("tenant_id", tenantID),
			observability.String("group_id", groupID),
			observability.Int("max_depth", r.maxDepth),
		)
	}
	r.metrics.RecordResolve("users", time.Since(start))

	return sortedKeys(users), nil
}

// admitContainer validates the container side of an edge and marks it
// visited. Returns false for already-visited groups and for dangling
// edges, which are logged and counted rather than failing resolution.
func (r *Resolver) admitContainer(ctx context.Context, tenantID string, edge *Membership, visited map[string]struct{}) (bool, error) {
	if _, seen := visited[edge.GroupID]; seen {
		return false, nil
	}
	exists, err := r.groupExists(ctx, tenantID, edge.GroupID)
	if err != nil {
		return false, err
	}
	if !exists {
		r.skipDangling(ctx, edge, edge.GroupID)
		return false, nil
	}
	visited[edge.GroupID] = struct{}{}
	return true, nil
}

func (r *Resolver) groupExists(ctx context.Context, tenantID, groupID string) (bool, error) {
	_, err := r.store.GroupByID(ctx, tenantID, groupID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrGroupNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("loading group %s: %w", groupID, err)
}

func (r *Resolver) skipDangling(ctx context.Context, edge *Membership, missingID string) {
	r.metrics.RecordDanglingEdge()
	r.logger.WithContext(ctx).Warn("skipping dangling membership edge",
		observability.String("membership_id", edge.ID),
		observability.String("group_id", edge.GroupID),
		observability.String("member_type", string(edge.MemberType)),
		observability.String("member_id", edge.MemberID),
		observability.String("missing_group_id", missingID),
	)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
