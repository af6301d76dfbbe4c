package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cklinker/emfgw/internal/events"
	"github.com/cklinker/emfgw/internal/observability"
)

// handlePermissions answers GET /internal/permissions/:userId with the
// caller-scoped effective permission snapshot. Workers cache the
// response with their own TTL.
func (s *Server) handlePermissions(c *gin.Context) {
	userID := c.Param("userId")
	tenantID := c.GetHeader(HeaderTenantID)
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, errorBody(
			http.StatusBadRequest, "MISSING_TENANT", "Missing Tenant",
			"the "+HeaderTenantID+" header is required"))
		return
	}

	perms, err := s.authorizer.EffectivePermissions(c.Request.Context(), tenantID, userID)
	if err != nil {
		// Fail closed: the worker gets an error, never an empty-but-200
		// snapshot it might cache as "no access".
		s.logger.WithContext(c.Request.Context()).Error("permission lookup failed",
			observability.String("tenant_id", tenantID),
			observability.String("user_id", userID),
			observability.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, errorBody(
			http.StatusServiceUnavailable, "PERMISSIONS_UNAVAILABLE", "Permissions Unavailable",
			"permission resolution is temporarily unavailable"))
		return
	}

	c.JSON(http.StatusOK, perms)
}

// syncGroupsRequest is the body of POST /internal/sync-groups.
type syncGroupsRequest struct {
	TenantID string   `json:"tenantId" binding:"required"`
	UserID   string   `json:"userId" binding:"required"`
	Groups   []string `json:"groups"`
}

// syncGroupsResponse reports what the reconciliation changed.
type syncGroupsResponse struct {
	Changed         bool     `json:"changed"`
	JoinedGroupIDs  []string `json:"joinedGroupIds,omitempty"`
	LeftGroupIDs    []string `json:"leftGroupIds,omitempty"`
	CreatedGroupIDs []string `json:"createdGroupIds,omitempty"`
}

// handleSyncGroups reconciles OIDC-sourced membership against the
// claim list and publishes a permission invalidation when anything
// changed. The call is idempotent: replaying the same claims is a
// no-op.
func (s *Server) handleSyncGroups(c *gin.Context) {
	var req syncGroupsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(
			http.StatusBadRequest, "MALFORMED_BODY", "Malformed Request",
			"tenantId and userId are required"))
		return
	}

	result, err := s.syncer.SyncOIDCGroups(c.Request.Context(), req.TenantID, req.UserID, req.Groups)
	if err != nil {
		s.logger.WithContext(c.Request.Context()).Error("group sync failed",
			observability.String("tenant_id", req.TenantID),
			observability.String("user_id", req.UserID),
			observability.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, errorBody(
			http.StatusServiceUnavailable, "SYNC_FAILED", "Group Sync Failed",
			"group synchronization is temporarily unavailable"))
		return
	}

	if result.Changed() {
		// Best effort: a failed publish only delays freshness until the
		// cached snapshot's TTL, it does not fail the sync.
		err := s.publisher.PublishInvalidation(c.Request.Context(), events.PermissionInvalidationEvent{
			TenantID:        req.TenantID,
			AffectedUserIDs: []string{req.UserID},
		})
		if err != nil {
			s.logger.WithContext(c.Request.Context()).Warn("publishing invalidation after sync failed",
				observability.String("tenant_id", req.TenantID),
				observability.String("user_id", req.UserID),
				observability.Error(err),
			)
		}
	}

	c.JSON(http.StatusAccepted, syncGroupsResponse{
		Changed:         result.Changed(),
		JoinedGroupIDs:  result.JoinedGroupIDs,
		LeftGroupIDs:    result.LeftGroupIDs,
		CreatedGroupIDs: result.CreatedGroupIDs,
	})
}

// apiErrorBody matches the platform's JSON error envelope.
type apiErrorBody struct {
	Errors []apiErrorDetail `json:"errors"`
}

type apiErrorDetail struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func errorBody(status int, code, title, detail string) apiErrorBody {
	return apiErrorBody{Errors: []apiErrorDetail{{
		Status: strconv.Itoa(status),
		Code:   code,
		Title:  title,
		Detail: detail,
	}}}
}
