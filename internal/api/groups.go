package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskify/taskify/internal/database"
	"github.com/taskify/taskify/internal/gateway"
	"github.com/taskify/taskify/internal/types"
)

type CreateGroupRequest struct {
	Name         string   `json:"name"`
	InvitedUsers []string `json:"invited_users"`
}

type InviteRequest struct {
	Users []string `json:"users"`
}

type GroupResponse struct {
	Message string      `json:"message,omitempty"`
	Group   types.Group `json:"group"`
}

type GroupsResponse struct {
	Groups []types.Group `json:"groups"`
}

type MessagesResponse struct {
	Messages []types.Message `json:"messages"`
}

// adminGroup loads the group and verifies the caller holds an active
// admin membership in it.
func (s *TaskifyApp) adminGroup(ctx context.Context, groupId, email string) (database.Group, *ApiError) {
	dbGroup, err := s.db.GetGroupById(ctx, groupId)
	if err != nil {
		return database.Group{}, storeError(err)
	}

	if !dbGroup.ToApi().IsActiveAdmin(email) {
		return database.Group{}, NewApiError(http.StatusForbidden, "admin access required")
	}

	return dbGroup, nil
}

func (s *TaskifyApp) createGroup(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" {
		errResp := NewValidationError("group name is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	now := time.Now().UTC()
	members := []database.Member{{
		Email:    claims.Email,
		Status:   types.MemberActive,
		Role:     types.RoleAdmin,
		JoinedAt: now,
	}}
	for _, email := range req.InvitedUsers {
		email = normalizeEmail(email)
		if email == "" || email == claims.Email {
			continue
		}
		members = append(members, database.Member{
			Email:    email,
			Status:   types.MemberPending,
			Role:     types.RoleMember,
			JoinedAt: now,
		})
	}

	newGroup, err := s.db.CreateGroup(r.Context(), database.CreateGroupParams{
		Name:    req.Name,
		Creator: claims.Email,
		Members: members,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// creator's live connection joins the new channel right away
	s.gw.SubscribeIdentity(claims.Email, newGroup.Id.Hex())

	s.writeJson(w, http.StatusCreated, GroupResponse{
		Message: "group created successfully",
		Group:   newGroup.ToApi(),
	})
}

func (s *TaskifyApp) listGroups(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbGroups, err := s.db.ListGroupsByMember(r.Context(), claims.Email, types.MemberActive)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	groups := make([]types.Group, len(dbGroups))
	for i, g := range dbGroups {
		groups[i] = g.ToApi()
	}

	s.writeJson(w, http.StatusOK, GroupsResponse{Groups: groups})
}

func (s *TaskifyApp) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	groupId := r.PathValue("id")
	dbGroup, err := s.db.GetGroupById(r.Context(), groupId)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var member *database.Member
	for i := range dbGroup.Members {
		if dbGroup.Members[i].Email == claims.Email {
			member = &dbGroup.Members[i]
			break
		}
	}

	if member == nil {
		errResp := NewApiError(http.StatusForbidden, "you are not invited to this group")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if member.Status == types.MemberActive {
		errResp := NewConflictError("already a member")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbGroup, err = s.db.UpdateMemberStatus(r.Context(), groupId, claims.Email, types.MemberActive)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.gw.SubscribeIdentity(claims.Email, groupId)

	s.writeJson(w, http.StatusOK, GroupResponse{
		Message: "successfully joined the group",
		Group:   dbGroup.ToApi(),
	})
}

func (s *TaskifyApp) leaveGroup(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	groupId := r.PathValue("id")
	dbGroup, err := s.db.GetGroupById(r.Context(), groupId)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	group := dbGroup.ToApi()
	member, isActive := group.ActiveMember(claims.Email)
	if !isActive {
		errResp := NewApiError(http.StatusForbidden, "you are not a member of this group")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// the group must never be left without an active admin
	if member.Role == types.RoleAdmin && group.AdminCount() == 1 {
		errResp := NewConflictError("cannot leave the group as its last admin")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.RemoveMember(r.Context(), groupId, claims.Email); err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.gw.UnsubscribeIdentity(claims.Email, groupId)
	s.gw.BroadcastGroup(groupId, gateway.MemberLeftEvent(groupId, claims.Email))

	s.writeJson(w, http.StatusOK, map[string]string{"message": "successfully left the group"})
}

func (s *TaskifyApp) inviteUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	groupId := r.PathValue("id")
	dbGroup, apiErr := s.adminGroup(r.Context(), groupId, claims.Email)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	existing := make(map[string]struct{}, len(dbGroup.Members))
	for _, m := range dbGroup.Members {
		existing[m.Email] = struct{}{}
	}

	now := time.Now().UTC()
	var newMembers []database.Member
	var invited []string
	for _, email := range req.Users {
		email = normalizeEmail(email)
		if email == "" {
			continue
		}
		if _, ok := existing[email]; ok {
			continue
		}
		existing[email] = struct{}{}
		invited = append(invited, email)
		newMembers = append(newMembers, database.Member{
			Email:    email,
			Status:   types.MemberPending,
			Role:     types.RoleMember,
			JoinedAt: now,
		})
	}

	if len(newMembers) > 0 {
		dbGroup, err := s.db.AddMembers(r.Context(), groupId, newMembers)
		if err != nil {
			errResp := storeError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		for _, email := range invited {
			s.gw.NotifyIdentity(email, gateway.GroupInvitationEvent(groupId, dbGroup.Name, claims.Email))
		}

		s.writeJson(w, http.StatusOK, GroupResponse{
			Message: "invitations sent successfully",
			Group:   dbGroup.ToApi(),
		})
		return
	}

	s.writeJson(w, http.StatusOK, GroupResponse{
		Message: "invitations sent successfully",
		Group:   dbGroup.ToApi(),
	})
}

func (s *TaskifyApp) removeMember(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	groupId := r.PathValue("id")
	dbGroup, apiErr := s.adminGroup(r.Context(), groupId, claims.Email)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	target := normalizeEmail(r.PathValue("email"))

	var member *database.Member
	for i := range dbGroup.Members {
		if dbGroup.Members[i].Email == target {
			member = &dbGroup.Members[i]
			break
		}
	}

	if member == nil {
		errResp := NewApiError(http.StatusNotFound, "user not found in group")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if member.Role == types.RoleAdmin && dbGroup.ToApi().AdminCount() == 1 {
		errResp := NewConflictError("cannot remove the last admin")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	updated, err := s.db.RemoveMember(r.Context(), groupId, target)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.gw.UnsubscribeIdentity(target, groupId)
	s.gw.BroadcastGroup(groupId, gateway.MemberRemovedEvent(groupId, target))

	s.writeJson(w, http.StatusOK, GroupResponse{
		Message: "user removed successfully",
		Group:   updated.ToApi(),
	})
}

func (s *TaskifyApp) getMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	groupId := r.PathValue("id")
	dbGroup, err := s.db.GetGroupById(r.Context(), groupId)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, isActive := dbGroup.ToApi().ActiveMember(claims.Email); !isActive {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var before time.Time
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		before, err = time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			errResp := NewValidationError("invalid before timestamp")
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			errResp := NewValidationError("invalid limit")
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbMessages, err := s.db.ListMessages(r.Context(), groupId, before, limit)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// the store returns the newest-first window; clients render oldest-first
	messages := make([]types.Message, len(dbMessages))
	for i, m := range dbMessages {
		messages[i] = m.ToApi()
	}
	slices.Reverse(messages)

	s.writeJson(w, http.StatusOK, MessagesResponse{Messages: messages})
}
