package api

import (
	"encoding/json"
	"net/http"

	"github.com/taskify/taskify/internal/database"
	"github.com/taskify/taskify/internal/types"
)

type UpdateProfileRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type ProfileResponse struct {
	Message string     `json:"message,omitempty"`
	User    types.User `json:"user"`
}

type InvitationsResponse struct {
	Invitations []types.Group `json:"invitations"`
}

func (s *TaskifyApp) getProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetUserByEmail(r.Context(), claims.Email)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, ProfileResponse{User: dbUser.ToApi()})
}

func (s *TaskifyApp) updateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" && req.Avatar == "" {
		errResp := NewValidationError("nothing to update")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.UpdateUserProfile(r.Context(), database.UpdateProfileParams{
		Email:  claims.Email,
		Name:   req.Name,
		Avatar: req.Avatar,
	})
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, ProfileResponse{
		Message: "profile updated successfully",
		User:    dbUser.ToApi(),
	})
}

func (s *TaskifyApp) getInvitations(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbGroups, err := s.db.ListGroupsByMember(r.Context(), claims.Email, types.MemberPending)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	invitations := make([]types.Group, len(dbGroups))
	for i, g := range dbGroups {
		invitations[i] = g.ToApi()
	}

	s.writeJson(w, http.StatusOK, InvitationsResponse{Invitations: invitations})
}
