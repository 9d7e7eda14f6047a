package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskify/taskify/internal/database"
	"github.com/taskify/taskify/internal/types"
)

func TestGetProfile(t *testing.T) {
	db := &database.MockTaskifyRepository{}
	db.On("GetUserByEmail", mock.Anything, "alice@example.com").
		Return(database.User{Email: "alice@example.com", Name: "Alice", Status: types.StatusOnline}, nil)
	app := newTestApp(t, db)

	rr := httptest.NewRecorder()
	app.getProfile(rr, authedRequest(t, http.MethodGet, "/api/users/profile", nil, "alice@example.com", "Alice"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp ProfileResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "alice@example.com", resp.User.Email)
	db.AssertExpectations(t)
}

func TestUpdateProfile(t *testing.T) {
	db := &database.MockTaskifyRepository{}
	db.On("UpdateUserProfile", mock.Anything, database.UpdateProfileParams{
		Email:  "alice@example.com",
		Name:   "Alice B",
		Avatar: "https://example.com/avatar.png",
	}).Return(database.User{Email: "alice@example.com", Name: "Alice B", Avatar: "https://example.com/avatar.png"}, nil)
	app := newTestApp(t, db)

	rr := httptest.NewRecorder()
	app.updateProfile(rr, authedRequest(t, http.MethodPatch, "/api/users/profile",
		UpdateProfileRequest{Name: "Alice B", Avatar: "https://example.com/avatar.png"}, "alice@example.com", "Alice"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp ProfileResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Alice B", resp.User.Name, "expected the updated profile back")
	db.AssertExpectations(t)
}

func TestUpdateProfile_NothingToUpdate(t *testing.T) {
	app := newTestApp(t, &database.MockTaskifyRepository{})

	rr := httptest.NewRecorder()
	app.updateProfile(rr, authedRequest(t, http.MethodPatch, "/api/users/profile",
		UpdateProfileRequest{}, "alice@example.com", "Alice"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "nothing to update", decodeError(t, rr).Message)
}

func TestGetInvitations(t *testing.T) {
	groupId := primitive.NewObjectID()
	db := &database.MockTaskifyRepository{}
	db.On("ListGroupsByMember", mock.Anything, "bob@example.com", types.MemberPending).
		Return([]database.Group{{Id: groupId, Name: "project", Creator: "alice@example.com"}}, nil)
	app := newTestApp(t, db)

	rr := httptest.NewRecorder()
	app.getInvitations(rr, authedRequest(t, http.MethodGet, "/api/users/invitations", nil, "bob@example.com", "Bob"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp InvitationsResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Invitations, 1, "expected the pending invitation")
	assert.Equal(t, "project", resp.Invitations[0].Name)
	db.AssertExpectations(t)
}
