package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskify/taskify/internal/auth"
	"github.com/taskify/taskify/internal/config"
	"github.com/taskify/taskify/internal/database"
	"github.com/taskify/taskify/internal/gateway"
	"github.com/taskify/taskify/internal/stats"
	"github.com/taskify/taskify/internal/testutil"
	"github.com/taskify/taskify/internal/types"
)

func newTestApp(t *testing.T, db database.TaskifyRepository) *TaskifyApp {
	t.Helper()

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Return()
	su.On("Incr", mock.Anything).Return()
	su.On("Decr", mock.Anything).Return()

	gw, err := gateway.NewGateway(testutil.TestLogger(t), db, su)
	assert.NoError(t, err, "expected no error creating gateway")

	cfg, err := config.NewConfig("localhost:8080", "mongodb://localhost:27017", "taskify-test",
		base64.StdEncoding.EncodeToString([]byte("test-signing-key")), []string{"http://localhost:3000"}, "")
	assert.NoError(t, err, "expected no error creating config")

	issuer := auth.NewTokenIssuer(cfg.SigningKey, auth.DefaultTokenExpiration)
	return NewTaskifyApp(http.NewServeMux(), testutil.TestLogger(t), gw, db, issuer, cfg)
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body), "expected no error encoding body")
	}
	return httptest.NewRequest(method, target, &buf)
}

func authedRequest(t *testing.T, method, target string, body any, email, name string) *http.Request {
	t.Helper()

	r := jsonRequest(t, method, target, body)
	ctx := WithUserClaims(r.Context(), &auth.SessionClaims{Email: email, Name: name})
	return r.WithContext(ctx)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ApiError {
	t.Helper()

	var apiErr ApiError
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&apiErr), "expected a decodable error body")
	return apiErr
}

func duplicateKeyError() error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
}

func TestSignup(t *testing.T) {
	tt := []struct {
		name           string
		body           any
		setupMock      func(db *database.MockTaskifyRepository)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "success",
			body: SignupRequest{Email: "alice@example.com", Password: "password123", Name: "Alice"},
			setupMock: func(db *database.MockTaskifyRepository) {
				db.On("CreateUser", mock.Anything, mock.MatchedBy(func(p database.CreateUserParams) bool {
					return p.Email == "alice@example.com" && p.Name == "Alice" && p.PasswordHash != "password123"
				})).Return(database.User{Email: "alice@example.com", Name: "Alice"}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing fields",
			body:           SignupRequest{Email: "alice@example.com"},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "please provide all required fields",
		},
		{
			name:           "invalid email",
			body:           SignupRequest{Email: "not-an-email", Password: "password123", Name: "Alice"},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid email format",
		},
		{
			name:           "short password",
			body:           SignupRequest{Email: "alice@example.com", Password: "pw", Name: "Alice"},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "password must be at least 6 characters long",
		},
		{
			name: "duplicate email",
			body: SignupRequest{Email: "alice@example.com", Password: "password123", Name: "Alice"},
			setupMock: func(db *database.MockTaskifyRepository) {
				db.On("CreateUser", mock.Anything, mock.Anything).Return(database.User{}, duplicateKeyError())
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "user already exists",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockTaskifyRepository{}
			if tc.setupMock != nil {
				tc.setupMock(db)
			}
			app := newTestApp(t, db)

			rr := httptest.NewRecorder()
			app.signup(rr, jsonRequest(t, http.MethodPost, "/api/auth/signup", tc.body))

			assert.Equal(t, tc.expectedStatus, rr.Code, "expected status code to match")
			if tc.expectedMsg != "" {
				assert.Equal(t, tc.expectedMsg, decodeError(t, rr).Message, "expected error message to match")
			}
			db.AssertExpectations(t)
		})
	}
}

func TestSignup_ReturnsToken(t *testing.T) {
	db := &database.MockTaskifyRepository{}
	db.On("CreateUser", mock.Anything, mock.Anything).
		Return(database.User{Email: "alice@example.com", Name: "Alice"}, nil)
	app := newTestApp(t, db)

	rr := httptest.NewRecorder()
	app.signup(rr, jsonRequest(t, http.MethodPost, "/api/auth/signup",
		SignupRequest{Email: "alice@example.com", Password: "password123", Name: "Alice"}))

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp AuthResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token, "expected a session token")

	claims, err := app.issuer.Validate(resp.Token)
	assert.NoError(t, err, "expected the issued token to validate")
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestLogin(t *testing.T) {
	pwdHash, err := auth.HashPassword("password123")
	assert.NoError(t, err)

	tt := []struct {
		name           string
		body           any
		setupMock      func(db *database.MockTaskifyRepository)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "success",
			body: LoginRequest{Email: "Alice@Example.com", Password: "password123"},
			setupMock: func(db *database.MockTaskifyRepository) {
				db.On("GetUserByEmail", mock.Anything, "alice@example.com").
					Return(database.User{Email: "alice@example.com", Name: "Alice", PasswordHash: pwdHash}, nil)
				db.On("UpdateUserStatus", mock.Anything, "alice@example.com", types.StatusOnline, mock.Anything).
					Return(database.User{Email: "alice@example.com", Name: "Alice", Status: types.StatusOnline}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing fields",
			body:           LoginRequest{Email: "alice@example.com"},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "please provide email and password",
		},
		{
			name: "unknown user",
			body: LoginRequest{Email: "alice@example.com", Password: "password123"},
			setupMock: func(db *database.MockTaskifyRepository) {
				db.On("GetUserByEmail", mock.Anything, "alice@example.com").
					Return(database.User{}, mongo.ErrNoDocuments)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedMsg:    "invalid credentials",
		},
		{
			name: "wrong password",
			body: LoginRequest{Email: "alice@example.com", Password: "not-the-password"},
			setupMock: func(db *database.MockTaskifyRepository) {
				db.On("GetUserByEmail", mock.Anything, "alice@example.com").
					Return(database.User{Email: "alice@example.com", PasswordHash: pwdHash}, nil)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedMsg:    "invalid credentials",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockTaskifyRepository{}
			if tc.setupMock != nil {
				tc.setupMock(db)
			}
			app := newTestApp(t, db)

			rr := httptest.NewRecorder()
			app.login(rr, jsonRequest(t, http.MethodPost, "/api/auth/login", tc.body))

			assert.Equal(t, tc.expectedStatus, rr.Code, "expected status code to match")
			if tc.expectedMsg != "" {
				assert.Equal(t, tc.expectedMsg, decodeError(t, rr).Message, "expected error message to match")
			}
			db.AssertExpectations(t)
		})
	}
}

func TestLogout(t *testing.T) {
	db := &database.MockTaskifyRepository{}
	db.On("UpdateUserStatus", mock.Anything, "alice@example.com", types.StatusOffline, mock.Anything).
		Return(database.User{Email: "alice@example.com", Status: types.StatusOffline}, nil)
	app := newTestApp(t, db)

	rr := httptest.NewRecorder()
	app.logout(rr, authedRequest(t, http.MethodPost, "/api/auth/logout", nil, "alice@example.com", "Alice"))

	assert.Equal(t, http.StatusOK, rr.Code, "expected logout to succeed")
	db.AssertExpectations(t)
}

func TestCreateGroup(t *testing.T) {
	groupId := primitive.NewObjectID()
	db := &database.MockTaskifyRepository{}
	db.On("CreateGroup", mock.Anything, mock.MatchedBy(func(p database.CreateGroupParams) bool {
		if p.Name != "project" || p.Creator != "alice@example.com" || len(p.Members) != 2 {
			return false
		}
		creator, invitee := p.Members[0], p.Members[1]
		return creator.Email == "alice@example.com" && creator.Status == types.MemberActive && creator.Role == types.RoleAdmin &&
			invitee.Email == "bob@example.com" && invitee.Status == types.MemberPending && invitee.Role == types.RoleMember
	})).Return(database.Group{Id: groupId, Name: "project", Creator: "alice@example.com"}, nil)
	app := newTestApp(t, db)

	rr := httptest.NewRecorder()
	app.createGroup(rr, authedRequest(t, http.MethodPost, "/api/groups",
		CreateGroupRequest{Name: "project", InvitedUsers: []string{"Bob@Example.com", "alice@example.com"}},
		"alice@example.com", "Alice"))

	assert.Equal(t, http.StatusCreated, rr.Code, "expected group creation to succeed")
	db.AssertExpectations(t)
}

func TestCreateGroup_MissingName(t *testing.T) {
	app := newTestApp(t, &database.MockTaskifyRepository{})

	rr := httptest.NewRecorder()
	app.createGroup(rr, authedRequest(t, http.MethodPost, "/api/groups",
		CreateGroupRequest{}, "alice@example.com", "Alice"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "group name is required", decodeError(t, rr).Message)
}

func TestAcceptInvitation(t *testing.T) {
	groupId := primitive.NewObjectID()

	tt := []struct {
		name           string
		email          string
		members        []database.Member
		setupMock      func(db *database.MockTaskifyRepository)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:  "success",
			email: "bob@example.com",
			members: []database.Member{
				{Email: "alice@example.com", Status: types.MemberActive, Role: types.RoleAdmin},
				{Email: "bob@example.com", Status: types.MemberPending, Role: types.RoleMember},
			},
			setupMock: func(db *database.MockTaskifyRepository) {
				db.On("UpdateMemberStatus", mock.Anything, groupId.Hex(), "bob@example.com", types.MemberActive).
					Return(database.Group{Id: groupId}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "not invited",
			email: "carol@example.com",
			members: []database.Member{
				{Email: "alice@example.com", Status: types.MemberActive, Role: types.RoleAdmin},
			},
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "you are not invited to this group",
		},
		{
			name:  "already a member",
			email: "bob@example.com",
			members: []database.Member{
				{Email: "bob@example.com", Status: types.MemberActive, Role: types.RoleMember},
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "already a member",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockTaskifyRepository{}
			db.On("GetGroupById", mock.Anything, groupId.Hex()).
				Return(database.Group{Id: groupId, Members: tc.members}, nil)
			if tc.setupMock != nil {
				tc.setupMock(db)
			}
			app := newTestApp(t, db)

			r := authedRequest(t, http.MethodPost, fmt.Sprintf("/api/groups/%s/accept", groupId.Hex()), nil, tc.email, "")
			r.SetPathValue("id", groupId.Hex())

			rr := httptest.NewRecorder()
			app.acceptInvitation(rr, r)

			assert.Equal(t, tc.expectedStatus, rr.Code, "expected status code to match")
			if tc.expectedMsg != "" {
				assert.Equal(t, tc.expectedMsg, decodeError(t, rr).Message, "expected error message to match")
			}
			db.AssertExpectations(t)
		})
	}
}

func TestLeaveGroup(t *testing.T) {
	groupId := primitive.NewObjectID()

	tt := []struct {
		name           string
		email          string
		members        []database.Member
		setupMock      func(db *database.MockTaskifyRepository)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:  "success",
			email: "bob@example.com",
			members: []database.Member{
				{Email: "alice@example.com", Status: types.MemberActive, Role: types.RoleAdmin},
				{Email: "bob@example.com", Status: types.MemberActive, Role: types.RoleMember},
			},
			setupMock: func(db *database.MockTaskifyRepository) {
				db.On("RemoveMember", mock.Anything, groupId.Hex(), "bob@example.com").
					Return(database.Group{Id: groupId}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "not a member",
			email: "carol@example.com",
			members: []database.Member{
				{Email: "alice@example.com", Status: types.MemberActive, Role: types.RoleAdmin},
			},
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "you are not a member of this group",
		},
		{
			name:  "last admin",
			email: "alice@example.com",
			members: []database.Member{
				{Email: "alice@example.com", Status: types.MemberActive, Role: types.RoleAdmin},
				{Email: "bob@example.com", Status: types.MemberActive, Role: types.RoleMember},
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "cannot leave the group as its last admin",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockTaskifyRepository{}
			db.On("GetGroupById", mock.Anything, groupId.Hex()).
				Return(database.Group{Id: groupId, Members: tc.members}, nil)
			if tc.setupMock != nil {
				tc.setupMock(db)
			}
			app := newTestApp(t, db)

			r := authedRequest(t, http.MethodPost, fmt.Sprintf("/api/groups/%s/leave", groupId.Hex()), nil, tc.email, "")
			r.SetPathValue("id", groupId.Hex())

			rr := httptest.NewRecorder()
			app.leaveGroup(rr, r)

			assert.Equal(t, tc.expectedStatus, rr.Code, "expected status code to match")
			if tc.expectedMsg != "" {
				assert.Equal(t, tc.expectedMsg, decodeError(t, rr).Message, "expected error message to match")
			}
			db.AssertExpectations(t)
		})
	}
}

func TestInviteUsers_FiltersExistingMembers(t *testing.T) {
	groupId := primitive.NewObjectID()
	db := &database.MockTaskifyRepository{}
	db.On("GetGroupById", mock.Anything, groupId.Hex()).Return(database.Group{
		Id:   groupId,
		Name: "project",
		Members: []database.Member{
			{Email: "alice@example.com", Status: types.MemberActive, Role: types.RoleAdmin},
			{Email: "bob@example.com", Status: types.MemberPending, Role: types.RoleMember},
		},
	}, nil)
	db.On("AddMembers", mock.Anything, groupId.Hex(), mock.MatchedBy(func(members []database.Member) bool {
		return len(members) == 1 && members[0].Email == "carol@example.com" && members[0].Status == types.MemberPending
	})).Return(database.Group{Id: groupId, Name: "project"}, nil)
	app := newTestApp(t, db)

	r := authedRequest(t, http.MethodPost, fmt.Sprintf("/api/groups/%s/invite", groupId.Hex()),
		InviteRequest{Users: []string{"bob@example.com", "Carol@Example.com"}}, "alice@example.com", "Alice")
	r.SetPathValue("id", groupId.Hex())

	rr := httptest.NewRecorder()
	app.inviteUsers(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code, "expected invitations to be sent")
	db.AssertExpectations(t)
}

func TestInviteUsers_RequiresAdmin(t *testing.T) {
	groupId := primitive.NewObjectID()
	db := &database.MockTaskifyRepository{}
	db.On("GetGroupById", mock.Anything, groupId.Hex()).Return(database.Group{
		Id: groupId,
		Members: []database.Member{
			{Email: "bob@example.com", Status: types.MemberActive, Role: types.RoleMember},
		},
	}, nil)
	app := newTestApp(t, db)

	r := authedRequest(t, http.MethodPost, fmt.Sprintf("/api/groups/%s/invite", groupId.Hex()),
		InviteRequest{Users: []string{"carol@example.com"}}, "bob@example.com", "Bob")
	r.SetPathValue("id", groupId.Hex())

	rr := httptest.NewRecorder()
	app.inviteUsers(rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "admin access required", decodeError(t, rr).Message)
	db.AssertNotCalled(t, "AddMembers", mock.Anything, mock.Anything, mock.Anything)
}

func TestRemoveMember(t *testing.T) {
	groupId := primitive.NewObjectID()

	tt := []struct {
		name           string
		target         string
		members        []database.Member
		setupMock      func(db *database.MockTaskifyRepository)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:   "success",
			target: "bob@example.com",
			members: []database.Member{
				{Email: "alice@example.com", Status: types.MemberActive, Role: types.RoleAdmin},
				{Email: "bob@example.com", Status: types.MemberActive, Role: types.RoleMember},
			},
			setupMock: func(db *database.MockTaskifyRepository) {
				db.On("RemoveMember", mock.Anything, groupId.Hex(), "bob@example.com").
					Return(database.Group{Id: groupId}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "target not in group",
			target: "carol@example.com",
			members: []database.Member{
				{Email: "alice@example.com", Status: types.MemberActive, Role: types.RoleAdmin},
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "user not found in group",
		},
		{
			name:   "last admin",
			target: "alice@example.com",
			members: []database.Member{
				{Email: "alice@example.com", Status: types.MemberActive, Role: types.RoleAdmin},
				{Email: "bob@example.com", Status: types.MemberActive, Role: types.RoleMember},
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "cannot remove the last admin",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockTaskifyRepository{}
			db.On("GetGroupById", mock.Anything, groupId.Hex()).
				Return(database.Group{Id: groupId, Members: tc.members}, nil)
			if tc.setupMock != nil {
				tc.setupMock(db)
			}
			app := newTestApp(t, db)

			r := authedRequest(t, http.MethodPost,
				fmt.Sprintf("/api/groups/%s/remove/%s", groupId.Hex(), tc.target), nil, "alice@example.com", "Alice")
			r.SetPathValue("id", groupId.Hex())
			r.SetPathValue("email", tc.target)

			rr := httptest.NewRecorder()
			app.removeMember(rr, r)

			assert.Equal(t, tc.expectedStatus, rr.Code, "expected status code to match")
			if tc.expectedMsg != "" {
				assert.Equal(t, tc.expectedMsg, decodeError(t, rr).Message, "expected error message to match")
			}
			db.AssertExpectations(t)
		})
	}
}

func TestGetMessages(t *testing.T) {
	groupId := primitive.NewObjectID()
	now := time.Now().UTC()

	newest := database.Message{Id: primitive.NewObjectID(), GroupId: groupId, Sender: "alice@example.com", Content: "second", Timestamp: now}
	oldest := database.Message{Id: primitive.NewObjectID(), GroupId: groupId, Sender: "alice@example.com", Content: "first", Timestamp: now.Add(-time.Minute)}

	db := &database.MockTaskifyRepository{}
	db.On("GetGroupById", mock.Anything, groupId.Hex()).Return(database.Group{
		Id: groupId,
		Members: []database.Member{
			{Email: "alice@example.com", Status: types.MemberActive, Role: types.RoleAdmin},
		},
	}, nil)
	db.On("ListMessages", mock.Anything, groupId.Hex(), time.Time{}, 50).
		Return([]database.Message{newest, oldest}, nil)
	app := newTestApp(t, db)

	r := authedRequest(t, http.MethodGet, fmt.Sprintf("/api/groups/%s/messages", groupId.Hex()), nil, "alice@example.com", "Alice")
	r.SetPathValue("id", groupId.Hex())

	rr := httptest.NewRecorder()
	app.getMessages(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp MessagesResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Messages, 2, "expected both messages in the window")
	assert.Equal(t, "first", resp.Messages[0].Content, "expected oldest-first ordering")
	assert.Equal(t, "second", resp.Messages[1].Content)
	db.AssertExpectations(t)
}

func TestGetMessages_NotMember(t *testing.T) {
	groupId := primitive.NewObjectID()
	db := &database.MockTaskifyRepository{}
	db.On("GetGroupById", mock.Anything, groupId.Hex()).Return(database.Group{
		Id: groupId,
		Members: []database.Member{
			{Email: "alice@example.com", Status: types.MemberActive, Role: types.RoleAdmin},
		},
	}, nil)
	app := newTestApp(t, db)

	r := authedRequest(t, http.MethodGet, fmt.Sprintf("/api/groups/%s/messages", groupId.Hex()), nil, "bob@example.com", "Bob")
	r.SetPathValue("id", groupId.Hex())

	rr := httptest.NewRecorder()
	app.getMessages(rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code, "expected non-members to be rejected")
	db.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetMessages_InvalidParams(t *testing.T) {
	groupId := primitive.NewObjectID()
	db := &database.MockTaskifyRepository{}
	db.On("GetGroupById", mock.Anything, groupId.Hex()).Return(database.Group{
		Id: groupId,
		Members: []database.Member{
			{Email: "alice@example.com", Status: types.MemberActive, Role: types.RoleAdmin},
		},
	}, nil)
	app := newTestApp(t, db)

	tt := []struct {
		name        string
		query       string
		expectedMsg string
	}{
		{name: "bad before", query: "?before=yesterday", expectedMsg: "invalid before timestamp"},
		{name: "bad limit", query: "?limit=0", expectedMsg: "invalid limit"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			r := authedRequest(t, http.MethodGet,
				fmt.Sprintf("/api/groups/%s/messages%s", groupId.Hex(), tc.query), nil, "alice@example.com", "Alice")
			r.SetPathValue("id", groupId.Hex())

			rr := httptest.NewRecorder()
			app.getMessages(rr, r)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tc.expectedMsg, decodeError(t, rr).Message)
		})
	}
}
