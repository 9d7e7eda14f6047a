package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskify/taskify/internal/auth"
	"github.com/taskify/taskify/internal/database"
	"github.com/taskify/taskify/internal/gateway"
	"github.com/taskify/taskify/internal/types"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 6

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Message string     `json:"message"`
	Token   string     `json:"token"`
	User    types.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *TaskifyApp) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Email == "" || req.Password == "" || req.Name == "" {
		errResp := NewValidationError("please provide all required fields")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !emailRegex.MatchString(req.Email) {
		errResp := NewValidationError("invalid email format")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if len(req.Password) < minPasswordLength {
		errResp := NewValidationError("password must be at least 6 characters long")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := auth.HashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newUser, err := s.db.CreateUser(r.Context(), database.CreateUserParams{
		Email:        normalizeEmail(req.Email),
		Name:         req.Name,
		PasswordHash: pwdHash,
	})
	if err != nil {
		var errResp *ApiError
		if database.IsDuplicateKey(err) {
			errResp = NewConflictError("user already exists")
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.issuer.Issue(newUser.Email, newUser.Name)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, AuthResponse{
		Message: "user created successfully",
		Token:   token,
		User:    newUser.ToApi(),
	})
}

func (s *TaskifyApp) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Email == "" || req.Password == "" {
		errResp := NewValidationError("please provide email and password")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetUserByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, mongo.ErrNoDocuments) {
			errResp = NewApiError(http.StatusUnauthorized, "invalid credentials")
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !auth.VerifyPassword(dbUser.PasswordHash, req.Password) {
		errResp := NewApiError(http.StatusUnauthorized, "invalid credentials")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err = s.db.UpdateUserStatus(r.Context(), dbUser.Email, types.StatusOnline, time.Now().UTC())
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.issuer.Issue(dbUser.Email, dbUser.Name)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// presence change is global, not confined to shared groups
	s.gw.BroadcastAll(gateway.UserStatusEvent(dbUser.Email, types.StatusOnline))

	s.writeJson(w, http.StatusOK, AuthResponse{
		Message: "login successful",
		Token:   token,
		User:    dbUser.ToApi(),
	})
}

func (s *TaskifyApp) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.UpdateUserStatus(r.Context(), claims.Email, types.StatusOffline, time.Now().UTC()); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.gw.BroadcastAll(gateway.UserStatusEvent(claims.Email, types.StatusOffline))
	s.gw.DisconnectIdentity(claims.Email)

	s.writeJson(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}
