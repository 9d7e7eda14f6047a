package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"

	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskify/taskify/internal/auth"
	"github.com/taskify/taskify/internal/config"
	"github.com/taskify/taskify/internal/database"
	"github.com/taskify/taskify/internal/gateway"
	"github.com/taskify/taskify/internal/types"
)

type TaskifyApp struct {
	log            *log.Logger
	db             database.TaskifyRepository
	mux            *http.Server
	gw             *gateway.Gateway
	issuer         *auth.TokenIssuer
	allowedOrigins []string
}

func NewTaskifyApp(mux *http.ServeMux, logger *log.Logger, gw *gateway.Gateway, db database.TaskifyRepository, issuer *auth.TokenIssuer, cfg *config.Config) *TaskifyApp {
	s := &TaskifyApp{
		log:            logger,
		db:             db,
		gw:             gw,
		issuer:         issuer,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/signup", s.signup)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("POST /api/auth/logout", s.authMiddleware(s.logout))

	mux.Handle("POST /api/groups", s.authMiddleware(s.createGroup))
	mux.Handle("GET /api/groups", s.authMiddleware(s.listGroups))
	mux.Handle("POST /api/groups/{id}/accept", s.authMiddleware(s.acceptInvitation))
	mux.Handle("POST /api/groups/{id}/leave", s.authMiddleware(s.leaveGroup))
	mux.Handle("POST /api/groups/{id}/invite", s.authMiddleware(s.inviteUsers))
	mux.Handle("POST /api/groups/{id}/remove/{email}", s.authMiddleware(s.removeMember))
	mux.Handle("GET /api/groups/{id}/messages", s.authMiddleware(s.getMessages))

	mux.Handle("POST /api/tasks", s.authMiddleware(s.createTask))
	mux.Handle("GET /api/tasks", s.authMiddleware(s.listTasks))
	mux.Handle("GET /api/tasks/{id}", s.authMiddleware(s.getTask))
	mux.Handle("PATCH /api/tasks/{id}", s.authMiddleware(s.updateTask))
	mux.Handle("POST /api/tasks/{id}/assign", s.authMiddleware(s.assignTask))
	mux.Handle("POST /api/tasks/{id}/complete", s.authMiddleware(s.completeTask))

	mux.Handle("GET /api/users/profile", s.authMiddleware(s.getProfile))
	mux.Handle("PATCH /api/users/profile", s.authMiddleware(s.updateProfile))
	mux.Handle("GET /api/users/invitations", s.authMiddleware(s.getInvitations))

	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *TaskifyApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *TaskifyApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *TaskifyApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *TaskifyApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Println("health check:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// storeError maps repository failures onto the REST error taxonomy.
func storeError(err error) *ApiError {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return NewNotFoundError()
	}
	return NewInternalServerError(err)
}

func (s *TaskifyApp) serveWs(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := gateway.NewClient(types.User{
		Email: claims.Email,
		Name:  claims.Name,
	}, conn, s.gw, s.log)

	if err := s.gw.RegisterClient(r.Context(), client); err != nil {
		s.log.Println("register client:", err)
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}
