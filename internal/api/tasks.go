package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/taskify/taskify/internal/database"
	"github.com/taskify/taskify/internal/gateway"
	"github.com/taskify/taskify/internal/types"
)

type CreateTaskRequest struct {
	GroupId     string    `json:"group_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	Priority    string    `json:"priority"`
	AssignedTo  []string  `json:"assigned_to"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	AssignedTo  *[]string  `json:"assigned_to,omitempty"`
	Status      *string    `json:"status,omitempty"`
}

type AssignTaskRequest struct {
	AssignedTo []string `json:"assigned_to"`
}

type TaskResponse struct {
	Message string     `json:"message,omitempty"`
	Task    types.Task `json:"task"`
}

type TasksResponse struct {
	Tasks []types.Task `json:"tasks"`
}

func validPriority(p string) bool {
	switch p {
	case types.PriorityLow, types.PriorityMedium, types.PriorityHigh:
		return true
	}
	return false
}

func validTaskStatus(s string) bool {
	switch s {
	case types.TaskTodo, types.TaskInProgress, types.TaskCompleted:
		return true
	}
	return false
}

func (s *TaskifyApp) createTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.GroupId == "" || req.Title == "" || req.Description == "" || req.DueDate.IsZero() {
		errResp := NewValidationError("please provide all required fields")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !validPriority(req.Priority) {
		errResp := NewValidationError("invalid priority")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, apiErr := s.adminGroup(r.Context(), req.GroupId, claims.Email); apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	assignees := make([]string, 0, len(req.AssignedTo))
	for _, email := range req.AssignedTo {
		if email = normalizeEmail(email); email != "" {
			assignees = append(assignees, email)
		}
	}

	newTask, err := s.db.CreateTask(r.Context(), database.CreateTaskParams{
		GroupId:     req.GroupId,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		AssignedTo:  assignees,
	})
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	task := newTask.ToApi()
	for _, email := range task.AssignedTo {
		// online assignees get a private push; offline ones see the
		// task on their next poll
		s.gw.NotifyIdentity(email, gateway.NewTaskEvent(task))
	}

	s.writeJson(w, http.StatusCreated, TaskResponse{
		Message: "task created successfully",
		Task:    task,
	})
}

func (s *TaskifyApp) listTasks(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserClaims(r.Context()); !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	filter := database.TaskFilter{
		GroupId:    r.URL.Query().Get("group_id"),
		AssignedTo: r.URL.Query().Get("assigned_to"),
		Status:     r.URL.Query().Get("status"),
	}

	dbTasks, err := s.db.ListTasks(r.Context(), filter)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	tasks := make([]types.Task, len(dbTasks))
	for i, t := range dbTasks {
		tasks[i] = t.ToApi()
	}

	s.writeJson(w, http.StatusOK, TasksResponse{Tasks: tasks})
}

func (s *TaskifyApp) getTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbTask, err := s.db.GetTaskById(r.Context(), r.PathValue("id"))
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbGroup, err := s.db.GetGroupById(r.Context(), dbTask.GroupId.Hex())
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

	s.writeJson(w, http.StatusOK, TaskResponse{Task: dbTask.ToApi()})
}

func (s *TaskifyApp) updateTask(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserClaims(r.Context()); !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Priority != nil && !validPriority(*req.Priority) {
		errResp := NewValidationError("invalid priority")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Status != nil && !validTaskStatus(*req.Status) {
		errResp := NewValidationError("invalid status")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbTask, err := s.db.UpdateTask(r.Context(), r.PathValue("id"), database.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		Status:      req.Status,
	})
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	task := dbTask.ToApi()
	s.gw.BroadcastGroup(task.GroupId, gateway.TaskUpdatedEvent(task))

	s.writeJson(w, http.StatusOK, TaskResponse{
		Message: "task updated successfully",
		Task:    task,
	})
}

func (s *TaskifyApp) assignTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbTask, err := s.db.GetTaskById(r.Context(), r.PathValue("id"))
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, apiErr := s.adminGroup(r.Context(), dbTask.GroupId.Hex(), claims.Email); apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	var req AssignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	assignees := make([]string, 0, len(req.AssignedTo))
	for _, email := range req.AssignedTo {
		if email = normalizeEmail(email); email != "" {
			assignees = append(assignees, email)
		}
	}

	if len(assignees) == 0 {
		errResp := NewValidationError("no assignees provided")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbTask, err = s.db.AddAssignees(r.Context(), dbTask.Id.Hex(), assignees)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	task := dbTask.ToApi()
	for _, email := range assignees {
		s.gw.NotifyIdentity(email, gateway.TaskAssignedEvent(task))
	}

	s.writeJson(w, http.StatusOK, TaskResponse{
		Message: "task assigned successfully",
		Task:    task,
	})
}

func (s *TaskifyApp) completeTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbTask, err := s.db.GetTaskById(r.Context(), r.PathValue("id"))
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, apiErr := s.adminGroup(r.Context(), dbTask.GroupId.Hex(), claims.Email); apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	completed := types.TaskCompleted
	dbTask, err = s.db.UpdateTask(r.Context(), dbTask.Id.Hex(), database.TaskUpdate{Status: &completed})
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	task := dbTask.ToApi()
	s.gw.BroadcastGroup(task.GroupId, gateway.TaskCompletedEvent(task))

	s.writeJson(w, http.StatusOK, TaskResponse{
		Message: "task completed successfully",
		Task:    task,
	})
}
