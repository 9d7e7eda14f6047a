package database

import (
	"context"
	"time"
)

type TaskifyRepository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdateUserStatus(ctx context.Context, email, status string, lastSeen time.Time) (User, error)
	UpdateUserProfile(ctx context.Context, params UpdateProfileParams) (User, error)

	CreateGroup(ctx context.Context, params CreateGroupParams) (Group, error)
	GetGroupById(ctx context.Context, groupId string) (Group, error)
	ListGroupsByMember(ctx context.Context, email, status string) ([]Group, error)
	UpdateMemberStatus(ctx context.Context, groupId, email, status string) (Group, error)
	AddMembers(ctx context.Context, groupId string, members []Member) (Group, error)
	RemoveMember(ctx context.Context, groupId, email string) (Group, error)

	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	ListMessages(ctx context.Context, groupId string, before time.Time, limit int) ([]Message, error)

	CreateTask(ctx context.Context, params CreateTaskParams) (Task, error)
	GetTaskById(ctx context.Context, taskId string) (Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	UpdateTask(ctx context.Context, taskId string, update TaskUpdate) (Task, error)
	AddAssignees(ctx context.Context, taskId string, assignees []string) (Task, error)
}
