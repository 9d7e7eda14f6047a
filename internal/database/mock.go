package database

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockTaskifyRepository struct {
	mock.Mock
}

func (m *MockTaskifyRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskifyRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockTaskifyRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockTaskifyRepository) UpdateUserStatus(ctx context.Context, email, status string, lastSeen time.Time) (User, error) {
	args := m.Called(ctx, email, status, lastSeen)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockTaskifyRepository) UpdateUserProfile(ctx context.Context, params UpdateProfileParams) (User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockTaskifyRepository) CreateGroup(ctx context.Context, params CreateGroupParams) (Group, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Group), args.Error(1)
}

func (m *MockTaskifyRepository) GetGroupById(ctx context.Context, groupId string) (Group, error) {
	args := m.Called(ctx, groupId)
	return args.Get(0).(Group), args.Error(1)
}

func (m *MockTaskifyRepository) ListGroupsByMember(ctx context.Context, email, status string) ([]Group, error) {
	args := m.Called(ctx, email, status)
	if groups, ok := args.Get(0).([]Group); ok {
		return groups, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTaskifyRepository) UpdateMemberStatus(ctx context.Context, groupId, email, status string) (Group, error) {
	args := m.Called(ctx, groupId, email, status)
	return args.Get(0).(Group), args.Error(1)
}

func (m *MockTaskifyRepository) AddMembers(ctx context.Context, groupId string, members []Member) (Group, error) {
	args := m.Called(ctx, groupId, members)
	return args.Get(0).(Group), args.Error(1)
}

func (m *MockTaskifyRepository) RemoveMember(ctx context.Context, groupId, email string) (Group, error) {
	args := m.Called(ctx, groupId, email)
	return args.Get(0).(Group), args.Error(1)
}

func (m *MockTaskifyRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockTaskifyRepository) ListMessages(ctx context.Context, groupId string, before time.Time, limit int) ([]Message, error) {
	args := m.Called(ctx, groupId, before, limit)
	if messages, ok := args.Get(0).([]Message); ok {
		return messages, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTaskifyRepository) CreateTask(ctx context.Context, params CreateTaskParams) (Task, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Task), args.Error(1)
}

func (m *MockTaskifyRepository) GetTaskById(ctx context.Context, taskId string) (Task, error) {
	args := m.Called(ctx, taskId)
	return args.Get(0).(Task), args.Error(1)
}

func (m *MockTaskifyRepository) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	args := m.Called(ctx, filter)
	if tasks, ok := args.Get(0).([]Task); ok {
		return tasks, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTaskifyRepository) UpdateTask(ctx context.Context, taskId string, update TaskUpdate) (Task, error) {
	args := m.Called(ctx, taskId, update)
	return args.Get(0).(Task), args.Error(1)
}

func (m *MockTaskifyRepository) AddAssignees(ctx context.Context, taskId string, assignees []string) (Task, error) {
	args := m.Called(ctx, taskId, assignees)
	return args.Get(0).(Task), args.Error(1)
}
