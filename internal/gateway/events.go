package gateway

import (
	"github.com/taskify/taskify/internal/types"
)

// Outbound event names on the wire.
const (
	EventNewMessage      = "newMessage"
	EventUserTyping      = "userTyping"
	EventUserStatus      = "userStatus"
	EventMemberLeft      = "memberLeft"
	EventMemberRemoved   = "memberRemoved"
	EventGroupInvitation = "groupInvitation"
	EventNewTask         = "newTask"
	EventTaskAssigned    = "taskAssigned"
	EventTaskUpdated     = "taskUpdated"
	EventTaskCompleted   = "taskCompleted"
	EventError           = "error"
)

// ClientEvent is the tagged union of inbound realtime events. Exactly
// one field is expected to be set.
type ClientEvent struct {
	Join   *JoinGroup   `json:"joinGroup,omitempty"`
	Leave  *LeaveGroup  `json:"leaveGroup,omitempty"`
	Send   *SendMessage `json:"sendMessage,omitempty"`
	Typing *Typing      `json:"typing,omitempty"`
}

type JoinGroup struct {
	GroupId string `json:"group_id"`
}

type LeaveGroup struct {
	GroupId string `json:"group_id"`
}

type SendMessage struct {
	GroupId string `json:"group_id"`
	Content string `json:"content"`
}

type Typing struct {
	GroupId  string `json:"group_id"`
	IsTyping bool   `json:"is_typing"`
}

// ServerEvent is the outbound envelope.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type NewMessagePayload struct {
	GroupId string        `json:"group_id"`
	Message types.Message `json:"message"`
}

type UserTypingPayload struct {
	GroupId  string `json:"group_id"`
	User     string `json:"user"`
	IsTyping bool   `json:"is_typing"`
}

type UserStatusPayload struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

type MemberChangePayload struct {
	GroupId string `json:"group_id"`
	Email   string `json:"email"`
}

type GroupInvitationPayload struct {
	GroupId   string `json:"group_id"`
	GroupName string `json:"group_name"`
	InvitedBy string `json:"invited_by"`
}

type NewTaskPayload struct {
	GroupId string     `json:"group_id"`
	Task    types.Task `json:"task"`
}

type TaskAssignedPayload struct {
	TaskId  string `json:"task_id"`
	Title   string `json:"title"`
	GroupId string `json:"group_id"`
}

type TaskUpdatedPayload struct {
	TaskId string     `json:"task_id"`
	Task   types.Task `json:"task"`
}

type TaskCompletedPayload struct {
	TaskId string `json:"task_id"`
	Title  string `json:"title"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func NewMessageEvent(groupId string, msg types.Message) *ServerEvent {
	return &ServerEvent{
		Event: EventNewMessage,
		Data:  NewMessagePayload{GroupId: groupId, Message: msg},
	}
}

func UserTypingEvent(groupId, user string, isTyping bool) *ServerEvent {
	return &ServerEvent{
		Event: EventUserTyping,
		Data:  UserTypingPayload{GroupId: groupId, User: user, IsTyping: isTyping},
	}
}

func UserStatusEvent(email, status string) *ServerEvent {
	return &ServerEvent{
		Event: EventUserStatus,
		Data:  UserStatusPayload{Email: email, Status: status},
	}
}

func MemberLeftEvent(groupId, email string) *ServerEvent {
	return &ServerEvent{
		Event: EventMemberLeft,
		Data:  MemberChangePayload{GroupId: groupId, Email: email},
	}
}

func MemberRemovedEvent(groupId, email string) *ServerEvent {
	return &ServerEvent{
		Event: EventMemberRemoved,
		Data:  MemberChangePayload{GroupId: groupId, Email: email},
	}
}

func GroupInvitationEvent(groupId, groupName, invitedBy string) *ServerEvent {
	return &ServerEvent{
		Event: EventGroupInvitation,
		Data:  GroupInvitationPayload{GroupId: groupId, GroupName: groupName, InvitedBy: invitedBy},
	}
}

func NewTaskEvent(task types.Task) *ServerEvent {
	return &ServerEvent{
		Event: EventNewTask,
		Data:  NewTaskPayload{GroupId: task.GroupId, Task: task},
	}
}

func TaskAssignedEvent(task types.Task) *ServerEvent {
	return &ServerEvent{
		Event: EventTaskAssigned,
		Data:  TaskAssignedPayload{TaskId: task.Id, Title: task.Title, GroupId: task.GroupId},
	}
}

func TaskUpdatedEvent(task types.Task) *ServerEvent {
	return &ServerEvent{
		Event: EventTaskUpdated,
		Data:  TaskUpdatedPayload{TaskId: task.Id, Task: task},
	}
}

func TaskCompletedEvent(task types.Task) *ServerEvent {
	return &ServerEvent{
		Event: EventTaskCompleted,
		Data:  TaskCompletedPayload{TaskId: task.Id, Title: task.Title},
	}
}

func ErrEvent(message string) *ServerEvent {
	return &ServerEvent{
		Event: EventError,
		Data:  ErrorPayload{Message: message},
	}
}
