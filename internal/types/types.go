package types

import (
	"time"
)

// Membership statuses.
const (
	MemberPending = "pending"
	MemberActive  = "active"
)

// Membership roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Presence statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task statuses.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in-progress"
	TaskCompleted  = "completed"
)

type User struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Password string    `json:"-"`
	Avatar   string    `json:"avatar,omitempty"`
	Status   string    `json:"status,omitempty"`
	LastSeen time.Time `json:"last_seen,omitempty"`
}

type Member struct {
	Email    string    `json:"email"`
	Status   string    `json:"status"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at,omitempty"`
}

type Group struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	Creator   string    `json:"creator"`
	Members   []Member  `json:"members"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Message struct {
	Id        string    `json:"id"`
	GroupId   string    `json:"group_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Task struct {
	Id          string    `json:"id"`
	GroupId     string    `json:"group_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	Priority    string    `json:"priority"`
	AssignedTo  []string  `json:"assigned_to"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// ActiveMember returns the group's membership entry for email if it
// exists with active status.
func (g Group) ActiveMember(email string) (Member, bool) {
	for _, m := range g.Members {
		if m.Email == email && m.Status == MemberActive {
			return m, true
		}
	}
	return Member{}, false
}

// IsActiveAdmin reports whether email holds an active admin membership
// in the group.
func (g Group) IsActiveAdmin(email string) bool {
	m, ok := g.ActiveMember(email)
	return ok && m.Role == RoleAdmin
}

// AdminCount counts the group's admin-role members.
func (g Group) AdminCount() int {
	var n int
	for _, m := range g.Members {
		if m.Role == RoleAdmin {
			n++
		}
	}
	return n
}
