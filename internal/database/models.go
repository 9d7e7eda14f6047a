package database

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskify/taskify/internal/types"
)

type User struct {
	Id           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Name         string             `bson:"name"`
	PasswordHash string             `bson:"password_hash"`
	Avatar       string             `bson:"avatar,omitempty"`
	Status       string             `bson:"status"`
	LastSeen     time.Time          `bson:"last_seen"`
}

type Member struct {
	Email    string    `bson:"email"`
	Status   string    `bson:"status"`
	Role     string    `bson:"role"`
	JoinedAt time.Time `bson:"joined_at"`
}

type Group struct {
	Id        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Creator   string             `bson:"creator"`
	Members   []Member           `bson:"members"`
	CreatedAt time.Time          `bson:"created_at"`
}

type Message struct {
	Id        primitive.ObjectID `bson:"_id,omitempty"`
	GroupId   primitive.ObjectID `bson:"group_id"`
	Sender    string             `bson:"sender"`
	Content   string             `bson:"content"`
	Timestamp time.Time          `bson:"timestamp"`
}

type Task struct {
	Id          primitive.ObjectID `bson:"_id,omitempty"`
	GroupId     primitive.ObjectID `bson:"group_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	DueDate     time.Time          `bson:"due_date"`
	Priority    string             `bson:"priority"`
	AssignedTo  []string           `bson:"assigned_to"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash string
}

type UpdateProfileParams struct {
	Email  string
	Name   string
	Avatar string
}

type CreateGroupParams struct {
	Name    string
	Creator string
	Members []Member
}

type CreateMessageParams struct {
	GroupId string
	Sender  string
	Content string
}

type CreateTaskParams struct {
	GroupId     string
	Title       string
	Description string
	DueDate     time.Time
	Priority    string
	AssignedTo  []string
}

// TaskFilter narrows ListTasks; zero-valued fields are ignored.
type TaskFilter struct {
	GroupId    string
	AssignedTo string
	Status     string
}

// TaskUpdate carries a partial task update; nil fields are left untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *string
	AssignedTo  *[]string
	Status      *string
}

func (u User) ToApi() types.User {
	return types.User{
		Email:    u.Email,
		Name:     u.Name,
		Avatar:   u.Avatar,
		Status:   u.Status,
		LastSeen: u.LastSeen,
	}
}

func (m Member) ToApi() types.Member {
	return types.Member{
		Email:    m.Email,
		Status:   m.Status,
		Role:     m.Role,
		JoinedAt: m.JoinedAt,
	}
}

func (g Group) ToApi() types.Group {
	members := make([]types.Member, len(g.Members))
	for i, m := range g.Members {
		members[i] = m.ToApi()
	}

	return types.Group{
		Id:        g.Id.Hex(),
		Name:      g.Name,
		Creator:   g.Creator,
		Members:   members,
		CreatedAt: g.CreatedAt,
	}
}

func (m Message) ToApi() types.Message {
	return types.Message{
		Id:        m.Id.Hex(),
		GroupId:   m.GroupId.Hex(),
		Sender:    m.Sender,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

func (t Task) ToApi() types.Task {
	return types.Task{
		Id:          t.Id.Hex(),
		GroupId:     t.GroupId.Hex(),
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		AssignedTo:  t.AssignedTo,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
